package coachdto

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/domain"
)

func TestToViews(t *testing.T) {
	turns := []domain.Turn{
		{ID: "1", Role: domain.RoleUser, Text: "q"},
		{ID: "2", Role: domain.RoleAssistant, Text: "a"},
		{ID: "3", Role: domain.RoleAssistant, Text: "Error: x", IsError: true},
		{ID: "4", Role: domain.RoleAssistant, Text: "Thinking...", IsPlaceholder: true},
	}
	views := ToViews(turns, Authors{User: "You", Assistant: "AI Coach"})
	assert.Len(t, views, 4)
	assert.Equal(t, []TurnKind{KindUser, KindAssistant, KindError, KindLoading},
		[]TurnKind{views[0].Kind, views[1].Kind, views[2].Kind, views[3].Kind})
	assert.Equal(t, "You", views[0].Author)
	assert.Equal(t, "AI Coach", views[3].Author)
	assert.Empty(t, ToViews(nil, Authors{}))
}
