package coachdto

import (
	"time"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/domain"
)

type TurnKind string

const (
	KindUser      TurnKind = "user"
	KindAssistant TurnKind = "assistant"
	KindError     TurnKind = "error"
	KindLoading   TurnKind = "loading"
)

// TurnView is a transcript entry as a surface renders it.
type TurnView struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Kind      TurnKind  `json:"kind"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Authors are the display names for each role.
type Authors struct {
	User      string
	Assistant string
}

func KindOf(t domain.Turn) TurnKind {
	switch {
	case t.IsPlaceholder:
		return KindLoading
	case t.IsError:
		return KindError
	case t.Role == domain.RoleUser:
		return KindUser
	default:
		return KindAssistant
	}
}

func ToViews(turns []domain.Turn, a Authors) []TurnView {
	out := make([]TurnView, 0, len(turns))
	for _, t := range turns {
		author := a.Assistant
		if t.Role == domain.RoleUser {
			author = a.User
		}
		out = append(out, TurnView{
			ID:        t.ID,
			Author:    author,
			Kind:      KindOf(t),
			Text:      t.Text,
			CreatedAt: t.CreatedAt,
		})
	}
	return out
}
