package domain

import (
	"context"
	"time"
)

// Side identifies the player whose perspective the coach takes.
type Side string

const (
	SideWhite   Side = "white"
	SideBlack   Side = "black"
	SideUnknown Side = "unknown"
)

// ParseSide maps loose page/file values onto a Side.
func ParseSide(s string) Side {
	switch s {
	case "white", "w", "White":
		return SideWhite
	case "black", "b", "Black":
		return SideBlack
	default:
		return SideUnknown
	}
}

// Snapshot is a single read of the observed board state.
type Snapshot struct {
	PositionID       string
	GameRecord       string
	LastMoveFeedback string
	LastMoveComment  string
	SideToMove       Side
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one transcript entry. A placeholder is the transient assistant entry
// shown while a request is outstanding.
type Turn struct {
	ID            string
	Role          Role
	Text          string
	CreatedAt     time.Time
	IsError       bool
	IsPlaceholder bool
}

// SnapshotSource reads the current board state on demand. A nil snapshot with a
// nil error means the state is not available right now.
type SnapshotSource interface {
	ReadCurrentSnapshot(ctx context.Context) (*Snapshot, error)
}

// SnapshotSourceFunc adapts a function to SnapshotSource.
type SnapshotSourceFunc func(ctx context.Context) (*Snapshot, error)

func (f SnapshotSourceFunc) ReadCurrentSnapshot(ctx context.Context) (*Snapshot, error) {
	return f(ctx)
}
