// Package filewatch exposes a YAML snapshot file as a board state source and
// its edits as change notifications, for running without a browser.
package filewatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/chess"
	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/domain"
)

// File is the on-disk snapshot layout.
type File struct {
	FEN      string `yaml:"fen"`
	PGN      string `yaml:"pgn"`
	Feedback string `yaml:"feedback"`
	Comment  string `yaml:"comment"`
	Side     string `yaml:"side"`
}

type Source struct {
	path string
}

func NewSource(path string) *Source { return &Source{path: path} }

func (s *Source) Path() string { return s.path }

// ReadCurrentSnapshot returns nil without error when the file is missing or
// carries no position.
func (s *Source) ReadCurrentSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse snapshot file: %w", err)
	}
	if strings.TrimSpace(f.FEN) == "" {
		return nil, nil
	}
	snap := chess.Normalize(domain.Snapshot{
		PositionID:       f.FEN,
		GameRecord:       strings.TrimSpace(f.PGN),
		LastMoveFeedback: strings.TrimSpace(f.Feedback),
		LastMoveComment:  strings.TrimSpace(f.Comment),
		SideToMove:       domain.ParseSide(strings.TrimSpace(f.Side)),
	})
	return &snap, nil
}

// Write stores f at path. Used by tests and the CLI to seed a file.
func Write(path string, f File) error {
	b, err := yaml.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

var _ domain.SnapshotSource = (*Source)(nil)
