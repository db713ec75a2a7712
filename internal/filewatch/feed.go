package filewatch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/InvictusNavarchus/lichess-ai-assistant/internal/mutation"
)

// Feed turns edits of one file into structural batches for region. The
// parent directory is watched so editors that replace the file are seen.
type Feed struct {
	*mutation.Hub

	path    string
	region  string
	logger  *zap.Logger
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewFeed(path, region string, logger *zap.Logger) (*Feed, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Feed{
		Hub:     mutation.NewHub(),
		path:    abs,
		region:  region,
		logger:  logger,
		watcher: w,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start begins watching. It does not block.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return nil
	}
	if err := f.watcher.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(f.path), err)
	}
	f.running = true
	go f.run(ctx)
	f.logger.Info("file_feed_started", zap.String("path", f.path))
	return nil
}

// Stop ends the watch loop and releases the watcher.
func (f *Feed) Stop() {
	f.mu.Lock()
	running := f.running
	f.running = false
	f.mu.Unlock()
	if running {
		close(f.stopCh)
		<-f.doneCh
	}
	if err := f.watcher.Close(); err != nil {
		f.logger.Warn("file_feed_close_failed", zap.Error(err))
	}
}

func (f *Feed) run(ctx context.Context) {
	defer close(f.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopCh:
			return
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if b := f.batchFor(ev); len(b) > 0 {
				f.Publish(b)
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn("file_feed_error", zap.Error(err))
		}
	}
}

func (f *Feed) batchFor(ev fsnotify.Event) mutation.Batch {
	if filepath.Clean(ev.Name) != f.path {
		return nil
	}
	var e mutation.Entry
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		e = mutation.Entry{Kind: mutation.Structural, Target: f.region, Added: 1}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		e = mutation.Entry{Kind: mutation.Structural, Target: f.region, Removed: 1}
	default:
		return nil
	}
	return mutation.Batch{e}
}

var _ mutation.Feed = (*Feed)(nil)
