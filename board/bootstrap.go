package board

import (
	"context"
	"errors"
	"whiteboard-server/core"
	"whiteboard-server/drawing"

	"github.com/sirupsen/logrus"
)

// Open restores a board from store. The persisted theme is applied first,
// then the canvas is sized from cfg and the persisted drawing, if any,
// becomes the only history entry. Without a usable drawing the canvas is
// filled with the theme background and that blank state is recorded.
func Open(ctx context.Context, store core.KeyValueStore, cfg Config) *Board {
	b := newBoard(store, cfg)

	theme, err := store.Get(ctx, b.themeKey)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		logrus.WithFields(logrus.Fields{
			"key":   b.themeKey,
			"error": err,
		}).Warn("Failed to load theme")
	}
	b.theme = core.ParseTheme(theme)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.resize(cfg.Width, cfg.Height)

	if s, ok := b.restore(ctx); ok {
		b.history.Reset(s)
		logrus.WithFields(logrus.Fields{
			"key":         b.dataKey,
			"snapshot_id": s.ID,
			"theme":       b.theme,
		}).Info("Restored board")
		return b
	}

	b.commit(ctx)
	logrus.WithFields(logrus.Fields{
		"key":   b.dataKey,
		"theme": b.theme,
	}).Info("Initialized blank board")
	return b
}

// restore loads the persisted drawing onto the canvas. Missing or corrupt
// data reports false and leaves the canvas untouched.
func (b *Board) restore(ctx context.Context) (core.Snapshot, bool) {
	value, err := b.store.Get(ctx, b.dataKey)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			logrus.WithFields(logrus.Fields{
				"key":   b.dataKey,
				"error": err,
			}).Warn("Failed to load drawing")
		}
		return core.Snapshot{}, false
	}

	s, err := drawing.ParseDataURL(value)
	if err == nil {
		err = b.engine.RenderSnapshot(s).Wait()
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"key":   b.dataKey,
			"error": err,
		}).Warn("Discarding unreadable drawing")
		return core.Snapshot{}, false
	}
	return s, true
}
