// Package board is the whiteboard session: it owns the toolbar selection,
// stroke style, theme, drawing engine and snapshot history of one board and
// keeps the persistent store in step with them.
package board

import (
	"context"
	"image"
	"sync"
	"whiteboard-server/core"
	"whiteboard-server/drawing"
	"whiteboard-server/history"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

// ExportFilename is the name a saved board is offered for download under.
const ExportFilename = "whiteboard.png"

// canvasMargin is subtracted from each container dimension to size the canvas.
const canvasMargin = 40

type (
	Config struct {
		// Namespace prefixes the persisted keys so several boards can share
		// one store. Empty means the bare keys.
		Namespace    string
		HistoryLimit int
		// Width and Height are the size of the container the canvas sits in.
		Width  int
		Height int
	}

	Export struct {
		Filename string
		Data     []byte
	}

	State struct {
		Tool      core.Tool  `json:"tool"`
		Swatch    string     `json:"swatch"`
		Picker    string     `json:"picker"`
		Color     string     `json:"color"`
		Thickness float64    `json:"thickness"`
		Theme     core.Theme `json:"theme"`
		Width     int        `json:"width"`
		Height    int        `json:"height"`
		Index     int        `json:"index"`
		Length    int        `json:"length"`
		Drawing   bool       `json:"drawing"`
	}

	Board struct {
		mu       sync.Mutex
		store    core.KeyValueStore
		engine   *drawing.Engine
		history  *history.History
		toolbar  toolbar
		style    core.Style
		theme    core.Theme
		themeKey string
		dataKey  string
	}
)

func newBoard(store core.KeyValueStore, cfg Config) *Board {
	c, _, _ := parseColor(defaultColor)
	return &Board{
		store:    store,
		engine:   drawing.NewEngine(canvasSize(cfg.Width), canvasSize(cfg.Height)),
		history:  history.New(cfg.HistoryLimit),
		toolbar:  newToolbar(),
		style:    core.Style{Color: c, Thickness: defaultThickness},
		theme:    core.ThemeLight,
		themeKey: namespaced(cfg.Namespace, core.ThemeKey),
		dataKey:  namespaced(cfg.Namespace, core.DataKey),
	}
}

func namespaced(ns, key string) string {
	if ns == "" {
		return key
	}
	return ns + ":" + key
}

func canvasSize(container int) int {
	return max(container-canvasMargin, 1)
}

// SetTool selects the named tool. Unknown names leave the selection as is.
func (b *Board) SetTool(ctx context.Context, name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopDrawing(ctx)

	tool, ok := core.ParseTool(name)
	if !ok {
		logrus.WithField("tool", name).Debug("Ignoring unknown tool")
		return false
	}
	b.toolbar.tool = tool
	return true
}

// SetColor handles a swatch click: the swatch becomes the highlighted one and
// its value is mirrored into the color picker.
func (b *Board) SetColor(ctx context.Context, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopDrawing(ctx)

	c, hex, err := parseColor(value)
	if err != nil {
		return err
	}
	b.style.Color = c
	b.toolbar.swatch = hex
	b.toolbar.picker = hex
	return nil
}

// PickColor handles free-form color input, which clears the swatch highlight.
func (b *Board) PickColor(ctx context.Context, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopDrawing(ctx)

	c, hex, err := parseColor(value)
	if err != nil {
		return err
	}
	b.style.Color = c
	b.toolbar.swatch = ""
	b.toolbar.picker = hex
	return nil
}

// SetThickness sets the line width used from the next stroke on. Values that
// are not positive are ignored.
func (b *Board) SetThickness(ctx context.Context, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopDrawing(ctx)

	v, err := parseThickness(value)
	if err != nil {
		return err
	}
	if v <= 0 {
		logrus.WithField("thickness", v).Debug("Ignoring non-positive thickness")
		return nil
	}
	b.style.Thickness = v
	return nil
}

// Clear fills the canvas with the theme background and records it as a new
// history entry.
func (b *Board) Clear(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopDrawing(ctx)

	b.engine.FillBackground(b.theme.Background())
	b.commit(ctx)
}

// Save exports the current raster as a PNG.
func (b *Board) Save(ctx context.Context) (Export, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopDrawing(ctx)

	s, err := b.engine.CaptureSnapshot()
	if err != nil {
		return Export{}, err
	}
	return Export{Filename: ExportFilename, Data: s.Data}, nil
}

func (b *Board) Undo(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopDrawing(ctx)

	s, ok := b.history.Undo()
	if !ok {
		return false
	}
	b.engine.RenderSnapshot(s)
	b.persist(ctx, s)
	return true
}

func (b *Board) Redo(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopDrawing(ctx)

	s, ok := b.history.Redo()
	if !ok {
		return false
	}
	b.engine.RenderSnapshot(s)
	b.persist(ctx, s)
	return true
}

// ToggleTheme flips between light and dark, persists the choice and redraws
// the current snapshot.
func (b *Board) ToggleTheme(ctx context.Context) core.Theme {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopDrawing(ctx)

	b.theme = b.theme.Toggle()
	if err := b.store.Set(ctx, b.themeKey, string(b.theme)); err != nil {
		logrus.WithFields(logrus.Fields{
			"key":   b.themeKey,
			"error": err,
		}).Error("Failed to persist theme")
	}
	if s, ok := b.history.Current(); ok {
		b.engine.RenderSnapshot(s)
	}
	return b.theme
}

// PointerDown starts a stroke with the active tool and style at p. A stroke
// that is still open is committed first.
func (b *Board) PointerDown(ctx context.Context, p core.Point) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopDrawing(ctx)

	return b.engine.BeginStroke(p, b.toolbar.tool, b.style)
}

// PointerMove extends the open stroke. It reports false when there is none.
func (b *Board) PointerMove(p core.Point) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.engine.ExtendStroke(p)
}

// PointerUp finishes the open stroke and records it in history.
func (b *Board) PointerUp(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.stopDrawing(ctx)
}

// PointerLeave behaves like PointerUp.
func (b *Board) PointerLeave(ctx context.Context) bool {
	return b.PointerUp(ctx)
}

// Resize sizes the canvas to fit a container of the given size and redraws
// the current snapshot on it. Artwork is not rescaled.
func (b *Board) Resize(containerWidth, containerHeight int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resize(containerWidth, containerHeight)
}

func (b *Board) resize(containerWidth, containerHeight int) {
	b.engine.Resize(canvasSize(containerWidth), canvasSize(containerHeight))
	if s, ok := b.history.Current(); ok {
		b.engine.RenderSnapshot(s)
		return
	}
	b.engine.FillBackground(b.theme.Background())
}

// Frame encodes the canvas as it is now, without recording it.
func (b *Board) Frame() (core.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.engine.CaptureSnapshot()
}

// View returns the canvas composited over the theme background, which is
// what shows through erased regions.
func (b *Board) View() *image.RGBA {
	b.mu.Lock()
	defer b.mu.Unlock()

	raster := b.engine.Image()
	out := image.NewRGBA(raster.Bounds())
	draw.Draw(out, out.Bounds(), image.NewUniform(b.theme.Background()), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), raster, raster.Bounds().Min, draw.Over)
	return out
}

func (b *Board) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	w, h := b.engine.Size()
	return State{
		Tool:      b.toolbar.tool,
		Swatch:    b.toolbar.swatch,
		Picker:    b.toolbar.picker,
		Color:     colorHex(b.style.Color),
		Thickness: b.style.Thickness,
		Theme:     b.theme,
		Width:     w,
		Height:    h,
		Index:     b.history.Index(),
		Length:    b.history.Len(),
		Drawing:   b.engine.Active(),
	}
}

// History returns the recorded snapshots and the index of the current one.
func (b *Board) History() ([]core.Snapshot, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.history.Entries(), b.history.Index()
}

// Snapshot looks up a recorded snapshot by ID.
func (b *Board) Snapshot(id string) (core.Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, _, ok := b.history.Find(id)
	return s, ok
}

// stopDrawing closes the open stroke, if any, and commits it.
func (b *Board) stopDrawing(ctx context.Context) bool {
	if !b.engine.EndStroke() {
		return false
	}
	b.commit(ctx)
	return true
}

// commit records the canvas as a new history entry and persists it.
func (b *Board) commit(ctx context.Context) {
	s, err := b.engine.CaptureSnapshot()
	if err != nil {
		logrus.WithField("error", err).Error("Failed to capture snapshot")
		return
	}
	b.history.Push(s)
	b.persist(ctx, s)
}

func (b *Board) persist(ctx context.Context, s core.Snapshot) {
	if err := b.store.Set(ctx, b.dataKey, drawing.DataURL(s)); err != nil {
		logrus.WithFields(logrus.Fields{
			"key":         b.dataKey,
			"snapshot_id": s.ID,
			"error":       err,
		}).Error("Failed to persist snapshot")
		return
	}
	logrus.WithFields(logrus.Fields{
		"key":         b.dataKey,
		"snapshot_id": s.ID,
	}).Debug("Persisted snapshot")
}
