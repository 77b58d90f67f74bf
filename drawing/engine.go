// Package drawing owns the canvas raster and turns pointer strokes into
// pixels.
//
// Freehand tools (pencil, eraser) stroke one segment per pointer move and
// accumulate on the raster. Shape tools (rectangle, circle, line) keep a copy
// of the raster taken when the stroke began, the preview base, and restore it
// before every redraw so intermediate pointer positions leave no outlines.
//
// Loading a snapshot back into pixels is asynchronous and goes through a
// single pending-render slot: a newer request always wins over an older one,
// and every other operation waits for the latest request before touching the
// raster.
package drawing

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"
	"whiteboard-server/core"

	"github.com/fogleman/gg"
	"github.com/sirupsen/logrus"
)

type stroke struct {
	tool   core.Tool
	style  core.Style
	anchor core.Point
	last   core.Point
	base   []uint8
}

type Engine struct {
	mu      sync.Mutex
	surface *image.RGBA
	dc      *gg.Context
	stroke  *stroke
	slot    renderSlot
	decode  func(core.Snapshot) (image.Image, error)
}

// NewEngine returns an engine with a transparent canvas of the given size.
func NewEngine(width, height int) *Engine {
	e := &Engine{decode: DecodeSnapshot}
	e.reset(width, height)
	return e
}

func (e *Engine) reset(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	e.surface = image.NewRGBA(image.Rect(0, 0, width, height))
	e.dc = gg.NewContextForRGBA(e.surface)
	e.stroke = nil
}

// Resize replaces the raster with a blank one of the new size. Any stroke in
// progress is dropped.
func (e *Engine) Resize(width, height int) {
	e.slot.wait()
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reset(width, height)
}

func (e *Engine) Size() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b := e.surface.Bounds()
	return b.Dx(), b.Dy()
}

// Active reports whether a stroke is in progress.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stroke != nil
}

// BeginStroke anchors a new stroke at p. Unknown tools start nothing.
func (e *Engine) BeginStroke(p core.Point, tool core.Tool, style core.Style) bool {
	if _, ok := core.ParseTool(string(tool)); !ok {
		return false
	}

	e.slot.wait()
	e.mu.Lock()
	defer e.mu.Unlock()

	if style.Thickness <= 0 {
		style.Thickness = 1
	}
	s := &stroke{tool: tool, style: style, anchor: p, last: p}
	if tool.Shape() {
		s.base = make([]uint8, len(e.surface.Pix))
		copy(s.base, e.surface.Pix)
	}
	e.stroke = s
	applyStyle(e.dc, style)
	return true
}

// ExtendStroke continues the active stroke to p. It is ignored when no
// stroke is active.
func (e *Engine) ExtendStroke(p core.Point) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.stroke
	if s == nil {
		return false
	}

	switch s.tool {
	case core.ToolPencil:
		e.dc.DrawLine(s.last.X, s.last.Y, p.X, p.Y)
		e.dc.Stroke()
	case core.ToolEraser:
		e.erase(s, p)
	case core.ToolRectangle:
		copy(e.surface.Pix, s.base)
		e.dc.DrawRectangle(s.anchor.X, s.anchor.Y, p.X-s.anchor.X, p.Y-s.anchor.Y)
		e.dc.Stroke()
	case core.ToolCircle:
		copy(e.surface.Pix, s.base)
		e.dc.DrawCircle(s.anchor.X, s.anchor.Y, math.Hypot(p.X-s.anchor.X, p.Y-s.anchor.Y))
		e.dc.Stroke()
	case core.ToolLine:
		copy(e.surface.Pix, s.base)
		e.dc.DrawLine(s.anchor.X, s.anchor.Y, p.X, p.Y)
		e.dc.Stroke()
	}
	s.last = p
	return true
}

// EndStroke finishes the active stroke and reports whether there was one.
func (e *Engine) EndStroke() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stroke == nil {
		return false
	}
	e.dc.ClearPath()
	e.stroke = nil
	return true
}

// FillBackground paints c over the whole canvas.
func (e *Engine) FillBackground(c color.Color) {
	e.slot.wait()
	e.mu.Lock()
	defer e.mu.Unlock()

	b := e.surface.Bounds()
	e.dc.Push()
	e.dc.SetColor(c)
	e.dc.DrawRectangle(0, 0, float64(b.Dx()), float64(b.Dy()))
	e.dc.Fill()
	e.dc.Pop()
}

// RenderSnapshot asynchronously replaces the canvas content with s. The
// canvas is cleared and the snapshot drawn at the origin, so a snapshot of a
// different size is clipped or leaves a blank border.
func (e *Engine) RenderSnapshot(s core.Snapshot) *Render {
	r := e.slot.next()
	go e.render(r, s)
	return r
}

func (e *Engine) render(r *Render, s core.Snapshot) {
	defer close(r.done)

	img, err := e.decode(s)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.slot.isLatest(r) {
		r.err = ErrSuperseded
		return
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"snapshot_id": s.ID,
			"error":       err,
		}).Warn("Failed to render snapshot")
		r.err = err
		return
	}

	clear(e.surface.Pix)
	src := img.Bounds()
	draw.Draw(e.surface, src.Sub(src.Min), img, src.Min, draw.Src)
}

// Settle blocks until the most recently requested render has completed.
func (e *Engine) Settle() {
	e.slot.wait()
}

// CaptureSnapshot encodes the current raster.
func (e *Engine) CaptureSnapshot() (core.Snapshot, error) {
	e.slot.wait()
	e.mu.Lock()
	defer e.mu.Unlock()

	return EncodeSnapshot(e.surface)
}

// Image returns a copy of the current raster.
func (e *Engine) Image() *image.RGBA {
	e.slot.wait()
	e.mu.Lock()
	defer e.mu.Unlock()

	out := image.NewRGBA(e.surface.Bounds())
	copy(out.Pix, e.surface.Pix)
	return out
}

func applyStyle(dc *gg.Context, style core.Style) {
	dc.ClearPath()
	dc.SetColor(style.Color)
	dc.SetLineWidth(style.Thickness)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
}
