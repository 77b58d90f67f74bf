package core

import (
	"context"
	"errors"
	"image/color"
	"strings"
	"time"
)

// Keys under which a board persists its state.
const (
	ThemeKey = "whiteboardTheme"
	DataKey  = "whiteboardData"
)

const (
	ToolPencil    Tool = "pencil"
	ToolEraser    Tool = "eraser"
	ToolRectangle Tool = "rectangle"
	ToolCircle    Tool = "circle"
	ToolLine      Tool = "line"

	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ErrNotFound is returned by a KeyValueStore when a key has never been set.
var ErrNotFound = errors.New("key not found")

type (
	Tool  string
	Theme string

	Point struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	// Style is applied at the start of each stroke.
	Style struct {
		Color     color.RGBA
		Thickness float64
	}

	// Snapshot is a PNG encoding of the full canvas at one point in time.
	// It is never mutated after creation.
	Snapshot struct {
		ID        string
		CreatedAt time.Time
		Data      []byte
	}

	KeyValueStore interface {
		Get(ctx context.Context, key string) (string, error)
		Set(ctx context.Context, key, value string) error
	}
)

// ParseTool reports whether name identifies one of the drawing tools.
func ParseTool(name string) (Tool, bool) {
	switch t := Tool(strings.ToLower(strings.TrimSpace(name))); t {
	case ToolPencil, ToolEraser, ToolRectangle, ToolCircle, ToolLine:
		return t, true
	}
	return "", false
}

// Shape reports whether the tool redraws a preview from the stroke anchor
// instead of accumulating segments.
func (t Tool) Shape() bool {
	switch t {
	case ToolRectangle, ToolCircle, ToolLine:
		return true
	}
	return false
}

// ParseTheme maps a persisted value to a theme. Only "dark" selects dark mode.
func ParseTheme(value string) Theme {
	if value == string(ThemeDark) {
		return ThemeDark
	}
	return ThemeLight
}

func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Background is the fill used when the canvas is initialized or cleared.
func (t Theme) Background() color.RGBA {
	if t == ThemeDark {
		return color.RGBA{A: 0xff}
	}
	return color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
}

func (s Snapshot) Empty() bool {
	return len(s.Data) == 0
}
