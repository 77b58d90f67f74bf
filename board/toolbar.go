package board

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
	"whiteboard-server/core"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidValue is returned when a control value cannot be interpreted.
var ErrInvalidValue = errors.New("invalid value")

const (
	defaultColor     = "#e74c3c"
	defaultThickness = 5
)

// toolbar mirrors the selection state of the toolbar controls. At most one
// swatch is highlighted; picking a free-form color clears the highlight.
type toolbar struct {
	tool   core.Tool
	swatch string
	picker string
}

func newToolbar() toolbar {
	return toolbar{
		tool:   core.ToolPencil,
		swatch: defaultColor,
		picker: defaultColor,
	}
}

// parseColor accepts #rgb and #rrggbb values and returns the color together
// with its canonical lowercase hex form.
func parseColor(value string) (color.RGBA, string, error) {
	v := strings.TrimSpace(value)
	if len(v) != 4 && len(v) != 7 {
		return color.RGBA{}, "", fmt.Errorf("%w: color %q", ErrInvalidValue, value)
	}
	c, err := colorful.Hex(v)
	if err != nil {
		return color.RGBA{}, "", fmt.Errorf("%w: color %q", ErrInvalidValue, value)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, c.Hex(), nil
}

func parseThickness(value string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: thickness %q", ErrInvalidValue, value)
	}
	return v, nil
}

func colorHex(c color.RGBA) string {
	cc, _ := colorful.MakeColor(c)
	return cc.Hex()
}
