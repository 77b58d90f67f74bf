package drawing

import (
	"image"
	"image/color"
	"math"
	"whiteboard-server/core"

	"github.com/fogleman/gg"
)

// erase clears the segment from the stroke's last point to p through to
// transparency (destination-out): each covered pixel keeps 1-coverage of
// its previous value.
func (e *Engine) erase(s *stroke, p core.Point) {
	pad := s.style.Thickness/2 + 2
	area := image.Rect(
		int(math.Floor(math.Min(s.last.X, p.X)-pad)),
		int(math.Floor(math.Min(s.last.Y, p.Y)-pad)),
		int(math.Ceil(math.Max(s.last.X, p.X)+pad)),
		int(math.Ceil(math.Max(s.last.Y, p.Y)+pad)),
	).Intersect(e.surface.Bounds())
	if area.Empty() {
		return
	}

	// The mask only covers the segment's bounding box.
	mask := gg.NewContext(area.Dx(), area.Dy())
	mask.Translate(-float64(area.Min.X), -float64(area.Min.Y))
	applyStyle(mask, s.style)
	mask.SetColor(color.Black)
	mask.DrawLine(s.last.X, s.last.Y, p.X, p.Y)
	mask.Stroke()

	alpha := mask.AsMask()
	alpha.Rect = alpha.Rect.Add(area.Min)
	clearThrough(e.surface, alpha, area)
}

func clearThrough(dst *image.RGBA, mask *image.Alpha, area image.Rectangle) {
	area = area.Intersect(dst.Bounds()).Intersect(mask.Bounds())
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			m := uint32(mask.AlphaAt(x, y).A)
			if m == 0 {
				continue
			}
			keep := 0xff - m
			i := dst.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				dst.Pix[i+c] = uint8(uint32(dst.Pix[i+c]) * keep / 0xff)
			}
		}
	}
}
