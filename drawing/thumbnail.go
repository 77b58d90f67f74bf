package drawing

import (
	"image"
	"whiteboard-server/core"

	xdraw "golang.org/x/image/draw"
)

// Thumbnail scales a snapshot down to at most maxWidth pixels wide, keeping
// its aspect ratio. Snapshots already narrow enough are returned as they are.
func Thumbnail(s core.Snapshot, maxWidth int) (core.Snapshot, error) {
	img, err := DecodeSnapshot(s)
	if err != nil {
		return core.Snapshot{}, err
	}
	b := img.Bounds()
	if maxWidth < 1 || b.Dx() <= maxWidth {
		return s, nil
	}

	h := max(b.Dy()*maxWidth/b.Dx(), 1)
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)

	thumb, err := EncodeSnapshot(dst)
	if err != nil {
		return core.Snapshot{}, err
	}
	thumb.ID = s.ID
	thumb.CreatedAt = s.CreatedAt
	return thumb, nil
}
