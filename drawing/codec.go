package drawing

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"
	"whiteboard-server/core"

	"github.com/oklog/ulid/v2"
)

const dataURLPrefix = "data:image/png;base64,"

var ErrNotDataURL = errors.New("not a png data url")

// EncodeSnapshot captures img as a new PNG snapshot.
func EncodeSnapshot(img image.Image) (core.Snapshot, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return core.Snapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}
	return core.Snapshot{
		ID:        ulid.Make().String(),
		CreatedAt: time.Now(),
		Data:      buf.Bytes(),
	}, nil
}

func DecodeSnapshot(s core.Snapshot) (image.Image, error) {
	if s.Empty() {
		return nil, fmt.Errorf("decode snapshot %s: empty raster", s.ID)
	}
	img, err := png.Decode(bytes.NewReader(s.Data))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", s.ID, err)
	}
	return img, nil
}

// DataURL is the serialized form a snapshot is persisted and sent to the UI in.
func DataURL(s core.Snapshot) string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(s.Data)
}

// ParseDataURL turns a persisted data URL back into a snapshot. The payload
// is only checked to be base64; DecodeSnapshot validates the PNG itself.
func ParseDataURL(value string) (core.Snapshot, error) {
	if !strings.HasPrefix(value, dataURLPrefix) {
		return core.Snapshot{}, ErrNotDataURL
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, dataURLPrefix))
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("%w: %v", ErrNotDataURL, err)
	}
	if len(data) == 0 {
		return core.Snapshot{}, fmt.Errorf("%w: empty payload", ErrNotDataURL)
	}
	return core.Snapshot{
		ID:        ulid.Make().String(),
		CreatedAt: time.Now(),
		Data:      data,
	}, nil
}
