package snapshots

import (
	"net/http"
	"time"
	"whiteboard-server/core"
	"whiteboard-server/drawing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// ThumbnailWidth bounds the width of the previews in a snapshot listing.
const ThumbnailWidth = 160

type (
	SnapshotInfo struct {
		ID        string    `json:"id"`
		Index     int       `json:"index"`
		CreatedAt time.Time `json:"created_at"`
		Current   bool      `json:"current"`
		Thumbnail string    `json:"thumbnail"`
	}

	History interface {
		History() ([]core.Snapshot, int)
		Snapshot(id string) (core.Snapshot, bool)
	}
)

// HandleListSnapshots lists the undo history of the board, oldest first
func HandleListSnapshots(h History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, current := h.History()

		infos := make([]SnapshotInfo, 0, len(entries))
		for i, s := range entries {
			info := SnapshotInfo{
				ID:        s.ID,
				Index:     i,
				CreatedAt: s.CreatedAt,
				Current:   i == current,
			}
			thumb, err := drawing.Thumbnail(s, ThumbnailWidth)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"snapshot_id": s.ID,
					"error":       err,
				}).Warn("Failed to build thumbnail")
			} else {
				info.Thumbnail = drawing.DataURL(thumb)
			}
			infos = append(infos, info)
		}

		render.JSON(w, r, infos)
	}
}

// HandleGetSnapshot returns the PNG of one history entry
func HandleGetSnapshot(h History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshotID := chi.URLParam(r, "snapshotId")

		s, ok := h.Snapshot(snapshotID)
		if !ok {
			logrus.WithField("snapshot_id", snapshotID).Warn("Snapshot not found")
			http.Error(w, "Snapshot not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Write(s.Data)
	}
}
