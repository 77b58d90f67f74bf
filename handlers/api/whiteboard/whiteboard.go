package whiteboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"whiteboard-server/board"
	"whiteboard-server/core"
	"whiteboard-server/drawing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type (
	PointerRequest struct {
		Type string  `json:"type"`
		X    float64 `json:"x"`
		Y    float64 `json:"y"`
	}

	ActionRequest struct {
		Value string `json:"value"`
	}

	ViewportRequest struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}

	FrameResponse struct {
		State   board.State `json:"state"`
		DataURL string      `json:"dataUrl"`
	}

	// Board is the part of the whiteboard session the HTTP API drives.
	Board interface {
		State() board.State
		Frame() (core.Snapshot, error)
		View() *image.RGBA
		Dispatch(ctx context.Context, cmd board.Command) (board.Result, error)
		Save(ctx context.Context) (board.Export, error)
		PointerDown(ctx context.Context, p core.Point) bool
		PointerMove(p core.Point) bool
		PointerUp(ctx context.Context) bool
		PointerLeave(ctx context.Context) bool
		Resize(containerWidth, containerHeight int)
	}

	// Notifier is told about every change made through the API so that other
	// viewers can refresh.
	Notifier interface {
		FrameChanged()
	}
)

// HandleGetState returns the toolbar, style and history position.
func HandleGetState(b Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, b.State())
	}
}

// HandleGetFrame returns the canvas as a PNG. With ?flatten=true the canvas
// is composited over the theme background first.
func HandleGetFrame(b Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")

		if r.URL.Query().Get("flatten") == "true" {
			if err := png.Encode(w, b.View()); err != nil {
				logrus.WithField("error", err).Error("Failed to encode view")
			}
			return
		}

		frame, err := b.Frame()
		if err != nil {
			logrus.WithField("error", err).Error("Failed to capture frame")
			http.Error(w, "Failed to capture frame", http.StatusInternalServerError)
			return
		}
		w.Write(frame.Data)
	}
}

// HandlePointer feeds a pointer event to the board.
func HandlePointer(b Board, n Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PointerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logrus.WithField("error", err).Error("Failed to decode request")
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		p := core.Point{X: req.X, Y: req.Y}
		var changed bool
		switch req.Type {
		case "down":
			changed = b.PointerDown(r.Context(), p)
		case "move":
			changed = b.PointerMove(p)
		case "up":
			changed = b.PointerUp(r.Context())
		case "leave":
			changed = b.PointerLeave(r.Context())
		default:
			http.Error(w, fmt.Sprintf("Unknown pointer event %q", req.Type), http.StatusBadRequest)
			return
		}

		if changed {
			notify(n)
		}
		respondWithFrame(w, r, b)
	}
}

// HandleAction runs a toolbar action. save answers with the PNG attachment,
// every other action with the new state and frame.
func HandleAction(b Board, n Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action := chi.URLParam(r, "action")

		var req ActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			logrus.WithField("error", err).Error("Failed to decode request")
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		res, err := b.Dispatch(r.Context(), board.Command{Action: action, Value: req.Value})
		if err != nil {
			if errors.Is(err, board.ErrInvalidValue) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, map[string]string{"error": err.Error()})
				return
			}
			logrus.WithFields(logrus.Fields{
				"action": action,
				"error":  err,
			}).Error("Failed to run action")
			http.Error(w, "Failed to run action", http.StatusInternalServerError)
			return
		}

		if res.Download != nil {
			writeAttachment(w, *res.Download)
			return
		}

		notify(n)
		respondWithFrame(w, r, b)
	}
}

// HandleViewport resizes the canvas to fit a container of the given size.
func HandleViewport(b Board, n Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ViewportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logrus.WithField("error", err).Error("Failed to decode request")
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Width <= 0 || req.Height <= 0 {
			http.Error(w, "Viewport width and height must be positive", http.StatusBadRequest)
			return
		}

		b.Resize(req.Width, req.Height)
		notify(n)
		respondWithFrame(w, r, b)
	}
}

// HandleExport downloads the canvas as whiteboard.png.
func HandleExport(b Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		export, err := b.Save(r.Context())
		if err != nil {
			logrus.WithField("error", err).Error("Failed to export board")
			http.Error(w, "Failed to export board", http.StatusInternalServerError)
			return
		}
		writeAttachment(w, export)
	}
}

func writeAttachment(w http.ResponseWriter, export board.Export) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.Write(export.Data)
}

func respondWithFrame(w http.ResponseWriter, r *http.Request, b Board) {
	frame, err := b.Frame()
	if err != nil {
		logrus.WithField("error", err).Error("Failed to capture frame")
		http.Error(w, "Failed to capture frame", http.StatusInternalServerError)
		return
	}
	render.JSON(w, r, FrameResponse{
		State:   b.State(),
		DataURL: drawing.DataURL(frame),
	})
}

func notify(n Notifier) {
	if n != nil {
		n.FrameChanged()
	}
}
