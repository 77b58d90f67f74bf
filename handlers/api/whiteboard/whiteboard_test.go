package whiteboard

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"whiteboard-server/board"
	"whiteboard-server/drawing"
	"whiteboard-server/stores/memory"

	"github.com/go-chi/chi/v5"
)

// Mock notifier for testing
type mockNotifier struct {
	mu    sync.Mutex
	calls int
}

func (m *mockNotifier) FrameChanged() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
}

func newTestBoard(t *testing.T) *board.Board {
	t.Helper()
	return board.Open(context.Background(), memory.NewStore(), board.Config{Width: 140, Height: 140})
}

func withAction(req *http.Request, action string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("action", action)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeFrame(t *testing.T, rec *httptest.ResponseRecorder) FrameResponse {
	t.Helper()
	var resp FrameResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

func sendPointer(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/board/pointer", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandleGetState(t *testing.T) {
	b := newTestBoard(t)
	handler := HandleGetState(b)

	req := httptest.NewRequest(http.MethodGet, "/api/board", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	var state board.State
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if state.Tool != "pencil" || state.Width != 100 || state.Length != 1 {
		t.Errorf("unexpected state %+v", state)
	}
}

func TestHandleGetFrame(t *testing.T) {
	b := newTestBoard(t)
	handler := HandleGetFrame(b)

	for _, target := range []string{"/api/board/frame", "/api/board/frame?flatten=true"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		handler(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status code %d", target, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("%s: Content-Type = %q", target, ct)
		}
		img, err := png.Decode(rec.Body)
		if err != nil {
			t.Fatalf("%s: body is not a png: %v", target, err)
		}
		if img.Bounds().Dx() != 100 {
			t.Errorf("%s: width = %d, want 100", target, img.Bounds().Dx())
		}
	}
}

func TestHandlePointer_StrokeFlow(t *testing.T) {
	b := newTestBoard(t)
	n := &mockNotifier{}
	handler := HandlePointer(b, n)

	rec := sendPointer(t, handler, `{"type":"down","x":10,"y":10}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("down: status code %d", rec.Code)
	}
	if resp := decodeFrame(t, rec); !resp.State.Drawing {
		t.Error("down should open a stroke")
	}

	sendPointer(t, handler, `{"type":"move","x":50,"y":50}`)

	rec = sendPointer(t, handler, `{"type":"up"}`)
	resp := decodeFrame(t, rec)
	if resp.State.Drawing || resp.State.Length != 2 {
		t.Errorf("after up state = %+v, want closed stroke and length 2", resp.State)
	}
	if !strings.HasPrefix(resp.DataURL, "data:image/png;base64,") {
		t.Errorf("frame data url = %.30q", resp.DataURL)
	}
	if _, err := drawing.ParseDataURL(resp.DataURL); err != nil {
		t.Errorf("frame data url does not parse: %v", err)
	}

	if n.calls != 3 {
		t.Errorf("notifier calls = %d, want 3", n.calls)
	}
}

func TestHandlePointer_StrayEventsDoNotNotify(t *testing.T) {
	b := newTestBoard(t)
	n := &mockNotifier{}
	handler := HandlePointer(b, n)

	for _, body := range []string{`{"type":"move","x":5,"y":5}`, `{"type":"leave"}`} {
		if rec := sendPointer(t, handler, body); rec.Code != http.StatusOK {
			t.Errorf("%s: status code %d", body, rec.Code)
		}
	}
	if n.calls != 0 {
		t.Errorf("notifier called %d times for stray events", n.calls)
	}
}

func TestHandlePointer_BadRequests(t *testing.T) {
	handler := HandlePointer(newTestBoard(t), nil)

	for _, body := range []string{`{"type":"hover"}`, `not json`} {
		if rec := sendPointer(t, handler, body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status code %d, want %d", body, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestHandleAction_Thickness(t *testing.T) {
	b := newTestBoard(t)
	n := &mockNotifier{}
	handler := HandleAction(b, n)

	req := withAction(httptest.NewRequest(http.MethodPost, "/api/board/actions/thickness", strings.NewReader(`{"value":"9"}`)), "thickness")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	if resp := decodeFrame(t, rec); resp.State.Thickness != 9 {
		t.Errorf("thickness = %v, want 9", resp.State.Thickness)
	}
	if n.calls != 1 {
		t.Errorf("notifier calls = %d, want 1", n.calls)
	}
}

func TestHandleAction_InvalidValue(t *testing.T) {
	handler := HandleAction(newTestBoard(t), nil)

	req := withAction(httptest.NewRequest(http.MethodPost, "/api/board/actions/color", strings.NewReader(`{"value":"blurple"}`)), "color")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleAction_EmptyBody(t *testing.T) {
	b := newTestBoard(t)
	handler := HandleAction(b, nil)

	req := withAction(httptest.NewRequest(http.MethodPost, "/api/board/actions/clear", nil), "clear")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	if resp := decodeFrame(t, rec); resp.State.Length != 2 {
		t.Errorf("clear should add an entry, length = %d", resp.State.Length)
	}
}

func TestHandleAction_Save(t *testing.T) {
	b := newTestBoard(t)
	handler := HandleAction(b, nil)

	req := withAction(httptest.NewRequest(http.MethodPost, "/api/board/actions/save", nil), "save")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assertAttachment(t, rec, b)
}

func TestHandleAction_Unknown(t *testing.T) {
	handler := HandleAction(newTestBoard(t), nil)

	req := withAction(httptest.NewRequest(http.MethodPost, "/api/board/actions/fill", nil), "fill")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHandleViewport(t *testing.T) {
	b := newTestBoard(t)
	handler := HandleViewport(b, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/board/viewport", strings.NewReader(`{"width":340,"height":240}`))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	resp := decodeFrame(t, rec)
	if resp.State.Width != 300 || resp.State.Height != 200 {
		t.Errorf("canvas = %dx%d, want 300x200", resp.State.Width, resp.State.Height)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/board/viewport", strings.NewReader(`{"width":0,"height":240}`))
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero width: status code %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleExport(t *testing.T) {
	b := newTestBoard(t)
	handler := HandleExport(b)

	req := httptest.NewRequest(http.MethodGet, "/api/board/export", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assertAttachment(t, rec, b)
}

func assertAttachment(t *testing.T, rec *httptest.ResponseRecorder, b *board.Board) {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	want := `attachment; filename="whiteboard.png"`
	if cd := rec.Header().Get("Content-Disposition"); cd != want {
		t.Errorf("Content-Disposition = %q, want %q", cd, want)
	}
	frame, err := b.Frame()
	if err != nil {
		t.Fatalf("Frame() failed: %v", err)
	}
	if !bytes.Equal(rec.Body.Bytes(), frame.Data) {
		t.Error("exported bytes differ from the current raster")
	}
}
