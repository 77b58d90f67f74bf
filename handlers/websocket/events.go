package websocket

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"whiteboard-server/board"
	"whiteboard-server/core"
	"whiteboard-server/drawing"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/engine.io/v2/utils"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

// boardRoom is joined by every connected client.
const boardRoom socketio.Room = "board"

type (
	ackInvoker func(payload map[string]any)

	// Board is the part of the whiteboard session driven over socket.io.
	Board interface {
		State() board.State
		Frame() (core.Snapshot, error)
		Dispatch(ctx context.Context, cmd board.Command) (board.Result, error)
		PointerDown(ctx context.Context, p core.Point) bool
		PointerMove(p core.Point) bool
		PointerUp(ctx context.Context) bool
		PointerLeave(ctx context.Context) bool
		Resize(containerWidth, containerHeight int)
	}

	// peer is the connected client an event came from.
	peer interface {
		ID() string
		Emit(event string, payload any)
		// EmitOthers sends a volatile packet to the rest of the room.
		EmitOthers(event string, payload any)
	}

	// Hub relays UI events to the board and pushes the resulting frames to
	// every connected client.
	Hub struct {
		srv       *socketio.Server
		board     Board
		broadcast func(event string, payload any)
	}

	socketPeer struct {
		socket *socketio.Socket
	}
)

func (p socketPeer) ID() string {
	return fmt.Sprint(p.socket.Id())
}

func (p socketPeer) Emit(event string, payload any) {
	_ = p.socket.Emit(event, payload)
}

func (p socketPeer) EmitOthers(event string, payload any) {
	_ = p.socket.Volatile().Broadcast().To(boardRoom).Emit(event, payload)
}

func SetupSocketIO(b Board) *Hub {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(5000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	localhostOrigin := regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1|\[::1\])(:\d+)?$`)
	opts.SetCors(&types.Cors{
		Origin: []any{
			localhostOrigin,
		},
		Credentials: true,
	})

	h := &Hub{
		srv:   socketio.NewServer(nil, opts),
		board: b,
	}
	h.broadcast = func(event string, payload any) {
		if err := h.srv.To(boardRoom).Emit(event, payload); err != nil {
			logrus.WithField("error", err).Warn("Failed to broadcast frame")
		}
	}

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	h.srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}
		p := socketPeer{socket: socket}

		socket.Join(boardRoom)
		utils.Log().Printf("Socket %v has joined %v\n", socket.Id(), boardRoom)
		if payload, err := h.framePayload(); err == nil {
			p.Emit("frame", payload)
		}

		for _, event := range []string{"pointer-down", "pointer-move", "pointer-up", "pointer-leave"} {
			//nolint:errcheck // Socket.IO event handlers do not return useful errors
			socket.On(event, func(datas ...any) {
				h.handlePointer(p, event, datas)
			})
		}

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("action", func(datas ...any) {
			h.handleAction(p, datas)
		})

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On("resize", func(datas ...any) {
			h.handleResize(p, datas)
		})

		socket.On("disconnect", func(datas ...any) {
			utils.Log().Printf("Socket %v disconnected\n", socket.Id())
			socket.RemoveAllListeners("")
			socket.Disconnect(true)
		})
	})

	return h
}

func (h *Hub) Server() *socketio.Server {
	return h.srv
}

// FrameChanged pushes the current frame to every connected client.
func (h *Hub) FrameChanged() {
	payload, err := h.framePayload()
	if err != nil {
		logrus.WithField("error", err).Error("Failed to capture frame")
		return
	}
	h.broadcast("frame", payload)
}

func (h *Hub) handlePointer(p peer, event string, datas []any) {
	ack, args := extractAck(datas)
	ctx := context.Background()

	var changed bool
	switch event {
	case "pointer-down", "pointer-move":
		pt, err := parsePoint(args)
		if err != nil {
			reply(p, ack, event, err)
			return
		}
		if event == "pointer-down" {
			changed = h.board.PointerDown(ctx, pt)
		} else {
			changed = h.board.PointerMove(pt)
		}
	case "pointer-up":
		changed = h.board.PointerUp(ctx)
	case "pointer-leave":
		changed = h.board.PointerLeave(ctx)
	}

	if changed {
		if event == "pointer-move" {
			h.emitVolatile(p)
		} else {
			h.FrameChanged()
		}
	}
	reply(p, ack, event, nil)
}

func (h *Hub) handleAction(p peer, datas []any) {
	ack, args := extractAck(datas)

	cmd, err := parseCommand(args)
	if err != nil {
		reply(p, ack, "action", err)
		return
	}

	res, err := h.board.Dispatch(context.Background(), cmd)
	if err != nil {
		reply(p, ack, "action", err)
		return
	}

	if res.Download != nil {
		utils.Log().Printf("Socket %v downloads %v\n", p.ID(), res.Download.Filename)
		p.Emit("download", map[string]any{
			"filename": res.Download.Filename,
			"dataUrl":  drawing.DataURL(core.Snapshot{Data: res.Download.Data}),
		})
	} else {
		h.FrameChanged()
	}
	reply(p, ack, "action", nil)
}

func (h *Hub) handleResize(p peer, datas []any) {
	ack, args := extractAck(datas)

	width, height, err := parseViewport(args)
	if err != nil {
		reply(p, ack, "resize", err)
		return
	}

	h.board.Resize(width, height)
	h.FrameChanged()
	reply(p, ack, "resize", nil)
}

// emitVolatile sends the frame to the sender reliably and to everyone else
// as a volatile packet that may be dropped under load.
func (h *Hub) emitVolatile(p peer) {
	payload, err := h.framePayload()
	if err != nil {
		logrus.WithField("error", err).Error("Failed to capture frame")
		return
	}
	p.Emit("frame", payload)
	p.EmitOthers("frame", payload)
}

func (h *Hub) framePayload() (map[string]any, error) {
	frame, err := h.board.Frame()
	if err != nil {
		return nil, err
	}
	state := h.board.State()
	return map[string]any{
		"dataUrl": drawing.DataURL(frame),
		"index":   state.Index,
		"length":  state.Length,
		"theme":   string(state.Theme),
		"width":   state.Width,
		"height":  state.Height,
	}, nil
}

func parsePoint(args []any) (core.Point, error) {
	fields, err := firstObject(args)
	if err != nil {
		return core.Point{}, err
	}
	x, okX := toFloat(fields["x"])
	y, okY := toFloat(fields["y"])
	if !okX || !okY {
		return core.Point{}, fmt.Errorf("point requires numeric x and y")
	}
	return core.Point{X: x, Y: y}, nil
}

func parseCommand(args []any) (board.Command, error) {
	fields, err := firstObject(args)
	if err != nil {
		return board.Command{}, err
	}
	action, _ := fields["action"].(string)
	if action == "" {
		return board.Command{}, fmt.Errorf("action is required")
	}

	var value string
	switch v := fields["value"].(type) {
	case nil:
	case string:
		value = v
	case float64:
		value = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		value = fmt.Sprint(v)
	}
	return board.Command{Action: action, Value: value}, nil
}

func parseViewport(args []any) (int, int, error) {
	fields, err := firstObject(args)
	if err != nil {
		return 0, 0, err
	}
	width, okW := toFloat(fields["width"])
	height, okH := toFloat(fields["height"])
	if !okW || !okH || width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("viewport requires positive width and height")
	}
	return int(width), int(height), nil
}

func firstObject(args []any) (map[string]any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("payload is required")
	}
	fields, ok := args[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("payload must be an object")
	}
	return fields, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func extractAck(datas []any) (ack ackInvoker, args []any) {
	if len(datas) == 0 {
		return nil, datas
	}

	ack = wrapAck(datas[len(datas)-1])
	if ack == nil {
		return nil, datas
	}

	return ack, datas[:len(datas)-1]
}

// wrapAck adapts a client callback to an ackInvoker. Callbacks that take
// more than the payload get zero values for the other parameters.
func wrapAck(candidate any) ackInvoker {
	switch fn := candidate.(type) {
	case nil:
		return nil
	case func(map[string]any):
		return fn
	case func(...any):
		return func(payload map[string]any) { fn(payload) }
	case func([]any, error):
		return func(payload map[string]any) { fn([]any{payload}, nil) }
	}

	value := reflect.ValueOf(candidate)
	if value.Kind() != reflect.Func || value.Type().IsVariadic() {
		return nil
	}

	typ := value.Type()
	return func(payload map[string]any) {
		pv := reflect.ValueOf(payload)
		args := make([]reflect.Value, typ.NumIn())
		for i := range args {
			if in := typ.In(i); pv.Type().AssignableTo(in) {
				args[i] = pv
			} else {
				args[i] = reflect.Zero(in)
			}
		}
		value.Call(args)
	}
}

// reply acknowledges event to its sender, through the client's callback
// when there is one and as an "<event>-ack" message.
func reply(p peer, ack ackInvoker, event string, err error) {
	payload := map[string]any{"status": "ok"}
	if err != nil {
		payload["status"] = "error"
		payload["error"] = err.Error()
		logrus.WithFields(logrus.Fields{
			"socket": p.ID(),
			"event":  event,
			"error":  err,
		}).Debug("Rejected socket event")
	}

	if ack != nil {
		ack(payload)
	}
	p.Emit(event+"-ack", payload)
}
