package board

import (
	"context"

	"github.com/sirupsen/logrus"
)

type (
	// Command is a toolbar action as sent by the UI.
	Command struct {
		Action string `json:"action"`
		Value  string `json:"value"`
	}

	// Result carries what an action produces besides the board change
	// itself. Download is set by save.
	Result struct {
		Download *Export
	}

	commandFunc func(b *Board, ctx context.Context, value string) (Result, error)
)

var commands = map[string]commandFunc{
	"tool": func(b *Board, ctx context.Context, value string) (Result, error) {
		b.SetTool(ctx, value)
		return Result{}, nil
	},
	"color": func(b *Board, ctx context.Context, value string) (Result, error) {
		return Result{}, b.SetColor(ctx, value)
	},
	"color-picker": func(b *Board, ctx context.Context, value string) (Result, error) {
		return Result{}, b.PickColor(ctx, value)
	},
	"thickness": func(b *Board, ctx context.Context, value string) (Result, error) {
		return Result{}, b.SetThickness(ctx, value)
	},
	"clear": func(b *Board, ctx context.Context, _ string) (Result, error) {
		b.Clear(ctx)
		return Result{}, nil
	},
	"save": func(b *Board, ctx context.Context, _ string) (Result, error) {
		export, err := b.Save(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{Download: &export}, nil
	},
	"undo": func(b *Board, ctx context.Context, _ string) (Result, error) {
		b.Undo(ctx)
		return Result{}, nil
	},
	"redo": func(b *Board, ctx context.Context, _ string) (Result, error) {
		b.Redo(ctx)
		return Result{}, nil
	},
	"theme-toggle": func(b *Board, ctx context.Context, _ string) (Result, error) {
		b.ToggleTheme(ctx)
		return Result{}, nil
	},
}

// Dispatch runs the handler registered for cmd.Action. Unknown actions do
// nothing.
func (b *Board) Dispatch(ctx context.Context, cmd Command) (Result, error) {
	fn, ok := commands[cmd.Action]
	if !ok {
		logrus.WithField("action", cmd.Action).Debug("Ignoring unknown action")
		return Result{}, nil
	}
	return fn(b, ctx, cmd.Value)
}

// Actions lists the action identifiers Dispatch understands.
func Actions() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	return names
}
