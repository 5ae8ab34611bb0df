// Package noop is a core.Interpreter whose steps return nothing.
package noop

import (
	"context"
	"log/slog"

	"github.com/diffindiffs/didbase/core"
)

// Interpreter is a core.Interpreter which returns no fields.  Useful
// for dry runs of procedure files.
type Interpreter struct {
	// Silent, if true, will suppress warning log messages.
	Silent bool
}

func (i *Interpreter) Compile(ctx context.Context, code interface{}) (interface{}, error) {
	if !i.Silent {
		slog.Warn("using noop interpreter for compilation")
	}
	return nil, nil
}

func (i *Interpreter) Exec(ctx context.Context, names []string, args []interface{}, code interface{}, compiled interface{}) (core.Args, error) {
	if !i.Silent {
		slog.Warn("using noop interpreter for execution", "args", len(args))
	}
	return core.NewArgs(), nil
}

func NewInterpreter() *Interpreter {
	return &Interpreter{}
}
