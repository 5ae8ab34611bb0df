package noop

import (
	"context"
	"testing"

	"github.com/diffindiffs/didbase/core"
)

func TestNoop(t *testing.T) {
	ctx := context.Background()
	i := NewInterpreter()
	i.Silent = true

	src := &core.StepSource{
		Name:        "nothing",
		Interpreter: "noop",
		Source:      "ignored",
		Required:    []string{"x"},
	}
	s, err := src.Compile(ctx, map[string]core.Interpreter{"noop": i})
	if err != nil {
		t.Fatal(err)
	}
	as, err := s.Call(ctx, core.Args{"x": 1}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(as) != 1 {
		t.Fatal(as)
	}
}
