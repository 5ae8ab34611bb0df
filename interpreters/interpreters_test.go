package interpreters

import (
	"context"
	"testing"

	"github.com/diffindiffs/didbase/core"
)

func TestStandard(t *testing.T) {
	is := Standard()
	for _, name := range []string{"goja", "ecmascript", "noop"} {
		if _, have := is[name]; !have {
			t.Fatalf("no %s", name)
		}
	}

	src := &core.StepSource{
		Name:        "double",
		Interpreter: "ecmascript",
		Source:      "return {y: 2 * _.args.x};",
		Required:    []string{"x"},
	}
	s, err := src.Compile(context.Background(), is)
	if err != nil {
		t.Fatal(err)
	}
	as, err := s.Call(context.Background(), core.Args{"x": 21}, false)
	if err != nil {
		t.Fatal(err)
	}
	if as["y"] != int64(42) {
		t.Fatalf("%#v", as["y"])
	}
}
