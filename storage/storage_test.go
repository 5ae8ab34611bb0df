package storage

import (
	"context"
	"testing"

	"github.com/diffindiffs/didbase/core"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func TestAsResults(t *testing.T) {
	p := core.NewProcedure("p")
	specs := []*core.Specification{
		core.NewSpecification("a", p, nil),
		core.NewSpecification("b", p, nil),
	}

	got := AsResults(specs, []interface{}{1, "two"})
	want := []*Result{
		{Id: "000000", Name: "a", Procedure: "p", Value: 1},
		{Id: "000001", Name: "b", Procedure: "p", Value: "two"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatal(diff)
	}

	if ResultId(10) <= ResultId(9) {
		t.Fatal("ids don't sort")
	}
}

func TestNewRunId(t *testing.T) {
	if _, err := uuid.Parse(NewRunId()); err != nil {
		t.Fatal(err)
	}
}

func TestNoop(t *testing.T) {
	var s Storage = &NoopStorage{}
	ctx := context.Background()
	if err := s.WriteResults(ctx, "r", []*Result{{Id: "a"}}); err != nil {
		t.Fatal(err)
	}
	rs, err := s.GetRun(ctx, "r")
	if err != nil || rs != nil {
		t.Fatal(rs, err)
	}
}
