package tools

import (
	"context"
	"testing"

	"github.com/diffindiffs/didbase/core"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func nothing(ctx context.Context, args []interface{}) (core.Args, error) {
	return nil, nil
}

func procedure(name string, steps ...string) *core.Procedure {
	acc := make([]*core.Step, len(steps))
	for i, s := range steps {
		acc[i] = core.NewStep(s, nothing, core.ByValue)
	}
	return core.NewProcedure(name, acc...)
}

func TestAnalysis(t *testing.T) {
	a, err := AnalyzeProcedures(procedure("p1", "A", "B", "C"), procedure("p2", "A", "B", "D"))
	if err != nil {
		t.Fatal(err)
	}

	want := &PoolAnalysis{
		Procedures:   2,
		Steps:        6,
		SharedSteps:  4,
		Saved:        2,
		Pooled:       []string{"A", "B"},
		Interpreters: []string{"native"},
	}
	if diff := cmp.Diff(want, a, cmpopts.IgnoreUnexported(PoolAnalysis{})); diff != "" {
		t.Fatal(diff)
	}
	if a.PooledProcedure().Len() != 4 {
		t.Fatal(a.PooledProcedure())
	}
}

func TestAnalysisSplit(t *testing.T) {
	a, err := AnalyzeProcedures(procedure("p1", "A", "B", "C"), procedure("p3", "B", "A"))
	if err != nil {
		t.Fatal(err)
	}
	if a.SharedSteps != 5 || a.Saved != 0 {
		t.Fatalf("shared %d saved %d", a.SharedSteps, a.Saved)
	}
	if diff := cmp.Diff([]string{"A", "B"}, a.Split); diff != "" {
		t.Fatal(diff)
	}
	if len(a.Pooled) != 0 {
		t.Fatal(a.Pooled)
	}
}

func TestAnalysisRepeated(t *testing.T) {
	a, err := AnalyzeProcedures(procedure("p", "A", "B", "A"))
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Split) != 0 || a.Saved != 0 {
		t.Fatalf("split %v saved %d", a.Split, a.Saved)
	}
}

func TestAnalysisInterpreters(t *testing.T) {
	js := &core.Step{
		Name:    "js",
		F:       nothing,
		FuncID:  "goja:0123",
		Sharing: core.ByIdentity,
	}
	a, err := AnalyzeProcedures(core.NewProcedure("p", js))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"goja"}, a.Interpreters); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]string{"js"}, a.ByIdentity); diff != "" {
		t.Fatal(diff)
	}

	if _, err = Analyze(nil); err == nil {
		t.Fatal("expected an error")
	}
	if _, err = AnalyzeProcedures(); err != core.ErrNoProcedures {
		t.Fatalf("unexpected error %v", err)
	}
}
