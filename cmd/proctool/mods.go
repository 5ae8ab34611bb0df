package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jsccast/yaml"

	"github.com/diffindiffs/didbase/core"
	"github.com/diffindiffs/didbase/did"
	"github.com/diffindiffs/didbase/interpreters/noop"
	"github.com/diffindiffs/didbase/tools"
)

var Mods = map[string]Mod{
	"analyze": &Analyzer{},
	"graph":   &Grapher{},
	"html":    &HTMLer{},
}

var ErrNoProcedures = errors.New("no procedures")

// Mod is a subcommand that looks at Procedures.
type Mod interface {
	F(procs []*core.Procedure, out io.Writer) error
	Doc() string
	Flags() *flag.FlagSet
}

// loadProcedures compiles the named ProcedureSource files without
// evaluating their code.  With no filenames, the built-in Procedures
// are returned in name order.
func loadProcedures(filenames []string) ([]*core.Procedure, error) {
	if len(filenames) == 0 {
		m := did.Procedures()
		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		sort.Strings(names)
		procs := make([]*core.Procedure, 0, len(names))
		for _, name := range names {
			procs = append(procs, m[name])
		}
		return procs, nil
	}

	i := noop.NewInterpreter()
	i.Silent = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	procs := make([]*core.Procedure, 0, len(filenames))
	for _, filename := range filenames {
		ps, err := tools.ReadProcedureSource(filename)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		interpreters := make(map[string]core.Interpreter)
		for _, s := range ps.Steps {
			interpreters[s.Interpreter] = i
		}
		p, err := ps.Compile(ctx, interpreters)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		procs = append(procs, p)
	}
	return procs, nil
}

// Analyzer writes a YAML PoolAnalysis.
type Analyzer struct {
}

func (m *Analyzer) F(procs []*core.Procedure, out io.Writer) error {
	if len(procs) == 0 {
		return ErrNoProcedures
	}
	a, err := tools.AnalyzeProcedures(procs...)
	if err != nil {
		return err
	}
	bs, err := yaml.Marshal(&a)
	if err != nil {
		return err
	}
	_, err = out.Write(bs)
	return err
}

func (m *Analyzer) Doc() string {
	return "Summarize how the Procedures pool"
}

func (m *Analyzer) Flags() *flag.FlagSet {
	return flag.NewFlagSet("analyze", flag.ContinueOnError)
}

// Grapher writes the pooled plan as Mermaid, Graphviz dot, or PNG.
type Grapher struct {
	Format         string
	OutputFilename string
	Direction      string
}

func (m *Grapher) F(procs []*core.Procedure, out io.Writer) error {
	if len(procs) == 0 {
		return ErrNoProcedures
	}
	p, err := core.Pool(procs...)
	if err != nil {
		return err
	}

	switch m.Format {
	case "mermaid", "":
		return tools.Mermaid(p, out, &tools.MermaidOpts{
			ShowProcedures: true,
			PooledFill:     "#bcf2db",
			Direction:      m.Direction,
		})
	case "dot":
		return tools.Dot(p, out, -1)
	case "png":
		if m.OutputFilename == "" {
			return fmt.Errorf("png needs -o")
		}
		base := strings.TrimSuffix(m.OutputFilename, filepath.Ext(m.OutputFilename))
		name, err := tools.PNG(p, base, -1)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, name)
		return nil
	}
	return fmt.Errorf("unknown graph format '%s'", m.Format)
}

func (m *Grapher) Doc() string {
	return "Write the pooled plan as a graph"
}

func (m *Grapher) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("graph", flag.ContinueOnError)
	fs.StringVar(&m.Format, "f", "mermaid", `"mermaid", "dot", or "png"`)
	fs.StringVar(&m.OutputFilename, "o", "", "output filename for png")
	fs.StringVar(&m.Direction, "d", "", "Mermaid direction (TD or LR)")
	return fs
}

// HTMLer writes an HTML page for each Procedure.
type HTMLer struct {
	CSS   string
	Graph bool
}

func (m *HTMLer) F(procs []*core.Procedure, out io.Writer) error {
	if len(procs) == 0 {
		return ErrNoProcedures
	}
	var css []string
	if m.CSS != "" {
		css = strings.Split(m.CSS, ",")
	}
	for _, p := range procs {
		if err := tools.RenderProcedurePage(p, out, css, m.Graph); err != nil {
			return err
		}
	}
	return nil
}

func (m *HTMLer) Doc() string {
	return "Render Procedure documentation as HTML"
}

func (m *HTMLer) Flags() *flag.FlagSet {
	fs := flag.NewFlagSet("html", flag.ContinueOnError)
	fs.StringVar(&m.CSS, "css", "", "comma-separated CSS files")
	fs.BoolVar(&m.Graph, "graph", true, "include a Mermaid graph")
	return fs
}
