package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/diffindiffs/didbase/core"
	"github.com/diffindiffs/didbase/interpreters/noop"
	. "github.com/diffindiffs/didbase/util/testutil"
	"github.com/jsccast/yaml"

	md "github.com/russross/blackfriday/v2"
)

// RenderProcedureHTML writes an HTML fragment documenting the
// Procedure and its Steps.  Docs are Markdown.
func RenderProcedureHTML(p *core.Procedure, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	f(`<div class="procedureDoc doc">%s</div>`, md.Run([]byte(p.Doc)))

	f(`<div class="steps"><table>`)
	p.Each(func(i int, s *core.Step) bool {
		f(`<tr class="step"><td><span id="step%d" class="stepName">%s</span></td><td>`, i, s.Name)
		if s.Doc != "" {
			f(`<div class="stepDoc doc">%s</div>`, md.Run([]byte(s.Doc)))
		}
		f(`<table>`)
		f(`<tr><td>sharing</td><td><code>%s</code></td></tr>`, s.Sharing)
		if 0 < len(s.Required) {
			f(`<tr><td>required</td><td><code>%s</code></td></tr>`, JS(s.Required))
		}
		for _, d := range s.Defaults {
			f(`<tr><td>default</td><td><code>%s</code>: <code>%s</code></td></tr>`, d.Name, JS(d.Value))
		}
		if 0 < len(s.CopyArgs) {
			f(`<tr><td>copies</td><td><code>%s</code></td></tr>`, JS(s.CopyArgs))
		}
		if s.Combine != nil {
			f(`<tr><td>combines</td><td>yes</td></tr>`)
		}
		f(`</table>`)
		f(`</td></tr>`)
		return true
	})
	f(`</table></div>`)

	return nil
}

// RenderProcedurePage writes a complete HTML page for the Procedure.
//
// If includeGraph, the page includes the Mermaid rendering of the
// Procedure's plan.
func RenderProcedurePage(p *core.Procedure, out io.Writer, cssFiles []string, includeGraph bool) error {

	if cssFiles == nil {
		cssFiles = []string{"/static/proc-html.css"}
	}

	js, err := json.Marshal(p)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, p.Name)

	if includeGraph {
		fmt.Fprintf(out, `
  <script src="https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.min.js"></script>
  <script>
  var thisProcedure = %s;
  mermaid.initialize({startOnLoad: true});
  </script>
`, js)
	}

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, p.Name)

	if includeGraph {
		pooled, err := core.Pool(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, `<div class="mermaid">`+"\n")
		if err = Mermaid(pooled, out, nil); err != nil {
			return err
		}
		fmt.Fprintf(out, "</div>\n")
	}

	if err = RenderProcedureHTML(p, out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}

// ReadProcedureSource reads a YAML (or JSON) ProcedureSource.
func ReadProcedureSource(filename string) (*core.ProcedureSource, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var ps core.ProcedureSource
	if err = yaml.Unmarshal(src, &ps); err != nil {
		return nil, err
	}
	return &ps, nil
}

// ReadAndRenderProcedurePage compiles a ProcedureSource file without
// evaluating its code and renders its page.
func ReadAndRenderProcedurePage(filename string, cssFiles []string, out io.Writer, includeGraph bool) error {
	ps, err := ReadProcedureSource(filename)
	if err != nil {
		return err
	}

	i := noop.NewInterpreter()
	i.Silent = true
	interpreters := make(map[string]core.Interpreter)
	for _, s := range ps.Steps {
		interpreters[s.Interpreter] = i
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := ps.Compile(ctx, interpreters)
	if err != nil {
		return err
	}

	return RenderProcedurePage(p, out, cssFiles, includeGraph)
}
