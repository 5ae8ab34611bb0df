/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tools

// dot -Tpng g.dot > g.png

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/diffindiffs/didbase/core"

	"gopkg.in/yaml.v2"
)

// defaultsLabel renders a Step's default arguments as YAML for a
// node label.
func defaultsLabel(s *core.Step) string {
	if len(s.Defaults) == 0 {
		return ""
	}
	m := make(yaml.MapSlice, 0, len(s.Defaults))
	for _, d := range s.Defaults {
		m = append(m, yaml.MapItem{Key: d.Name, Value: d.Value})
	}
	bs, err := yaml.Marshal(m)
	if err != nil {
		return err.Error()
	}
	return string(bs)
}

func escapeHTML(s string) string {
	s = strings.Replace(s, "&", `&amp;`, -1)
	s = strings.Replace(s, "<", `&lt;`, -1)
	s = strings.Replace(s, ">", `&gt;`, -1)
	return s
}

// Dot makes a Graphviz dot file for the given pooled plan.
//
// If current is a valid SharedStep position (for example the count of
// SharedSteps executed before a pause), that SharedStep is red.
func Dot(p *core.PooledProcedure, w io.Writer, current int) error {

	slog.Debug("dot processing", "steps", p.Len())

	out := bufio.NewWriter(w)

	fmt.Fprintf(out, "digraph G {\n")
	fmt.Fprintf(out, `  graph [ordering=out,rankdir=TB,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	for i, ss := range p.Steps {
		s := ss.Step
		label := escapeHTML(s.Name) + `<BR/><FONT POINT-SIZE="8">` + joinInts(ss.Procs) + `</FONT>`
		if s.Doc != "" {
			doc := s.Doc
			if 40 < len(doc) {
				period := strings.Index(doc, ". ")
				if 0 < period {
					doc = doc[0 : period+1]
				}
			}
			label += `<BR/><FONT POINT-SIZE="8">` + escapeHTML(doc) + `</FONT>`
		}
		if defaults := defaultsLabel(s); defaults != "" {
			label += `<FONT POINT-SIZE="6">` +
				`<BR/>` + strings.Replace(escapeHTML(defaults), "\n", `<BR ALIGN="LEFT"/>`, -1) +
				`</FONT>`
		}

		fillcolor := "#99ddc8"
		if 1 < len(ss.Procs) {
			fillcolor = "#52aa5e"
		}
		color := "black"
		shape := "record"
		style := "filled"
		if s.Sharing == core.ByIdentity {
			shape = "note"
		}
		if 0 < len(s.CopyArgs) {
			style += ",dashed"
		}
		if i == current {
			color = "red"
			fillcolor = "#f98b8b"
		}
		fmt.Fprintf(out, "  n%d [shape=\"%s\", style=\"%s\", color=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
			i, shape, style, color, fillcolor, label)
	}

	order, procs := edges(p)
	for _, e := range order {
		fmt.Fprintf(out, "  n%d -> n%d [ color=\"black\" label = <%s> ]\n",
			e.from, e.to, joinInts(procs[e]))
	}

	fmt.Fprintf(out, "}\n")
	return out.Flush()
}

// PNG generates a PNG image based on output from Dot.
//
// This function with write two files: basename.dot and basename.png,
// where the basename is the given string.
func PNG(p *core.PooledProcedure, basename string, current int) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err := Dot(p, dotfile, current); err != nil {
		dotfile.Close()
		return pngname, err
	}
	if err := dotfile.Close(); err != nil {
		return pngname, err
	}
	if err := exec.Command("dot", "-Tpng", "-o", pngname, dotname).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}
