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

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/diffindiffs/didbase/core"
)

type MermaidOpts struct {
	// ShowProcedures will result in an edge label that lists
	// the procedures that follow that edge.
	ShowProcedures bool `json:"showProcedures"`

	// PooledFill is the fill color for SharedSteps executed for
	// more than one procedure.
	PooledFill string `json:"pooledFill,omitempty"`

	// Direction is the Mermaid graph direction.  Defaults to TB.
	Direction string `json:"direction,omitempty"`
}

// edge is an edge between two SharedSteps by position.
type edge struct {
	from, to int
}

// edges finds the edges between consecutive SharedSteps of each
// procedure.  The procedures that follow each edge are in order.
func edges(p *core.PooledProcedure) ([]edge, map[edge][]int) {
	var (
		order []edge
		procs = make(map[edge][]int)
		last  = make(map[int]int)
	)
	for i, ss := range p.Steps {
		for _, proc := range ss.Procs {
			if j, have := last[proc]; have {
				e := edge{j, i}
				if _, seen := procs[e]; !seen {
					order = append(order, e)
				}
				procs[e] = append(procs[e], proc)
			}
			last[proc] = i
		}
	}
	return order, procs
}

func joinInts(xs []int) string {
	acc := make([]string, len(xs))
	for i, x := range xs {
		acc[i] = strconv.Itoa(x)
	}
	return strings.Join(acc, ",")
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// for the given pooled plan.
func Mermaid(p *core.PooledProcedure, w io.Writer, opts *MermaidOpts) error {

	if opts == nil {
		opts = &MermaidOpts{
			ShowProcedures: true,
			PooledFill:     "#bcf2db",
		}
	}
	dir := opts.Direction
	if dir == "" {
		dir = "TB"
	}

	slog.Debug("mermaid processing", "steps", p.Len())

	out := bufio.NewWriter(w)

	fmt.Fprintf(out, "graph %s\n", dir)

	for i, ss := range p.Steps {
		nid := fmt.Sprintf("n%d", i)
		label := ss.Step.Name + "<br/>" + joinInts(ss.Procs)
		if 1 < len(ss.Procs) {
			fmt.Fprintf(out, "  %s[\"%s\"]\n", nid, label)
			if opts.PooledFill != "" {
				fmt.Fprintf(out, "  style %s fill:%s\n", nid, opts.PooledFill)
			}
		} else {
			fmt.Fprintf(out, "  %s(\"%s\")\n", nid, label)
		}
	}

	order, procs := edges(p)
	for _, e := range order {
		label := ""
		if opts.ShowProcedures {
			label = fmt.Sprintf(`-- "%s"`, joinInts(procs[e]))
		}
		fmt.Fprintf(out, "  n%d %s --> n%d\n", e.from, label, e.to)
	}

	fmt.Fprintf(out, "\n")
	slog.Debug("mermaid gen done")

	return out.Flush()
}
