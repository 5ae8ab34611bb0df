/* Copyright 2019 Comcast Cable Communications Management, LLC
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

// Package main runs one batch file and writes its results as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/diffindiffs/didbase/core"
	"github.com/diffindiffs/didbase/did"
	"github.com/diffindiffs/didbase/sio"
	"github.com/diffindiffs/didbase/storage"
	"github.com/diffindiffs/didbase/storage/bolt"
	"github.com/diffindiffs/didbase/tools"
	"github.com/diffindiffs/didbase/util"
)

// Options are the command-line settings.
type Options struct {
	BatchFile string
	KeepAll   bool
	Parallel  bool
	Store     string
	Graph     string
	GraphOut  string
	HTML      string
	LogLevel  string
	LogFormat string
	Timeout   time.Duration
}

func (o *Options) Flags(fs *flag.FlagSet) {
	fs.StringVar(&o.BatchFile, "batch", "", "Batch file (YAML or JSON)")
	fs.BoolVar(&o.KeepAll, "keepall", false, "Return every Specification's full trace")
	fs.BoolVar(&o.Parallel, "parallel", false, "Run a SharedStep's calls concurrently")
	fs.StringVar(&o.Store, "store", "", "Optional BoltDB filename for results")
	fs.StringVar(&o.Graph, "graph", "", `Write the pooled plan: "mermaid", "dot", or "png"`)
	fs.StringVar(&o.GraphOut, "graph-out", "plan", "Basename for -graph png")
	fs.StringVar(&o.HTML, "html", "", "Optional filename for Procedure documentation")
	fs.StringVar(&o.LogLevel, "log-level", "warn", "Log level")
	fs.StringVar(&o.LogFormat, "log-format", "text", `Log format: "text" or "json"`)
	fs.DurationVar(&o.Timeout, "timeout", 0, "Optional timeout for the run")
}

func main() {
	var opts Options
	opts.Flags(flag.CommandLine)
	flag.Parse()

	logger, err := util.NewLogger(os.Stderr, opts.LogLevel, opts.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := run(context.Background(), &opts, os.Stdout); err != nil {
		slog.Error("didrun failed", "error", err)
		os.Exit(1)
	}
}

// procedures returns the distinct Procedures of the Specifications in
// order of first appearance.
func procedures(specs []*core.Specification) []*core.Procedure {
	seen := make(map[*core.Procedure]bool)
	acc := make([]*core.Procedure, 0, 2)
	for _, s := range specs {
		if !seen[s.Procedure] {
			seen[s.Procedure] = true
			acc = append(acc, s.Procedure)
		}
	}
	return acc
}

func graph(opts *Options, specs []*core.Specification, out io.Writer) error {
	p, err := core.Pool(procedures(specs)...)
	if err != nil {
		return err
	}
	switch opts.Graph {
	case "mermaid":
		return tools.Mermaid(p, out, nil)
	case "dot":
		return tools.Dot(p, out, -1)
	case "png":
		name, err := tools.PNG(p, opts.GraphOut, -1)
		if err != nil {
			return err
		}
		slog.Info("wrote graph", "filename", name)
		return nil
	}
	return fmt.Errorf("unknown graph format '%s'", opts.Graph)
}

func html(filename string, specs []*core.Specification) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	for _, p := range procedures(specs) {
		if err := tools.RenderProcedurePage(p, f, nil, true); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

func run(ctx context.Context, opts *Options, out io.Writer) error {
	if opts.BatchFile == "" {
		return fmt.Errorf("need -batch")
	}

	if 0 < opts.Timeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	b, err := sio.LoadBatchFile(opts.BatchFile)
	if err != nil {
		return err
	}
	if opts.KeepAll {
		b.KeepAll = true
	}
	if opts.Parallel {
		b.Parallel = true
	}

	procs := did.Procedures()

	if opts.Graph != "" || opts.HTML != "" {
		batch, err := b.Batch(procs, nil)
		if err != nil {
			return err
		}
		specs := batch.Specifications()
		if opts.Graph != "" {
			if err := graph(opts, specs, out); err != nil {
				return err
			}
		}
		if opts.HTML != "" {
			if err := html(opts.HTML, specs); err != nil {
				return err
			}
		}
		if opts.Graph != "" {
			return nil
		}
	}

	then := time.Now()
	specs, values, err := b.Run(ctx, procs, slog.Default().With("batch", b.Name))
	if err != nil {
		return err
	}

	r := &sio.Result{
		Id:      storage.NewRunId(),
		Request: b.Id,
		Name:    b.Name,
		Results: storage.AsResults(specs, values),
		Elapsed: time.Since(then),
	}

	if opts.Store != "" {
		store, err := bolt.NewStorage(opts.Store)
		if err != nil {
			return err
		}
		if err := store.Open(ctx); err != nil {
			return err
		}
		defer store.Close(ctx)
		if err := store.MakeRun(ctx, r.Id); err != nil {
			return err
		}
		if err := store.WriteResults(ctx, r.Id, r.Results); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
