// Package main is a command-line tool for looking at Procedures:
// converting their sources between YAML and JSON, analyzing how they
// pool, and rendering graphs and documentation.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/jsccast/yaml"

	"github.com/diffindiffs/didbase/core"
)

func main() {
	if len(os.Args) < 2 {
		Usage(os.Stderr)
		os.Exit(1)
	}
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, in io.Reader, out io.Writer) error {
	switch args[0] {
	case "yamltojson":
		pretty := false
		for _, arg := range args[1:] {
			switch arg {
			case "-p":
				pretty = true
			default:
				return fmt.Errorf("unsupported args: %v", args)
			}
		}
		return yamlToJSON(in, out, pretty)

	case "jsontoyaml":
		if 1 < len(args) {
			return fmt.Errorf("unsupported args: %v", args)
		}
		return jsonToYAML(in, out)

	case "help", "-h":
		Usage(out)
		return nil
	}

	mod, have := Mods[args[0]]
	if !have {
		Usage(os.Stderr)
		return fmt.Errorf("unknown subcommand \"%s\"", args[0])
	}

	fs := mod.Flags()
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	procs, err := loadProcedures(fs.Args())
	if err != nil {
		return err
	}

	return mod.F(procs, out)
}

func yamlToJSON(in io.Reader, out io.Writer, pretty bool) error {
	bs, err := io.ReadAll(in)
	if err != nil {
		return err
	}

	var ps *core.ProcedureSource
	if err = yaml.Unmarshal(bs, &ps); err != nil {
		return err
	}

	if pretty {
		bs, err = json.MarshalIndent(&ps, "", "  ")
	} else {
		bs, err = json.Marshal(&ps)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "%s\n", bs)
	return err
}

func jsonToYAML(in io.Reader, out io.Writer) error {
	bs, err := io.ReadAll(in)
	if err != nil {
		return err
	}

	var ps *core.ProcedureSource
	if err = json.Unmarshal(bs, &ps); err != nil {
		return err
	}

	if bs, err = yaml.Marshal(&ps); err != nil {
		return err
	}

	_, err = out.Write(bs)
	return err
}

func Usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: proctool SUBCOMMAND [FLAGS] [PROCEDURE.yaml ...]\n\n")
	fmt.Fprintf(w, "Without PROCEDURE files, the built-in Procedures are used.\n\n")
	fmt.Fprintf(w, "Subcommands:\n\n")

	names := make([]string, 0, len(Mods))
	for name := range Mods {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		mod := Mods[name]
		fs := mod.Flags()
		fs.SetOutput(w)
		fmt.Fprintf(w, "%s: %s\n", name, mod.Doc())
		fs.PrintDefaults()
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "yamltojson: reads a ProcedureSource in YAML from stdin\n")
	fmt.Fprintf(w, "  -p    pretty-print\n\n")
	fmt.Fprintf(w, "jsontoyaml: reads a ProcedureSource in JSON from stdin\n\n")
}
