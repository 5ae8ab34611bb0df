/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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

// Package goja is a core.Interpreter for Step functions written in
// ECMAScript.
package goja

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"github.com/diffindiffs/didbase/core"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Exec if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)
)

// init adds an Interpreter as one of the DefaultInterpreters.
func init() {
	core.DefaultInterpreters["goja"] = NewInterpreter()
}

// LibraryProvider resolves a library name into source code.
type LibraryProvider func(ctx context.Context, i *Interpreter, libraryName string) (string, error)

// Interpreter implements core.Interpreter using Goja, which is a Go
// implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
type Interpreter struct {
	// Testing is used to expose or hide some runtime
	// capabilities.
	Testing bool

	// LibraryProvider, if not nil, is used instead of
	// DefaultLibraryProvider.
	LibraryProvider LibraryProvider

	// Client is used for HTTP libraries.  Defaults to a client
	// with a cookie jar.
	Client *http.Client

	// Logger is used by the runtime's log function.  Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// NewHTTPClient makes an HTTP client with a cookie jar that respects
// public suffixes.
func NewHTTPClient(timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Jar:     jar,
		Timeout: timeout,
	}, nil
}

func (i *Interpreter) logger() *slog.Logger {
	if i.Logger == nil {
		return slog.Default()
	}
	return i.Logger
}

// CompileLibrary checks that a library compiles.
func (i *Interpreter) CompileLibrary(ctx context.Context, name, src string) (interface{}, error) {
	return goja.Compile(name, src, true)
}

// ProvideLibrary resolves the library name into a library.
func (i *Interpreter) ProvideLibrary(ctx context.Context, name string) (string, error) {
	if i.LibraryProvider != nil {
		return i.LibraryProvider(ctx, i, name)
	}
	return DefaultLibraryProvider(ctx, i, name)
}

// DefaultLibraryProvider reads libraries relative to the current
// directory.
var DefaultLibraryProvider = MakeFileLibraryProvider(".")

// MakeFileLibraryProvider makes a LibraryProvider for names that are
// URLs with protocols of "file", "http", and "https".  File names are
// relative to the given directory.
func MakeFileLibraryProvider(dir string) LibraryProvider {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		parts := strings.SplitN(name, "://", 2)
		if 2 != len(parts) {
			return "", fmt.Errorf("bad link '%s'", name)
		}
		switch parts[0] {
		case "file":
			filename := filepath.Clean(parts[1])
			if strings.HasPrefix(filename, "..") {
				return "", fmt.Errorf("library '%s' outside of '%s'", name, dir)
			}
			bs, err := os.ReadFile(filepath.Join(dir, filename))
			if err != nil {
				return "", err
			}
			return string(bs), nil
		case "http", "https":
			return i.fetch(ctx, name)
		default:
			return "", fmt.Errorf("unknown protocol '%s'", parts[0])
		}
	}
}

func (i *Interpreter) fetch(ctx context.Context, u string) (string, error) {
	client := i.Client
	if client == nil {
		var err error
		if client, err = NewHTTPClient(30 * time.Second); err != nil {
			return "", err
		}
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("library fetch status %s %d", resp.Status, resp.StatusCode)
	}
	bs, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(bs), nil
}

// MakeMapLibraryProvider makes a LibraryProvider backed by a map.
func MakeMapLibraryProvider(srcs map[string]string) LibraryProvider {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		src, have := srcs[name]
		if !have {
			return "", fmt.Errorf("undefined library '%s'", name)
		}
		return src, nil
	}
}

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

// parseSource looks into the given map to try to find "requires" and
// "code" properties.
func parseSource(vv map[string]interface{}) (code string, libs []string, err error) {
	x := vv["code"]
	s, is := x.(string)
	if !is {
		err = errors.New("bad Goja step code")
		return
	}
	code = s

	switch vv := vv["requires"].(type) {
	case nil:
	case string:
		libs = []string{vv}
	case []string:
		libs = vv
	case []interface{}:
		libs = make([]string, 0, len(vv))
		for _, x := range vv {
			s, is := x.(string)
			if !is {
				err = errors.New("bad library")
				return
			}
			libs = append(libs, s)
		}
	default:
		err = fmt.Errorf("bad requires (%T)", vv)
	}

	return
}

// AsSource extracts the code and required library names from a
// source, which is either a string or a map with "code" and optional
// "requires".
//
// Maps from gopkg.in/yaml.v2 (map[interface{}]interface{}) are
// accepted too.
func AsSource(src interface{}) (code string, libs []string, err error) {
	switch vv := src.(type) {
	case string:
		code = vv
		return
	case map[interface{}]interface{}:
		m := make(map[string]interface{})
		for k, v := range vv {
			str, ok := k.(string)
			if !ok {
				err = fmt.Errorf("bad src key (%T)", k)
				return
			}
			m[str] = v
		}
		return parseSource(m)
	case map[string]interface{}:
		return parseSource(vv)
	default:
		err = fmt.Errorf("bad Goja source (%T)", src)
		return
	}
}

// Compile prepends any required libraries and calls goja.Compile.
//
// This method can block if the interpreter's library provider blocks
// in order to obtain external libraries.
func (i *Interpreter) Compile(ctx context.Context, src interface{}) (interface{}, error) {
	code, libs, err := AsSource(src)
	if err != nil {
		return nil, err
	}

	code = wrapSrc(code)

	var libsSrc string
	for _, lib := range libs {
		libSrc, err := i.ProvideLibrary(ctx, lib)
		if err != nil {
			return nil, err
		}
		libsSrc += libSrc + "\n"
	}

	code = libsSrc + code

	obj, err := goja.Compile("", code, true)
	if err != nil {
		return nil, errors.New(err.Error() + ": " + code)
	}

	return obj, nil
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

// floats converts a value into a []float64 if possible.
func floats(x interface{}) ([]float64, bool) {
	switch vv := x.(type) {
	case []float64:
		return vv, true
	case []interface{}:
		acc := make([]float64, len(vv))
		for i, y := range vv {
			switch n := y.(type) {
			case int64:
				acc[i] = float64(n)
			case float64:
				acc[i] = n
			default:
				return nil, false
			}
		}
		return acc, true
	default:
		return nil, false
	}
}

// Exec implements the Interpreter method of the same name.
//
// The following properties are available from the runtime at _.
//
//	args: the named arguments.
//	argv: all of the positional arguments, including any from a
//	  Step's Combine.
//
// Some useful utilities:
//
//	log(x): log the given value.
//	gensym(): generate a random string.
//	sum(xs), mean(xs): sum or mean of an array of numbers.
//
// For testing only:
//
//	sleep(ms): sleep for the given number of milliseconds.
//
// The code should return an object, whose properties become the
// Step's returned fields.
func (i *Interpreter) Exec(ctx context.Context, names []string, args []interface{}, src interface{}, compiled interface{}) (core.Args, error) {
	if compiled == nil {
		var err error
		if compiled, err = i.Compile(ctx, src); err != nil {
			return nil, err
		}
	}
	p, is := compiled.(*goja.Program)
	if !is {
		return nil, fmt.Errorf("Goja bad compilation: %T %#v", compiled, compiled)
	}

	named := make(map[string]interface{}, len(names))
	for j, name := range names {
		if j < len(args) {
			named[name] = args[j]
		}
	}

	env := map[string]interface{}{
		"ctx":  ctx,
		"args": named,
		"argv": args,
	}

	o := goja.New()
	o.Set("_", env)

	if i.Testing {
		o.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
	}

	env["gensym"] = func() interface{} {
		return uuid.NewString()
	}

	env["log"] = func(x interface{}) interface{} {
		switch vv := x.(type) {
		case goja.Value:
			x = vv.Export()
		}
		js, err := json.Marshal(&x)
		if err != nil {
			i.logger().Warn("goja log can't marshal", "error", err)
		} else {
			i.logger().Info("goja log", "value", string(js))
		}
		return x
	}

	env["sum"] = func(x goja.Value) float64 {
		xs, ok := floats(x.Export())
		if !ok {
			protest(o, "not an array of numbers")
		}
		var acc float64
		for _, y := range xs {
			acc += y
		}
		return acc
	}

	env["mean"] = func(x goja.Value) float64 {
		xs, ok := floats(x.Export())
		if !ok {
			protest(o, "not an array of numbers")
		}
		if len(xs) == 0 {
			return math.NaN()
		}
		var acc float64
		for _, y := range xs {
			acc += y
		}
		return acc / float64(len(xs))
	}

	// We want to make sure that the following goroutine is
	// terminated as soon as possible.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		// If Exec calls cancel() after RunProgram returns,
		// then the interrupt has no effect.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		return nil, err
	}

	x := v.Export()

	switch vv := x.(type) {
	case map[string]interface{}:
		return core.Args(vv), nil
	case core.Args:
		return vv, nil
	case nil:
		return core.NewArgs(), nil
	default:
		return nil, fmt.Errorf("%#v (%T) isn't an object", x, x)
	}
}
