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

package sio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Stdio is a fairly simple Couplings that reads one JSON batch
// request per line from stdin and writes one JSON Result per line to
// stdout.
type Stdio struct {
	// In is coupled to service input.
	In io.Reader

	// Out is coupled to service output.
	Out io.Writer

	// ShellExpand enables input to include inline shell commands
	// delimited by '<<' and '>>'.  Use at your own risk, of
	// course!
	ShellExpand bool

	// Timestamps prepends a timestamp to each output line.
	Timestamps bool

	// EchoInput writes input lines (prepended with "input") to
	// the output.
	EchoInput bool

	// Tags prefixes tags indicating type of output ("input",
	// "result", "error").
	Tags bool

	// PadTags adds some padding to tags used in output.
	PadTags bool

	// InputEOF will be closed on EOF from stdin.
	InputEOF chan bool

	// Errors writes failed Results to os.Stderr instead of Out.
	Errors bool

	out chan *Result
	wg  sync.WaitGroup
}

// NewStdio creates a new Stdio.
//
// In and Out are initialized with os.Stdin and os.Stdout
// respectively.
func NewStdio(shellExpand bool) *Stdio {
	return &Stdio{
		In:          os.Stdin,
		Out:         os.Stdout,
		ShellExpand: shellExpand,
		InputEOF:    make(chan bool),
	}
}

// Start does nothing.
func (s *Stdio) Start(ctx context.Context) error {
	return nil
}

// Stop closes the output channel and waits until IO is complete or
// was terminated via its context.
func (s *Stdio) Stop(ctx context.Context) error {
	if s.out != nil {
		close(s.out)
	}
	s.wg.Wait()
	return nil
}

// IO returns channels for reading from stdin and writing to stdout.
func (s *Stdio) IO(ctx context.Context) (chan interface{}, chan *Result, chan bool, error) {
	in := make(chan interface{})
	done := make(chan bool)

	printf := func(w io.Writer, tag, format string, args ...interface{}) {
		if s.PadTags {
			tag = fmt.Sprintf("% 10s", tag)
		}
		if s.Tags {
			format = tag + " " + format
		}
		if s.Timestamps {
			ts := fmt.Sprintf("%-31s", time.Now().UTC().Format(time.RFC3339Nano))
			format = ts + " " + format
		}

		fmt.Fprintf(w, format, args...)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		stdin := bufio.NewReader(s.In)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				line, err := stdin.ReadString('\n')
				if (err == io.EOF && strings.TrimSpace(line) == "") || strings.TrimSpace(line) == "quit" {
					close(done)
					close(s.InputEOF)
					return
				}
				if err != nil && err != io.EOF {
					slog.Error("stdin error", "error", err)
					return
				}
				if s.EchoInput {
					printf(s.Out, "input", "%s", line)
				}
				if strings.HasPrefix(line, "#") || len(strings.TrimSpace(line)) == 0 {
					continue
				}
				if s.ShellExpand {
					expanded, err := ShellExpand(line)
					if err != nil {
						slog.Error("stdin error", "error", err)
						return
					}
					line = expanded
				}

				var msg interface{}
				if err := json.Unmarshal([]byte(line), &msg); err != nil {
					fmt.Fprintf(os.Stderr, "bad input: %s\n", err)
					continue
				}

				select {
				case <-ctx.Done():
					return
				case in <- msg:
				}
			}
		}
	}()

	s.out = make(chan *Result)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-s.out:
				if r == nil {
					slog.Debug("stdio output done")
					return
				}
				if r.Error != "" {
					w := s.Out
					if s.Errors {
						w = os.Stderr
					}
					printf(w, "error", "%s\n", JS(r))
					continue
				}
				printf(s.Out, "result", "%s\n", JS(r))
			}
		}
	}()

	return in, s.out, done, nil
}
