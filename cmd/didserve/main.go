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

// Package main is a batch estimation service that reads batch
// requests from stdin, a WebSocket, or an MQTT broker and writes
// Results back.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/diffindiffs/didbase/did"
	"github.com/diffindiffs/didbase/sio"
	"github.com/diffindiffs/didbase/storage/bolt"
	"github.com/diffindiffs/didbase/util"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	help := flag.Bool("h", false, "Get usage")
	cfg.Flags(flag.CommandLine)
	flag.Parse()

	if *help {
		usage()
		os.Exit(0)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := util.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := run(cfg, flag.Args()); err != nil {
		slog.Error("didserve failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	flag.PrintDefaults()

	{
		fmt.Fprintf(os.Stderr, "\n-io std (default):\n\n")
		_, fs := NewStdCouplings(nil)
		fs.PrintDefaults()
	}

	{
		fmt.Fprintf(os.Stderr, "\n-io mq:\n\n")
		_, fs := NewMQTTCouplings(nil)
		fs.PrintDefaults()
	}

	{
		fmt.Fprintf(os.Stderr, "\n-io ws:\n\n")
		_, fs := sio.NewWebSocketCouplings(nil)
		fs.PrintDefaults()
	}
}

func couplings(cfg *Config, args []string) (sio.Couplings, error) {
	switch cfg.IO {
	case "std":
		c, _ := NewStdCouplings(args)
		return c, nil
	case "mq", "mqtt":
		c, _ := NewMQTTCouplings(args)
		return c, nil
	case "ws":
		c, _ := sio.NewWebSocketCouplings(args)
		return c, nil
	}
	return nil, fmt.Errorf("unknown io: '%s'", cfg.IO)
}

func run(cfg *Config, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cio, err := couplings(cfg, args)
	if err != nil {
		return err
	}

	if err := cio.Start(ctx); err != nil {
		return err
	}

	s, err := sio.NewService(ctx, did.Procedures(), cio)
	if err != nil {
		return err
	}
	s.HaltOnInputEOF = cfg.HaltOnEOF
	s.DataDir = cfg.DataDir

	if cfg.Store != "" {
		store, err := bolt.NewStorage(cfg.Store)
		if err != nil {
			return err
		}
		if err := store.Open(ctx); err != nil {
			return err
		}
		defer store.Close(context.Background())
		s.Storage = store
	}

	if cfg.Schedule != "" {
		sched, err := sio.NewSchedule(cfg.Schedule, cfg.BatchFile)
		if err != nil {
			return err
		}
		go func() {
			err := sched.Run(ctx, s.Input())
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("schedule stopped", "error", err)
			}
		}()
	}

	go func() {
		if std, is := cio.(*sio.Stdio); is && !cfg.HaltOnEOF && cfg.Schedule == "" {
			<-std.InputEOF
			slog.Info("input EOF", "wait", cfg.Wait)
			time.Sleep(cfg.Wait)
			cancel()
		}
	}()

	if err := s.Loop(ctx); err != nil {
		return err
	}

	if err = cio.Stop(context.Background()); err != nil {
		slog.Warn("error from io.Stop", "error", err)
	}

	return nil
}
