package main

import (
	"flag"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("DIDSERVE_IO", "ws")
	t.Setenv("DIDSERVE_WAIT", "3s")
	t.Setenv("DIDSERVE_LOG_LEVEL", "debug")
	t.Setenv("DIDSERVE_DATA_DIR", "/srv/data")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.IO != "ws" || cfg.Wait != 3*time.Second || cfg.Log.Level != "debug" || cfg.Log.Format != "text" || !cfg.HaltOnEOF || cfg.DataDir != "/srv/data" {
		t.Fatalf("%#v", cfg)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.Flags(fs)
	if err := fs.Parse([]string{"-io", "mq", "-schedule", "@hourly"}); err != nil {
		t.Fatal(err)
	}
	if cfg.IO != "mq" || cfg.Log.Level != "debug" {
		t.Fatalf("%#v", cfg)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a schedule without a batch file")
	}
	cfg.BatchFile = "batch.yaml"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	cfg.IO = "carrier pigeon"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error")
	}
}
