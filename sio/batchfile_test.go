package sio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/diffindiffs/didbase/core"
	"github.com/diffindiffs/didbase/did"
	"github.com/google/go-cmp/cmp"
)

// panelCSV has two never-treated units and two units first treated
// in period 3, when y jumps by 2.
var panelCSV = `id,t,g,y
1,1,0,2
1,2,0,3
1,3,0,4
1,4,0,5
2,1,0,3
2,2,0,4
2,3,0,5
2,4,0,6
3,1,3,4
3,2,3,5
3,3,3,8
3,4,3,9
4,1,3,5
4,2,3,6
4,3,3,9
4,4,3,10
`

var batchYAML = `
id: req1
name: test
procedure: RegressionFreeDID
data: panel.csv
defaults:
  tname: t
  treatname: g
  yname: y
specs:
- name: default
- name: ref2
  args:
    refperiod: -2
- name: prep
  procedure: Preprocess
keep: [esample]
`

func writeBatch(t *testing.T, batch string) string {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "panel.csv"), []byte(panelCSV), 0644); err != nil {
		t.Fatal(err)
	}
	filename := filepath.Join(dir, "batch.yaml")
	if err := os.WriteFile(filename, []byte(batch), 0644); err != nil {
		t.Fatal(err)
	}
	return filename
}

func TestLoadBatchFile(t *testing.T) {
	b, err := LoadBatchFile(writeBatch(t, batchYAML))
	if err != nil {
		t.Fatal(err)
	}
	if b.Id != "req1" || len(b.Specs) != 3 || b.Specs[2].Procedure != "Preprocess" {
		t.Fatal(JS(b))
	}
	if filepath.Base(b.DataPath()) != "panel.csv" || !filepath.IsAbs(b.DataPath()) {
		t.Fatal(b.DataPath())
	}

	ctl, err := b.Control(nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"esample"}, ctl.Keep); diff != "" {
		t.Fatal(diff)
	}

	batch, err := b.Batch(did.Procedures(), nil)
	if err != nil {
		t.Fatal(err)
	}
	specs := batch.Specifications()
	if len(specs) != 3 || specs[2].Procedure != did.Preprocess || specs[0].Name != "default" {
		t.Fatal(specs)
	}
	if _, have := specs[0].Args["data"].(*did.Table); !have {
		t.Fatal("no data")
	}
}

func TestBatchFileRun(t *testing.T) {
	b, err := LoadBatchFile(writeBatch(t, batchYAML))
	if err != nil {
		t.Fatal(err)
	}

	specs, results, err := b.Run(context.Background(), did.Procedures(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 3 || len(results) != 3 {
		t.Fatal(results)
	}

	for i := 0; i < 2; i++ {
		as := results[i].(core.Args)
		e, is := as[core.ResultField].(*did.Estimates)
		if !is {
			t.Fatal(JS(as))
		}
		if x, ok := e.Overall(); !ok || x != 2 {
			t.Fatalf("%s: %v", specs[i].Name, x)
		}
		if _, have := as["esample"]; !have {
			t.Fatal("didn't keep esample")
		}
	}
}

func TestBatchFileErrors(t *testing.T) {
	tests := []struct {
		name  string
		batch string
		check func(error) bool
	}{
		{
			name:  "no procedure",
			batch: "specs: [{name: a}]",
			check: func(err error) bool { return err != nil },
		},
		{
			name:  "no specs",
			batch: "procedure: RegressionFreeDID",
			check: func(err error) bool { return err != nil },
		},
		{
			name:  "bad keep",
			batch: "procedure: RegressionFreeDID\nspecs: [{name: a}]\nkeep: [1]",
			check: func(err error) bool {
				var bk *core.BadKeep
				return errors.As(err, &bk) && bk.Keep == 1
			},
		},
		{
			name:  "bad pause",
			batch: "procedure: RegressionFreeDID\nspecs: [{name: a}]\npause: -1",
			check: func(err error) bool { return err != nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBatchFile(writeBatch(t, tt.batch))
			if !tt.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}

	b, err := ParseBatchFile([]byte("procedure: OLS\nspecs: [{name: a}]"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = b.Batch(did.Procedures(), nil)
	var up *core.UnknownProcedure
	if !errors.As(err, &up) || up.Name != "OLS" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestAsBatchFile(t *testing.T) {
	msg := map[string]interface{}{
		"procedure": "Preprocess",
		"specs": []interface{}{
			map[string]interface{}{"name": "a", "args": map[string]interface{}{"tname": "t"}},
		},
		"keepall": true,
	}
	b, err := AsBatchFile(msg)
	if err != nil {
		t.Fatal(err)
	}
	if b.Procedure != "Preprocess" || !b.KeepAll || b.Specs[0].Args["tname"] != "t" {
		t.Fatal(JS(b))
	}

	if b, err = AsBatchFile(`{"procedure":"Preprocess","specs":[{}]}`); err != nil || b.Procedure != "Preprocess" {
		t.Fatal(b, err)
	}

	if _, err = AsBatchFile(42); err == nil {
		t.Fatal("expected an error")
	}
}

func TestBatchFileConfine(t *testing.T) {
	loaded, err := LoadBatchFile(writeBatch(t, batchYAML))
	if err != nil {
		t.Fatal(err)
	}
	before := loaded.DataPath()
	if err = loaded.Confine(""); err != nil || loaded.DataPath() != before {
		t.Fatal(err, loaded.DataPath())
	}

	for _, tt := range []struct {
		data, dir string
		ok        bool
	}{
		{"panel.csv", "/srv/data", true},
		{"sub/panel.csv", "/srv/data", true},
		{"", "", true},
		{"panel.csv", "", false},
		{"/etc/passwd", "/srv/data", false},
		{"../panel.csv", "/srv/data", false},
		{"a/../../panel.csv", "/srv/data", false},
	} {
		b := &BatchFile{Data: tt.data}
		err := b.Confine(tt.dir)
		var bad *BadDataPath
		if tt.ok != (err == nil) || !tt.ok && !errors.As(err, &bad) {
			t.Fatalf("%q in %q: %v", tt.data, tt.dir, err)
		}
		if tt.ok && tt.data != "" && b.DataPath() != filepath.Join(tt.dir, tt.data) {
			t.Fatal(b.DataPath())
		}
	}
}
