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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/jsccast/yaml"

	"github.com/diffindiffs/didbase/core"
	"github.com/diffindiffs/didbase/did"
)

// batchValidate checks the structure of BatchFiles.
var batchValidate = validator.New()

// SpecEntry declares one Specification in a BatchFile.
type SpecEntry struct {
	// Name is the name of the Specification.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Procedure optionally overrides the BatchFile's Procedure.
	Procedure string `json:"procedure,omitempty" yaml:"procedure,omitempty"`

	// Args overlay the BatchFile's Defaults.
	Args core.Args `json:"args,omitempty" yaml:"args,omitempty"`
}

// BatchFile is the YAML (or JSON) representation of a batch of
// Specifications and the Control for running them.
type BatchFile struct {
	// Id optionally identifies a request.  It's echoed in the
	// Result.
	Id string `json:"id,omitempty" yaml:"id,omitempty"`

	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Procedure names the default Procedure.
	Procedure string `json:"procedure" yaml:"procedure" validate:"required"`

	// Data optionally names a CSV or XLSX file, which is loaded
	// as the "data" argument.  A relative name is relative to
	// the BatchFile's directory.  See Confine for requests that
	// didn't come from a file.
	Data string `json:"data,omitempty" yaml:"data,omitempty"`

	Defaults core.Args `json:"defaults,omitempty" yaml:"defaults,omitempty"`

	Specs []*SpecEntry `json:"specs" yaml:"specs" validate:"min=1,dive,required"`

	// Keep entries must be strings.
	Keep []interface{} `json:"keep,omitempty" yaml:"keep,omitempty"`

	KeepAll  bool `json:"keepall,omitempty" yaml:"keepall,omitempty"`
	Pause    int  `json:"pause,omitempty" yaml:"pause,omitempty" validate:"gte=0"`
	Verbose  bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	Parallel bool `json:"parallel,omitempty" yaml:"parallel,omitempty"`

	dir string
}

// ParseBatchFile parses YAML or JSON.
func ParseBatchFile(bs []byte) (*BatchFile, error) {
	var b BatchFile
	if err := yaml.Unmarshal(bs, &b); err != nil {
		return nil, fmt.Errorf("failed to parse batch file: %w", err)
	}
	return &b, nil
}

// AsBatchFile converts a message (typically a map from JSON) into a
// BatchFile.
func AsBatchFile(msg interface{}) (*BatchFile, error) {
	switch vv := msg.(type) {
	case *BatchFile:
		return vv, nil
	case string:
		return ParseBatchFile([]byte(vv))
	case []byte:
		return ParseBatchFile(vv)
	}
	js, err := json.Marshal(&msg)
	if err != nil {
		return nil, err
	}
	var b BatchFile
	if err = json.Unmarshal(js, &b); err != nil {
		return nil, fmt.Errorf("bad batch request: %w", err)
	}
	return &b, nil
}

// LoadBatchFile reads and validates a BatchFile.
func LoadBatchFile(filename string) (*BatchFile, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	b, err := ParseBatchFile(bs)
	if err != nil {
		return nil, err
	}
	b.dir = filepath.Dir(filename)
	if err = b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Validate checks the BatchFile's structure.  A Keep entry that isn't
// a nonempty string is a *core.BadKeep.
func (b *BatchFile) Validate() error {
	if err := batchValidate.Struct(b); err != nil {
		return fmt.Errorf("invalid batch file: %w", err)
	}
	_, err := b.keep()
	return err
}

func (b *BatchFile) keep() ([]string, error) {
	acc := make([]string, 0, len(b.Keep))
	for _, x := range b.Keep {
		s, is := x.(string)
		if !is || s == "" {
			return nil, &core.BadKeep{
				Keep: x,
			}
		}
		acc = append(acc, s)
	}
	return acc, nil
}

// Control makes the core.Control for the BatchFile.
func (b *BatchFile) Control(logger *slog.Logger) (*core.Control, error) {
	keep, err := b.keep()
	if err != nil {
		return nil, err
	}
	return &core.Control{
		Verbose:  b.Verbose,
		Keep:     keep,
		KeepAll:  b.KeepAll,
		Pause:    b.Pause,
		Parallel: b.Parallel,
		Logger:   logger,
	}, nil
}

// BadDataPath occurs when a request's Data isn't a local name
// under the Service's data directory.
type BadDataPath struct {
	Data string
}

func (e *BadDataPath) Error() string {
	return fmt.Sprintf("data %q isn't a local name in the data directory", e.Data)
}

// Confine resolves Data relative to dir for a BatchFile that didn't
// come from LoadBatchFile.  Data must then be a local relative name
// (see filepath.IsLocal), and an empty dir allows no Data at all.
// A BatchFile from LoadBatchFile is unchanged.
func (b *BatchFile) Confine(dir string) error {
	if b.dir != "" || b.Data == "" {
		return nil
	}
	if dir == "" || filepath.IsAbs(b.Data) || !filepath.IsLocal(b.Data) {
		return &BadDataPath{
			Data: b.Data,
		}
	}
	b.dir = dir
	return nil
}

// DataPath resolves Data relative to the BatchFile's directory.
func (b *BatchFile) DataPath() string {
	if b.Data == "" || filepath.IsAbs(b.Data) || b.dir == "" {
		return b.Data
	}
	return filepath.Join(b.dir, b.Data)
}

// Batch makes the Specifications.
//
// If data is nil and the BatchFile names a Data file, that file is
// read with did.ReadFile.  Data, if any, is the "data" default.
func (b *BatchFile) Batch(procs core.ProcedureMap, data interface{}) (*core.Batch, error) {
	p, err := procs.Find(b.Procedure)
	if err != nil {
		return nil, err
	}

	defaults := b.Defaults.Copy()
	if defaults == nil {
		defaults = core.NewArgs()
	}
	if data == nil && b.Data != "" {
		t, err := did.ReadFile(b.DataPath())
		if err != nil {
			return nil, err
		}
		data = t
	}
	if data != nil {
		defaults["data"] = data
	}

	batch := core.NewBatch(p, defaults)
	for _, e := range b.Specs {
		q := p
		if e.Procedure != "" {
			if q, err = procs.Find(e.Procedure); err != nil {
				return nil, err
			}
		}
		batch.AddFor(e.Name, q, e.Args)
	}
	return batch, nil
}

// Run validates the BatchFile, makes its Batch, and executes it.
func (b *BatchFile) Run(ctx context.Context, procs core.ProcedureMap, logger *slog.Logger) ([]*core.Specification, []interface{}, error) {
	if err := b.Validate(); err != nil {
		return nil, nil, err
	}
	ctl, err := b.Control(logger)
	if err != nil {
		return nil, nil, err
	}
	batch, err := b.Batch(procs, nil)
	if err != nil {
		return nil, nil, err
	}
	specs := batch.Specifications()
	results, err := core.Proceed(ctx, specs, ctl)
	if err != nil {
		return specs, nil, err
	}
	return specs, results, nil
}
