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

package did

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/diffindiffs/didbase/core"
	. "github.com/diffindiffs/didbase/util/testutil"
)

func TestTable(t *testing.T) {
	tab := NewTable()
	if err := tab.AddColumn("a", []float64{1, 2}); err != nil {
		t.Fatal(err)
	}
	if err := tab.AddColumn("b", []float64{3, 4}); err != nil {
		t.Fatal(err)
	}

	err := tab.AddColumn("c", []float64{1})
	var dm *DimensionMismatch
	if !errors.As(err, &dm) || dm.Expected != 2 || dm.Got != 1 {
		t.Fatalf("unexpected error %v", err)
	}

	if diff := cmp.Diff([]string{"a", "b"}, tab.Names()); diff != "" {
		t.Fatal(diff)
	}
	if JS(tab) != `{"columns":["a","b"],"rows":2}` {
		t.Fatal(JS(tab))
	}

	if _, err := tab.Column("z"); err == nil {
		t.Fatal("expected an error")
	}

	var c core.Copier = tab
	cp := c.DeepCopy().(*Table)
	xs, _ := cp.Column("a")
	xs[0] = 100
	if ys, _ := tab.Column("a"); ys[0] != 1 {
		t.Fatal("DeepCopy shares columns")
	}

	x, err := core.DeepCopy(tab)
	if err != nil {
		t.Fatal(err)
	}
	if x.(*Table) == tab || x.(*Table).Rows() != 2 {
		t.Fatal("core.DeepCopy didn't use DeepCopy")
	}
}

func TestReadCSV(t *testing.T) {
	tab, err := ReadCSV(strings.NewReader("x, y\n1,NA\n\"1,000\",2.5\n"))
	if err != nil {
		t.Fatal(err)
	}
	xs, _ := tab.Column("x")
	ys, _ := tab.Column("y")
	if xs[1] != 1000 || !math.IsNaN(ys[0]) || ys[1] != 2.5 {
		t.Fatal(xs, ys)
	}

	_, err = ReadCSV(strings.NewReader("x\nsecret\n"))
	if !errors.Is(err, ErrNotNumber) {
		t.Fatalf("unexpected error %v", err)
	}
	if msg := err.Error(); msg != "row 2 column 1: not a number" {
		t.Fatal(msg)
	}
	if _, err = ReadCSV(strings.NewReader("")); err != ErrNoRows {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"t", "y"},
		{1, 10.5},
		{2},
	}
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "panel.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save workbook: %v", err)
	}

	tab, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if tab.Rows() != 2 {
		t.Fatal(JS(tab))
	}
	ys, _ := tab.Column("y")
	if ys[0] != 10.5 || !math.IsNaN(ys[1]) {
		t.Fatal(ys)
	}

	if _, err = ReadXLSX(path, "missing"); err == nil {
		t.Fatal("expected an error")
	}
}
