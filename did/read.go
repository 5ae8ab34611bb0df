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
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// parseCell parses a number.  Empty cells and "NA" are NaN.
func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "NA", "NaN", "nan", ".":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

// fromRows makes a Table from a header row and data rows.
func fromRows(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	header := rows[0]
	data := rows[1:]
	cols := make([][]float64, len(header))
	for j := range cols {
		cols[j] = make([]float64, len(data))
	}
	for i, row := range data {
		for j := range header {
			// Spreadsheets drop trailing empty cells.
			s := ""
			if j < len(row) {
				s = row[j]
			}
			x, err := parseCell(s)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i+2, j+1, ErrNotNumber)
			}
			cols[j][i] = x
		}
	}

	t := NewTable()
	for j, name := range header {
		if err := t.AddColumn(strings.TrimSpace(name), cols[j]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ReadCSV reads a Table from CSV with a header row.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return fromRows(rows)
}

// ReadXLSX reads a Table from a sheet in an Excel workbook.  The first
// row has the column names.  An empty sheet name means the first
// sheet.
func ReadXLSX(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return fromRows(rows)
}

// ReadFile reads a Table from a .csv or .xlsx file.
func ReadFile(path string) (*Table, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return ReadXLSX(path, "")
	}
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return ReadCSV(in)
}
