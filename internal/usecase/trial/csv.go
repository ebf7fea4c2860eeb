package trial

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"
)

// Header returns the data.csv columns: acc (when scored) then one column per
// measured trial.
func Header(withAcc bool, n int) []string {
	cols := make([]string, 0, n+1)
	if withAcc {
		cols = append(cols, "acc")
	}
	for i := 0; i < n; i++ {
		cols = append(cols, strconv.Itoa(i))
	}
	return cols
}

// Row formats acc (when non-nil) followed by times.
func Row(acc *float64, times []float64) []string {
	row := make([]string, 0, len(times)+1)
	if acc != nil {
		row = append(row, FormatFloat(*acc))
	}
	for _, t := range times {
		row = append(row, FormatFloat(t))
	}
	return row
}

// WriteCSV writes a single-row data.csv.
func WriteCSV(w io.Writer, acc *float64, times []float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(acc != nil, len(times))); err != nil {
		return err
	}
	if err := cw.Write(Row(acc, times)); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// FormatFloat renders f the way pandas writes float columns: shortest
// round-trip digits, always with a decimal point or exponent (1.0, 0.25, 1e-05).
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ""
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
