// Package trial holds the measurement logic around one runner invocation:
// scraping runtime lines, scoring prediction dumps and laying out data.csv.
package trial

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/stanford-futuredata/smol/internal/domain"
)

// RuntimeMarker identifies stderr lines that report elapsed seconds in their
// last token.
const RuntimeMarker = "Runtime"

// Runtimes is what was scraped from one stderr stream.
type Runtimes struct {
	Values    []float64
	Malformed int
}

// Total sums every parsed value; an empty set is zero.
func (r Runtimes) Total() float64 {
	var sum float64
	for _, v := range r.Values {
		sum += v
	}
	return sum
}

// ParseRuntimes scans r for runtime lines. Values that are not finite
// numbers count as malformed.
func ParseRuntimes(r io.Reader) (Runtimes, error) {
	var out Runtimes
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, RuntimeMarker) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			out.Malformed++
			continue
		}
		v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			out.Malformed++
			continue
		}
		out.Values = append(out.Values, v)
	}
	return out, sc.Err()
}

// ParseRuntimesFile is ParseRuntimes over a stderr capture file.
func ParseRuntimesFile(path string) (Runtimes, error) {
	f, err := os.Open(path)
	if err != nil {
		return Runtimes{}, &domain.OpError{
			Op:   "trial.parse_runtimes",
			Kind: domain.KindNotFound,
			Path: path,
			Err:  err,
		}
	}
	defer f.Close()

	rt, err := ParseRuntimes(f)
	if err != nil {
		return rt, &domain.OpError{
			Op:   "trial.parse_runtimes",
			Kind: domain.KindExecution,
			Path: path,
			Err:  err,
		}
	}
	return rt, nil
}
