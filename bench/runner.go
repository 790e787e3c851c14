package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"text/tabwriter"
)

// Result is the measurement of one case.
type Result struct {
	Suite       string `json:"suite"`
	Case        string `json:"case"`
	N           int    `json:"n"`
	NsPerOp     int64  `json:"ns_per_op"`
	AllocsPerOp int64  `json:"allocs_per_op"`
	BytesPerOp  int64  `json:"bytes_per_op"`
}

// Run measures every case of s with testing.Benchmark. A case whose
// operation fails stops the run.
func Run(s Suite, logger *slog.Logger) ([]Result, error) {
	results := make([]Result, 0, len(s.Cases))
	for _, c := range s.Cases {
		if err := c.Op(); err != nil {
			return results, fmt.Errorf("%s/%s: %w", s.Name, c.Name, err)
		}
		logger.Debug("running case", "suite", s.Name, "case", c.Name)

		var failed error
		r := testing.Benchmark(func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if err := c.Op(); err != nil {
					failed = err
					b.FailNow()
				}
			}
		})
		if failed != nil {
			return results, fmt.Errorf("%s/%s: %w", s.Name, c.Name, failed)
		}
		results = append(results, Result{
			Suite:       s.Name,
			Case:        c.Name,
			N:           r.N,
			NsPerOp:     r.NsPerOp(),
			AllocsPerOp: r.AllocsPerOp(),
			BytesPerOp:  r.AllocedBytesPerOp(),
		})
	}
	return results, nil
}

func WriteText(w io.Writer, results []Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "case\tn\tns/op\tB/op\tallocs/op\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t\n", r.Case, r.N, r.NsPerOp, r.BytesPerOp, r.AllocsPerOp)
	}
	return tw.Flush()
}

func WriteJSON(w io.Writer, results []Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
