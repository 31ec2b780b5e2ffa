package shell

import (
	"bufio"
	"fmt"
	"io"

	"github.com/xtxerr/rrdb/internal/storage"
	"github.com/xtxerr/rrdb/internal/storage/types"
)

// WriteResults writes one "<bucket start seconds>:<value>" line per bucket,
// oldest first. The last line is the open bucket.
func WriteResults(w io.Writer, results []types.Result) error {
	bw := bufio.NewWriter(w)
	for _, r := range results {
		fmt.Fprintf(bw, "%d:%f\n", r.StartSeconds(), r.Value)
	}
	return bw.Flush()
}

// WriteSamples writes one "<seconds>.<millis>:<v0>:<v1>..." line per raw
// sample, oldest first.
func WriteSamples(w io.Writer, samples []types.Sample) error {
	bw := bufio.NewWriter(w)
	for _, s := range samples {
		sec, ms := s.TimestampMs/1000, s.TimestampMs%1000
		if ms < 0 {
			sec, ms = sec-1, ms+1000
		}
		fmt.Fprintf(bw, "%d.%03d", sec, ms)
		for _, v := range s.Values {
			fmt.Fprintf(bw, ":%f", v)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteExport writes one "<path> <rows>" line per exported file.
func WriteExport(w io.Writer, res *storage.ExportResult) error {
	bw := bufio.NewWriter(w)
	for _, f := range res.Files {
		fmt.Fprintf(bw, "%s %d\n", f.Path, f.Rows)
	}
	return bw.Flush()
}
