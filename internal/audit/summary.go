// internal/audit/summary.go
package audit

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteSummaryCSV renders the audit entries as the run's tabular summary
// report: one row per chunk, one column per issue type seen anywhere.
func WriteSummaryCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	cols := IssueColumns(entries)
	header := append([]string{"filename", "chunk_idx"}, cols...)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for _, e := range entries {
		row[0] = e.Filename
		row[1] = strconv.Itoa(e.ChunkIdx)
		for i, c := range cols {
			row[2+i] = strconv.Itoa(e.Issues[c])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
