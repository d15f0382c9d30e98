package sweep

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteCSV writes one row per point: its assignments, the final sample of
// every probe and the error, if any. Columns follow first appearance.
func WriteCSV(w io.Writer, results []PointResult, probes []Probe) error {
	var params []string
	seen := make(map[string]bool)
	for _, r := range results {
		for _, a := range r.Point {
			if !seen[a.Name] {
				seen[a.Name] = true
				params = append(params, a.Name)
			}
		}
	}

	cw := csv.NewWriter(w)

	header := append([]string{"point"}, params...)
	for _, p := range probes {
		header = append(header, p.Label())
	}
	header = append(header, "error")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		values := make(map[string]string, len(r.Point))
		for _, a := range r.Point {
			values[a.Name] = a.Value
		}

		row := []string{strconv.Itoa(r.Index)}
		for _, name := range params {
			row = append(row, values[name])
		}
		for _, p := range probes {
			cell := ""
			if s, ok := r.Probes[p.Label()]; ok {
				if v, ok := s.Last(); ok {
					cell = strconv.FormatFloat(v, 'g', -1, 64)
				}
			}
			row = append(row, cell)
		}
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		row = append(row, errText)

		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
