package display

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/backmassage/npy2mat/internal/pipeline"
	"github.com/backmassage/npy2mat/internal/term"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// ResultsTable lists every file of a batch with its outcome.
func ResultsTable(s *pipeline.Summary) string {
	rows := make([][]string, 0, len(s.Results))
	for _, r := range s.Results {
		output, size := "", ""
		if r.Kind == pipeline.Converted {
			output = r.Destination
			size = FormatBytes(r.OutputBytes)
		}
		detail := ""
		if r.Err != nil {
			detail = r.Err.Error()
		}
		rows = append(rows, []string{r.Name, term.Paint(kindColor(r.Kind), r.Kind.String()), output, size, detail})
	}
	return renderTable(
		[]string{"File", "Result", "Output", "Size", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func kindColor(k pipeline.Kind) string {
	switch k {
	case pipeline.Converted:
		return term.Green
	case pipeline.SkippedWrongType:
		return term.Yellow
	default:
		return term.Red
	}
}

// SummaryTable renders the batch counts and byte totals.
func SummaryTable(s *pipeline.Summary) string {
	rows := [][]string{
		{"Files found", FormatCount(s.Total)},
		{"Converted", FormatCount(s.Converted)},
		{"Skipped (wrong type)", FormatCount(s.SkippedWrongType)},
		{"Decode failed", FormatCount(s.DecodeFailed)},
		{"Encode failed", FormatCount(s.EncodeFailed)},
		{"Input size", FormatBytes(s.TotalInputBytes)},
		{"Output size", FormatBytes(s.TotalOutputBytes)},
		{"Elapsed", s.Elapsed.Round(time.Millisecond).String()},
	}
	return renderTable([]string{"Batch " + s.BatchID, "Count"}, rows, []columnAlignment{alignLeft, alignRight})
}

// InspectTable renders header-only inspection rows.
func InspectTable(rows []pipeline.HeaderRow) string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		dtype, shape, order, payload, status := "", "", "", "", "ok"
		if h := r.Header; h != nil {
			dtype = h.Descr()
			shape = FormatShape(h.Shape)
			order = "C"
			if h.FortranOrder {
				order = "F"
			}
			payload = FormatBytes(h.PayloadSize())
			status = fmt.Sprintf("ok (v%d.%d)", h.Major, h.Minor)
		}
		if r.Err != nil {
			status = r.Err.Error()
		}
		out = append(out, []string{r.Name, dtype, shape, order, payload, FormatBytes(r.FileSize), status})
	}
	return renderTable(
		[]string{"File", "DType", "Shape", "Order", "Payload", "File Size", "Status"},
		out,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}
