package bench

import (
	"io"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/shivanshkc/esbench/pkg/utils/miscutils"
)

// Reporter receives the result of each parameter set as soon as it is known.
type Reporter interface {
	Report(Result)
}

// TableReporter keeps the results and renders them as a table.
type TableReporter struct {
	mu      sync.Mutex
	results []Result
}

// Report stores the result.
func (t *TableReporter) Report(result Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.results = append(t.results, result)
}

// Render writes the table of all stored results to w.
func (t *TableReporter) Render(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{
		"Batch Size", "Batch Count", "Parallel", "Total Items", "Elapsed", "Items/s",
		"Avg", "P50", "P99", "Max", "Status",
	})

	for _, r := range t.results {
		status := text.FgGreen.Sprint("OK")
		if r.Err != nil {
			status = text.FgRed.Sprint("FAILED")
		}

		tw.AppendRow(table.Row{
			r.Params.BatchSize, r.Params.BatchCount, r.Params.ParallelCount, r.TotalItems(),
			miscutils.FormatDuration(r.Elapsed), miscutils.FormatRate(r.Throughput()),
			miscutils.FormatDuration(r.Latency.Avg), miscutils.FormatDuration(r.Latency.Med),
			miscutils.FormatDuration(r.Latency.P99), miscutils.FormatDuration(r.Latency.Max),
			status,
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	tw.Render()
}
