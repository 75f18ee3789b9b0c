package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/panel-ledger/internal/engine"
)

// ReclassifyProgress renders batch progress from a reclassification run.
// With no limit the total is unknown and the bar shows as a spinner.
type ReclassifyProgress struct {
	bar    *progressbar.ProgressBar
	writer io.Writer
	last   engine.BatchProgress
}

// NewReclassifyProgress creates a progress bar sized to limit (0 for unknown).
func NewReclassifyProgress(writer io.Writer, limit int, dryRun bool) *ReclassifyProgress {
	if writer == nil {
		writer = os.Stderr
	}
	total := -1
	if limit > 0 {
		total = limit
	}

	desc := "[cyan][bold]Reclassifying actions...[reset]"
	if dryRun {
		desc = "[cyan][bold]Previewing reclassification...[reset]"
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(writer)
		}),
	)

	return &ReclassifyProgress{bar: bar, writer: writer}
}

// Update advances the bar to the processed count in p. It matches the
// engine.RunOptions OnProgress signature.
func (p *ReclassifyProgress) Update(bp engine.BatchProgress) {
	p.last = bp
	p.bar.Describe(fmt.Sprintf("[cyan][bold]Batch %d[reset] %d rescued", bp.Batch, bp.Changed))
	_ = p.bar.Set(bp.Processed)
}

// Last returns the most recent progress report.
func (p *ReclassifyProgress) Last() engine.BatchProgress {
	return p.last
}

// Finish completes the bar.
func (p *ReclassifyProgress) Finish() {
	_ = p.bar.Finish()
}
