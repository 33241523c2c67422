package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/rb-autogen/internal/pipeline"
)

// CLIProgressReporter implements pipeline progress reporting with progress bars.
type CLIProgressReporter struct {
	quiet    bool
	out      io.Writer
	parseBar *progressbar.ProgressBar
	walkBar  *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a new CLI progress reporter writing to stderr.
func NewCLIProgressReporter(quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{quiet: quiet, out: os.Stderr}
}

func (c *CLIProgressReporter) newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnParseStart(totalFiles int) {
	if c.quiet {
		return
	}
	c.parseBar = c.newBar(totalFiles, "Parsing files")
}

func (c *CLIProgressReporter) OnFileParsed(fileName string) {
	if c.quiet {
		return
	}
	if c.parseBar != nil {
		c.parseBar.Add(1)
	}
}

func (c *CLIProgressReporter) OnWalkStart(totalFiles int) {
	if c.quiet {
		return
	}
	if c.parseBar != nil {
		c.parseBar.Finish()
	}
	c.walkBar = c.newBar(totalFiles, "Resolving constants")
}

func (c *CLIProgressReporter) OnFileWalked(fileName string) {
	if c.quiet {
		return
	}
	if c.walkBar != nil {
		c.walkBar.Add(1)
	}
}

func (c *CLIProgressReporter) OnComplete(stats *pipeline.Stats) {
	if c.quiet {
		return
	}
	if c.walkBar != nil {
		c.walkBar.Finish()
	}

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "✓ Analysis complete: %s files in %.1fs\n",
		formatNumber(stats.Files), stats.Duration.Seconds())
	fmt.Fprintf(c.out, "  Definitions: %s\n", formatNumber(stats.Definitions))
	fmt.Fprintf(c.out, "  References:  %s\n", formatNumber(stats.References))
	fmt.Fprintf(c.out, "  Autoloads:   %s\n", formatNumber(stats.TrieNodes))
	if stats.Skipped > 0 {
		fmt.Fprintf(c.out, "  Skipped:     %s\n", formatNumber(stats.Skipped))
	}
}

// formatNumber formats a number with thousands separators.
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return formatNumber(n/1000) + fmt.Sprintf(",%03d", n%1000)
}
