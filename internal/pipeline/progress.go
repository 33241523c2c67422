package pipeline

import "time"

// ProgressReporter provides callbacks for reporting pipeline progress.
// Implementations can display progress bars, log messages, or remain silent.
type ProgressReporter interface {
	// OnParseStart is called before sources are parsed.
	OnParseStart(totalFiles int)

	// OnFileParsed is called after each file is parsed (or skipped).
	OnFileParsed(fileName string)

	// OnWalkStart is called before files are resolved and walked.
	OnWalkStart(totalFiles int)

	// OnFileWalked is called after each file's graph is extracted.
	OnFileWalked(fileName string)

	// OnComplete is called when the run completes successfully.
	OnComplete(stats *Stats)
}

// Stats summarizes one run.
type Stats struct {
	Files       int
	Skipped     int
	CacheHits   int
	Symbols     int
	Definitions int
	References  int
	TrieNodes   int
	Duration    time.Duration
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnParseStart(totalFiles int)  {}
func (n *NoOpProgressReporter) OnFileParsed(fileName string) {}
func (n *NoOpProgressReporter) OnWalkStart(totalFiles int)   {}
func (n *NoOpProgressReporter) OnFileWalked(fileName string) {}
func (n *NoOpProgressReporter) OnComplete(stats *Stats)      {}
