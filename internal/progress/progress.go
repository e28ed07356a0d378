// Package progress reports upload progress either as terminal bars (CLI) or
// as events on the event bus (browse shell, tests).
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/drivemanager/drivectl/internal/events"
)

// Reporter is the interface for reporting progress of one transfer.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
	SetDescription(desc string)
}

// CLIProgress implements progress reporting for CLI mode using a progress bar.
type CLIProgress struct {
	bar *progressbar.ProgressBar
	out io.Writer
}

// NewCLIProgress creates a new CLI progress reporter writing to stderr.
func NewCLIProgress() *CLIProgress {
	return &CLIProgress{out: os.Stderr}
}

// Start initializes the progress bar with total size and description.
func (p *CLIProgress) Start(total int64, description string) {
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(p.out, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Update updates the progress bar to the current position.
func (p *CLIProgress) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

// Finish completes the progress bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Error displays an error message.
func (p *CLIProgress) Error(err error) {
	if err != nil {
		if p.bar != nil {
			_ = p.bar.Exit()
		}
		fmt.Fprintf(p.out, "\nError: %v\n", err)
	}
}

// SetDescription updates the progress bar description.
func (p *CLIProgress) SetDescription(desc string) {
	if p.bar != nil {
		p.bar.Describe(desc)
	}
}

// EventProgress implements progress reporting through the event bus.
type EventProgress struct {
	eventBus *events.EventBus
	name     string
	folderID string

	mu      sync.Mutex
	total   int64
	current int64
}

// NewEventProgress creates a reporter for the upload of name into folderID.
func NewEventProgress(eventBus *events.EventBus, name, folderID string) *EventProgress {
	return &EventProgress{
		eventBus: eventBus,
		name:     name,
		folderID: folderID,
	}
}

// Start initializes progress tracking.
func (p *EventProgress) Start(total int64, description string) {
	p.mu.Lock()
	p.total = total
	p.current = 0
	p.mu.Unlock()
	p.eventBus.PublishProgress(p.name, p.folderID, 0, total, false)
}

// Update publishes progress update to event bus.
func (p *EventProgress) Update(current int64) {
	p.mu.Lock()
	p.current = current
	total := p.total
	p.mu.Unlock()
	p.eventBus.PublishProgress(p.name, p.folderID, current, total, false)
}

// Finish publishes completion event.
func (p *EventProgress) Finish() {
	p.mu.Lock()
	total := p.total
	p.mu.Unlock()
	p.eventBus.PublishProgress(p.name, p.folderID, total, total, true)
}

// Error publishes error event.
func (p *EventProgress) Error(err error) {
	if err != nil {
		p.eventBus.PublishError("upload "+p.name, err)
	}
}

// SetDescription does nothing; event consumers render the image name.
func (p *EventProgress) SetDescription(desc string) {}

// multiReporter fans every call out to each reporter in order.
type multiReporter []Reporter

// MultiReporter returns a Reporter that forwards to all of reporters.
func MultiReporter(reporters ...Reporter) Reporter {
	return multiReporter(reporters)
}

func (m multiReporter) Start(total int64, description string) {
	for _, r := range m {
		r.Start(total, description)
	}
}

func (m multiReporter) Update(current int64) {
	for _, r := range m {
		r.Update(current)
	}
}

func (m multiReporter) Finish() {
	for _, r := range m {
		r.Finish()
	}
}

func (m multiReporter) Error(err error) {
	for _, r := range m {
		r.Error(err)
	}
}

func (m multiReporter) SetDescription(desc string) {
	for _, r := range m {
		r.SetDescription(desc)
	}
}

// ProgressReader wraps an io.Reader to report progress.
type ProgressReader struct {
	reader   io.Reader
	reporter Reporter
	total    int64
	current  int64
}

// NewProgressReader creates a new progress-reporting reader.
func NewProgressReader(reader io.Reader, total int64, reporter Reporter) *ProgressReader {
	return &ProgressReader{
		reader:   reader,
		reporter: reporter,
		total:    total,
	}
}

// Read implements io.Reader interface with progress reporting.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	pr.reporter.Update(pr.current)
	return n, err
}

// Current returns the number of bytes read so far.
func (pr *ProgressReader) Current() int64 {
	return pr.current
}

// barReporter adapts a FileBarHandle to Reporter so ProgressReader can drive it.
type barReporter struct {
	bar  FileBarHandle
	size int64
}

// BarReporter returns a Reporter that moves bar as bytes are read.
func BarReporter(bar FileBarHandle, size int64) Reporter {
	return &barReporter{bar: bar, size: size}
}

func (r *barReporter) Start(total int64, description string) { r.size = total }
func (r *barReporter) Finish()                               { r.bar.UpdateProgress(1) }
func (r *barReporter) Error(err error)                       {}
func (r *barReporter) SetDescription(desc string)            {}

func (r *barReporter) Update(current int64) {
	if r.size <= 0 {
		return
	}
	r.bar.UpdateProgress(float64(current) / float64(r.size))
}
