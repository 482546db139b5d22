package util

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	goterm "github.com/buger/goterm"
	log "github.com/sirupsen/logrus"

	"github.com/modpack-run/modsync/pkg/errors"
)

// HandleFatalError prints err and exits. Errors carrying a friendly message
// are printed as-is; everything else gets the full context chain.
func HandleFatalError(err error) {
	if msg, ok := errors.GetFriendlyMessage(err); ok {
		fmt.Fprintln(os.Stderr, msg)
	} else {
		fmt.Fprintf(os.Stderr, "Fatal error: %s\n", err)
	}
	os.Exit(1)
}

// HandlePanic recovers from panics in the main goroutine so that users see
// a report request rather than a raw stack trace mid-output.
func HandlePanic() {
	r := recover()
	if r == nil {
		return
	}

	log.WithField("panic", r).Error("Unexpected crash. Please report this.")
	fmt.Fprintf(os.Stderr, "%s\n", debug.Stack())
	os.Exit(1)
}

// A ProgressPrinter keeps a long-running step visibly alive by printing a
// dot every interval until it's stopped.
type ProgressPrinter struct {
	out     io.Writer
	message string
	stop    chan struct{}
	done    chan struct{}
}

// NewProgressPrinter creates a progress printer for the given message.
func NewProgressPrinter(out io.Writer, message string) *ProgressPrinter {
	return &ProgressPrinter{
		out:     out,
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Run prints the message and then a dot each second until Stop is called.
// It's meant to run in its own goroutine.
func (pp *ProgressPrinter) Run() {
	defer close(pp.done)
	fmt.Fprint(pp.out, pp.message)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fmt.Fprint(pp.out, ".")
		case <-pp.stop:
			fmt.Fprintln(pp.out)
			return
		}
	}
}

// Stop terminates the printer and waits for its final newline.
func (pp *ProgressPrinter) Stop() {
	close(pp.stop)
	<-pp.done
}

// RenderDownloadProgress redraws an in-place progress line for the file
// currently downloading. With an unknown total only the byte count is shown.
func RenderDownloadProgress(out io.Writer, name string, done, total int64) {
	if total <= 0 {
		fmt.Fprintf(out, "\r%s  %s", name, FormatBytes(done))
		return
	}

	width := goterm.Width() - len(name) - 20
	if width < 10 {
		width = 10
	}

	filled := int(int64(width) * done / total)
	bar := make([]byte, width)
	for i := range bar {
		if i < filled {
			bar[i] = '='
		} else {
			bar[i] = ' '
		}
	}
	fmt.Fprintf(out, "\r%s  [%s] %3d%%", name, bar, 100*done/total)
}

// FormatBytes renders a byte count in a human-friendly unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
