package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/spf13/cobra"

	"mindmovie/internal/assets"
	"mindmovie/internal/cost"
)

// terminalUI is the pipeline's view of the terminal. On a TTY clip progress
// is drawn as a tracker; otherwise one line is printed per finished scene.
type terminalUI struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool

	readerOnce sync.Once
	lines      chan lineResult

	mu       sync.Mutex
	writer   progress.Writer
	tracker  *progress.Tracker
	total    int
	finished int
	failed   int
}

func newTerminalUI(cmd *cobra.Command) *terminalUI {
	out := cmd.OutOrStdout()
	return &terminalUI{
		in:          bufio.NewReader(cmd.InOrStdin()),
		out:         out,
		interactive: shouldColorize(out),
	}
}

type lineResult struct {
	line string
	err  error
}

// nextLine waits for the next input line. A single goroutine owns the reader,
// so a read cut short by ctx leaves the line for the following call.
func (u *terminalUI) nextLine(ctx context.Context) (lineResult, error) {
	u.readerOnce.Do(func() {
		u.lines = make(chan lineResult)
		go u.readLines()
	})
	select {
	case <-ctx.Done():
		return lineResult{}, ctx.Err()
	case r, ok := <-u.lines:
		if !ok {
			return lineResult{err: io.EOF}, nil
		}
		return r, nil
	}
}

func (u *terminalUI) readLines() {
	defer close(u.lines)
	for {
		line, err := u.in.ReadString('\n')
		u.lines <- lineResult{line: line, err: err}
		if err != nil {
			return
		}
	}
}

// ReadLine reads one line of user input. A cancelled context returns at once.
func (u *terminalUI) ReadLine(ctx context.Context) (string, error) {
	fmt.Fprint(u.out, "\n> ")
	r, err := u.nextLine(ctx)
	if err != nil {
		return "", err
	}
	if r.err == io.EOF && r.line != "" {
		r.err = nil
	}
	return strings.TrimRight(r.line, "\r\n"), r.err
}

func (u *terminalUI) ShowMessage(message string) {
	fmt.Fprintf(u.out, "\n%s\n", message)
}

func (u *terminalUI) ConfirmCost(ctx context.Context, estimate cost.Breakdown) (bool, error) {
	fmt.Fprintf(u.out, "\nEstimated cost:\n%s\n", estimate.FormatSummary())
	return u.confirm(ctx, "Proceed with video generation?")
}

// confirm asks a yes/no question. Anything but y/yes, including end of
// input, is a no.
func (u *terminalUI) confirm(ctx context.Context, question string) (bool, error) {
	fmt.Fprintf(u.out, "%s [y/N]: ", question)
	r, err := u.nextLine(ctx)
	if err != nil {
		return false, err
	}
	if r.err != nil && r.line == "" {
		fmt.Fprintln(u.out)
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(r.line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (u *terminalUI) VideosStarting(pending, total int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.total, u.finished, u.failed = pending, 0, 0
	if pending == 0 {
		return
	}
	if !u.interactive {
		fmt.Fprintf(u.out, "Generating %d of %d clips...\n", pending, total)
		return
	}
	pw := progress.NewWriter()
	pw.SetOutputWriter(u.out)
	pw.SetAutoStop(true)
	pw.SetTrackerLength(30)
	pw.SetUpdateFrequency(200 * time.Millisecond)
	pw.SetStyle(progress.StyleDefault)
	u.tracker = &progress.Tracker{
		Message: "Generating clips",
		Total:   int64(pending),
		Units:   progress.UnitsDefault,
	}
	pw.AppendTracker(u.tracker)
	u.writer = pw
	go pw.Render()
}

func (u *terminalUI) SceneFinished(r assets.Result) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.finished++
	if r.Err != nil {
		u.failed++
	}
	if u.tracker != nil {
		if r.Err != nil {
			u.writer.Log("Scene %d failed: %s", r.SceneIndex, r.Message)
		}
		u.tracker.Increment(1)
		return
	}
	if r.Err != nil {
		fmt.Fprintf(u.out, "  [%d/%d] scene %d failed: %s\n", u.finished, u.total, r.SceneIndex, r.Message)
		return
	}
	fmt.Fprintf(u.out, "  [%d/%d] scene %d done\n", u.finished, u.total, r.SceneIndex)
}

// finishProgress waits for the tracker to draw its final state.
func (u *terminalUI) finishProgress() {
	u.mu.Lock()
	pw, tracker := u.writer, u.tracker
	u.writer, u.tracker = nil, nil
	u.mu.Unlock()
	if pw == nil {
		return
	}
	if !tracker.IsDone() {
		tracker.MarkAsDone()
	}
	deadline := time.Now().Add(2 * time.Second)
	for pw.IsRenderInProgress() && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	pw.Stop()
}
