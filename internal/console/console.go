// internal/console/console.go

package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"folderMon/internal/monitor"
)

const prompt = "Enter 'commit', 'info <filename>', 'status', or 'exit': "

// Monitor is the part of *monitor.Monitor the command loop drives.
type Monitor interface {
	Commit() int
	CommitFile(path string) error
	Info(ctx context.Context, path string) (string, error)
	Status() (monitor.StatusReport, error)
	Files() []monitor.FileRecord
	Stop() error
}

// Console is the operator-facing read-eval loop.
type Console struct {
	mon Monitor
	in  io.Reader
	out io.Writer
}

// New creates a console reading commands from in and writing replies to out.
func New(mon Monitor, in io.Reader, out io.Writer) *Console {
	return &Console{mon: mon, in: in, out: out}
}

// Run prompts for commands until exit, end of input or ctx cancellation.
// In every case the monitor is stopped, and its workers joined, before Run
// returns.
func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(c.out, prompt)

		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			return c.shutdown()
		case err := <-readErr:
			fmt.Fprintln(c.out)
			if stopErr := c.shutdown(); stopErr != nil {
				return stopErr
			}
			return err
		case line := <-lines:
			if quit := c.Execute(ctx, line); quit {
				return nil
			}
		}
	}
}

// Execute runs one command line and reports whether the loop should end.
func (c *Console) Execute(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "commit":
		c.commit(arg)
	case "info":
		c.info(ctx, arg)
	case "status":
		c.status()
	case "list":
		c.list()
	case "help":
		c.help()
	case "exit":
		if err := c.shutdown(); err != nil {
			fmt.Fprintf(c.out, "Error stopping monitor: %v\n", err)
		}
		return true
	default:
		fmt.Fprintln(c.out, "Invalid command.")
	}
	return false
}

func (c *Console) commit(path string) {
	if path == "" {
		n := c.mon.Commit()
		fmt.Fprintf(c.out, "Committed %d files.\n", n)
		return
	}
	if err := c.mon.CommitFile(path); err != nil {
		c.reportErr(err)
		return
	}
	fmt.Fprintf(c.out, "Committed %s.\n", path)
}

func (c *Console) info(ctx context.Context, path string) {
	if path == "" {
		fmt.Fprintln(c.out, "Usage: info <filename>")
		return
	}
	report, err := c.mon.Info(ctx, path)
	if err != nil {
		c.reportErr(err)
		return
	}
	fmt.Fprintln(c.out, report)
}

func (c *Console) status() {
	report, err := c.mon.Status()
	if err != nil {
		fmt.Fprintf(c.out, "Failed to update status log: %v\n", err)
	}

	lines := report.Lines()
	if len(lines) == 0 {
		if err == nil {
			fmt.Fprintln(c.out, "No changes since the last snapshot.")
		}
		return
	}
	fmt.Fprintln(c.out, strings.Join(lines, "\n"))
}

func (c *Console) list() {
	files := c.mon.Files()
	if len(files) == 0 {
		fmt.Fprintln(c.out, "No files tracked.")
		return
	}
	for _, f := range files {
		fmt.Fprintf(c.out, "%-8s %s\n", f.Kind, f.Path)
	}
}

func (c *Console) help() {
	fmt.Fprintln(c.out, `Commands:
  commit           snapshot every tracked file
  commit <file>    snapshot one file
  info <file>      show file details
  status           show changes since the last status
  list             list tracked files
  exit             stop monitoring and quit`)
}

func (c *Console) reportErr(err error) {
	if errors.Is(err, monitor.ErrNotFound) {
		fmt.Fprintln(c.out, "File not found.")
		return
	}
	fmt.Fprintf(c.out, "Error: %v\n", err)
}

func (c *Console) shutdown() error {
	fmt.Fprintln(c.out, "Stopping monitor...")
	return c.mon.Stop()
}
