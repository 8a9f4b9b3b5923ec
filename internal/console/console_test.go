package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"folderMon/internal/monitor"
)

type fakeMonitor struct {
	files     []monitor.FileRecord
	infos     map[string]string
	report    monitor.StatusReport
	statusErr error
	commits   []string
	stopped   int
}

func (f *fakeMonitor) Commit() int {
	f.commits = append(f.commits, "*")
	return len(f.files)
}

func (f *fakeMonitor) CommitFile(path string) error {
	if _, ok := f.infos[path]; !ok {
		return fmt.Errorf("%s: %w", path, monitor.ErrNotFound)
	}
	f.commits = append(f.commits, path)
	return nil
}

func (f *fakeMonitor) Info(_ context.Context, path string) (string, error) {
	info, ok := f.infos[path]
	if !ok {
		return "", fmt.Errorf("%s: %w", path, monitor.ErrNotFound)
	}
	return info, nil
}

func (f *fakeMonitor) Status() (monitor.StatusReport, error) {
	r := f.report
	f.report = monitor.StatusReport{}
	return r, f.statusErr
}

func (f *fakeMonitor) Files() []monitor.FileRecord { return f.files }

func (f *fakeMonitor) Stop() error {
	f.stopped++
	return nil
}

func run(t *testing.T, mon Monitor, input string) string {
	t.Helper()
	var out bytes.Buffer
	if err := New(mon, strings.NewReader(input), &out).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String()
}

func TestExecuteCommands(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	fake := &fakeMonitor{
		files: []monitor.FileRecord{{Path: "a.txt", Kind: monitor.KindText}},
		infos: map[string]string{"a.txt": "a.txt - Size: 1 bytes\nLine count: 1, Word count: 1, Character count: 1"},
		report: monitor.StatusReport{Events: []monitor.ChangeEvent{
			{Type: monitor.EventAdded, Path: "b.png", Timestamp: at},
		}},
	}

	tests := []struct {
		line string
		want string
	}{
		{"commit", "Committed 1 files.\n"},
		{"commit a.txt", "Committed a.txt.\n"},
		{"commit nope.txt", "File not found.\n"},
		{"info a.txt", fake.infos["a.txt"] + "\n"},
		{"  info   a.txt  ", fake.infos["a.txt"] + "\n"},
		{"info missing.txt", "File not found.\n"},
		{"info", "Usage: info <filename>\n"},
		{"status", "b.png was added at 2024-01-02 03:04:05\n"},
		{"status", "No changes since the last snapshot.\n"},
		{"list", "text     a.txt\n"},
		{"frobnicate", "Invalid command.\n"},
		{"", "Invalid command.\n"},
		{"   ", "Invalid command.\n"},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		c := New(fake, strings.NewReader(""), &out)
		if quit := c.Execute(context.Background(), tt.line); quit {
			t.Fatalf("%q ended the loop", tt.line)
		}
		if out.String() != tt.want {
			t.Errorf("%q printed %q, want %q", tt.line, out.String(), tt.want)
		}
	}
	if fake.stopped != 0 {
		t.Errorf("Stop called %d times", fake.stopped)
	}
}

func TestStatusReportsLogFailure(t *testing.T) {
	fake := &fakeMonitor{statusErr: errors.New("disk full")}
	var out bytes.Buffer
	New(fake, strings.NewReader(""), &out).Execute(context.Background(), "status")
	if want := "Failed to update status log: disk full\n"; out.String() != want {
		t.Errorf("printed %q, want %q", out.String(), want)
	}
}

func TestListEmpty(t *testing.T) {
	var out bytes.Buffer
	New(&fakeMonitor{}, strings.NewReader(""), &out).Execute(context.Background(), "list")
	if out.String() != "No files tracked.\n" {
		t.Errorf("printed %q", out.String())
	}
}

func TestRunExitStopsMonitor(t *testing.T) {
	fake := &fakeMonitor{}
	out := run(t, fake, "bogus\nexit\nstatus\n")

	if fake.stopped != 1 {
		t.Fatalf("Stop called %d times, want 1", fake.stopped)
	}
	if strings.Count(out, prompt) != 2 {
		t.Errorf("prompts = %d, want 2 (nothing runs after exit)", strings.Count(out, prompt))
	}
	if !strings.Contains(out, "Invalid command.") || !strings.HasSuffix(out, "Stopping monitor...\n") {
		t.Errorf("output = %q", out)
	}
}

func TestRunEndOfInputStopsMonitor(t *testing.T) {
	fake := &fakeMonitor{}
	out := run(t, fake, "help\n")

	if fake.stopped != 1 {
		t.Fatalf("Stop called %d times, want 1", fake.stopped)
	}
	if !strings.Contains(out, "commit <file>") {
		t.Errorf("help missing from %q", out)
	}
}

func TestRunContextCancelStopsMonitor(t *testing.T) {
	fake := &fakeMonitor{}
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(fake, pr, io.Discard).Run(ctx)
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run ignored cancellation")
	}
	if fake.stopped != 1 {
		t.Fatalf("Stop called %d times, want 1", fake.stopped)
	}
}

func TestConsoleAgainstRealMonitor(t *testing.T) {
	root := t.TempDir()
	content := "alpha beta gamma\nthe quick brown fox\njumps over me!\n"
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := monitor.DefaultConfig()
	cfg.RootPath = root
	cfg.LogFile = filepath.Join(t.TempDir(), "status_log.txt")
	mon, err := monitor.NewMonitor(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := mon.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	out := run(t, mon, "info notes.txt\ninfo missing.txt\nstatus\nexit\n")

	for _, want := range []string{
		"notes.txt - Size: 52 bytes, Last Modified: ",
		"Line count: 3, Word count: 10, Character count: 52\n",
		"File not found.\n",
		"No changes since the last snapshot.\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if mon.IsRunning() {
		t.Error("monitor still running after exit")
	}
}
