package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const pythonSource = `import os

class Greeter:
    def __init__(self, name):
        self.name = name

    def hello(self):
        return "hi " + self.name

class Empty:
    pass

def main():
    print(Greeter("x").hello())
`

const javaSource = `package demo;

public class Shapes {
    private int n;

    public Shapes() {
        n = 0;
    }

    public int count() {
        return n;
    }

    static class Circle {
        double area() { return 0; }
    }
}
`

func TestAnalyzeSource(t *testing.T) {
	d := NewTreeSitterDriver()
	tests := []struct {
		ext  string
		src  string
		want ProgramStats
	}{
		{".py", pythonSource, ProgramStats{Language: "python", Lines: 14, Classes: 2, Methods: 3}},
		{".java", javaSource, ProgramStats{Language: "java", Lines: 17, Classes: 2, Methods: 3}},
		{".PY", "", ProgramStats{Language: "python"}},
	}
	for _, tt := range tests {
		got, err := d.AnalyzeSource(context.Background(), tt.ext, []byte(tt.src))
		if err != nil {
			t.Fatalf("AnalyzeSource(%s): %v", tt.ext, err)
		}
		if got != tt.want {
			t.Errorf("AnalyzeSource(%s) = %+v, want %+v", tt.ext, got, tt.want)
		}
	}
}

func TestAnalyzeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greet.py")
	if err := os.WriteFile(path, []byte(pythonSource), 0644); err != nil {
		t.Fatal(err)
	}

	d := NewTreeSitterDriver()
	stats, err := d.Analyze(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "Line count: 14, Class count: 2, Method count: 3"; stats.String() != want {
		t.Errorf("String() = %q, want %q", stats.String(), want)
	}

	if _, err := d.Analyze(context.Background(), filepath.Join(t.TempDir(), "none.py")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestUnsupportedExtension(t *testing.T) {
	d := NewTreeSitterDriver()
	if d.Supports("main.go") {
		t.Error("Supports(main.go) = true")
	}
	if !d.Supports("Main.JAVA") {
		t.Error("Supports(Main.JAVA) = false")
	}
	if _, err := d.AnalyzeSource(context.Background(), ".go", []byte("package main")); err == nil {
		t.Error("expected an error for .go")
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"one", 1},
		{"one\n", 1},
		{"one\ntwo", 2},
		{"one\ntwo\n", 2},
		{"\n", 1},
		{"\n\n", 2},
	}
	for _, tt := range tests {
		if got := CountLines(tt.in); got != tt.want {
			t.Errorf("CountLines(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
