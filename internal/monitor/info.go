// internal/monitor/info.go

package monitor

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"folderMon/internal/driver"
)

// infoRenderer produces the kind-specific line of an info report.
type infoRenderer func(ctx context.Context, path string) (string, error)

var programDriver = driver.NewTreeSitterDriver()

// infoRenderers has one entry per Kind. A new kind needs a case here and an
// extension in kindByExt, nothing else.
var infoRenderers = map[Kind]infoRenderer{
	KindText:    textInfo,
	KindImage:   imageInfo,
	KindProgram: programInfo,
	KindGeneric: genericInfo,
}

// RenderInfo builds the two-line info report for rec. A file that vanished
// since it was looked up is reported as ErrNotFound.
func RenderInfo(ctx context.Context, rec FileRecord) (string, error) {
	st, err := os.Stat(rec.absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", rec.Path, ErrNotFound)
		}
		return "", err
	}

	header := fmt.Sprintf("%s - Size: %d bytes, Last Modified: %s, Snapshot: %s",
		rec.Path, st.Size(), st.ModTime().Format(TimeLayout), formatSnapshot(rec.SnapshotTime))

	render, ok := infoRenderers[rec.Kind]
	if !ok {
		render = genericInfo
	}
	detail, err := render(ctx, rec.absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", rec.Path, ErrNotFound)
		}
		detail = fmt.Sprintf("Error: %v", err)
	}

	return header + "\n" + detail, nil
}

// TextStats are the counts reported for text files.
type TextStats struct {
	Lines int
	Words int
	Chars int
}

func (s TextStats) String() string {
	return fmt.Sprintf("Line count: %d, Word count: %d, Character count: %d", s.Lines, s.Words, s.Chars)
}

// CountText computes line, word and character counts. Characters are runes
// and a CRLF line ending counts as one character.
func CountText(content string) TextStats {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return TextStats{
		Lines: driver.CountLines(content),
		Words: len(strings.Fields(content)),
		Chars: utf8.RuneCountInString(content),
	}
}

func textInfo(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return CountText(string(data)).String(), nil
}

func imageInfo(_ context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", err
	}

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Sprintf("File Size: %d bytes", st.Size()), nil
	}
	return fmt.Sprintf("Image Size: %dx%d, File Size: %d bytes (%s)",
		cfg.Width, cfg.Height, st.Size(), strings.ToUpper(format)), nil
}

func programInfo(ctx context.Context, path string) (string, error) {
	if !programDriver.Supports(path) {
		return "File type not supported", nil
	}
	stats, err := programDriver.Analyze(ctx, path)
	if err != nil {
		return "", err
	}
	return stats.String(), nil
}

func genericInfo(context.Context, string) (string, error) {
	return "File type not supported", nil
}
