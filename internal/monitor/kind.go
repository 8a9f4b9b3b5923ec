// internal/monitor/kind.go

package monitor

import (
	"path/filepath"
	"strings"
)

// Kind classifies a tracked file. It is decided once, from the file name,
// when the record is created.
type Kind int

const (
	KindGeneric Kind = iota
	KindText
	KindImage
	KindProgram
)

var kindNames = map[Kind]string{
	KindGeneric: "generic",
	KindText:    "text",
	KindImage:   "image",
	KindProgram: "program",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalText lets kinds show up by name in JSON responses.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// kindByExt maps lower-cased extensions to kinds. Anything missing is Generic.
var kindByExt = map[string]Kind{
	".txt":  KindText,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".py":   KindProgram,
	".java": KindProgram,
}

// Classify returns the kind for a file name. It never touches the filesystem.
func Classify(name string) Kind {
	if kind, ok := kindByExt[strings.ToLower(filepath.Ext(name))]; ok {
		return kind
	}
	return KindGeneric
}
