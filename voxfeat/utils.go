package voxfeat

import (
	"fmt"
	"path/filepath"
)

const (
	Kilo = 1 << 10
	Mega = 1 << 20
	Giga = 1 << 30
	Tera = 1 << 40
)

// MessageHandler receives human-readable progress messages from long-running operations.
// Delivery is one-way and fire-and-forget.
type MessageHandler func(msg string)

// Messenger wraps an optional MessageHandler so callers need not check for nil.
type Messenger struct {
	Handler MessageHandler
	Prefix  string
}

// Send formats a message and delivers it to the handler, if any.  Messages are
// also logged at debug level.
func (m Messenger) Send(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if m.Prefix != "" {
		msg = m.Prefix + ": " + msg
	}
	Debugf("%s\n", msg)
	if m.Handler != nil {
		m.Handler(msg)
	}
}

// ConvertToAbsolute returns an absolute path by joining a relative path to
// the given base directory.  Absolute paths are returned unchanged.
func ConvertToAbsolute(path, baseDir string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path cannot be made absolute")
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Abs(filepath.Join(baseDir, path))
}
