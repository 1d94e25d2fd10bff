package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

const (
	logMaxSize    = 10 * 1024 * 1024
	logMaxBackups = 5
)

// RotatingWriter appends to a log file and rotates it through numbered
// backups once it exceeds maxSize. Safe for concurrent writes.
type RotatingWriter struct {
	filename   string
	maxSize    int64
	maxBackups int

	mu   sync.Mutex
	file *os.File
}

// NewRotatingWriter creates a RotatingWriter for the given file.
func NewRotatingWriter(filename string, maxSize int64, maxBackups int) *RotatingWriter {
	return &RotatingWriter{
		filename:   filename,
		maxSize:    maxSize,
		maxBackups: maxBackups,
	}
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if err := w.open(); err != nil {
			// Fall back to stderr rather than losing the line.
			return os.Stderr.Write(p)
		}
	}

	if info, err := w.file.Stat(); err == nil && info.Size() > w.maxSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	return w.file.Write(p)
}

func (w *RotatingWriter) open() error {
	file, err := os.OpenFile(w.filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	w.file = file
	return nil
}

// rotate shifts file.1 -> file.2 and so on, dropping the oldest backup.
func (w *RotatingWriter) rotate() error {
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}

	for i := w.maxBackups - 1; i >= 1; i-- {
		os.Rename(
			fmt.Sprintf("%s.%d", w.filename, i),
			fmt.Sprintf("%s.%d", w.filename, i+1),
		)
	}
	if w.maxBackups > 0 {
		os.Rename(w.filename, w.filename+".1")
	}

	return w.open()
}

// SetupLogger points the global logger at a rotating seabot.log inside
// logDir, mirrored to stderr.
func SetupLogger(logDir string) {
	os.MkdirAll(logDir, 0755)
	writer := NewRotatingWriter(filepath.Join(logDir, "seabot.log"), logMaxSize, logMaxBackups)

	log.SetOutput(io.MultiWriter(os.Stderr, writer))
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
}
