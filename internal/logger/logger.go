// Package logger provides the process log writer: everything goes to
// stdout and to <dir>/latest.txt, and the previous run's log is kept as
// <dir>/last.txt.
package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

type Logger struct {
	mu   sync.Mutex
	out  io.Writer
	file *os.File
}

// New rotates the old log and opens a fresh one in dir.
// If the file can't be opened only out is written.
func New(dir string, out io.Writer) *Logger {
	os.Mkdir(dir, 0777)
	os.Rename(filepath.Join(dir, "latest.txt"), filepath.Join(dir, "last.txt"))

	l := &Logger{out: out}

	f, err := os.OpenFile(filepath.Join(dir, "latest.txt"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err == nil {
		l.file = f
	}

	return l
}

func (l *Logger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out != nil {
		l.out.Write(p)
	}
	if l.file != nil {
		l.file.Write(p)
	}

	return len(p), nil
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	err := l.file.Close()
	l.file = nil
	return err
}

// Setup installs a Logger for dir as the output of the standard logger.
func Setup(dir string) *Logger {
	l := New(dir, os.Stdout)
	log.SetOutput(l)
	return l
}
