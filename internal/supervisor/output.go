package supervisor

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
)

// tail keeps the most recent lines written by a process.
type tail struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newTail(max int) *tail {
	return &tail{max: max}
}

func (t *tail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if over := len(t.lines) - t.max; over > 0 {
		t.lines = append(t.lines[:0:0], t.lines[over:]...)
	}
}

func (t *tail) snapshot() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}

// lineWriter splits a process stream into lines, logging each at debug
// level and recording it in the tail.
type lineWriter struct {
	mu     sync.Mutex
	stream string
	logger *slog.Logger
	tail   *tail
	buf    []byte
}

func newLineWriter(stream string, logger *slog.Logger, t *tail) *lineWriter {
	return &lineWriter{stream: stream, logger: logger, tail: t}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	// A process that never writes a newline must not grow the buffer forever.
	if len(w.buf) > 64*1024 {
		w.emit(string(w.buf))
		w.buf = nil
	}
	return len(p), nil
}

// flush emits a trailing partial line.
func (w *lineWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.emit(string(w.buf))
		w.buf = nil
	}
}

func (w *lineWriter) emit(line string) {
	line = strings.TrimRight(line, "\r")
	w.logger.Debug("server output", "stream", w.stream, "line", line)
	w.tail.add("[" + w.stream + "] " + line)
}
