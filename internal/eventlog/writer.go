// Package eventlog provides an append-only JSON-lines event log writer and reader.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/akshitanchan/fpp-arrivals/internal/domain"
)

// Writer writes events as JSON lines to a file.
type Writer struct {
	file   *os.File
	writer *bufio.Writer
	enc    *json.Encoder
	count  uint64
}

// NewWriter creates a new event log writer at the given path.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create event log: %w", err)
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	return &Writer{
		file:   f,
		writer: bw,
		enc:    json.NewEncoder(bw),
	}, nil
}

// Write appends an event to the log. The encoder terminates each record
// with a newline.
func (w *Writer) Write(event *domain.Event) error {
	if err := w.enc.Encode(event); err != nil {
		return fmt.Errorf("encode event %d: %w", event.SeqNo, err)
	}
	w.count++
	return nil
}

// Close flushes and closes the log file.
func (w *Writer) Close() error {
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// Count returns the number of events written.
func (w *Writer) Count() uint64 {
	return w.count
}

// Reader reads events from a JSON-lines event log.
type Reader struct {
	file    *os.File
	scanner *bufio.Scanner
	line    int
}

// NewReader opens an event log for reading.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Reader{
		file:    f,
		scanner: scanner,
	}, nil
}

// Next reads the next event. Returns nil, io.EOF at end of log.
func (r *Reader) Next() (*domain.Event, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	r.line++
	var event domain.Event
	if err := json.Unmarshal(r.scanner.Bytes(), &event); err != nil {
		return nil, fmt.Errorf("unmarshal event on line %d: %w", r.line, err)
	}
	return &event, nil
}

// ReadAll reads all events from the log.
func (r *Reader) ReadAll() ([]*domain.Event, error) {
	var events []*domain.Event
	for {
		e, err := r.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, e)
	}
}

// Close closes the log file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadFile reads every event of the log at path.
func ReadFile(path string) ([]*domain.Event, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadAll()
}
