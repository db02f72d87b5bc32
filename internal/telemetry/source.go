package telemetry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/flightd/internal/config"
)

// Source yields decoded log records in stream order. Next returns io.EOF
// when the stream is drained. Implementations wrap the external log
// decoder; this core never parses raw log bytes.
type Source interface {
	Next() (*RawRecord, error)
}

// SliceSource serves records from memory. Used in tests and by callers that
// already hold a decoded batch.
type SliceSource struct {
	records []RawRecord
	pos     int
}

// NewSliceSource creates a source over the given records.
func NewSliceSource(records []RawRecord) *SliceSource {
	return &SliceSource{records: records}
}

// Next implements Source.
func (s *SliceSource) Next() (*RawRecord, error) {
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	rec := &s.records[s.pos]
	s.pos++
	return rec, nil
}

// LineError records a skipped undecodable line.
type LineError struct {
	Line int
	Err  string
}

// JSONLSource reads decoded records from a JSONL stream, one record per
// line. Undecodable lines are skipped and recorded, never aborting the
// stream; capped at maxStoredErrors retained entries.
type JSONLSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int

	errs     []LineError
	errCount int
}

const (
	// maxScanTokenSize bounds a single decoded record line.
	maxScanTokenSize = 10 * 1024 * 1024 // 10MB
	maxStoredErrors  = 10
)

// OpenJSONL opens a decoded-record file and validates it against the ingest
// limits. Validation failures map to the ingestion error taxonomy:
// ErrFileNotFound, ErrBadExtension, ErrEmptyLog, ErrLogTooLarge.
func OpenJSONL(path string, cfg config.IngestConfig) (*JSONLSource, error) {
	ext := strings.ToLower(filepath.Ext(path))
	allowed := false
	for _, e := range cfg.AllowedExtensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s", ErrBadExtension, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("opening log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat log: %w", err)
	}
	if info.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrEmptyLog, path)
	}
	if cfg.MaxLogBytes > 0 && info.Size() > cfg.MaxLogBytes {
		f.Close()
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrLogTooLarge, info.Size(), cfg.MaxLogBytes)
	}

	src := NewJSONLSource(f)
	src.closer = f
	return src, nil
}

// NewJSONLSource creates a source over an already-open record stream.
func NewJSONLSource(r io.Reader) *JSONLSource {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, maxScanTokenSize)
	scanner.Buffer(buf, maxScanTokenSize)
	return &JSONLSource{scanner: scanner}
}

// Next implements Source.
func (s *JSONLSource) Next() (*RawRecord, error) {
	for s.scanner.Scan() {
		s.line++
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}

		var rec RawRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			s.errCount++
			if len(s.errs) < maxStoredErrors {
				s.errs = append(s.errs, LineError{Line: s.line, Err: err.Error()})
			}
			continue
		}
		if rec.Type == "" {
			s.errCount++
			if len(s.errs) < maxStoredErrors {
				s.errs = append(s.errs, LineError{Line: s.line, Err: "missing record type"})
			}
			continue
		}
		return &rec, nil
	}

	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning records: %w", err)
	}
	return nil, io.EOF
}

// Errors returns the retained line errors (capped) and the total count.
func (s *JSONLSource) Errors() ([]LineError, int) {
	return s.errs, s.errCount
}

// Close closes the underlying file, if any.
func (s *JSONLSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
