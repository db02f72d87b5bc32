package telemetry

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/flightd/internal/config"
)

func drain(t *testing.T, src Source) []RawRecord {
	t.Helper()
	var out []RawRecord
	for {
		rec, err := src.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, *rec)
	}
}

func TestJSONLSource_ReadsRecords(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"GPS","timestamp":1.5,"fields":{"Lat":51.5,"Alt":10}}`,
		``,
		`{"type":"ATT","timestamp":1.6,"fields":{"Roll":0.1}}`,
	}, "\n")

	src := NewJSONLSource(strings.NewReader(input))
	records := drain(t, src)

	require.Len(t, records, 2)
	assert.Equal(t, "GPS", records[0].Type)
	assert.InDelta(t, 1.5, records[0].Timestamp, 1e-9)
	assert.InDelta(t, 51.5, records[0].Field("Lat"), 1e-9)
	assert.Equal(t, "ATT", records[1].Type)
}

func TestJSONLSource_SkipsBadLines(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"GPS","timestamp":1}`,
		`{not json`,
		`{"timestamp":2}`,
		`{"type":"GPS","timestamp":3}`,
	}, "\n")

	src := NewJSONLSource(strings.NewReader(input))
	records := drain(t, src)

	require.Len(t, records, 2)
	errs, count := src.Errors()
	assert.Equal(t, 2, count)
	require.Len(t, errs, 2)
	assert.Equal(t, 2, errs[0].Line)
	assert.Equal(t, "missing record type", errs[1].Err)
}

func TestOpenJSONL_Validation(t *testing.T) {
	dir := t.TempDir()
	cfg := config.IngestConfig{
		MaxLogBytes:       64,
		AllowedExtensions: []string{".jsonl"},
	}

	t.Run("not found", func(t *testing.T) {
		_, err := OpenJSONL(filepath.Join(dir, "missing.jsonl"), cfg)
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("bad extension", func(t *testing.T) {
		_, err := OpenJSONL(filepath.Join(dir, "flight.bin"), cfg)
		assert.ErrorIs(t, err, ErrBadExtension)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.jsonl")
		require.NoError(t, os.WriteFile(path, nil, 0o600))
		_, err := OpenJSONL(path, cfg)
		assert.ErrorIs(t, err, ErrEmptyLog)
	})

	t.Run("oversized", func(t *testing.T) {
		path := filepath.Join(dir, "big.jsonl")
		require.NoError(t, os.WriteFile(path, make([]byte, 128), 0o600))
		_, err := OpenJSONL(path, cfg)
		assert.ErrorIs(t, err, ErrLogTooLarge)
	})

	t.Run("valid", func(t *testing.T) {
		path := filepath.Join(dir, "ok.jsonl")
		require.NoError(t, os.WriteFile(path, []byte(`{"type":"GPS","timestamp":1}`), 0o600))
		src, err := OpenJSONL(path, cfg)
		require.NoError(t, err)
		defer src.Close()

		records := drain(t, src)
		assert.Len(t, records, 1)
	})
}
