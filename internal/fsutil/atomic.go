// Package fsutil provides crash-safe file writes and JSONL helpers shared by
// the file-backed stores.
package fsutil

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/concepts/internal/errors"
)

// WriteFileAtomic writes data to path using the temp-file, fsync, rename
// pattern. Readers see either the old or the new content, never a torn file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return writeAtomic(path, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// ReadJSONL reads a JSONL file and returns each non-empty, valid line as a
// json.RawMessage. Malformed lines are skipped. A missing file yields no
// records and no error.
func ReadJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "scanning %s", path)
	}
	return records, nil
}

// WriteJSONL atomically replaces path with one record per line.
func WriteJSONL(path string, records []json.RawMessage) error {
	return writeAtomic(path, 0o644, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		for _, rec := range records {
			if _, err := bw.Write(rec); err != nil {
				return errors.Wrap(err, "writing record")
			}
			if err := bw.WriteByte('\n'); err != nil {
				return errors.Wrap(err, "writing newline")
			}
		}
		return errors.Wrap(bw.Flush(), "flushing buffer")
	})
}

func writeAtomic(path string, perm os.FileMode, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "syncing temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "closing temp file")
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "setting permissions")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "renaming temp file")
	}
	return nil
}
