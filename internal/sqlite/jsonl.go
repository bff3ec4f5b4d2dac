package sqlite

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mesh-intelligence/chainlink/pkg/types"
)

// maxJSONLLine bounds a single JSONL record; long descriptions need more
// than bufio's 64 KiB default.
const maxJSONLLine = 16 << 20

// exportHeader is the first record of a JSONL export.
type exportHeader struct {
	Version    int       `json:"version"`
	ExportID   string    `json:"export_id,omitempty"`
	ExportedAt time.Time `json:"exported_at"`
}

// WriteExportJSON writes data as one indented JSON document, atomically.
func WriteExportJSON(path string, data *types.ExportData) error {
	return atomicWrite(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	})
}

// WriteExportJSONL writes data as a header line followed by one issue per
// line, atomically.
func WriteExportJSONL(path string, data *types.ExportData) error {
	records, err := exportRecords(data)
	if err != nil {
		return err
	}
	return writeJSONL(path, records)
}

// EncodeExportJSONL streams the JSONL form of data to w.
func EncodeExportJSONL(w io.Writer, data *types.ExportData) error {
	records, err := exportRecords(data)
	if err != nil {
		return err
	}
	return encodeJSONL(w, records)
}

func exportRecords(data *types.ExportData) ([]json.RawMessage, error) {
	records := make([]json.RawMessage, 0, len(data.Issues)+1)
	header, err := json.Marshal(exportHeader{
		Version:    data.Version,
		ExportID:   data.ExportID,
		ExportedAt: data.ExportedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding export header: %w", err)
	}
	records = append(records, header)
	for _, issue := range data.Issues {
		rec, err := json.Marshal(issue)
		if err != nil {
			return nil, fmt.Errorf("encoding issue %d: %w", issue.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadExport loads an export written by WriteExportJSON or
// WriteExportJSONL. Files ending in .jsonl are read line by line; anything
// else is parsed as a single JSON document.
func ReadExport(path string) (*types.ExportData, error) {
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		return readExportJSONL(path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var data types.ExportData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if data.Issues == nil {
		data.Issues = []types.ExportedIssue{}
	}
	return &data, nil
}

// readExportJSONL rebuilds ExportData from a JSONL export. A first record
// without an "id" field is the header; a file without one is read as
// version 1. Malformed lines are skipped.
func readExportJSONL(path string) (*types.ExportData, error) {
	records, err := readJSONL(path)
	if err != nil {
		return nil, err
	}

	data := &types.ExportData{
		Version: types.ExportFormatVersion,
		Issues:  []types.ExportedIssue{},
	}
	for i, rec := range records {
		if i == 0 && isHeaderRecord(rec) {
			var h exportHeader
			if err := json.Unmarshal(rec, &h); err == nil {
				data.Version = h.Version
				data.ExportID = h.ExportID
				data.ExportedAt = h.ExportedAt
			}
			continue
		}
		var issue types.ExportedIssue
		if err := json.Unmarshal(rec, &issue); err != nil {
			continue
		}
		data.Issues = append(data.Issues, issue)
	}
	return data, nil
}

func isHeaderRecord(rec json.RawMessage) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(rec, &probe); err != nil {
		return false
	}
	_, hasID := probe["id"]
	_, hasVersion := probe["version"]
	return hasVersion && !hasID
}

// readJSONL reads a JSONL file and returns each non-empty, parseable line as
// a json.RawMessage. Malformed lines are skipped.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	records := []json.RawMessage{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		records = append(records, json.RawMessage(bytes.Clone(line)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically writes one record per line.
func writeJSONL(path string, records []json.RawMessage) error {
	return atomicWrite(path, func(w io.Writer) error {
		return encodeJSONL(w, records)
	})
}

func encodeJSONL(w io.Writer, records []json.RawMessage) error {
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
		if _, err := w.Write([]byte{'\n'}); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	return nil
}

// atomicWrite fills a temp file next to path through write, fsyncs it, and
// renames it over path. On any failure the temp file is removed and path is
// untouched.
func atomicWrite(path string, write func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	if err = write(w); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
