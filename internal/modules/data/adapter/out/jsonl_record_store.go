package out

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"evseg/internal/modules/data/domain"
	dataout "evseg/internal/modules/data/port/out"
)

const maxRecordLine = 4 << 20

// JSONLRecordStore keeps one JSON object per line. The file is only ever
// appended to.
type JSONLRecordStore struct {
	mu   sync.Mutex
	path string
}

func NewJSONLRecordStore(path string) dataout.RecordStore {
	return &JSONLRecordStore{path: path}
}

func (s *JSONLRecordStore) Append(_ context.Context, record domain.TrialRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	raw = append(raw, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open data log: %w", err)
	}
	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		return fmt.Errorf("append record: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close data log: %w", err)
	}
	return nil
}

func (s *JSONLRecordStore) List(ctx context.Context) ([]domain.TrialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.TrialRecord{}, nil
		}
		return nil, fmt.Errorf("open data log: %w", err)
	}
	defer f.Close()

	out := []domain.TrialRecord{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordLine)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var record domain.TrialRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %v", domain.ErrCorruptRecordLine, s.path, line, err)
		}
		out = append(out, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read data log: %w", err)
	}
	return out, nil
}
