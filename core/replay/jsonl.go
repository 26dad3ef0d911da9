package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
)

// JSONLStore stores frames in a JSONL file.
type JSONLStore struct {
	path string
	mu   sync.Mutex
}

func NewJSONLStore(path string) (*JSONLStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	if cerr := f.Close(); cerr != nil {
		return nil, cerr
	}
	return &JSONLStore{path: path}, nil
}

func (s *JSONLStore) Append(_ context.Context, f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()
	return json.NewEncoder(file).Encode(f)
}

func (s *JSONLStore) Query(_ context.Context, q Query) ([]Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	return scanFrames(file, q, nil)
}

func (s *JSONLStore) Close() error { return nil }

// scanFrames appends the matching frames of r to res. Malformed lines are skipped.
func scanFrames(r io.Reader, q Query, res []Frame) ([]Frame, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if q.full(len(res)) {
			return res, nil
		}
		var f Frame
		if err := json.Unmarshal(scanner.Bytes(), &f); err != nil {
			continue
		}
		if q.Match(f) {
			res = append(res, f)
		}
	}
	return res, scanner.Err()
}
