// Package schedule persists solved runs and renders the operator-facing CSV.
package schedule

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pcwa-smotley/abayopt/core/model"
)

// RunRecord is one persisted solve, rows included.
type RunRecord struct {
	ID         uuid.UUID          `json:"id"`
	CreatedAt  time.Time          `json:"created_at"`
	Status     model.SolverStatus `json:"status"`
	Reason     string             `json:"reason,omitempty"`
	Objective  float64            `json:"objective"`
	BiasCFS    float64            `json:"bias_cfs"`
	MFRASource string             `json:"mfra_source"`
	Historical bool               `json:"historical,omitempty"`
	Rows       model.RowSequence  `json:"rows"`
}

// Query filters persisted runs.
type Query struct {
	Start  time.Time
	End    time.Time
	Status *model.SolverStatus
	ID     uuid.UUID
}

// JSONLStore stores run records in a JSONL file, one record per line.
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

func (s *JSONLStore) Append(ctx context.Context, rec RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	enc := json.NewEncoder(f)
	return enc.Encode(rec)
}

func (s *JSONLStore) Query(ctx context.Context, q Query) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var res []RunRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		var r RunRecord
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			continue
		}
		if !q.Start.IsZero() && r.CreatedAt.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && r.CreatedAt.After(q.End) {
			continue
		}
		if q.Status != nil && r.Status != *q.Status {
			continue
		}
		if q.ID != uuid.Nil && r.ID != q.ID {
			continue
		}
		res = append(res, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Latest returns the most recent record, or false when the store is empty.
func (s *JSONLStore) Latest(ctx context.Context) (RunRecord, bool, error) {
	recs, err := s.Query(ctx, Query{})
	if err != nil {
		return RunRecord{}, false, err
	}
	if len(recs) == 0 {
		return RunRecord{}, false, nil
	}
	return recs[len(recs)-1], true, nil
}

func (s *JSONLStore) Close() error { return nil }
