package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redzone-analytics/playcall/internal/models"
)

// MockWriter records every batch it receives.
type MockWriter struct {
	mu      sync.Mutex
	Batches [][]models.PlayRecord
	Fail    bool
	Delay   time.Duration
}

func (m *MockWriter) WritePlays(ctx context.Context, plays []models.PlayRecord) error {
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	if m.Fail {
		return errors.New("mock: write failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Batches = append(m.Batches, append([]models.PlayRecord(nil), plays...))
	return nil
}

func (m *MockWriter) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.Batches {
		n += len(b)
	}
	return n
}

func (m *MockWriter) MaxBatch() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, b := range m.Batches {
		if len(b) > max {
			max = len(b)
		}
	}
	return max
}
