package store

import (
	"context"
	"sync"

	"bidplus-harvester/internal/models"
)

// MemoryReportStore holds the latest run report in process memory.
type MemoryReportStore struct {
	mu     sync.RWMutex
	report *models.RunReport
}

// SetReport replaces the stored report.
func (s *MemoryReportStore) SetReport(_ context.Context, report models.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = &report
	return nil
}

// GetReport returns the stored report, if any.
func (s *MemoryReportStore) GetReport(_ context.Context) (models.RunReport, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.report == nil {
		return models.RunReport{}, false, nil
	}
	return *s.report, true, nil
}
