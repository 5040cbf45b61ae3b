package kpi

import (
	"sync"

	"github.com/pulsedash/pulsedash/internal/models"
)

// Session holds one connected table: the cleaned rows, the classifier's
// mapping, and the resolved index mapping. Date-range changes re-run only the
// aggregation; the classification already paid for stays untouched.
//
// A session is either unbound (all rows) or bound to a date range. Binding to
// a range no row matches is a valid state yielding the zero result.
type Session struct {
	Locator     string
	Table       models.RawTable
	Mapping     models.ColumnMapping
	Explanation string
	Index       models.IndexMapping

	mu     sync.Mutex
	bounds models.DateBounds
	result models.KpiResult
}

// NewSession resolves nothing itself; idx must come from the resolver so that
// recomputes reuse the exact mapping of the initial aggregation.
func NewSession(locator string, cleaned models.RawTable, mapping models.ColumnMapping, explanation string, idx models.IndexMapping) *Session {
	s := &Session{
		Locator:     locator,
		Table:       cleaned,
		Mapping:     mapping,
		Explanation: explanation,
		Index:       idx,
	}
	s.result = Aggregate(cleaned.Rows, idx, models.DateBounds{})
	return s
}

// Result returns the aggregation for the current bounds.
func (s *Session) Result() models.KpiResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Bounds returns the currently applied range.
func (s *Session) Bounds() models.DateBounds {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bounds
}

// Apply moves the session to the given bounds and recomputes. Zero bounds
// clear the filter and return to the full period.
func (s *Session) Apply(b models.DateBounds) models.KpiResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bounds = b
	s.result = Aggregate(s.Table.Rows, s.Index, b)
	return s.result
}
