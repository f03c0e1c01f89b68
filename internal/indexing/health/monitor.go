package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/tokenwatch/internal/indexing/subscription"
	"github.com/vietddude/tokenwatch/internal/infra/storage"
)

// StatusSource reports the supervisor state.
type StatusSource interface {
	Status() subscription.Status
}

// Monitor aggregates health status from the supervisor and the store.
type Monitor struct {
	source     StatusSource
	repo       storage.TransactionRepository
	staleAfter time.Duration
	now        func() time.Time
	lastCheck  time.Time
	lastReport *StorageHealth
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor. repo may be nil.
func NewMonitor(source StatusSource, repo storage.TransactionRepository, staleAfter time.Duration) *Monitor {
	if staleAfter <= 0 {
		staleAfter = 2 * time.Minute
	}
	return &Monitor{
		source:     source,
		repo:       repo,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// CheckHealth builds a report. The worst component status wins.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	now := m.now()
	report := HealthReport{
		Subscription: m.checkSubscription(now),
		Storage:      m.checkStorage(ctx, now),
		CheckedAt:    now.UTC(),
	}

	report.SystemStatus = report.Subscription.Status
	if report.Storage != nil && report.SystemStatus == StatusHealthy {
		report.SystemStatus = report.Storage.Status
	}
	return report
}

func (m *Monitor) checkSubscription(now time.Time) SubscriptionHealth {
	st := m.source.Status()
	h := SubscriptionHealth{Status: StatusHealthy, Detail: st}
	if !st.LastRecord.IsZero() {
		h.Idle = now.Sub(st.LastRecord)
	}

	switch {
	case st.Phase == subscription.PhaseFatal:
		h.Status = StatusCritical
		h.Reason = "retry ceiling reached"
	case st.Phase == subscription.PhaseBackoff || st.Retries > 0:
		h.Status = StatusDegraded
		h.Reason = "reconnecting after failure"
	case h.Idle > m.staleAfter:
		h.Status = StatusDegraded
		h.Reason = "no records received recently"
	}
	return h
}

// checkStorage probes the store at most once every 10s.
func (m *Monitor) checkStorage(ctx context.Context, now time.Time) *StorageHealth {
	if m.repo == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastReport != nil && now.Sub(m.lastCheck) < 10*time.Second {
		return m.lastReport
	}

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	h := &StorageHealth{Status: StatusHealthy}
	n, err := m.repo.Count(probeCtx)
	if err != nil {
		h.Status = StatusDegraded
		h.Error = err.Error()
	}
	h.Transactions = n

	m.lastCheck = now
	m.lastReport = h
	return h
}
