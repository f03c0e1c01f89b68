// Package health provides system health monitoring and status reporting.
package health

import (
	"time"

	"github.com/vietddude/tokenwatch/internal/indexing/subscription"
)

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// SubscriptionHealth describes the supervised subscription.
type SubscriptionHealth struct {
	Status SystemStatus        `json:"status"`
	Reason string              `json:"reason,omitempty"`
	Detail subscription.Status `json:"detail"`
	// Idle is the time since the last record, zero before the first one.
	Idle time.Duration `json:"idle_ns"`
}

// StorageHealth describes the transaction store.
type StorageHealth struct {
	Status       SystemStatus `json:"status"`
	Error        string       `json:"error,omitempty"`
	Transactions int64        `json:"transactions"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus       `json:"system_status"`
	Subscription SubscriptionHealth `json:"subscription"`
	Storage      *StorageHealth     `json:"storage,omitempty"`
	CheckedAt    time.Time          `json:"checked_at"`
}
