// Package alerts implements rule-based transaction monitoring: velocity,
// structuring, jurisdiction, and round-amount checks feeding an
// append-only alert queue for compliance triage.
package alerts

import (
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/fintel-ai/tribunal/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertVelocity     AlertType = "velocity"
	AlertStructuring  AlertType = "structuring"
	AlertJurisdiction AlertType = "jurisdiction"
	AlertRoundAmount  AlertType = "round_amount"
	AlertHighValue    AlertType = "high_value"
	AlertCrossBorder  AlertType = "cross_border"
)

// AlertStatus tracks an alert through triage.
type AlertStatus string

const (
	StatusOpen         AlertStatus = "open"
	StatusAcknowledged AlertStatus = "acknowledged"
	StatusResolved     AlertStatus = "resolved"
)

// Alert is a single monitoring alert attached to a transaction.
type Alert struct {
	ID             string          `json:"alert_id"`
	UETR           string          `json:"transaction_uetr"`
	Type           AlertType       `json:"alert_type"`
	Severity       model.RiskLevel `json:"severity"`
	Details        string          `json:"details"`
	Status         AlertStatus     `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	AcknowledgedAt *time.Time      `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
}

// SeverityCounts is the per-severity breakdown of a queue listing.
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// Queue is the in-memory alert queue. Alerts are append-only; triage
// transitions mutate status in place.
type Queue struct {
	mu     sync.Mutex
	alerts []Alert
	now    func() time.Time
}

// NewQueue creates an empty alert queue.
func NewQueue() *Queue {
	return &Queue{now: time.Now}
}

// Push appends a new open alert and returns it with its assigned id.
func (q *Queue) Push(uetr string, typ AlertType, severity model.RiskLevel, details string) Alert {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now().UTC()
	a := Alert{
		ID:        fmt.Sprintf("ALERT-%s-%d", now.Format("20060102150405"), len(q.alerts)),
		UETR:      uetr,
		Type:      typ,
		Severity:  severity,
		Details:   details,
		Status:    StatusOpen,
		CreatedAt: now,
	}
	q.alerts = append(q.alerts, a)
	return a
}

// List returns alerts matching the given status; "all" or empty returns
// everything. The returned slice is a copy.
func (q *Queue) List(status AlertStatus) []Alert {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Alert, 0, len(q.alerts))
	for _, a := range q.alerts {
		if status == "" || status == "all" || a.Status == status {
			out = append(out, a)
		}
	}
	return out
}

// Counts returns the severity breakdown for alerts with the given status.
func (q *Queue) Counts(status AlertStatus) SeverityCounts {
	var c SeverityCounts
	for _, a := range q.List(status) {
		switch a.Severity {
		case model.RiskCritical:
			c.Critical++
		case model.RiskHigh:
			c.High++
		case model.RiskMedium:
			c.Medium++
		default:
			c.Low++
		}
	}
	return c
}

// Acknowledge marks an open alert acknowledged.
func (q *Queue) Acknowledge(id string) error {
	return q.transition(id, StatusAcknowledged)
}

// Resolve marks an alert resolved.
func (q *Queue) Resolve(id string) error {
	return q.transition(id, StatusResolved)
}

func (q *Queue) transition(id string, to AlertStatus) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.alerts {
		if q.alerts[i].ID != id {
			continue
		}
		now := q.now().UTC()
		q.alerts[i].Status = to
		switch to {
		case StatusAcknowledged:
			q.alerts[i].AcknowledgedAt = &now
		case StatusResolved:
			q.alerts[i].ResolvedAt = &now
		}
		return nil
	}
	return eris.Errorf("alerts: alert %q not found", id)
}

// Len reports the total number of alerts ever pushed.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.alerts)
}
