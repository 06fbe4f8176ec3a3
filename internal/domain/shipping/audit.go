package shipping

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// QuoteAuditEntry is one record in the capped, append-only quote audit log.
type QuoteAuditEntry struct {
	ID           uuid.UUID `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Destination  string    `json:"destination"`
	Currency     string    `json:"currency"`
	GroupCount   int       `json:"group_count"`
	SkippedCount int       `json:"skipped_count"`
	RateCount    int       `json:"rate_count"`
	Fallback     bool      `json:"fallback"`
	CacheHit     bool      `json:"cache_hit"`
	DurationMs   int64     `json:"duration_ms"`
	Reason       string    `json:"reason,omitempty"`
}

// QuoteAuditStore keeps the N most-recent quote computations. Append may
// drop the oldest entries beyond the configured cap.
type QuoteAuditStore interface {
	Append(ctx context.Context, entry *QuoteAuditEntry) error
	List(ctx context.Context, limit int) ([]QuoteAuditEntry, error)
}
