package storage

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord is one row of per-request accounting. Rows are written
// asynchronously by the usage worker, never on the request path.
type UsageRecord struct {
	ID          uuid.UUID `db:"id" json:"id"`
	RequestID   string    `db:"request_id" json:"request_id"`
	Fingerprint string    `db:"fingerprint" json:"fingerprint"`
	UserID      string    `db:"user_id" json:"user_id,omitempty"`
	TeamID      string    `db:"team_id" json:"team_id,omitempty"`

	Provider string `db:"provider" json:"provider"`
	Model    string `db:"model" json:"model"`
	Alias    string `db:"alias" json:"alias,omitempty"`

	Outcome    string `db:"outcome" json:"outcome"`
	StatusCode int    `db:"status_code" json:"status_code"`

	ProviderMs int64 `db:"provider_ms" json:"provider_ms"`
	GatewayMs  int64 `db:"gateway_ms" json:"gateway_ms"`

	Timestamp time.Time `db:"request_timestamp" json:"timestamp"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
