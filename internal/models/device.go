package models

import (
	"time"

	"github.com/google/uuid"
)

// Device is a client-identified principal. Devices self-identify with an
// opaque identifier sent on every request; there are no user accounts.
type Device struct {
	ID           uuid.UUID `json:"id" db:"id"`
	DeviceID     string    `json:"device_id" db:"device_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	LastActiveAt time.Time `json:"last_active_at" db:"last_active_at"`
}
