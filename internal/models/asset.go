package models

import (
	"time"

	"github.com/google/uuid"
)

// Original is the uploaded source image. Immutable after creation; owns any
// number of temporary cartoons and at most one downloaded face.
type Original struct {
	ID        uuid.UUID `json:"id" db:"id"`
	DeviceID  string    `json:"device_id" db:"device_id"`
	Filename  string    `json:"filename" db:"filename"`
	BlobKey   string    `json:"blob_key" db:"blob_key"`
	ImageURL  string    `json:"image_url" db:"image_url"`
	FileSize  int64     `json:"file_size" db:"file_size"`
	MimeType  string    `json:"mime_type" db:"mime_type"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RegeneratedCartoon is a temporary transformed variant of an Original.
// All cartoons for an original are purged when one of them is finalized.
type RegeneratedCartoon struct {
	ID         uuid.UUID `json:"id" db:"id"`
	DeviceID   string    `json:"device_id" db:"device_id"`
	OriginalID uuid.UUID `json:"original_id" db:"original_id"`
	Filename   string    `json:"filename" db:"filename"`
	BlobKey    string    `json:"blob_key" db:"blob_key"`
	ImageURL   string    `json:"image_url" db:"image_url"`
	FileSize   int64     `json:"file_size" db:"file_size"`
	MimeType   string    `json:"mime_type" db:"mime_type"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// DownloadedFace is the permanent face-crop produced by finalizing one chosen
// cartoon. At most one exists per original (unique index on original_id).
type DownloadedFace struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	DeviceID        string     `json:"device_id" db:"device_id"`
	OriginalID      uuid.UUID  `json:"original_id" db:"original_id"`
	Filename        string     `json:"filename" db:"filename"`
	BlobKey         string     `json:"blob_key" db:"blob_key"`
	FaceURL         string     `json:"face_url" db:"face_url"`
	FileSize        int64      `json:"file_size" db:"file_size"`
	MimeType        string     `json:"mime_type" db:"mime_type"`
	SourceCartoonID *uuid.UUID `json:"source_cartoon_id,omitempty" db:"source_cartoon_id"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// AssetEvent is the message published to NATS after a lifecycle transition.
type AssetEvent struct {
	Type       string    `json:"type"` // asset.uploaded, asset.regenerated, asset.finalized
	DeviceID   string    `json:"device_id"`
	OriginalID uuid.UUID `json:"original_id"`
	AssetID    uuid.UUID `json:"asset_id"`
	AssetURL   string    `json:"asset_url"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	EventUploaded    = "asset.uploaded"
	EventRegenerated = "asset.regenerated"
	EventFinalized   = "asset.finalized"
)
