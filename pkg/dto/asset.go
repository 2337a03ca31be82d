// Package dto holds the wire-level request and response shapes. Field names
// are camelCase to match the contract mobile clients already consume.
package dto

import (
	"time"

	"github.com/google/uuid"
)

type OriginalSummary struct {
	ID        uuid.UUID `json:"id"`
	ImageURL  string    `json:"imageUrl"`
	FileSize  int64     `json:"fileSize,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type CartoonSummary struct {
	ID        uuid.UUID `json:"id"`
	ImageURL  string    `json:"imageUrl"`
	FileSize  int64     `json:"fileSize,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type UploadData struct {
	Original OriginalSummary `json:"original"`
	Cartoon  CartoonSummary  `json:"cartoon"`
}

type RegenerateData struct {
	Original OriginalSummary  `json:"original"`
	Cartoons []CartoonSummary `json:"cartoons"`
	Count    int              `json:"count"`
}

type DownloadedFaceSummary struct {
	ID         uuid.UUID `json:"id"`
	FaceURL    string    `json:"faceUrl"`
	OriginalID uuid.UUID `json:"originalId"`
	FileSize   int64     `json:"fileSize"`
	CreatedAt  time.Time `json:"createdAt"`
}

type DownloadData struct {
	DownloadedFace DownloadedFaceSummary `json:"downloadedFace"`
}

type CartoonWithOriginal struct {
	ID        uuid.UUID       `json:"id"`
	ImageURL  string          `json:"imageUrl"`
	CreatedAt time.Time       `json:"createdAt"`
	Original  OriginalSummary `json:"original"`
}

type FaceWithOriginal struct {
	ID        uuid.UUID       `json:"id"`
	FaceURL   string          `json:"faceUrl"`
	FileSize  int64           `json:"fileSize"`
	Original  OriginalSummary `json:"original"`
	CreatedAt time.Time       `json:"createdAt"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// AssetEventData is the payload broadcast to WebSocket clients.
type AssetEventData struct {
	OriginalID uuid.UUID `json:"originalId"`
	AssetID    uuid.UUID `json:"assetId"`
	AssetURL   string    `json:"assetUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

// WSEvent is a WebSocket message for real-time asset event delivery.
type WSEvent struct {
	Type     string         `json:"type"` // asset.uploaded, asset.regenerated, asset.finalized
	DeviceID string         `json:"deviceId"`
	Data     AssetEventData `json:"data"`
}
