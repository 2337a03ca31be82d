package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/toonface/internal/auth"
	"github.com/your-org/toonface/internal/lifecycle"
	"github.com/your-org/toonface/internal/models"
	"github.com/your-org/toonface/pkg/dto"
)

// Lifecycle is the slice of the asset lifecycle manager the handlers need.
type Lifecycle interface {
	Upload(ctx context.Context, deviceID string, data []byte, mimeType string) (*lifecycle.UploadResult, error)
	Regenerate(ctx context.Context, deviceID string, originalID uuid.UUID) (*lifecycle.RegenerateResult, error)
	Finalize(ctx context.Context, deviceID string, cartoonID uuid.UUID) (*models.DownloadedFace, error)
}

var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

type AssetHandler struct {
	lifecycle      Lifecycle
	maxUploadBytes int64
}

func NewAssetHandler(lc Lifecycle, maxUploadBytes int64) *AssetHandler {
	return &AssetHandler{lifecycle: lc, maxUploadBytes: maxUploadBytes}
}

// Upload accepts a multipart image, cartoonizes it and records both assets.
func (h *AssetHandler) Upload(c *gin.Context) {
	deviceID := auth.DeviceID(c)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		respondError(c, http.StatusBadRequest, "Image exceeds maximum upload size")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if !allowedMimeTypes[mimeType] {
		respondError(c, http.StatusBadRequest, "Only image files are allowed (JPEG, PNG, WebP)")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to read image file")
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		respondError(c, http.StatusBadRequest, "Image exceeds maximum upload size")
		return
	}

	result, err := h.lifecycle.Upload(c.Request.Context(), deviceID, data, mimeType)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	respondData(c, http.StatusCreated, dto.UploadData{
		Original: dto.OriginalSummary{
			ID:        result.Original.ID,
			ImageURL:  result.Original.ImageURL,
			FileSize:  result.Original.FileSize,
			CreatedAt: result.Original.CreatedAt,
		},
		Cartoon: dto.CartoonSummary{
			ID:        result.Cartoon.ID,
			ImageURL:  result.Cartoon.ImageURL,
			CreatedAt: result.Cartoon.CreatedAt,
		},
	})
}

// Regenerate produces one more temporary cartoon for an owned original and
// returns the full cartoon set, newest first.
func (h *AssetHandler) Regenerate(c *gin.Context) {
	deviceID := auth.DeviceID(c)

	originalID, err := uuid.Parse(c.Param("originalId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid originalId format")
		return
	}

	result, err := h.lifecycle.Regenerate(c.Request.Context(), deviceID, originalID)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	cartoons := make([]dto.CartoonSummary, 0, len(result.Cartoons))
	for _, cart := range result.Cartoons {
		cartoons = append(cartoons, dto.CartoonSummary{
			ID:        cart.ID,
			ImageURL:  cart.ImageURL,
			FileSize:  cart.FileSize,
			CreatedAt: cart.CreatedAt,
		})
	}

	respondData(c, http.StatusCreated, dto.RegenerateData{
		Original: dto.OriginalSummary{
			ID:        result.Original.ID,
			ImageURL:  result.Original.ImageURL,
			FileSize:  result.Original.FileSize,
			CreatedAt: result.Original.CreatedAt,
		},
		Cartoons: cartoons,
		Count:    len(cartoons),
	})
}

// Download finalizes one chosen cartoon into the permanent face crop.
func (h *AssetHandler) Download(c *gin.Context) {
	deviceID := auth.DeviceID(c)

	cartoonID, err := uuid.Parse(c.Param("cartoonId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid cartoonId format")
		return
	}

	face, err := h.lifecycle.Finalize(c.Request.Context(), deviceID, cartoonID)
	if err != nil {
		respondLifecycleError(c, err)
		return
	}

	respondData(c, http.StatusCreated, dto.DownloadData{
		DownloadedFace: dto.DownloadedFaceSummary{
			ID:         face.ID,
			FaceURL:    face.FaceURL,
			OriginalID: face.OriginalID,
			FileSize:   face.FileSize,
			CreatedAt:  face.CreatedAt,
		},
	})
}
