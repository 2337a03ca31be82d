package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/toonface/internal/auth"
	"github.com/your-org/toonface/internal/models"
	"github.com/your-org/toonface/internal/storage"
	"github.com/your-org/toonface/pkg/dto"
)

// CatalogStore is the read-only slice of the store the catalog needs. Every
// list touches the device registry first so last_active_at stays fresh.
type CatalogStore interface {
	GetOrCreateDevice(ctx context.Context, deviceID string) (*models.Device, error)
	ListOriginals(ctx context.Context, deviceID string) ([]models.Original, error)
	ListCartoons(ctx context.Context, deviceID string, originalID *uuid.UUID) ([]storage.CartoonWithOriginal, error)
	ListFaces(ctx context.Context, deviceID string, limit, offset int) ([]storage.FaceWithOriginal, int, error)
}

type CatalogHandler struct {
	store CatalogStore
}

func NewCatalogHandler(store CatalogStore) *CatalogHandler {
	return &CatalogHandler{store: store}
}

func (h *CatalogHandler) ListOriginals(c *gin.Context) {
	deviceID := auth.DeviceID(c)
	ctx := c.Request.Context()

	if _, err := h.store.GetOrCreateDevice(ctx, deviceID); err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	originals, err := h.store.ListOriginals(ctx, deviceID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	resp := make([]dto.OriginalSummary, 0, len(originals))
	for _, o := range originals {
		resp = append(resp, dto.OriginalSummary{
			ID:        o.ID,
			ImageURL:  o.ImageURL,
			FileSize:  o.FileSize,
			CreatedAt: o.CreatedAt,
		})
	}

	respondData(c, http.StatusOK, gin.H{"originals": resp, "count": len(resp)})
}

func (h *CatalogHandler) ListCartoons(c *gin.Context) {
	deviceID := auth.DeviceID(c)
	ctx := c.Request.Context()

	if _, err := h.store.GetOrCreateDevice(ctx, deviceID); err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	// A malformed originalId filter is ignored rather than rejected.
	var originalID *uuid.UUID
	if q := c.Query("originalId"); q != "" {
		if id, err := uuid.Parse(q); err == nil {
			originalID = &id
		}
	}

	cartoons, err := h.store.ListCartoons(ctx, deviceID, originalID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	resp := make([]dto.CartoonWithOriginal, 0, len(cartoons))
	for _, cw := range cartoons {
		resp = append(resp, dto.CartoonWithOriginal{
			ID:        cw.ID,
			ImageURL:  cw.ImageURL,
			CreatedAt: cw.CreatedAt,
			Original: dto.OriginalSummary{
				ID:        cw.Original.ID,
				ImageURL:  cw.Original.ImageURL,
				CreatedAt: cw.Original.CreatedAt,
			},
		})
	}

	respondData(c, http.StatusOK, gin.H{"cartoons": resp})
}

func (h *CatalogHandler) ListDownloadedFaces(c *gin.Context) {
	deviceID := auth.DeviceID(c)
	ctx := c.Request.Context()

	if _, err := h.store.GetOrCreateDevice(ctx, deviceID); err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	faces, total, err := h.store.ListFaces(ctx, deviceID, limit, (page-1)*limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	resp := make([]dto.FaceWithOriginal, 0, len(faces))
	for _, fw := range faces {
		resp = append(resp, dto.FaceWithOriginal{
			ID:       fw.ID,
			FaceURL:  fw.FaceURL,
			FileSize: fw.FileSize,
			Original: dto.OriginalSummary{
				ID:        fw.Original.ID,
				ImageURL:  fw.Original.ImageURL,
				CreatedAt: fw.Original.CreatedAt,
			},
			CreatedAt: fw.CreatedAt,
		})
	}

	pages := (total + limit - 1) / limit

	respondData(c, http.StatusOK, gin.H{
		"downloadedFaces": resp,
		"pagination": dto.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	})
}
