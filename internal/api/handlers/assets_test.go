package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/toonface/internal/auth"
	"github.com/your-org/toonface/internal/lifecycle"
	"github.com/your-org/toonface/internal/models"
	"github.com/your-org/toonface/internal/transform"
)

type stubLifecycle struct {
	uploadFn     func(ctx context.Context, deviceID string, data []byte, mimeType string) (*lifecycle.UploadResult, error)
	regenerateFn func(ctx context.Context, deviceID string, originalID uuid.UUID) (*lifecycle.RegenerateResult, error)
	finalizeFn   func(ctx context.Context, deviceID string, cartoonID uuid.UUID) (*models.DownloadedFace, error)
}

func (s *stubLifecycle) Upload(ctx context.Context, deviceID string, data []byte, mimeType string) (*lifecycle.UploadResult, error) {
	return s.uploadFn(ctx, deviceID, data, mimeType)
}

func (s *stubLifecycle) Regenerate(ctx context.Context, deviceID string, originalID uuid.UUID) (*lifecycle.RegenerateResult, error) {
	return s.regenerateFn(ctx, deviceID, originalID)
}

func (s *stubLifecycle) Finalize(ctx context.Context, deviceID string, cartoonID uuid.UUID) (*models.DownloadedFace, error) {
	return s.finalizeFn(ctx, deviceID, cartoonID)
}

func newTestRouter(lc Lifecycle) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAssetHandler(lc, 10*1024*1024)
	api := r.Group("/api", auth.DeviceMiddleware())
	api.POST("/upload", h.Upload)
	api.POST("/regenerate/:originalId", h.Regenerate)
	api.POST("/download/:cartoonId", h.Download)
	return r
}

func multipartImage(t *testing.T, fieldName, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="`+fieldName+`"; filename="photo.jpg"`)
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return body, w.FormDataContentType()
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, r *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestUpload_MissingDeviceHeader(t *testing.T) {
	r := newTestRouter(&stubLifecycle{})

	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	rec, env := doRequest(t, r, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Missing x-device-id header", env.Error)
}

func TestUpload_Success(t *testing.T) {
	originalID := uuid.New()
	cartoonID := uuid.New()

	lc := &stubLifecycle{
		uploadFn: func(_ context.Context, deviceID string, data []byte, mimeType string) (*lifecycle.UploadResult, error) {
			assert.Equal(t, "dev-1", deviceID)
			assert.Equal(t, []byte("image-bytes"), data)
			assert.Equal(t, "image/jpeg", mimeType)
			return &lifecycle.UploadResult{
				Original: &models.Original{ID: originalID, ImageURL: "http://h/uploads/originals/a.jpg", FileSize: 11},
				Cartoon:  &models.RegeneratedCartoon{ID: cartoonID, OriginalID: originalID, ImageURL: "http://h/uploads/temp/b.jpg"},
			}, nil
		},
	}
	r := newTestRouter(lc)

	body, contentType := multipartImage(t, "image", "image/jpeg", []byte("image-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Device-ID", "dev-1")

	rec, env := doRequest(t, r, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)

	var data struct {
		Original struct {
			ID       uuid.UUID `json:"id"`
			ImageURL string    `json:"imageUrl"`
			FileSize int64     `json:"fileSize"`
		} `json:"original"`
		Cartoon struct {
			ID       uuid.UUID `json:"id"`
			ImageURL string    `json:"imageUrl"`
		} `json:"cartoon"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, originalID, data.Original.ID)
	assert.Equal(t, int64(11), data.Original.FileSize)
	assert.Equal(t, cartoonID, data.Cartoon.ID)
}

func TestUpload_NoFile(t *testing.T) {
	r := newTestRouter(&stubLifecycle{})

	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	req.Header.Set("X-Device-ID", "dev-1")

	rec, env := doRequest(t, r, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No image file provided", env.Error)
}

func TestUpload_UnsupportedMimeType(t *testing.T) {
	r := newTestRouter(&stubLifecycle{})

	body, contentType := multipartImage(t, "image", "application/pdf", []byte("%PDF"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Device-ID", "dev-1")

	rec, env := doRequest(t, r, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Only image files are allowed (JPEG, PNG, WebP)", env.Error)
}

func TestUpload_UpstreamError(t *testing.T) {
	lc := &stubLifecycle{
		uploadFn: func(context.Context, string, []byte, string) (*lifecycle.UploadResult, error) {
			return nil, &transform.UpstreamError{Status: 503, Message: "model loading"}
		},
	}
	r := newTestRouter(lc)

	body, contentType := multipartImage(t, "image", "image/png", []byte("img"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Device-ID", "dev-1")

	rec, env := doRequest(t, r, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "AI server error: model loading", env.Error)
}

func TestRegenerate_InvalidOriginalID(t *testing.T) {
	r := newTestRouter(&stubLifecycle{})

	req := httptest.NewRequest(http.MethodPost, "/api/regenerate/not-a-uuid", nil)
	req.Header.Set("X-Device-ID", "dev-1")

	rec, env := doRequest(t, r, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid originalId format", env.Error)
}

func TestRegenerate_NotFound(t *testing.T) {
	lc := &stubLifecycle{
		regenerateFn: func(context.Context, string, uuid.UUID) (*lifecycle.RegenerateResult, error) {
			return nil, lifecycle.ErrOriginalNotFound
		},
	}
	r := newTestRouter(lc)

	req := httptest.NewRequest(http.MethodPost, "/api/regenerate/"+uuid.NewString(), nil)
	req.Header.Set("X-Device-ID", "dev-1")

	rec, env := doRequest(t, r, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Original not found", env.Error)
}

func TestRegenerate_Success(t *testing.T) {
	originalID := uuid.New()
	lc := &stubLifecycle{
		regenerateFn: func(_ context.Context, _ string, id uuid.UUID) (*lifecycle.RegenerateResult, error) {
			assert.Equal(t, originalID, id)
			return &lifecycle.RegenerateResult{
				Original: &models.Original{ID: originalID},
				Cartoons: []models.RegeneratedCartoon{
					{ID: uuid.New(), OriginalID: originalID},
					{ID: uuid.New(), OriginalID: originalID},
				},
			}, nil
		},
	}
	r := newTestRouter(lc)

	req := httptest.NewRequest(http.MethodPost, "/api/regenerate/"+originalID.String(), nil)
	req.Header.Set("X-Device-ID", "dev-1")

	rec, env := doRequest(t, r, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var data struct {
		Cartoons []json.RawMessage `json:"cartoons"`
		Count    int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 2, data.Count)
	assert.Len(t, data.Cartoons, 2)
}

func TestDownload_Conflict(t *testing.T) {
	lc := &stubLifecycle{
		finalizeFn: func(context.Context, string, uuid.UUID) (*models.DownloadedFace, error) {
			return nil, lifecycle.ErrAlreadyFinalized
		},
	}
	r := newTestRouter(lc)

	req := httptest.NewRequest(http.MethodPost, "/api/download/"+uuid.NewString(), nil)
	req.Header.Set("X-Device-ID", "dev-1")

	rec, env := doRequest(t, r, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Face-cut already exists for this original image", env.Error)
}

func TestDownload_Success(t *testing.T) {
	faceID := uuid.New()
	originalID := uuid.New()
	sourceID := uuid.New()

	lc := &stubLifecycle{
		finalizeFn: func(_ context.Context, deviceID string, cartoonID uuid.UUID) (*models.DownloadedFace, error) {
			assert.Equal(t, "dev-1", deviceID)
			assert.Equal(t, sourceID, cartoonID)
			return &models.DownloadedFace{
				ID:              faceID,
				OriginalID:      originalID,
				FaceURL:         "http://h/uploads/downloaded/f.jpg",
				FileSize:        42,
				SourceCartoonID: &sourceID,
			}, nil
		},
	}
	r := newTestRouter(lc)

	req := httptest.NewRequest(http.MethodPost, "/api/download/"+sourceID.String(), nil)
	req.Header.Set("X-Device-ID", "dev-1")

	rec, env := doRequest(t, r, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var data struct {
		DownloadedFace struct {
			ID         uuid.UUID `json:"id"`
			FaceURL    string    `json:"faceUrl"`
			OriginalID uuid.UUID `json:"originalId"`
			FileSize   int64     `json:"fileSize"`
		} `json:"downloadedFace"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, faceID, data.DownloadedFace.ID)
	assert.Equal(t, originalID, data.DownloadedFace.OriginalID)
	assert.Equal(t, int64(42), data.DownloadedFace.FileSize)
}
