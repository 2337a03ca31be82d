// Package lifecycle owns the Original -> RegeneratedCartoon -> DownloadedFace
// state machine: uploads spawn temporary cartoons, regenerations accumulate
// more, and exactly one cartoon per original may be finalized into a
// permanent face crop, after which every temporary sibling is purged.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/your-org/toonface/internal/models"
	"github.com/your-org/toonface/internal/observability"
	"github.com/your-org/toonface/internal/storage"
)

// Store is the record side of the lifecycle. Lookups scoped by deviceID
// return (nil, nil) when nothing matches; ownership is never transferable
// across devices.
type Store interface {
	GetOrCreateDevice(ctx context.Context, deviceID string) (*models.Device, error)
	CreateOriginal(ctx context.Context, o *models.Original) error
	GetOriginal(ctx context.Context, id uuid.UUID, deviceID string) (*models.Original, error)
	CreateCartoon(ctx context.Context, c *models.RegeneratedCartoon) error
	GetCartoon(ctx context.Context, id uuid.UUID, deviceID string) (*models.RegeneratedCartoon, error)
	ListCartoonsByOriginal(ctx context.Context, originalID uuid.UUID, deviceID string) ([]models.RegeneratedCartoon, error)
	DeleteCartoonsByOriginal(ctx context.Context, originalID uuid.UUID, deviceID string) (int64, error)
	GetFaceByOriginal(ctx context.Context, originalID uuid.UUID, deviceID string) (*models.DownloadedFace, error)
	CreateFace(ctx context.Context, f *models.DownloadedFace) error
}

// BlobStore is the byte side of the lifecycle.
type BlobStore interface {
	Save(ctx context.Context, category storage.Category, filename string, data []byte, contentType string) (string, error)
	Read(ctx context.Context, category storage.Category, filename string) ([]byte, error)
	Delete(ctx context.Context, category storage.Category, filename string) error
	URLFor(category storage.Category, filename string) string
	PurgeByToken(ctx context.Context, category storage.Category, token string) (int, error)
}

// Transformer is the outbound image transform gateway.
type Transformer interface {
	Cartoonize(ctx context.Context, image []byte, mimeType string) ([]byte, error)
	SegmentHead(ctx context.Context, imageURL string) ([]byte, error)
}

// Publisher emits lifecycle events. May be nil; publish failures never fail
// the operation.
type Publisher interface {
	PublishAssetEvent(ctx context.Context, deviceID string, data interface{}) error
}

type Manager struct {
	store     Store
	blobs     BlobStore
	transform Transformer
	events    Publisher
}

func NewManager(store Store, blobs BlobStore, transform Transformer, events Publisher) *Manager {
	return &Manager{store: store, blobs: blobs, transform: transform, events: events}
}

type UploadResult struct {
	Original *models.Original
	Cartoon  *models.RegeneratedCartoon
}

type RegenerateResult struct {
	Original *models.Original
	Cartoons []models.RegeneratedCartoon
}

// Upload persists the uploaded bytes, produces the first cartoon and records
// both. The original blob is written before the transform call; if the
// transform fails or returns nothing, that blob is removed again so a failed
// upload leaves no trace. The original record is only created after the
// transform succeeds, so no orphan record can result from transform failure.
func (m *Manager) Upload(ctx context.Context, deviceID string, data []byte, mimeType string) (*UploadResult, error) {
	if _, err := m.store.GetOrCreateDevice(ctx, deviceID); err != nil {
		return nil, err
	}

	comp := &compensator{}

	originalFilename := storage.GenerateFilename(deviceID)
	originalKey, err := m.blobs.Save(ctx, storage.CategoryOriginals, originalFilename, data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("save original blob: %w", err)
	}
	comp.add("delete original blob", func() error {
		return m.blobs.Delete(context.WithoutCancel(ctx), storage.CategoryOriginals, originalFilename)
	})

	cartoonData, err := m.transform.Cartoonize(ctx, data, mimeType)
	if err != nil {
		comp.run()
		return nil, err
	}

	original := &models.Original{
		DeviceID: deviceID,
		Filename: originalFilename,
		BlobKey:  originalKey,
		ImageURL: m.blobs.URLFor(storage.CategoryOriginals, originalFilename),
		FileSize: int64(len(data)),
		MimeType: mimeType,
	}
	if err := m.store.CreateOriginal(ctx, original); err != nil {
		comp.run()
		return nil, err
	}

	cartoon, err := m.saveCartoon(ctx, original, cartoonData)
	if err != nil {
		return nil, err
	}

	observability.UploadsTotal.Inc()
	m.publish(ctx, models.AssetEvent{
		Type:       models.EventUploaded,
		DeviceID:   deviceID,
		OriginalID: original.ID,
		AssetID:    cartoon.ID,
		AssetURL:   cartoon.ImageURL,
		CreatedAt:  cartoon.CreatedAt,
	})

	return &UploadResult{Original: original, Cartoon: cartoon}, nil
}

// Regenerate produces one more temporary cartoon for an original the device
// owns. Earlier cartoons are kept; they only go away at finalization.
func (m *Manager) Regenerate(ctx context.Context, deviceID string, originalID uuid.UUID) (*RegenerateResult, error) {
	if _, err := m.store.GetOrCreateDevice(ctx, deviceID); err != nil {
		return nil, err
	}

	original, err := m.store.GetOriginal(ctx, originalID, deviceID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, ErrOriginalNotFound
	}

	data, err := m.blobs.Read(ctx, storage.CategoryOriginals, original.Filename)
	if err != nil {
		return nil, fmt.Errorf("read original blob: %w", err)
	}

	cartoonData, err := m.transform.Cartoonize(ctx, data, original.MimeType)
	if err != nil {
		return nil, err
	}

	cartoon, err := m.saveCartoon(ctx, original, cartoonData)
	if err != nil {
		return nil, err
	}

	cartoons, err := m.store.ListCartoonsByOriginal(ctx, original.ID, deviceID)
	if err != nil {
		return nil, err
	}

	observability.RegenerationsTotal.Inc()
	m.publish(ctx, models.AssetEvent{
		Type:       models.EventRegenerated,
		DeviceID:   deviceID,
		OriginalID: original.ID,
		AssetID:    cartoon.ID,
		AssetURL:   cartoon.ImageURL,
		CreatedAt:  cartoon.CreatedAt,
	})

	return &RegenerateResult{Original: original, Cartoons: cartoons}, nil
}

// saveCartoon stores cartoon bytes as a temp blob and records the cartoon.
// Cartoon filenames embed the original's short id so the finalize sweep can
// find stray temp blobs. The upstream cartoonify service emits PNG.
func (m *Manager) saveCartoon(ctx context.Context, original *models.Original, data []byte) (*models.RegeneratedCartoon, error) {
	filename := storage.GenerateFilename(original.ID.String())
	key, err := m.blobs.Save(ctx, storage.CategoryTemp, filename, data, "image/png")
	if err != nil {
		return nil, fmt.Errorf("save cartoon blob: %w", err)
	}

	cartoon := &models.RegeneratedCartoon{
		DeviceID:   original.DeviceID,
		OriginalID: original.ID,
		Filename:   filename,
		BlobKey:    key,
		ImageURL:   m.blobs.URLFor(storage.CategoryTemp, filename),
		FileSize:   int64(len(data)),
		MimeType:   "image/png",
	}
	if err := m.store.CreateCartoon(ctx, cartoon); err != nil {
		return nil, err
	}
	return cartoon, nil
}

// Finalize converts one chosen cartoon into the original's permanent face
// crop, then purges every temporary cartoon for that original. The purge is
// best-effort: blob deletion failures are logged and never abort the
// finalize. The unique index on downloaded_faces.original_id backstops
// concurrent finalize attempts; the loser gets ErrAlreadyFinalized.
func (m *Manager) Finalize(ctx context.Context, deviceID string, cartoonID uuid.UUID) (*models.DownloadedFace, error) {
	if _, err := m.store.GetOrCreateDevice(ctx, deviceID); err != nil {
		return nil, err
	}

	cartoon, err := m.store.GetCartoon(ctx, cartoonID, deviceID)
	if err != nil {
		return nil, err
	}
	if cartoon == nil {
		return nil, ErrCartoonNotFound
	}

	existing, err := m.store.GetFaceByOriginal(ctx, cartoon.OriginalID, deviceID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyFinalized
	}

	faceData, err := m.transform.SegmentHead(ctx, cartoon.ImageURL)
	if err != nil {
		return nil, err
	}

	comp := &compensator{}

	faceFilename := storage.GenerateFilename(cartoon.OriginalID.String())
	faceKey, err := m.blobs.Save(ctx, storage.CategoryDownloaded, faceFilename, faceData, "image/jpeg")
	if err != nil {
		return nil, fmt.Errorf("save face blob: %w", err)
	}
	comp.add("delete face blob", func() error {
		return m.blobs.Delete(context.WithoutCancel(ctx), storage.CategoryDownloaded, faceFilename)
	})

	sourceID := cartoon.ID
	face := &models.DownloadedFace{
		DeviceID:        deviceID,
		OriginalID:      cartoon.OriginalID,
		Filename:        faceFilename,
		BlobKey:         faceKey,
		FaceURL:         m.blobs.URLFor(storage.CategoryDownloaded, faceFilename),
		FileSize:        int64(len(faceData)),
		MimeType:        "image/jpeg",
		SourceCartoonID: &sourceID,
	}
	if err := m.store.CreateFace(ctx, face); err != nil {
		comp.run()
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrAlreadyFinalized
		}
		return nil, err
	}

	m.purgeCartoons(ctx, cartoon.OriginalID, deviceID)

	observability.FinalizationsTotal.Inc()
	m.publish(ctx, models.AssetEvent{
		Type:       models.EventFinalized,
		DeviceID:   deviceID,
		OriginalID: face.OriginalID,
		AssetID:    face.ID,
		AssetURL:   face.FaceURL,
		CreatedAt:  face.CreatedAt,
	})

	return face, nil
}

// purgeCartoons removes every temporary cartoon (blobs then records) for an
// original. Each step is best-effort; a crash or partial failure here leaves
// orphaned temp blobs, which the token sweep tolerates on the next pass.
func (m *Manager) purgeCartoons(ctx context.Context, originalID uuid.UUID, deviceID string) {
	cartoons, err := m.store.ListCartoonsByOriginal(ctx, originalID, deviceID)
	if err != nil {
		slog.Error("list cartoons for purge", "original_id", originalID, "error", err)
		cartoons = nil
	}

	purged := 0
	for _, c := range cartoons {
		if err := m.blobs.Delete(ctx, storage.CategoryTemp, c.Filename); err != nil {
			slog.Error("delete temp blob", "filename", c.Filename, "error", err)
			continue
		}
		purged++
	}

	// Sweep strays whose records were already gone.
	swept, err := m.blobs.PurgeByToken(ctx, storage.CategoryTemp, storage.ShortID(originalID.String()))
	if err != nil {
		slog.Error("purge temp blobs by token", "original_id", originalID, "error", err)
	}
	observability.TempPurgedTotal.Add(float64(purged + swept))

	if _, err := m.store.DeleteCartoonsByOriginal(ctx, originalID, deviceID); err != nil {
		slog.Error("delete cartoon records", "original_id", originalID, "error", err)
	}
}

func (m *Manager) publish(ctx context.Context, event models.AssetEvent) {
	if m.events == nil {
		return
	}
	if err := m.events.PublishAssetEvent(ctx, event.DeviceID, event); err != nil {
		slog.Warn("publish asset event", "type", event.Type, "error", err)
	}
}
