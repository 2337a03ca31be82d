package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/your-org/toonface/internal/config"
	"github.com/your-org/toonface/internal/models"
)

// ErrDuplicateKey is returned when an insert violates a unique index. The
// unique index on downloaded_faces.original_id is the backstop that keeps
// finalization a one-time transition under concurrent requests.
var ErrDuplicateKey = errors.New("duplicate key")

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the schema idempotently at startup.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS devices (
			id UUID PRIMARY KEY,
			device_id TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_active_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS originals (
			id UUID PRIMARY KEY,
			device_id TEXT NOT NULL,
			filename TEXT NOT NULL UNIQUE,
			blob_key TEXT NOT NULL,
			image_url TEXT NOT NULL,
			file_size BIGINT NOT NULL CHECK (file_size >= 0 AND file_size <= 10485760),
			mime_type TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_originals_device_created ON originals (device_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS regenerated_cartoons (
			id UUID PRIMARY KEY,
			device_id TEXT NOT NULL,
			original_id UUID NOT NULL REFERENCES originals(id),
			filename TEXT NOT NULL,
			blob_key TEXT NOT NULL,
			image_url TEXT NOT NULL,
			file_size BIGINT NOT NULL CHECK (file_size >= 0 AND file_size <= 10485760),
			mime_type TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cartoons_original_created ON regenerated_cartoons (original_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_cartoons_device_created ON regenerated_cartoons (device_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS downloaded_faces (
			id UUID PRIMARY KEY,
			device_id TEXT NOT NULL,
			original_id UUID NOT NULL UNIQUE REFERENCES originals(id),
			filename TEXT NOT NULL UNIQUE,
			blob_key TEXT NOT NULL,
			face_url TEXT NOT NULL,
			file_size BIGINT NOT NULL CHECK (file_size >= 0 AND file_size <= 10485760),
			mime_type TEXT NOT NULL,
			source_cartoon_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_faces_device_created ON downloaded_faces (device_id, created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// --- Devices ---

// GetOrCreateDevice upserts the device record for an opaque device identifier.
// First sight creates the row; every later call bumps last_active_at. The
// unique index on device_id makes concurrent first sights converge on one row.
func (s *PostgresStore) GetOrCreateDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	d := &models.Device{DeviceID: deviceID}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO devices (id, device_id) VALUES ($1, $2)
		 ON CONFLICT (device_id) DO UPDATE SET last_active_at = now()
		 RETURNING id, created_at, last_active_at`,
		uuid.New(), deviceID,
	).Scan(&d.ID, &d.CreatedAt, &d.LastActiveAt)
	if err != nil {
		return nil, fmt.Errorf("get or create device: %w", err)
	}
	return d, nil
}

// --- Originals ---

func (s *PostgresStore) CreateOriginal(ctx context.Context, o *models.Original) error {
	o.ID = uuid.New()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO originals (id, device_id, filename, blob_key, image_url, file_size, mime_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`,
		o.ID, o.DeviceID, o.Filename, o.BlobKey, o.ImageURL, o.FileSize, o.MimeType,
	).Scan(&o.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create original: %w", ErrDuplicateKey)
		}
		return fmt.Errorf("create original: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOriginal(ctx context.Context, id uuid.UUID, deviceID string) (*models.Original, error) {
	o := &models.Original{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, device_id, filename, blob_key, image_url, file_size, mime_type, created_at
		 FROM originals WHERE id = $1 AND device_id = $2`, id, deviceID,
	).Scan(&o.ID, &o.DeviceID, &o.Filename, &o.BlobKey, &o.ImageURL, &o.FileSize, &o.MimeType, &o.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get original: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) ListOriginals(ctx context.Context, deviceID string) ([]models.Original, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, device_id, filename, blob_key, image_url, file_size, mime_type, created_at
		 FROM originals WHERE device_id = $1 ORDER BY created_at DESC`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("list originals: %w", err)
	}
	defer rows.Close()

	var originals []models.Original
	for rows.Next() {
		var o models.Original
		if err := rows.Scan(&o.ID, &o.DeviceID, &o.Filename, &o.BlobKey, &o.ImageURL,
			&o.FileSize, &o.MimeType, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan original: %w", err)
		}
		originals = append(originals, o)
	}
	return originals, nil
}

// --- Regenerated cartoons ---

func (s *PostgresStore) CreateCartoon(ctx context.Context, c *models.RegeneratedCartoon) error {
	c.ID = uuid.New()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO regenerated_cartoons (id, device_id, original_id, filename, blob_key, image_url, file_size, mime_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at`,
		c.ID, c.DeviceID, c.OriginalID, c.Filename, c.BlobKey, c.ImageURL, c.FileSize, c.MimeType,
	).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create cartoon: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCartoon(ctx context.Context, id uuid.UUID, deviceID string) (*models.RegeneratedCartoon, error) {
	c := &models.RegeneratedCartoon{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, device_id, original_id, filename, blob_key, image_url, file_size, mime_type, created_at
		 FROM regenerated_cartoons WHERE id = $1 AND device_id = $2`, id, deviceID,
	).Scan(&c.ID, &c.DeviceID, &c.OriginalID, &c.Filename, &c.BlobKey, &c.ImageURL,
		&c.FileSize, &c.MimeType, &c.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get cartoon: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListCartoonsByOriginal(ctx context.Context, originalID uuid.UUID, deviceID string) ([]models.RegeneratedCartoon, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, device_id, original_id, filename, blob_key, image_url, file_size, mime_type, created_at
		 FROM regenerated_cartoons WHERE original_id = $1 AND device_id = $2 ORDER BY created_at DESC`,
		originalID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("list cartoons by original: %w", err)
	}
	defer rows.Close()

	return scanCartoons(rows)
}

func scanCartoons(rows pgx.Rows) ([]models.RegeneratedCartoon, error) {
	var cartoons []models.RegeneratedCartoon
	for rows.Next() {
		var c models.RegeneratedCartoon
		if err := rows.Scan(&c.ID, &c.DeviceID, &c.OriginalID, &c.Filename, &c.BlobKey,
			&c.ImageURL, &c.FileSize, &c.MimeType, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cartoon: %w", err)
		}
		cartoons = append(cartoons, c)
	}
	return cartoons, nil
}

// DeleteCartoonsByOriginal removes all cartoon records for an original and
// returns how many were deleted.
func (s *PostgresStore) DeleteCartoonsByOriginal(ctx context.Context, originalID uuid.UUID, deviceID string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM regenerated_cartoons WHERE original_id = $1 AND device_id = $2`,
		originalID, deviceID)
	if err != nil {
		return 0, fmt.Errorf("delete cartoons by original: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CartoonWithOriginal is a cartoon joined with its owning original.
type CartoonWithOriginal struct {
	models.RegeneratedCartoon
	Original models.Original
}

// ListCartoons returns all cartoons for a device, newest first, each joined
// with its owning original. originalID optionally narrows to one original.
func (s *PostgresStore) ListCartoons(ctx context.Context, deviceID string, originalID *uuid.UUID) ([]CartoonWithOriginal, error) {
	query := `SELECT c.id, c.device_id, c.original_id, c.filename, c.blob_key, c.image_url, c.file_size, c.mime_type, c.created_at,
			o.id, o.image_url, o.created_at
		 FROM regenerated_cartoons c
		 JOIN originals o ON o.id = c.original_id
		 WHERE c.device_id = $1`
	args := []interface{}{deviceID}
	if originalID != nil {
		query += ` AND c.original_id = $2`
		args = append(args, *originalID)
	}
	query += ` ORDER BY c.created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cartoons: %w", err)
	}
	defer rows.Close()

	var result []CartoonWithOriginal
	for rows.Next() {
		var cw CartoonWithOriginal
		if err := rows.Scan(&cw.ID, &cw.DeviceID, &cw.OriginalID, &cw.Filename, &cw.BlobKey,
			&cw.ImageURL, &cw.FileSize, &cw.MimeType, &cw.CreatedAt,
			&cw.Original.ID, &cw.Original.ImageURL, &cw.Original.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cartoon: %w", err)
		}
		result = append(result, cw)
	}
	return result, nil
}

// --- Downloaded faces ---

// CreateFace inserts the finalization record. A unique violation on
// original_id means another finalize won the race; callers treat
// ErrDuplicateKey as a conflict, not a server fault.
func (s *PostgresStore) CreateFace(ctx context.Context, f *models.DownloadedFace) error {
	f.ID = uuid.New()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO downloaded_faces (id, device_id, original_id, filename, blob_key, face_url, file_size, mime_type, source_cartoon_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at`,
		f.ID, f.DeviceID, f.OriginalID, f.Filename, f.BlobKey, f.FaceURL, f.FileSize, f.MimeType, f.SourceCartoonID,
	).Scan(&f.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create downloaded face: %w", ErrDuplicateKey)
		}
		return fmt.Errorf("create downloaded face: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetFaceByOriginal(ctx context.Context, originalID uuid.UUID, deviceID string) (*models.DownloadedFace, error) {
	f := &models.DownloadedFace{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, device_id, original_id, filename, blob_key, face_url, file_size, mime_type, source_cartoon_id, created_at
		 FROM downloaded_faces WHERE original_id = $1 AND device_id = $2`, originalID, deviceID,
	).Scan(&f.ID, &f.DeviceID, &f.OriginalID, &f.Filename, &f.BlobKey, &f.FaceURL,
		&f.FileSize, &f.MimeType, &f.SourceCartoonID, &f.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get downloaded face: %w", err)
	}
	return f, nil
}

// FaceWithOriginal is a downloaded face joined with its owning original.
type FaceWithOriginal struct {
	models.DownloadedFace
	Original models.Original
}

// ListFaces returns a page of downloaded faces for a device, newest first,
// plus the total count for pagination.
func (s *PostgresStore) ListFaces(ctx context.Context, deviceID string, limit, offset int) ([]FaceWithOriginal, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM downloaded_faces WHERE device_id = $1`, deviceID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count downloaded faces: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT f.id, f.device_id, f.original_id, f.filename, f.blob_key, f.face_url, f.file_size, f.mime_type, f.source_cartoon_id, f.created_at,
			o.id, o.image_url, o.created_at
		 FROM downloaded_faces f
		 JOIN originals o ON o.id = f.original_id
		 WHERE f.device_id = $1
		 ORDER BY f.created_at DESC LIMIT $2 OFFSET $3`,
		deviceID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list downloaded faces: %w", err)
	}
	defer rows.Close()

	var result []FaceWithOriginal
	for rows.Next() {
		var fw FaceWithOriginal
		if err := rows.Scan(&fw.ID, &fw.DeviceID, &fw.OriginalID, &fw.Filename, &fw.BlobKey,
			&fw.FaceURL, &fw.FileSize, &fw.MimeType, &fw.SourceCartoonID, &fw.CreatedAt,
			&fw.Original.ID, &fw.Original.ImageURL, &fw.Original.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan downloaded face: %w", err)
		}
		result = append(result, fw)
	}
	return result, total, nil
}
