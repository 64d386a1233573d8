package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kbrose/deertracker/internal/config"
	"github.com/kbrose/deertracker/internal/models"
)

// PostgresStore is the persistence gateway over the camera, batch,
// photo and object tables. Foreign keys are enforced here at the
// application level: inserts carry the owning camera and photo ids
// verbatim and rely on the uniqueness constraints for dedup.
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

// --- Cameras ---

func (s *PostgresStore) InsertCamera(ctx context.Context, name string, lat, lon float64) (*models.Camera, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO camera (name, lat, lon) VALUES ($1, $2, $3)`,
		name, lat, lon,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &DuplicateError{Entity: "camera", Key: name}
		}
		return nil, fmt.Errorf("insert camera: %w", err)
	}
	return &models.Camera{Name: name, Lat: lat, Lon: lon}, nil
}

// GetCamera returns nil, nil when no camera with that name is registered.
func (s *PostgresStore) GetCamera(ctx context.Context, name string) (*models.Camera, error) {
	c := &models.Camera{}
	err := s.pool.QueryRow(ctx,
		`SELECT name, lat, lon FROM camera WHERE name = $1`, name,
	).Scan(&c.Name, &c.Lat, &c.Lon)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get camera: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListCameras(ctx context.Context) ([]models.Camera, error) {
	rows, err := s.pool.Query(ctx, `SELECT name, lat, lon FROM camera ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list cameras: %w", err)
	}
	defer rows.Close()

	var cameras []models.Camera
	for rows.Next() {
		var c models.Camera
		if err := rows.Scan(&c.Name, &c.Lat, &c.Lon); err != nil {
			return nil, fmt.Errorf("scan camera: %w", err)
		}
		cameras = append(cameras, c)
	}
	return cameras, rows.Err()
}

// --- Batches ---

func (s *PostgresStore) InsertBatch(ctx context.Context) (*models.Batch, error) {
	b := &models.Batch{ID: uuid.New(), Time: time.Now()}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO batch (id, time) VALUES ($1, $2)`, b.ID, b.Time)
	if err != nil {
		return nil, fmt.Errorf("insert batch: %w", err)
	}
	return b, nil
}

// --- Photos ---

func (s *PostgresStore) PhotoExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM photo WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("photo exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) InsertPhoto(ctx context.Context, id, path string, batchID *uuid.UUID) (*models.Photo, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO photo (id, path, batch_id) VALUES ($1, $2, $3)`,
		id, path, batchID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &DuplicateError{Entity: "photo", Key: path}
		}
		return nil, fmt.Errorf("insert photo: %w", err)
	}
	return &models.Photo{ID: id, Path: path, BatchID: batchID}, nil
}

// --- Objects ---

func (s *PostgresStore) InsertObject(ctx context.Context, obj models.DetectedObject) (*models.DetectedObject, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO object (id, path, lat, lon, time, label, confidence, ground_truth, photo_id, camera_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		obj.ID, obj.Path, obj.Lat, obj.Lon, obj.Time, obj.Label, obj.Confidence,
		obj.GroundTruth, obj.PhotoID, obj.CameraID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &DuplicateError{Entity: "object", Key: obj.ID}
		}
		return nil, fmt.Errorf("insert object: %w", err)
	}
	return &obj, nil
}

func (s *PostgresStore) GetObject(ctx context.Context, id string) (*models.DetectedObject, error) {
	obj := &models.DetectedObject{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, path, lat, lon, time, label, confidence, ground_truth, photo_id, camera_id
		 FROM object WHERE id = $1`, id,
	).Scan(&obj.ID, &obj.Path, &obj.Lat, &obj.Lon, &obj.Time, &obj.Label,
		&obj.Confidence, &obj.GroundTruth, &obj.PhotoID, &obj.CameraID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	return obj, nil
}

// PendingObjects returns all detections not yet vetted by a reviewer.
func (s *PostgresStore) PendingObjects(ctx context.Context) ([]models.DetectedObject, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, path, lat, lon, time, label, confidence, ground_truth, photo_id, camera_id
		 FROM object WHERE ground_truth = FALSE`)
	if err != nil {
		return nil, fmt.Errorf("pending objects: %w", err)
	}
	defer rows.Close()

	var objects []models.DetectedObject
	for rows.Next() {
		var obj models.DetectedObject
		if err := rows.Scan(&obj.ID, &obj.Path, &obj.Lat, &obj.Lon, &obj.Time, &obj.Label,
			&obj.Confidence, &obj.GroundTruth, &obj.PhotoID, &obj.CameraID); err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		objects = append(objects, obj)
	}
	return objects, rows.Err()
}

// CommitReview marks every pending detection as ground truth and
// returns how many rows it touched. The transition is one-way: a
// vetted row never reappears in PendingObjects.
func (s *PostgresStore) CommitReview(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE object SET ground_truth = TRUE WHERE ground_truth = FALSE`)
	if err != nil {
		return 0, fmt.Errorf("commit review: %w", err)
	}
	return tag.RowsAffected(), nil
}
