package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbrose/deertracker/internal/ingest"
	"github.com/kbrose/deertracker/internal/models"
	"github.com/kbrose/deertracker/internal/observability"
	"github.com/kbrose/deertracker/internal/storage"
	"github.com/kbrose/deertracker/internal/vision"
)

var photoExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}
var videoExts = map[string]bool{".mp4": true, ".mov": true, ".avi": true}

// SupportedFile reports whether the path has a recognized photo or
// video extension.
func SupportedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return photoExts[ext] || videoExts[ext]
}

func isVideo(path string) bool {
	return videoExts[strings.ToLower(filepath.Ext(path))]
}

// Gateway is the slice of the persistence layer the pipeline consumes.
// Inserts report uniqueness violations as storage.DuplicateError; they
// never overwrite.
type Gateway interface {
	GetCamera(ctx context.Context, name string) (*models.Camera, error)
	InsertBatch(ctx context.Context) (*models.Batch, error)
	PhotoExists(ctx context.Context, id string) (bool, error)
	InsertPhoto(ctx context.Context, id, path string, batchID *uuid.UUID) (*models.Photo, error)
	InsertObject(ctx context.Context, obj models.DetectedObject) (*models.DetectedObject, error)
	Close()
}

// CropStore persists an encoded detection crop under a
// content-addressed id and returns the canonical storage path.
type CropStore interface {
	Put(ctx context.Context, id string, data []byte) (string, error)
}

// EventPublisher receives one event per persisted detection.
type EventPublisher interface {
	PublishDetection(ctx context.Context, cameraID string, data interface{}) error
}

// Outcome is the terminal state of one input file: a persisted photo
// or the error that stopped it. Errors never escape a file boundary.
type Outcome struct {
	Path  string
	Photo *models.Photo
	Err   error
}

// ObjectID derives the deterministic id of a detection crop. The
// confidence is quantized to two digits so visually identical crops
// of the same label collide instead of multiplying.
func ObjectID(label string, confidence float32, cropHash string) string {
	return fmt.Sprintf("%s_%d_%s", label, int(confidence*100), cropHash)
}

// Processor runs the per-file state machine for one camera with one
// gateway connection and one loaded detector. It is not safe for
// concurrent use; fan-out builds one Processor per worker.
type Processor struct {
	camera   *models.Camera
	batchID  *uuid.UUID
	gateway  Gateway
	detector vision.Detector
	crops    CropStore
	events   EventPublisher
	opts     Options
}

// Process runs one file to a terminal state. Any panic while
// processing is logged with the file path and downgraded to an error
// outcome so the remaining files keep flowing.
func (p *Processor) Process(ctx context.Context, path string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic processing photo", "file", path, "panic", r, "stack", string(debug.Stack()))
			out = Outcome{Path: path, Err: fmt.Errorf("error processing photo `%s`", path)}
		}
	}()

	photo, err := p.process(ctx, path)
	switch {
	case err == nil:
		observability.PhotosProcessed.WithLabelValues("ok").Inc()
	case storage.IsDuplicate(err):
		observability.PhotosProcessed.WithLabelValues("duplicate").Inc()
		observability.DuplicatePhotos.Inc()
	default:
		observability.PhotosProcessed.WithLabelValues("error").Inc()
		slog.Error("photo failed", "file", path, "error", err)
	}
	return Outcome{Path: path, Photo: photo, Err: err}
}

func (p *Processor) process(ctx context.Context, path string) (*models.Photo, error) {
	img, raw, err := decode(path)
	if err != nil {
		return nil, err
	}

	// Dedupe on the full-frame fingerprint before any detector work.
	hash := vision.Fingerprint(img)
	exists, err := p.gateway.PhotoExists(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("dedupe check `%s`: %w", path, err)
	}
	if exists {
		return nil, &storage.DuplicateError{Entity: "photo", Key: path}
	}

	captured, err := p.captureTime(path, raw)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	detections, err := p.detector.Detect(img, p.opts.Threshold)
	observability.StageDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &DetectorError{Path: path, Err: err}
	}

	for _, det := range detections {
		err := p.persistDetection(ctx, img, det, hash, captured)
		var storeErr *StorageWriteError
		switch {
		case err == nil:
		case storage.IsDuplicate(err):
			// Two visually identical crops from different photos are
			// expected; keep going with the rest of the detections.
			observability.DuplicateObjects.Inc()
			slog.Warn("duplicate object", "file", path, "error", err)
		case errors.As(err, &storeErr):
			slog.Error("crop not stored", "file", path, "error", err)
		default:
			return nil, err
		}
	}

	// The photo row goes in last. A duplicate here is a race against
	// another worker ingesting identical content; the loser reports it
	// and its already-persisted object rows stay put.
	photo, err := p.gateway.InsertPhoto(ctx, hash, path, p.batchID)
	if err != nil {
		return nil, err
	}
	return photo, nil
}

func decode(path string) (image.Image, []byte, error) {
	if isVideo(path) {
		img, err := ingest.FirstFrame(path)
		if err != nil {
			return nil, nil, &DecodeError{Path: path, Err: err}
		}
		// Video frames carry no EXIF; capture time is Missing.
		return img, nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &DecodeError{Path: path, Err: err}
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, &DecodeError{Path: path, Err: err}
	}
	return img, raw, nil
}

func (p *Processor) captureTime(path string, raw []byte) (*time.Time, error) {
	res := vision.CaptureTime(raw)
	switch res.Status {
	case vision.TimeOK:
		t := res.Value
		return &t, nil
	case vision.TimeMalformed:
		// A present-but-unparseable timestamp is always an error;
		// AllowMissingTime only covers absent metadata.
		return nil, &MissingTimeError{Path: path, Malformed: true}
	default:
		if !p.opts.AllowMissingTime {
			return nil, &MissingTimeError{Path: path}
		}
		return nil, nil
	}
}

func (p *Processor) persistDetection(ctx context.Context, img image.Image, det vision.Detection, photoID string, captured *time.Time) error {
	crop := vision.Crop(img, det)
	if crop == nil {
		slog.Warn("detection box empty after clamping", "photo", photoID, "label", det.Label)
		return nil
	}

	id := ObjectID(det.Label, det.Confidence, vision.Fingerprint(crop))

	key, err := p.crops.Put(ctx, id, vision.EncodeJPEG(crop, p.opts.CropQuality))
	if err != nil {
		return &StorageWriteError{Key: id, Err: err}
	}

	obj := models.DetectedObject{
		ID:         id,
		Path:       key,
		Lat:        p.camera.Lat,
		Lon:        p.camera.Lon,
		Time:       captured,
		Label:      det.Label,
		Confidence: det.Confidence,
		PhotoID:    photoID,
		CameraID:   p.camera.Name,
	}
	if _, err := p.gateway.InsertObject(ctx, obj); err != nil {
		return err
	}
	observability.ObjectsDetected.WithLabelValues(det.Label).Inc()

	if p.events != nil {
		event := models.DetectionEvent{
			ObjectID:   obj.ID,
			PhotoID:    obj.PhotoID,
			CameraID:   obj.CameraID,
			Label:      obj.Label,
			Confidence: obj.Confidence,
			Time:       obj.Time,
			CropKey:    obj.Path,
		}
		if err := p.events.PublishDetection(ctx, obj.CameraID, event); err != nil {
			slog.Warn("publish detection event", "object", obj.ID, "error", err)
		}
	}
	return nil
}
