package models

import (
	"time"

	"github.com/google/uuid"
)

// Camera is a registered trail camera. Name is the primary key;
// the location is copied onto every object the camera produces.
type Camera struct {
	Name string  `json:"name" db:"name"`
	Lat  float64 `json:"lat" db:"lat"`
	Lon  float64 `json:"lon" db:"lon"`
}

// Batch groups the photos of one import run for provenance.
type Batch struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Time time.Time `json:"time" db:"time"`
}

// Photo is one ingested capture. The id is the md5 fingerprint of the
// decoded frame, so identical content under different filenames maps
// to the same row.
type Photo struct {
	ID      string     `json:"id" db:"id"`
	Path    string     `json:"path" db:"path"`
	BatchID *uuid.UUID `json:"batch_id,omitempty" db:"batch_id"`
}

// DetectedObject is one cropped detection. The id is
// <label>_<confidence*100>_<crop fingerprint>, which makes visually
// identical crops collide on insert instead of duplicating.
type DetectedObject struct {
	ID          string     `json:"id" db:"id"`
	Path        string     `json:"path" db:"path"`
	Lat         float64    `json:"lat" db:"lat"`
	Lon         float64    `json:"lon" db:"lon"`
	Time        *time.Time `json:"time,omitempty" db:"time"`
	Label       string     `json:"label" db:"label"`
	Confidence  float32    `json:"confidence" db:"confidence"`
	GroundTruth bool       `json:"ground_truth" db:"ground_truth"`
	PhotoID     string     `json:"photo_id" db:"photo_id"`
	CameraID    string     `json:"camera_id" db:"camera_id"`
}

// DetectionEvent is published to NATS for each persisted detection so
// review clients can follow an import live.
type DetectionEvent struct {
	ObjectID   string     `json:"object_id"`
	PhotoID    string     `json:"photo_id"`
	CameraID   string     `json:"camera_id"`
	Label      string     `json:"label"`
	Confidence float32    `json:"confidence"`
	Time       *time.Time `json:"time,omitempty"`
	CropKey    string     `json:"crop_key"`
}
