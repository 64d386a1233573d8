package pipeline

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/google/uuid"

	"github.com/kbrose/deertracker/internal/models"
	"github.com/kbrose/deertracker/internal/storage"
	"github.com/kbrose/deertracker/internal/vision"
)

// fakeGateway is an in-memory persistence gateway enforcing the same
// uniqueness semantics as the real store. Safe for concurrent workers.
type fakeGateway struct {
	mu      sync.Mutex
	cameras map[string]models.Camera
	photos  map[string]models.Photo
	objects map[string]models.DetectedObject
	batches []models.Batch

	objectInsertErr error // forced failure for non-duplicate inserts
}

func newFakeGateway(cameras ...models.Camera) *fakeGateway {
	g := &fakeGateway{
		cameras: make(map[string]models.Camera),
		photos:  make(map[string]models.Photo),
		objects: make(map[string]models.DetectedObject),
	}
	for _, c := range cameras {
		g.cameras[c.Name] = c
	}
	return g
}

func (g *fakeGateway) GetCamera(_ context.Context, name string) (*models.Camera, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.cameras[name]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (g *fakeGateway) InsertBatch(context.Context) (*models.Batch, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b := models.Batch{ID: uuid.New()}
	g.batches = append(g.batches, b)
	return &b, nil
}

func (g *fakeGateway) PhotoExists(_ context.Context, id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.photos[id]
	return ok, nil
}

func (g *fakeGateway) InsertPhoto(_ context.Context, id, path string, batchID *uuid.UUID) (*models.Photo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.photos[id]; ok {
		return nil, &storage.DuplicateError{Entity: "photo", Key: path}
	}
	p := models.Photo{ID: id, Path: path, BatchID: batchID}
	g.photos[id] = p
	return &p, nil
}

func (g *fakeGateway) InsertObject(_ context.Context, obj models.DetectedObject) (*models.DetectedObject, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.objectInsertErr != nil {
		return nil, g.objectInsertErr
	}
	if _, ok := g.objects[obj.ID]; ok {
		return nil, &storage.DuplicateError{Entity: "object", Key: obj.ID}
	}
	g.objects[obj.ID] = obj
	return &obj, nil
}

func (g *fakeGateway) Close() {}

func (g *fakeGateway) photoCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.photos)
}

func (g *fakeGateway) objectCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.objects)
}

func (g *fakeGateway) singleObject() models.DetectedObject {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, obj := range g.objects {
		return obj
	}
	return models.DetectedObject{}
}

// fakeDetector returns a fixed detection set.
type fakeDetector struct {
	detections []vision.Detection
	err        error
	panicMsg   string

	mu    sync.Mutex
	calls int
}

func (d *fakeDetector) Detect(image.Image, float32) ([]vision.Detection, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	if d.panicMsg != "" {
		panic(d.panicMsg)
	}
	if d.err != nil {
		return nil, d.err
	}
	return append([]vision.Detection(nil), d.detections...), nil
}

func (d *fakeDetector) Close() {}

func (d *fakeDetector) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// fakeCropStore keeps crops in memory, keyed like the real store.
type fakeCropStore struct {
	mu    sync.Mutex
	crops map[string][]byte
	err   error
}

func newFakeCropStore() *fakeCropStore {
	return &fakeCropStore{crops: make(map[string][]byte)}
}

func (s *fakeCropStore) Put(_ context.Context, id string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	key := fmt.Sprintf("crops/%s.jpg", id)
	s.crops[key] = data
	return key, nil
}

// fakePublisher records published detection events.
type fakePublisher struct {
	mu     sync.Mutex
	events []models.DetectionEvent
}

func (p *fakePublisher) PublishDetection(_ context.Context, _ string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, data.(models.DetectionEvent))
	return nil
}

func (p *fakePublisher) eventCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
