package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/kbrose/deertracker/internal/models"
	"github.com/kbrose/deertracker/internal/vision"
)

// Deps supplies the pipeline's collaborators. Gateway connections and
// detectors are built per worker via the factories, so nothing behind
// them needs to tolerate concurrent use. The crop store and event
// publisher are shared; both are safe for concurrent writers.
type Deps struct {
	NewGateway  func(ctx context.Context) (Gateway, error)
	NewDetector func() (vision.Detector, error)
	Crops       CropStore
	Events      EventPublisher // optional; nil disables event publishing
}

type Options struct {
	// AllowMissingTime lets files without EXIF capture time through
	// with a null timestamp instead of failing them.
	AllowMissingTime bool
	// Threshold is the exclusive minimum detection confidence.
	Threshold float32
	// CropQuality is the JPEG quality for stored crops.
	CropQuality int
	// Workers is the fan-out width, resolved by the caller. 1 runs
	// fully sequentially.
	Workers int
}

// Import ingests a batch of files for one registered camera and
// returns a channel producing exactly one outcome per input file.
// The file list is statically partitioned across opts.Workers
// goroutines; order is preserved within a partition but not across
// workers. An unknown camera fails the call itself, not the files.
//
// Cancellation is coarse: a cancelled context stops workers between
// files, never mid-file.
func Import(ctx context.Context, deps Deps, cameraName string, files []string, opts Options) (<-chan Outcome, error) {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.CropQuality <= 0 {
		opts.CropQuality = 85
	}

	gw, err := deps.NewGateway(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect datastore: %w", err)
	}

	camera, err := gw.GetCamera(ctx, cameraName)
	if err != nil {
		gw.Close()
		return nil, fmt.Errorf("look up camera: %w", err)
	}
	if camera == nil {
		gw.Close()
		return nil, fmt.Errorf("camera `%s` not found", cameraName)
	}

	// One batch per import run, for provenance only. A failure here
	// is logged and the run proceeds with a null batch id.
	var batchID *uuid.UUID
	if batch, err := gw.InsertBatch(ctx); err != nil {
		slog.Warn("create batch", "error", err)
	} else {
		batchID = &batch.ID
	}
	gw.Close()

	out := make(chan Outcome)
	var wg sync.WaitGroup
	for _, part := range partition(files, opts.Workers) {
		wg.Add(1)
		go func(part []string) {
			defer wg.Done()
			runWorker(ctx, deps, camera, batchID, part, opts, out)
		}(part)
	}
	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}

func runWorker(ctx context.Context, deps Deps, camera *models.Camera, batchID *uuid.UUID, files []string, opts Options, out chan<- Outcome) {
	fail := func(err error) {
		for _, f := range files {
			out <- Outcome{Path: f, Err: err}
		}
	}

	gw, err := deps.NewGateway(ctx)
	if err != nil {
		fail(fmt.Errorf("connect datastore: %w", err))
		return
	}
	defer gw.Close()

	detector, err := deps.NewDetector()
	if err != nil {
		fail(fmt.Errorf("load detector: %w", err))
		return
	}
	defer detector.Close()

	p := &Processor{
		camera:   camera,
		batchID:  batchID,
		gateway:  gw,
		detector: detector,
		crops:    deps.Crops,
		events:   deps.Events,
		opts:     opts,
	}

	for i, f := range files {
		if ctx.Err() != nil {
			// Stop issuing new files; the ones not reached still get
			// an outcome so the sequence length stays the file count.
			for _, rest := range files[i:] {
				out <- Outcome{Path: rest, Err: ctx.Err()}
			}
			return
		}
		out <- p.Process(ctx, f)
	}
}

// partition splits files into at most n contiguous chunks whose sizes
// differ by at most one.
func partition(files []string, n int) [][]string {
	if len(files) == 0 {
		return nil
	}
	if n > len(files) {
		n = len(files)
	}

	parts := make([][]string, 0, n)
	base, rem := len(files)/n, len(files)%n
	idx := 0
	for i := 0; i < n; i++ {
		size := base
		if i < rem {
			size++
		}
		parts = append(parts, files[idx:idx+size])
		idx += size
	}
	return parts
}
