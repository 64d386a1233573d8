package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/schollz/progressbar/v3"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/kbrose/deertracker/internal/config"
	"github.com/kbrose/deertracker/internal/observability"
	"github.com/kbrose/deertracker/internal/pipeline"
	"github.com/kbrose/deertracker/internal/queue"
	"github.com/kbrose/deertracker/internal/storage"
	"github.com/kbrose/deertracker/internal/vision"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: deertracker <command> [flags]

commands:
  add-camera   register a trail camera
  import       ingest a directory of photos and videos for a camera
  review       list detections pending review
  commit       mark all pending detections as ground truth
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	var err error
	switch os.Args[1] {
	case "add-camera":
		err = runAddCamera(os.Args[2:])
	case "import":
		err = runImport(os.Args[2:])
	case "review":
		err = runReview(os.Args[2:])
	case "commit":
		err = runCommit(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "deertracker %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func loadConfig(fset *flag.FlagSet, args []string) (*config.Config, error) {
	configPath := fset.String("config", "configs/config.yaml", "path to config file")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func runAddCamera(args []string) error {
	fset := flag.NewFlagSet("add-camera", flag.ExitOnError)
	name := fset.String("name", "", "name of camera (required)")
	lat := fset.Float64("lat", 0, "latitude of camera location")
	lon := fset.Float64("lon", 0, "longitude of camera location")

	cfg, err := loadConfig(fset, args)
	if err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("-name is required")
	}

	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	camera, err := db.InsertCamera(context.Background(), *name, *lat, *lon)
	if err != nil {
		return err
	}
	fmt.Printf("registered camera %s (%.4f, %.4f)\n", camera.Name, camera.Lat, camera.Lon)
	return nil
}

func runImport(args []string) error {
	fset := flag.NewFlagSet("import", flag.ExitOnError)
	cameraName := fset.String("camera", "", "name of trail cam to associate with photos (required)")
	photosDir := fset.String("photos", "", "location of photos to process (required)")
	allowMissingTime := fset.Bool("allow-missing-time", false, "ingest files without an EXIF capture time")
	workers := fset.Int("workers", 0, "override configured worker count")

	cfg, err := loadConfig(fset, args)
	if err != nil {
		return err
	}
	if *cameraName == "" || *photosDir == "" {
		return fmt.Errorf("-camera and -photos are required")
	}
	if *workers > 0 {
		cfg.Vision.WorkerCount = *workers
	}

	files, err := discoverFiles(*photosDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no photos or videos found under `%s`", *photosDir)
	}

	ort.SetSharedLibraryPath(onnxLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("init onnx runtime: %w", err)
	}
	defer ort.DestroyEnvironment()

	crops, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := crops.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("ensure minio bucket: %w", err)
	}

	deps := pipeline.Deps{
		NewGateway: func(ctx context.Context) (pipeline.Gateway, error) {
			return storage.NewPostgresStore(cfg.Database)
		},
		NewDetector: func() (vision.Detector, error) {
			return vision.NewMegaDetector(cfg.Vision.ModelPath, nil)
		},
		Crops: crops,
	}

	if cfg.NATS.URL != "" {
		producer, err := queue.NewProducer(cfg.NATS.URL)
		if err != nil {
			slog.Warn("connect to nats, continuing without events", "error", err)
		} else {
			defer producer.Close()
			if err := producer.EnsureStream(ctx); err != nil {
				slog.Warn("ensure nats stream", "error", err)
			}
			deps.Events = producer
		}
	}

	outcomes, err := pipeline.Import(ctx, deps, *cameraName, files, pipeline.Options{
		AllowMissingTime: *allowMissingTime,
		Threshold:        float32(cfg.Vision.DetectionThreshold),
		CropQuality:      cfg.Vision.CropQuality,
		Workers:          cfg.Vision.WorkerCount,
	})
	if err != nil {
		return err
	}

	bar := progressbar.Default(int64(len(files)), "importing")
	var failed []pipeline.Outcome
	imported := 0
	for outcome := range outcomes {
		_ = bar.Add(1)
		if outcome.Err != nil {
			failed = append(failed, outcome)
		} else {
			imported++
		}
	}

	fmt.Printf("imported %d of %d files\n", imported, len(files))
	for _, f := range failed {
		fmt.Printf("  %s: %v\n", f.Path, f.Err)
	}
	return nil
}

func runReview(args []string) error {
	fset := flag.NewFlagSet("review", flag.ExitOnError)
	cfg, err := loadConfig(fset, args)
	if err != nil {
		return err
	}

	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	objects, err := db.PendingObjects(context.Background())
	if err != nil {
		return err
	}
	for _, obj := range objects {
		when := "-"
		if obj.Time != nil {
			when = obj.Time.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%s\t%s\t%.2f\t%s\t%s\n", obj.ID, obj.Label, obj.Confidence, when, obj.CameraID)
	}
	fmt.Printf("%d detections pending review\n", len(objects))
	return nil
}

func runCommit(args []string) error {
	fset := flag.NewFlagSet("commit", flag.ExitOnError)
	cfg, err := loadConfig(fset, args)
	if err != nil {
		return err
	}

	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	updated, err := db.CommitReview(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("marked %d detections as ground truth\n", updated)
	return nil
}

// discoverFiles walks a directory collecting files with recognized
// photo or video extensions, case-insensitively.
func discoverFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && pipeline.SupportedFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk `%s`: %w", root, err)
	}
	return files, nil
}

// onnxLibPath returns the ONNX Runtime shared library path
// based on the operating system.
func onnxLibPath() string {
	if p := os.Getenv("DT_ONNX_LIB"); p != "" {
		return p
	}
	switch runtime.GOOS {
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
