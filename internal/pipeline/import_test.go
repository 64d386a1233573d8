package pipeline

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbrose/deertracker/internal/vision"
)

func TestPartition(t *testing.T) {
	files := []string{"a", "b", "c", "d", "e", "f", "g"}

	parts := partition(files, 3)
	require.Len(t, parts, 3)
	assert.Equal(t, []string{"a", "b", "c"}, parts[0])
	assert.Equal(t, []string{"d", "e"}, parts[1])
	assert.Equal(t, []string{"f", "g"}, parts[2])
}

func TestPartitionMoreWorkersThanFiles(t *testing.T) {
	parts := partition([]string{"a", "b"}, 8)
	require.Len(t, parts, 2)
	assert.Equal(t, []string{"a"}, parts[0])
	assert.Equal(t, []string{"b"}, parts[1])
}

func TestPartitionEmpty(t *testing.T) {
	assert.Nil(t, partition(nil, 4))
}

func TestPartitionCoversEveryFileOnce(t *testing.T) {
	var files []string
	for i := 0; i < 23; i++ {
		files = append(files, fmt.Sprintf("f%02d", i))
	}

	for workers := 1; workers <= 6; workers++ {
		seen := make(map[string]int)
		for _, part := range partition(files, workers) {
			for _, f := range part {
				seen[f]++
			}
		}
		require.Len(t, seen, len(files), "workers=%d", workers)
		for f, n := range seen {
			assert.Equal(t, 1, n, "file %s workers=%d", f, workers)
		}
	}
}

func TestImportFanOutProducesOneOutcomePerFile(t *testing.T) {
	dir := t.TempDir()
	var files []string
	for i := 0; i < 9; i++ {
		files = append(files, writeTestPhoto(t, dir, fmt.Sprintf("p%d.png", i), uint8(10+i*5)))
	}

	gw := newFakeGateway(camA)
	var detectors atomic.Int32
	deps := singleWorkerDeps(gw, &fakeDetector{}, newFakeCropStore())
	deps.NewDetector = func() (vision.Detector, error) {
		detectors.Add(1)
		return &fakeDetector{}, nil
	}

	outcomes := importAll(t, deps, "camA", files, Options{AllowMissingTime: true, Workers: 3})

	require.Len(t, outcomes, len(files))
	seen := make(map[string]bool)
	for _, o := range outcomes {
		assert.NoError(t, o.Err)
		assert.False(t, seen[o.Path], "duplicate outcome for %s", o.Path)
		seen[o.Path] = true
	}
	assert.Equal(t, len(files), gw.photoCount())
	// One detector instance per worker.
	assert.Equal(t, int32(3), detectors.Load())
}
