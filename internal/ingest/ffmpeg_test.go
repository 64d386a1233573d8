package ingest

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJPEGFrameSkipsLeadingNoise(t *testing.T) {
	frame := []byte{0xFF, 0xD8, 0x01, 0x02, 0x03, 0xFF, 0xD9}
	stream := append([]byte{0x00, 0x13, 0x37}, frame...)

	got, err := readJPEGFrame(bufio.NewReader(bytes.NewReader(stream)))
	require.NoError(t, err)
	assert.Equal(t, frame, got)
}

func TestReadJPEGFrameStopsAtFirstFrame(t *testing.T) {
	frame1 := []byte{0xFF, 0xD8, 0xAA, 0xFF, 0xD9}
	frame2 := []byte{0xFF, 0xD8, 0xBB, 0xFF, 0xD9}

	got, err := readJPEGFrame(bufio.NewReader(bytes.NewReader(append(frame1, frame2...))))
	require.NoError(t, err)
	assert.Equal(t, frame1, got)
}

func TestReadJPEGFrameTruncatedStream(t *testing.T) {
	_, err := readJPEGFrame(bufio.NewReader(bytes.NewReader([]byte{0xFF, 0xD8, 0x01, 0x02})))
	assert.Error(t, err)
}

func TestReadJPEGFrameNoFrame(t *testing.T) {
	_, err := readJPEGFrame(bufio.NewReader(bytes.NewReader([]byte{0x00, 0x01, 0x02})))
	assert.Error(t, err)
}
