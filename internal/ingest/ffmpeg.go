package ingest

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"os/exec"
)

// FirstFrame extracts the first frame of a video file as a decoded
// image. The rest of the pipeline then treats the frame exactly like
// a still photo.
func FirstFrame(path string) (image.Image, error) {
	args := []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "2",
		"pipe:1",
	}

	cmd := exec.Command("ffmpeg", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			slog.Warn("ffmpeg stderr", "file", path, "output", scanner.Text())
		}
	}()

	frame, readErr := readJPEGFrame(bufio.NewReaderSize(stdout, 512*1024))

	// Drain and reap regardless of read outcome.
	_, _ = io.Copy(io.Discard, stdout)
	waitErr := cmd.Wait()

	if readErr != nil {
		return nil, fmt.Errorf("no frame from `%s`: %w", path, readErr)
	}
	if waitErr != nil {
		slog.Warn("ffmpeg exited uncleanly after producing a frame", "file", path, "error", waitErr)
	}

	img, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode frame of `%s`: %w", path, err)
	}
	return img, nil
}

// readJPEGFrame reads one JPEG image from a stream of image2pipe output.
func readJPEGFrame(r *bufio.Reader) ([]byte, error) {
	if err := findJPEGStart(r); err != nil {
		return nil, err
	}
	return readUntilJPEGEnd(r)
}

func findJPEGStart(r *bufio.Reader) error {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		if b != 0xFF {
			continue
		}
		b, err = r.ReadByte()
		if err != nil {
			return err
		}
		if b == 0xD8 {
			return nil
		}
	}
}

func readUntilJPEGEnd(r *bufio.Reader) ([]byte, error) {
	data := []byte{0xFF, 0xD8}

	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		data = append(data, b)

		if b == 0xFF {
			next, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			data = append(data, next)
			if next == 0xD9 {
				return data, nil
			}
		}

		// Safety: max 50MB per frame
		if len(data) > 50*1024*1024 {
			return nil, fmt.Errorf("jpeg frame too large: %d bytes", len(data))
		}
	}
}
