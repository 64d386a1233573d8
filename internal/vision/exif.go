package vision

import (
	"bytes"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// Camera firmware writes naive local timestamps in this fixed format.
// No timezone normalization is applied.
const exifTimeLayout = "2006:01:02 15:04:05"

type TimeStatus int

const (
	TimeOK TimeStatus = iota
	TimeMissing
	TimeMalformed
)

// TimeResult is the outcome of capture-time extraction. Missing and
// malformed metadata are ordinary values the caller branches on, not
// errors propagated through the pipeline.
type TimeResult struct {
	Status TimeStatus
	Value  time.Time
}

// CaptureTime reads the EXIF DateTime field from the raw file bytes.
// Frames without EXIF (videos, stripped files) report TimeMissing.
func CaptureTime(raw []byte) TimeResult {
	if len(raw) == 0 {
		return TimeResult{Status: TimeMissing}
	}

	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return TimeResult{Status: TimeMissing}
	}

	tag, err := x.Get(exif.DateTime)
	if err != nil {
		return TimeResult{Status: TimeMissing}
	}

	s, err := tag.StringVal()
	if err != nil {
		return TimeResult{Status: TimeMalformed}
	}

	return parseCaptureTime(s)
}

func parseCaptureTime(s string) TimeResult {
	t, err := time.Parse(exifTimeLayout, s)
	if err != nil {
		return TimeResult{Status: TimeMalformed}
	}
	return TimeResult{Status: TimeOK, Value: t}
}
