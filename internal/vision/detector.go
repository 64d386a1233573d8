package vision

import "image"

// Detection is one bounding box returned by a detector. Coordinates
// are absolute pixel offsets into the source image, origin top-left.
type Detection struct {
	X          int
	Y          int
	W          int
	H          int
	Label      string
	Confidence float32
}

// Bounds returns the detection box as a rectangle clamped to nothing;
// use Crop to apply it to an image.
func (d Detection) Bounds() image.Rectangle {
	return image.Rect(d.X, d.Y, d.X+d.W, d.Y+d.H)
}

// Detector produces detections for a decoded frame. Implementations
// hold a loaded model but are logically pure per call: the same image
// and threshold always yield the same detection set. Only detections
// with confidence strictly above the threshold are returned.
type Detector interface {
	Detect(img image.Image, threshold float32) ([]Detection, error)
	Close()
}

// The label vocabulary is fixed by the model. A class index outside
// this map is a malformed model output, not a skippable detection.
var classLabels = map[int]string{
	1: "animal",
	2: "person",
	3: "vehicle",
}
