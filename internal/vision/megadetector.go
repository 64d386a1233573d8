package vision

import (
	"fmt"
	"image"
	"math"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	megaInputW = 640
	megaInputH = 640
	// The export caps the number of detections per image.
	megaMaxDetections = 100
)

// MegaDetector runs the camera-trap detection model through ONNX
// Runtime. Box outputs are fractions of the source frame in
// (y1, x1, y2, x2) order, so they scale directly to the original
// image dimensions regardless of the model input size.
type MegaDetector struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	boxesTensor  *ort.Tensor[float32]
	classTensor  *ort.Tensor[float32]
	scoresTensor *ort.Tensor[float32]
}

// NewMegaDetector loads the ONNX export of the model.
// opts may be nil (ORT defaults) or a pre-configured *ort.SessionOptions.
func NewMegaDetector(modelPath string, opts *ort.SessionOptions) (*MegaDetector, error) {
	inputShape := ort.NewShape(1, 3, megaInputH, megaInputW)
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	boxesTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, megaMaxDetections, 4))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create boxes tensor: %w", err)
	}
	classTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, megaMaxDetections))
	if err != nil {
		inputTensor.Destroy()
		boxesTensor.Destroy()
		return nil, fmt.Errorf("create classes tensor: %w", err)
	}
	scoresTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, megaMaxDetections))
	if err != nil {
		inputTensor.Destroy()
		boxesTensor.Destroy()
		classTensor.Destroy()
		return nil, fmt.Errorf("create scores tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"image_tensor"},
		[]string{"detection_boxes", "detection_classes", "detection_scores"},
		[]ort.Value{inputTensor},
		[]ort.Value{boxesTensor, classTensor, scoresTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		boxesTensor.Destroy()
		classTensor.Destroy()
		scoresTensor.Destroy()
		return nil, fmt.Errorf("create detector session: %w", err)
	}

	return &MegaDetector{
		session:      session,
		inputTensor:  inputTensor,
		boxesTensor:  boxesTensor,
		classTensor:  classTensor,
		scoresTensor: scoresTensor,
	}, nil
}

// Detect runs the model on a decoded frame and returns detections with
// confidence strictly above threshold, with boxes in pixel units of img.
func (d *MegaDetector) Detect(img image.Image, threshold float32) ([]Detection, error) {
	input := preprocessForDetection(img, megaInputW, megaInputH)
	copy(d.inputTensor.GetData(), input)

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run detection: %w", err)
	}

	bounds := img.Bounds()
	origW := float64(bounds.Dx())
	origH := float64(bounds.Dy())

	boxes := d.boxesTensor.GetData()
	classes := d.classTensor.GetData()
	scores := d.scoresTensor.GetData()

	var detections []Detection
	for i := 0; i < megaMaxDetections; i++ {
		score := scores[i]
		if score <= threshold {
			continue
		}

		class := int(classes[i])
		label, ok := classLabels[class]
		if !ok {
			return nil, fmt.Errorf("model returned unknown class %d (score %.2f)", class, score)
		}

		// (y1, x1, y2, x2) fractions of the frame
		y1 := float64(boxes[i*4+0])
		x1 := float64(boxes[i*4+1])
		y2 := float64(boxes[i*4+2])
		x2 := float64(boxes[i*4+3])

		detections = append(detections, Detection{
			X:          int(math.Round(x1 * origW)),
			Y:          int(math.Round(y1 * origH)),
			W:          int(math.Round((x2 - x1) * origW)),
			H:          int(math.Round((y2 - y1) * origH)),
			Label:      label,
			Confidence: score,
		})
	}

	return detections, nil
}

func (d *MegaDetector) Close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.inputTensor != nil {
		d.inputTensor.Destroy()
	}
	if d.boxesTensor != nil {
		d.boxesTensor.Destroy()
	}
	if d.classTensor != nil {
		d.classTensor.Destroy()
	}
	if d.scoresTensor != nil {
		d.scoresTensor.Destroy()
	}
}
