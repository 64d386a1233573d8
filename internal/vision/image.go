package vision

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"image"
	"image/draw"
	"image/jpeg"
)

// Fingerprint returns the content hash of a decoded frame. Pixels are
// normalized to RGBA before hashing, so two files that decode to the
// same pixel data hash identically regardless of container format or
// file name.
func Fingerprint(img image.Image) string {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || bounds.Min != image.Pt(0, 0) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	sum := md5.Sum(rgba.Pix)
	return hex.EncodeToString(sum[:])
}

// Crop extracts a detection region from the image, clamped to the
// image bounds. Returns nil when the clamped region is empty.
func Crop(img image.Image, det Detection) image.Image {
	bounds := img.Bounds()
	region := det.Bounds().Add(bounds.Min).Intersect(bounds)
	if region.Empty() {
		return nil
	}

	crop := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.Draw(crop, crop.Bounds(), img, region.Min, draw.Src)
	return crop
}

// EncodeJPEG encodes an image as JPEG with the given quality.
func EncodeJPEG(img image.Image, quality int) []byte {
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	return buf.Bytes()
}

// preprocessForDetection converts an image to the model's CHW float32
// input, resized and scaled to [0, 1].
func preprocessForDetection(img image.Image, targetW, targetH int) []float32 {
	resized := resizeImage(img, targetW, targetH)
	bounds := resized.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	data := make([]float32, 3*h*w)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()

			idx := y*w + x
			data[0*h*w+idx] = float32(r>>8) / 255.0
			data[1*h*w+idx] = float32(g>>8) / 255.0
			data[2*h*w+idx] = float32(b>>8) / 255.0
		}
	}

	return data
}

// resizeImage performs nearest-neighbour resize (fast, good enough for ML input).
func resizeImage(img image.Image, targetW, targetH int) image.Image {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))

	for y := 0; y < targetH; y++ {
		for x := 0; x < targetW; x++ {
			srcX := bounds.Min.X + x*srcW/targetW
			srcY := bounds.Min.Y + y*srcH/targetH
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}

	return dst
}
