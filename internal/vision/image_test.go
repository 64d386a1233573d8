package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 13), B: uint8((x + y) * 3), A: 255})
		}
	}
	return img
}

func TestFingerprintStableAcrossContainers(t *testing.T) {
	img := testImage(64, 48)
	want := Fingerprint(img)

	// Same pixels through a lossless encode/decode round trip must
	// produce the same fingerprint even though the decoded type differs.
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	decoded, _, err := image.Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, want, Fingerprint(decoded))
}

func TestFingerprintDiffersForDifferentPixels(t *testing.T) {
	a := testImage(32, 32)
	b := testImage(32, 32)
	b.Set(5, 5, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintIgnoresBoundsOffset(t *testing.T) {
	img := testImage(20, 20)
	sub := img.SubImage(image.Rect(4, 4, 16, 16)).(*image.RGBA)

	direct := image.NewRGBA(image.Rect(0, 0, 12, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			direct.Set(x, y, img.At(x+4, y+4))
		}
	}

	assert.Equal(t, Fingerprint(direct), Fingerprint(sub))
}

func TestCropClampsToImage(t *testing.T) {
	img := testImage(40, 30)

	crop := Crop(img, Detection{X: 30, Y: 20, W: 50, H: 50})
	require.NotNil(t, crop)
	assert.Equal(t, 10, crop.Bounds().Dx())
	assert.Equal(t, 10, crop.Bounds().Dy())
}

func TestCropEmptyRegion(t *testing.T) {
	img := testImage(40, 30)

	assert.Nil(t, Crop(img, Detection{X: 100, Y: 100, W: 10, H: 10}))
	assert.Nil(t, Crop(img, Detection{X: 5, Y: 5, W: 0, H: 10}))
}

func TestCropPixelFidelity(t *testing.T) {
	img := testImage(40, 30)
	crop := Crop(img, Detection{X: 10, Y: 5, W: 8, H: 8})
	require.NotNil(t, crop)

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			wr, wg, wb, wa := img.At(x+10, y+5).RGBA()
			gr, gg, gb, ga := crop.At(x, y).RGBA()
			if wr != gr || wg != gg || wb != gb || wa != ga {
				t.Fatalf("pixel (%d,%d) mismatch", x, y)
			}
		}
	}
}

func TestEncodeJPEGProducesDecodableImage(t *testing.T) {
	img := testImage(16, 16)
	data := EncodeJPEG(img, 85)
	require.NotEmpty(t, data)

	_, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}
