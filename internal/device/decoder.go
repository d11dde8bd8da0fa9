package device

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ErrNoCode is returned when a frame holds no readable QR code.
var ErrNoCode = fmt.Errorf("no QR code found in frame")

// FrameDecoder extracts the payload of one frame.
type FrameDecoder interface {
	DecodeFrame(path string, cfg DecodeConfig) (string, error)
}

// QRDecoder decodes image frames with gozxing, restricted to the central
// detection region. Frames with a .txt extension carry an already decoded
// payload and are read verbatim; they let other tools feed the camera.
type QRDecoder struct {
	reader gozxing.Reader
}

func NewQRDecoder() *QRDecoder {
	return &QRDecoder{reader: qrcode.NewQRCodeReader()}
}

func (d *QRDecoder) DecodeFrame(path string, cfg DecodeConfig) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read frame: %w", err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			return "", ErrNoCode
		}
		return text, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode frame image: %w", err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(cropRegion(img, cfg))
	if err != nil {
		return "", fmt.Errorf("binarize frame: %w", err)
	}
	result, err := d.reader.Decode(bmp, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCode, err)
	}
	return result.GetText(), nil
}

// cropRegion returns the centered detection region of img. Dimensions
// larger than the image are clamped to it.
func cropRegion(img image.Image, cfg DecodeConfig) image.Image {
	b := img.Bounds()
	w := cfg.DetectionRegion.Width
	h := cfg.DetectionRegion.Height
	if cfg.AspectRatio > 0 && w > 0 {
		h = int(float64(w) / cfg.AspectRatio)
	}
	if w <= 0 || w > b.Dx() {
		w = b.Dx()
	}
	if h <= 0 || h > b.Dy() {
		h = b.Dy()
	}
	if w == b.Dx() && h == b.Dy() {
		return img
	}

	x0 := b.Min.X + (b.Dx()-w)/2
	y0 := b.Min.Y + (b.Dy()-h)/2
	rect := image.Rect(x0, y0, x0+w, y0+h)

	if sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(rect)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	return dst
}
