package preview

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"glitzhit/internal/filesystem"
	"glitzhit/internal/jobs"
	"glitzhit/internal/logging"
)

// MaxSize bounds the edge length of a rendered preview.
const MaxSize = 2048

// MaxSourcePixels bounds the input frame a preview is decoded from.
const MaxSourcePixels = 4096 * 4096

// Format is an output image encoding.
type Format string

// Supported output formats.
const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	GIF  Format = "gif"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
)

var (
	// ErrUnsupportedFormat is returned for unknown output formats.
	ErrUnsupportedFormat = errors.New("unsupported preview format")

	// ErrFrameOutOfRange is returned when the input ends before the requested frame.
	ErrFrameOutOfRange = errors.New("frame index out of range")

	// ErrInvalidGeometry is returned for non-positive frame or preview sizes.
	ErrInvalidGeometry = errors.New("invalid preview geometry")
)

// ParseFormat accepts png, jpeg (or jpg), gif, bmp and tiff (or tif).
// An empty string selects PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	case "gif":
		return GIF, nil
	case "bmp":
		return BMP, nil
	case "tiff", "tif":
		return TIFF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	return "image/" + string(f)
}

// Frame converts one raw frame to an image. data shorter than a full frame
// is padded with zeros.
func Frame(data []byte, pixelFormat string, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGeometry, width, height)
	}

	bpp := jobs.BytesPerPixel(pixelFormat)
	need := width * height * bpp
	if len(data) < need {
		padded := make([]byte, need)
		copy(padded, data)
		data = padded
	}

	rect := image.Rect(0, 0, width, height)
	switch bpp {
	case 1:
		img := image.NewGray(rect)
		copy(img.Pix, data[:need])
		return img, nil
	case 4:
		img := image.NewNRGBA(rect)
		copy(img.Pix, data[:need])
		return img, nil
	}

	img := image.NewNRGBA(rect)
	for src, dst := 0, 0; src < need; src, dst = src+3, dst+4 {
		img.Pix[dst] = data[src]
		img.Pix[dst+1] = data[src+1]
		img.Pix[dst+2] = data[src+2]
		img.Pix[dst+3] = 0xff
	}
	return img, nil
}

// ReadFrame reads frame index of the raw input at path. A trailing partial
// frame is padded; an index past the end returns ErrFrameOutOfRange.
func ReadFrame(path string, index int64, params jobs.Params, retry filesystem.RetryConfig) (image.Image, error) {
	frameSize := params.FrameSize()
	if frameSize <= 0 {
		return nil, fmt.Errorf("%w: frame size is zero", ErrInvalidGeometry)
	}
	if int64(params.Width)*int64(params.Height) > MaxSourcePixels {
		return nil, fmt.Errorf("%w: %dx%d frames are too large to preview", ErrInvalidGeometry, params.Width, params.Height)
	}
	if index < 0 {
		return nil, fmt.Errorf("%w: %d", ErrFrameOutOfRange, index)
	}

	f, err := filesystem.OpenWithRetry(path, retry)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close input %s: %v", path, err)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat input: %w", err)
	}
	size := info.Size()
	if size == 0 || index > (size-1)/frameSize {
		return nil, fmt.Errorf("%w: %d", ErrFrameOutOfRange, index)
	}

	offset := index * frameSize
	buf := make([]byte, min(frameSize, size-offset))
	n, err := f.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read frame %d: %w", index, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %d", ErrFrameOutOfRange, index)
	}

	return Frame(buf[:n], params.PixelFormat, params.Width, params.Height)
}

// Scale resizes img to width x height with nearest-neighbour sampling.
func Scale(img image.Image, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 || width > MaxSize || height > MaxSize {
		return nil, fmt.Errorf("%w: %dx%d (max %d)", ErrInvalidGeometry, width, height, MaxSize)
	}
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img, nil
	}
	return imaging.Resize(img, width, height, imaging.NearestNeighbor), nil
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case PNG:
		return imaging.Encode(w, img, imaging.PNG)
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case GIF:
		return imaging.Encode(w, img, imaging.GIF)
	case BMP:
		return bmp.Encode(w, img)
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
}
