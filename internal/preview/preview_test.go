package preview

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"glitzhit/internal/filesystem"
	"glitzhit/internal/jobs"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", PNG, false},
		{"png", PNG, false},
		{"JPG", JPEG, false},
		{"jpeg", JPEG, false},
		{"gif", GIF, false},
		{"bmp", BMP, false},
		{"tif", TIFF, false},
		{"webp", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("ParseFormat(%q) error = %v, want ErrUnsupportedFormat", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestContentType(t *testing.T) {
	if JPEG.ContentType() != "image/jpeg" || BMP.ContentType() != "image/bmp" {
		t.Errorf("unexpected content types %q, %q", JPEG.ContentType(), BMP.ContentType())
	}
}

func TestFrameRGB24(t *testing.T) {
	// 2x1: red, blue
	img, err := Frame([]byte{255, 0, 0, 0, 0, 255}, "rgb24", 2, 1)
	if err != nil {
		t.Fatal(err)
	}

	want := []color.NRGBA{{255, 0, 0, 255}, {0, 0, 255, 255}}
	for x, c := range want {
		if got := color.NRGBAModel.Convert(img.At(x, 0)).(color.NRGBA); got != c {
			t.Errorf("pixel %d = %v, want %v", x, got, c)
		}
	}
}

func TestFrameGray(t *testing.T) {
	img, err := Frame([]byte{0, 128, 255, 7}, "gray", 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("gray frame decoded as %T", img)
	}
	if gray.GrayAt(1, 0).Y != 128 || gray.GrayAt(1, 1).Y != 7 {
		t.Errorf("unexpected gray pixels %v", gray.Pix)
	}
}

func TestFrameRGBA(t *testing.T) {
	img, err := Frame([]byte{1, 2, 3, 4}, "rgba", 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.(*image.NRGBA).NRGBAAt(0, 0); got != (color.NRGBA{1, 2, 3, 4}) {
		t.Errorf("pixel = %v", got)
	}
}

func TestFramePadsShortInput(t *testing.T) {
	img, err := Frame([]byte{9}, "gray", 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	gray := img.(*image.Gray)
	if gray.Pix[0] != 9 || gray.Pix[3] != 0 {
		t.Errorf("unexpected padding %v", gray.Pix)
	}
}

func TestFrameInvalidGeometry(t *testing.T) {
	if _, err := Frame(nil, "rgb24", 0, 4); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("Frame() error = %v, want ErrInvalidGeometry", err)
	}
}

func writeInput(t *testing.T, frames ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.dat")
	if err := os.WriteFile(path, bytes.Join(frames, nil), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadFrame(t *testing.T) {
	params := jobs.Params{PixelFormat: "gray", Width: 2, Height: 1}
	path := writeInput(t, []byte{1, 2}, []byte{3, 4}, []byte{5})
	retry := filesystem.RetryConfig{}

	img, err := ReadFrame(path, 1, params, retry)
	if err != nil {
		t.Fatalf("ReadFrame(1) error = %v", err)
	}
	if p := img.(*image.Gray).Pix; p[0] != 3 || p[1] != 4 {
		t.Errorf("frame 1 = %v", p)
	}

	// A trailing partial frame is padded.
	img, err = ReadFrame(path, 2, params, retry)
	if err != nil {
		t.Fatalf("ReadFrame(2) error = %v", err)
	}
	if p := img.(*image.Gray).Pix; p[0] != 5 || p[1] != 0 {
		t.Errorf("frame 2 = %v", p)
	}

	if _, err := ReadFrame(path, 3, params, retry); !errors.Is(err, ErrFrameOutOfRange) {
		t.Errorf("ReadFrame(3) error = %v, want ErrFrameOutOfRange", err)
	}
	if _, err := ReadFrame(path, -1, params, retry); !errors.Is(err, ErrFrameOutOfRange) {
		t.Errorf("ReadFrame(-1) error = %v, want ErrFrameOutOfRange", err)
	}
	if _, err := ReadFrame(filepath.Join(t.TempDir(), "missing"), 0, params, retry); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFrame(missing) error = %v, want not-exist", err)
	}
}

func TestReadFrameIndexOverflow(t *testing.T) {
	// 64x64 rgb24 frames are 3<<12 bytes; 1<<52 of them wraps an int64 offset to zero.
	params := jobs.Params{PixelFormat: "rgb24", Width: 64, Height: 64}
	path := writeInput(t, make([]byte, params.FrameSize()))

	for _, index := range []int64{1, 1 << 52, 1<<52 + 1, math.MaxInt64} {
		if _, err := ReadFrame(path, index, params, filesystem.RetryConfig{}); !errors.Is(err, ErrFrameOutOfRange) {
			t.Errorf("ReadFrame(%d) error = %v, want ErrFrameOutOfRange", index, err)
		}
	}
}

func TestReadFrameEmptyInput(t *testing.T) {
	params := jobs.Params{PixelFormat: "gray", Width: 2, Height: 2}
	path := writeInput(t)

	if _, err := ReadFrame(path, 0, params, filesystem.RetryConfig{}); !errors.Is(err, ErrFrameOutOfRange) {
		t.Errorf("ReadFrame on empty input error = %v, want ErrFrameOutOfRange", err)
	}
}

func TestReadFrameRejectsHugeGeometry(t *testing.T) {
	// The input is tiny; the declared geometry alone must be refused before any allocation.
	params := jobs.Params{PixelFormat: "rgba", Width: 100000, Height: 100000}
	path := writeInput(t, []byte{1, 2, 3, 4})

	if _, err := ReadFrame(path, 0, params, filesystem.RetryConfig{}); !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("ReadFrame error = %v, want ErrInvalidGeometry", err)
	}
}

func TestReadFrameBufferBoundedByInput(t *testing.T) {
	// A large declared frame with a small input reads only what exists and pads the rest.
	params := jobs.Params{PixelFormat: "gray", Width: 4096, Height: 4096}
	path := writeInput(t, []byte{7, 8})

	img, err := ReadFrame(path, 0, params, filesystem.RetryConfig{})
	if err != nil {
		t.Fatalf("ReadFrame error = %v", err)
	}
	gray := img.(*image.Gray)
	if gray.Pix[0] != 7 || gray.Pix[1] != 8 || gray.Pix[2] != 0 {
		t.Errorf("unexpected pixels %v", gray.Pix[:3])
	}
}

func TestScaleNearestNeighbour(t *testing.T) {
	src, _ := Frame([]byte{0, 255, 255, 0}, "gray", 2, 2)

	img, err := Scale(src, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 4 {
		t.Fatalf("scaled bounds = %v", b)
	}

	// Every output pixel must be one of the source values; no blending.
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			if v := r >> 8; v != 0 && v != 255 {
				t.Errorf("pixel (%d,%d) = %d, want 0 or 255", x, y, v)
			}
		}
	}
}

func TestScaleLimits(t *testing.T) {
	src, _ := Frame(nil, "gray", 2, 2)
	for _, size := range []int{0, -1, MaxSize + 1} {
		if _, err := Scale(src, size, size); !errors.Is(err, ErrInvalidGeometry) {
			t.Errorf("Scale(%d) error = %v, want ErrInvalidGeometry", size, err)
		}
	}
	if img, err := Scale(src, 2, 2); err != nil || img != src {
		t.Errorf("Scale to the same size should return the source image")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	src, _ := Frame([]byte{10, 20, 30, 40, 50, 60}, "rgb24", 2, 1)

	decoders := map[Format]func(*bytes.Reader) (image.Image, error){
		PNG:  func(r *bytes.Reader) (image.Image, error) { return png.Decode(r) },
		JPEG: func(r *bytes.Reader) (image.Image, error) { return jpeg.Decode(r) },
		GIF:  func(r *bytes.Reader) (image.Image, error) { return gif.Decode(r) },
		BMP:  func(r *bytes.Reader) (image.Image, error) { return bmp.Decode(r) },
		TIFF: func(r *bytes.Reader) (image.Image, error) { return tiff.Decode(r) },
	}

	for format, decode := range decoders {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, src, format); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			img, err := decode(bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 1 {
				t.Errorf("decoded bounds = %v", b)
			}
		})
	}

	if err := Encode(&bytes.Buffer{}, src, "webp"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Encode(webp) error = %v, want ErrUnsupportedFormat", err)
	}
}
