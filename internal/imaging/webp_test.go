package imaging

import (
	"image"
	"testing"

	"import-data/internal/testutil"
)

func TestFit(t *testing.T) {
	tests := []struct {
		name     string
		w, h     int
		maxWidth int
		wantW    int
		wantH    int
	}{
		{"wide image is scaled down", 3200, 1800, 1600, 1600, 900},
		{"narrow image is untouched", 800, 600, 1600, 800, 600},
		{"exact width is untouched", 1600, 100, 1600, 1600, 100},
		{"portrait keeps ratio", 2000, 4000, 1000, 1000, 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewRGBA(image.Rect(0, 0, tt.w, tt.h))
			got := Fit(img, tt.maxWidth).Bounds()
			if got.Dx() != tt.wantW || got.Dy() != tt.wantH {
				t.Errorf("Fit() = %dx%d, want %dx%d", got.Dx(), got.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestToWebP(t *testing.T) {
	out, err := ToWebP(testutil.PNG(64, 32), 32, 80)
	if err != nil {
		t.Fatalf("ToWebP() error = %v", err)
	}

	img, format, err := Decode(out)
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if format != "webp" {
		t.Errorf("format = %q, want webp", format)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 16 {
		t.Errorf("size = %dx%d, want 32x16", b.Dx(), b.Dy())
	}
}

func TestToWebP_Garbage(t *testing.T) {
	if _, err := ToWebP([]byte("not an image"), 100, 80); err == nil {
		t.Error("ToWebP() expected error for garbage input")
	}
}
