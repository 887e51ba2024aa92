package gate

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// renderScene draws filled dark rectangles on a white background and encodes
// the result as PNG, approximating handwritten marks under even lighting.
func renderScene(t *testing.T, w, h int, marks []image.Rectangle) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	for _, m := range marks {
		for y := m.Min.Y; y < m.Max.Y; y++ {
			for x := m.Min.X; x < m.Max.X; x++ {
				img.SetGray(x, y, color.Gray{Y: 10})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestAssess(t *testing.T) {
	digit := func(x, y int) image.Rectangle { return image.Rect(x, y, x+20, y+30) }

	tests := []struct {
		name  string
		w, h  int
		marks []image.Rectangle
		want  bool
	}{
		{
			name: "three digit-sized marks",
			w:    200, h: 200,
			marks: []image.Rectangle{digit(20, 20), digit(80, 20), digit(140, 20)},
			want:  true,
		},
		{
			name: "four marks still accepted",
			w:    200, h: 200,
			marks: []image.Rectangle{digit(20, 20), digit(80, 20), digit(140, 20), digit(20, 100)},
			want:  true,
		},
		{
			name: "only two marks",
			w:    200, h: 200,
			marks: []image.Rectangle{digit(20, 20), digit(100, 20)},
			want:  false,
		},
		{
			name: "blank frame",
			w:    200, h: 200,
			marks: nil,
			want:  false,
		},
		{
			name: "marks too small to be glyphs",
			w:    200, h: 200,
			marks: []image.Rectangle{
				image.Rect(20, 20, 25, 25),
				image.Rect(60, 20, 65, 25),
				image.Rect(100, 20, 105, 25),
			},
			want: false,
		},
		{
			name: "mark dominating the frame is not a glyph",
			w:    100, h: 100,
			marks: []image.Rectangle{image.Rect(10, 10, 50, 50)},
			want:  false,
		},
		{
			name: "thin scratches have wrong aspect ratio",
			w:    200, h: 200,
			marks: []image.Rectangle{
				image.Rect(20, 20, 120, 22),
				image.Rect(20, 60, 120, 62),
				image.Rect(20, 100, 120, 102),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Assess(renderScene(t, tt.w, tt.h, tt.marks))
			if got != tt.want {
				t.Errorf("Assess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssess_UndecodableInputIsRejected(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		[]byte("definitely not an image"),
		{0xFF, 0xD8, 0xFF, 0x00}, // truncated JPEG header
	}
	for _, in := range inputs {
		if Assess(in) {
			t.Errorf("Assess(%d undecodable bytes) = true, want false", len(in))
		}
	}
}
