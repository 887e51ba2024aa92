// Package gate implements the cheap pre-filter that decides whether an image
// plausibly contains handwritten digit-like shapes before a model call is
// spent on it.
package gate

import (
	"bytes"
	"image"

	// Decoders for the formats the industrial cameras produce.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Policy thresholds tuned for typical industrial-camera resolution. Changing
// any of these breaks behavioral compatibility with historical telemetry.
const (
	minGlyphArea    = 50   // bounding-box pixels, exclusive
	maxGlyphFrac    = 0.1  // of total image area, exclusive
	minAspectRatio  = 0.1  // width/height, exclusive
	maxAspectRatio  = 10.0 // width/height, exclusive
	candidateTarget = 3    // glyphs needed to accept the image

	// Adaptive threshold parameters: local mean over a square window,
	// offset by a constant to suppress background noise.
	threshWindow = 15
	threshOffset = 10
)

// Assess reports whether the image plausibly contains handwritten digits.
// Any decode failure yields false. Any unexpected internal fault yields true,
// so a broken heuristic never permanently blocks extraction.
func Assess(imageBytes []byte) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = true
		}
	}()

	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return false
	}

	gray := toGray(img)
	fg := binarize(gray)
	return countGlyphCandidates(fg, gray.Bounds()) >= candidateTarget
}

// toGray collapses the image to single-channel intensity.
func toGray(img image.Image) *image.Gray {
	if g, isGray := img.(*image.Gray); isGray {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray
}

// binarize applies adaptive local-mean thresholding: a pixel is foreground
// (ink) when it is darker than its neighborhood mean by more than the offset.
func binarize(gray *image.Gray) []bool {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	// Summed-area table, one row/column of padding.
	integral := make([]uint64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var rowSum uint64
		for x := 0; x < w; x++ {
			rowSum += uint64(gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			integral[(y+1)*(w+1)+(x+1)] = integral[y*(w+1)+(x+1)] + rowSum
		}
	}

	radius := threshWindow / 2
	fg := make([]bool, w*h)
	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-radius), min(h-1, y+radius)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-radius), min(w-1, x+radius)
			count := uint64((y1 - y0 + 1) * (x1 - x0 + 1))
			sum := integral[(y1+1)*(w+1)+(x1+1)] -
				integral[y0*(w+1)+(x1+1)] -
				integral[(y1+1)*(w+1)+x0] +
				integral[y0*(w+1)+x0]
			mean := sum / count
			pix := uint64(gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			fg[y*w+x] = pix+threshOffset < mean
		}
	}
	return fg
}

// countGlyphCandidates labels foreground components (8-connected, external
// regions only) and counts those whose bounding box looks digit-sized.
// Returns early once candidateTarget is reached.
func countGlyphCandidates(fg []bool, bounds image.Rectangle) int {
	w, h := bounds.Dx(), bounds.Dy()
	imageArea := float64(w * h)
	visited := make([]bool, len(fg))
	stack := make([]int, 0, 256)
	candidates := 0

	for start := range fg {
		if !fg[start] || visited[start] {
			continue
		}

		// Flood-fill one component, tracking its bounding box.
		minX, minY := w, h
		maxX, maxY := 0, 0
		visited[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := idx%w, idx/w
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					nidx := ny*w + nx
					if fg[nidx] && !visited[nidx] {
						visited[nidx] = true
						stack = append(stack, nidx)
					}
				}
			}
		}

		boxW := maxX - minX + 1
		boxH := maxY - minY + 1
		area := float64(boxW * boxH)
		ratio := 0.0
		if boxH != 0 {
			ratio = float64(boxW) / float64(boxH)
		}

		if area > minGlyphArea && area < maxGlyphFrac*imageArea &&
			ratio > minAspectRatio && ratio < maxAspectRatio {
			candidates++
			if candidates >= candidateTarget {
				return candidates
			}
		}
	}
	return candidates
}
