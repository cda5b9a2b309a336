package detect

import (
	"image"
	"math"
)

// MatchMethod selects the template-matching score function.
type MatchMethod int

const (
	// MatchSAD - Sum of Absolute Differences (fastest)
	MatchSAD MatchMethod = iota
	// MatchSSD - Sum of Squared Differences (balanced, default)
	MatchSSD
	// MatchNCC - Normalized Cross-Correlation (most accurate)
	MatchNCC
)

// ParseMatchMethod maps a config string to a MatchMethod, defaulting to SSD.
func ParseMatchMethod(s string) MatchMethod {
	switch s {
	case "sad":
		return MatchSAD
	case "ncc":
		return MatchNCC
	default:
		return MatchSSD
	}
}

// matchResult is the raw outcome of scanning a haystack for a needle.
type matchResult struct {
	found      bool
	location   image.Point
	confidence float64
}

// findTemplate scans the haystack for the best placement of the needle and
// scores it in [0,1]. found is true only when the best score crosses the
// threshold; the best location and score are returned either way so callers
// can log near-misses.
func findTemplate(haystack, needle *image.RGBA, method MatchMethod, threshold float64) matchResult {
	hb := haystack.Bounds()
	nb := needle.Bounds()
	nw, nh := nb.Dx(), nb.Dy()

	if nw <= 0 || nh <= 0 || nw > hb.Dx() || nh > hb.Dy() {
		return matchResult{}
	}

	best := 0.0
	bestAt := image.Point{}
	maxY := hb.Max.Y - nh
	maxX := hb.Max.X - nw

	for y := hb.Min.Y; y <= maxY; y++ {
		for x := hb.Min.X; x <= maxX; x++ {
			score := scoreAt(haystack, needle, x, y, nw, nh, method)
			if score > best {
				best = score
				bestAt = image.Point{X: x, Y: y}
			}
		}
	}

	return matchResult{found: best >= threshold, location: bestAt, confidence: best}
}

func scoreAt(haystack, needle *image.RGBA, x, y, width, height int, method MatchMethod) float64 {
	switch method {
	case MatchSAD:
		return scoreSAD(haystack, needle, x, y, width, height)
	case MatchNCC:
		return scoreNCC(haystack, needle, x, y, width, height)
	default:
		return scoreSSD(haystack, needle, x, y, width, height)
	}
}

func scoreSAD(haystack, needle *image.RGBA, x, y, width, height int) float64 {
	var sad uint64
	nb := needle.Bounds()

	for ny := 0; ny < height; ny++ {
		hRow := (y+ny-haystack.Rect.Min.Y)*haystack.Stride + (x-haystack.Rect.Min.X)*4
		nRow := (ny * needle.Stride) + (nb.Min.X-needle.Rect.Min.X)*4
		for nx := 0; nx < width; nx++ {
			hIdx := hRow + nx*4
			nIdx := nRow + nx*4
			sad += uint64(absInt(int(haystack.Pix[hIdx]) - int(needle.Pix[nIdx])))
			sad += uint64(absInt(int(haystack.Pix[hIdx+1]) - int(needle.Pix[nIdx+1])))
			sad += uint64(absInt(int(haystack.Pix[hIdx+2]) - int(needle.Pix[nIdx+2])))
		}
	}

	maxSAD := float64(width * height * 3 * 255)
	return 1.0 - (float64(sad) / maxSAD)
}

func scoreSSD(haystack, needle *image.RGBA, x, y, width, height int) float64 {
	var ssd uint64
	nb := needle.Bounds()

	for ny := 0; ny < height; ny++ {
		hRow := (y+ny-haystack.Rect.Min.Y)*haystack.Stride + (x-haystack.Rect.Min.X)*4
		nRow := (ny * needle.Stride) + (nb.Min.X-needle.Rect.Min.X)*4
		for nx := 0; nx < width; nx++ {
			hIdx := hRow + nx*4
			nIdx := nRow + nx*4

			dr := int(haystack.Pix[hIdx]) - int(needle.Pix[nIdx])
			dg := int(haystack.Pix[hIdx+1]) - int(needle.Pix[nIdx+1])
			db := int(haystack.Pix[hIdx+2]) - int(needle.Pix[nIdx+2])
			ssd += uint64(dr*dr + dg*dg + db*db)
		}
	}

	maxSSD := float64(width * height * 3 * 255 * 255)
	return 1.0 - (float64(ssd) / maxSSD)
}

func scoreNCC(haystack, needle *image.RGBA, x, y, width, height int) float64 {
	var sumH, sumN, sumHN, sumHH, sumNN float64
	pixelCount := float64(width * height * 3)
	nb := needle.Bounds()

	for ny := 0; ny < height; ny++ {
		hRow := (y+ny-haystack.Rect.Min.Y)*haystack.Stride + (x-haystack.Rect.Min.X)*4
		nRow := (ny * needle.Stride) + (nb.Min.X-needle.Rect.Min.X)*4
		for nx := 0; nx < width; nx++ {
			hIdx := hRow + nx*4
			nIdx := nRow + nx*4
			for c := 0; c < 3; c++ {
				h := float64(haystack.Pix[hIdx+c])
				n := float64(needle.Pix[nIdx+c])
				sumH += h
				sumN += n
				sumHN += h * n
				sumHH += h * h
				sumNN += n * n
			}
		}
	}

	numerator := sumHN - (sumH * sumN / pixelCount)
	denomH := math.Sqrt(sumHH - (sumH * sumH / pixelCount))
	denomN := math.Sqrt(sumNN - (sumN * sumN / pixelCount))
	if denomH == 0 || denomN == 0 {
		return 0
	}

	// Correlation is in [-1,1]; normalize to [0,1].
	correlation := numerator / (denomH * denomN)
	return (correlation + 1.0) / 2.0
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// grayscale reduces an RGBA image to single-channel luminance values.
func grayscale(img *image.RGBA) []uint8 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]uint8, w*h)
	idx := 0
	for y := 0; y < h; y++ {
		row := (y) * img.Stride
		for x := 0; x < w; x++ {
			i := row + x*4
			r := int(img.Pix[i])
			g := int(img.Pix[i+1])
			bb := int(img.Pix[i+2])
			out[idx] = uint8((r*299 + g*587 + bb*114) / 1000)
			idx++
		}
	}
	return out
}
