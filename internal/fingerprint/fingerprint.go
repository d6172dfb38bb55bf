// Package fingerprint computes 64-bit perceptual hashes for images and
// similarity scores between them. Visually similar images produce hashes
// with a small Hamming distance even after resizing or recompression.
package fingerprint

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrDecode indicates the input bytes could not be decoded as an image.
var ErrDecode = errors.New("image decode failed")

// Hash is a 64-bit DCT-based perceptual hash.
type Hash uint64

// String returns the hash as a 16-digit hex string.
func (h Hash) String() string {
	return fmt.Sprintf("%016x", uint64(h))
}

const (
	sampleSize = 32 // downsampled luma grid
	dctSize    = 8  // low-frequency block kept from the DCT
	hashBits   = 64
)

// Compute derives the perceptual hash of an image. The same input bytes
// always produce the same hash.
//
// The pipeline is: decode, box-resample to a 32x32 luma grid (aspect
// ratio ignored), take the 8x8 low-frequency block of an unnormalized
// DCT-II, then set bit 63-i when coefficient i exceeds the mean of the
// 63 non-DC coefficients. The DC coefficient is excluded from the mean
// but still compared against it; changing that would change every hash.
func Compute(imageData []byte) (Hash, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	luma := boxResample(img, sampleSize, sampleSize)
	coef := lowFreqDCT(luma)

	// Mean of the non-DC coefficients only.
	var sum float64
	for i := 1; i < hashBits; i++ {
		sum += coef[i]
	}
	threshold := sum / float64(hashBits-1)

	var hash Hash
	for i := range hashBits {
		if coef[i] > threshold {
			hash |= 1 << (hashBits - 1 - i)
		}
	}

	return hash, nil
}

// HammingDistance counts the differing bits between two hashes.
func HammingDistance(a, b Hash) int {
	xor := a ^ b
	distance := 0
	for xor != 0 {
		distance++
		xor &= xor - 1 // Clear lowest set bit
	}
	return distance
}

// Similarity converts the Hamming distance between two hashes into a
// normalized similarity in [0, 1], rounded to 3 decimal places.
// Identical hashes score 1.0.
func Similarity(a, b Hash) float64 {
	similarity := 1.0 - float64(HammingDistance(a, b))/float64(hashBits)
	return math.Round(similarity*1000) / 1000
}

// boxResample scales an image down to width x height luma samples by
// averaging whole source regions (area filter). Aspect ratio is ignored
// so every image maps onto the same grid.
func boxResample(img image.Image, width, height int) [][]float64 {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	luma := make([][]float64, width)
	for x := range width {
		luma[x] = make([]float64, height)
		x0 := bounds.Min.X + x*srcW/width
		x1 := bounds.Min.X + (x+1)*srcW/width
		if x1 <= x0 {
			x1 = x0 + 1 // tiny source images: never an empty box
		}
		for y := range height {
			y0 := bounds.Min.Y + y*srcH/height
			y1 := bounds.Min.Y + (y+1)*srcH/height
			if y1 <= y0 {
				y1 = y0 + 1
			}

			var sum float64
			for sx := x0; sx < x1; sx++ {
				for sy := y0; sy < y1; sy++ {
					r, g, b, _ := img.At(sx, sy).RGBA()
					// ITU-R BT.601 luma formula.
					sum += 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
				}
			}
			luma[x][y] = sum / float64((x1-x0)*(y1-y0))
		}
	}

	return luma
}

// lowFreqDCT computes the 8x8 lowest-frequency block of the unnormalized
// type-II DCT of a 32x32 luma grid. Coefficients are returned in
// row-major (u, v) order; index 0 is the DC term.
func lowFreqDCT(luma [][]float64) [64]float64 {
	// Precompute cosine values for efficiency.
	var cosTable [dctSize][sampleSize]float64
	for u := range dctSize {
		for x := range sampleSize {
			cosTable[u][x] = math.Cos(float64(2*x+1) * float64(u) * math.Pi / float64(2*sampleSize))
		}
	}

	var coef [64]float64
	for u := range dctSize {
		for v := range dctSize {
			var sum float64
			for x := range sampleSize {
				for y := range sampleSize {
					sum += luma[x][y] * cosTable[u][x] * cosTable[v][y]
				}
			}
			coef[u*dctSize+v] = sum
		}
	}

	return coef
}
