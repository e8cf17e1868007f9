package heuristic

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// maxSide bounds the work per image; anything larger is downscaled before the
// per-pixel pass.
const maxSide = 400

var cropFractions = []float64{1.0, 0.8, 0.5}

// Scorer estimates how much of an image is skin-toned. It is deterministic,
// local and network-free; it exists as a second signal next to the remote
// model and as the only signal when the model is down.
type Scorer struct {
	crops     int
	minAreaPx int
}

func NewScorer(crops, minAreaPx int) *Scorer {
	if crops < 1 {
		crops = 1
	}
	if crops > len(cropFractions) {
		crops = len(cropFractions)
	}
	if minAreaPx < 0 {
		minAreaPx = 0
	}
	return &Scorer{crops: crops, minAreaPx: minAreaPx}
}

// Score decodes the payload and returns the maximum skin fraction across the
// configured center crops. Tiny images score 0: there is not enough signal to
// judge them. An undecodable payload returns an error; the caller records the
// source failure and moves on.
func (s *Scorer) Score(payload []byte) (float64, error) {
	decoded, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("decode image: %w", err)
	}

	// The area gate judges the original dimensions; downscaling must not
	// turn a large elongated image into a "tiny" one.
	src := decoded.Bounds()
	if src.Dx()*src.Dy() < s.minAreaPx {
		return 0, nil
	}

	rgba := normalize(decoded)
	bounds := rgba.Bounds()

	best := 0.0
	for i := 0; i < s.crops; i++ {
		fraction := skinFraction(rgba, centerCrop(bounds, cropFractions[i]))
		if fraction > best {
			best = fraction
		}
	}
	return best, nil
}

// normalize converts to RGBA and downscales so the longer side fits maxSide.
func normalize(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxSide || h > maxSide {
		if w >= h {
			h = h * maxSide / w
			w = maxSide
		} else {
			w = w * maxSide / h
			h = maxSide
		}
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)
	return dst
}

func centerCrop(bounds image.Rectangle, fraction float64) image.Rectangle {
	if fraction >= 1.0 {
		return bounds
	}

	cw := int(float64(bounds.Dx()) * fraction)
	ch := int(float64(bounds.Dy()) * fraction)
	if cw < 1 {
		cw = 1
	}
	if ch < 1 {
		ch = 1
	}

	left := bounds.Min.X + (bounds.Dx()-cw)/2
	top := bounds.Min.Y + (bounds.Dy()-ch)/2
	return image.Rect(left, top, left+cw, top+ch)
}

func skinFraction(img *image.RGBA, region image.Rectangle) float64 {
	region = region.Intersect(img.Bounds())
	total := region.Dx() * region.Dy()
	if total <= 0 {
		return 0
	}

	skin := 0
	for y := region.Min.Y; y < region.Max.Y; y++ {
		offset := img.PixOffset(region.Min.X, y)
		for x := region.Min.X; x < region.Max.X; x++ {
			r := img.Pix[offset]
			g := img.Pix[offset+1]
			b := img.Pix[offset+2]
			offset += 4
			if isSkinPixel(r, g, b) {
				skin++
			}
		}
	}
	return float64(skin) / float64(total)
}

// isSkinPixel applies the common RGB skin-tone rule plus a bright-skin branch,
// and excludes saturated reds so red objects do not count as skin.
func isSkinPixel(r, g, b uint8) bool {
	normal := r > 95 && g > 40 && b > 20 && r > g && r > b && int(r)-int(g) > 15
	bright := r > 220 && g > 210 && b > 170
	if !normal && !bright {
		return false
	}
	if r > 200 && g < 50 && b < 50 {
		return false
	}
	return true
}
