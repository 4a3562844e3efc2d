package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// Normalize decodes raw bytes, bakes the EXIF orientation into the pixels and
// applies the deterministic color correction chain. The order is fixed:
// histogram stretch, sharpen, brightness x-factor, saturation x-factor.
func Normalize(raw []byte, cfg Config) (*image.NRGBA, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	// физически поворачиваем пиксели - дальше по пайплайну exif-тег никому не нужен
	nimg := applyOrientation(img, ReadOrientation(raw))

	nimg = stretchHistogram(nimg)
	nimg = imaging.Sharpen(nimg, cfg.SharpenSigma)
	nimg = scaleBrightness(nimg, cfg.BrightnessFactor)
	nimg = scaleSaturation(nimg, cfg.SaturationFactor)

	if cfg.RemoveBackground {
		nimg = removeBackground(nimg)
	}

	return nimg, nil
}

// removeBackground - точка расширения под вырезание фона/сегментацию.
// Пока просто pass-through: фича отложена, флаг в конфиге выключен по умолчанию.
func removeBackground(img *image.NRGBA) *image.NRGBA {
	return img
}

// ReadOrientation returns the EXIF orientation tag (1-8), or 1 when the bytes
// carry no usable EXIF block.
func ReadOrientation(raw []byte) int {
	meta, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return 1
	}

	tag, err := meta.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1
	}
	return o
}

// applyOrientation - стандартная таблица трансформаций для exif-тегов 2..8
func applyOrientation(img image.Image, orientation int) *image.NRGBA {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return imaging.Clone(img)
	}
}

// stretchHistogram - линейная растяжка диапазона яркости на весь интервал 0..255
func stretchHistogram(img *image.NRGBA) *image.NRGBA {
	minL, maxL := 255.0, 0.0

	bounds := img.Bounds()
	for y := 0; y < bounds.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+bounds.Dx()*4]
		for x := 0; x < bounds.Dx(); x++ {
			l := luminance(row[x*4], row[x*4+1], row[x*4+2])
			if l < minL {
				minL = l
			}
			if l > maxL {
				maxL = l
			}
		}
	}

	if maxL <= minL {
		return img // однотонный кадр, растягивать нечего
	}

	scale := 255 / (maxL - minL)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clampChannel((float64(c.R) - minL) * scale),
			G: clampChannel((float64(c.G) - minL) * scale),
			B: clampChannel((float64(c.B) - minL) * scale),
			A: c.A,
		}
	})
}

func scaleBrightness(img *image.NRGBA, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clampChannel(float64(c.R) * factor),
			G: clampChannel(float64(c.G) * factor),
			B: clampChannel(float64(c.B) * factor),
			A: c.A,
		}
	})
}

func scaleSaturation(img *image.NRGBA, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		l := luminance(c.R, c.G, c.B)
		return color.NRGBA{
			R: clampChannel(l + (float64(c.R)-l)*factor),
			G: clampChannel(l + (float64(c.G)-l)*factor),
			B: clampChannel(l + (float64(c.B)-l)*factor),
			A: c.A,
		}
	})
}

func luminance(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

func clampChannel(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
