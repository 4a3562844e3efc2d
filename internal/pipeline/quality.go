package pipeline

import (
	"bytes"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/threadcycle/PhotoPipeline/internal/model"
)

// ScoreFunc - подменяемая функция оценки резкости, чтобы потом можно было
// воткнуть настоящую модель не трогая контракт пайплайна
type ScoreFunc func(img *image.NRGBA) float64

// StdDevScore is the default sharpness proxy: standard deviation of greyscale
// pixel intensity on the 0-255 scale. Cheap, deterministic, not ML.
func StdDevScore(img *image.NRGBA) float64 {
	grey := imaging.Grayscale(img)

	bounds := grey.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}

	// после Grayscale каналы равны, достаточно R
	var sum float64
	for y := 0; y < bounds.Dy(); y++ {
		row := grey.Pix[y*grey.Stride : y*grey.Stride+bounds.Dx()*4]
		for x := 0; x < bounds.Dx(); x++ {
			sum += float64(row[x*4])
		}
	}
	mean := sum / float64(total)

	var variance float64
	for y := 0; y < bounds.Dy(); y++ {
		row := grey.Pix[y*grey.Stride : y*grey.Stride+bounds.Dx()*4]
		for x := 0; x < bounds.Dx(); x++ {
			d := float64(row[x*4]) - mean
			variance += d * d
		}
	}

	return math.Sqrt(variance / float64(total))
}

// Analyze - информационная оценка качества кадра. Смазанное фото все равно
// пройдет пайплайн и будет загружено - флаг отдается наверх только для UX.
// Это осознанное решение, а не недоделка.
func Analyze(raw []byte, cfg Config) model.QualityReport {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		// до Analyze доходит только провалидированное - но на всякий случай
		return model.QualityReport{}
	}

	scorer := cfg.Scorer
	if scorer == nil {
		scorer = StdDevScore
	}

	report := model.QualityReport{SharpnessScore: scorer(imaging.Clone(img))}
	if report.SharpnessScore < cfg.BlurThreshold {
		report.IsLikelyBlurry = true
		report.Recommendation = "photo looks blurry, consider retaking it in better light"
	}
	return report
}
