package pipeline

import (
	"runtime"
	"time"

	"github.com/threadcycle/PhotoPipeline/internal/model"
	"github.com/wb-go/wbf/retry"
)

// Config - неизменяемая конфигурация пайплайна, передается при создании.
// Никакого глобального мутабельного стейта - каждый тест может собрать свой пресет.
type Config struct {
	// Лимиты валидатора
	MinWidth  int
	MinHeight int
	MaxWidth  int
	MaxHeight int

	// Порог размытости: stddev интенсивности ниже порога = вероятно смазанный кадр
	BlurThreshold float64
	// Scorer подменяет эвристику оценки резкости, nil = StdDevScore
	Scorer ScoreFunc

	// Параметры цветокоррекции, порядок применения фиксирован в Normalize
	SharpenSigma     float64
	BrightnessFactor float64
	SaturationFactor float64

	// RemoveBackground - точка расширения под вырезание фона, пока всегда no-op
	RemoveBackground bool

	// Лесенка разрешений и кодеки: len(Variants) x len(Codecs) вариантов на фото
	Variants []model.VariantSpec
	Codecs   []model.Codec

	// Пул CPU-bound работы (декод/нормализация/ресайз/кодирование)
	CPUWorkers int
	// Лимит одновременных аплоадов в удаленное хранилище
	UploadMaxInFlight int
	// Ретраи одного варианта перед тем как зафейлить весь комплект
	UploadRetry retry.Strategy
}

// DefaultConfig returns the production preset: four sizes in WebP+JPEG,
// eight encoded variants per photo.
func DefaultConfig() Config {
	return Config{
		MinWidth:  300,
		MinHeight: 400,
		MaxWidth:  5000,
		MaxHeight: 5000,

		BlurThreshold: 20,

		SharpenSigma:     1.0,
		BrightnessFactor: 1.05,
		SaturationFactor: 1.10,

		Variants: []model.VariantSpec{
			{Name: "original", MaxWidth: 1200, MaxHeight: 1600, Quality: 90},
			{Name: "large", MaxWidth: 800, MaxHeight: 1066, Quality: 85},
			{Name: "medium", MaxWidth: 400, MaxHeight: 533, Quality: 80},
			{Name: "thumb", MaxWidth: 150, MaxHeight: 200, Quality: 75},
		},
		Codecs: []model.Codec{model.CodecWebP, model.CodecJPEG},

		CPUWorkers:        runtime.NumCPU(),
		UploadMaxInFlight: 8,
		UploadRetry: retry.Strategy{
			Attempts: 3,
			Delay:    500 * time.Millisecond,
			Backoff:  2,
		},
	}
}
