// Package pipeline provides the photo-ingestion core: validation, quality scoring,
// normalization, derivative generation and per-photo orchestration.
package pipeline

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // регистрация декодеров для image.DecodeConfig/imaging.Decode
	_ "image/png"

	"github.com/threadcycle/PhotoPipeline/internal/model"
	_ "golang.org/x/image/webp"
)

// Validate - чистая проверка сырых байтов: формат и габариты.
// Никогда не возвращает ошибку - нечитаемые байты это тоже вердикт, а не сбой.
func Validate(raw []byte, cfg Config) model.ValidationReport {
	report := model.ValidationReport{}

	conf, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		report.Reasons = append(report.Reasons, "undecodable image")
		return report
	}

	report.Width = conf.Width
	report.Height = conf.Height
	report.Format = format

	switch format {
	case "jpeg", "png", "webp":
	default:
		report.Reasons = append(report.Reasons, fmt.Sprintf("unsupported format %q", format))
		return report
	}

	if conf.Width < cfg.MinWidth || conf.Height < cfg.MinHeight {
		report.Reasons = append(report.Reasons, fmt.Sprintf("too small: %dx%d, minimum is %dx%d", conf.Width, conf.Height, cfg.MinWidth, cfg.MinHeight))
		return report
	}

	if conf.Width > cfg.MaxWidth || conf.Height > cfg.MaxHeight {
		report.Reasons = append(report.Reasons, fmt.Sprintf("too large: %dx%d, maximum is %dx%d", conf.Width, conf.Height, cfg.MaxWidth, cfg.MaxHeight))
		return report
	}

	report.Accepted = true
	return report
}
