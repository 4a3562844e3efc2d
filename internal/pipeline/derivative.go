package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/threadcycle/PhotoPipeline/internal/model"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// GenerateVariants renders the full variant matrix from a normalized image:
// every spec from the catalogue in every codec. Specs are processed in
// parallel (each one resizes once and encodes all codecs), the result slice
// keeps catalogue order regardless of completion order.
func GenerateVariants(ctx context.Context, img *image.NRGBA, cfg Config, cpu *semaphore.Weighted) ([]model.EncodedVariant, error) {
	variants := make([]model.EncodedVariant, len(cfg.Variants)*len(cfg.Codecs))

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range cfg.Variants {
		i, spec := i, spec
		g.Go(func() error {
			if cpu != nil {
				if err := cpu.Acquire(gctx, 1); err != nil {
					return err
				}
				defer cpu.Release(1)
			}

			// cover+center-crop: заполняем бокс целиком, излишки обрезаем,
			// пропорции не искажаем и полей не добавляем
			resized := imaging.Fill(img, spec.MaxWidth, spec.MaxHeight, imaging.Center, imaging.Lanczos)

			for j, codec := range cfg.Codecs {
				encoded, err := EncodeVariant(resized, spec, codec)
				if err != nil {
					return err
				}
				variants[i*len(cfg.Codecs)+j] = encoded
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return variants, nil
}

// EncodeVariant encodes one resized buffer with the spec's quality value.
func EncodeVariant(img *image.NRGBA, spec model.VariantSpec, codec model.Codec) (model.EncodedVariant, error) {
	var buf bytes.Buffer

	switch codec {
	case model.CodecJPEG:
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(spec.Quality)); err != nil {
			return model.EncodedVariant{}, fmt.Errorf("encode %s/jpeg: %w", spec.Name, err)
		}
	case model.CodecWebP:
		if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(spec.Quality)}); err != nil {
			return model.EncodedVariant{}, fmt.Errorf("encode %s/webp: %w", spec.Name, err)
		}
	default:
		return model.EncodedVariant{}, fmt.Errorf("unsupported codec %q", codec)
	}

	return model.EncodedVariant{
		SizeName: spec.Name,
		Codec:    codec,
		Bytes:    buf.Bytes(),
	}, nil
}
