// Package uploader ships encoded variants to the remote asset store and
// enforces the all-or-nothing contract on the resulting asset set.
package uploader

import (
	"context"
	"fmt"
	"time"

	"github.com/threadcycle/PhotoPipeline/internal/model"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// AssetStore - контракт удаленного хранилища. Put перезаписывает объект по
// тому же ключу, поэтому повторная обработка одного publicId заменяет комплект.
type AssetStore interface {
	PutObject(ctx context.Context, key, contentType string, data []byte) (url string, err error)
	RemoveObject(ctx context.Context, key string) error
}

type Coordinator struct {
	store       AssetStore
	maxInFlight int
	strategy    retry.Strategy
	// slots - общий пул на весь координатор: батч из N фото не умножает
	// лимит одновременных аплоадов, хранилище видит не больше maxInFlight
	slots *semaphore.Weighted
}

func NewCoordinator(store AssetStore, maxInFlight int, strategy retry.Strategy) *Coordinator {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	if strategy.Attempts <= 0 {
		strategy.Attempts = 1
	}
	if strategy.Backoff < 1 {
		strategy.Backoff = 1
	}
	return &Coordinator{
		store:       store,
		maxInFlight: maxInFlight,
		strategy:    strategy,
		slots:       semaphore.NewWeighted(int64(maxInFlight)),
	}
}

// Upload dispatches one upload per variant concurrently and waits for the
// whole set. In-flight uploads draw from the coordinator-wide slot pool, so
// concurrent Upload calls share one maxInFlight bound. Any variant that still
// fails after its retries cancels the in-flight siblings, already-uploaded
// objects are deleted best-effort, and the caller gets an error instead of a
// partial set. A missing rung would break every consumer that assumes the
// full size ladder exists.
func (c *Coordinator) Upload(ctx context.Context, variants []model.EncodedVariant, folder, publicID string) (*model.AssetSet, error) {
	assets := make([]model.UploadedAsset, len(variants))
	done := make([]bool, len(variants)) // пишет только владелец индекса

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxInFlight)

	for i, v := range variants {
		i, v := i, v
		g.Go(func() error {
			// слот берем из общего пула координатора, errgroup здесь только барьер
			if err := c.slots.Acquire(gctx, 1); err != nil {
				return err
			}
			defer c.slots.Release(1)

			key := ObjectKey(folder, publicID, v)
			url, err := c.putWithRetry(gctx, key, model.GetCodecCType[v.Codec], v.Bytes)
			if err != nil {
				return fmt.Errorf("upload %s/%s: %w", v.SizeName, v.Codec, err)
			}
			assets[i] = model.UploadedAsset{
				SizeName:  v.SizeName,
				Codec:     v.Codec,
				RemoteURL: url,
				RemoteID:  key,
			}
			done[i] = true
			return nil
		})
	}

	// барьер: комплект не существует, пока не отчитались все варианты
	if err := g.Wait(); err != nil {
		c.cleanup(variants, done, folder, publicID)
		return nil, fmt.Errorf("%w: %v", model.ErrUploadFailure, err)
	}

	return &model.AssetSet{PublicID: publicID, Assets: assets}, nil
}

// ObjectKey - ключ варианта в хранилище: общий publicId группирует комплект
func ObjectKey(folder, publicID string, v model.EncodedVariant) string {
	return folder + "/" + publicID + "/" + v.SizeName + model.GetCodecFileExt[v.Codec]
}

func (c *Coordinator) putWithRetry(ctx context.Context, key, contentType string, data []byte) (string, error) {
	delay := c.strategy.Delay
	var lastErr error

	for attempt := 0; attempt < c.strategy.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.strategy.Backoff)
		}

		url, err := c.store.PutObject(ctx, key, contentType, data)
		if err == nil {
			return url, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break // сосед уже зафейлился или вызов отменен - не досиживаем ретраи
		}
	}

	return "", lastErr
}

// cleanup - компенсация: выпиливаем уже загруженные варианты, чтобы в
// хранилище не остался осиротевший частичный комплект. Best-effort на свежем
// контексте - родительский к этому моменту обычно уже отменен.
func (c *Coordinator) cleanup(variants []model.EncodedVariant, done []bool, folder, publicID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for i, v := range variants {
		if !done[i] {
			continue
		}
		key := ObjectKey(folder, publicID, v)
		if err := c.store.RemoveObject(ctx, key); err != nil {
			zlog.Logger.Error().Err(err).Str("key", key).Msg("Failed to remove partially uploaded variant")
		}
	}
}
