package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/threadcycle/PhotoPipeline/internal/model"
)

type mockUploader struct {
	mu       sync.Mutex
	calls    int
	uploadFn func(ctx context.Context, variants []model.EncodedVariant, folder, publicID string) (*model.AssetSet, error)
}

func (m *mockUploader) Upload(ctx context.Context, variants []model.EncodedVariant, folder, publicID string) (*model.AssetSet, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.uploadFn(ctx, variants, folder, publicID)
}

// okUploader отдает комплект URL как это сделало бы настоящее хранилище
func okUploader() *mockUploader {
	return &mockUploader{
		uploadFn: func(ctx context.Context, variants []model.EncodedVariant, folder, publicID string) (*model.AssetSet, error) {
			set := &model.AssetSet{PublicID: publicID}
			for _, v := range variants {
				set.Assets = append(set.Assets, model.UploadedAsset{
					SizeName:  v.SizeName,
					Codec:     v.Codec,
					RemoteURL: "http://cdn.local/" + folder + "/" + publicID + "/" + v.SizeName + model.GetCodecFileExt[v.Codec],
				})
			}
			return set, nil
		},
	}
}

func TestProcessImage(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("happy path produces full URL map", func(t *testing.T) {
		up := okUploader()
		p := New(cfg, up)

		res := p.ProcessImage(context.Background(), checkerImageBytes(t, 1200, 1600, 40, imaging.JPEG), "garments", "jacket-1")

		require.NoError(t, res.Err)
		require.Equal(t, StateDone, res.State)
		require.Equal(t, "jacket-1", res.PublicID)
		require.Equal(t, 1200, res.Width)
		require.Equal(t, 1600, res.Height)
		require.False(t, res.Quality.IsLikelyBlurry)

		// 4 размера, в каждом оба кодека
		require.Len(t, res.URLs, len(cfg.Variants))
		for _, spec := range cfg.Variants {
			require.Contains(t, res.URLs, spec.Name)
			require.Len(t, res.URLs[spec.Name], len(cfg.Codecs))
		}
		require.Equal(t, 1, up.calls)
	})

	t.Run("small image rejected before any upload", func(t *testing.T) {
		up := okUploader()
		p := New(cfg, up)

		res := p.ProcessImage(context.Background(), flatImageBytes(t, 200, 200, imaging.PNG), "garments", "tiny")

		require.Equal(t, StateRejected, res.State)
		require.ErrorIs(t, res.Err, model.ErrInvalidInput)
		require.ErrorContains(t, res.Err, "too small")
		require.Zero(t, up.calls) // до хранилища дело не дошло
		require.Empty(t, res.URLs)
	})

	t.Run("upload failure fails the photo", func(t *testing.T) {
		up := &mockUploader{
			uploadFn: func(ctx context.Context, variants []model.EncodedVariant, folder, publicID string) (*model.AssetSet, error) {
				return nil, errors.New("bucket on fire")
			},
		}
		p := New(cfg, up)

		res := p.ProcessImage(context.Background(), checkerImageBytes(t, 400, 500, 20, imaging.JPEG), "garments", "x")

		require.Equal(t, StateFailed, res.State)
		require.ErrorIs(t, res.Err, model.ErrUploadFailure)
		require.Empty(t, res.URLs)
	})

	t.Run("blurry photo still completes", func(t *testing.T) {
		up := okUploader()
		p := New(cfg, up)

		res := p.ProcessImage(context.Background(), flatImageBytes(t, 400, 500, imaging.JPEG), "garments", "blurry")

		require.NoError(t, res.Err)
		require.Equal(t, StateDone, res.State)
		require.True(t, res.Quality.IsLikelyBlurry)
		require.NotEmpty(t, res.Quality.Recommendation)
	})
}

func TestProcessImages_BatchIndependence(t *testing.T) {
	cfg := DefaultConfig()
	p := New(cfg, okUploader())

	files := [][]byte{
		checkerImageBytes(t, 400, 500, 20, imaging.JPEG), // валидное
		flatImageBytes(t, 100, 100, imaging.PNG),         // слишком маленькое
		[]byte("garbage"),                                // не картинка
	}

	results := p.ProcessImages(context.Background(), files, Options{Folder: "garments", PublicIDPrefix: "lot"})

	require.Len(t, results, 3)
	require.Equal(t, StateDone, results[0].State)
	require.Equal(t, "lot-0", results[0].PublicID)
	require.Equal(t, StateRejected, results[1].State)
	require.Equal(t, StateRejected, results[2].State)
}

func TestProcessImages_GeneratedPublicIDs(t *testing.T) {
	cfg := DefaultConfig()
	p := New(cfg, okUploader())

	results := p.ProcessImages(context.Background(), [][]byte{
		checkerImageBytes(t, 400, 500, 20, imaging.JPEG),
	}, Options{Folder: "garments"})

	require.Len(t, results, 1)
	// без префикса каждый кадр получает uuid
	require.NoError(t, uuid.Validate(results[0].PublicID))
}
