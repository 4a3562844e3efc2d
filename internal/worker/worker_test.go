package worker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/threadcycle/PhotoPipeline/internal/model"
	"github.com/threadcycle/PhotoPipeline/internal/pipeline"
)

func TestWorker_initProcessor(t *testing.T) {
	ctx := context.Background()
	id := uuid.New().String()

	tests := []struct {
		name      string
		photo     *model.Photo
		getErr    error
		updateErr error
		wantErr   bool
	}{
		{
			name:    "already done",
			photo:   &model.Photo{Status: model.StatusDone},
			wantErr: false,
		},
		{
			name:    "already rejected",
			photo:   &model.Photo{Status: model.StatusRejected},
			wantErr: false,
		},
		{
			name:    "in progress",
			photo:   &model.Photo{Status: model.StatusInProgress},
			wantErr: true,
		},
		{
			name:    "photo not found",
			getErr:  model.ErrPhotoNotFound,
			wantErr: true,
		},
		{
			name:      "update status error",
			photo:     &model.Photo{Status: model.StatusCreated},
			updateErr: errors.New("db down"),
			wantErr:   true,
		},
		{
			name: "stale task with ready urls just flips status",
			photo: &model.Photo{
				Status: model.StatusCreated,
				URLs:   model.URLMap{"thumb": {model.CodecWebP: "http://cdn.local/t.webp"}},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockWorkerService{
				getFn: func(ctx context.Context, _ string) (*model.Photo, error) {
					return tt.photo, tt.getErr
				},
				updateFn: func(ctx context.Context, _ string, _ model.Status) error {
					return tt.updateErr
				},
				saveResultFn: func(ctx context.Context, _ *model.Photo) error {
					return nil
				},
			}

			w := &Worker{
				service: svc,
				storage: &mockStorage{},
				pipe: &mockPipeline{
					processFn: func(ctx context.Context, raw []byte, folder, publicID string) pipeline.ImageResult {
						return pipeline.ImageResult{State: pipeline.StateDone}
					},
				},
			}

			// для веток где обработка стартует - нужен исходник в хранилище
			w.storage.(*mockStorage).getFn = func(ctx context.Context, key string) (io.ReadCloser, string, error) {
				return io.NopCloser(bytes.NewReader([]byte("raw-bytes"))), model.JPEG, nil
			}

			err := w.initProcessor(ctx, id)

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestWorker_initProcessor_RejectedOnInvalidInput(t *testing.T) {
	var saved *model.Photo

	svc := &mockWorkerService{
		getFn: func(ctx context.Context, _ string) (*model.Photo, error) {
			return &model.Photo{Status: model.StatusCreated, SourceKey: "sources/x.jpg"}, nil
		},
		updateFn: func(ctx context.Context, _ string, _ model.Status) error { return nil },
		saveResultFn: func(ctx context.Context, p *model.Photo) error {
			saved = p
			return nil
		},
	}

	w := &Worker{
		service: svc,
		storage: &mockStorage{
			getFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
				return io.NopCloser(bytes.NewReader([]byte("tiny"))), model.JPEG, nil
			},
		},
		pipe: &mockPipeline{
			processFn: func(ctx context.Context, raw []byte, folder, publicID string) pipeline.ImageResult {
				return pipeline.ImageResult{
					State: pipeline.StateRejected,
					Err:   model.ErrInvalidInput,
				}
			},
		},
	}

	err := w.initProcessor(context.Background(), uuid.New().String())

	require.Error(t, err)
	require.NotNil(t, saved)
	require.Equal(t, model.StatusRejected, saved.Status)
	require.NotEmpty(t, saved.ErrMsg)
}

func TestWorker_processTask_OK(t *testing.T) {
	ctx := context.Background()

	photo := &model.Photo{
		UID:       uuid.New(),
		Folder:    "garments",
		PublicID:  "sku-9",
		Status:    model.StatusInProgress,
		SourceKey: "sources/src.jpg",
	}

	urls := model.URLMap{
		"thumb": {model.CodecWebP: "http://cdn.local/garments/sku-9/thumb.webp"},
	}

	storage := &mockStorage{
		getFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
			require.Equal(t, "sources/src.jpg", key)
			return io.NopCloser(bytes.NewReader([]byte("raw-bytes"))), model.JPEG, nil
		},
	}

	svc := &mockWorkerService{
		saveResultFn: func(ctx context.Context, p *model.Photo) error {
			require.Equal(t, model.StatusDone, p.Status)
			require.Equal(t, urls, p.URLs)
			require.True(t, p.IsBlurry)
			require.NotEmpty(t, p.ErrMsg) // рекомендация по смазанному кадру уходит юзеру
			return nil
		},
	}

	pipe := &mockPipeline{
		processFn: func(ctx context.Context, raw []byte, folder, publicID string) pipeline.ImageResult {
			require.Equal(t, "garments", folder)
			require.Equal(t, "sku-9", publicID)
			return pipeline.ImageResult{
				State: pipeline.StateDone,
				URLs:  urls,
				Quality: model.QualityReport{
					SharpnessScore: 7.5,
					IsLikelyBlurry: true,
					Recommendation: "photo looks blurry, consider retaking it in better light",
				},
			}
		},
	}

	w := &Worker{storage: storage, service: svc, pipe: pipe}

	require.NoError(t, w.processTask(ctx, photo))
}

func TestWorker_processTask_SourceMissing(t *testing.T) {
	w := &Worker{
		storage: &mockStorage{
			getFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
				return nil, "", errors.New("storage down")
			},
		},
	}

	err := w.processTask(context.Background(), &model.Photo{SourceKey: "sources/gone.jpg"})
	require.Error(t, err)
}

func TestWorker_processTask_PipelineFailure(t *testing.T) {
	w := &Worker{
		storage: &mockStorage{
			getFn: func(ctx context.Context, key string) (io.ReadCloser, string, error) {
				return io.NopCloser(bytes.NewReader([]byte("raw"))), model.JPEG, nil
			},
		},
		pipe: &mockPipeline{
			processFn: func(ctx context.Context, raw []byte, folder, publicID string) pipeline.ImageResult {
				return pipeline.ImageResult{
					State: pipeline.StateFailed,
					Err:   model.ErrUploadFailure,
				}
			},
		},
	}

	err := w.processTask(context.Background(), &model.Photo{SourceKey: "sources/x.jpg"})
	require.ErrorIs(t, err, model.ErrUploadFailure)
}
