package worker

import (
	"context"
	"io"

	"github.com/threadcycle/PhotoPipeline/internal/model"
	"github.com/threadcycle/PhotoPipeline/internal/pipeline"
)

type mockWorkerService struct {
	getFn        func(ctx context.Context, id string) (*model.Photo, error)
	updateFn     func(ctx context.Context, id string, st model.Status) error
	saveResultFn func(ctx context.Context, p *model.Photo) error
}

func (m *mockWorkerService) Get(ctx context.Context, id string) (*model.Photo, error) {
	return m.getFn(ctx, id)
}

func (m *mockWorkerService) UpdateStatus(ctx context.Context, id string, st model.Status) error {
	return m.updateFn(ctx, id, st)
}

func (m *mockWorkerService) SaveResult(ctx context.Context, p *model.Photo) error {
	return m.saveResultFn(ctx, p)
}

//----------------------------------

type mockStorage struct {
	getFn func(ctx context.Context, key string) (io.ReadCloser, string, error)
	putFn func(ctx context.Context, key string, size int64, ct string, r io.Reader) error
}

func (m *mockStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return m.getFn(ctx, key)
}

func (m *mockStorage) Put(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
	return m.putFn(ctx, key, size, ct, r)
}

func (m *mockStorage) RemoveObject(ctx context.Context, key string) error {
	return nil
}

func (m *mockStorage) RemovePrefix(ctx context.Context, prefix string) error {
	return nil
}

//----------------------------------

type mockPipeline struct {
	processFn func(ctx context.Context, raw []byte, folder, publicID string) pipeline.ImageResult
}

func (m *mockPipeline) ProcessImage(ctx context.Context, raw []byte, folder, publicID string) pipeline.ImageResult {
	return m.processFn(ctx, raw, folder, publicID)
}
