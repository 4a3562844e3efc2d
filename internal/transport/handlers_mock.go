package transport

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/threadcycle/PhotoPipeline/internal/model"
)

type mockPhotoService struct {
	createFn  func(ctx context.Context, batch *model.BatchCreateData) ([]model.BatchCreateResult, error)
	getFn     func(ctx context.Context, id string) (*model.Photo, error)
	getListFn func(ctx context.Context, req *model.ListRequest) ([]model.Photo, error)
	deleteFn  func(ctx context.Context, id string) error
}

func (m *mockPhotoService) Create(ctx context.Context, batch *model.BatchCreateData) ([]model.BatchCreateResult, error) {
	return m.createFn(ctx, batch)
}

func (m *mockPhotoService) Get(ctx context.Context, id string) (*model.Photo, error) {
	return m.getFn(ctx, id)
}

func (m *mockPhotoService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Photo, error) {
	return m.getListFn(ctx, req)
}

func (m *mockPhotoService) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func init() {
	gin.SetMode(gin.TestMode)
}
