package main

import (
	"context"

	"github.com/threadcycle/PhotoPipeline/internal/model"
)

type PhotoAPIRepository interface {
	Create(ctx context.Context, n *model.Photo) error
	Delete(ctx context.Context, id string) error
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Photo, error)
}

type PhotoAPIService interface {
	Create(context.Context, *model.BatchCreateData) ([]model.BatchCreateResult, error)
	Get(ctx context.Context, id string) (*model.Photo, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Photo, error)
	Delete(ctx context.Context, id string) error
	ReviveOrphans(ctx context.Context, limit int)
}
