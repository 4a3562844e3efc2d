// Package service provides business-logic for the app
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/threadcycle/PhotoPipeline/internal/model"
	"github.com/threadcycle/PhotoPipeline/internal/mwlogger"
	"github.com/threadcycle/PhotoPipeline/internal/pipeline"
	"github.com/threadcycle/PhotoPipeline/internal/repository"
	"github.com/wb-go/wbf/retry"
)

const SourceKeyPrefix = "sources/"

type PhotoService struct {
	repo      repository.PhotoRepo
	publisher TaskPublisher
	storage   AssetStorage
	pipeCfg   pipeline.Config
}

func NewPhotoService(repo repository.PhotoRepo, pub TaskPublisher, strg AssetStorage, pipeCfg pipeline.Config) *PhotoService {
	return &PhotoService{
		repo:      repo,
		publisher: pub,
		storage:   strg,
		pipeCfg:   pipeCfg,
	}
}

// TaskPublisher - контракт для работы с очередью
type TaskPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// AssetStorage - контракт для работы с хранилищем
type AssetStorage interface {
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error
	Get(ctx context.Context, key string) (output io.ReadCloser, ctype string, err error)
	RemoveObject(ctx context.Context, key string) error
	RemovePrefix(ctx context.Context, prefix string) error
}

// Стратегия ретрая отправки в очередь - можно потом вынести значения в конфиг/env
var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    3 * time.Second,
	Backoff:  1.5,
}

// Create принимает батч файлов: каждый валидируется синхронно, отказ одного
// файла не мешает остальным. Принятые фото уходят в хранилище, базу и очередь;
// тяжелая обработка выполняется воркером асинхронно.
func (c PhotoService) Create(ctx context.Context, batch *model.BatchCreateData) ([]model.BatchCreateResult, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	if len(batch.Files) == 0 {
		return nil, model.ErrNoFilesAttached
	}

	results := make([]model.BatchCreateResult, 0, len(batch.Files))
	for i, f := range batch.Files {
		raw, err := readUpload(f)
		if err != nil {
			results = append(results, model.BatchCreateResult{Reasons: []string{"unreadable file"}})
			continue
		}

		// отказ валидатора - это вердикт по файлу, а не ошибка запроса:
		// ничего не сохраняем и к обработке не допускаем
		report := pipeline.Validate(raw, c.pipeCfg)
		if !report.Accepted {
			results = append(results, model.BatchCreateResult{Reasons: report.Reasons})
			continue
		}

		photo, err := c.acceptPhoto(ctx, batch, raw, &report, i)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to accept photo from batch")
			return nil, model.ErrCommon500
		}
		results = append(results, model.BatchCreateResult{Photo: photo})
	}

	return results, nil
}

func (c PhotoService) acceptPhoto(ctx context.Context, batch *model.BatchCreateData, raw []byte, report *model.ValidationReport, index int) (*model.Photo, error) {
	newPhoto := &model.Photo{
		UID:    uuid.New(),
		Folder: batch.Folder,
		Width:  report.Width,
		Height: report.Height,
	}

	// общий publicId группирует все варианты фото в хранилище
	if batch.PublicIDPrefix != "" {
		newPhoto.PublicID = fmt.Sprintf("%s-%d", batch.PublicIDPrefix, index)
	} else {
		newPhoto.PublicID = newPhoto.UID.String()
	}

	// кладем в хранилище исходник - он нужен воркеру, оригинал вне хранилища не живет
	cType := "image/" + report.Format
	newPhoto.SourceKey = SourceKeyPrefix + newPhoto.UID.String() + model.GetImageFileExt[cType]
	if err := c.storage.Put(ctx, newPhoto.SourceKey, int64(len(raw)), cType, readerOf(raw)); err != nil {
		return nil, fmt.Errorf("save source image in storage: %w", err)
	}

	// ставим статус и таймстамп
	newPhoto.Status = model.StatusCreated
	now := time.Now().UTC()
	newPhoto.CreatedAt = &now

	// шлем в базу
	if err := c.repo.Create(ctx, newPhoto); err != nil {
		return nil, fmt.Errorf("create photo in DB: %w", err)
	}

	// кладем в очередь задач(в кафку)
	if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(newPhoto.UID.String()), nil); err != nil {
		return nil, fmt.Errorf("publish photo %q to task-queue: %w", newPhoto.UID, err)
	}

	return newPhoto, nil
}

func (c PhotoService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Photo, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	validateQueryParams(req)

	res, err := c.repo.GetList(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch all photos list from DB")
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (c PhotoService) Get(ctx context.Context, id string) (*model.Photo, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPhotoNotFound):
			return nil, model.ErrPhotoNotFound
		default:
			logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch photo %q from DB", id))
			return nil, model.ErrCommon500
		}
	}

	return res, nil
}

func (c PhotoService) Delete(ctx context.Context, id string) error {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}

	// читаем из базы
	res, err := c.repo.Get(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrPhotoNotFound), errors.Is(err, sql.ErrNoRows):
			return model.ErrPhotoNotFound // 404
		default:
			logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch photo %q from DB", id))
			return model.ErrCommon500
		}
	}

	// удаляем из базы
	if err := c.repo.Delete(ctx, id); err != nil {
		logger.Error().Err(err).Msg("Failed to delete photo from DB")
		return model.ErrCommon500
	}

	// удаляем из хранилища исходник и комплект вариантов(если он есть)
	if err := c.storage.RemoveObject(ctx, res.SourceKey); err != nil {
		logger.Error().Err(err).Msg("Failed to delete source image from storage")
		return model.ErrCommon500
	}
	if res.Status == model.StatusDone {
		prefix := res.Folder + "/" + res.PublicID + "/"
		if err := c.storage.RemovePrefix(ctx, prefix); err != nil {
			logger.Error().Err(err).Msg("Failed to delete asset set from storage")
			return model.ErrCommon500
		}
	}

	return nil
}

func (c PhotoService) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}

	logger := mwlogger.LoggerFromContext(ctx)

	if err := c.repo.UpdateStatus(ctx, id, newStat); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return model.ErrPhotoNotFound // 404
		default:
			logger.Error().Err(err).Msg("Failed to update photo status in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

func (c PhotoService) SaveResult(ctx context.Context, input *model.Photo) error {
	logger := mwlogger.LoggerFromContext(ctx)
	t := time.Now().UTC()
	input.UpdatedAt = &t
	if err := c.repo.SaveResult(ctx, input); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return model.ErrPhotoNotFound // 404
		default:
			logger.Error().Err(err).Msg("Failed to save pipeline result in DB")
			return model.ErrCommon500 // 500
		}
	}

	return nil
}

func (c PhotoService) ReviveOrphans(ctx context.Context, limit int) {
	logger := mwlogger.LoggerFromContext(ctx)

	orphans, err := c.repo.FetchOrphans(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load orphans from DB")
		return
	}

	for _, v := range orphans {
		if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(v), nil); err != nil {
			logger.Error().Err(err).Msg("Failed to publish orphan to queue")
		}
	}
}
