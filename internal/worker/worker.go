// Package worker contains methods for worker to init at start, and to process queued photos
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/threadcycle/PhotoPipeline/internal/model"
	"github.com/threadcycle/PhotoPipeline/internal/pipeline"
	"github.com/threadcycle/PhotoPipeline/internal/service"
	wbfkafka "github.com/wb-go/wbf/kafka"
)

type PhotoWorkerService interface { // дублируется из cmd/worker - может вынести такие структуры/контракты в отдельный пакет(не model)?
	UpdateStatus(ctx context.Context, id string, newStat model.Status) error
	SaveResult(ctx context.Context, res *model.Photo) error
	Get(ctx context.Context, id string) (*model.Photo, error)
}

// PhotoPipeline - контракт ядра обработки, в тестах подменяется моком
type PhotoPipeline interface {
	ProcessImage(ctx context.Context, raw []byte, folder, publicID string) pipeline.ImageResult
}

type Worker struct {
	storage  service.AssetStorage
	service  PhotoWorkerService
	pipe     PhotoPipeline
	queue    <-chan kafkago.Message
	consumer *wbfkafka.Consumer
}

func NewWorkerInstance(strg service.AssetStorage, svc PhotoWorkerService, pipe PhotoPipeline, q <-chan kafkago.Message, cons *wbfkafka.Consumer) *Worker {
	return &Worker{storage: strg, service: svc, pipe: pipe, queue: q, consumer: cons}
}

func (w *Worker) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				log.Println("Queue channel closed, stopping worker...")
				return
			}
			id := string(msg.Key)
			if err := w.initProcessor(ctx, id); err != nil && !errors.Is(err, model.ErrPhotoNotFound) {
				log.Printf("Task %s failed: %v", id, err)
				continue
			}
			if err := w.consumer.Commit(ctx, msg); err != nil {
				log.Printf("Failed to commit queue-message: %v", err)
			}
		}
	}
}

func (w *Worker) initProcessor(ctx context.Context, id string) error {
	// считать из базы задачу
	task, err := w.service.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("Worker failed to fetch photo info %q from DB: %w", id, err)
	}
	// проверить статус
	switch task.Status {
	case model.StatusDone, model.StatusRejected:
		return nil
	case model.StatusInProgress:
		return fmt.Errorf("already in progress")
	}

	// на всякий случай проверить карту ссылок - вдруг результат уже есть
	if len(task.URLs) > 0 {
		if err := w.service.UpdateStatus(ctx, id, model.StatusDone); err != nil {
			return fmt.Errorf("failed to update status of already-done task in DB: %w", err)
		}
		return nil
	}

	// обновить статус
	if err := w.service.UpdateStatus(ctx, id, model.StatusInProgress); err != nil {
		return fmt.Errorf("failed to update status of task %q to `in_progress` in DB: %w", id, err)
	}

	// выполняем саму обработку
	if pErr := w.processTask(ctx, task); pErr != nil {
		// невалидный вход - это отказ, остальное - сбой; ретраев тут нет,
		// ретраи на уровне вариантов живут внутри координатора загрузки
		final := model.StatusFailed
		if errors.Is(pErr, model.ErrInvalidInput) {
			final = model.StatusRejected
		}
		task.Status = final
		task.ErrMsg = append(task.ErrMsg, pErr.Error())
		if uErr := w.service.SaveResult(ctx, task); uErr != nil {
			return fmt.Errorf("failed to set status of task %q to %q in DB: %w \nAFTER\n error while processing task: %w", id, final, uErr, pErr)
		}
		return fmt.Errorf("failed to process task %q: %w", id, pErr)
	}

	return nil
}

func (w *Worker) processTask(ctx context.Context, task *model.Photo) error {
	// достать из storage исходник
	src, _, err := w.storage.Get(ctx, task.SourceKey)
	if err != nil {
		return fmt.Errorf("worker failed to fetch source image from storage: %w", err)
	}
	defer closeFileFlow(src)

	raw, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("worker failed to read source image: %w", err)
	}

	// прогоняем фото через пайплайн: нормализация, 8 вариантов, аплоад комплекта
	res := w.pipe.ProcessImage(ctx, raw, task.Folder, task.PublicID)
	if res.Err != nil {
		return res.Err
	}

	task.Status = model.StatusDone
	task.URLs = res.URLs
	task.Sharpness = res.Quality.SharpnessScore
	task.IsBlurry = res.Quality.IsLikelyBlurry
	if res.Quality.Recommendation != "" {
		task.ErrMsg = append(task.ErrMsg, res.Quality.Recommendation)
	}

	// обновить запись в БД
	if err := w.service.SaveResult(ctx, task); err != nil {
		return fmt.Errorf("worker failed to save result to DB: %w", err)
	}
	return nil
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}

	if err := res.Close(); err != nil {
		log.Println("Worker failed to close fileflow:", err)
	}
}
