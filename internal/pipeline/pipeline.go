package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/threadcycle/PhotoPipeline/internal/model"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// State - этапы конечного автомата одного фото
type State string

const (
	StateReceived   State = "received"
	StateValidated  State = "validated"
	StateNormalized State = "normalized"
	StateGenerated  State = "generated"
	StateUploaded   State = "uploaded"
	StateDone       State = "done"
	StateRejected   State = "rejected"
	StateFailed     State = "failed"
)

// Uploader - контракт координатора загрузки комплекта вариантов
type Uploader interface {
	Upload(ctx context.Context, variants []model.EncodedVariant, folder, publicID string) (*model.AssetSet, error)
}

type Pipeline struct {
	cfg      Config
	uploader Uploader
	cpu      *semaphore.Weighted
}

// New builds a pipeline around an immutable config and an upload coordinator.
// The CPU semaphore is shared by every image this instance processes, so batch
// concurrency does not multiply pixel-work unboundedly.
func New(cfg Config, up Uploader) *Pipeline {
	workers := cfg.CPUWorkers
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline{
		cfg:      cfg,
		uploader: up,
		cpu:      semaphore.NewWeighted(int64(workers)),
	}
}

// Options - опции размещения для одного вызова пайплайна
type Options struct {
	Folder         string
	PublicIDPrefix string
}

// ImageResult - итог обработки одного фото: либо полный комплект URL, либо ошибка
type ImageResult struct {
	State    State               `json:"state"`
	PublicID string              `json:"public_id,omitempty"`
	URLs     model.URLMap        `json:"urls,omitempty"`
	Quality  model.QualityReport `json:"quality"`
	Width    int                 `json:"width,omitempty"`
	Height   int                 `json:"height,omitempty"`
	Err      error               `json:"-"`
}

// ProcessImages runs the pipeline for every file of a batch concurrently.
// Images are independent: one failure never invalidates siblings, and whether
// a partially-successful batch is acceptable is the caller's policy, not ours.
func (p *Pipeline) ProcessImages(ctx context.Context, files [][]byte, opts Options) []ImageResult {
	results := make([]ImageResult, len(files))

	var g errgroup.Group
	for i, raw := range files {
		i, raw := i, raw
		g.Go(func() error {
			results[i] = p.ProcessImage(ctx, raw, opts.Folder, publicIDFor(opts.PublicIDPrefix, i))
			return nil
		})
	}
	_ = g.Wait() // ошибки лежат в results, горутины их не возвращают

	return results
}

// ProcessImage drives one photo through the state machine:
// received -> validated -> (analyzed) -> normalized -> generated -> uploaded -> done,
// with rejected/failed as the terminal error states. No retries happen here -
// they belong to the upload coordinator.
func (p *Pipeline) ProcessImage(ctx context.Context, raw []byte, folder, publicID string) ImageResult {
	res := ImageResult{State: StateReceived, PublicID: publicID}

	// CPU-bound префикс: валидация, оценка качества, нормализация.
	// Токен отпускаем до генерации - ее задачи берут свои, иначе дедлок.
	if err := p.cpu.Acquire(ctx, 1); err != nil {
		res.State = StateFailed
		res.Err = fmt.Errorf("%w: %v", model.ErrProcessingFailure, err)
		return res
	}

	report := Validate(raw, p.cfg)
	res.Width = report.Width
	res.Height = report.Height
	if !report.Accepted {
		p.cpu.Release(1)
		res.State = StateRejected
		res.Err = fmt.Errorf("%w: %s", model.ErrInvalidInput, strings.Join(report.Reasons, "; "))
		return res
	}
	res.State = StateValidated

	// оценка качества чисто информационная - дальше идем в любом случае
	res.Quality = Analyze(raw, p.cfg)

	normalized, err := Normalize(raw, p.cfg)
	p.cpu.Release(1)
	if err != nil {
		res.State = StateFailed
		res.Err = fmt.Errorf("%w: %v", model.ErrProcessingFailure, err)
		return res
	}
	res.State = StateNormalized

	variants, err := GenerateVariants(ctx, normalized, p.cfg, p.cpu)
	if err != nil {
		res.State = StateFailed
		res.Err = fmt.Errorf("%w: %v", model.ErrProcessingFailure, err)
		return res
	}
	res.State = StateGenerated

	set, err := p.uploader.Upload(ctx, variants, folder, publicID)
	if err != nil {
		res.State = StateFailed
		if !errors.Is(err, model.ErrUploadFailure) {
			err = fmt.Errorf("%w: %v", model.ErrUploadFailure, err)
		}
		res.Err = err
		return res
	}
	res.State = StateUploaded

	res.URLs = set.URLs()
	res.State = StateDone
	return res
}

func publicIDFor(prefix string, index int) string {
	if prefix == "" {
		return uuid.New().String()
	}
	return fmt.Sprintf("%s-%d", prefix, index)
}
