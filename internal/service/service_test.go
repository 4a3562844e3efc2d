package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"image"
	"image/color"
	"io"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/threadcycle/PhotoPipeline/internal/model"
	"github.com/threadcycle/PhotoPipeline/internal/pipeline"
	"github.com/wb-go/wbf/retry"
)

// CREATE - SUCCESS
func TestPhotoService_Create_OK(t *testing.T) {
	ctx := context.Background()

	repo := &mockRepo{
		createFn: func(ctx context.Context, p *model.Photo) error {
			require.NotEmpty(t, p.UID)
			require.Equal(t, model.StatusCreated, p.Status)
			require.Equal(t, 300, p.Width)
			require.Equal(t, 400, p.Height)
			require.True(t, strings.HasPrefix(p.SourceKey, SourceKeyPrefix))
			return nil
		},
	}

	storage := &mockStorage{
		putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
			require.Equal(t, model.JPEG, ct)
			return nil
		},
	}

	pub := &mockPublisher{
		sendFn: func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
			require.NotEmpty(t, key)
			return nil
		},
	}

	svc := PhotoService{
		repo:      repo,
		storage:   storage,
		publisher: pub,
		pipeCfg:   pipeline.DefaultConfig(),
	}

	results, err := svc.Create(ctx, validBatch(t, ""))
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Photo)
	require.Empty(t, results[0].Reasons)
	// без префикса publicId совпадает с uid
	require.Equal(t, results[0].Photo.UID.String(), results[0].Photo.PublicID)
}

// CREATE - PREFIX NAMING
func TestPhotoService_Create_PrefixNaming(t *testing.T) {
	svc := okService()

	results, err := svc.Create(context.Background(), validBatch(t, "lot42"))
	require.NoError(t, err)
	require.Equal(t, "lot42-0", results[0].Photo.PublicID)
}

// CREATE - MIXED BATCH: отказ одного файла не валит остальные
func TestPhotoService_Create_MixedBatch(t *testing.T) {
	created := 0
	svc := okService()
	svc.repo.(*mockRepo).createFn = func(ctx context.Context, p *model.Photo) error {
		created++
		return nil
	}

	batch := &model.BatchCreateData{
		Folder: "garments",
		Files: []model.UploadFile{
			uploadFileOf(t, validJPEG(t, 300, 400)),
			uploadFileOf(t, validJPEG(t, 100, 100)), // слишком маленькое
			uploadFileOf(t, []byte("not an image")),
		},
	}

	results, err := svc.Create(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.NotNil(t, results[0].Photo)
	require.Nil(t, results[1].Photo)
	require.Contains(t, results[1].Reasons[0], "too small")
	require.Nil(t, results[2].Photo)
	require.Contains(t, results[2].Reasons[0], "undecodable image")

	require.Equal(t, 1, created)
}

// CREATE - EMPTY BATCH
func TestPhotoService_Create_NoFiles(t *testing.T) {
	svc := PhotoService{}

	_, err := svc.Create(context.Background(), &model.BatchCreateData{})
	require.ErrorIs(t, err, model.ErrNoFilesAttached)
}

// CREATE - STORAGE PUT FAIL
func TestPhotoService_Create_StorageError(t *testing.T) {
	svc := okService()
	svc.storage.(*mockStorage).putFn = func(ctx context.Context, key string, size int64, ct string, r io.Reader) error {
		return errors.New("storage is down")
	}

	_, err := svc.Create(context.Background(), validBatch(t, ""))
	require.ErrorIs(t, err, model.ErrCommon500)
}

// GETLIST - SUCCESS
func TestPhotoService_GetList_OK(t *testing.T) {
	repo := &mockRepo{
		getListFn: func(ctx context.Context, req *model.ListRequest) ([]model.Photo, error) {
			require.Equal(t, 1, req.Page)
			return []model.Photo{{UID: uuid.New()}}, nil
		},
	}

	svc := PhotoService{repo: repo}

	res, err := svc.GetList(context.Background(), &model.ListRequest{})
	require.NoError(t, err)
	require.Len(t, res, 1)
}

// GET - SUCCESS
func TestPhotoService_Get_OK(t *testing.T) {
	id := uuid.New().String()

	repo := &mockRepo{
		getFn: func(ctx context.Context, uid string) (*model.Photo, error) {
			return &model.Photo{UID: uuid.MustParse(uid)}, nil
		},
	}

	svc := PhotoService{repo: repo}

	photo, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, photo.UID.String())
}

// GET - FAIL
func TestPhotoService_Get_InvalidID(t *testing.T) {
	svc := PhotoService{}
	_, err := svc.Get(context.Background(), "bad-id")
	require.ErrorIs(t, err, model.ErrIncorrectID)
}

// DELETE - FAIL - NOT FOUND
func TestPhotoService_Delete_NotFound(t *testing.T) {
	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (*model.Photo, error) {
			return nil, sql.ErrNoRows
		},
	}

	svc := PhotoService{repo: repo}
	err := svc.Delete(context.Background(), uuid.New().String())
	require.ErrorIs(t, err, model.ErrPhotoNotFound)
}

// DELETE - SUCCESS - у готового фото сносится и комплект вариантов
func TestPhotoService_Delete_DoneRemovesAssetSet(t *testing.T) {
	var removedPrefix string

	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (*model.Photo, error) {
			return &model.Photo{
				Folder:    "garments",
				PublicID:  "sku-1",
				SourceKey: "sources/abc.jpg",
				Status:    model.StatusDone,
			}, nil
		},
		deleteFn: func(ctx context.Context, id string) error { return nil },
	}
	storage := &mockStorage{
		removeFn: func(ctx context.Context, key string) error {
			require.Equal(t, "sources/abc.jpg", key)
			return nil
		},
		removePrefixFn: func(ctx context.Context, prefix string) error {
			removedPrefix = prefix
			return nil
		},
	}

	svc := PhotoService{repo: repo, storage: storage}
	err := svc.Delete(context.Background(), uuid.New().String())
	require.NoError(t, err)
	require.Equal(t, "garments/sku-1/", removedPrefix)
}

// UPDATESTATUS - SUCCESS
func TestPhotoService_UpdateStatus_OK(t *testing.T) {
	repo := &mockRepo{
		updateStatusFn: func(ctx context.Context, id string, st model.Status) error {
			require.Equal(t, model.StatusDone, st)
			return nil
		},
	}

	svc := PhotoService{repo: repo}
	err := svc.UpdateStatus(context.Background(), uuid.New().String(), model.StatusDone)
	require.NoError(t, err)
}

// SAVERESULT - SUCCESS
func TestPhotoService_SaveResult_OK(t *testing.T) {
	repo := &mockRepo{
		saveResultFn: func(ctx context.Context, p *model.Photo) error {
			require.NotNil(t, p.UpdatedAt)
			return nil
		},
	}

	svc := PhotoService{repo: repo}
	err := svc.SaveResult(context.Background(), &model.Photo{})
	require.NoError(t, err)
}

// REVIVEORPHANS - SUCCESS
func TestPhotoService_ReviveOrphans(t *testing.T) {
	called := 0

	repo := &mockRepo{
		fetchOrphansFn: func(ctx context.Context, limit int) ([]string, error) {
			return []string{"id1", "id2"}, nil
		},
	}

	pub := &mockPublisher{
		sendFn: func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
			called++
			return nil
		},
	}

	svc := PhotoService{repo: repo, publisher: pub}
	svc.ReviveOrphans(context.Background(), 10)

	require.Equal(t, 2, called)
}

// хелпер: сервис где все зависимости отвечают успехом
func okService() PhotoService {
	return PhotoService{
		repo: &mockRepo{
			createFn: func(ctx context.Context, p *model.Photo) error { return nil },
		},
		storage: &mockStorage{
			putFn: func(ctx context.Context, key string, size int64, ct string, r io.Reader) error { return nil },
		},
		publisher: &mockPublisher{
			sendFn: func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error { return nil },
		},
		pipeCfg: pipeline.DefaultConfig(),
	}
}

// хелпер: настоящие jpeg-байты, валидатору мусор не скормишь
func validJPEG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 90, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}

func uploadFileOf(t *testing.T, raw []byte) model.UploadFile {
	t.Helper()
	return model.UploadFile{
		File:        newFakeFile(raw),
		ContentType: model.JPEG,
		Size:        int64(len(raw)),
	}
}

func validBatch(t *testing.T, prefix string) *model.BatchCreateData {
	t.Helper()
	return &model.BatchCreateData{
		Folder:         "garments",
		PublicIDPrefix: prefix,
		Files:          []model.UploadFile{uploadFileOf(t, validJPEG(t, 300, 400))},
	}
}

// хелпер для создания файла
func newFakeFile(content []byte) multipart.File {
	return &fakeMultipartFile{
		Reader: bytes.NewReader(content),
	}
}
