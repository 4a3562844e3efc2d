// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"

	"github.com/threadcycle/PhotoPipeline/internal/model"
	"github.com/wb-go/wbf/ginext"
)

const maxUploadFormSize = 64 << 20

type PhotoHandler struct {
	service PhotoService
}

type PhotoService interface {
	Create(ctx context.Context, batch *model.BatchCreateData) ([]model.BatchCreateResult, error)
	Get(ctx context.Context, id string) (*model.Photo, error)                   // статус и карта URL комплекта
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Photo, error) // получить список
	Delete(ctx context.Context, id string) error                                // удалить из базы и из хранилища
}

func NewPhotoHandler(svc PhotoService) *PhotoHandler {
	return &PhotoHandler{
		service: svc,
	}
}

func (h PhotoHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

// Create - батчевый прием фото: multipart-поле "photos" повторяется на файл,
// опции размещения приходят обычными полями формы
func (h PhotoHandler) Create(ctx *ginext.Context) {
	if err := ctx.Request.ParseMultipartForm(maxUploadFormSize); err != nil {
		ctx.JSON(400, map[string]string{"error": "invalid multipart form"})
		return
	}

	batch := model.BatchCreateData{
		Folder:         ctx.PostForm("folder"),
		PublicIDPrefix: ctx.PostForm("public_id_prefix"),
	}
	if batch.Folder == "" {
		batch.Folder = "garments"
	}

	form := ctx.Request.MultipartForm
	for _, header := range form.File["photos"] {
		file, err := header.Open()
		if err != nil {
			ctx.JSON(400, map[string]string{"error": "failed to read attached photo"})
			return
		}
		defer closeFileFlow(file)

		batch.Files = append(batch.Files, model.UploadFile{
			File:        file,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
		})
	}

	// передаем в сервис
	res, err := h.service.Create(ctx.Request.Context(), &batch)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(201, res)
}

func (h PhotoHandler) GetAllPhotos(ctx *ginext.Context) {
	var req model.ListRequest

	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse query-params"})
		return
	}

	res, err := h.service.GetList(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h PhotoHandler) GetPhoto(ctx *ginext.Context) {
	id := ctx.Param("id")

	res, err := h.service.Get(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h PhotoHandler) Delete(ctx *ginext.Context) {
	id := ctx.Param("id")
	if err := h.service.Delete(ctx.Request.Context(), id); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Status(204)
}
