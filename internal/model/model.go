// Package model provides data-structs for internal app-usage
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
)

type (
	Status string
	Codec  string
)

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusRejected   Status = "rejected"
	StatusFailed     Status = "failed"
	StatusDone       Status = "done"
)

var StatusMap = map[Status]bool{
	StatusCreated:    true,
	StatusInProgress: true,
	StatusRejected:   true,
	StatusFailed:     true,
	StatusDone:       true,
}

const (
	CodecWebP Codec = "webp"
	CodecJPEG Codec = "jpeg"
)

//---------------------

// VariantSpec - одна ступень лесенки разрешений: имя, целевой бокс и качество кодирования
type VariantSpec struct {
	Name      string
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// EncodedVariant - закодированный буфер одного варианта, живет только между генерацией и аплоадом
type EncodedVariant struct {
	SizeName string
	Codec    Codec
	Bytes    []byte
}

// UploadedAsset - один загруженный вариант в удаленном хранилище
type UploadedAsset struct {
	SizeName  string `json:"size"`
	Codec     Codec  `json:"codec"`
	RemoteURL string `json:"url"`
	RemoteID  string `json:"id"`
}

// AssetSet - полный комплект вариантов одного фото под общим publicId.
// Либо существует целиком, либо не существует вовсе - частичных комплектов наружу не отдаем.
type AssetSet struct {
	PublicID string          `json:"public_id"`
	Assets   []UploadedAsset `json:"assets"`
}

// URLs collects the asset set into a {sizeName: {codec: url}} map.
func (s *AssetSet) URLs() URLMap {
	res := make(URLMap, len(s.Assets))
	for _, a := range s.Assets {
		if res[a.SizeName] == nil {
			res[a.SizeName] = make(map[Codec]string, 2)
		}
		res[a.SizeName][a.Codec] = a.RemoteURL
	}
	return res
}

//-------------------

// ValidationReport - вердикт валидатора по сырым байтам, только для чтения после создания
type ValidationReport struct {
	Accepted bool     `json:"accepted"`
	Reasons  []string `json:"reasons,omitempty"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Format   string   `json:"format"`
}

// QualityReport - эвристическая оценка резкости, чисто информационная, пайплайн не блокирует
type QualityReport struct {
	SharpnessScore float64 `json:"sharpness_score"`
	IsLikelyBlurry bool    `json:"is_likely_blurry"`
	Recommendation string  `json:"recommendation,omitempty"`
}

//-------------------

type Photo struct {
	UID       uuid.UUID     `json:"uid"`
	Folder    string        `json:"folder,omitempty"`
	PublicID  string        `json:"public_id,omitempty"`
	SourceKey string        `json:"-"`
	Status    Status        `json:"status,omitempty"`
	Width     int           `json:"width,omitempty"`
	Height    int           `json:"height,omitempty"`
	Sharpness float64       `json:"sharpness,omitempty"`
	IsBlurry  bool          `json:"is_likely_blurry,omitempty"`
	URLs      URLMap        `json:"urls,omitempty"`
	ErrMsg    StringSlice   `json:"error,omitempty"`
	CreatedAt *time.Time    `json:"created_at,omitempty"`
	UpdatedAt *time.Time    `json:"updated_at,omitempty"`
}

//-------------------

type ListRequest struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Sort  string `form:"sort"`
	Order string `form:"order"`
}

const (
	ByUUID    = "uid"
	ByCreated = "created"
	OrderASC  = "ascend"
	OrderDESC = "descend"
)

// UploadFile - один файл из multipart-формы до валидации
type UploadFile struct {
	File        multipart.File
	ContentType string
	Size        int64
}

// BatchCreateData - сырой батч от хендлера: файлы плюс опции размещения
type BatchCreateData struct {
	Folder         string
	PublicIDPrefix string
	Files          []UploadFile
}

// BatchCreateResult - ответ по одному файлу батча: либо созданная задача, либо причины отказа
type BatchCreateResult struct {
	Photo   *Photo   `json:"photo,omitempty"`
	Reasons []string `json:"reasons,omitempty"`
}

// ------------------

var (
	ErrCommon500       error = errors.New("something went wrong. Try again later")  // 500
	ErrIncorrectQuery  error = errors.New("incorrect query parameters")             // 400
	ErrIncorrectID     error = errors.New("incorrect photo UUID")                   // 400
	ErrPhotoNotFound   error = errors.New("specified photo UUID doesn't exist")     // 404
	ErrResultNotReady  error = errors.New("requested photo is not processed yet")   // 404
	ErrNoFilesAttached error = errors.New("at least one photo file is required")    // 400
	ErrIncorrectStatus error = errors.New("incorrect status provided")              // 400

	// Таксономия ошибок пайплайна
	ErrInvalidInput      error = errors.New("invalid input image")       // не ретраим, причины в отчете валидатора
	ErrProcessingFailure error = errors.New("image processing failure")  // не ретраим, падает только это фото
	ErrUploadFailure     error = errors.New("asset upload failure")      // фейлим весь комплект, таймаут считается сюда же
)

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	WEBP = "image/webp"
)

var GetImageFileExt = map[string]string{
	JPEG: ".jpg",
	PNG:  ".png",
	WEBP: ".webp",
}

var InImageTypeMap = map[string]bool{
	JPEG: true,
	PNG:  true,
	WEBP: true,
}

var GetCodecCType = map[Codec]string{
	CodecJPEG: JPEG,
	CodecWebP: WEBP,
}

var GetCodecFileExt = map[Codec]string{
	CodecJPEG: ".jpg",
	CodecWebP: ".webp",
}

//--------------------

type StringSlice []string

func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = []string{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for StringSlice")
	}

	if err := json.Unmarshal(b, s); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to []StringSlice: %w", err)
	}
	return nil
}

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 || s == nil {
		return []byte(`[]`), nil
	}
	res, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal []StringSlice to JSONB: %w", err)
	}

	return res, nil
}

//--------------------

// URLMap - {sizeName: {codec: url}}, хранится в JSONB
type URLMap map[string]map[Codec]string

func (m *URLMap) Scan(value any) error {
	if value == nil {
		*m = URLMap{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("invalid type for URLMap")
	}

	if err := json.Unmarshal(b, m); err != nil {
		return fmt.Errorf("failed to unmarshal JSONB to URLMap: %w", err)
	}
	return nil
}

func (m URLMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return []byte(`{}`), nil
	}
	res, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal URLMap to JSONB: %w", err)
	}

	return res, nil
}
