package photopostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/threadcycle/PhotoPipeline/internal/model"
	"github.com/wb-go/wbf/dbpg"
)

type PostgresRepo struct {
	DB *dbpg.DB
}

func (p PostgresRepo) Create(ctx context.Context, n *model.Photo) error {
	query := `INSERT INTO photos (photo_uid, folder, public_id, source_key, status, width, height, sharpness, is_blurry, urls, err_msg, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	return p.DB.QueryRowContext(ctx, query, n.UID, n.Folder, n.PublicID, n.SourceKey, n.Status, n.Width, n.Height, n.Sharpness, n.IsBlurry, n.URLs, n.ErrMsg, n.CreatedAt, n.CreatedAt).Err()
}

func (p PostgresRepo) Get(ctx context.Context, id string) (*model.Photo, error) {
	query := `SELECT photo_uid, folder, public_id, source_key, status, width, height, sharpness, is_blurry, urls, err_msg, created_at, updated_at
	FROM photos
	WHERE photo_uid = $1`
	var photo model.Photo

	err := p.DB.QueryRowContext(ctx, query, id).Scan(&photo.UID,
		&photo.Folder,
		&photo.PublicID,
		&photo.SourceKey,
		&photo.Status,
		&photo.Width,
		&photo.Height,
		&photo.Sharpness,
		&photo.IsBlurry,
		&photo.URLs,
		&photo.ErrMsg,
		&photo.CreatedAt,
		&photo.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, model.ErrPhotoNotFound
		default:
			return nil, err // 500
		}
	}
	return &photo, nil
}

func (p PostgresRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.Photo, error) {
	query := fmt.Sprintf(`SELECT photo_uid, folder, public_id, status, width, height, sharpness, is_blurry, err_msg, created_at, updated_at
	FROM photos
	ORDER BY %s %s
	LIMIT $1
	OFFSET $2`, req.Sort, req.Order)

	offset := (req.Page - 1) * req.Limit

	rows, err := p.DB.QueryContext(ctx, query, req.Limit, offset)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	photos := make([]model.Photo, 0, req.Limit)
	for rows.Next() {
		var photo model.Photo
		if err := rows.Scan(&photo.UID,
			&photo.Folder,
			&photo.PublicID,
			&photo.Status,
			&photo.Width,
			&photo.Height,
			&photo.Sharpness,
			&photo.IsBlurry,
			&photo.ErrMsg,
			&photo.CreatedAt,
			&photo.UpdatedAt); err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return photos, nil
}

func (p PostgresRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM photos
	WHERE photo_uid = $1`

	row := p.DB.QueryRowContext(ctx, query, id)
	if row.Err() != nil {
		switch {
		case errors.Is(row.Err(), sql.ErrNoRows):
			return model.ErrPhotoNotFound // 404
		default:
			return row.Err() // 500
		}
	}
	return nil
}

func (p PostgresRepo) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	query := `UPDATE photos SET status = $1, updated_at = now() WHERE photo_uid = $2`
	row := p.DB.QueryRowContext(ctx, query, newStat, id)

	if row.Err() != nil {
		switch {
		case errors.Is(row.Err(), sql.ErrNoRows):
			return model.ErrPhotoNotFound // 404
		default:
			return row.Err() // 500
		}
	}
	return nil
}

func (p PostgresRepo) SaveResult(ctx context.Context, input *model.Photo) error {
	query := `UPDATE photos SET status = $1, updated_at = $2, urls = $3, sharpness = $4, is_blurry = $5, err_msg = $6 WHERE photo_uid = $7`
	row := p.DB.QueryRowContext(ctx, query, input.Status, input.UpdatedAt, input.URLs, input.Sharpness, input.IsBlurry, input.ErrMsg, input.UID)

	if row.Err() != nil {
		switch {
		case errors.Is(row.Err(), sql.ErrNoRows):
			return model.ErrPhotoNotFound // 404
		default:
			return row.Err() // 500
		}
	}

	return nil
}

func (p PostgresRepo) FetchOrphans(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT photo_uid
	FROM photos
	WHERE status IN ($1, $2)
	AND updated_at < now() - interval '10 minutes'
	LIMIT $3`

	rows, err := p.DB.QueryContext(ctx, query, model.StatusCreated, model.StatusInProgress, limit)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Error while closing *sql.Rows after scanning: %v", err)
		}
	}()

	orphans := make([]string, 0, limit)
	for rows.Next() {
		uid := ""
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		orphans = append(orphans, uid)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return orphans, nil
}
