package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/linkshop/catalogo/internal/models"
)

// CreateCatalog inserts a new catalog document with version 1.
func (s *Storage) CreateCatalog(ctx context.Context, catalog models.Catalog) error {
	const op = "storage.CreateCatalog"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	products, err := json.Marshal(catalog.Products)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO catalogs (id, user_uid, wallpaper_url, products, version, updated_at)
			  VALUES ($1, $2, $3, $4, 1, now())`
	if _, err := s.DB.ExecContext(ctx, query,
		catalog.ID, catalog.UserUID, catalog.WallpaperURL, products); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetCatalog returns the catalog document with the given id.
func (s *Storage) GetCatalog(ctx context.Context, id string) (*models.Catalog, error) {
	const op = "storage.GetCatalog"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, wallpaper_url, products, version, updated_at
			  FROM catalogs
			  WHERE id = $1`
	return s.scanCatalog(s.DB.QueryRowContext(ctx, query, id), op)
}

// GetCatalogByOwner returns the catalog owned by an account.
func (s *Storage) GetCatalogByOwner(ctx context.Context, userUID string) (*models.Catalog, error) {
	const op = "storage.GetCatalogByOwner"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, wallpaper_url, products, version, updated_at
			  FROM catalogs
			  WHERE user_uid = $1`
	return s.scanCatalog(s.DB.QueryRowContext(ctx, query, userUID), op)
}

// SaveCatalog writes the whole catalog document back, guarded by the
// optimistic version check. Returns ErrVersionConflict when a concurrent
// writer got there first.
func (s *Storage) SaveCatalog(ctx context.Context, catalog models.Catalog) error {
	const op = "storage.SaveCatalog"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	products, err := json.Marshal(catalog.Products)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE catalogs
			  SET wallpaper_url = $1,
			      products = $2,
			      version = version + 1,
			      updated_at = now()
			  WHERE id = $3 AND version = $4`
	result, err := s.DB.ExecContext(ctx, query,
		catalog.WallpaperURL, products, catalog.ID, catalog.Version)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrVersionConflict)
	}
	return nil
}

func (s *Storage) scanCatalog(row *sql.Row, op string) (*models.Catalog, error) {
	c := &models.Catalog{}
	var products []byte
	var wallpaper sql.NullString
	if err := row.Scan(&c.ID, &c.UserUID, &wallpaper, &products,
		&c.Version, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if wallpaper.Valid {
		c.WallpaperURL = &wallpaper.String
	}
	if err := json.Unmarshal(products, &c.Products); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if c.Products == nil {
		c.Products = []models.Product{}
	}
	return c, nil
}
