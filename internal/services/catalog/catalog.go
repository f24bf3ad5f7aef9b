// Package catalog implements the catalog store, the view/edit access
// gateway and the product CRUD operations.
//
// A catalog is addressed by one opaque id with two access modes. The edit
// link is a capability URL: possession of the id plus the edit flag is the
// entire access-control mechanism, there is no ownership check beyond it.
// That is a documented product decision, not an oversight.
package catalog

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/linkshop/catalogo/internal/lib/sl"
	"github.com/linkshop/catalogo/internal/models"
	"github.com/linkshop/catalogo/internal/storage/repository"
)

// ErrNotFound is returned for an edit-mode miss. View-mode misses never
// error, they resolve to the sample catalog.
var ErrNotFound = errors.New("catalog not found")

// ErrProductNotFound is returned by UpdateProduct for an unknown product id.
var ErrProductNotFound = errors.New("product not found")

// ErrProductLimit is returned when a free-tier catalog already holds its one
// allowed product. The message is user-facing upsell copy, not a bug.
var ErrProductLimit = errors.New("free plan allows only 1 product")

// ErrPremiumRequired is returned when a premium-only feature is used by a
// free-tier account.
var ErrPremiumRequired = errors.New("premium subscription required")

// ErrInvalidWallpaper is returned when the wallpaper reference is not an
// image or exceeds the size cap.
var ErrInvalidWallpaper = errors.New("invalid wallpaper")

// maxWallpaperBytes caps inline data-URL wallpapers at 5MB decoded.
const maxWallpaperBytes = 5 << 20

const cacheTTL = time.Hour

// Repository is the persistence contract of the catalog store.
type Repository interface {
	GetCatalog(ctx context.Context, id string) (*models.Catalog, error)
	GetCatalogByOwner(ctx context.Context, userUID string) (*models.Catalog, error)
	CreateCatalog(ctx context.Context, catalog models.Catalog) error
	SaveCatalog(ctx context.Context, catalog models.Catalog) error
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// EntitlementGate answers whether the owning account holds premium.
type EntitlementGate interface {
	Entitled(ctx context.Context, email string) (bool, error)
}

// Cache holds resolved catalogs between reads.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// HeadClient probes remote wallpaper URLs for their content type.
// *http.Client satisfies it.
type HeadClient interface {
	Head(url string) (*http.Response, error)
}

// Service implements the catalog operations.
type Service struct {
	repo       Repository
	gate       EntitlementGate
	cache      Cache
	headClient HeadClient
	log        *slog.Logger
}

// New creates the catalog service.
func New(repo Repository, gate EntitlementGate, cache Cache, headClient HeadClient, log *slog.Logger) *Service {
	if headClient == nil {
		headClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Service{
		repo:       repo,
		gate:       gate,
		cache:      cache,
		headClient: headClient,
		log:        log,
	}
}

// SampleCatalog returns the read-only placeholder shown for view links that
// reference no stored catalog. Example links must never dead-end.
func SampleCatalog(id string) *models.Catalog {
	wallpaper := "https://images.unsplash.com/photo-1506744038136-46273834b3fb"
	return &models.Catalog{
		ID:           id,
		WallpaperURL: &wallpaper,
		Products: []models.Product{
			{
				ID:          "product_1",
				Name:        "Produto Exemplo",
				Description: "Este é um produto de demonstração para o plano gratuito.",
				ImageURL:    "https://images.unsplash.com/photo-1505740420928-5e560c06d30e",
				RedirectURL: "https://example.com/product",
			},
		},
	}
}

// Resolve returns the catalog behind id. In view mode a miss resolves to the
// sample catalog; in edit mode a miss is ErrNotFound, an edit link must
// reference a real catalog.
func (s *Service) Resolve(ctx context.Context, id string, editMode bool) (*models.Catalog, error) {
	const op = "catalog.Resolve"

	var cached models.Catalog
	cacheKey := "catalog:" + id
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("cache read failed", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	result, err := s.repo.GetCatalog(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		if editMode {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return SampleCatalog(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.Set(cacheKey, result, cacheTTL); err != nil {
		s.log.Warn("failed to cache catalog", slog.String("key", cacheKey), sl.Err(err))
	}
	return result, nil
}

// LoadOwn returns the account's own catalog, creating it on first access.
// New catalogs are seeded with the sample content so a fresh account has
// something to share immediately.
func (s *Service) LoadOwn(ctx context.Context, userUID string) (*models.Catalog, error) {
	const op = "catalog.LoadOwn"

	result, err := s.repo.GetCatalogByOwner(ctx, userUID)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	seeded := SampleCatalog("catalog_" + userUID)
	seeded.UserUID = userUID
	if err := s.repo.CreateCatalog(ctx, *seeded); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.repo.GetCatalogByOwner(ctx, userUID)
}

// AddProduct appends a product to the catalog. Free-tier catalogs hold at
// most one product; the check happens at this write boundary only, existing
// products are never pruned when premium lapses.
func (s *Service) AddProduct(ctx context.Context, catalogID string, draft models.DummyProduct) (*models.Product, error) {
	const op = "catalog.AddProduct"

	cat, err := s.editResolve(ctx, catalogID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(cat.Products) >= 1 {
		entitled, err := s.ownerEntitled(ctx, cat.UserUID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !entitled {
			return nil, fmt.Errorf("%s: %w", op, ErrProductLimit)
		}
	}

	product := models.Product{
		ID:          "product_" + uuid.New().String(),
		Name:        draft.Name,
		Description: draft.Description,
		ImageURL:    draft.ImageURL,
		RedirectURL: draft.RedirectURL,
	}
	cat.Products = append(cat.Products, product)

	if err := s.save(ctx, cat); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &product, nil
}

// UpdateProduct merges the non-empty patch fields into the product matched
// by id. An unknown id is reported as ErrProductNotFound.
func (s *Service) UpdateProduct(ctx context.Context, catalogID, productID string, patch models.DummyProductPatch) (*models.Product, error) {
	const op = "catalog.UpdateProduct"

	cat, err := s.editResolve(ctx, catalogID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	idx := -1
	for i := range cat.Products {
		if cat.Products[i].ID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrProductNotFound)
	}

	p := &cat.Products[idx]
	if patch.Name != "" {
		p.Name = patch.Name
	}
	if patch.Description != "" {
		p.Description = patch.Description
	}
	if patch.ImageURL != "" {
		p.ImageURL = patch.ImageURL
	}
	if patch.RedirectURL != "" {
		p.RedirectURL = patch.RedirectURL
	}

	if err := s.save(ctx, cat); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	updated := *p
	return &updated, nil
}

// RemoveProduct filters the product out by id. Removing an id that is not
// present is a no-op, not an error.
func (s *Service) RemoveProduct(ctx context.Context, catalogID, productID string) error {
	const op = "catalog.RemoveProduct"

	cat, err := s.editResolve(ctx, catalogID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	filtered := cat.Products[:0]
	removed := false
	for _, p := range cat.Products {
		if p.ID == productID {
			removed = true
			continue
		}
		filtered = append(filtered, p)
	}
	if !removed {
		return nil
	}
	cat.Products = filtered

	if err := s.save(ctx, cat); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetWallpaper stores the wallpaper reference. Premium only. Accepts a
// remote URL whose content type probes as an image, or an image data-URL up
// to 5MB decoded.
func (s *Service) SetWallpaper(ctx context.Context, catalogID, url string) error {
	const op = "catalog.SetWallpaper"

	cat, err := s.editResolve(ctx, catalogID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	entitled, err := s.ownerEntitled(ctx, cat.UserUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !entitled {
		return fmt.Errorf("%s: %w", op, ErrPremiumRequired)
	}

	if err := s.validateWallpaper(url); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	cat.WallpaperURL = &url
	if err := s.save(ctx, cat); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) editResolve(ctx context.Context, catalogID string) (*models.Catalog, error) {
	cat, err := s.repo.GetCatalog(ctx, catalogID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return cat, nil
}

func (s *Service) ownerEntitled(ctx context.Context, userUID string) (bool, error) {
	if userUID == "" {
		return false, nil
	}
	owner, err := s.repo.GetUser(ctx, userUID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.gate.Entitled(ctx, owner.Email)
}

// save writes the whole document back and drops the cached copy. The write
// is guarded by the optimistic version check in the repository; a lost race
// surfaces as repository.ErrVersionConflict and is retryable by the caller.
func (s *Service) save(ctx context.Context, cat *models.Catalog) error {
	if err := s.repo.SaveCatalog(ctx, *cat); err != nil {
		return err
	}
	cacheKey := "catalog:" + cat.ID
	if err := s.cache.Invalidate(cacheKey); err != nil {
		s.log.Warn("failed to invalidate cache", slog.String("key", cacheKey), sl.Err(err))
	}
	return nil
}

func (s *Service) validateWallpaper(url string) error {
	if strings.HasPrefix(url, "data:") {
		rest, ok := strings.CutPrefix(url, "data:image/")
		if !ok {
			return ErrInvalidWallpaper
		}
		payload := rest
		if i := strings.Index(rest, ","); i >= 0 {
			payload = rest[i+1:]
		}
		if base64.StdEncoding.DecodedLen(len(payload)) > maxWallpaperBytes {
			return ErrInvalidWallpaper
		}
		return nil
	}

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return ErrInvalidWallpaper
	}
	resp, err := s.headClient.Head(url)
	if err != nil {
		return ErrInvalidWallpaper
	}
	defer resp.Body.Close()
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return ErrInvalidWallpaper
	}
	return nil
}
