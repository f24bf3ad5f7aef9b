package models

import "time"

// Product is a single entry of a catalog. Products live inside the owning
// catalog document and are never stored on their own.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	RedirectURL string `json:"redirectUrl"`
}

// Catalog is the whole-document record for one account: a background
// wallpaper plus the ordered product list. Insertion order is display order.
// Version is the optimistic-concurrency token checked on every save.
type Catalog struct {
	ID           string    `json:"id"`
	UserUID      string    `json:"userUid"`
	WallpaperURL *string   `json:"wallpaperUrl"`
	Products     []Product `json:"products"`
	Version      int       `json:"version"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// DummyProduct carries the JSON body of a product create request before it
// is converted into a Product with a generated id.
type DummyProduct struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
	RedirectURL string `json:"redirect_url" validate:"required,url"`
}

// DummyProductPatch carries a partial update. Empty fields are left
// untouched on merge.
type DummyProductPatch struct {
	Name        string `json:"name" validate:"omitempty,max=120"`
	Description string `json:"description" validate:"omitempty,max=500"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
	RedirectURL string `json:"redirect_url" validate:"omitempty,url"`
}
