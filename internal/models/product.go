package models

import "time"

// Product represents a product in the store.
type Product struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Price       int64     `json:"price" gorm:"not null"`
	Description string    `json:"description" gorm:"type:varchar(255);not null"`
	Qty         int64     `json:"qty" gorm:"not null"`
	Image       *string   `json:"image" gorm:"type:varchar(255)"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// ProductInput carries validated request fields onto a Product.
type ProductInput struct {
	Name        string
	Price       int64
	Description string
	Qty         int64
	Image       string
}

// ApplyCreate copies every input field, image included, onto p.
func (p *Product) ApplyCreate(in ProductInput) {
	p.ApplyUpdate(in)
	image := in.Image
	p.Image = &image
}

// ApplyUpdate copies the updatable fields onto p. ID and Image are left alone.
func (p *Product) ApplyUpdate(in ProductInput) {
	p.Name = in.Name
	p.Price = in.Price
	p.Description = in.Description
	p.Qty = in.Qty
}

// ImagePath returns the image reference or an empty string when unset.
func (p *Product) ImagePath() string {
	if p.Image == nil {
		return ""
	}
	return *p.Image
}
