package models

import (
	"time"
)

// Game is a catalog item. Keys holds the unsold activation codes in FIFO
// order; reservation pops the head inside a row-locking transaction.
type Game struct {
	ID          uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description"`
	Price       float64    `json:"price" gorm:"not null"`
	Platform    string     `json:"platform"`
	ImageURL    string     `json:"image_url"`
	Keys        StringList `json:"keys" gorm:"type:jsonb;not null;default:'[]'"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}
