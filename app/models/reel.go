package models

import (
	"time"

	"gorm.io/gorm"
)

// Reel mirrors the gating metadata of a short video. Media storage and
// playback are handled by the content service; archived live streams get a
// reel row pointing at the recording.
type Reel struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	AuthorID      uint           `gorm:"not null;index" json:"author_id"`
	Author        User           `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Title         string         `gorm:"type:varchar(255);not null" json:"title"`
	VideoURL      string         `gorm:"type:varchar(512)" json:"video_url,omitempty"`
	IsGated       bool           `gorm:"default:false;index" json:"is_gated"`
	PriceToken    string         `gorm:"type:varchar(20)" json:"price_token,omitempty"`
	PriceAmount   float64        `json:"price_amount,omitempty"`
	SellerAddress string         `gorm:"type:varchar(191)" json:"seller_address,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}
