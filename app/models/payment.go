package models

import (
	"time"
)

// Payment is an append-only purchase record for gated content. The unique
// index over (payer, content type, content id) is what makes a second
// purchase of the same content fail, including under concurrent requests.
// TxHash is stored as supplied by the client; chain verification is an
// explicit external trust boundary.
type Payment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PayerID     uint      `gorm:"not null;index:ux_payments_payer_content,unique,priority:1;index" json:"payer_id"`
	ContentType string    `gorm:"type:varchar(20);not null;index:ux_payments_payer_content,unique,priority:2" json:"content_type" validate:"oneof=article reel liveStream"`
	ContentID   uint      `gorm:"not null;index:ux_payments_payer_content,unique,priority:3;index:idx_payments_content,priority:2" json:"content_id"`
	Token       string    `gorm:"type:varchar(20);not null;index" json:"token"`
	Amount      float64   `gorm:"not null" json:"amount"`
	Network     string    `gorm:"type:varchar(50);not null" json:"network"`
	TxHash      string    `gorm:"type:varchar(191)" json:"tx_hash,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
