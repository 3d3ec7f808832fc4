package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	StreamStatusPreparing = "preparing"
	StreamStatusLive      = "live"
	StreamStatusEnded     = "ended"
	StreamStatusError     = "error"
)

const (
	ContentTypeArticle    = "article"
	ContentTypeReel       = "reel"
	ContentTypeLiveStream = "liveStream"
)

// LiveStream is the broadcast room record. Status transitions are owned by
// the stream registry; preparing -> live -> ended/error, terminal states are
// never left again. RecordingURL is the only field written after a stream
// reaches a terminal state, and it is written exactly once.
type LiveStream struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	AuthorID    uint       `gorm:"not null;index" json:"author_id"`
	Author      User       `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title" validate:"required"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	RoomName    string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"room_name"`
	Status      string     `gorm:"type:varchar(16);not null;default:'preparing';index" json:"status"`
	StartedAt   *time.Time `gorm:"type:timestamp;default:null" json:"started_at,omitempty"`
	EndedAt     *time.Time `gorm:"type:timestamp;default:null" json:"ended_at,omitempty"`

	ViewerCount int   `gorm:"not null;default:0" json:"viewer_count"`
	MaxViewers  int   `gorm:"not null;default:0" json:"max_viewers"`
	TotalJoins  int64 `gorm:"not null;default:0" json:"total_joins"`

	Tags        string `gorm:"type:varchar(500)" json:"tags,omitempty"` // comma separated
	IsSensitive bool   `gorm:"default:false" json:"is_sensitive"`

	IsGated       bool    `gorm:"default:false;index" json:"is_gated"`
	PriceToken    string  `gorm:"type:varchar(20)" json:"price_token,omitempty"`
	PriceAmount   float64 `json:"price_amount,omitempty"`
	SellerAddress string  `gorm:"type:varchar(191)" json:"seller_address,omitempty"`

	RecordingURL string `gorm:"type:varchar(512)" json:"recording_url,omitempty"`
	EgressID     string `gorm:"type:varchar(191)" json:"-"`

	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsTerminal reports whether the stream reached a final lifecycle state.
func (s *LiveStream) IsTerminal() bool {
	return s.Status == StreamStatusEnded || s.Status == StreamStatusError
}
