package repository

import (
	"github.com/seekersapp2013/ambrosia/app/models"
)

// ContentMeta is the read-only view of a piece of content that gating
// decisions need: who owns it and what it currently costs.
type ContentMeta struct {
	AuthorID      uint
	IsGated       bool
	PriceToken    string
	PriceAmount   float64
	SellerAddress string
}

// StreamAggregates holds platform-wide stream metrics computed in SQL.
type StreamAggregates struct {
	TotalStreams       int64
	LiveStreams        int64
	EndedStreams       int64
	TotalDurationMS    int64
	PeakViewers        int
	UniqueBroadcasters int64
}

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
}

// StreamRepository defines the interface for live stream database operations.
// RecordJoin and RecordLeave are single transactions so the participant row
// and the viewer counter can never diverge.
type StreamRepository interface {
	Create(stream *models.LiveStream) error
	GetByID(id uint) (*models.LiveStream, error)
	Update(stream *models.LiveStream) error
	UpdateFields(id uint, fields map[string]interface{}) error
	List(limit int) ([]models.LiveStream, error)
	ListByStatus(status string, limit int) ([]models.LiveStream, error)
	ListByAuthor(authorID uint) ([]models.LiveStream, error)

	// RecordJoin inserts an open participant row; when countViewer is set it
	// also increments viewer_count and raises max_viewers in the same
	// transaction.
	RecordJoin(streamID, userID uint, role string, countViewer bool) error
	// RecordLeave closes the open participant row for (stream, user) and
	// decrements viewer_count (floored at zero) for viewers. Returns false
	// when no open row existed.
	RecordLeave(streamID, userID uint) (bool, error)
	GetOpenParticipant(streamID, userID uint) (*models.LiveStreamParticipant, error)
	ListParticipants(streamID uint) ([]models.LiveStreamParticipant, error)

	// SetRecordingURL writes the archive location once; it refuses to
	// overwrite an existing value.
	SetRecordingURL(id uint, url string) error
	AddJoinTotals(increments map[uint]int64) error
	AggregateMetrics() (*StreamAggregates, error)
}

// PaymentRepository defines the interface for the append-only payment ledger.
type PaymentRepository interface {
	// CreateIfNotExists appends a payment unless one already exists for the
	// same (payer, content type, content id). Returns false when the row was
	// already present.
	CreateIfNotExists(payment *models.Payment) (bool, error)
	GetByPayerAndContent(payerID uint, contentType string, contentID uint) (*models.Payment, error)
	ListByPayer(payerID uint) ([]models.Payment, error)
	ListForAuthor(authorID uint, limit int) ([]models.Payment, error)
	SumEarningsForAuthor(authorID uint) (map[string]float64, int64, error)
}

// ContentRepository resolves gating metadata across articles, reels and
// live streams, and creates reels from archived streams.
type ContentRepository interface {
	GetMeta(contentType string, contentID uint) (*ContentMeta, error)
	CreateReelFromRecording(stream *models.LiveStream, recordingURL string) (*models.Reel, error)
}

// NotificationRepository defines the interface for notification persistence.
type NotificationRepository interface {
	Create(notification *models.Notification) error
	ListByUser(userID uint, limit int) ([]models.Notification, error)
}
