package models

import (
	"time"
)

const (
	ParticipantRoleBroadcaster = "broadcaster"
	ParticipantRoleViewer      = "viewer"
)

// LiveStreamParticipant records one attendance of a user in a stream.
// At most one open row (LeftAt == nil) may exist per (stream, user); the
// participant tracker serializes joins per stream to hold that invariant.
type LiveStreamParticipant struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	StreamID uint   `gorm:"not null;index:idx_participants_stream_user,priority:1" json:"stream_id"`
	UserID   uint   `gorm:"not null;index:idx_participants_stream_user,priority:2" json:"user_id"`
	Role     string `gorm:"type:varchar(16);not null" json:"role" validate:"oneof=broadcaster viewer"`

	JoinedAt time.Time  `gorm:"not null" json:"joined_at"`
	LeftAt   *time.Time `gorm:"type:timestamp;default:null" json:"left_at,omitempty"`
	// DurationMS wird genau einmal beim Verlassen gesetzt (LeftAt - JoinedAt)
	DurationMS int64 `gorm:"not null;default:0" json:"duration_ms"`
}

// IsOpen reports whether the participant is currently in the room.
func (p *LiveStreamParticipant) IsOpen() bool {
	return p.LeftAt == nil
}
