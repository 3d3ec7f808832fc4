package repository

import (
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/seekersapp2013/ambrosia/app/models"
)

// ErrAlreadyJoined is returned when a join would create a second open
// participant row for the same (stream, user).
var ErrAlreadyJoined = errors.New("participant already has an open record for this stream")

type gormStreamRepository struct {
	db *gorm.DB
}

// NewStreamRepository creates a stream repository backed by GORM.
func NewStreamRepository(db *gorm.DB) StreamRepository {
	return &gormStreamRepository{db: db}
}

func (r *gormStreamRepository) Create(stream *models.LiveStream) error {
	return r.db.Create(stream).Error
}

func (r *gormStreamRepository) GetByID(id uint) (*models.LiveStream, error) {
	var stream models.LiveStream
	if err := r.db.First(&stream, id).Error; err != nil {
		return nil, err
	}
	return &stream, nil
}

func (r *gormStreamRepository) Update(stream *models.LiveStream) error {
	return r.db.Save(stream).Error
}

func (r *gormStreamRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.LiveStream{}).Where("id = ?", id).Updates(fields).Error
}

func (r *gormStreamRepository) List(limit int) ([]models.LiveStream, error) {
	var streams []models.LiveStream
	err := r.db.Order("created_at DESC").Limit(limit).Find(&streams).Error
	return streams, err
}

func (r *gormStreamRepository) ListByStatus(status string, limit int) ([]models.LiveStream, error) {
	var streams []models.LiveStream
	err := r.db.Where("status = ?", status).Order("created_at DESC").Limit(limit).Find(&streams).Error
	return streams, err
}

func (r *gormStreamRepository) ListByAuthor(authorID uint) ([]models.LiveStream, error) {
	var streams []models.LiveStream
	err := r.db.Where("author_id = ?", authorID).Order("created_at DESC").Find(&streams).Error
	return streams, err
}

// RecordJoin holds the "one open row per (stream,user)" invariant and keeps
// the viewer counter in lockstep with the participant row. Callers serialize
// per stream, so the check inside the transaction cannot race another join
// for the same stream.
func (r *gormStreamRepository) RecordJoin(streamID, userID uint, role string, countViewer bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var open models.LiveStreamParticipant
		err := tx.Where("stream_id = ? AND user_id = ? AND left_at IS NULL", streamID, userID).
			First(&open).Error
		if err == nil {
			return ErrAlreadyJoined
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		participant := models.LiveStreamParticipant{
			StreamID: streamID,
			UserID:   userID,
			Role:     role,
			JoinedAt: time.Now(),
		}
		if err := tx.Create(&participant).Error; err != nil {
			return err
		}

		if !countViewer {
			return nil
		}
		return tx.Model(&models.LiveStream{}).
			Where("id = ?", streamID).
			Updates(map[string]interface{}{
				"viewer_count": gorm.Expr("viewer_count + 1"),
				"max_viewers":  gorm.Expr("GREATEST(max_viewers, viewer_count + 1)"),
			}).Error
	})
}

// RecordLeave is idempotent: a duplicate leave signal finds no open row and
// changes nothing.
func (r *gormStreamRepository) RecordLeave(streamID, userID uint) (bool, error) {
	closed := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var participant models.LiveStreamParticipant
		err := tx.Where("stream_id = ? AND user_id = ? AND left_at IS NULL", streamID, userID).
			First(&participant).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&participant).Updates(map[string]interface{}{
			"left_at":     &now,
			"duration_ms": now.Sub(participant.JoinedAt).Milliseconds(),
		}).Error; err != nil {
			return err
		}

		if participant.Role == models.ParticipantRoleViewer {
			if err := tx.Model(&models.LiveStream{}).
				Where("id = ?", streamID).
				Update("viewer_count", gorm.Expr("GREATEST(viewer_count - 1, 0)")).Error; err != nil {
				return err
			}
		}
		closed = true
		return nil
	})
	return closed, err
}

func (r *gormStreamRepository) GetOpenParticipant(streamID, userID uint) (*models.LiveStreamParticipant, error) {
	var participant models.LiveStreamParticipant
	err := r.db.Where("stream_id = ? AND user_id = ? AND left_at IS NULL", streamID, userID).
		First(&participant).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func (r *gormStreamRepository) ListParticipants(streamID uint) ([]models.LiveStreamParticipant, error) {
	var participants []models.LiveStreamParticipant
	err := r.db.Where("stream_id = ?", streamID).Order("joined_at ASC").Find(&participants).Error
	return participants, err
}

func (r *gormStreamRepository) SetRecordingURL(id uint, url string) error {
	res := r.db.Model(&models.LiveStream{}).
		Where("id = ? AND (recording_url = '' OR recording_url IS NULL)", id).
		Update("recording_url", url)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("recording url already set")
	}
	return nil
}

// AddJoinTotals applies batched join counters drained from Redis in one
// statement, mirroring the CASE WHEN batching used for view counters.
func (r *gormStreamRepository) AddJoinTotals(increments map[uint]int64) error {
	if len(increments) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(increments))
	for id := range increments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var builder strings.Builder
	args := make([]interface{}, 0, len(ids)*3)
	builder.WriteString("UPDATE live_streams SET total_joins = total_joins + CASE id ")
	for _, id := range ids {
		builder.WriteString(" WHEN ? THEN ?")
		args = append(args, id, increments[id])
	}
	builder.WriteString(" END WHERE id IN (")
	for i, id := range ids {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("?")
		args = append(args, id)
	}
	builder.WriteString(")")

	return r.db.Exec(builder.String(), args...).Error
}

func (r *gormStreamRepository) AggregateMetrics() (*StreamAggregates, error) {
	agg := &StreamAggregates{}

	if err := r.db.Model(&models.LiveStream{}).Count(&agg.TotalStreams).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.LiveStream{}).
		Where("status = ?", models.StreamStatusLive).
		Count(&agg.LiveStreams).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.LiveStream{}).
		Where("status = ?", models.StreamStatusEnded).
		Count(&agg.EndedStreams).Error; err != nil {
		return nil, err
	}

	var durationMS int64
	if err := r.db.Model(&models.LiveStream{}).
		Select("COALESCE(SUM(TIMESTAMPDIFF(MICROSECOND, started_at, ended_at) DIV 1000), 0)").
		Where("status = ? AND started_at IS NOT NULL AND ended_at IS NOT NULL", models.StreamStatusEnded).
		Scan(&durationMS).Error; err != nil {
		return nil, err
	}
	agg.TotalDurationMS = durationMS

	var peak int
	if err := r.db.Model(&models.LiveStream{}).
		Select("COALESCE(MAX(max_viewers), 0)").
		Scan(&peak).Error; err != nil {
		return nil, err
	}
	agg.PeakViewers = peak

	if err := r.db.Model(&models.LiveStream{}).
		Distinct("author_id").
		Count(&agg.UniqueBroadcasters).Error; err != nil {
		return nil, err
	}

	return agg, nil
}
