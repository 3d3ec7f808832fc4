package streams

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/seekersapp2013/ambrosia/app/models"
	"github.com/seekersapp2013/ambrosia/app/repository"
)

// AccessChecker is the entitlement decision consulted for gated streams at
// join time.
type AccessChecker interface {
	HasAccess(userID uint, contentType string, contentID uint) (bool, error)
}

// RoomCreator provisions a room on the media transport. Optional; a nil
// creator means rooms are created lazily by the transport on first join.
type RoomCreator interface {
	CreateRoom(ctx context.Context, roomName string) error
}

// Archiver schedules recording finalization after a stream ends.
type Archiver interface {
	Enqueue(streamID uint, egressID string) error
}

// CreateStreamInput carries the author-supplied stream configuration.
type CreateStreamInput struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	IsSensitive bool     `json:"is_sensitive"`
	IsGated     bool     `json:"is_gated"`
	PriceToken  string   `json:"price_token" validate:"required_if=IsGated true"`
	PriceAmount float64  `json:"price_amount" validate:"omitempty,gt=0"`
}

// Validate checks the input against its struct tags.
func (in *CreateStreamInput) Validate() error {
	v := validator.New()

	return v.Struct(in)
}

// Registry owns the stream lifecycle and its counters. It is the only
// writer of LiveStream.Status, ViewerCount and MaxViewers. Join and leave
// for one stream are serialized through a per-stream lock; different
// streams proceed fully in parallel.
type Registry struct {
	repo   repository.StreamRepository
	users  repository.UserRepository
	access AccessChecker
	rooms  RoomCreator
	arch   Archiver
	events *Broadcaster

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

// NewRegistry creates a registry. rooms and arch may be nil.
func NewRegistry(repo repository.StreamRepository, users repository.UserRepository, access AccessChecker, rooms RoomCreator, arch Archiver) *Registry {
	return &Registry{
		repo:   repo,
		users:  users,
		access: access,
		rooms:  rooms,
		arch:   arch,
		events: NewBroadcaster(),
		locks:  make(map[uint]*sync.Mutex),
	}
}

// Events returns the broadcaster publishing stream state changes.
func (r *Registry) Events() *Broadcaster {
	return r.events
}

func (r *Registry) lockFor(streamID uint) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[streamID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[streamID] = l
	}
	return l
}

func (r *Registry) resolve(streamID uint) (*models.LiveStream, error) {
	stream, err := r.repo.GetByID(streamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return stream, nil
}

func (r *Registry) publish(stream *models.LiveStream) {
	r.events.Publish(Event{
		StreamID:    stream.ID,
		Status:      stream.Status,
		ViewerCount: stream.ViewerCount,
		MaxViewers:  stream.MaxViewers,
		At:          time.Now(),
	})
}

// CreateSession allocates a new stream in the preparing state with a room
// name unique per author and creation time.
func (r *Registry) CreateSession(authorID uint, in CreateStreamInput) (*models.LiveStream, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	sellerAddress := ""
	if in.IsGated {
		if user, err := r.users.GetByID(authorID); err == nil {
			sellerAddress = user.WalletAddress
		}
	}

	stream := &models.LiveStream{
		AuthorID:      authorID,
		Title:         in.Title,
		Description:   in.Description,
		RoomName:      fmt.Sprintf("stream_%d_%d_%s", authorID, time.Now().UnixMilli(), uuid.NewString()[:8]),
		Status:        models.StreamStatusPreparing,
		Tags:          strings.Join(in.Tags, ","),
		IsSensitive:   in.IsSensitive,
		IsGated:       in.IsGated,
		PriceToken:    in.PriceToken,
		PriceAmount:   in.PriceAmount,
		SellerAddress: sellerAddress,
	}
	if err := r.repo.Create(stream); err != nil {
		return nil, err
	}

	r.publish(stream)
	return stream, nil
}

// GetSession returns the stream record.
func (r *Registry) GetSession(streamID uint) (*models.LiveStream, error) {
	return r.resolve(streamID)
}

// ListActive returns live streams, newest first.
func (r *Registry) ListActive(limit int) ([]models.LiveStream, error) {
	if limit <= 0 {
		limit = 20
	}
	return r.repo.ListByStatus(models.StreamStatusLive, limit)
}

// ListAll returns streams in any state, newest first.
func (r *Registry) ListAll(limit int) ([]models.LiveStream, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.repo.List(limit)
}

// ListByAuthor returns all streams created by one author.
func (r *Registry) ListByAuthor(authorID uint) ([]models.LiveStream, error) {
	return r.repo.ListByAuthor(authorID)
}

// StartSession transitions preparing -> live. Author only.
func (r *Registry) StartSession(ctx context.Context, streamID, callerID uint) (*models.LiveStream, error) {
	lock := r.lockFor(streamID)
	lock.Lock()
	defer lock.Unlock()

	stream, err := r.resolve(streamID)
	if err != nil {
		return nil, err
	}
	if stream.AuthorID != callerID {
		return nil, ErrNotAuthorized
	}
	if stream.Status != models.StreamStatusPreparing {
		return nil, ErrInvalidState
	}

	if r.rooms != nil {
		if err := r.rooms.CreateRoom(ctx, stream.RoomName); err != nil {
			log.Warnf("[Streams] Room creation for %s failed: %v", stream.RoomName, err)
		}
	}

	now := time.Now()
	if err := r.repo.UpdateFields(stream.ID, map[string]interface{}{
		"status":     models.StreamStatusLive,
		"started_at": &now,
	}); err != nil {
		return nil, err
	}
	stream.Status = models.StreamStatusLive
	stream.StartedAt = &now

	r.publish(stream)
	return stream, nil
}

// JoinSession admits a participant. Viewers require a live stream and, for
// gated streams, a passing entitlement check; the counter increment and the
// participant row are one transaction. Broadcasters are admitted to their
// own stream while it is preparing or live without touching the counter.
func (r *Registry) JoinSession(streamID, callerID uint, role string) (*models.LiveStream, error) {
	lock := r.lockFor(streamID)
	lock.Lock()
	defer lock.Unlock()

	stream, err := r.resolve(streamID)
	if err != nil {
		return nil, err
	}

	switch role {
	case models.ParticipantRoleBroadcaster:
		if stream.AuthorID != callerID {
			return nil, ErrNotAuthorized
		}
		if stream.IsTerminal() {
			return nil, ErrInvalidState
		}
		if err := r.repo.RecordJoin(streamID, callerID, role, false); err != nil {
			if errors.Is(err, repository.ErrAlreadyJoined) {
				return nil, ErrAlreadyJoined
			}
			return nil, err
		}
		return stream, nil

	case models.ParticipantRoleViewer:
		if stream.Status != models.StreamStatusLive {
			return nil, ErrInvalidState
		}
		if stream.IsGated {
			ok, err := r.access.HasAccess(callerID, models.ContentTypeLiveStream, streamID)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ErrAccessDenied
			}
		}
		if err := r.repo.RecordJoin(streamID, callerID, role, true); err != nil {
			if errors.Is(err, repository.ErrAlreadyJoined) {
				return nil, ErrAlreadyJoined
			}
			return nil, err
		}

		stream, err = r.resolve(streamID)
		if err != nil {
			return nil, err
		}
		r.publish(stream)
		return stream, nil

	default:
		return nil, fmt.Errorf("unknown participant role %q", role)
	}
}

// LeaveSession closes the caller's open participant record and decrements
// the viewer counter. A duplicate leave is a no-op.
func (r *Registry) LeaveSession(streamID, callerID uint) (*models.LiveStream, error) {
	lock := r.lockFor(streamID)
	lock.Lock()
	defer lock.Unlock()

	stream, err := r.resolve(streamID)
	if err != nil {
		return nil, err
	}

	closed, err := r.repo.RecordLeave(streamID, callerID)
	if err != nil {
		return nil, err
	}
	if !closed {
		return stream, nil
	}

	stream, err = r.resolve(streamID)
	if err != nil {
		return nil, err
	}
	r.publish(stream)
	return stream, nil
}

// StopSession transitions to ended. Author only; terminal states cannot be
// stopped again. With archive set, recording finalization is scheduled and
// RecordingURL is written once it becomes available.
func (r *Registry) StopSession(streamID, callerID uint, archive bool) (*models.LiveStream, error) {
	lock := r.lockFor(streamID)
	lock.Lock()
	defer lock.Unlock()

	stream, err := r.resolve(streamID)
	if err != nil {
		return nil, err
	}
	if stream.AuthorID != callerID {
		return nil, ErrNotAuthorized
	}
	if stream.IsTerminal() {
		return nil, ErrInvalidState
	}

	now := time.Now()
	if err := r.repo.UpdateFields(stream.ID, map[string]interface{}{
		"status":   models.StreamStatusEnded,
		"ended_at": &now,
	}); err != nil {
		return nil, err
	}
	stream.Status = models.StreamStatusEnded
	stream.EndedAt = &now

	if archive && r.arch != nil && stream.EgressID != "" {
		if err := r.arch.Enqueue(stream.ID, stream.EgressID); err != nil {
			log.Errorf("[Streams] Failed to schedule recording finalization for stream %d: %v", stream.ID, err)
		}
	}

	r.publish(stream)
	return stream, nil
}

// ReportFailure marks a stream as failed after an unrecoverable transport
// error. Terminal states are left untouched.
func (r *Registry) ReportFailure(streamID uint, cause error) error {
	lock := r.lockFor(streamID)
	lock.Lock()
	defer lock.Unlock()

	stream, err := r.resolve(streamID)
	if err != nil {
		return err
	}
	if stream.IsTerminal() {
		return nil
	}

	log.Errorf("[Streams] Stream %d failed: %v", streamID, cause)

	now := time.Now()
	if err := r.repo.UpdateFields(stream.ID, map[string]interface{}{
		"status":   models.StreamStatusError,
		"ended_at": &now,
	}); err != nil {
		return err
	}
	stream.Status = models.StreamStatusError
	stream.EndedAt = &now

	r.publish(stream)
	return nil
}

// SetEgress stores the egress id handed out by the media transport when
// recording starts.
func (r *Registry) SetEgress(streamID uint, egressID string) error {
	return r.repo.UpdateFields(streamID, map[string]interface{}{"egress_id": egressID})
}
