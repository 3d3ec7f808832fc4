package livekit

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/seekersapp2013/ambrosia/app/models"
	"github.com/seekersapp2013/ambrosia/app/repository"
	"github.com/seekersapp2013/ambrosia/internal/pkg/streams"
)

// stubStreamRepo serves a single live stream and tracks joins/leaves.
type stubStreamRepo struct {
	stream models.LiveStream
	open   map[uint]bool
}

func (s *stubStreamRepo) Create(*models.LiveStream) error { return nil }

func (s *stubStreamRepo) GetByID(id uint) (*models.LiveStream, error) {
	if id != s.stream.ID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := s.stream
	return &cp, nil
}

func (s *stubStreamRepo) Update(*models.LiveStream) error                  { return nil }
func (s *stubStreamRepo) UpdateFields(uint, map[string]interface{}) error  { return nil }
func (s *stubStreamRepo) List(int) ([]models.LiveStream, error)            { return nil, nil }
func (s *stubStreamRepo) ListByStatus(string, int) ([]models.LiveStream, error) {
	return nil, nil
}
func (s *stubStreamRepo) ListByAuthor(uint) ([]models.LiveStream, error) { return nil, nil }

func (s *stubStreamRepo) RecordJoin(streamID, userID uint, role string, countViewer bool) error {
	if s.open[userID] {
		return repository.ErrAlreadyJoined
	}
	s.open[userID] = true
	if countViewer {
		s.stream.ViewerCount++
	}
	return nil
}

func (s *stubStreamRepo) RecordLeave(streamID, userID uint) (bool, error) {
	if !s.open[userID] {
		return false, nil
	}
	delete(s.open, userID)
	s.stream.ViewerCount--
	return true, nil
}

func (s *stubStreamRepo) GetOpenParticipant(uint, uint) (*models.LiveStreamParticipant, error) {
	return nil, gorm.ErrRecordNotFound
}
func (s *stubStreamRepo) ListParticipants(uint) ([]models.LiveStreamParticipant, error) {
	return nil, nil
}
func (s *stubStreamRepo) SetRecordingURL(uint, string) error   { return nil }
func (s *stubStreamRepo) AddJoinTotals(map[uint]int64) error   { return nil }
func (s *stubStreamRepo) AggregateMetrics() (*repository.StreamAggregates, error) {
	return &repository.StreamAggregates{}, nil
}

type stubUserRepo struct{ users map[uint]*models.User }

func (s *stubUserRepo) Create(*models.User) error { return nil }
func (s *stubUserRepo) GetByID(id uint) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}
func (s *stubUserRepo) GetByUsername(string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

type allowAll struct{}

func (allowAll) HasAccess(uint, string, uint) (bool, error) { return true, nil }

func newTestIssuer(t *testing.T, gated bool) (*Issuer, *stubStreamRepo) {
	t.Helper()
	repo := &stubStreamRepo{
		stream: models.LiveStream{
			ID: 1, AuthorID: 1, RoomName: "stream_1_1_abcd",
			Status: models.StreamStatusLive, IsGated: gated,
		},
		open: map[uint]bool{},
	}
	users := &stubUserRepo{users: map[uint]*models.User{
		1: {ID: 1, Name: "Alice"},
		2: {ID: 2, Username: "bob"},
	}}
	registry := streams.NewRegistry(repo, users, allowAll{}, nil, nil)
	signer := NewSigner("api-key", "api-secret")
	return NewIssuer(registry, signer, users, time.Hour), repo
}

func TestIssueTokenViewer(t *testing.T) {
	issuer, repo := newTestIssuer(t, false)

	issued, err := issuer.IssueToken(1, 2, models.ParticipantRoleViewer)
	require.NoError(t, err)

	assert.Equal(t, "stream_1_1_abcd", issued.RoomName)
	assert.True(t, issued.ExpiresAt.After(time.Now()))
	assert.Equal(t, 1, repo.stream.ViewerCount, "token issuance is the join")

	claims, err := NewSigner("api-key", "api-secret").Verify(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatUint(2, 10), claims.Subject)
	assert.Equal(t, "bob", claims.Name, "falls back to the username")
	assert.False(t, claims.Video.CanPublish)
}

func TestIssueTokenBroadcaster(t *testing.T) {
	issuer, repo := newTestIssuer(t, false)

	issued, err := issuer.IssueToken(1, 1, models.ParticipantRoleBroadcaster)
	require.NoError(t, err)
	assert.Equal(t, 0, repo.stream.ViewerCount, "broadcaster does not count as viewer")

	claims, err := NewSigner("api-key", "api-secret").Verify(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "Alice", claims.Name)
	assert.True(t, claims.Video.CanPublish)
}

func TestIssueTokenBroadcasterRequiresAuthor(t *testing.T) {
	issuer, _ := newTestIssuer(t, false)

	_, err := issuer.IssueToken(1, 2, models.ParticipantRoleBroadcaster)
	assert.ErrorIs(t, err, streams.ErrNotAuthorized)
}

func TestIssueTokenUnknownRole(t *testing.T) {
	issuer, repo := newTestIssuer(t, false)

	_, err := issuer.IssueToken(1, 2, "moderator")
	assert.Error(t, err)
	assert.Empty(t, repo.open, "no join on a rejected role")
}

func TestIssueTokenDuplicateJoin(t *testing.T) {
	issuer, _ := newTestIssuer(t, false)

	_, err := issuer.IssueToken(1, 2, models.ParticipantRoleViewer)
	require.NoError(t, err)

	_, err = issuer.IssueToken(1, 2, models.ParticipantRoleViewer)
	assert.ErrorIs(t, err, streams.ErrAlreadyJoined)
}

func TestIssueTokenUnknownUserGetsAnonymousName(t *testing.T) {
	issuer, _ := newTestIssuer(t, false)

	issued, err := issuer.IssueToken(1, 99, models.ParticipantRoleViewer)
	require.NoError(t, err)

	claims, err := NewSigner("api-key", "api-secret").Verify(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", claims.Name)
}

func TestIssueTokenWithoutCredentials(t *testing.T) {
	issuer, repo := newTestIssuer(t, false)
	issuer.signer = NewSigner("", "")

	_, err := issuer.IssueToken(1, 2, models.ParticipantRoleViewer)
	assert.Error(t, err)
	assert.Empty(t, repo.open, "no join without a working signer")
}
