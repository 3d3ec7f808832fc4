package livekit

import (
	"fmt"
	"strconv"
	"time"

	"github.com/seekersapp2013/ambrosia/app/models"
	"github.com/seekersapp2013/ambrosia/app/repository"
	"github.com/seekersapp2013/ambrosia/internal/pkg/streams"
)

// DefaultTokenTTL bounds how long an issued token stays usable. Reconnecting
// clients request a fresh token per attempt.
const DefaultTokenTTL = 4 * time.Hour

// IssuedToken is the result of a successful token request. It exists only in
// this response; nothing is persisted.
type IssuedToken struct {
	Token     string    `json:"token"`
	RoomName  string    `json:"room_name"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issuer mints room-scoped capability tokens. The authorization decision is
// made here, server-side, before the token exists: broadcasters must own the
// stream, viewers of gated streams must pass the entitlement check. The
// participant record is opened in the same call.
type Issuer struct {
	registry *streams.Registry
	signer   *Signer
	users    repository.UserRepository
	ttl      time.Duration
}

// NewIssuer creates a token issuer. A zero ttl falls back to DefaultTokenTTL.
func NewIssuer(registry *streams.Registry, signer *Signer, users repository.UserRepository, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{registry: registry, signer: signer, users: users, ttl: ttl}
}

// IssueToken admits the caller to the stream and returns a fresh token for
// the stream's room. Errors carry the streams sentinel kinds so callers can
// distinguish "pay first" from "not allowed" from "stream over".
func (i *Issuer) IssueToken(streamID, callerID uint, role string) (*IssuedToken, error) {
	if err := i.signer.Ready(); err != nil {
		return nil, err
	}
	if role != models.ParticipantRoleBroadcaster && role != models.ParticipantRoleViewer {
		return nil, fmt.Errorf("unknown participant role %q", role)
	}

	// JoinSession performs the full admission: state check, author check for
	// broadcasters, entitlement check for viewers on gated streams, and the
	// atomic counter-plus-participant update.
	stream, err := i.registry.JoinSession(streamID, callerID, role)
	if err != nil {
		return nil, err
	}

	name := "Anonymous"
	if user, err := i.users.GetByID(callerID); err == nil {
		if user.Name != "" {
			name = user.Name
		} else if user.Username != "" {
			name = user.Username
		}
	}

	grant := ViewerGrant(stream.RoomName)
	if role == models.ParticipantRoleBroadcaster {
		grant = BroadcasterGrant(stream.RoomName)
	}

	token, err := i.signer.Mint(strconv.FormatUint(uint64(callerID), 10), name, grant, i.ttl)
	if err != nil {
		// The join already happened; roll it back so the counter does not
		// drift for a connection that never got a token.
		if _, leaveErr := i.registry.LeaveSession(streamID, callerID); leaveErr != nil {
			return nil, fmt.Errorf("minting failed (%w) and rollback failed: %v", err, leaveErr)
		}
		return nil, err
	}

	return &IssuedToken{
		Token:     token,
		RoomName:  stream.RoomName,
		ExpiresAt: time.Now().Add(i.ttl),
	}, nil
}
