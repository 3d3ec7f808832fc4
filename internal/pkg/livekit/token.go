package livekit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seekersapp2013/ambrosia/internal/pkg/env"
)

// VideoGrant scopes what a token holder may do inside one room. Tokens are
// minted per connection and never stored or reused; the token is the
// capability, not the authorization record.
type VideoGrant struct {
	Room           string `json:"room"`
	RoomJoin       bool   `json:"roomJoin"`
	RoomCreate     bool   `json:"roomCreate,omitempty"`
	RoomRecord     bool   `json:"roomRecord,omitempty"`
	CanPublish     bool   `json:"canPublish"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublishData bool   `json:"canPublishData"`
}

// Claims is the JWT payload understood by the room server.
type Claims struct {
	Issuer    string     `json:"iss"`
	Subject   string     `json:"sub"`
	Name      string     `json:"name,omitempty"`
	NotBefore int64      `json:"nbf"`
	ExpiresAt int64      `json:"exp"`
	Video     VideoGrant `json:"video"`
}

// BroadcasterGrant returns the grant set for the room owner.
func BroadcasterGrant(room string) VideoGrant {
	return VideoGrant{
		Room:           room,
		RoomJoin:       true,
		CanPublish:     true,
		CanSubscribe:   true,
		CanPublishData: true,
	}
}

// ViewerGrant returns the grant set for a paying or admitted viewer.
func ViewerGrant(room string) VideoGrant {
	return VideoGrant{
		Room:           room,
		RoomJoin:       true,
		CanPublish:     false,
		CanSubscribe:   true,
		CanPublishData: true,
	}
}

// Signer mints and verifies HMAC-SHA256 signed room tokens.
type Signer struct {
	apiKey    string
	apiSecret string
}

// NewSigner creates a signer from explicit credentials.
func NewSigner(apiKey, apiSecret string) *Signer {
	return &Signer{apiKey: apiKey, apiSecret: apiSecret}
}

// NewSignerFromEnv creates a signer from LIVEKIT_API_KEY / LIVEKIT_API_SECRET.
func NewSignerFromEnv() *Signer {
	return NewSigner(
		strings.TrimSpace(env.GetEnv("LIVEKIT_API_KEY", "")),
		strings.TrimSpace(env.GetEnv("LIVEKIT_API_SECRET", "")),
	)
}

// Ready reports whether credentials are configured.
func (s *Signer) Ready() error {
	if s.apiKey == "" || s.apiSecret == "" {
		return errors.New("room server credentials are not configured")
	}
	return nil
}

func (s *Signer) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(s.apiSecret))
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Mint creates a signed token for one identity in one room.
func (s *Signer) Mint(identity, name string, grant VideoGrant, ttl time.Duration) (string, error) {
	if err := s.Ready(); err != nil {
		return "", err
	}
	if identity == "" {
		return "", errors.New("identity is required")
	}
	if grant.Room == "" && !grant.RoomCreate {
		return "", errors.New("grant must name a room")
	}

	now := time.Now()
	claims := Claims{
		Issuer:    s.apiKey,
		Subject:   identity,
		Name:      name,
		NotBefore: now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
		Video:     grant,
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body := base64.RawURLEncoding.EncodeToString(payload)
	signature := s.sign(header + "." + body)
	return fmt.Sprintf("%s.%s.%s", header, body, signature), nil
}

// Verify checks the signature and expiry and returns the claims.
func (s *Signer) Verify(token string) (*Claims, error) {
	if err := s.Ready(); err != nil {
		return nil, err
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errors.New("invalid token format")
	}

	expected := s.sign(parts[0] + "." + parts[1])
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return nil, errors.New("invalid token signature")
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, errors.New("invalid token payload")
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, errors.New("invalid token claims")
	}
	if claims.ExpiresAt < time.Now().Unix() {
		return nil, errors.New("token expired")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no identity")
	}
	return &claims, nil
}
