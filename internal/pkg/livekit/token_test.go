package livekit

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintAndVerify(t *testing.T) {
	signer := NewSigner("api-key", "api-secret")

	token, err := signer.Mint("42", "Alice", ViewerGrant("room-1"), time.Minute)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "Alice", claims.Name)
	assert.Equal(t, "api-key", claims.Issuer)
	assert.Equal(t, "room-1", claims.Video.Room)
	assert.False(t, claims.Video.CanPublish)
	assert.True(t, claims.Video.CanSubscribe)
}

func TestMintRequiresIdentityAndRoom(t *testing.T) {
	signer := NewSigner("api-key", "api-secret")

	_, err := signer.Mint("", "", ViewerGrant("room-1"), time.Minute)
	assert.Error(t, err)

	_, err = signer.Mint("42", "", VideoGrant{}, time.Minute)
	assert.Error(t, err)
}

func TestMintWithoutCredentials(t *testing.T) {
	signer := NewSigner("", "")

	_, err := signer.Mint("42", "", ViewerGrant("room-1"), time.Minute)
	assert.Error(t, err)
}

func TestVerifyRejectsTampering(t *testing.T) {
	signer := NewSigner("api-key", "api-secret")
	token, err := signer.Mint("42", "", ViewerGrant("room-1"), time.Minute)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]
	_, err = signer.Verify(tampered)
	assert.Error(t, err)

	other := NewSigner("api-key", "different-secret")
	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	signer := NewSigner("api-key", "api-secret")
	token, err := signer.Mint("42", "", ViewerGrant("room-1"), -time.Minute)
	require.NoError(t, err)

	_, err = signer.Verify(token)
	assert.ErrorContains(t, err, "expired")
}

func TestGrants(t *testing.T) {
	b := BroadcasterGrant("room-1")
	assert.True(t, b.RoomJoin)
	assert.True(t, b.CanPublish)
	assert.True(t, b.CanSubscribe)
	assert.True(t, b.CanPublishData)

	v := ViewerGrant("room-1")
	assert.True(t, v.RoomJoin)
	assert.False(t, v.CanPublish)
	assert.True(t, v.CanSubscribe)
	assert.True(t, v.CanPublishData, "viewers may still use the data channel")
}
