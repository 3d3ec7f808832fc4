package livekit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/seekersapp2013/ambrosia/internal/pkg/env"
)

// Egress lifecycle states reported by the room server.
const (
	EgressStatusStarting = "EGRESS_STARTING"
	EgressStatusActive   = "EGRESS_ACTIVE"
	EgressStatusEnding   = "EGRESS_ENDING"
	EgressStatusComplete = "EGRESS_COMPLETE"
	EgressStatusFailed   = "EGRESS_FAILED"
	EgressStatusAborted  = "EGRESS_ABORTED"
)

// EgressInfo is the subset of the room server's egress record we consume.
type EgressInfo struct {
	EgressID string `json:"egress_id"`
	RoomName string `json:"room_name"`
	Status   string `json:"status"`
	FileURL  string `json:"file_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RoomServiceClient talks to the media transport's admin API. The transport
// itself (rooms, tracks, media) is an external collaborator; this client
// only provisions rooms and drives recording egress.
type RoomServiceClient struct {
	Host   string
	signer *Signer

	HTTPClient *http.Client
}

// NewRoomServiceClientFromEnv builds a client from LIVEKIT_HOST and the
// shared API credentials.
func NewRoomServiceClientFromEnv() *RoomServiceClient {
	return &RoomServiceClient{
		Host:   strings.TrimRight(env.GetEnv("LIVEKIT_HOST", ""), "/"),
		signer: NewSignerFromEnv(),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *RoomServiceClient) adminToken(room string) (string, error) {
	grant := VideoGrant{Room: room, RoomCreate: true, RoomRecord: true}
	return c.signer.Mint("ambrosia-server", "", grant, 10*time.Minute)
}

func (c *RoomServiceClient) post(ctx context.Context, path, room string, payload, out interface{}) error {
	if c.Host == "" {
		return errors.New("LIVEKIT_HOST is not configured")
	}
	token, err := c.adminToken(room)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Host+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("room server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// CreateRoom provisions the named room ahead of the first join.
func (c *RoomServiceClient) CreateRoom(ctx context.Context, roomName string) error {
	payload := map[string]interface{}{"name": roomName}
	return c.post(ctx, "/twirp/livekit.RoomService/CreateRoom", roomName, payload, nil)
}

// StartRoomCompositeEgress begins recording the room and returns the egress id.
func (c *RoomServiceClient) StartRoomCompositeEgress(ctx context.Context, roomName string) (string, error) {
	payload := map[string]interface{}{
		"room_name": roomName,
		"file_outputs": []map[string]interface{}{
			{"filepath": fmt.Sprintf("recordings/%s.mp4", roomName)},
		},
	}
	var info EgressInfo
	if err := c.post(ctx, "/twirp/livekit.Egress/StartRoomCompositeEgress", roomName, payload, &info); err != nil {
		return "", err
	}
	if info.EgressID == "" {
		return "", errors.New("room server did not return an egress id")
	}
	return info.EgressID, nil
}

// StopEgress asks the room server to finish a recording.
func (c *RoomServiceClient) StopEgress(ctx context.Context, egressID string) error {
	payload := map[string]interface{}{"egress_id": egressID}
	return c.post(ctx, "/twirp/livekit.Egress/StopEgress", "", payload, nil)
}

// GetEgress fetches the current state of one egress.
func (c *RoomServiceClient) GetEgress(ctx context.Context, egressID string) (*EgressInfo, error) {
	payload := map[string]interface{}{"egress_id": egressID}
	var resp struct {
		Items []EgressInfo `json:"items"`
	}
	if err := c.post(ctx, "/twirp/livekit.Egress/ListEgress", "", payload, &resp); err != nil {
		return nil, err
	}
	for _, item := range resp.Items {
		if item.EgressID == egressID {
			return &item, nil
		}
	}
	return nil, fmt.Errorf("egress %s not found", egressID)
}
