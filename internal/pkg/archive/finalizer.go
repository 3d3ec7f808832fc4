package archive

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/seekersapp2013/ambrosia/app/repository"
	"github.com/seekersapp2013/ambrosia/internal/pkg/cache"
	"github.com/seekersapp2013/ambrosia/internal/pkg/livekit"
)

const (
	QueueKey = "archive_queue"

	// DefaultMaxAttempts bounds how often we poll one egress before
	// giving up on the recording.
	DefaultMaxAttempts = 60
)

// EgressPoller reports the state of a recording egress.
type EgressPoller interface {
	GetEgress(ctx context.Context, egressID string) (*livekit.EgressInfo, error)
}

type job struct {
	StreamID uint   `json:"stream_id"`
	EgressID string `json:"egress_id"`
	Attempt  int    `json:"attempt"`
}

// Finalizer drains the archive queue: once a stream's recording egress
// completes, it pins the recording URL on the stream and publishes the
// file as a reel.
type Finalizer struct {
	client   *redis.Client
	streams  repository.StreamRepository
	contents repository.ContentRepository
	poller   EgressPoller

	pollInterval time.Duration
	maxAttempts  int

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewFinalizer creates a finalizer backed by the shared Redis client.
func NewFinalizer(streams repository.StreamRepository, contents repository.ContentRepository, poller EgressPoller) *Finalizer {
	return &Finalizer{
		client:       cache.GetClient(),
		streams:      streams,
		contents:     contents,
		poller:       poller,
		pollInterval: 10 * time.Second,
		maxAttempts:  DefaultMaxAttempts,
		stopCh:       make(chan struct{}),
	}
}

// Enqueue schedules a stream's egress for finalization.
func (f *Finalizer) Enqueue(streamID uint, egressID string) error {
	data, err := json.Marshal(job{StreamID: streamID, EgressID: egressID})
	if err != nil {
		return err
	}
	return f.client.RPush(context.Background(), QueueKey, data).Err()
}

// Start launches the worker. Safe to call once.
func (f *Finalizer) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running {
		return
	}
	f.running = true
	log.Info("[Archive] Starting finalizer worker")

	f.wg.Add(1)
	go f.worker()
}

// Stop shuts the worker down and waits for it.
func (f *Finalizer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.running {
		return
	}
	log.Info("[Archive] Stopping finalizer worker...")
	close(f.stopCh)
	f.running = false
	f.wg.Wait()
	log.Info("[Archive] Finalizer worker stopped")
}

func (f *Finalizer) worker() {
	defer f.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-f.stopCh:
			return
		default:
		}

		result, err := f.client.BLPop(ctx, 2*time.Second, QueueKey).Result()
		if err != nil {
			if err != redis.Nil {
				log.Errorf("[Archive] BLPop error: %v", err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		var j job
		if err := json.Unmarshal([]byte(result[1]), &j); err != nil {
			log.Errorf("[Archive] Bad job payload: %v", err)
			continue
		}
		f.process(ctx, j)
	}
}

func (f *Finalizer) process(ctx context.Context, j job) {
	info, err := f.poller.GetEgress(ctx, j.EgressID)
	if err != nil {
		log.Warnf("[Archive] Egress lookup failed for stream %d: %v", j.StreamID, err)
		f.requeue(j)
		return
	}

	switch info.Status {
	case livekit.EgressStatusComplete:
		if info.FileURL == "" {
			log.Errorf("[Archive] Egress %s completed without a file, stream %d stays unarchived", j.EgressID, j.StreamID)
			return
		}
		f.finalize(j.StreamID, info.FileURL)
	case livekit.EgressStatusFailed, livekit.EgressStatusAborted:
		log.Errorf("[Archive] Egress %s for stream %d ended with %s: %s", j.EgressID, j.StreamID, info.Status, info.Error)
	default:
		// still running, come back later
		f.requeue(j)
	}
}

func (f *Finalizer) finalize(streamID uint, fileURL string) {
	if err := f.streams.SetRecordingURL(streamID, fileURL); err != nil {
		// already archived by an earlier run
		log.Warnf("[Archive] Recording URL for stream %d not updated: %v", streamID, err)
		return
	}

	stream, err := f.streams.GetByID(streamID)
	if err != nil {
		log.Errorf("[Archive] Stream %d vanished before reel creation: %v", streamID, err)
		return
	}
	reel, err := f.contents.CreateReelFromRecording(stream, fileURL)
	if err != nil {
		log.Errorf("[Archive] Reel creation failed for stream %d: %v", streamID, err)
		return
	}
	log.Infof("[Archive] Stream %d archived as reel %d", streamID, reel.ID)
}

func (f *Finalizer) requeue(j job) {
	j.Attempt++
	if j.Attempt >= f.maxAttempts {
		log.Errorf("[Archive] Giving up on egress %s for stream %d after %d attempts", j.EgressID, j.StreamID, j.Attempt)
		return
	}

	data, err := json.Marshal(j)
	if err != nil {
		log.Errorf("[Archive] Requeue marshal error: %v", err)
		return
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		timer := time.NewTimer(f.pollInterval)
		defer timer.Stop()
		select {
		case <-f.stopCh:
			return
		case <-timer.C:
		}
		if err := f.client.RPush(context.Background(), QueueKey, data).Err(); err != nil {
			log.Errorf("[Archive] Requeue failed for stream %d: %v", j.StreamID, err)
		}
	}()
}
