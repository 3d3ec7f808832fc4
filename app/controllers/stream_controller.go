package controllers

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/valyala/fasthttp"

	"github.com/seekersapp2013/ambrosia/app/models"
	"github.com/seekersapp2013/ambrosia/internal/pkg/livekit"
	"github.com/seekersapp2013/ambrosia/internal/pkg/metrics/counter"
	"github.com/seekersapp2013/ambrosia/internal/pkg/statistics"
	"github.com/seekersapp2013/ambrosia/internal/pkg/streams"
	"github.com/seekersapp2013/ambrosia/internal/pkg/usercontext"
)

var (
	streamRegistry *streams.Registry
	tokenIssuer    *livekit.Issuer
	roomClient     *livekit.RoomServiceClient
)

// InitStreamController wires the stream handlers to their collaborators.
// Must run before the router serves traffic.
func InitStreamController(registry *streams.Registry, issuer *livekit.Issuer, rooms *livekit.RoomServiceClient) {
	streamRegistry = registry
	tokenIssuer = issuer
	roomClient = rooms
}

// HandleCreateStream registers a new stream session in preparing state.
func HandleCreateStream(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var in streams.CreateStreamInput
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	stream, err := streamRegistry.CreateSession(userCtx.UserID, in)
	if err != nil {
		return mapStreamError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(stream)
}

// HandleGetStream returns one stream session.
func HandleGetStream(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid stream id")
	}

	stream, err := streamRegistry.GetSession(id)
	if err != nil {
		return mapStreamError(c, err)
	}
	return c.JSON(stream)
}

// HandleListStreams lists sessions, live ones by default. ?status=all
// includes finished sessions.
func HandleListStreams(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var (
		list []models.LiveStream
		err  error
	)
	if c.Query("status") == "all" {
		list, err = streamRegistry.ListAll(limit)
	} else {
		list, err = streamRegistry.ListActive(limit)
	}
	if err != nil {
		return mapStreamError(c, err)
	}
	return c.JSON(fiber.Map{"streams": list, "count": len(list)})
}

// HandleListMyStreams lists the caller's own sessions, any state.
func HandleListMyStreams(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	list, err := streamRegistry.ListByAuthor(userCtx.UserID)
	if err != nil {
		return mapStreamError(c, err)
	}
	return c.JSON(fiber.Map{"streams": list, "count": len(list)})
}

// HandleStartStream takes a prepared session live. The media room is
// provisioned and, when requested, a recording egress is started.
func HandleStartStream(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid stream id")
	}

	stream, err := streamRegistry.StartSession(c.Context(), id, userCtx.UserID)
	if err != nil {
		return mapStreamError(c, err)
	}

	if c.QueryBool("record", true) && roomClient != nil {
		egressID, err := roomClient.StartRoomCompositeEgress(c.Context(), stream.RoomName)
		if err != nil {
			// the stream is live either way, only the recording is lost
			log.Warnf("[Streams] Recording egress failed for stream %d: %v", stream.ID, err)
		} else if err := streamRegistry.SetEgress(stream.ID, egressID); err != nil {
			log.Errorf("[Streams] Could not persist egress id for stream %d: %v", stream.ID, err)
		}
	}

	return c.JSON(stream)
}

// HandleStopStream ends a session. ?archive=true (default) schedules the
// recording to be published as a reel once the egress completes.
func HandleStopStream(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid stream id")
	}

	archive := c.QueryBool("archive", true)
	stream, err := streamRegistry.StopSession(id, userCtx.UserID, archive)
	if err != nil {
		return mapStreamError(c, err)
	}

	if stream.EgressID != "" && roomClient != nil {
		if err := roomClient.StopEgress(c.Context(), stream.EgressID); err != nil {
			log.Warnf("[Streams] Could not stop egress %s: %v", stream.EgressID, err)
		}
	}

	return c.JSON(stream)
}

// HandleStreamToken admits the caller to a session and returns a
// room-scoped capability token. This is the join: the participant record
// and viewer counters are updated before the token is minted.
func HandleStreamToken(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid stream id")
	}

	var body struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if body.Role == "" {
		body.Role = models.ParticipantRoleViewer
	}

	issued, err := tokenIssuer.IssueToken(id, userCtx.UserID, body.Role)
	if err != nil {
		return mapStreamError(c, err)
	}

	if body.Role == models.ParticipantRoleViewer {
		if err := counter.AddStreamJoin(id); err != nil {
			log.Errorf("[Streams] Join counter failed for stream %d: %v", id, err)
		}
	}

	return c.JSON(issued)
}

// HandleLeaveStream closes the caller's participant record. Idempotent.
func HandleLeaveStream(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid stream id")
	}

	stream, err := streamRegistry.LeaveSession(id, userCtx.UserID)
	if err != nil {
		return mapStreamError(c, err)
	}
	return c.JSON(stream)
}

// HandleReportStreamFailure marks a session as failed after an
// unrecoverable transport error on the broadcaster side.
func HandleReportStreamFailure(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid stream id")
	}

	stream, err := streamRegistry.GetSession(id)
	if err != nil {
		return mapStreamError(c, err)
	}
	if stream.AuthorID != userCtx.UserID {
		return mapStreamError(c, streams.ErrNotAuthorized)
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.BodyParser(&body)

	if err := streamRegistry.ReportFailure(id, fmt.Errorf("broadcaster report: %s", body.Reason)); err != nil {
		return mapStreamError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleStreamMetrics returns platform-wide stream aggregates.
func HandleStreamMetrics(c *fiber.Ctx) error {
	return c.JSON(statistics.GetStatisticsData())
}

// HandleStreamEvents streams lifecycle events as server-sent events.
func HandleStreamEvents(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	events, unsubscribe := streamRegistry.Events().Subscribe(32)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		for ev := range events {
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))
	return nil
}
