package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/matchfit/matchfit/internal/models"
	"github.com/matchfit/matchfit/internal/services"
	"github.com/matchfit/matchfit/internal/streaming"
	"github.com/matchfit/matchfit/internal/utils"
)

// WarmCacheQueue enqueues a profile for background matching so a later
// interactive request lands entirely on cache.
type WarmCacheQueue interface {
	Enqueue(ctx context.Context, profile models.IntakeProfile) error
}

type MatchingHandler struct {
	overview services.OverviewService
	orch     *services.MatchOrchestrator
	warm     WarmCacheQueue
	log      *logrus.Logger
}

func NewMatchingHandler(overview services.OverviewService, orch *services.MatchOrchestrator, warm WarmCacheQueue, log *logrus.Logger) *MatchingHandler {
	if log == nil {
		log = logrus.New()
	}
	return &MatchingHandler{overview: overview, orch: orch, warm: warm, log: log}
}

type MatchRequest struct {
	Profile      models.IntakeProfile `json:"profile"`
	ForceRefresh bool                 `json:"forceRefresh"`
}

// Overview generates (or serves from cache) the client overview in one shot.
func (h *MatchingHandler) Overview(c *gin.Context) {
	var profile models.IntakeProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "MatchingHandler.Overview", "invalid request body", err))
		return
	}

	res, err := h.overview.Generate(c.Request.Context(), profile)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"overview": res.Overview, "cached": res.Cached})
}

// OverviewStream streams overview tokens over SSE as the model emits them.
// A cache hit produces a single overview-complete event with no tokens.
func (h *MatchingHandler) OverviewStream(c *gin.Context) {
	var profile models.IntakeProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "MatchingHandler.OverviewStream", "invalid request body", err))
		return
	}

	stream := streaming.New(c.Writer, c.Request, h.log)
	defer stream.Close()

	res, err := h.overview.GenerateStream(c.Request.Context(), profile, func(token string) bool {
		return stream.SendEvent(streaming.EventOverviewToken, gin.H{"token": token})
	})
	if err != nil {
		if !errors.Is(err, services.ErrStreamAborted) {
			stream.SendError(errorMessage(err))
		}
		return
	}

	stream.SendEvent(streaming.EventOverviewComplete, gin.H{
		"overview": res.Overview,
		"cached":   res.Cached,
	})
}

// Experts runs the full pipeline without streaming and returns the sorted
// match list.
func (h *MatchingHandler) Experts(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "MatchingHandler.Experts", "invalid request body", err))
		return
	}

	ctx := c.Request.Context()

	res, err := h.overview.Generate(ctx, req.Profile)
	if err != nil {
		writeError(c, err)
		return
	}

	matches, err := h.orch.Run(ctx, res.Overview, services.RunOptions{ForceRefresh: req.ForceRefresh}, services.NopSink{})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"overview": res.Overview,
		"cached":   res.Cached,
		"matches":  matches,
	})
}

// ExpertsStream runs the full pipeline over SSE: overview tokens first, then
// per-expert match events as scoring progresses.
func (h *MatchingHandler) ExpertsStream(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "MatchingHandler.ExpertsStream", "invalid request body", err))
		return
	}

	stream := streaming.New(c.Writer, c.Request, h.log)
	defer stream.Close()

	ctx := c.Request.Context()

	res, err := h.overview.GenerateStream(ctx, req.Profile, func(token string) bool {
		return stream.SendEvent(streaming.EventOverviewToken, gin.H{"token": token})
	})
	if err != nil {
		if !errors.Is(err, services.ErrStreamAborted) {
			stream.SendError(errorMessage(err))
		}
		return
	}

	stream.SendEvent(streaming.EventOverviewComplete, gin.H{
		"overview": res.Overview,
		"cached":   res.Cached,
	})

	sink := sseSink{stream: stream}
	if _, err := h.orch.Run(ctx, res.Overview, services.RunOptions{ForceRefresh: req.ForceRefresh}, sink); err != nil {
		stream.SendError(errorMessage(err))
	}
}

// WarmCache enqueues a background matching run for the given profile and
// returns immediately.
func (h *MatchingHandler) WarmCache(c *gin.Context) {
	var profile models.IntakeProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "MatchingHandler.WarmCache", "invalid request body", err))
		return
	}
	if err := services.ValidateIntake(profile); err != nil {
		writeError(c, err)
		return
	}

	if h.warm == nil {
		writeError(c, utils.E(utils.CodeUnavailable, "MatchingHandler.WarmCache", "cache warming is not enabled", nil))
		return
	}

	if err := h.warm.Enqueue(c.Request.Context(), profile); err != nil {
		writeError(c, utils.E(utils.CodeUnavailable, "MatchingHandler.WarmCache", "failed to enqueue warm-cache job", err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// sseSink adapts the orchestrator's event callbacks onto the SSE wire.
type sseSink struct {
	stream *streaming.Stream
}

func (k sseSink) MatchingStart(total int) {
	k.stream.SendEvent(streaming.EventMatchingStart, gin.H{"total": total})
}

func (k sseSink) MatchingProgress(current, total, expertID int) {
	k.stream.SendEvent(streaming.EventMatchingProgress, gin.H{
		"current":  current,
		"total":    total,
		"expertId": expertID,
	})
}

func (k sseSink) MatchScore(m models.MatchResult) bool {
	return k.stream.SendEvent(streaming.EventMatchScore, m)
}

func (k sseSink) MatchError(expertID int, msg string) {
	k.stream.SendEvent(streaming.EventMatchError, gin.H{
		"expertId": expertID,
		"error":    msg,
	})
}

func (k sseSink) MatchingComplete(cached bool) {
	k.stream.SendEvent(streaming.EventMatchingComplete, gin.H{"cached": cached})
}

func errorMessage(err error) string {
	var ae *utils.AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal error"
}
