package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/frcomments/models"
	"github.com/cppla/frcomments/utils"
)

// SendingStateCounter reports per-state comment counts for a session.
type SendingStateCounter interface {
	CountBySendingState(ctx context.Context, courseID, sessionName string) (map[models.SendingState]int64, error)
}

// StatsController provides notification progress for a feedback session's comments.
type StatsController struct {
	counter SendingStateCounter
	logger  *zap.Logger
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(counter SendingStateCounter, logger *zap.Logger) *StatsController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsController{counter: counter, logger: logger}
}

// GetSessionStats returns how many comments of a session are pending, sending and sent.
func (s *StatsController) GetSessionStats(ctx *gin.Context) {
	courseID := ctx.Param("courseId")
	sessionName := ctx.Param("sessionName")
	counts, err := s.counter.CountBySendingState(ctx.Request.Context(), courseID, sessionName)
	if err != nil {
		s.logger.Error("count comments by sending state failed",
			zap.Error(err),
			zap.String("course_id", courseID),
			zap.String("feedback_session_name", sessionName),
		)
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load comment stats")
		return
	}

	pending := counts[models.SendingStatePending]
	sending := counts[models.SendingStateSending]
	sent := counts[models.SendingStateSent]
	utils.Success(ctx, gin.H{
		"pending_count": pending,
		"sending_count": sending,
		"sent_count":    sent,
		"total_count":   pending + sending + sent,
	})
}
