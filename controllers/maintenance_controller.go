package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/frcomments/utils"
)

// CascadeService covers the bulk operations other parts of the system trigger when responses,
// questions, sessions, courses or instructors change.
type CascadeService interface {
	DeleteForResponses(ctx context.Context, responseIDs []string) (int, error)
	DeleteForQuestion(ctx context.Context, questionID string) (int, error)
	DeleteForSession(ctx context.Context, courseID, sessionName string) (int, error)
	DeleteForCourses(ctx context.Context, courseIDs []string) (int, error)
	UpdateGiverEmail(ctx context.Context, courseID, oldEmail, newEmail string) (int, error)
	MoveResponse(ctx context.Context, responseID, newResponseID string, giverSection, receiverSection *string) (int, error)
}

// MaintenanceController exposes the cascade operations to administrators.
type MaintenanceController struct {
	svc    CascadeService
	logger *zap.Logger
}

// NewMaintenanceController creates a new MaintenanceController instance.
func NewMaintenanceController(svc CascadeService, logger *zap.Logger) *MaintenanceController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceController{svc: svc, logger: logger}
}

// DeleteResponseComments removes the comments of the listed responses.
func (m *MaintenanceController) DeleteResponseComments(ctx *gin.Context) {
	var req struct {
		ResponseIDs []string `json:"response_ids" binding:"required,min=1"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}
	n, err := m.svc.DeleteForResponses(ctx.Request.Context(), req.ResponseIDs)
	m.reply(ctx, n, err, 50050)
}

// DeleteQuestionComments removes every comment on a question's responses.
func (m *MaintenanceController) DeleteQuestionComments(ctx *gin.Context) {
	n, err := m.svc.DeleteForQuestion(ctx.Request.Context(), ctx.Param("questionId"))
	m.reply(ctx, n, err, 50051)
}

// DeleteSessionComments removes every comment of a feedback session.
func (m *MaintenanceController) DeleteSessionComments(ctx *gin.Context) {
	n, err := m.svc.DeleteForSession(ctx.Request.Context(), ctx.Param("courseId"), ctx.Param("sessionName"))
	m.reply(ctx, n, err, 50052)
}

// DeleteCourseComments removes every comment of a course.
func (m *MaintenanceController) DeleteCourseComments(ctx *gin.Context) {
	n, err := m.svc.DeleteForCourses(ctx.Request.Context(), []string{ctx.Param("courseId")})
	m.reply(ctx, n, err, 50053)
}

// RenameGiver follows an instructor's email change within a course.
func (m *MaintenanceController) RenameGiver(ctx *gin.Context) {
	var req struct {
		OldEmail string `json:"old_email" binding:"required"`
		NewEmail string `json:"new_email" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40051, "invalid request payload")
		return
	}
	n, err := m.svc.UpdateGiverEmail(ctx.Request.Context(), ctx.Param("courseId"),
		strings.TrimSpace(req.OldEmail), strings.TrimSpace(req.NewEmail))
	m.reply(ctx, n, err, 50054)
}

// MoveResponse re-points comments after a response is re-keyed and, when both labels are
// sent, refreshes the section labels in the same transaction.
func (m *MaintenanceController) MoveResponse(ctx *gin.Context) {
	var req struct {
		NewResponseID   string  `json:"new_response_id"`
		GiverSection    *string `json:"giver_section"`
		ReceiverSection *string `json:"receiver_section"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40052, "invalid request payload")
		return
	}
	if (req.GiverSection == nil) != (req.ReceiverSection == nil) {
		utils.Error(ctx, http.StatusBadRequest, 40053, "giver_section and receiver_section must be sent together")
		return
	}
	n, err := m.svc.MoveResponse(ctx.Request.Context(), ctx.Param("responseId"),
		req.NewResponseID, req.GiverSection, req.ReceiverSection)
	m.reply(ctx, n, err, 50055)
}

func (m *MaintenanceController) reply(ctx *gin.Context, n int, err error, internalCode int) {
	if err != nil {
		writeServiceError(ctx, m.logger, err, internalCode, "maintenance operation failed")
		return
	}
	utils.Success(ctx, gin.H{"affected": n})
}
