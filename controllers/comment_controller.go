package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/frcomments/middleware"
	"github.com/cppla/frcomments/models"
	"github.com/cppla/frcomments/services"
	"github.com/cppla/frcomments/utils"
)

// CommentService is the part of services.CommentService the HTTP layer needs.
type CommentService interface {
	Create(ctx context.Context, c models.FeedbackResponseComment) (models.FeedbackResponseComment, error)
	Get(ctx context.Context, id int64) (models.FeedbackResponseComment, error)
	Patch(ctx context.Context, id int64, patch models.CommentPatch) (models.FeedbackResponseComment, error)
	Delete(ctx context.Context, id int64) error
	ListForResponse(ctx context.Context, responseID string) ([]models.FeedbackResponseComment, error)
	ListForQuestion(ctx context.Context, questionID string) ([]models.FeedbackResponseComment, error)
	ListForSession(ctx context.Context, courseID, sessionName, section string) ([]models.FeedbackResponseComment, error)
	ClaimPending(ctx context.Context, courseID, sessionName string, limit int) ([]models.FeedbackResponseComment, error)
	MarkSent(ctx context.Context, ids []int64) (int, error)
	ReleaseSending(ctx context.Context, ids []int64) (int, error)
	CountBySendingState(ctx context.Context, courseID, sessionName string) (map[models.SendingState]int64, error)
}

// CommentController exposes feedback response comments over HTTP.
type CommentController struct {
	svc        CommentService
	claimBatch int
	logger     *zap.Logger
	now        func() time.Time
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(svc CommentService, claimBatch int, logger *zap.Logger) *CommentController {
	if logger == nil {
		logger = zap.NewNop()
	}
	if claimBatch <= 0 {
		claimBatch = 100
	}
	return &CommentController{
		svc:        svc,
		claimBatch: claimBatch,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type createCommentRequest struct {
	CourseID            string                   `json:"course_id" binding:"required"`
	FeedbackSessionName string                   `json:"feedback_session_name" binding:"required"`
	FeedbackQuestionID  string                   `json:"feedback_question_id" binding:"required"`
	FeedbackResponseID  string                   `json:"feedback_response_id" binding:"required"`
	CommentText         string                   `json:"comment_text" binding:"required"`
	GiverSection        string                   `json:"giver_section"`
	ReceiverSection     string                   `json:"receiver_section"`
	ShowCommentTo       []models.ParticipantType `json:"show_comment_to"`
	ShowGiverNameTo     []models.ParticipantType `json:"show_giver_name_to"`

	IsVisibilityFollowingFeedbackQuestion *bool `json:"is_visibility_following_feedback_question"`
}

// CreateComment stores a comment authored by the authenticated instructor.
func (cc *CommentController) CreateComment(ctx *gin.Context) {
	var req createCommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	email, ok := middleware.CurrentEmail(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	comment := models.NewFeedbackResponseComment(models.NewCommentInput{
		CourseID:            strings.TrimSpace(req.CourseID),
		FeedbackSessionName: strings.TrimSpace(req.FeedbackSessionName),
		FeedbackQuestionID:  strings.TrimSpace(req.FeedbackQuestionID),
		GiverEmail:          email,
		FeedbackResponseID:  strings.TrimSpace(req.FeedbackResponseID),
		SendingState:        models.SendingStatePending,
		CreatedAt:           cc.now(),
		CommentText:         req.CommentText,
		GiverSection:        req.GiverSection,
		ReceiverSection:     req.ReceiverSection,
		ShowCommentTo:       req.ShowCommentTo,
		ShowGiverNameTo:     req.ShowGiverNameTo,
	})
	// the constructor always starts with the comment's own visibility
	if req.IsVisibilityFollowingFeedbackQuestion != nil {
		comment.IsVisibilityFollowingFeedbackQuestion = *req.IsVisibilityFollowingFeedbackQuestion
	}

	created, err := cc.svc.Create(ctx.Request.Context(), comment)
	if err != nil {
		cc.writeError(ctx, err, 50020, "failed to create comment")
		return
	}
	utils.Created(ctx, gin.H{"comment": created})
}

// GetComment returns a single comment.
func (cc *CommentController) GetComment(ctx *gin.Context) {
	id, ok := commentIDParam(ctx)
	if !ok {
		return
	}
	comment, err := cc.svc.Get(ctx.Request.Context(), id)
	if err != nil {
		cc.writeError(ctx, err, 50021, "failed to load comment")
		return
	}
	utils.Success(ctx, gin.H{"comment": comment})
}

type updateCommentRequest struct {
	CommentText     *string                   `json:"comment_text"`
	GiverSection    *string                   `json:"giver_section"`
	ReceiverSection *string                   `json:"receiver_section"`
	ShowCommentTo   *[]models.ParticipantType `json:"show_comment_to"`
	ShowGiverNameTo *[]models.ParticipantType `json:"show_giver_name_to"`

	IsVisibilityFollowingFeedbackQuestion *bool `json:"is_visibility_following_feedback_question"`
}

// UpdateComment lets the giver (or an admin) edit text, sections or visibility.
func (cc *CommentController) UpdateComment(ctx *gin.Context) {
	id, ok := commentIDParam(ctx)
	if !ok {
		return
	}
	var req updateCommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}
	patch := models.CommentPatch{
		CommentText:     req.CommentText,
		GiverSection:    req.GiverSection,
		ReceiverSection: req.ReceiverSection,
		ShowCommentTo:   req.ShowCommentTo,
		ShowGiverNameTo: req.ShowGiverNameTo,

		IsVisibilityFollowingFeedbackQuestion: req.IsVisibilityFollowingFeedbackQuestion,
	}
	if patch.IsEmpty() {
		utils.Error(ctx, http.StatusBadRequest, 40023, "nothing to update")
		return
	}
	email, allowed := cc.authorize(ctx, id)
	if !allowed {
		return
	}
	at := cc.now()
	patch.LastEditorEmail = &email
	patch.LastEditedAt = &at

	updated, err := cc.svc.Patch(ctx.Request.Context(), id, patch)
	if err != nil {
		cc.writeError(ctx, err, 50022, "failed to update comment")
		return
	}
	utils.Success(ctx, gin.H{"comment": updated})
}

// DeleteComment allows the giver or an admin to delete a comment.
func (cc *CommentController) DeleteComment(ctx *gin.Context) {
	id, ok := commentIDParam(ctx)
	if !ok {
		return
	}
	if _, allowed := cc.authorize(ctx, id); !allowed {
		return
	}
	if err := cc.svc.Delete(ctx.Request.Context(), id); err != nil {
		cc.writeError(ctx, err, 50023, "failed to delete comment")
		return
	}
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}

// ListResponseComments lists comments on one feedback response.
func (cc *CommentController) ListResponseComments(ctx *gin.Context) {
	items, err := cc.svc.ListForResponse(ctx.Request.Context(), ctx.Param("responseId"))
	if err != nil {
		cc.writeError(ctx, err, 50024, "failed to list comments")
		return
	}
	utils.Success(ctx, gin.H{"items": items, "total": len(items)})
}

// ListQuestionComments lists comments on all responses to one question.
func (cc *CommentController) ListQuestionComments(ctx *gin.Context) {
	items, err := cc.svc.ListForQuestion(ctx.Request.Context(), ctx.Param("questionId"))
	if err != nil {
		cc.writeError(ctx, err, 50025, "failed to list comments")
		return
	}
	utils.Success(ctx, gin.H{"items": items, "total": len(items)})
}

// ListSessionComments lists a session's comments, optionally filtered by ?section=.
func (cc *CommentController) ListSessionComments(ctx *gin.Context) {
	items, err := cc.svc.ListForSession(ctx.Request.Context(),
		ctx.Param("courseId"), ctx.Param("sessionName"), ctx.Query("section"))
	if err != nil {
		cc.writeError(ctx, err, 50026, "failed to list comments")
		return
	}
	utils.Success(ctx, gin.H{"items": items, "total": len(items)})
}

// ClaimPending hands the caller a batch of comments whose notifications are due.
func (cc *CommentController) ClaimPending(ctx *gin.Context) {
	var req struct {
		Limit int `json:"limit"`
	}
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40024, "invalid request payload")
			return
		}
	}
	limit := req.Limit
	if limit <= 0 || limit > cc.claimBatch {
		limit = cc.claimBatch
	}
	items, err := cc.svc.ClaimPending(ctx.Request.Context(), ctx.Param("courseId"), ctx.Param("sessionName"), limit)
	if err != nil {
		cc.writeError(ctx, err, 50027, "failed to claim comments")
		return
	}
	utils.Success(ctx, gin.H{"items": items, "total": len(items)})
}

type commentIDsRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1"`
}

// MarkSent records dispatched notifications.
func (cc *CommentController) MarkSent(ctx *gin.Context) {
	var req commentIDsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40025, "invalid request payload")
		return
	}
	n, err := cc.svc.MarkSent(ctx.Request.Context(), req.IDs)
	if err != nil {
		cc.writeError(ctx, err, 50028, "failed to mark comments sent")
		return
	}
	utils.Success(ctx, gin.H{"updated": n})
}

// ReleaseSending returns claimed comments to the pending queue.
func (cc *CommentController) ReleaseSending(ctx *gin.Context) {
	var req commentIDsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40026, "invalid request payload")
		return
	}
	n, err := cc.svc.ReleaseSending(ctx.Request.Context(), req.IDs)
	if err != nil {
		cc.writeError(ctx, err, 50029, "failed to release comments")
		return
	}
	utils.Success(ctx, gin.H{"updated": n})
}

// authorize loads the comment and checks the caller is its giver or an admin.
// It writes the error response itself and returns the caller's email.
func (cc *CommentController) authorize(ctx *gin.Context, id int64) (string, bool) {
	email, ok := middleware.CurrentEmail(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return "", false
	}
	existing, err := cc.svc.Get(ctx.Request.Context(), id)
	if err != nil {
		cc.writeError(ctx, err, 50021, "failed to load comment")
		return "", false
	}
	if !strings.EqualFold(existing.GiverEmail, email) && !middleware.IsAdmin(ctx) {
		cc.writeError(ctx, services.ErrPermissionDenied, 0, "")
		return "", false
	}
	return email, true
}

func (cc *CommentController) writeError(ctx *gin.Context, err error, internalCode int, internalMsg string) {
	writeServiceError(ctx, cc.logger, err, internalCode, internalMsg)
}

// writeServiceError maps service errors to API error codes. Unknown errors are logged and
// reported with internalCode.
func writeServiceError(ctx *gin.Context, logger *zap.Logger, err error, internalCode int, internalMsg string) {
	switch {
	case errors.Is(err, services.ErrCommentNotFound):
		utils.Error(ctx, http.StatusNotFound, 40420, "comment not found")
	case errors.Is(err, services.ErrPermissionDenied):
		utils.Error(ctx, http.StatusForbidden, 40320, "you can only change your own comments")
	case errors.Is(err, services.ErrInvalidTransition):
		utils.Error(ctx, http.StatusConflict, 40930, err.Error())
	case errors.Is(err, services.ErrInvalidComment),
		errors.Is(err, services.ErrInvalidParticipantType),
		errors.Is(err, services.ErrEditBeforeCreation):
		utils.Error(ctx, http.StatusBadRequest, 40030, err.Error())
	default:
		logger.Error(internalMsg, zap.Error(err), zap.String("request_id", ctx.GetString(utils.ContextRequestIDKey)))
		utils.Error(ctx, http.StatusInternalServerError, internalCode, internalMsg)
	}
}

func commentIDParam(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(ctx.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40070, "invalid comment id")
		return 0, false
	}
	return id, true
}
