package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/frcomments/models"
	"github.com/cppla/frcomments/repository"
	"github.com/cppla/frcomments/utils"
)

var (
	ErrCommentNotFound        = errors.New("comment not found")
	ErrInvalidComment         = errors.New("invalid comment")
	ErrInvalidParticipantType = errors.New("invalid participant type")
	ErrInvalidTransition      = errors.New("invalid sending state transition")
	ErrEditBeforeCreation     = errors.New("last edit time precedes creation time")
	ErrPermissionDenied       = errors.New("permission denied")
)

// Cache is the read-through cache used for single comments. utils.RedisCache satisfies it.
type Cache interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool)
	SetBytes(ctx context.Context, key string, b []byte, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
}

type noopCache struct{}

func (noopCache) GetBytes(context.Context, string) ([]byte, bool)          { return nil, false }
func (noopCache) SetBytes(context.Context, string, []byte, time.Duration) {}
func (noopCache) Delete(context.Context, ...string)                       {}

// CommentService owns the invariants the record itself does not check: required keys,
// participant types, edit ordering and sending state transitions.
type CommentService struct {
	repo     repository.CommentRepository
	cache    Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewCommentService wires a service. cache and logger may be nil.
func NewCommentService(repo repository.CommentRepository, cache Cache, cacheTTL time.Duration, logger *zap.Logger) *CommentService {
	if cache == nil {
		cache = noopCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

func cacheKey(id int64) string {
	return "cache:frc:" + strconv.FormatInt(id, 10)
}

// Create validates and persists a comment built by models.NewFeedbackResponseComment.
func (s *CommentService) Create(ctx context.Context, c models.FeedbackResponseComment) (models.FeedbackResponseComment, error) {
	if c.IsPersisted() {
		return c, fmt.Errorf("%w: comment already has an id", ErrInvalidComment)
	}
	c = normalizeVisibility(c)
	if err := validate(c); err != nil {
		return c, err
	}

	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return c, fmt.Errorf("create comment: %w", err)
	}
	id, _ := created.ID()
	s.logger.Info("comment created",
		zap.Int64("comment_id", id),
		zap.String("course_id", created.CourseID),
		zap.String("feedback_response_id", created.FeedbackResponseID),
		zap.String("giver_email", created.GiverEmail),
	)
	s.store(ctx, created)
	return created, nil
}

// Get returns a comment, consulting the cache first.
func (s *CommentService) Get(ctx context.Context, id int64) (models.FeedbackResponseComment, error) {
	if b, ok := s.cache.GetBytes(ctx, cacheKey(id)); ok {
		var c models.FeedbackResponseComment
		if err := json.Unmarshal(b, &c); err == nil {
			return c, nil
		}
		s.logger.Warn("dropping undecodable cached comment", zap.Int64("comment_id", id))
		s.cache.Delete(ctx, cacheKey(id))
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c, ErrCommentNotFound
		}
		return c, fmt.Errorf("get comment %d: %w", id, err)
	}
	s.store(ctx, c)
	return c, nil
}

// Patch applies only the fields set in patch, inside a transaction.
func (s *CommentService) Patch(ctx context.Context, id int64, patch models.CommentPatch) (models.FeedbackResponseComment, error) {
	if patch.IsEmpty() {
		return s.Get(ctx, id)
	}
	if err := validatePatch(patch); err != nil {
		return models.FeedbackResponseComment{}, err
	}

	var updated models.FeedbackResponseComment
	err := s.repo.Transaction(ctx, func(repo repository.CommentRepository) error {
		current, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if patch.SendingState != nil && *patch.SendingState != current.SendingState &&
			!current.SendingState.CanTransitionTo(*patch.SendingState) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.SendingState, *patch.SendingState)
		}
		next := normalizeVisibility(patch.ApplyTo(current))
		if err := validate(next); err != nil {
			return err
		}
		if err := repo.Update(ctx, next); err != nil {
			return err
		}
		// re-read so the caller sees the stored form, timestamp precision included
		updated, err = repo.GetByID(ctx, id)
		return err
	})
	s.cache.Delete(ctx, cacheKey(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.FeedbackResponseComment{}, ErrCommentNotFound
		}
		return models.FeedbackResponseComment{}, err
	}
	s.logger.Info("comment updated", zap.Int64("comment_id", id))
	return updated, nil
}

// Edit replaces the comment text and records who edited it and when.
func (s *CommentService) Edit(ctx context.Context, id int64, editorEmail, text string, at time.Time) (models.FeedbackResponseComment, error) {
	if strings.TrimSpace(editorEmail) == "" {
		return models.FeedbackResponseComment{}, fmt.Errorf("%w: editor email is required", ErrInvalidComment)
	}
	if at.IsZero() {
		return models.FeedbackResponseComment{}, fmt.Errorf("%w: edit time is required", ErrInvalidComment)
	}
	return s.Patch(ctx, id, models.EditPatch(editorEmail, text, at))
}

// Delete removes a comment and evicts it from the cache.
func (s *CommentService) Delete(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	s.cache.Delete(ctx, cacheKey(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCommentNotFound
		}
		return fmt.Errorf("delete comment %d: %w", id, err)
	}
	s.logger.Info("comment deleted", zap.Int64("comment_id", id))
	return nil
}

// DeleteForResponses removes the comments of deleted responses. It returns how many were removed.
func (s *CommentService) DeleteForResponses(ctx context.Context, responseIDs []string) (int, error) {
	ids, err := s.repo.DeleteByResponseIDs(ctx, responseIDs)
	return s.afterBulk(ctx, "delete for responses", ids, err)
}

// DeleteForQuestion removes the comments of a deleted question.
func (s *CommentService) DeleteForQuestion(ctx context.Context, questionID string) (int, error) {
	ids, err := s.repo.DeleteByQuestionID(ctx, questionID)
	return s.afterBulk(ctx, "delete for question", ids, err)
}

// DeleteForSession removes the comments of a deleted feedback session.
func (s *CommentService) DeleteForSession(ctx context.Context, courseID, sessionName string) (int, error) {
	ids, err := s.repo.DeleteBySession(ctx, courseID, sessionName)
	return s.afterBulk(ctx, "delete for session", ids, err)
}

// DeleteForCourses removes the comments of deleted courses.
func (s *CommentService) DeleteForCourses(ctx context.Context, courseIDs []string) (int, error) {
	ids, err := s.repo.DeleteByCourseIDs(ctx, courseIDs)
	return s.afterBulk(ctx, "delete for courses", ids, err)
}

// UpdateGiverEmail follows an instructor's course email change.
func (s *CommentService) UpdateGiverEmail(ctx context.Context, courseID, oldEmail, newEmail string) (int, error) {
	if strings.TrimSpace(newEmail) == "" {
		return 0, fmt.Errorf("%w: new giver email is required", ErrInvalidComment)
	}
	if oldEmail == newEmail {
		return 0, nil
	}
	ids, err := s.repo.UpdateGiverEmail(ctx, courseID, oldEmail, newEmail)
	return s.afterBulk(ctx, "update giver email", ids, err)
}

// MoveResponse re-keys a response's comments and, when both labels are given, refreshes their
// sections, all in one transaction. An empty newResponseID keeps the current id.
func (s *CommentService) MoveResponse(ctx context.Context, responseID, newResponseID string, giverSection, receiverSection *string) (int, error) {
	newResponseID = strings.TrimSpace(newResponseID)
	if (giverSection == nil) != (receiverSection == nil) {
		return 0, fmt.Errorf("%w: giver and receiver sections must be given together", ErrInvalidComment)
	}
	if newResponseID == "" && giverSection == nil {
		return 0, fmt.Errorf("%w: nothing to move", ErrInvalidComment)
	}

	var touched []int64
	err := s.repo.Transaction(ctx, func(repo repository.CommentRepository) error {
		target := responseID
		if newResponseID != "" && newResponseID != responseID {
			ids, err := repo.UpdateResponseID(ctx, responseID, newResponseID)
			if err != nil {
				return err
			}
			touched = append(touched, ids...)
			target = newResponseID
		}
		if giverSection != nil {
			ids, err := repo.UpdateSections(ctx, target, *giverSection, *receiverSection)
			if err != nil {
				return err
			}
			touched = append(touched, ids...)
		}
		return nil
	})
	return s.afterBulk(ctx, "move response", utils.Unique(touched), err)
}

func (s *CommentService) afterBulk(ctx context.Context, op string, ids []int64, err error) (int, error) {
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.evict(ctx, ids)
	if len(ids) > 0 {
		s.logger.Info("bulk comment change", zap.String("op", op), zap.Int("count", len(ids)))
	}
	return len(ids), nil
}

// ListForResponse lists the comments on one response.
func (s *CommentService) ListForResponse(ctx context.Context, responseID string) ([]models.FeedbackResponseComment, error) {
	return s.repo.ListByResponseID(ctx, responseID)
}

// ListForQuestion lists the comments on all responses to a question.
func (s *CommentService) ListForQuestion(ctx context.Context, questionID string) ([]models.FeedbackResponseComment, error) {
	return s.repo.ListByQuestionID(ctx, questionID)
}

// ListForSession lists a session's comments, optionally limited to a section.
func (s *CommentService) ListForSession(ctx context.Context, courseID, sessionName, section string) ([]models.FeedbackResponseComment, error) {
	return s.repo.ListBySession(ctx, courseID, sessionName, strings.TrimSpace(section))
}

// ListForGiver lists the comments a giver wrote in a course.
func (s *CommentService) ListForGiver(ctx context.Context, courseID, giverEmail string) ([]models.FeedbackResponseComment, error) {
	return s.repo.ListByGiver(ctx, courseID, giverEmail)
}

func (s *CommentService) store(ctx context.Context, c models.FeedbackResponseComment) {
	id, ok := c.ID()
	if !ok {
		return
	}
	b, err := json.Marshal(c)
	if err != nil {
		return
	}
	s.cache.SetBytes(ctx, cacheKey(id), b, s.cacheTTL)
}

func (s *CommentService) evict(ctx context.Context, ids []int64) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, cacheKey(id))
	}
	s.cache.Delete(ctx, keys...)
}

// normalizeVisibility drops repeated participant types, keeping first occurrences.
func normalizeVisibility(c models.FeedbackResponseComment) models.FeedbackResponseComment {
	c.ShowCommentTo = utils.Unique(c.ShowCommentTo)
	c.ShowGiverNameTo = utils.Unique(c.ShowGiverNameTo)
	return c
}

func validate(c models.FeedbackResponseComment) error {
	required := []struct {
		name  string
		value string
	}{
		{"course id", c.CourseID},
		{"feedback session name", c.FeedbackSessionName},
		{"feedback question id", c.FeedbackQuestionID},
		{"giver email", c.GiverEmail},
		{"feedback response id", c.FeedbackResponseID},
		{"last editor email", c.LastEditorEmail},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidComment, f.name)
		}
	}
	if strings.TrimSpace(c.CommentText) == "" {
		return fmt.Errorf("%w: comment text is empty after sanitization", ErrInvalidComment)
	}
	if !c.SendingState.IsValid() {
		return fmt.Errorf("%w: unknown sending state %q", ErrInvalidComment, c.SendingState)
	}
	if c.CreatedAt.IsZero() {
		return fmt.Errorf("%w: creation time is required", ErrInvalidComment)
	}
	if c.LastEditedAt.Before(c.CreatedAt) {
		return ErrEditBeforeCreation
	}
	if err := validateParticipants(c.ShowCommentTo); err != nil {
		return err
	}
	return validateParticipants(c.ShowGiverNameTo)
}

func validatePatch(p models.CommentPatch) error {
	if p.SendingState != nil && !p.SendingState.IsValid() {
		return fmt.Errorf("%w: unknown sending state %q", ErrInvalidComment, *p.SendingState)
	}
	if p.ShowCommentTo != nil {
		if err := validateParticipants(*p.ShowCommentTo); err != nil {
			return err
		}
	}
	if p.ShowGiverNameTo != nil {
		if err := validateParticipants(*p.ShowGiverNameTo); err != nil {
			return err
		}
	}
	return nil
}

func validateParticipants(types []models.ParticipantType) error {
	for _, t := range types {
		if !t.IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidParticipantType, t)
		}
	}
	return nil
}
