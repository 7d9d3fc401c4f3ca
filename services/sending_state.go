package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cppla/frcomments/models"
	"github.com/cppla/frcomments/repository"
	"github.com/cppla/frcomments/utils"
)

// ClaimPending moves up to limit PENDING comments of a session to SENDING and returns them.
// Each row is moved with a guarded update, and only rows this call moved are returned, so two
// concurrent claimers never receive the same comment.
func (s *CommentService) ClaimPending(ctx context.Context, courseID, sessionName string, limit int) ([]models.FeedbackResponseComment, error) {
	var claimed []models.FeedbackResponseComment
	err := s.repo.Transaction(ctx, func(repo repository.CommentRepository) error {
		pending, err := repo.ListBySendingState(ctx, courseID, sessionName, models.SendingStatePending, limit)
		if err != nil {
			return err
		}
		for _, c := range pending {
			id, ok := c.ID()
			if !ok {
				continue
			}
			moved, err := repo.SetSendingState(ctx, []int64{id}, models.SendingStatePending, models.SendingStateSending)
			if err != nil {
				return err
			}
			// another claimer got there first
			if moved != 1 {
				continue
			}
			c.SendingState = models.SendingStateSending
			claimed = append(claimed, c)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim pending comments: %w", err)
	}
	s.evict(ctx, commentIDs(claimed))
	if len(claimed) > 0 {
		s.logger.Info("claimed pending comments",
			zap.String("course_id", courseID),
			zap.String("feedback_session_name", sessionName),
			zap.Int("count", len(claimed)),
		)
	}
	if claimed == nil {
		claimed = []models.FeedbackResponseComment{}
	}
	return claimed, nil
}

// MarkSent records that the notification for each comment has gone out. Every comment must
// currently be SENDING; otherwise nothing changes.
func (s *CommentService) MarkSent(ctx context.Context, ids []int64) (int, error) {
	return s.transition(ctx, ids, models.SendingStateSending, models.SendingStateSent)
}

// ReleaseSending hands SENDING comments back to PENDING after an abandoned dispatch.
func (s *CommentService) ReleaseSending(ctx context.Context, ids []int64) (int, error) {
	return s.transition(ctx, ids, models.SendingStateSending, models.SendingStatePending)
}

func (s *CommentService) transition(ctx context.Context, ids []int64, from, to models.SendingState) (int, error) {
	ids = utils.Unique(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	err := s.repo.Transaction(ctx, func(repo repository.CommentRepository) error {
		current, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(current) != len(ids) {
			return ErrCommentNotFound
		}
		for _, c := range current {
			if c.SendingState != from || !from.CanTransitionTo(to) {
				id, _ := c.ID()
				return fmt.Errorf("%w: comment %d is %s, cannot move to %s", ErrInvalidTransition, id, c.SendingState, to)
			}
		}
		_, err = repo.SetSendingState(ctx, ids, from, to)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.evict(ctx, ids)
	s.logger.Info("comment sending state changed",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Int("count", len(ids)),
	)
	return len(ids), nil
}

// CountBySendingState reports how many of a session's comments are in each state.
func (s *CommentService) CountBySendingState(ctx context.Context, courseID, sessionName string) (map[models.SendingState]int64, error) {
	return s.repo.CountBySendingState(ctx, courseID, sessionName)
}

func commentIDs(comments []models.FeedbackResponseComment) []int64 {
	ids := make([]int64, 0, len(comments))
	for _, c := range comments {
		if id, ok := c.ID(); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
