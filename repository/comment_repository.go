package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cppla/frcomments/models"
	"github.com/cppla/frcomments/utils"
)

var (
	ErrNotFound         = errors.New("comment not found")
	ErrAlreadyPersisted = errors.New("comment already persisted")
	ErrNotPersisted     = errors.New("comment has no id")
)

// CommentRepository persists feedback response comments.
type CommentRepository interface {
	Create(ctx context.Context, c models.FeedbackResponseComment) (models.FeedbackResponseComment, error)
	GetByID(ctx context.Context, id int64) (models.FeedbackResponseComment, error)
	GetByIDs(ctx context.Context, ids []int64) ([]models.FeedbackResponseComment, error)
	Update(ctx context.Context, c models.FeedbackResponseComment) error
	Delete(ctx context.Context, id int64) error

	// Bulk deletes and updates return the ids of the comments they touched.
	DeleteByResponseIDs(ctx context.Context, responseIDs []string) ([]int64, error)
	DeleteByQuestionID(ctx context.Context, questionID string) ([]int64, error)
	DeleteBySession(ctx context.Context, courseID, sessionName string) ([]int64, error)
	DeleteByCourseIDs(ctx context.Context, courseIDs []string) ([]int64, error)

	ListByResponseID(ctx context.Context, responseID string) ([]models.FeedbackResponseComment, error)
	ListByQuestionID(ctx context.Context, questionID string) ([]models.FeedbackResponseComment, error)
	ListBySession(ctx context.Context, courseID, sessionName, section string) ([]models.FeedbackResponseComment, error)
	ListByGiver(ctx context.Context, courseID, giverEmail string) ([]models.FeedbackResponseComment, error)
	ListBySendingState(ctx context.Context, courseID, sessionName string, state models.SendingState, limit int) ([]models.FeedbackResponseComment, error)

	UpdateGiverEmail(ctx context.Context, courseID, oldEmail, newEmail string) ([]int64, error)
	UpdateResponseID(ctx context.Context, oldResponseID, newResponseID string) ([]int64, error)
	UpdateSections(ctx context.Context, responseID, giverSection, receiverSection string) ([]int64, error)
	SetSendingState(ctx context.Context, ids []int64, from, to models.SendingState) (int64, error)
	CountBySendingState(ctx context.Context, courseID, sessionName string) (map[models.SendingState]int64, error)

	// Transaction runs fn against a repository bound to a single database transaction.
	Transaction(ctx context.Context, fn func(repo CommentRepository) error) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a gorm backed CommentRepository.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts an unpersisted comment and returns it bound to its new id.
func (r *commentRepository) Create(ctx context.Context, c models.FeedbackResponseComment) (models.FeedbackResponseComment, error) {
	if c.IsPersisted() {
		return c, ErrAlreadyPersisted
	}
	row := toRow(c)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return c, err
	}
	return fromRow(row), nil
}

// GetByID loads one comment, returning ErrNotFound when it does not exist.
func (r *commentRepository) GetByID(ctx context.Context, id int64) (models.FeedbackResponseComment, error) {
	var row CommentRow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.FeedbackResponseComment{}, ErrNotFound
		}
		return models.FeedbackResponseComment{}, err
	}
	return fromRow(row), nil
}

// GetByIDs returns the comments that exist among ids, in id order.
func (r *commentRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.FeedbackResponseComment, error) {
	if len(ids) == 0 {
		return []models.FeedbackResponseComment{}, nil
	}
	var rows []CommentRow
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

// Update writes every mutable column of a persisted comment.
func (r *commentRepository) Update(ctx context.Context, c models.FeedbackResponseComment) error {
	id, ok := c.ID()
	if !ok {
		return ErrNotPersisted
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&CommentRow{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	row := toRow(c)
	return r.db.WithContext(ctx).Model(&row).Select(mutableColumns).Updates(&row).Error
}

// Delete removes one comment, returning ErrNotFound when nothing was deleted.
func (r *commentRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&CommentRow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByResponseIDs deletes the comments on the given responses and returns their ids.
func (r *commentRepository) DeleteByResponseIDs(ctx context.Context, responseIDs []string) ([]int64, error) {
	if len(responseIDs) == 0 {
		return []int64{}, nil
	}
	return r.deleteWhere(ctx, "feedback_response_id IN ?", responseIDs)
}

// DeleteByQuestionID deletes the comments on a question and returns their ids.
func (r *commentRepository) DeleteByQuestionID(ctx context.Context, questionID string) ([]int64, error) {
	return r.deleteWhere(ctx, "feedback_question_id = ?", questionID)
}

// DeleteBySession deletes a session's comments and returns their ids.
func (r *commentRepository) DeleteBySession(ctx context.Context, courseID, sessionName string) ([]int64, error) {
	return r.deleteWhere(ctx, "course_id = ? AND feedback_session_name = ?", courseID, sessionName)
}

// DeleteByCourseIDs deletes the comments of the given courses and returns their ids.
func (r *commentRepository) DeleteByCourseIDs(ctx context.Context, courseIDs []string) ([]int64, error) {
	if len(courseIDs) == 0 {
		return []int64{}, nil
	}
	return r.deleteWhere(ctx, "course_id IN ?", courseIDs)
}

func (r *commentRepository) deleteWhere(ctx context.Context, query string, args ...interface{}) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&CommentRow{}).Where(query, args...).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Where("id IN ?", ids).Delete(&CommentRow{}).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *commentRepository) updateWhere(ctx context.Context, values map[string]interface{}, query string, args ...interface{}) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&CommentRow{}).Where(query, args...).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Model(&CommentRow{}).Where("id IN ?", ids).Updates(values).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListByResponseID lists the comments on one response, oldest first.
func (r *commentRepository) ListByResponseID(ctx context.Context, responseID string) ([]models.FeedbackResponseComment, error) {
	return r.list(r.db.WithContext(ctx).Where("feedback_response_id = ?", responseID))
}

// ListByQuestionID lists the comments on all responses to a question, oldest first.
func (r *commentRepository) ListByQuestionID(ctx context.Context, questionID string) ([]models.FeedbackResponseComment, error) {
	return r.list(r.db.WithContext(ctx).Where("feedback_question_id = ?", questionID))
}

// ListBySession lists a session's comments. A non-empty section keeps comments whose response
// giver or receiver is in that section.
func (r *commentRepository) ListBySession(ctx context.Context, courseID, sessionName, section string) ([]models.FeedbackResponseComment, error) {
	q := r.db.WithContext(ctx).Where("course_id = ? AND feedback_session_name = ?", courseID, sessionName)
	if section != "" {
		q = q.Where("(giver_section = ? OR receiver_section = ?)", section, section)
	}
	return r.list(q)
}

// ListByGiver lists the comments a giver wrote in a course.
func (r *commentRepository) ListByGiver(ctx context.Context, courseID, giverEmail string) ([]models.FeedbackResponseComment, error) {
	return r.list(r.db.WithContext(ctx).Where("course_id = ? AND giver_email = ?", courseID, giverEmail))
}

// ListBySendingState lists up to limit comments of a session in the given state, oldest first.
// A non-positive limit means no limit.
func (r *commentRepository) ListBySendingState(ctx context.Context, courseID, sessionName string, state models.SendingState, limit int) ([]models.FeedbackResponseComment, error) {
	q := r.db.WithContext(ctx).
		Where("course_id = ? AND feedback_session_name = ? AND sending_state = ?", courseID, sessionName, string(state))
	if limit > 0 {
		q = q.Limit(limit)
	}
	return r.list(q)
}

func (r *commentRepository) list(q *gorm.DB) ([]models.FeedbackResponseComment, error) {
	var rows []CommentRow
	if err := q.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

// UpdateGiverEmail rewrites a giver's course email, both as giver and as last editor, and
// returns the ids of every touched comment.
func (r *commentRepository) UpdateGiverEmail(ctx context.Context, courseID, oldEmail, newEmail string) ([]int64, error) {
	var touched []int64
	err := r.Transaction(ctx, func(repo CommentRepository) error {
		tr := repo.(*commentRepository)
		asGiver, err := tr.updateWhere(ctx, map[string]interface{}{"giver_email": newEmail},
			"course_id = ? AND giver_email = ?", courseID, oldEmail)
		if err != nil {
			return err
		}
		asEditor, err := tr.updateWhere(ctx, map[string]interface{}{"last_editor_email": newEmail},
			"course_id = ? AND last_editor_email = ?", courseID, oldEmail)
		if err != nil {
			return err
		}
		touched = utils.Unique(append(asGiver, asEditor...))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return touched, nil
}

// UpdateResponseID re-points comments to a new response id and returns the ids touched.
func (r *commentRepository) UpdateResponseID(ctx context.Context, oldResponseID, newResponseID string) ([]int64, error) {
	return r.updateWhere(ctx, map[string]interface{}{"feedback_response_id": newResponseID},
		"feedback_response_id = ?", oldResponseID)
}

// UpdateSections rewrites the section labels of a response's comments.
func (r *commentRepository) UpdateSections(ctx context.Context, responseID, giverSection, receiverSection string) ([]int64, error) {
	return r.updateWhere(ctx, map[string]interface{}{
		"giver_section":    giverSection,
		"receiver_section": receiverSection,
	}, "feedback_response_id = ?", responseID)
}

// SetSendingState moves the listed comments from one state to another. Comments not currently
// in from are left alone; the count of moved comments is returned.
func (r *commentRepository) SetSendingState(ctx context.Context, ids []int64, from, to models.SendingState) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&CommentRow{}).
		Where("id IN ? AND sending_state = ?", ids, string(from)).
		Update("sending_state", string(to))
	return res.RowsAffected, res.Error
}

// CountBySendingState counts a session's comments per state. Every state is present in the result.
func (r *commentRepository) CountBySendingState(ctx context.Context, courseID, sessionName string) (map[models.SendingState]int64, error) {
	type stateCount struct {
		SendingState string
		Total        int64
	}
	var rows []stateCount
	err := r.db.WithContext(ctx).Model(&CommentRow{}).
		Select("sending_state, COUNT(*) AS total").
		Where("course_id = ? AND feedback_session_name = ?", courseID, sessionName).
		Group("sending_state").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := map[models.SendingState]int64{
		models.SendingStatePending: 0,
		models.SendingStateSending: 0,
		models.SendingStateSent:    0,
	}
	for _, row := range rows {
		counts[models.SendingState(row.SendingState)] = row.Total
	}
	return counts, nil
}

// Transaction runs fn with a repository bound to one database transaction.
func (r *commentRepository) Transaction(ctx context.Context, fn func(repo CommentRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&commentRepository{db: tx})
	})
}
