package repository

import (
	"time"

	"github.com/cppla/frcomments/models"
)

// CommentRow is the storage schema of a feedback response comment. Index and column hints live
// here rather than on models.FeedbackResponseComment. The comment body has no index.
type CommentRow struct {
	ID                  int64  `gorm:"primaryKey;autoIncrement"`
	CourseID            string `gorm:"size:191;not null;index:idx_frc_course_session,priority:1;index:idx_frc_course_giver,priority:1"`
	FeedbackSessionName string `gorm:"size:191;not null;index:idx_frc_course_session,priority:2"`
	FeedbackQuestionID  string `gorm:"size:191;not null;index:idx_frc_question"`
	GiverEmail          string `gorm:"size:191;not null;index:idx_frc_course_giver,priority:2"`
	FeedbackResponseID  string `gorm:"size:191;not null;index:idx_frc_response"`
	SendingState        string `gorm:"size:16;not null;index:idx_frc_sending_state"`
	GiverSection        string `gorm:"size:191"`
	ReceiverSection     string `gorm:"size:191"`

	ShowCommentTo   []models.ParticipantType `gorm:"serializer:json;type:text"`
	ShowGiverNameTo []models.ParticipantType `gorm:"serializer:json;type:text"`

	IsVisibilityFollowingFeedbackQuestion bool `gorm:"not null"`

	CreatedAt       time.Time `gorm:"not null;precision:6"`
	CommentText     string    `gorm:"type:text"`
	LastEditorEmail string    `gorm:"size:191"`
	LastEditedAt    time.Time `gorm:"not null;precision:6"`
}

// TableName pins the table name independent of the struct name.
func (CommentRow) TableName() string {
	return "feedback_response_comments"
}

// mutableColumns are written by Update. created_at is set once on insert.
var mutableColumns = []string{
	"course_id",
	"feedback_session_name",
	"feedback_question_id",
	"giver_email",
	"feedback_response_id",
	"sending_state",
	"giver_section",
	"receiver_section",
	"show_comment_to",
	"show_giver_name_to",
	"is_visibility_following_feedback_question",
	"comment_text",
	"last_editor_email",
	"last_edited_at",
}

func toRow(c models.FeedbackResponseComment) CommentRow {
	id, _ := c.ID()
	return CommentRow{
		ID:                                    id,
		CourseID:                              c.CourseID,
		FeedbackSessionName:                   c.FeedbackSessionName,
		FeedbackQuestionID:                    c.FeedbackQuestionID,
		GiverEmail:                            c.GiverEmail,
		FeedbackResponseID:                    c.FeedbackResponseID,
		SendingState:                          string(c.SendingState),
		GiverSection:                          c.GiverSection,
		ReceiverSection:                       c.ReceiverSection,
		ShowCommentTo:                         c.ShowCommentTo,
		ShowGiverNameTo:                       c.ShowGiverNameTo,
		IsVisibilityFollowingFeedbackQuestion: c.IsVisibilityFollowingFeedbackQuestion,
		CreatedAt:                             storedTime(c.CreatedAt),
		CommentText:                           c.CommentText,
		LastEditorEmail:                       c.LastEditorEmail,
		LastEditedAt:                          storedTime(c.LastEditedAt),
	}
}

// storedTime matches the precision:6 columns, so values returned by Create equal later reads.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// fromRow rebuilds a persisted comment. The text is already sanitized and is not touched.
func fromRow(r CommentRow) models.FeedbackResponseComment {
	c := models.FeedbackResponseComment{
		CourseID:                              r.CourseID,
		FeedbackSessionName:                   r.FeedbackSessionName,
		FeedbackQuestionID:                    r.FeedbackQuestionID,
		GiverEmail:                            r.GiverEmail,
		FeedbackResponseID:                    r.FeedbackResponseID,
		SendingState:                          models.SendingState(r.SendingState),
		GiverSection:                          r.GiverSection,
		ReceiverSection:                       r.ReceiverSection,
		ShowCommentTo:                         r.ShowCommentTo,
		ShowGiverNameTo:                       r.ShowGiverNameTo,
		IsVisibilityFollowingFeedbackQuestion: r.IsVisibilityFollowingFeedbackQuestion,
		CreatedAt:                             r.CreatedAt.UTC(),
		CommentText:                           r.CommentText,
		LastEditorEmail:                       r.LastEditorEmail,
		LastEditedAt:                          r.LastEditedAt.UTC(),
	}
	// c has no id yet, so binding cannot fail
	out, _ := models.WithPersistedID(c, r.ID)
	return out
}

func fromRows(rows []CommentRow) []models.FeedbackResponseComment {
	out := make([]models.FeedbackResponseComment, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRow(r))
	}
	return out
}
