package models

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/cppla/frcomments/utils"
)

// ErrIDAlreadyAssigned is returned when an id is bound to a comment that already has one.
var ErrIDAlreadyAssigned = errors.New("comment id already assigned")

// FeedbackResponseComment is a comment an instructor (the giver) leaves on a feedback response.
//
// Foreign keys are opaque strings and are never validated here. The id is absent until the
// storage layer binds one through WithPersistedID; it cannot be changed afterwards.
type FeedbackResponseComment struct {
	id *int64

	CourseID            string `json:"course_id"`
	FeedbackSessionName string `json:"feedback_session_name"`
	FeedbackQuestionID  string `json:"feedback_question_id"`
	// GiverEmail is the email the giver uses in the course, not the account email.
	GiverEmail         string       `json:"giver_email"`
	FeedbackResponseID string       `json:"feedback_response_id"`
	SendingState       SendingState `json:"sending_state"`

	GiverSection    string `json:"giver_section"`
	ReceiverSection string `json:"receiver_section"`

	ShowCommentTo   []ParticipantType `json:"show_comment_to"`
	ShowGiverNameTo []ParticipantType `json:"show_giver_name_to"`
	// When set, the parent question's visibility governs instead of the two lists above.
	IsVisibilityFollowingFeedbackQuestion bool `json:"is_visibility_following_feedback_question"`

	CreatedAt       time.Time `json:"created_at"`
	CommentText     string    `json:"comment_text"`
	LastEditorEmail string    `json:"last_editor_email"`
	LastEditedAt    time.Time `json:"last_edited_at"`
}

// NewCommentInput carries the constructor arguments. LastEditorEmail and LastEditedAt are
// optional; their zero values mean "not supplied".
type NewCommentInput struct {
	CourseID            string
	FeedbackSessionName string
	FeedbackQuestionID  string
	GiverEmail          string
	FeedbackResponseID  string
	SendingState        SendingState
	CreatedAt           time.Time
	CommentText         string
	GiverSection        string
	ReceiverSection     string
	ShowCommentTo       []ParticipantType
	ShowGiverNameTo     []ParticipantType
	LastEditorEmail     string
	LastEditedAt        time.Time
}

// NewFeedbackResponseComment builds an unpersisted comment. The text is sanitized, the last
// editor defaults to the giver, the last edit time defaults to the creation time and the
// follow-question flag always starts false.
func NewFeedbackResponseComment(in NewCommentInput) FeedbackResponseComment {
	c := FeedbackResponseComment{
		CourseID:            in.CourseID,
		FeedbackSessionName: in.FeedbackSessionName,
		FeedbackQuestionID:  in.FeedbackQuestionID,
		GiverEmail:          in.GiverEmail,
		FeedbackResponseID:  in.FeedbackResponseID,
		SendingState:        in.SendingState,
		CreatedAt:           in.CreatedAt,
		CommentText:         utils.Sanitize(in.CommentText),
		GiverSection:        in.GiverSection,
		ReceiverSection:     in.ReceiverSection,
		ShowCommentTo:       in.ShowCommentTo,
		ShowGiverNameTo:     in.ShowGiverNameTo,
		LastEditorEmail:     in.LastEditorEmail,
		LastEditedAt:        in.LastEditedAt,

		IsVisibilityFollowingFeedbackQuestion: false,
	}
	if c.LastEditorEmail == "" {
		c.LastEditorEmail = in.GiverEmail
	}
	if c.LastEditedAt.IsZero() {
		c.LastEditedAt = in.CreatedAt
	}
	return c
}

// ID returns the storage-assigned id and whether one has been assigned.
func (c FeedbackResponseComment) ID() (int64, bool) {
	if c.id == nil {
		return 0, false
	}
	return *c.id, true
}

// IsPersisted reports whether the storage layer has assigned an id.
func (c FeedbackResponseComment) IsPersisted() bool {
	return c.id != nil
}

// WithPersistedID returns a copy of c bound to id. Only the persistence adapter calls this,
// after the first successful save or when loading a stored row.
func WithPersistedID(c FeedbackResponseComment, id int64) (FeedbackResponseComment, error) {
	if c.id != nil {
		return c, ErrIDAlreadyAssigned
	}
	out := c.Clone()
	out.id = &id
	return out, nil
}

// Clone returns a copy that shares no slices with c.
func (c FeedbackResponseComment) Clone() FeedbackResponseComment {
	out := c
	out.ShowCommentTo = cloneParticipants(c.ShowCommentTo)
	out.ShowGiverNameTo = cloneParticipants(c.ShowGiverNameTo)
	return out
}

// QuestionVisibility is the visibility configured on the parent feedback question.
type QuestionVisibility struct {
	ShowResponsesTo []ParticipantType
	ShowGiverNameTo []ParticipantType
}

// EffectiveVisibility picks the authoritative visibility lists for c: the question's when
// IsVisibilityFollowingFeedbackQuestion is set, otherwise the comment's own.
func (c FeedbackResponseComment) EffectiveVisibility(q QuestionVisibility) (showCommentTo, showGiverNameTo []ParticipantType) {
	if c.IsVisibilityFollowingFeedbackQuestion {
		return q.ShowResponsesTo, q.ShowGiverNameTo
	}
	return c.ShowCommentTo, c.ShowGiverNameTo
}

type commentJSON struct {
	ID *int64 `json:"id"`
	commentFields
}

// commentFields drops the methods of FeedbackResponseComment so encoding/json uses the tags.
type commentFields FeedbackResponseComment

// MarshalJSON includes the id, which is null for unpersisted comments.
func (c FeedbackResponseComment) MarshalJSON() ([]byte, error) {
	return json.Marshal(commentJSON{ID: c.id, commentFields: commentFields(c)})
}

// UnmarshalJSON restores a comment previously produced by MarshalJSON, id included.
func (c *FeedbackResponseComment) UnmarshalJSON(b []byte) error {
	var aux commentJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*c = FeedbackResponseComment(aux.commentFields)
	c.id = aux.ID
	return nil
}

func cloneParticipants(in []ParticipantType) []ParticipantType {
	if in == nil {
		return nil
	}
	out := make([]ParticipantType, len(in))
	copy(out, in)
	return out
}
