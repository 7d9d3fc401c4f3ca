package models

import (
	"time"

	"github.com/cppla/frcomments/utils"
)

// CommentPatch lists only the fields being changed; nil means "leave as is".
type CommentPatch struct {
	GiverEmail         *string
	FeedbackResponseID *string
	SendingState       *SendingState
	GiverSection       *string
	ReceiverSection    *string
	ShowCommentTo      *[]ParticipantType
	ShowGiverNameTo    *[]ParticipantType

	IsVisibilityFollowingFeedbackQuestion *bool

	CommentText     *string
	LastEditorEmail *string
	LastEditedAt    *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p CommentPatch) IsEmpty() bool {
	return p == CommentPatch{}
}

// ApplyTo returns a copy of c with the patch applied. New comment text is sanitized.
func (p CommentPatch) ApplyTo(c FeedbackResponseComment) FeedbackResponseComment {
	out := c.Clone()
	if p.GiverEmail != nil {
		out.GiverEmail = *p.GiverEmail
	}
	if p.FeedbackResponseID != nil {
		out.FeedbackResponseID = *p.FeedbackResponseID
	}
	if p.SendingState != nil {
		out.SendingState = *p.SendingState
	}
	if p.GiverSection != nil {
		out.GiverSection = *p.GiverSection
	}
	if p.ReceiverSection != nil {
		out.ReceiverSection = *p.ReceiverSection
	}
	if p.ShowCommentTo != nil {
		out.ShowCommentTo = cloneParticipants(*p.ShowCommentTo)
	}
	if p.ShowGiverNameTo != nil {
		out.ShowGiverNameTo = cloneParticipants(*p.ShowGiverNameTo)
	}
	if p.IsVisibilityFollowingFeedbackQuestion != nil {
		out.IsVisibilityFollowingFeedbackQuestion = *p.IsVisibilityFollowingFeedbackQuestion
	}
	if p.CommentText != nil {
		out.CommentText = utils.Sanitize(*p.CommentText)
	}
	if p.LastEditorEmail != nil {
		out.LastEditorEmail = *p.LastEditorEmail
	}
	if p.LastEditedAt != nil {
		out.LastEditedAt = *p.LastEditedAt
	}
	return out
}

// EditPatch changes the text together with who edited it and when.
func EditPatch(editorEmail, text string, at time.Time) CommentPatch {
	return CommentPatch{
		CommentText:     &text,
		LastEditorEmail: &editorEmail,
		LastEditedAt:    &at,
	}
}
