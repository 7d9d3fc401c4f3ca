package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var createdAt = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newInput() NewCommentInput {
	return NewCommentInput{
		CourseID:            "CS101",
		FeedbackSessionName: "Mid-term feedback",
		FeedbackQuestionID:  "q-1",
		GiverEmail:          "instructor@uni.edu",
		FeedbackResponseID:  "q-1%giver@uni.edu%receiver@uni.edu",
		SendingState:        SendingStatePending,
		CreatedAt:           createdAt,
		CommentText:         "Good work",
		GiverSection:        "Section A",
		ReceiverSection:     "Section B",
		ShowCommentTo:       []ParticipantType{ParticipantGiver, ParticipantInstructors},
		ShowGiverNameTo:     []ParticipantType{ParticipantInstructors},
	}
}

func TestNewFeedbackResponseComment_Defaults(t *testing.T) {
	c := NewFeedbackResponseComment(newInput())

	assert.Equal(t, "instructor@uni.edu", c.LastEditorEmail)
	assert.True(t, c.LastEditedAt.Equal(createdAt))
	assert.False(t, c.IsVisibilityFollowingFeedbackQuestion)
	assert.False(t, c.IsPersisted())
	_, ok := c.ID()
	assert.False(t, ok)
	assert.Equal(t, "Good work", c.CommentText)
	assert.Equal(t, SendingStatePending, c.SendingState)
}

func TestNewFeedbackResponseComment_KeepsExplicitEditor(t *testing.T) {
	in := newInput()
	editedAt := createdAt.Add(2 * time.Hour)
	in.LastEditorEmail = "coowner@uni.edu"
	in.LastEditedAt = editedAt

	c := NewFeedbackResponseComment(in)

	assert.Equal(t, "coowner@uni.edu", c.LastEditorEmail)
	assert.True(t, c.LastEditedAt.Equal(editedAt))
	assert.True(t, c.CreatedAt.Equal(createdAt))
}

func TestNewFeedbackResponseComment_SanitizesText(t *testing.T) {
	in := newInput()
	in.CommentText = `<script>alert(1)</script><b>bold</b>`

	c := NewFeedbackResponseComment(in)

	assert.NotContains(t, c.CommentText, "<script")
	assert.NotContains(t, c.CommentText, "alert(1)")
	assert.Contains(t, c.CommentText, "<b>bold</b>")
}

func TestNewFeedbackResponseComment_SanitizesEventHandlers(t *testing.T) {
	in := newInput()
	in.CommentText = `<p onclick="steal()">hi</p>`

	c := NewFeedbackResponseComment(in)

	assert.Equal(t, "<p>hi</p>", c.CommentText)
}

func TestWithPersistedID(t *testing.T) {
	c := NewFeedbackResponseComment(newInput())

	persisted, err := WithPersistedID(c, 42)
	require.NoError(t, err)
	id, ok := persisted.ID()
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.True(t, persisted.IsPersisted())
	assert.False(t, c.IsPersisted(), "original must stay unbound")

	_, err = WithPersistedID(persisted, 43)
	assert.ErrorIs(t, err, ErrIDAlreadyAssigned)
	id, _ = persisted.ID()
	assert.Equal(t, int64(42), id)
}

func TestClone_DoesNotShareLists(t *testing.T) {
	c := NewFeedbackResponseComment(newInput())
	clone := c.Clone()
	clone.ShowCommentTo[0] = ParticipantNone

	assert.Equal(t, ParticipantGiver, c.ShowCommentTo[0])
}

func TestEffectiveVisibility(t *testing.T) {
	q := QuestionVisibility{
		ShowResponsesTo: []ParticipantType{ParticipantReceiver},
		ShowGiverNameTo: []ParticipantType{ParticipantNone},
	}
	c := NewFeedbackResponseComment(newInput())

	showTo, nameTo := c.EffectiveVisibility(q)
	assert.Equal(t, []ParticipantType{ParticipantGiver, ParticipantInstructors}, showTo)
	assert.Equal(t, []ParticipantType{ParticipantInstructors}, nameTo)

	c.IsVisibilityFollowingFeedbackQuestion = true
	showTo, nameTo = c.EffectiveVisibility(q)
	assert.Equal(t, q.ShowResponsesTo, showTo)
	assert.Equal(t, q.ShowGiverNameTo, nameTo)
}

func TestFeedbackResponseComment_JSON(t *testing.T) {
	c := NewFeedbackResponseComment(newInput())

	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"id":null`)

	persisted, err := WithPersistedID(c, 7)
	require.NoError(t, err)
	b, err = json.Marshal(persisted)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"id":7`)
	assert.Contains(t, string(b), `"course_id":"CS101"`)

	var decoded FeedbackResponseComment
	require.NoError(t, json.Unmarshal(b, &decoded))
	id, ok := decoded.ID()
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, persisted.FeedbackResponseID, decoded.FeedbackResponseID)
	assert.True(t, decoded.CreatedAt.Equal(createdAt))
}
