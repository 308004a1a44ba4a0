package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatusClassification(t *testing.T) {
	for _, s := range []RunStatus{RunStatusQueued, RunStatusInProgress, RunStatusCancelling} {
		assert.True(t, s.IsActive(), s)
		assert.False(t, s.IsTerminal(), s)
	}
	assert.False(t, RunStatusRequiresAction.IsActive())
	assert.False(t, RunStatusRequiresAction.IsTerminal())
	for _, s := range []RunStatus{RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired, RunStatusIncomplete, "mystery"} {
		assert.True(t, s.IsTerminal(), s)
	}
}

func TestMessageDecodesContentUnion(t *testing.T) {
	raw := `{
		"id": "msg_1", "object": "thread.message", "created_at": 1700000000, "thread_id": "thread_1",
		"role": "assistant", "run_id": null, "assistant_id": null,
		"content": [
			{"type": "text", "text": {"value": "Here you go", "annotations": []}},
			{"type": "image_url", "image_url": {"url": "https://cdn/a.jpg", "detail": "auto"}},
			{"type": "image_file", "image_file": {"file_id": "file_9"}},
			{"type": "refusal", "refusal": "no dogs"}
		],
		"metadata": {}
	}`
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Empty(t, msg.RunID)
	require.Len(t, msg.Content, 4)
	assert.Equal(t, "Here you go\n[image https://cdn/a.jpg]\n[image file file_9]\n[refused] no dogs", msg.Text())
}

func TestMessageCloneIsDeep(t *testing.T) {
	msg := Message{
		ID:       "m",
		Content:  []ContentPart{TextPart("hi")},
		Metadata: map[string]any{MetadataClientNonce: "n"},
	}
	clone := msg.Clone()
	clone.Content[0].Text.Value = "changed"
	clone.Metadata[MetadataClientNonce] = "other"

	assert.Equal(t, "hi", msg.Content[0].Text.Value)
	assert.Equal(t, "n", msg.Nonce())
}

func TestSortMessagesIsStable(t *testing.T) {
	messages := []Message{
		{ID: "c", CreatedAt: 30},
		{ID: "a1", CreatedAt: 10},
		{ID: "b", CreatedAt: 20},
		{ID: "a2", CreatedAt: 10},
	}
	SortMessages(messages)

	ids := make([]string, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"a1", "a2", "b", "c"}, ids)
}

func TestMatchToolOutputs(t *testing.T) {
	calls := []ToolCall{{ID: "call_1"}, {ID: "call_2"}}

	assert.NoError(t, MatchToolOutputs(calls, []ToolOutput{{ToolCallID: "call_2"}, {ToolCallID: "call_1"}}))

	err := MatchToolOutputs(calls, []ToolOutput{{ToolCallID: "call_1"}})
	assert.True(t, errors.Is(err, ErrToolOutputMismatch))
	assert.ErrorContains(t, err, "missing call_2")

	err = MatchToolOutputs(calls, []ToolOutput{{ToolCallID: "call_1"}, {ToolCallID: "call_2"}, {ToolCallID: "call_3"}})
	assert.ErrorContains(t, err, "unexpected call_3")

	err = MatchToolOutputs(calls, []ToolOutput{{ToolCallID: "call_1"}, {ToolCallID: "call_1"}, {ToolCallID: "call_2"}})
	assert.ErrorContains(t, err, "duplicate call_1")

	assert.NoError(t, MatchToolOutputs(nil, nil))
}

func TestRunPendingToolCalls(t *testing.T) {
	var nilRun *Run
	assert.Nil(t, nilRun.PendingToolCalls())
	assert.False(t, nilRun.NeedsToolOutputs())

	run := &Run{
		Status: RunStatusRequiresAction,
		RequiredAction: &RequiredAction{
			Type:              RequiredActionSubmitToolOutputs,
			SubmitToolOutputs: &SubmitToolOutputs{ToolCalls: []ToolCall{{ID: "call_1", Function: FunctionCall{Name: "getCatImage"}}}},
		},
	}
	assert.True(t, run.NeedsToolOutputs())
	assert.Len(t, run.PendingToolCalls(), 1)
	assert.JSONEq(t, `{}`, string(run.PendingToolCalls()[0].Args()))

	run.RequiredAction.Type = "something_else"
	assert.False(t, run.NeedsToolOutputs())
}

func TestImageURLs(t *testing.T) {
	urls := ImageURLs([]CatImage{{URL: "a"}, {URL: ""}, {URL: "b"}})
	assert.Equal(t, []string{"a", "b"}, urls)
}

func TestEmptyRefusalRendering(t *testing.T) {
	assert.Equal(t, "[refused]", ContentPart{Type: ContentTypeRefusal}.String())
}
