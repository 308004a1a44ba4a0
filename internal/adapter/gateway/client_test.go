package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0ngyang/catai/internal/domain"
)

func TestClientRoutes(t *testing.T) {
	var submitted domain.SubmitToolOutputsRequest
	var added domain.MessageRequest

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/threads", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.CreateThreadResponse{ThreadID: "thread_1"})
	})
	mux.HandleFunc("POST /v1/threads/thread_1/messages", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&added))
		writeJSON(w, http.StatusOK, domain.AddMessageResult{
			RunID:   "run_1",
			Message: domain.Message{ID: "msg_1", Role: domain.RoleUser, Content: []domain.ContentPart{domain.TextPart(added.Content)}},
		})
	})
	mux.HandleFunc("GET /v1/threads/thread_1/runs/run_1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.Run{ID: "run_1", ThreadID: "thread_1", Status: domain.RunStatusCompleted})
	})
	mux.HandleFunc("GET /v1/threads/thread_1/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.ListMessagesResponse{Messages: []domain.Message{{ID: "msg_1"}, {ID: "msg_2"}}})
	})
	mux.HandleFunc("POST /v1/threads/thread_1/runs/run_1/submit_tool_outputs", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&submitted))
		writeJSON(w, http.StatusOK, domain.Run{ID: "run_1", ThreadID: "thread_1", Status: domain.RunStatusInProgress})
	})
	mux.HandleFunc("POST /get_cats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []domain.CatImage{{ID: "a", URL: "https://cdn/a.jpg"}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx := context.Background()
	client := NewClient(server.URL+"/", 5*time.Second)

	threadID, err := client.CreateThread(ctx)
	require.NoError(t, err)
	assert.Equal(t, "thread_1", threadID)

	res, err := client.AddMessage(ctx, threadID, domain.MessageRequest{Content: "hi", Nonce: "n-1"})
	require.NoError(t, err)
	assert.Equal(t, "run_1", res.RunID)
	assert.Equal(t, "n-1", added.Nonce)

	run, err := client.GetRun(ctx, threadID, "run_1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, run.Status)

	messages, err := client.ListMessages(ctx, threadID)
	require.NoError(t, err)
	assert.Len(t, messages, 2)

	run, err = client.SubmitToolOutputs(ctx, threadID, "run_1", []domain.ToolOutput{{ToolCallID: "call_1", Output: "{}"}})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusInProgress, run.Status)
	assert.Equal(t, "call_1", submitted.ToolOutputs[0].ToolCallID)

	images, err := client.GetCats(ctx, domain.GetCatsRequest{Count: 1})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/a.jpg", images[0].URL)
}

func TestClientDecodesErrors(t *testing.T) {
	cases := []struct {
		status int
		code   string
		want   error
	}{
		{http.StatusNotFound, domain.ErrorCodeNotFound, domain.ErrNotFound},
		{http.StatusConflict, domain.ErrorCodeConflict, domain.ErrConflict},
		{http.StatusBadRequest, domain.ErrorCodeToolMismatch, domain.ErrToolOutputMismatch},
		{http.StatusBadRequest, domain.ErrorCodeInvalidRequest, domain.ErrInvalidRequest},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, domain.ErrorResponse{Error: "nope", Code: tc.code})
			}))
			defer server.Close()

			_, err := NewClient(server.URL, time.Second).GetRun(context.Background(), "t", "r")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), err.Error())
		})
	}
}

func TestClientPlainErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).CreateThread(context.Background())
	assert.ErrorContains(t, err, "status 502")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
