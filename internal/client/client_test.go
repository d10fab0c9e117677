package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbecker/braincli/internal/models"
	"github.com/tbecker/braincli/internal/stream"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(url string) *Client {
	return New(url, testLogger())
}

const resultLine = `{"kind":"result","payload":{"serviceType":"recruiting","recruiting":{"title":"Office Manager","summary":"s","responsibilities":["a"],"requirements":["b"]},"metadata":{"generatedAt":"2026-01-10T12:00:00Z"}}}`

func TestSubmitIntake_StreamedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/jobs/intake", r.URL.Path)

		var intake models.IntakeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&intake))
		assert.Equal(t, "Acme", intake.CompanyName)

		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)

		// Flush mid-line to force a chunk boundary inside a message.
		lines := []string{
			`{"kind":"progress","stage":"classifying"}` + "\n",
			`{"kind":"progress","st`,
			`age":"drafting"}` + "\n",
			resultLine + "\n",
		}
		for _, line := range lines {
			io.WriteString(w, line)
			flusher.Flush()
		}
	}))
	defer server.Close()

	var stages []string
	result, err := newTestClient(server.URL).SubmitIntake(context.Background(),
		models.IntakeRequest{CompanyName: "Acme", Tasks: []string{"a"}, ServiceType: models.ServiceRecruiting},
		func(stage string) error {
			stages = append(stages, stage)
			return nil
		})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, []string{"classifying", "drafting"}, stages)
	assert.Equal(t, models.ServiceRecruiting, result.ServiceType)
	require.NotNil(t, result.Recruiting)
	assert.Equal(t, "Office Manager", result.Recruiting.Title)
}

func TestSubmitIntake_SingleDocumentResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"serviceType":"profile","profile":[{"title":"About","content":"x"}],"metadata":{"generatedAt":"2026-01-10T12:00:00Z"}}`)
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).SubmitIntake(context.Background(),
		models.IntakeRequest{CompanyName: "Acme", ServiceType: models.ServiceProfile}, nil)

	require.NoError(t, err)
	require.Len(t, result.Profile, 1)
	assert.Equal(t, "About", result.Profile[0].Title)
}

func TestSubmitIntake_HTTPErrorShortCircuits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, `{"error":"upstream model unavailable"}`)
	}))
	defer server.Close()

	stages := 0
	_, err := newTestClient(server.URL).SubmitIntake(context.Background(),
		models.IntakeRequest{CompanyName: "Acme"},
		func(string) error {
			stages++
			return nil
		})

	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "upstream model unavailable")
	assert.Zero(t, stages, "no progress may be reported on transport failure")
}

func TestSubmitIntake_IncompleteStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, `{"kind":"progress","stage":"classifying"}`+"\n")
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).SubmitIntake(context.Background(),
		models.IntakeRequest{CompanyName: "Acme"}, nil)
	require.ErrorIs(t, err, stream.ErrIncompleteStream)
}

func TestAuthorizeUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/uploads/authorize", r.URL.Path)

		var req UploadAuthorizationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "team.jpg", req.FileName)
		assert.Equal(t, "image/jpeg", req.MimeType)
		assert.Equal(t, "team-photo", req.FieldID)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"authorizedUrl":"http://storage.local/put/abc","fileUrl":"http://cdn.local/abc","storageKey":"tenants/t1/abc"}`)
	}))
	defer server.Close()

	auth, err := newTestClient(server.URL).AuthorizeUpload(context.Background(), UploadAuthorizationRequest{
		FileName: "team.jpg",
		MimeType: "image/jpeg",
		FieldID:  "team-photo",
	})

	require.NoError(t, err)
	assert.Equal(t, "http://storage.local/put/abc", auth.AuthorizedURL)
	assert.Equal(t, "tenants/t1/abc", auth.StorageKey)
}

func TestPutFile(t *testing.T) {
	var gotBody atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		gotBody.Store(string(body))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	require.NoError(t, c.PutFile(context.Background(), server.URL+"/put/abc", "image/jpeg", strings.NewReader("raw-bytes")))
	assert.Equal(t, "raw-bytes", gotBody.Load())
}

func TestPutFile_RejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	err := newTestClient(server.URL).PutFile(context.Background(), server.URL+"/put/abc", "image/jpeg", strings.NewReader("x"))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestAnalyzeCompletion_ForceRefreshForwarded(t *testing.T) {
	var sawForce atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ForceRefresh bool `json:"forceRefresh"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		sawForce.Store(req.ForceRefresh)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"cards":[{"title":"Services","missingFields":[{"fieldId":"hours","label":"Opening hours","kind":"text"}]}],"lastAnalyzedAt":"2026-01-10T12:00:00Z"}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	analysis, err := c.AnalyzeCompletion(context.Background(), "t1", true)
	require.NoError(t, err)
	assert.True(t, sawForce.Load())
	require.Len(t, analysis.Cards, 1)
	assert.Equal(t, "hours", analysis.Cards[0].MissingFields[0].FieldID)
	assert.False(t, analysis.LastAnalyzedAt.IsZero())
}

func TestChatStream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tenants/t1/brain/chat", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var ask chatMessage
		require.NoError(t, conn.ReadJSON(&ask))
		assert.Equal(t, chatAsk, ask.Type)
		assert.Equal(t, "what do we sell?", ask.Question)

		conn.WriteJSON(chatMessage{Type: chatKeepAlive})
		conn.WriteJSON(chatMessage{Type: chatToken, Token: "We sell "})
		conn.WriteJSON(chatMessage{Type: chatToken, Token: "widgets."})
		conn.WriteJSON(chatMessage{Type: chatDone})
	}))
	defer server.Close()

	var answer strings.Builder
	err := newTestClient(server.URL).ChatStream(context.Background(), "t1", "what do we sell?", func(token string) error {
		answer.WriteString(token)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "We sell widgets.", answer.String())
}

func TestChatStream_ErrorFrame(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var ask chatMessage
		require.NoError(t, conn.ReadJSON(&ask))
		conn.WriteJSON(chatMessage{Type: chatError, Error: "brain not synthesized yet"})
	}))
	defer server.Close()

	err := newTestClient(server.URL).ChatStream(context.Background(), "t1", "hi", func(string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brain not synthesized yet")
}
