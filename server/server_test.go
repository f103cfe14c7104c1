package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/pagecite/internal/models"
	"github.com/xhad/pagecite/internal/types"
)

type fakeEngine struct {
	answer   *models.Answer
	err      error
	history  []models.Message
	elements []models.LayoutElement
}

func (f *fakeEngine) Ask(_ context.Context, question string) (*models.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", types.ErrInvalidArgument)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

func (f *fakeEngine) History(context.Context) ([]models.Message, error) {
	return f.history, nil
}

func (f *fakeEngine) PageLayout(_ context.Context, page int) ([]models.LayoutElement, error) {
	if page != 2 {
		return nil, fmt.Errorf("%w: no layout for page %d", types.ErrNotFound, page)
	}
	return f.elements, nil
}

func sampleAnswer() *models.Answer {
	return &models.Answer{
		Answer:      "Revenue was $10M [Page 2].",
		Pages:       []int{2},
		ChunkGroups: map[int][]string{2: {"Revenue was $10M in 2023."}},
		Highlights: []models.Highlight{{
			Page:     2,
			Polygons: []models.Polygon{{{X: 1, Y: 2}, {X: 3, Y: 4}}},
			Lines:    []string{"Revenue was $10M in 2023."},
		}},
	}
}

func newTestServer(engine Engine) *httptest.Server {
	return httptest.NewServer(NewWithConfig(Config{}, engine).Handler())
}

func TestAsk(t *testing.T) {
	ts := newTestServer(&fakeEngine{answer: sampleAnswer()})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/ask", "application/json", strings.NewReader(`{"question":"What is the revenue?"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var body map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.JSONEq(t, `"Revenue was $10M [Page 2]."`, string(body["answer"]))
	assert.JSONEq(t, `[2]`, string(body["related_pages"]))
	assert.JSONEq(t, `{"2":["Revenue was $10M in 2023."]}`, string(body["related_chunks"]))
	assert.JSONEq(t, `[{"page":2,"polygons":[[[1,2],[3,4]]],"lines":["Revenue was $10M in 2023."]}]`, string(body["highlights"]))
}

func TestAskRagResponseAlias(t *testing.T) {
	ts := newTestServer(&fakeEngine{answer: sampleAnswer()})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/ask/rag_response", "application/json", strings.NewReader(`{"question":"q"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAskErrors(t *testing.T) {
	tests := []struct {
		name   string
		engine *fakeEngine
		body   string
		status int
	}{
		{"invalid json", &fakeEngine{}, `{`, http.StatusBadRequest},
		{"empty question", &fakeEngine{}, `{"question":"  "}`, http.StatusBadRequest},
		{"completion failure", &fakeEngine{err: fmt.Errorf("%w: rate limited", types.ErrCompletionFailure)}, `{"question":"q"}`, http.StatusBadGateway},
		{"unexpected", &fakeEngine{err: errors.New("boom")}, `{"question":"q"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(tt.engine)
			defer ts.Close()

			resp, err := http.Post(ts.URL+"/ask", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestPreflight(t *testing.T) {
	ts := newTestServer(&fakeEngine{})
	defer ts.Close()

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/ask", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestRestrictedOrigins(t *testing.T) {
	s := NewWithConfig(Config{AllowedOrigins: []string{"http://app.local"}}, &fakeEngine{})
	assert.Equal(t, "http://app.local", s.allowedOrigin("http://app.local"))
	assert.Equal(t, "", s.allowedOrigin("http://evil.local"))
	assert.Equal(t, "", s.allowedOrigin(""))
}

func TestHistory(t *testing.T) {
	ts := newTestServer(&fakeEngine{history: []models.Message{
		{UserInput: "q1", AssistantMessage: "a1", SourcePages: []int{1}},
	}})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/history")
	require.NoError(t, err)
	defer resp.Body.Close()

	var messages []models.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "q1", messages[0].UserInput)
	assert.Equal(t, []int{1}, messages[0].SourcePages)
}

func TestPageLayout(t *testing.T) {
	elements := []models.LayoutElement{{Text: "Heading", Label: "title", Page: "page_2", Polygon: models.Polygon{{X: 0, Y: 0}}}}
	ts := newTestServer(&fakeEngine{elements: elements})
	defer ts.Close()

	tests := []struct {
		path   string
		status int
	}{
		{"/pages/2/layout", http.StatusOK},
		{"/pages/page_2/layout", http.StatusOK},
		{"/pages/5/layout", http.StatusNotFound},
		{"/pages/abc/layout", http.StatusBadRequest},
		{"/pages/page_0/layout", http.StatusBadRequest},
		{"/pages/page_x/layout", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)

			if tt.status == http.StatusOK {
				var got []models.LayoutElement
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
				assert.Equal(t, elements, got)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(&fakeEngine{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebSocket(t *testing.T) {
	ts := newTestServer(&fakeEngine{answer: sampleAnswer()})
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Message{Type: "question", Content: "What is the revenue?"}))

	var status, response Message
	require.NoError(t, conn.ReadJSON(&status))
	assert.Equal(t, "status", status.Type)
	require.NoError(t, conn.ReadJSON(&response))
	assert.Equal(t, "response", response.Type)
	assert.Equal(t, "Revenue was $10M [Page 2].", response.Content)

	require.NoError(t, conn.WriteJSON(Message{Type: "question", Content: ""}))
	require.NoError(t, conn.ReadJSON(&status))
	var failure Message
	require.NoError(t, conn.ReadJSON(&failure))
	assert.Equal(t, "error", failure.Type)
	assert.Contains(t, failure.Content, "question is empty")

	require.NoError(t, conn.WriteJSON(Message{Type: "bogus"}))
	require.NoError(t, conn.ReadJSON(&failure))
	assert.Equal(t, "error", failure.Type)
}
