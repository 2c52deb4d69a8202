package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"quizroom/internal/app"
	"quizroom/internal/domain"
	"quizroom/internal/infra/memory"
	"quizroom/internal/metrics"
)

const mathQuiz = `{
	"title": "Math",
	"questions": [
		{"text": "2+2?", "options": ["3", "4", "5"], "correct": [1]},
		{"text": "Primes?", "options": ["2", {"text": "3", "image": "/img/3.png"}, "4"], "correct": [0, 1]}
	]
}`

type testServer struct {
	t       *testing.T
	router  *gin.Engine
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := metrics.New(prometheus.NewRegistry())
	opts.Metrics = m
	service := app.NewQuizService(memory.NewSessionStore(), app.WithRecorder(m))
	router, err := NewRouter(NewHandler(service, zap.NewNop()), opts)
	require.NoError(t, err)
	return &testServer{t: t, router: router, metrics: m}
}

func (s *testServer) do(method, path, ip string, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.RemoteAddr = ip + ":40000"
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createQuiz() string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/quizzes", "10.0.0.1", mathQuiz)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Code string `json:"code"`
	}
	decode(s.t, rec, &resp)
	return resp.Code
}

func (s *testServer) join(code, name, ip string) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, "/api/quizzes/"+code+"/participants", ip, `{"name": "`+name+`"}`)
}

func (s *testServer) joinOK(code, name, ip string) string {
	s.t.Helper()
	rec := s.join(code, name, ip)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		ParticipantID string `json:"participantId"`
	}
	decode(s.t, rec, &resp)
	return resp.ParticipantID
}

func TestQuizFlow(t *testing.T) {
	srv := newTestServer(t, Options{})
	code := srv.createQuiz()
	pid := srv.joinOK(strings.ToLower(code), "Alice", "1.2.3.4")

	rec := srv.do(http.MethodGet, "/api/quizzes/"+code+"/participants/"+pid+"/question", "1.2.3.4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view domain.QuestionView
	decode(t, rec, &view)
	assert.Equal(t, "2+2?", view.Text)
	assert.Len(t, view.Options, 3)

	rec = srv.do(http.MethodPost, "/api/quizzes/"+code+"/participants/"+pid+"/answers", "1.2.3.4", `{"selected": [1]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// numeric strings, reversed order and junk are accepted
	rec = srv.do(http.MethodPost, "/api/quizzes/"+code+"/participants/"+pid+"/answers", "1.2.3.4", `{"selected": ["1", 0, "x"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var progress domain.Progress
	decode(t, rec, &progress)
	assert.True(t, progress.Correct)
	assert.True(t, progress.Completed)
	assert.Equal(t, 2, progress.Score)

	rec = srv.do(http.MethodGet, "/api/quizzes/"+code+"/participants/"+pid+"/question", "1.2.3.4", "")
	decode(t, rec, &view)
	assert.True(t, view.Completed)

	rec = srv.do(http.MethodPost, "/api/quizzes/"+code+"/participants/"+pid+"/answers", "1.2.3.4", `{"selected": [1]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(http.MethodGet, "/api/quizzes/"+code+"/participants/"+pid+"/result", "1.2.3.4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var result domain.Result
	decode(t, rec, &result)
	assert.Equal(t, 100, result.Percent)
	assert.Equal(t, 200, result.Points)
	assert.Equal(t, []string{"2", "3"}, result.Questions[1].Expected)

	rec = srv.do(http.MethodGet, "/api/quizzes/"+code+"/scoreboard", "10.0.0.1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var board domain.Scoreboard
	decode(t, rec, &board)
	require.Len(t, board.Entries, 1)
	assert.Equal(t, "Alice", board.Entries[0].Name)

	assert.Equal(t, float64(1), testutil.ToFloat64(srv.metrics.QuizzesCreated))
	assert.Equal(t, float64(2), testutil.ToFloat64(srv.metrics.Answers.WithLabelValues("true")))
}

func TestSubmitAnswerFromForm(t *testing.T) {
	srv := newTestServer(t, Options{})
	code := srv.createQuiz()
	pid := srv.joinOK(code, "Alice", "1.2.3.4")

	form := url.Values{"selected": {"1"}}
	req := httptest.NewRequest(http.MethodPost, "/api/quizzes/"+code+"/participants/"+pid+"/answers", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var progress domain.Progress
	decode(t, rec, &progress)
	assert.True(t, progress.Correct)
}

func TestCreateQuizValidationErrors(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := srv.do(http.MethodPost, "/api/quizzes", "10.0.0.1", `{"title": " ", "questions": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assertKind(t, rec, "validation")

	rec = srv.do(http.MethodPost, "/api/quizzes", "10.0.0.1", `{"title": "x", "questions": [{"text": "q", "options": ["a"], "correct": [3]}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodPost, "/api/quizzes", "10.0.0.1", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownQuiz(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := srv.do(http.MethodGet, "/api/quizzes/NOPE00", "10.0.0.1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assertKind(t, rec, "not_found")

	rec = srv.join("NOPE00", "Alice", "1.2.3.4")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAccessControl(t *testing.T) {
	srv := newTestServer(t, Options{})
	code := srv.createQuiz()

	rec := srv.do(http.MethodPost, "/api/quizzes/"+code+"/blacklist", "10.0.0.1", `{"ip": "9.9.9.9"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.join(code, "Bob", "9.9.9.9")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assertKind(t, rec, "access_denied")

	rec = srv.do(http.MethodPost, "/api/quizzes/"+code+"/whitelist", "10.0.0.1", `{"ip": "1.2.3.4"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.join(code, "Eve", "5.5.5.5")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assertKind(t, rec, "access_restricted")

	srv.joinOK(code, "Alice", "1.2.3.4")

	rec = srv.do(http.MethodGet, "/api/quizzes/"+code+"/access", "10.0.0.1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var lists domain.AccessLists
	decode(t, rec, &lists)
	assert.Equal(t, []string{"1.2.3.4"}, lists.Whitelist)
	assert.Equal(t, []string{"9.9.9.9"}, lists.Blacklist)
	require.Len(t, lists.Participants, 1)
	assert.Equal(t, "1.2.3.4", lists.Participants[0].IP)

	rec = srv.do(http.MethodDelete, "/api/quizzes/"+code+"/whitelist/1.2.3.4", "10.0.0.1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	srv.joinOK(code, "Eve", "5.5.5.5")

	rec = srv.do(http.MethodPost, "/api/quizzes/"+code+"/whitelist", "10.0.0.1", `{"ip": "not-an-ip"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(srv.metrics.Joins.WithLabelValues("denied")))
	assert.Equal(t, float64(1), testutil.ToFloat64(srv.metrics.Joins.WithLabelValues("restricted")))
}

func TestJoinRequiresName(t *testing.T) {
	srv := newTestServer(t, Options{})
	code := srv.createQuiz()

	rec := srv.join(code, "", "1.2.3.4")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assertKind(t, rec, "validation")
}

func TestJoinRateLimit(t *testing.T) {
	srv := newTestServer(t, Options{JoinPerMinute: 1, JoinBurst: 2})
	code := srv.createQuiz()

	srv.joinOK(code, "a", "1.2.3.4")
	srv.joinOK(code, "b", "1.2.3.4")
	rec := srv.join(code, "c", "1.2.3.4")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// other addresses have their own bucket
	srv.joinOK(code, "d", "5.6.7.8")
}

func TestRequestIDAndHealth(t *testing.T) {
	srv := newTestServer(t, Options{})

	rec := srv.do(http.MethodGet, "/healthz", "10.0.0.1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc")
	rec = httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(requestIDHeader))

	rec = srv.do(http.MethodGet, "/metrics", "10.0.0.1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "quizroom_quizzes_created_total")
}

func TestSelectionDecoding(t *testing.T) {
	cases := map[string][]string{
		`[1, 0]`:      {"1", "0"},
		`["2", "x"]`:  {"2", "x"},
		`1`:           {"1"},
		`"3"`:         {"3"},
		`[]`:          {},
		`[1.5, true]`: {"1.5", "true"},
	}
	for input, want := range cases {
		var s selection
		require.NoError(t, json.Unmarshal([]byte(input), &s), input)
		assert.Equal(t, want, []string(s), input)
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func assertKind(t *testing.T, rec *httptest.ResponseRecorder, kind string) {
	t.Helper()
	var body struct {
		Kind string `json:"kind"`
	}
	decode(t, rec, &body)
	assert.Equal(t, kind, body.Kind)
}
