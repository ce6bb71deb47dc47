package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/theraia/internal/api"
	"github.com/petasbytes/theraia/internal/config"
	"github.com/petasbytes/theraia/internal/flows"
	"github.com/petasbytes/theraia/internal/obfuscate"
	"github.com/petasbytes/theraia/internal/record"
	"github.com/petasbytes/theraia/internal/session"
	"github.com/petasbytes/theraia/internal/summarizer"
	"github.com/petasbytes/theraia/tools"
)

type fakeCollaborator struct {
	mu   sync.Mutex
	fail map[string]bool
}

var outputs = map[string]string{
	tools.IntroductionTool:      `{"name":"Alex","introduction":"Work stress.","response":"Thanks, Alex. Where would you like to start?"}`,
	tools.TherapyReplyTool:      `{"response":"I hear you."}`,
	tools.WelcomeBackTool:       `{"userName":"Alex","message":"Welcome back, Alex."}`,
	tools.ConcludingMessageTool: `{"message":"Take care."}`,
	tools.SessionSummaryTool:    `{"summary":"Work stress.","therapeuticNotes":"Sleep."}`,
}

func (f *fakeCollaborator) Complete(ctx context.Context, req flows.Request) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[req.Tool.Name] {
		return nil, errors.New("upstream down")
	}
	return json.RawMessage(outputs[req.Tool.Name]), nil
}

type env struct {
	router http.Handler
	fake   *fakeCollaborator
	codec  obfuscate.Codec
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	fake := &fakeCollaborator{fail: map[string]bool{}}
	fl := flows.New(fake)
	deps := session.Deps{
		Flows:      fl,
		Summarizer: summarizer.New(fl),
		Codec:      obfuscate.RotationCodec{},
	}
	srv := api.NewServer(config.Default(), session.NewManager(deps, 0))
	return &env{router: srv.Router(), fake: fake, codec: deps.Codec}
}

func (e *env) do(t *testing.T, method, path string, body *bytes.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func jsonBody(v any) *bytes.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

type envelope[T any] struct {
	Data T `json:"data"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out.Data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) api.ErrorCode {
	t.Helper()
	var out api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out.Error.Code
}

func (e *env) create(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/sessions", bytes.NewReader(nil), "")
	require.Equal(t, http.StatusCreated, w.Code)
	v := decode[api.SessionView](t, w)
	assert.Equal(t, "/api/sessions/"+v.ID, w.Header().Get("Location"))
	assert.Equal(t, session.PhaseNotStarted, v.Phase)
	return v.ID
}

func TestFirstSessionOverHTTP(t *testing.T) {
	e := newEnv(t)
	id := e.create(t)
	base := "/api/sessions/" + id

	w := e.do(t, http.MethodPost, base+"/begin", bytes.NewReader(nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	turn := decode[api.TurnResponse](t, w)
	assert.Equal(t, session.WelcomePrompt, turn.Message)
	assert.Equal(t, session.PhaseGatheringIntroduction, turn.Session.Phase)

	w = e.do(t, http.MethodPost, base+"/messages", jsonBody(api.SendMessageRequest{Message: "Hi, I'm Alex"}), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	turn = decode[api.TurnResponse](t, w)
	assert.Equal(t, session.PhaseChatting, turn.Session.Phase)
	require.NotNil(t, turn.Session.Identity)
	assert.Equal(t, "Alex", turn.Session.Identity.Name)

	w = e.do(t, http.MethodGet, base+"/record", bytes.NewReader(nil), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPost, base+"/conclude", bytes.NewReader(nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	done := decode[api.ConcludeResponse](t, w)
	assert.Equal(t, "theraia_record_alex.txt", done.Filename)
	assert.Equal(t, base+"/record", done.RecordURL)
	assert.Equal(t, session.PhaseConcluded, done.Session.Phase)

	w = e.do(t, http.MethodGet, base+"/record", bytes.NewReader(nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename=theraia_record_alex.txt`)
	text, err := e.codec.Decode(w.Body.String())
	require.NoError(t, err)
	r, err := record.Parse(text)
	require.NoError(t, err)
	assert.Equal(t, "Alex", r.Patient.Name)

	w = e.do(t, http.MethodPost, base+"/messages", jsonBody(api.SendMessageRequest{Message: "more"}), "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, api.ErrCodeInvalidState, errorCode(t, w))
}

func TestUpload_RawAndMultipart(t *testing.T) {
	e := newEnv(t)
	blob, err := e.codec.Encode(record.Serialize(&record.Record{
		Patient: &record.PatientInfo{Name: "Alex"},
		Entries: []record.Entry{{Date: "2025-03-01", Summary: "s", TherapeuticNotes: "n"}},
	}))
	require.NoError(t, err)

	id := e.create(t)
	w := e.do(t, http.MethodPost, "/api/sessions/"+id+"/upload", bytes.NewReader([]byte(blob)), "text/plain")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	turn := decode[api.TurnResponse](t, w)
	assert.Equal(t, "Welcome back, Alex.", turn.Message)
	assert.True(t, turn.Session.HasPriorRecord)
	assert.Equal(t, session.PhaseChatting, turn.Session.Phase)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("record", "theraia_record_alex.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte(blob))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	id = e.create(t)
	w = e.do(t, http.MethodPost, "/api/sessions/"+id+"/upload", bytes.NewReader(buf.Bytes()), mw.FormDataContentType())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestUpload_Errors(t *testing.T) {
	e := newEnv(t)

	id := e.create(t)
	w := e.do(t, http.MethodPost, "/api/sessions/"+id+"/upload", bytes.NewReader(nil), "text/plain")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	big := bytes.Repeat([]byte("a"), api.MaxRecordBytes+1)
	w = e.do(t, http.MethodPost, "/api/sessions/"+id+"/upload", bytes.NewReader(big), "text/plain")
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	e.fake.fail[tools.WelcomeBackTool] = true
	w = e.do(t, http.MethodPost, "/api/sessions/"+id+"/upload", bytes.NewReader([]byte("bcd")), "text/plain")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, api.ErrCodeUpstream, errorCode(t, w))

	w = e.do(t, http.MethodGet, "/api/sessions/"+id, bytes.NewReader(nil), "")
	assert.Equal(t, session.PhaseNotStarted, decode[api.SessionView](t, w).Phase)
}

func TestErrorMapping(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/api/sessions/nope", bytes.NewReader(nil), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, api.ErrCodeNotFound, errorCode(t, w))

	id := e.create(t)
	base := "/api/sessions/" + id

	w = e.do(t, http.MethodPost, base+"/conclude", bytes.NewReader(nil), "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = e.do(t, http.MethodPost, base+"/messages", jsonBody(map[string]string{}), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	e.do(t, http.MethodPost, base+"/begin", bytes.NewReader(nil), "")
	e.fake.fail[tools.IntroductionTool] = true
	w = e.do(t, http.MethodPost, base+"/messages", jsonBody(api.SendMessageRequest{Message: "Hi"}), "application/json")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = e.do(t, http.MethodGet, base, bytes.NewReader(nil), "")
	v := decode[api.SessionView](t, w)
	assert.Len(t, v.Transcript, 1)
	assert.Equal(t, session.PhaseGatheringIntroduction, v.Phase)

	w = e.do(t, http.MethodDelete, base, bytes.NewReader(nil), "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = e.do(t, http.MethodDelete, base, bytes.NewReader(nil), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodGet, "/api/unknown", bytes.NewReader(nil), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	e.create(t)

	w := e.do(t, http.MethodGet, "/api/health", bytes.NewReader(nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `"total":1`))
}

func TestGzipWhenAccepted(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}
