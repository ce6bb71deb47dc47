package api

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/petasbytes/theraia/internal/session"
	"github.com/petasbytes/theraia/memory"
)

// MaxRecordBytes caps an uploaded record file.
const MaxRecordBytes = 1 << 20

// Handlers serves the session routes.
type Handlers struct {
	manager *session.Manager
}

// NewHandlers returns handlers backed by manager.
func NewHandlers(manager *session.Manager) *Handlers {
	return &Handlers{manager: manager}
}

// SessionView is the JSON form of a session.
type SessionView struct {
	ID             string            `json:"id"`
	Phase          session.Phase     `json:"phase"`
	Transcript     []memory.Message  `json:"transcript"`
	Identity       *session.Identity `json:"identity,omitempty"`
	Busy           bool              `json:"busy"`
	HasPriorRecord bool              `json:"hasPriorRecord"`
	RecordURL      string            `json:"recordUrl,omitempty"`
}

func viewOf(st session.State) SessionView {
	v := SessionView{
		ID:             st.ID,
		Phase:          st.Phase,
		Transcript:     st.Transcript,
		Identity:       st.Identity,
		Busy:           st.Busy,
		HasPriorRecord: st.PriorRecord != nil,
	}
	if v.Transcript == nil {
		v.Transcript = []memory.Message{}
	}
	if st.Artifact != nil {
		v.RecordURL = recordURL(st.ID)
	}
	return v
}

func recordURL(id string) string { return "/api/sessions/" + id + "/record" }

// TurnResponse is returned by operations that produce an assistant message.
type TurnResponse struct {
	Message string      `json:"message"`
	Session SessionView `json:"session"`
}

// ConcludeResponse is returned by a successful conclude.
type ConcludeResponse struct {
	Message   string      `json:"message"`
	Final     string      `json:"final"`
	Filename  string      `json:"filename"`
	RecordURL string      `json:"recordUrl"`
	Session   SessionView `json:"session"`
}

// SendMessageRequest is the body of POST /sessions/:id/messages.
type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// Health reports liveness and session counts.
func (h *Handlers) Health(c *gin.Context) {
	RespondData(c, gin.H{"status": "ok", "sessions": h.manager.Stats()})
}

// CreateSession handles POST /api/sessions.
func (h *Handlers) CreateSession(c *gin.Context) {
	id, m := h.manager.Create()
	RespondCreated(c, viewOf(m.Snapshot()), "/api/sessions/"+id)
}

// GetSession handles GET /api/sessions/:id.
func (h *Handlers) GetSession(c *gin.Context) {
	m, ok := h.lookup(c)
	if !ok {
		return
	}
	RespondData(c, viewOf(m.Snapshot()))
}

// DeleteSession handles DELETE /api/sessions/:id.
func (h *Handlers) DeleteSession(c *gin.Context) {
	if err := h.manager.Delete(c.Param("id")); err != nil {
		RespondSessionError(c, err)
		return
	}
	RespondNoContent(c)
}

// Begin handles POST /api/sessions/:id/begin.
func (h *Handlers) Begin(c *gin.Context) {
	m, ok := h.lookup(c)
	if !ok {
		return
	}
	msg, err := m.Begin(c.Request.Context())
	if err != nil {
		RespondSessionError(c, err)
		return
	}
	RespondData(c, TurnResponse{Message: msg, Session: viewOf(m.Snapshot())})
}

// Upload handles POST /api/sessions/:id/upload. The record is either a
// multipart file field named "record" or the raw request body.
func (h *Handlers) Upload(c *gin.Context) {
	m, ok := h.lookup(c)
	if !ok {
		return
	}
	blob, err := readRecord(c)
	if err != nil {
		RespondSessionError(c, err)
		return
	}
	if strings.TrimSpace(blob) == "" {
		RespondBadRequest(c, "No record file was provided.")
		return
	}
	msg, err := m.Upload(c.Request.Context(), blob)
	if err != nil {
		RespondSessionError(c, err)
		return
	}
	RespondData(c, TurnResponse{Message: msg, Session: viewOf(m.Snapshot())})
}

func readRecord(c *gin.Context) (string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxRecordBytes)

	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if mediaType != "multipart/form-data" {
		b, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return "", fmt.Errorf("read body: %w", err)
		}
		return string(b), nil
	}

	fh, err := c.FormFile("record")
	if err != nil {
		if err == http.ErrMissingFile {
			return "", nil
		}
		return "", fmt.Errorf("read form: %w", err)
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	return string(b), nil
}

// SendMessage handles POST /api/sessions/:id/messages.
func (h *Handlers) SendMessage(c *gin.Context) {
	m, ok := h.lookup(c)
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "A non-empty \"message\" field is required.")
		return
	}
	reply, err := m.Send(c.Request.Context(), req.Message)
	if err != nil {
		RespondSessionError(c, err)
		return
	}
	RespondData(c, TurnResponse{Message: reply, Session: viewOf(m.Snapshot())})
}

// Conclude handles POST /api/sessions/:id/conclude.
func (h *Handlers) Conclude(c *gin.Context) {
	m, ok := h.lookup(c)
	if !ok {
		return
	}
	out, err := m.Conclude(c.Request.Context())
	if err != nil {
		RespondSessionError(c, err)
		return
	}
	RespondData(c, ConcludeResponse{
		Message:   out.Message,
		Final:     out.Final,
		Filename:  out.Artifact.Filename,
		RecordURL: recordURL(m.ID()),
		Session:   viewOf(m.Snapshot()),
	})
}

// DownloadRecord handles GET /api/sessions/:id/record.
func (h *Handlers) DownloadRecord(c *gin.Context) {
	m, ok := h.lookup(c)
	if !ok {
		return
	}
	art, ok := m.Artifact()
	if !ok {
		RespondNotFound(c, "The record is available once the session has concluded.")
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Filename}))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(art.Content))
}

func (h *Handlers) lookup(c *gin.Context) (*session.Machine, bool) {
	m, err := h.manager.Get(c.Param("id"))
	if err != nil {
		RespondSessionError(c, err)
		return nil, false
	}
	return m, true
}
