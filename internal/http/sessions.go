package http

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voice-appointment-service/internal/models"
	"voice-appointment-service/internal/schema"
	"voice-appointment-service/internal/service/capture"
	"voice-appointment-service/internal/service/disambiguation"
)

const (
	writeWait      = 5 * time.Second
	maxFrameBytes  = 1 << 20
	defaultClient  = "web"
	feedPingPeriod = 30 * time.Second
)

// Client frame types.
const (
	frameStart      = "start"
	frameTranscript = "transcript"
	frameStop       = "stop"
	frameChoose     = "choose"
	frameConfirm    = "confirm"
	frameCancel     = "cancel"
	frameSubmit     = "submit"
)

// Server frame types.
const (
	frameSession        = "session"
	frameOutcome        = "outcome"
	frameDisambiguation = "disambiguation"
	frameResolved       = "resolved"
	frameCommitted      = "committed"
	frameConflict       = "conflict"
	frameInvalid        = "invalid"
	frameEnded          = "ended"
	frameError          = "error"
)

type clientFrame struct {
	Type   string         `json:"type"`
	Text   string         `json:"text,omitempty"`
	Final  bool           `json:"final,omitempty"`
	Choice string         `json:"choice,omitempty"`
	Fields *models.Fields `json:"fields,omitempty"`
}

type serverFrame struct {
	Type        string              `json:"type"`
	SessionID   string              `json:"sessionId,omitempty"`
	State       string              `json:"state,omitempty"`
	Final       bool                `json:"final,omitempty"`
	Outcome     *models.Outcome     `json:"outcome,omitempty"`
	Draft       *models.Fields      `json:"draft,omitempty"`
	Appointment *models.Record      `json:"appointment,omitempty"`
	Error       string              `json:"error,omitempty"`
	Fields      []schema.FieldError `json:"fields,omitempty"`
}

func (h *handlers) upgrader() websocket.Upgrader {
	allowed := h.app.Cfg.Service.AllowedOrigins
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			return slices.Contains(allowed, r.Header.Get("Origin"))
		},
	}
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(f serverFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(f)
}

func (c *wsConn) sendRaw(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// sessionSink turns capture updates into server frames.
type sessionSink struct {
	conn *wsConn
}

func (s sessionSink) Notify(u capture.Update) {
	f := serverFrame{SessionID: u.SessionID, State: u.State.String()}
	outcome, draft := u.Outcome, u.Draft
	switch u.Kind {
	case capture.UpdateOutcome:
		f.Type, f.Outcome, f.Draft, f.Final = frameOutcome, &outcome, &draft, u.Final
	case capture.UpdateDisambiguation:
		f.Type, f.Outcome, f.Draft = frameDisambiguation, &outcome, &draft
	case capture.UpdateEnded:
		f.Type, f.Draft = frameEnded, &draft
		if u.Err != nil {
			f.Error = u.Err.Error()
		}
	default:
		return
	}
	_ = s.conn.send(f)
}

// GET /v1/sessions/ws
func (h *handlers) sessionSocket(w http.ResponseWriter, r *http.Request) {
	up := h.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	clientID := strings.TrimSpace(r.URL.Query().Get("client"))
	if clientID == "" {
		clientID = defaultClient
	}

	ws := &wsConn{conn: conn}
	sc := &socketSession{h: h, ws: ws, clientID: clientID}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sc.close()

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Str("clientId", clientID).Msg("Session socket closed unexpectedly")
			}
			return
		}
		if kind == websocket.BinaryMessage {
			sc.audio(ctx, data)
			continue
		}
		var f clientFrame
		if err := json.Unmarshal(data, &f); err != nil {
			ws.send(serverFrame{Type: frameError, Error: "invalid frame: " + err.Error()})
			continue
		}
		sc.handle(ctx, f)
	}
}

// socketSession holds the capture session of one websocket connection.
type socketSession struct {
	h        *handlers
	ws       *wsConn
	clientID string
	session  *capture.Session
}

func (sc *socketSession) handle(ctx context.Context, f clientFrame) {
	switch f.Type {
	case frameStart:
		sc.start(ctx)
	case frameTranscript:
		if sc.require() {
			sc.session.Transcript(f.Text, f.Final)
		}
	case frameStop:
		if sc.require() {
			if err := sc.session.Stop(); err != nil {
				sc.fail(err)
			}
		}
	case frameChoose:
		sc.choose(f.Choice)
	case frameConfirm:
		sc.confirm()
	case frameCancel:
		if sc.require() {
			sc.session.Cancel()
		}
	case frameSubmit:
		sc.submit(ctx, f.Fields)
	default:
		sc.ws.send(serverFrame{Type: frameError, Error: "unknown frame type " + f.Type})
	}
}

func (sc *socketSession) require() bool {
	if sc.session == nil {
		sc.ws.send(serverFrame{Type: frameError, Error: "no session started"})
		return false
	}
	return true
}

func (sc *socketSession) fail(err error) {
	sc.ws.send(serverFrame{Type: frameError, Error: err.Error()})
}

func (sc *socketSession) start(ctx context.Context) {
	if sc.session != nil && sc.session.State() == capture.StateListening {
		sc.fail(capture.ErrSessionActive)
		return
	}
	sc.close()
	s, err := sc.h.app.NewSession(ctx, sc.clientID, sessionSink{conn: sc.ws})
	if err != nil {
		sc.fail(err)
		return
	}
	sc.session = s
	sc.ws.send(serverFrame{Type: frameSession, SessionID: s.ID(), State: s.State().String()})
}

func (sc *socketSession) audio(ctx context.Context, data []byte) {
	if !sc.require() {
		return
	}
	if err := sc.session.SendAudio(ctx, data); err != nil {
		sc.fail(err)
	}
}

func (sc *socketSession) choose(raw string) {
	if !sc.require() {
		return
	}
	choice, err := disambiguation.ParseChoice(raw)
	if err != nil {
		sc.fail(err)
		return
	}
	resolved, err := sc.session.Choose(choice)
	if err != nil {
		sc.fail(err)
		return
	}
	sc.ws.send(serverFrame{Type: frameResolved, SessionID: sc.session.ID(), Outcome: &resolved})
}

func (sc *socketSession) confirm() {
	if !sc.require() {
		return
	}
	draft, err := sc.session.Confirm()
	if err != nil {
		sc.fail(err)
		return
	}
	sc.ws.send(serverFrame{Type: frameResolved, SessionID: sc.session.ID(), Draft: &draft})
}

// submit commits the session draft, overridden by any manually edited fields.
func (sc *socketSession) submit(ctx context.Context, edits *models.Fields) {
	var fields models.Fields
	sessionID := ""
	if sc.session != nil {
		fields = sc.session.Draft()
		sessionID = sc.session.ID()
	}
	if edits != nil {
		fields = fields.Merge(*edits)
	}

	rec, err := sc.h.app.Scheduler.Commit(ctx, fields)
	if err != nil {
		f := serverFrame{SessionID: sessionID, Error: err.Error()}
		if verr, ok := asValidation(err); ok {
			f.Type, f.Fields = frameInvalid, verr.Errors
		} else if _, ok := asConflict(err); ok {
			f.Type = frameConflict
		} else {
			sc.h.logger.Error().Err(err).Str("sessionId", sessionID).Msg("Failed to commit appointment")
			f.Type, f.Error = frameError, "internal error"
		}
		sc.ws.send(f)
		return
	}
	sc.ws.send(serverFrame{Type: frameCommitted, SessionID: sessionID, Appointment: &rec})
}

func (sc *socketSession) close() {
	if sc.session == nil {
		return
	}
	if err := sc.session.Stop(); err != nil {
		sc.h.logger.Warn().Err(err).Str("sessionId", sc.session.ID()).Msg("Failed to stop capture session")
	}
}

// GET /v1/appointments/ws streams committed and removed appointments.
func (h *handlers) appointmentFeed(w http.ResponseWriter, r *http.Request) {
	up := h.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := h.app.Hub.Subscribe()
	defer cancel()

	// Drain reads so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ws := &wsConn{conn: conn}
	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case payload, ok := <-events:
			if !ok {
				return
			}
			if err := ws.sendRaw(payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := ws.ping(); err != nil {
				return
			}
		}
	}
}
