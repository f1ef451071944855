package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nexthire/server/internal/interview"
	"github.com/nexthire/server/internal/metrics"
	"github.com/nexthire/server/internal/model"
	"github.com/nexthire/server/internal/tts"
)

const (
	wsReadLimit    = 64 << 10
	wsWriteTimeout = 10 * time.Second
)

// inbound frame: {action: start|answer|end, ...}
type wsRequest struct {
	Action        string   `json:"action"`
	Role          string   `json:"role"`
	Skills        []string `json:"skills"`
	Experience    string   `json:"experience"`
	Text          string   `json:"text"`
	VisualContext struct {
		Posture string `json:"posture"`
	} `json:"visual_context"`
}

type wsFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// InterviewWSHandler runs live interviews over a websocket, one turn at a time
type InterviewWSHandler struct {
	engine   *interview.Engine
	speech   tts.Synthesizer
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewInterviewWSHandler(engine *interview.Engine, speech tts.Synthesizer, checkOrigin func(*http.Request) bool, logger *zap.Logger) *InterviewWSHandler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &InterviewWSHandler{
		engine:   engine,
		speech:   speech,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		logger:   logger,
	}
}

type liveConn struct {
	h       *InterviewWSHandler
	conn    *websocket.Conn
	owner   string
	session uuid.UUID
	logger  *zap.Logger
}

// ServeHTTP handles GET /ws/interview
func (h *InterviewWSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	metrics.ActiveSockets.Inc()
	defer metrics.ActiveSockets.Dec()

	lc := &liveConn{h: h, conn: conn, owner: owner(r), logger: h.logger}
	lc.logger.Debug("interview socket opened")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				lc.logger.Debug("interview socket closed", zap.Error(err))
			}
			return
		}
		var req wsRequest
		if err := json.Unmarshal(data, &req); err != nil {
			lc.sendError("invalid message")
			continue
		}

		ctx := r.Context()
		switch req.Action {
		case "start":
			lc.start(ctx, req)
		case "answer":
			lc.answer(ctx, req)
		case "end":
			if lc.end(ctx) {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "interview finished"),
					time.Now().Add(time.Second))
				return
			}
		default:
			lc.sendError("unknown action")
		}
	}
}

func (c *liveConn) start(ctx context.Context, req wsRequest) {
	if c.session != uuid.Nil {
		c.sendError("interview already started")
		return
	}
	res, err := c.h.engine.Start(ctx, interview.StartInput{
		Owner:      c.owner,
		Kind:       model.KindLive,
		Skills:     req.Skills,
		Role:       req.Role,
		Experience: req.Experience,
	})
	if err != nil {
		c.logger.Error("start live interview", zap.Error(err))
		c.sendError("could not start interview")
		return
	}
	c.session = res.Session.ID
	c.logger = c.logger.With(zap.String("session_id", c.session.String()))
	c.say(ctx, res.Question)
}

func (c *liveConn) answer(ctx context.Context, req wsRequest) {
	if c.session == uuid.Nil {
		c.sendError("interview not started")
		return
	}
	res, err := c.h.engine.SubmitAnswer(ctx, interview.AnswerInput{
		SessionID: c.session,
		Owner:     c.owner,
		Answer:    req.Text,
		Posture:   req.VisualContext.Posture,
	})
	if err != nil {
		_, msg := statusFor(err)
		c.sendError(msg)
		return
	}
	c.sendText(res.Feedback)
	c.say(ctx, res.NextQuestion)
}

// end reports whether the socket should close
func (c *liveConn) end(ctx context.Context) bool {
	if c.session == uuid.Nil {
		c.sendError("interview not started")
		return false
	}
	res, err := c.h.engine.End(ctx, c.session, c.owner)
	if err != nil {
		_, msg := statusFor(err)
		c.sendError(msg)
		return errors.Is(err, interview.ErrSessionNotFound)
	}
	c.say(ctx, res.Spoken)

	body, err := json.Marshal(res.Report)
	if err != nil {
		c.logger.Error("encode report", zap.Error(err))
		return true
	}
	c.write(wsFrame{Type: "report", Content: string(body)})
	return true
}

// say sends text and, when synthesis succeeds, the matching audio frame
func (c *liveConn) say(ctx context.Context, text string) {
	c.sendText(text)
	audio, err := c.h.speech.Speak(ctx, text)
	if err != nil {
		c.logger.Warn("speech synthesis failed", zap.Error(err))
		return
	}
	if len(audio) == 0 {
		return
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		c.logger.Debug("write audio frame", zap.Error(err))
	}
}

func (c *liveConn) sendText(text string) {
	c.write(wsFrame{Type: "text_response", Content: text})
}

func (c *liveConn) sendError(msg string) {
	c.write(wsFrame{Type: "error", Content: msg})
}

func (c *liveConn) write(f wsFrame) {
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.conn.WriteJSON(f); err != nil {
		c.logger.Debug("write frame", zap.String("type", f.Type), zap.Error(err))
	}
}
