package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	apperrors "finsight/internal/errors"
	"finsight/internal/logger"
	"finsight/internal/models"
	"finsight/internal/services"
)

// Frame types exchanged on the chat WebSocket.
const (
	FrameMessage     = "message"
	FrameCancel      = "cancel"
	FrameClear       = "clear"
	FrameSession     = "session"
	FrameUserMessage = "user_message"
	FrameReply       = "reply"
	FrameError       = "error"
)

// ClientFrame is a frame sent by the browser.
type ClientFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// ServerFrame is a frame sent to the browser. Exactly one payload field is
// set, matching Type.
type ServerFrame struct {
	Type    string                  `json:"type"`
	Session *models.ChatSessionView `json:"session,omitempty"`
	Message *models.ChatMessage     `json:"message,omitempty"`
	Reply   *services.ChatReply     `json:"reply,omitempty"`
	Error   *ErrorDetail            `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// the bearer token already authenticated the upgrade
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamConn serializes writes; the reply of a turn is written from the
// goroutine waiting on it while the read loop keeps handling frames.
type streamConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *streamConn) send(frame ServerFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(frame); err != nil {
		logger.Get().Debugw("chat stream write failed", "type", frame.Type, "error", err)
	}
}

func (s *streamConn) sendSession(session *models.ChatSession) {
	view := session.View()
	s.send(ServerFrame{Type: FrameSession, Session: &view})
}

func (s *streamConn) sendError(err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		logger.Get().Errorw("chat stream error", "error", err)
		appErr = apperrors.ErrInternalServer
	}
	s.send(ServerFrame{Type: FrameError, Error: &ErrorDetail{Code: appErr.Code, Message: appErr.Message}})
}

// Stream upgrades to a WebSocket carrying message, cancel and clear frames for
// one session. Closing the socket cancels the outstanding turn.
// @Summary     Chat over WebSocket
// @Description Client frames: {"type":"message","content":"..."}, {"type":"cancel"}, {"type":"clear"}. Server frames: session, user_message, reply, error.
// @Tags        chat
// @Security    BearerAuth
// @Param       id    path  string true  "Session ID"
// @Param       token query string false "Bearer token for browsers that cannot set headers"
// @Success     101
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Session not found"
// @Router      /chat/sessions/{id}/ws [get]
func (h *ChatHandler) Stream(c *gin.Context) {
	userID, session, err := h.session(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Get().Warnw("websocket upgrade failed", "session_id", session.ID, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var turns sync.WaitGroup
	// A closed socket abandons its outstanding turn.
	defer func() {
		cancel()
		turns.Wait()
	}()

	stream := &streamConn{conn: conn}
	stream.sendSession(session)
	logger.Get().Infow("chat stream opened", "session_id", session.ID, "user_id", userID)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Get().Warnw("chat stream closed", "session_id", session.ID, "error", err)
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			stream.sendError(apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid frame format"))
			continue
		}
		h.sessions.Touch(session)

		switch frame.Type {
		case FrameMessage:
			h.streamMessage(ctx, stream, &turns, userID, session, frame.Content)
		case FrameCancel:
			h.chatService.Cancel(session)
			stream.sendSession(session)
		case FrameClear:
			if err := h.chatService.Clear(session); err != nil {
				stream.sendError(err)
				continue
			}
			h.auditService.Log(userID, models.AuditClearChat, session.ID, c.ClientIP(), nil)
			stream.sendSession(session)
		default:
			stream.sendError(apperrors.WithMessage(apperrors.ErrInvalidInput, "Unknown frame type: "+frame.Type))
		}
	}
}

func (h *ChatHandler) streamMessage(ctx context.Context, stream *streamConn, turns *sync.WaitGroup, userID string, session *models.ChatSession, content string) {
	records, err := h.transactionService.ListAll(userID)
	if err != nil {
		stream.sendError(err)
		return
	}

	before := session.Len()
	t, err := h.chatService.SendAsync(ctx, session, content, records)
	if err != nil {
		stream.sendError(err)
		return
	}

	// echo the accepted user entry before the reply arrives
	if transcript := session.Transcript(); before < len(transcript) && transcript[before].Sender == models.SenderUser {
		msg := transcript[before]
		stream.send(ServerFrame{Type: FrameUserMessage, Message: &msg})
	}

	turns.Add(1)
	go func() {
		defer turns.Done()
		<-t.Done()
		reply, err := t.Result()
		if err != nil {
			stream.sendError(err)
			return
		}
		h.sessions.Touch(session)
		stream.send(ServerFrame{Type: FrameReply, Reply: reply})
	}()
}
