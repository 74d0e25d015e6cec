package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "finsight/internal/errors"
	"finsight/internal/models"
	"finsight/internal/services"
)

// ChatHandler serves advisor chat sessions over REST and WebSocket.
type ChatHandler struct {
	chatService        services.ChatServicer
	sessions           services.ChatSessionStorer
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService services.ChatServicer, sessions services.ChatSessionStorer, transactionService services.TransactionServicer, auditService services.AuditServicer) *ChatHandler {
	return &ChatHandler{
		chatService:        chatService,
		sessions:           sessions,
		transactionService: transactionService,
		auditService:       auditService,
	}
}

// SendMessageRequest is one user turn.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required,max=4000"`
}

// CancelResponse reports whether a cancel reached an outstanding request.
type CancelResponse struct {
	Cancelled bool                   `json:"cancelled"`
	Session   models.ChatSessionView `json:"session"`
}

// session resolves the :id session of the authenticated user.
func (h *ChatHandler) session(c *gin.Context) (string, *models.ChatSession, error) {
	userID, err := getUserID(c)
	if err != nil {
		return "", nil, err
	}
	session, err := h.sessions.Get(userID, c.Param("id"))
	if err != nil {
		return "", nil, err
	}
	return userID, session, nil
}

// CreateSession starts a new chat session
// @Summary     Start a chat session
// @Tags        chat
// @Produce     json
// @Security    BearerAuth
// @Success     201 {object} models.ChatSessionView
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /chat/sessions [post]
func (h *ChatHandler) CreateSession(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	session := h.sessions.Create(userID)
	c.JSON(http.StatusCreated, gin.H{"session": session.View()})
}

// GetSession returns the transcript and state of a session
// @Summary     Get a chat session
// @Tags        chat
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Session ID"
// @Success     200 {object} models.ChatSessionView
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Session not found"
// @Router      /chat/sessions/{id} [get]
func (h *ChatHandler) GetSession(c *gin.Context) {
	_, session, err := h.session(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session.View()})
}

// SendMessage runs one chat turn and waits for the reply
// @Summary     Send a chat message
// @Description Appends the message and waits for the advisor reply. A cancelled or failed turn still returns 200 with the CANCELLED or FAILED outcome and the entry that was appended.
// @Tags        chat
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Session ID"
// @Param       request body SendMessageRequest true "Message"
// @Success     200 {object} services.ChatReply
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Session not found"
// @Failure     409 {object} ErrorResponse "A request is already in progress"
// @Failure     429 {object} ErrorResponse "Rate limited"
// @Router      /chat/sessions/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, session, err := h.session(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	records, err := h.transactionService.ListAll(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	reply, err := h.chatService.Send(c.Request.Context(), session, req.Content, records)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.sessions.Touch(session)

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// CancelRequest signals the outstanding turn of a session
// @Summary     Cancel the outstanding chat request
// @Description No-op when the session is idle.
// @Tags        chat
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Session ID"
// @Success     200 {object} CancelResponse
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Session not found"
// @Router      /chat/sessions/{id}/cancel [post]
func (h *ChatHandler) CancelRequest(c *gin.Context) {
	_, session, err := h.session(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	cancelled := h.chatService.Cancel(session)
	c.JSON(http.StatusOK, CancelResponse{Cancelled: cancelled, Session: session.View()})
}

// ClearMessages empties the transcript of an idle session
// @Summary     Clear a chat transcript
// @Tags        chat
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Session ID"
// @Success     200 {object} MessageResponse
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Session not found"
// @Failure     409 {object} ErrorResponse "A request is in progress"
// @Router      /chat/sessions/{id}/messages [delete]
func (h *ChatHandler) ClearMessages(c *gin.Context) {
	userID, session, err := h.session(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.chatService.Clear(session); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, models.AuditClearChat, session.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Chat history cleared"})
}

// DeleteSession ends a session, cancelling any outstanding request
// @Summary     Delete a chat session
// @Tags        chat
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Session ID"
// @Success     200 {object} MessageResponse
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Session not found"
// @Router      /chat/sessions/{id} [delete]
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.sessions.Delete(userID, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Chat session deleted"})
}
