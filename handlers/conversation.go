package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"marketlink/models"
	"marketlink/services/chat"
	"marketlink/services/storage"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	maxAttachmentBytes = 10 << 20
	wsPingInterval     = 30 * time.Second
	wsPongWait         = 60 * time.Second
	wsWriteWait        = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Callers are authenticated by token, not by origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type ConversationHandler struct {
	Chat chat.ChatService
}

func NewConversationHandler(chatService chat.ChatService) *ConversationHandler {
	return &ConversationHandler{Chat: chatService}
}

// wsClientMessage is what a websocket client may send.
type wsClientMessage struct {
	Type string `json:"type"`
	Body string `json:"body"`
}

// wsEvent is what the server pushes over the websocket.
type wsEvent struct {
	Type     string           `json:"type"`
	Messages []models.Message `json:"messages,omitempty"`
	Message  *models.Message  `json:"message,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func window(c *gin.Context) chat.Window {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		limit = 0
	}
	return chat.Window{Limit: limit}
}

// member resolves the caller and checks they belong to the conversation in the path.
func (h *ConversationHandler) member(c *gin.Context) (string, string, bool) {
	partyID, _, ok := caller(c)
	if !ok {
		return "", "", false
	}
	conversationID := c.Param("id")
	isMember, err := h.Chat.IsParticipant(c.Request.Context(), conversationID, partyID)
	if err != nil {
		respondError(c, err)
		return "", "", false
	}
	if !isMember {
		respondError(c, chat.ErrNotParticipant)
		return "", "", false
	}
	return partyID, conversationID, true
}

func (h *ConversationHandler) ListMessagesHandler(c *gin.Context) {
	_, conversationID, ok := h.member(c)
	if !ok {
		return
	}
	msgs, err := h.Chat.List(c.Request.Context(), conversationID, window(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *ConversationHandler) SendMessageHandler(c *gin.Context) {
	partyID, conversationID, ok := h.member(c)
	if !ok {
		return
	}
	var input struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	msg, err := h.Chat.Send(c.Request.Context(), conversationID, partyID, input.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// SendAttachmentHandler accepts a multipart "file" field, uploads it and posts the
// attachment message.
func (h *ConversationHandler) SendAttachmentHandler(c *gin.Context) {
	partyID, conversationID, ok := h.member(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAttachmentBytes+1<<20)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required", "details": err.Error()})
		return
	}
	if fileHeader.Size > maxAttachmentBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "attachment too large"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file", "details": err.Error()})
		return
	}
	defer file.Close()

	msg, err := h.Chat.SendAttachment(c.Request.Context(), conversationID, partyID, storage.Asset{
		Name:        fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Content:     file,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// WatchConversationHandler upgrades to a websocket that pushes the full message list
// on every change and accepts {"type":"message","body":...} frames from the client.
func (h *ConversationHandler) WatchConversationHandler(c *gin.Context) {
	partyID, conversationID, ok := h.member(c)
	if !ok {
		return
	}
	logger := getLogger(c).With(zap.String("conversationId", conversationID))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub, err := h.Chat.Watch(ctx, conversationID, window(c))
	if err != nil {
		_ = conn.WriteJSON(wsEvent{Type: "error", Error: err.Error()})
		return
	}
	defer sub.Close()

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	// Only the write loop below writes to conn; the reader hands replies over here.
	replies := make(chan wsEvent, 8)
	go h.readLoop(ctx, cancel, conn, conversationID, partyID, replies, logger)

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		var ev wsEvent
		select {
		case u, ok := <-sub.Updates():
			if !ok {
				return
			}
			if u.Err != nil {
				ev = wsEvent{Type: "error", Error: u.Err.Error()}
			} else {
				ev = wsEvent{Type: "messages", Messages: u.Value}
			}
		case ev = <-replies:
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
			return
		}
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(ev); err != nil {
			logger.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
}

func (h *ConversationHandler) readLoop(
	ctx context.Context,
	cancel context.CancelFunc,
	conn *websocket.Conn,
	conversationID, partyID string,
	replies chan<- wsEvent,
	logger *zap.Logger,
) {
	defer cancel()
	for {
		var in wsClientMessage
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		var reply wsEvent
		switch in.Type {
		case "message":
			msg, err := h.Chat.Send(ctx, conversationID, partyID, in.Body)
			if err != nil {
				reply = wsEvent{Type: "error", Error: err.Error()}
			} else {
				reply = wsEvent{Type: "sent", Message: &msg}
			}
		default:
			reply = wsEvent{Type: "error", Error: "unknown message type: " + in.Type}
		}
		select {
		case replies <- reply:
		case <-ctx.Done():
			return
		}
	}
}
