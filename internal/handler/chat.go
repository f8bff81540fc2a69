package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flicky/farm-market-api/internal/dto"
	"github.com/flicky/farm-market-api/internal/model"
	"github.com/flicky/farm-market-api/internal/realtime"
	"github.com/flicky/farm-market-api/internal/service"
)

type ChatHandler struct {
	chatService *service.ChatService
	hub         *realtime.Hub
}

func NewChatHandler(chatService *service.ChatService, hub *realtime.Hub) *ChatHandler {
	return &ChatHandler{chatService: chatService, hub: hub}
}

// Conversation opens the chat with the peer in the path, creating it on
// first contact, and returns its full history.
func (h *ChatHandler) Conversation(c *gin.Context) {
	peerID, ok := parseID(c, "peerId")
	if !ok {
		return
	}
	callerID := principal(c).ID

	chat, msgs, err := h.chatService.Conversation(c.Request.Context(), callerID, peerID)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]dto.MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, dto.NewMessageResponse(m))
	}
	c.JSON(http.StatusOK, dto.ConversationResponse{Chat: toChatResponse(chat, callerID), Messages: out})
}

func (h *ChatHandler) Send(c *gin.Context) {
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	chatID := uuid.MustParse(req.ChatID)

	msg, err := h.chatService.AppendMessage(c.Request.Context(), chatID, principal(c).ID, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewMessageResponse(*msg))
}

func (h *ChatHandler) List(c *gin.Context) {
	callerID := principal(c).ID
	chats, err := h.chatService.ListChats(c.Request.Context(), callerID)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]dto.ChatResponse, 0, len(chats))
	for i := range chats {
		out = append(out, toChatResponse(&chats[i], callerID))
	}
	c.JSON(http.StatusOK, dto.ChatListResponse{Chats: out})
}

func (h *ChatHandler) Stream(c *gin.Context) {
	userID := principal(c).ID
	if err := h.hub.Attach(c.Writer, c.Request, userID); err != nil {
		// The upgrader has already answered the request.
		slog.Warn("websocket attach", "user_id", userID, "error", err)
	}
}

func toChatResponse(chat *model.Chat, callerID uuid.UUID) dto.ChatResponse {
	return dto.ChatResponse{
		ID:           chat.ID,
		Participants: chat.Participants[:],
		PeerID:       chat.Peer(callerID),
		CreatedAt:    chat.CreatedAt,
	}
}
