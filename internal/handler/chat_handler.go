package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lnbits/chat/internal/middleware"
	"github.com/lnbits/chat/internal/service"
	"github.com/lnbits/chat/pkg/model"
)

type ChatHandler struct {
	chats      *service.ChatService
	categories *service.CategoryService
}

func NewChatHandler(chats *service.ChatService, categories *service.CategoryService) *ChatHandler {
	return &ChatHandler{chats: chats, categories: categories}
}

// CreatePublic opens a chat in the category. The caller supplies its
// participant identity; the server assigns the chat id.
func (h *ChatHandler) CreatePublic(c *gin.Context) {
	var req model.CreateChat
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	chat, err := h.chats.CreatePublicChat(c.Request.Context(), c.Param("categories_id"), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, model.NewSuccessResponse(chat))
}

func (h *ChatHandler) GetPublic(c *gin.Context) {
	chat, err := h.chats.GetPublicChat(c.Request.Context(), c.Param("categories_id"), c.Param("chat_id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(chat))
}

// SendPublicMessage accepts a message from a viewer. The sender role is
// always public here; an authenticated caller skips the payment gate.
func (h *ChatHandler) SendPublicMessage(c *gin.Context) {
	var req model.CreateMessage
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	req.SenderRole = model.RolePublic

	var userID string
	if user, ok := middleware.UserFromContext(c.Request.Context()); ok {
		userID = user.ID
	}
	res, err := h.chats.SendPublicMessage(c.Request.Context(), c.Param("categories_id"), c.Param("chat_id"), req, userID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(res))
}

func (h *ChatHandler) SendTip(c *gin.Context) {
	var req model.TipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	res, err := h.chats.RequestTip(c.Request.Context(), c.Param("categories_id"), c.Param("chat_id"), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(res))
}

// ToggleClaim claims or releases the chat for the authenticated caller.
func (h *ChatHandler) ToggleClaim(c *gin.Context) {
	user, ok := middleware.UserFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, model.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	chat, err := h.chats.ToggleClaim(c.Request.Context(), c.Param("chat_id"), user.ID, user.Username)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(chat))
}

// ResolvePublic lets a viewer close or reopen their own conversation.
func (h *ChatHandler) ResolvePublic(c *gin.Context) {
	var req model.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	if _, err := h.chats.GetPublicChat(c.Request.Context(), c.Param("categories_id"), c.Param("chat_id")); err != nil {
		respondErr(c, err)
		return
	}
	chat, err := h.chats.MarkResolved(c.Request.Context(), c.Param("chat_id"), req.Resolved)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(chat))
}

func (h *ChatHandler) Lnurl(c *gin.Context) {
	info, err := h.chats.Lnurl(c.Request.Context(), c.Param("categories_id"), c.Param("chat_id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(info))
}

// ownedChat loads the chat and verifies the caller owns its category.
func (h *ChatHandler) ownedChat(c *gin.Context, user middleware.AuthUser, chatID string) (model.Chat, bool) {
	chat, err := h.chats.GetChat(c.Request.Context(), chatID)
	if err != nil {
		respondErr(c, err)
		return model.Chat{}, false
	}
	if _, err := h.categories.Get(c.Request.Context(), user.ID, chat.CategoriesID); err != nil {
		c.JSON(http.StatusUnauthorized, model.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return model.Chat{}, false
	}
	return chat, true
}

func (h *ChatHandler) Get(c *gin.Context) {
	user, ok := middleware.UserFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, model.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	chat, ok := h.ownedChat(c, user, c.Param("chat_id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(chat))
}

func (h *ChatHandler) List(c *gin.Context) {
	user, ok := middleware.UserFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, model.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	ids, err := h.categories.ListIDs(c.Request.Context(), user.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	chats, err := h.chats.ListChats(c.Request.Context(), ids)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(chats))
}

// SendAdminMessage posts from the category-owner side.
func (h *ChatHandler) SendAdminMessage(c *gin.Context) {
	user, ok := middleware.UserFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, model.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	var req model.CreateMessage
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	if _, ok := h.ownedChat(c, user, c.Param("chat_id")); !ok {
		return
	}
	if req.SenderID == "" {
		req.SenderID = "user-" + user.Username
	}
	if req.SenderName == "" {
		req.SenderName = user.Username
	}
	message, err := h.chats.SendAdminMessage(c.Request.Context(), c.Param("chat_id"), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(message))
}

// Resolve flips the resolved flag. Any authenticated caller may resolve;
// the claimer workflow depends on it.
func (h *ChatHandler) Resolve(c *gin.Context) {
	var req model.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	chat, err := h.chats.MarkResolved(c.Request.Context(), c.Param("chat_id"), req.Resolved)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(chat))
}

func (h *ChatHandler) MarkSeen(c *gin.Context) {
	chat, err := h.chats.MarkSeen(c.Request.Context(), c.Param("chat_id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(chat))
}
