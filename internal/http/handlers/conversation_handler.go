// Conversation HTTP handlers.
//
// This file exposes the inbox and thread endpoints:
//   - GET  /conversations               (directory, most recent first)
//   - POST /conversations               (get-or-create for a pair + context)
//   - GET  /conversations/{id}          (header)
//   - GET  /conversations/{id}/messages (history, ?after watermark, ETag)
//   - POST /conversations/{id}/messages (send text)
//   - POST /conversations/{id}/images   (send image, multipart)
//   - POST /conversations/{id}/read     (mark inbound messages read)
//   - GET  /conversations/{id}/orders   (orders negotiated in the thread)
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anidigital/harvest-hub/internal/domain"
)

//
// DTOs
//

// OpenConversationRequest is the payload for get-or-create.
type OpenConversationRequest struct {
	OtherUserID string `json:"other_user_id" binding:"required" example:"5b0f3c1e-3b8e-4c7a-9a55-0f8d2f7c6a11"`
	ContextType string `json:"context_type" binding:"omitempty,oneof=product shop" example:"product"`
	ContextID   string `json:"context_id" example:"9c3a1f0e-7d2b-4b7e-8f4a-2a6b1c0d9e88"`
}

// OpenConversationResponse wraps the conversation and whether it was new.
type OpenConversationResponse struct {
	Conversation domain.Conversation `json:"conversation"`
	Created      bool                `json:"created"`
}

// ListConversationsResponse is the inbox.
type ListConversationsResponse struct {
	Conversations []domain.ConversationSummary `json:"conversations"`
}

// ListMessagesResponse is a slice of the thread in chronological order.
type ListMessagesResponse struct {
	Messages []domain.MessageView `json:"messages"`
}

// SendMessageRequest is a plain text message.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required" example:"Is the rice still available?"`
}

// MarkReadResponse reports how many messages were marked.
type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

// ListOrdersResponse lists a thread's orders.
type ListOrdersResponse struct {
	Orders []domain.OrderView `json:"orders"`
}

// conversationID validates the :id path parameter.
func conversationID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return "", false
	}
	return id, true
}

// ListConversations godoc
// @ID          listConversations
// @Summary     List the caller's conversations
// @Description Conversations involving the caller, most recent activity first, each with the other participant and an unread count.
// @Tags        Conversations
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.ListConversationsResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	items, err := h.Conversations.Directory(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListConversationsResponse{Conversations: items})
}

// OpenConversation godoc
// @ID          openConversation
// @Summary     Get or create a conversation
// @Description Returns the conversation between the caller and other_user_id for the optional context, creating it on first use. Argument order never matters.
// @Tags        Conversations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      handlers.OpenConversationRequest  true  "Participants and context"
// @Success     200   {object}  handlers.OpenConversationResponse  "Existing conversation"
// @Success     201   {object}  handlers.OpenConversationResponse  "Created"
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations [post]
func (h *Handlers) OpenConversation(c *gin.Context) {
	var req OpenConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "other_user_id required; context_type must be product or shop")
		return
	}
	conv, created, err := h.Conversations.Open(c.Request.Context(), userID(c),
		strings.TrimSpace(req.OtherUserID), req.ContextType, strings.TrimSpace(req.ContextID))
	if err != nil {
		failErr(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	ok(c, status, OpenConversationResponse{Conversation: *conv, Created: created})
}

// GetConversation godoc
// @ID          getConversation
// @Summary     Conversation header
// @Tags        Conversations
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Conversation ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.ConversationHeader
// @Failure     403  {object}  handlers.ErrorResponse  "Not a participant"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /conversations/{id} [get]
func (h *Handlers) GetConversation(c *gin.Context) {
	id, valid := conversationID(c)
	if !valid {
		return
	}
	hdr, err := h.Conversations.Header(c.Request.Context(), userID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, hdr)
}

// ListMessages godoc
// @ID          listMessages
// @Summary     Thread history
// @Description Full ordered history, or only messages strictly after the `after` watermark. The full history supports a weak ETag via If-None-Match.
// @Tags        Conversations
// @Produce     json
// @Security    BearerAuth
// @Param       id             path    string  true   "Conversation ID (UUID)"  format(uuid)
// @Param       after          query   string  false  "RFC3339 watermark"       example(2025-01-31T08:15:00.123456Z)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  handlers.ListMessagesResponse
// @Header      200  {string}  ETag  "Weak ETag for the full history"
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not a participant"
// @Router      /conversations/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	id, valid := conversationID(c)
	if !valid {
		return
	}
	ctx := c.Request.Context()
	uid := userID(c)

	var after *time.Time
	if raw := strings.TrimSpace(c.Query("after")); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "after must be an RFC3339 timestamp")
			return
		}
		after = &t
	}

	// Full history only; a lookup error just skips the ETag.
	if after == nil && h.Stats != nil {
		if etag, err := h.Stats.MessagesETag(ctx, uid, id); err == nil && notModified(c, etag) {
			return
		}
	}

	msgs, err := h.Threads.Messages(ctx, uid, id, after)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: msgs})
}

// SendMessage godoc
// @ID          sendMessage
// @Summary     Send a text message
// @Description Text starting with a reserved tag prefix (image:, order:) is rejected.
// @Tags        Conversations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string  true  "Conversation ID (UUID)"  format(uuid)
// @Param       body  body      handlers.SendMessageRequest  true  "Message"
// @Success     201   {object}  domain.MessageView
// @Failure     400   {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403   {object}  handlers.ErrorResponse  "Not a participant"
// @Router      /conversations/{id}/messages [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	id, valid := conversationID(c)
	if !valid {
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	msg, err := h.Threads.SendText(c.Request.Context(), userID(c), id, req.Content)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, msg)
}

// SendImage godoc
// @ID          sendImage
// @Summary     Send an image message
// @Description The file is validated (image MIME, at most 5 MiB) before upload. A failed upload sends nothing.
// @Tags        Conversations
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       id       path      string  true   "Conversation ID (UUID)"  format(uuid)
// @Param       file     formData  file    true   "Image"
// @Param       caption  formData  string  false  "Caption"
// @Success     201  {object}  domain.MessageView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request or file too large"
// @Failure     415  {object}  handlers.ErrorResponse  "Not an image"
// @Router      /conversations/{id}/images [post]
func (h *Handlers) SendImage(c *gin.Context) {
	id, valid := conversationID(c)
	if !valid {
		return
	}
	data, err := readUpload(c, "file", true)
	if err != nil {
		failErr(c, err)
		return
	}
	msg, err := h.Threads.SendImage(c.Request.Context(), userID(c), id, data, c.PostForm("caption"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusCreated, msg)
}

// MarkRead godoc
// @ID          markConversationRead
// @Summary     Mark inbound messages read
// @Tags        Conversations
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Conversation ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.MarkReadResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Not a participant"
// @Router      /conversations/{id}/read [post]
func (h *Handlers) MarkRead(c *gin.Context) {
	id, valid := conversationID(c)
	if !valid {
		return
	}
	n, err := h.Threads.MarkRead(c.Request.Context(), userID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, MarkReadResponse{Updated: n})
}

// ListConversationOrders godoc
// @ID          listConversationOrders
// @Summary     Orders negotiated in a conversation
// @Tags        Conversations
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Conversation ID (UUID)"  format(uuid)
// @Success     200  {object}  handlers.ListOrdersResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Not a participant"
// @Router      /conversations/{id}/orders [get]
func (h *Handlers) ListConversationOrders(c *gin.Context) {
	id, valid := conversationID(c)
	if !valid {
		return
	}
	orders, err := h.Threads.Orders(c.Request.Context(), userID(c), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListOrdersResponse{Orders: orders})
}
