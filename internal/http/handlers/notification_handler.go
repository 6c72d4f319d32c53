package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anidigital/harvest-hub/internal/domain"
	"github.com/anidigital/harvest-hub/internal/utils"
)

// ListNotificationsResponse is the caller's feed, newest first.
type ListNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
}

// UnreadCountResponse is the badge count.
type UnreadCountResponse struct {
	Unread int64 `json:"unread"`
}

// ListNotifications godoc
// @ID          listNotifications
// @Summary     Notification feed
// @Tags        Notifications
// @Produce     json
// @Security    BearerAuth
// @Param       unread  query  bool  false  "Only unread"
// @Param       limit   query  int   false  "Max items"  minimum(1) maximum(200) default(50)
// @Success     200  {object}  handlers.ListNotificationsResponse
// @Router      /notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	unread := c.Query("unread") == "true" || c.Query("unread") == "1"
	limit := utils.Clamp(utils.AtoiDefault(c.Query("limit"), 50), 1, 200)
	items, err := h.Notifications.List(c.Request.Context(), userID(c), unread, limit)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListNotificationsResponse{Notifications: items})
}

// UnreadNotifications godoc
// @ID          unreadNotifications
// @Summary     Unread notification count
// @Tags        Notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.UnreadCountResponse
// @Router      /notifications/unread-count [get]
func (h *Handlers) UnreadNotifications(c *gin.Context) {
	n, err := h.Notifications.UnreadCount(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, UnreadCountResponse{Unread: n})
}

// ReadNotification godoc
// @ID          readNotification
// @Summary     Mark one notification read
// @Tags        Notifications
// @Security    BearerAuth
// @Param       id   path  string  true  "Notification ID (UUID)"  format(uuid)
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /notifications/{id}/read [post]
func (h *Handlers) ReadNotification(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "notification id must be a UUID")
		return
	}
	if err := h.Notifications.MarkRead(c.Request.Context(), userID(c), id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// ReadAllNotifications godoc
// @ID          readAllNotifications
// @Summary     Mark every notification read
// @Tags        Notifications
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.MarkReadResponse
// @Router      /notifications/read-all [post]
func (h *Handlers) ReadAllNotifications(c *gin.Context) {
	n, err := h.Notifications.MarkAllRead(c.Request.Context(), userID(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, MarkReadResponse{Updated: n})
}
