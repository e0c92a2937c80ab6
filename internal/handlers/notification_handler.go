package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/internal/repositories"
	"github.com/anonto42/social-graph/backend/internal/services"
	"github.com/anonto42/social-graph/backend/pkg/logger"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notifications *services.NotificationService
	renderer      *notificationRenderer
	upgrader      websocket.Upgrader
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications *services.NotificationService, store *repositories.Store) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		renderer:      newNotificationRenderer(store),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.GET("/notifications/ws", h.Stream)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.PUT("/notifications/:id/unread", h.MarkAsUnread)
}

// GetNotifications returns one page of the caller's notifications, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	currentUserID, err := requireUserID(c)
	if err != nil {
		return err
	}
	unread, _ := strconv.ParseBool(c.QueryParam("unread"))

	page, err := h.notifications.List(c.Request().Context(), currentUserID, services.ListOptions{
		UnreadOnly: unread,
		Cursor:     c.QueryParam("cursor"),
		Limit:      queryLimit(c),
	})
	if err != nil {
		return err
	}
	views, err := h.renderer.render(c.Request().Context(), page.Items)
	if err != nil {
		return err
	}
	return successWithCursor(c, views, page.NextCursor)
}

// GetUnreadCount returns the unread notification count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	currentUserID, err := requireUserID(c)
	if err != nil {
		return err
	}
	count, err := h.notifications.UnreadCount(c.Request().Context(), currentUserID)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, echo.Map{"count": count})
}

// MarkAsRead marks one of the caller's notifications as read
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	return h.setRead(c, true)
}

// MarkAsUnread flips a notification back to unread
func (h *NotificationHandler) MarkAsUnread(c echo.Context) error {
	return h.setRead(c, false)
}

func (h *NotificationHandler) setRead(c echo.Context, read bool) error {
	currentUserID, err := requireUserID(c)
	if err != nil {
		return err
	}
	notifID, err := parseIDParam(c, "id", "notification")
	if err != nil {
		return err
	}
	if read {
		err = h.notifications.MarkRead(c.Request().Context(), currentUserID, notifID)
	} else {
		err = h.notifications.MarkUnread(c.Request().Context(), currentUserID, notifID)
	}
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, echo.Map{"id": notifID, "is_read": read})
}

// MarkAllAsRead marks all notifications as read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	currentUserID, err := requireUserID(c)
	if err != nil {
		return err
	}
	updated, err := h.notifications.MarkAllRead(c.Request().Context(), currentUserID)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, echo.Map{"updated": updated})
}

// Stream upgrades to a websocket and forwards the caller's notifications as
// they are created.
func (h *NotificationHandler) Stream(c echo.Context) error {
	currentUserID, err := requireUserID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	messages, cancel, err := h.notifications.Stream(ctx, currentUserID)
	if err != nil {
		return err
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warnf("upgrade websocket for user %d: %v", currentUserID, err)
		return nil
	}
	defer conn.Close()

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case payload, ok := <-messages:
			if !ok {
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, h.renderPayload(c, payload)); err != nil {
				logger.Debugf("write websocket for user %d: %v", currentUserID, err)
				return nil
			}
		case <-clientClosed:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// renderPayload turns a published notification into the same view the list
// endpoint returns. The raw payload is forwarded if that fails.
func (h *NotificationHandler) renderPayload(c echo.Context, payload []byte) []byte {
	var n models.Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return payload
	}
	views, err := h.renderer.render(c.Request().Context(), []models.Notification{n})
	if err != nil {
		return payload
	}
	out, err := json.Marshal(views[0])
	if err != nil {
		return payload
	}
	return out
}
