package push

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/visitregistry/visitregistry/internal/platform/auth"
)

type Handler struct {
	subs       SubscriptionRepository
	dispatcher *Dispatcher
	vapidKey   string
}

func NewHandler(subs SubscriptionRepository, dispatcher *Dispatcher, vapidPublicKey string) *Handler {
	return &Handler{subs: subs, dispatcher: dispatcher, vapidKey: vapidPublicKey}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/push/public-key", h.PublicKey)
	api.POST("/push/subscriptions", h.Subscribe)
	api.DELETE("/push/subscriptions", h.Unsubscribe)
	api.POST("/push/test", h.SendTest)
}

// PublicKey hands the client the VAPID application server key it needs to
// call PushManager.subscribe.
func (h *Handler) PublicKey(c echo.Context) error {
	if h.vapidKey == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "push notifications are not configured")
	}
	return c.JSON(http.StatusOK, map[string]string{"public_key": h.vapidKey})
}

// subscribeRequest mirrors the browser's PushSubscription.toJSON shape.
type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (h *Handler) Subscribe(c echo.Context) error {
	var req subscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sub := &Subscription{
		UserID:   auth.UserIDFromContext(c.Request().Context()),
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	}
	if err := sub.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.subs.Save(c.Request().Context(), sub); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, sub)
}

func (h *Handler) Unsubscribe(c echo.Context) error {
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Endpoint == "" {
		req.Endpoint = c.QueryParam("endpoint")
	}
	if req.Endpoint == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "endpoint is required")
	}

	userID := auth.UserIDFromContext(c.Request().Context())
	if err := h.subs.DeleteByEndpoint(c.Request().Context(), userID, req.Endpoint); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "subscription not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// SendTest pushes a message to every endpoint of the caller so a fresh
// subscription can be verified end to end. Title and body are optional.
func (h *Handler) SendTest(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())

	msg := Message{Title: "Promemoria Visita Paziente", Body: "Notifica di prova."}
	var req Message
	if err := c.Bind(&req); err == nil {
		if req.Title != "" {
			msg.Title = req.Title
		}
		if req.Body != "" {
			msg.Body = req.Body
		}
	}

	delivered, err := h.dispatcher.NotifyUser(c.Request().Context(), userID, msg)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"delivered": delivered})
}
