package gphotos

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
)

// Handler exposes the OAuth handshake and library listing. The token lives
// client-side; each library call carries it back in.
type Handler struct {
	client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/google/auth-url", h.AuthURL)
	api.POST("/google/token", h.ExchangeCode)
	api.GET("/google/media", h.ListMedia)
}

func (h *Handler) AuthURL(c echo.Context) error {
	state := uuid.NewString()
	return c.JSON(http.StatusOK, map[string]string{
		"url":   h.client.AuthURL(state),
		"state": state,
	})
}

func (h *Handler) ExchangeCode(c echo.Context) error {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "code is required")
	}

	tok, err := h.client.Exchange(c.Request().Context(), req.Code)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, tok)
}

func (h *Handler) ListMedia(c echo.Context) error {
	accessToken := bearerToken(c)
	if accessToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "google access token is required")
	}

	pageSize := 0
	if v := c.QueryParam("page_size"); v != "" {
		ps, err := strconv.Atoi(v)
		if err != nil || ps <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid page_size")
		}
		pageSize = ps
	}

	page, err := h.client.ListMediaItems(c.Request().Context(),
		&oauth2.Token{AccessToken: accessToken}, pageSize, c.QueryParam("page_token"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, page)
}

// bearerToken pulls the Google access token from the X-Google-Token header.
// The Authorization header already carries the app's own JWT.
func bearerToken(c echo.Context) string {
	return c.Request().Header.Get("X-Google-Token")
}
