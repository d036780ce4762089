package relay

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chatrelay/internal/logger"
	"chatrelay/pkg/errors"
)

// Handler exposes the brokered relay over HTTP. The service may be nil when
// broker construction failed at startup; in that degraded mode every
// submission is answered with a configuration error before validation runs,
// matching the behavior of a relay whose credentials never initialized.
type Handler struct {
	service    *Service
	authorizer *ChannelAuthorizer
	logger     logger.Logger
}

func NewHandler(service *Service, authorizer *ChannelAuthorizer, log logger.Logger) *Handler {
	return &Handler{
		service:    service,
		authorizer: authorizer,
		logger:     log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		messages := v1.Group("/messages")
		{
			messages.POST("", h.SendMessage)
			messages.GET("/status", h.Status)
		}

		v1.POST("/broker/auth", h.AuthorizeChannel)
	}
}

func (h *Handler) HandleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error",
		"error", err,
		"path", c.Request.URL.Path,
	)

	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

func (h *Handler) SendMessage(c *gin.Context) {
	if h.service == nil {
		h.HandleError(c, errors.ErrConfiguration)
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(
			errors.ErrInvalidInput.WithMessage("Invalid JSON in request body").WithCause(err),
		))
		return
	}

	if _, err := h.service.Send(c.Request.Context(), req.UserID, req.Message); err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, SendMessageResponse{Success: true})
}

// Status reports configuration presence as booleans only; no secret values.
func (h *Handler) Status(c *gin.Context) {
	channel := ""
	if h.service != nil {
		channel = h.service.Channel()
	}

	c.JSON(http.StatusOK, StatusResponse{
		Status:           "ok",
		BrokerConfigured: h.service != nil,
		AuthConfigured:   h.authorizer != nil,
		Channel:          channel,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) AuthorizeChannel(c *gin.Context) {
	if h.authorizer == nil {
		h.HandleError(c, errors.ErrConfiguration.WithMessage("broker auth is not configured"))
		return
	}

	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(
			errors.ErrInvalidInput.WithMessage("Invalid JSON in request body").WithCause(err),
		))
		return
	}

	resp, err := h.authorizer.Authorize(req.SocketID, req.ChannelName)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
