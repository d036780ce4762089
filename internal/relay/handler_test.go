package relay

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/logger"
)

func setupRouter(t *testing.T, service *Service, authorizer *ChannelAuthorizer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(service, authorizer, logger.NopLogger()).RegisterRoutes(router)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_SendMessage_Success(t *testing.T) {
	producer := &capturingProducer{}
	svc, err := NewService(producer, newTestStamper(), "chat-channel", logger.NopLogger())
	require.NoError(t, err)
	router := setupRouter(t, svc, nil)

	w := postJSON(router, "/api/v1/messages", `{"message":"hello","userId":"user-1"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp SendMessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	require.Len(t, producer.published, 1)
	assert.Equal(t, "chat-channel", producer.published[0].channel)
	assert.Equal(t, "user-1", producer.published[0].envelope.UserID)
	assert.Equal(t, "hello", producer.published[0].envelope.Text)
}

func TestHandler_SendMessage_MissingFields(t *testing.T) {
	producer := &capturingProducer{}
	svc, err := NewService(producer, newTestStamper(), "chat-channel", logger.NopLogger())
	require.NoError(t, err)
	router := setupRouter(t, svc, nil)

	cases := []struct {
		name string
		body string
	}{
		{"missing message", `{"userId":"user-1"}`},
		{"missing userId", `{"message":"hello"}`},
		{"empty message", `{"message":"","userId":"user-1"}`},
		{"empty body object", `{}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postJSON(router, "/api/v1/messages", tc.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "Message and userId are required", resp["error"])
			assert.Equal(t, "INVALID_INPUT", resp["error_code"])
		})
	}

	assert.Empty(t, producer.published)
}

func TestHandler_SendMessage_MalformedJSON(t *testing.T) {
	svc, err := NewService(&capturingProducer{}, newTestStamper(), "chat-channel", logger.NopLogger())
	require.NoError(t, err)
	router := setupRouter(t, svc, nil)

	w := postJSON(router, "/api/v1/messages", `{"message": `)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid JSON in request body", resp["error"])
}

func TestHandler_SendMessage_UnconfiguredBeforeValidation(t *testing.T) {
	router := setupRouter(t, nil, nil)

	// Invalid body on purpose: the configuration error must win.
	w := postJSON(router, "/api/v1/messages", `{}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CONFIGURATION_ERROR", resp["error_code"])
}

func TestHandler_SendMessage_DeliveryFailure(t *testing.T) {
	producer := &capturingProducer{err: assert.AnError}
	svc, err := NewService(producer, newTestStamper(), "chat-channel", logger.NopLogger())
	require.NoError(t, err)
	router := setupRouter(t, svc, nil)

	w := postJSON(router, "/api/v1/messages", `{"message":"hello","userId":"user-1"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "DELIVERY_FAILED", resp["error_code"])
	assert.Equal(t, "failed to send message", resp["error"])
}

func TestHandler_Status(t *testing.T) {
	svc, err := NewService(&capturingProducer{}, newTestStamper(), "chat-channel", logger.NopLogger())
	require.NoError(t, err)
	authorizer, err := NewChannelAuthorizer("app-key", "app-secret", []string{"chat-channel"})
	require.NoError(t, err)
	router := setupRouter(t, svc, authorizer)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.BrokerConfigured)
	assert.True(t, resp.AuthConfigured)
	assert.Equal(t, "chat-channel", resp.Channel)
	assert.NotEmpty(t, resp.Timestamp)

	// No secrets anywhere in the body.
	assert.NotContains(t, w.Body.String(), "app-key")
	assert.NotContains(t, w.Body.String(), "app-secret")
}

func TestHandler_Status_Unconfigured(t *testing.T) {
	router := setupRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/messages/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.BrokerConfigured)
	assert.False(t, resp.AuthConfigured)
	assert.Empty(t, resp.Channel)
}

func TestHandler_AuthorizeChannel(t *testing.T) {
	authorizer, err := NewChannelAuthorizer("app-key", "app-secret", []string{"chat-channel"})
	require.NoError(t, err)
	router := setupRouter(t, nil, authorizer)

	w := postJSON(router, "/api/v1/broker/auth", `{"socket_id":"socket-123","channel_name":"chat-channel"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Auth, "app-key:")
}

func TestHandler_AuthorizeChannel_Forbidden(t *testing.T) {
	authorizer, err := NewChannelAuthorizer("app-key", "app-secret", []string{"chat-channel"})
	require.NoError(t, err)
	router := setupRouter(t, nil, authorizer)

	w := postJSON(router, "/api/v1/broker/auth", `{"socket_id":"socket-123","channel_name":"other"}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_AuthorizeChannel_Unconfigured(t *testing.T) {
	router := setupRouter(t, nil, nil)

	w := postJSON(router, "/api/v1/broker/auth", `{"socket_id":"socket-123","channel_name":"chat-channel"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CONFIGURATION_ERROR", resp["error_code"])
}
