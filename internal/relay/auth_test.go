package relay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/pkg/errors"
)

func TestNewChannelAuthorizer_RequiresCredentials(t *testing.T) {
	_, err := NewChannelAuthorizer("", "secret", nil)
	require.Error(t, err)

	_, err = NewChannelAuthorizer("key", "", nil)
	require.Error(t, err)
}

func TestChannelAuthorizer_Authorize_SignsAllowedChannel(t *testing.T) {
	authorizer, err := NewChannelAuthorizer("app-key", "app-secret", []string{"chat-channel"})
	require.NoError(t, err)

	resp, err := authorizer.Authorize("socket-123", "chat-channel")
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write([]byte("socket-123:chat-channel"))
	want := "app-key:" + hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, resp.Auth)
}

func TestChannelAuthorizer_Authorize_RejectsUnlistedChannel(t *testing.T) {
	authorizer, err := NewChannelAuthorizer("app-key", "app-secret", []string{"chat-channel"})
	require.NoError(t, err)

	_, err = authorizer.Authorize("socket-123", "private-admin")
	require.Error(t, err)

	var appErr *errors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
}

func TestChannelAuthorizer_Authorize_RequiresFields(t *testing.T) {
	authorizer, err := NewChannelAuthorizer("app-key", "app-secret", []string{"chat-channel"})
	require.NoError(t, err)

	_, err = authorizer.Authorize("", "chat-channel")
	assert.True(t, errors.IsInvalidInput(err))

	_, err = authorizer.Authorize("socket-123", "")
	assert.True(t, errors.IsInvalidInput(err))
}
