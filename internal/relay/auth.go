package relay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"chatrelay/pkg/errors"
)

// ChannelAuthorizer signs channel subscription requests the way hosted
// pub/sub brokers expect: key:hex(HMAC-SHA256(secret, "socket_id:channel")).
// Only allow-listed channels are signed; the secret never leaves the server.
type ChannelAuthorizer struct {
	key     string
	secret  string
	allowed map[string]struct{}
}

func NewChannelAuthorizer(key, secret string, allowedChannels []string) (*ChannelAuthorizer, error) {
	if key == "" || secret == "" {
		return nil, errors.ErrConfiguration.WithMessage("broker auth key and secret are required")
	}

	allowed := make(map[string]struct{}, len(allowedChannels))
	for _, ch := range allowedChannels {
		allowed[ch] = struct{}{}
	}

	return &ChannelAuthorizer{
		key:     key,
		secret:  secret,
		allowed: allowed,
	}, nil
}

func (a *ChannelAuthorizer) Authorize(socketID, channelName string) (AuthResponse, error) {
	if socketID == "" || channelName == "" {
		return AuthResponse{}, errors.ErrInvalidInput.WithMessage("socket_id and channel_name are required")
	}

	if _, ok := a.allowed[channelName]; !ok {
		return AuthResponse{}, errors.ErrForbidden.WithMessage("channel is not authorized")
	}

	mac := hmac.New(sha256.New, []byte(a.secret))
	mac.Write([]byte(socketID + ":" + channelName))
	signature := hex.EncodeToString(mac.Sum(nil))

	return AuthResponse{Auth: a.key + ":" + signature}, nil
}
