package relay

// SendMessageRequest is the inbound submission body. Field presence is
// validated explicitly so the error reads the same whichever field is missing.
type SendMessageRequest struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type SendMessageResponse struct {
	Success bool `json:"success"`
}

type StatusResponse struct {
	Status           string `json:"status"`
	BrokerConfigured bool   `json:"brokerConfigured"`
	AuthConfigured   bool   `json:"authConfigured"`
	Channel          string `json:"channel"`
	Timestamp        string `json:"timestamp"`
}

type AuthRequest struct {
	SocketID    string `json:"socket_id"`
	ChannelName string `json:"channel_name"`
}

type AuthResponse struct {
	Auth string `json:"auth"`
}
