package constants

import "time"

const (
	// DefaultChannel is the single logical broadcast channel. All traffic
	// shares it; there is no per-room partitioning.
	DefaultChannel = "chat-channel"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultMaxClients     = 256
	DefaultSendBufferSize = 64
)

const (
	// PongWait bounds how long a socket connection may stay silent before
	// the server treats it as dead. Pings go out at 90% of the window.
	PongWait   = 60 * time.Second
	PingPeriod = (PongWait * 9) / 10
	WriteWait  = 5 * time.Second
)
