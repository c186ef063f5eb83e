package ports

// ChatPort is the outgoing side of the chat transport. Channels are passed
// exactly as they were received from the transport (usually "#name").
type ChatPort interface {
	Say(channel, message string) error
	Join(channel string) error
	Part(channel string) error
	BanViewBot(channel, username string) error
	BanFollowBot(channel, username string) error
	ConnectedChannels() []string
}

// ChatEventHandler receives events from the chat transport read loop.
// Implementations must not block for long.
type ChatEventHandler interface {
	OnJoin(channel, username string, isSelf bool)
	OnMessage(channel, sender, message string, isSelf bool)
}
