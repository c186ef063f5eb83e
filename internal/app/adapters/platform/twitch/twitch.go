package twitch

import (
	"context"
	"modbot/internal/app/adapters/platform/twitch/irc"
	"modbot/internal/app/ports"
	"modbot/pkg/logger"
	"time"
)

const (
	ReasonViewBot   = "Suspected bot (too many channels)"
	ReasonFollowBot = "Suspected bot (following too fast)"
)

// Twitch implements ports.ChatPort: chat traffic goes over IRC, bans go
// through the Helix moderation endpoint.
type Twitch struct {
	log     logger.Logger
	irc     *irc.IRC
	mod     ports.ModerationPort
	timeout time.Duration
}

func New(log logger.Logger, chat *irc.IRC, mod ports.ModerationPort) *Twitch {
	return &Twitch{
		log:     log,
		irc:     chat,
		mod:     mod,
		timeout: 30 * time.Second,
	}
}

func (t *Twitch) IRC() *irc.IRC {
	return t.irc
}

func (t *Twitch) Say(channel, message string) error {
	return t.irc.Say(channel, message)
}

func (t *Twitch) Join(channel string) error {
	return t.irc.Join(channel)
}

func (t *Twitch) Part(channel string) error {
	return t.irc.Part(channel)
}

func (t *Twitch) ConnectedChannels() []string {
	return t.irc.ConnectedChannels()
}

func (t *Twitch) BanViewBot(channel, username string) error {
	return t.ban(channel, username, ReasonViewBot)
}

func (t *Twitch) BanFollowBot(channel, username string) error {
	return t.ban(channel, username, ReasonFollowBot)
}

// BanFollower bans a follower found by the velocity analyzer. Known ids are
// used as is; the name lookup is only a fallback.
func (t *Twitch) BanFollower(channel, channelID string, follower ports.FollowData) error {
	if channelID == "" || follower.FollowerID == "" {
		name := follower.FollowerLogin
		if name == "" {
			name = follower.FollowerName
		}
		return t.ban(channel, name, ReasonFollowBot)
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	return t.mod.BanUser(ctx, channelID, follower.FollowerID, ReasonFollowBot)
}

func (t *Twitch) ban(channel, username, reason string) error {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	return t.mod.Ban(ctx, channel, username, reason)
}
