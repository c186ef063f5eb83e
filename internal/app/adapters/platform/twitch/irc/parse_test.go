package irc

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestParseLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		line     string
		command  string
		nick     string
		channel  string
		sender   string
		text     string
		tagKey   string
		tagValue string
	}{
		{
			name:    "privmsg with tags",
			line:    "@badge-info=;display-name=StreamElements;id=abc;user-id=1 :streamelements!streamelements@streamelements.tmi.twitch.tv PRIVMSG #chan :Thanks for the follow viewer!\r\n",
			command: "PRIVMSG", nick: "streamelements", channel: "#chan", sender: "StreamElements",
			text: "Thanks for the follow viewer!", tagKey: "id", tagValue: "abc",
		},
		{
			name:    "join",
			line:    ":test_bot_1!test_bot_1@test_bot_1.tmi.twitch.tv JOIN #chan",
			command: "JOIN", nick: "test_bot_1", channel: "#chan", sender: "test_bot_1",
		},
		{
			name:    "action",
			line:    ":modbot!modbot@modbot.tmi.twitch.tv PRIVMSG #chan :\x01ACTION pong!\x01",
			command: "PRIVMSG", nick: "modbot", channel: "#chan", sender: "modbot", text: "pong!",
		},
		{
			name:    "ping",
			line:    "PING :tmi.twitch.tv",
			command: "PING", text: "tmi.twitch.tv",
		},
		{
			name:    "escaped tag",
			line:    "@system-msg=hello\\sworld\\:x :tmi.twitch.tv NOTICE #chan :msg",
			command: "NOTICE", nick: "tmi.twitch.tv", channel: "#chan", sender: "tmi.twitch.tv", text: "msg",
			tagKey: "system-msg", tagValue: "hello world;x",
		},
		{
			name:    "numeric",
			line:    ":tmi.twitch.tv 001 modbot :Welcome, GLHF!",
			command: "001", nick: "tmi.twitch.tv", channel: "modbot", sender: "tmi.twitch.tv", text: "Welcome, GLHF!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := ParseLine(tt.line)
			require.True(t, ok)
			assert.Equal(t, tt.command, msg.Command)
			assert.Equal(t, tt.nick, msg.Nick)
			assert.Equal(t, tt.channel, msg.Channel())
			assert.Equal(t, tt.sender, msg.Sender())
			assert.Equal(t, tt.text, msg.Text())
			if tt.tagKey != "" {
				assert.Equal(t, tt.tagValue, msg.Tags[tt.tagKey])
			}
		})
	}
}

func TestParseLine_Malformed(t *testing.T) {
	t.Parallel()

	for _, line := range []string{"", "\r\n", "@only-tags", ":prefixonly", "@a=b :nick"} {
		_, ok := ParseLine(line)
		assert.False(t, ok, "line %q", line)
	}
}
