package moderation

import "fmt"

type ActionType string

const (
	ActionSay          ActionType = "say"
	ActionBanViewBot   ActionType = "ban_view_bot"
	ActionBanFollowBot ActionType = "ban_follow_bot"
	ActionJoin         ActionType = "join"
	ActionPart         ActionType = "part"
)

// Action is a single decision for the chat transport to carry out. Build it
// with the constructors below; Channel is always the channel the triggering
// event arrived on, except for Join where it is the channel to join.
type Action struct {
	Type     ActionType
	Channel  string
	Username string
	Message  string
}

func Say(channel, message string) Action {
	return Action{Type: ActionSay, Channel: channel, Message: message}
}

func BanViewBot(channel, username string) Action {
	return Action{Type: ActionBanViewBot, Channel: channel, Username: username}
}

func BanFollowBot(channel, username string) Action {
	return Action{Type: ActionBanFollowBot, Channel: channel, Username: username}
}

func Join(channel string) Action {
	return Action{Type: ActionJoin, Channel: channel}
}

func Part(channel string) Action {
	return Action{Type: ActionPart, Channel: channel}
}

func (a Action) String() string {
	switch a.Type {
	case ActionSay:
		return fmt.Sprintf("say(%s, %q)", a.Channel, a.Message)
	case ActionBanViewBot, ActionBanFollowBot:
		return fmt.Sprintf("%s(%s, %s)", a.Type, a.Channel, a.Username)
	default:
		return fmt.Sprintf("%s(%s)", a.Type, a.Channel)
	}
}

func AutobanMessage(username string) string {
	return username + " has registered as an untrusted bot, autobanning"
}

func WelcomeMessage(username string) string {
	return username + " does not appear to be an untrusted bot. Welcome! (This welcome was sent automatically)"
}
