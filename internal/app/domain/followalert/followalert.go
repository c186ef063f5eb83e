package followalert

import (
	"modbot/internal/app/domain"
	"modbot/internal/app/infrastructure/config"
	"strings"
)

// Detector recognises the "new follower" announcements that channel chatbots
// post and extracts the follower's name from between the configured framing.
type Detector struct {
	rules map[string]config.FollowAlertRule
}

func New(rules map[string]config.FollowAlertRule) *Detector {
	d := &Detector{rules: make(map[string]config.FollowAlertRule, len(rules))}
	for ch, r := range rules {
		d.rules[domain.ChannelKey(ch)] = r
	}
	return d
}

// Detect returns the followed user name when message is a follow alert for
// channel. The name is returned exactly as it sits between the framing, so a
// matching alert with nothing in between yields ("", true).
func (d *Detector) Detect(channel, message, sender string) (string, bool) {
	rule, ok := d.rules[domain.ChannelKey(channel)]
	if !ok || rule.Chatbot == "" || sender != rule.Chatbot {
		return "", false
	}

	if len(message) < len(rule.MessageStart)+len(rule.MessageEnd) {
		return "", false
	}
	if !strings.HasPrefix(message, rule.MessageStart) || !strings.HasSuffix(message, rule.MessageEnd) {
		return "", false
	}

	return message[len(rule.MessageStart) : len(message)-len(rule.MessageEnd)], true
}
