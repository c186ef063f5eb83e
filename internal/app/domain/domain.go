package domain

import "strings"

// ChannelKey is the canonical form of a channel name used for lookups and
// persistence: no leading '#', lower case.
func ChannelKey(channel string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(channel), "#"))
}

// Login is the canonical form of a user name as it appears in membership lists.
func Login(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

// SameChannel reports whether a and b name the same channel.
func SameChannel(a, b string) bool {
	return ChannelKey(a) == ChannelKey(b)
}

// ChannelSet builds a lookup set of channel keys.
func ChannelSet(channels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		set[ChannelKey(ch)] = struct{}{}
	}
	return set
}
