package irc

import "strings"

// Message is one parsed IRC line with IRCv3 tags.
type Message struct {
	Tags     map[string]string
	Nick     string
	Command  string
	Params   []string
	Trailing string
}

// Channel is the first parameter of JOIN, PART and PRIVMSG lines.
func (m *Message) Channel() string {
	if len(m.Params) == 0 {
		return ""
	}
	return m.Params[0]
}

// Sender prefers the display-name tag over the nick from the prefix.
func (m *Message) Sender() string {
	if dn := m.Tags["display-name"]; dn != "" {
		return dn
	}
	return m.Nick
}

// Text returns the trailing parameter with any CTCP ACTION framing removed.
func (m *Message) Text() string {
	text := m.Trailing
	if strings.HasPrefix(text, "\x01ACTION ") && strings.HasSuffix(text, "\x01") {
		text = text[len("\x01ACTION ") : len(text)-1]
	}
	return text
}

// ParseLine parses a single IRC line without its CRLF terminator.
func ParseLine(line string) (*Message, bool) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, false
	}

	msg := &Message{}

	if line[0] == '@' {
		spaceIdx := strings.IndexByte(line, ' ')
		if spaceIdx == -1 {
			return nil, false
		}
		msg.Tags = parseTags(line[1:spaceIdx])
		line = strings.TrimLeft(line[spaceIdx+1:], " ")
	}

	if strings.HasPrefix(line, ":") {
		spaceIdx := strings.IndexByte(line, ' ')
		if spaceIdx == -1 {
			return nil, false
		}
		prefix := line[1:spaceIdx]
		if bang := strings.IndexByte(prefix, '!'); bang != -1 {
			msg.Nick = prefix[:bang]
		} else {
			msg.Nick = prefix
		}
		line = strings.TrimLeft(line[spaceIdx+1:], " ")
	}

	if idx := strings.Index(line, " :"); idx != -1 {
		msg.Trailing = line[idx+2:]
		line = line[:idx]
	} else if strings.HasPrefix(line, ":") {
		msg.Trailing = line[1:]
		line = ""
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, false
	}
	msg.Command = strings.ToUpper(fields[0])
	msg.Params = fields[1:]

	return msg, true
}

func parseTags(rawTags string) map[string]string {
	tags := make(map[string]string)

	start := 0
	for i := 0; i <= len(rawTags); i++ {
		if i == len(rawTags) || rawTags[i] == ';' {
			tag := rawTags[start:i]
			if tag != "" {
				if eq := strings.IndexByte(tag, '='); eq != -1 {
					tags[tag[:eq]] = unescapeTag(tag[eq+1:])
				} else {
					tags[tag] = ""
				}
			}
			start = i + 1
		}
	}

	return tags
}

var tagUnescaper = strings.NewReplacer(`\s`, " ", `\:`, ";", `\\`, `\`, `\r`, "\r", `\n`, "\n")

func unescapeTag(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}
	return tagUnescaper.Replace(v)
}
