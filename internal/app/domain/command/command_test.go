package command

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"modbot/internal/app/domain/moderation"
	"modbot/pkg/logger"
	"strings"
	"testing"
)

type fakeBots map[string]bool

func (f fakeBots) IsMember(username string) bool {
	return f[strings.ToLower(username)]
}

type fakeVerbosity struct {
	calls []string
	err   error
}

func (f *fakeVerbosity) SetLoud(channel string) error {
	f.calls = append(f.calls, "loud "+channel)
	return f.err
}

func (f *fakeVerbosity) SetQuiet(channel string) error {
	f.calls = append(f.calls, "quiet "+channel)
	return f.err
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   Command
		wantOK bool
	}{
		{"!check foo", Command{Name: "check", Args: []string{"foo"}}, true},
		{"  !CHECK foo  ", Command{Name: "CHECK", Args: []string{"foo"}}, true},
		{"!ping", Command{Name: "ping", Args: []string{}}, true},
		{"!check  foo", Command{Name: "check", Args: []string{"", "foo"}}, true},
		{"!", Command{}, false},
		{"", Command{}, false},
		{"   ", Command{}, false},
		{"hello !check", Command{}, false},
		{"check foo", Command{}, false},
	}

	for _, tt := range tests {
		got, ok := Parse(tt.in)
		if ok != tt.wantOK {
			t.Fatalf("Parse(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
		}
		if ok {
			assert.Equal(t, tt.want, got, "Parse(%q)", tt.in)
		}
	}
}

func TestCommand_Resolve(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]ID{
		"check":          IDCheck,
		"CHECK":          IDCheck,
		"IsUntrustedBot": IDCheck,
		"iub":            IDCheck,
		"Stop":           IDStop,
	} {
		got, ok := Command{Name: name}.Resolve()
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := Command{Name: "unknown"}.Resolve()
	assert.False(t, ok)
}

func newTestRouter(v *fakeVerbosity, opts ...Option) *Router {
	return NewRouter(logger.NewNop(), fakeBots{"test_bot_1": true}, v, "ModBot", opts...)
}

func TestRouter_Handle(t *testing.T) {
	t.Parallel()

	r := newTestRouter(&fakeVerbosity{})

	tests := []struct {
		name    string
		message string
		sender  string
		want    []moderation.Action
	}{
		{"check bot", "!check TEST_BOT_1", "viewer", []moderation.Action{moderation.Say("#c", "TEST_BOT_1 seems to be an untrusted bot")}},
		{"check case insensitive name", "!CHECK test_bot_1", "viewer", []moderation.Action{moderation.Say("#c", "test_bot_1 seems to be an untrusted bot")}},
		{"check alias", "!iub someone", "viewer", []moderation.Action{moderation.Say("#c", "someone does not seem to be an untrusted bot")}},
		{"check long alias", "!isuntrustedbot someone", "viewer", []moderation.Action{moderation.Say("#c", "someone does not seem to be an untrusted bot")}},
		{"check without name", "!check", "viewer", []moderation.Action{moderation.Say("#c", MsgCheckRequiresName)}},
		{"check with empty arg", "!check  ", "viewer", []moderation.Action{moderation.Say("#c", MsgCheckRequiresName)}},
		{"ping", "!ping", "viewer", []moderation.Action{moderation.Say("#c", MsgPong)}},
		{"stop", "!stop", "viewer", []moderation.Action{moderation.Say("#c", MsgBye), moderation.Part("#c")}},
		{"join by bot identity", "!join other", "modbot", []moderation.Action{moderation.Join("other")}},
		{"join by stranger", "!join other", "viewer", nil},
		{"join without channel", "!join", "ModBot", nil},
		{"unknown", "!dance", "viewer", nil},
		{"not a command", "hello there", "viewer", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Handle("#c", tt.message, tt.sender))
		})
	}
}

func TestRouter_Verbosity(t *testing.T) {
	t.Parallel()

	v := &fakeVerbosity{}
	r := newTestRouter(v)

	assert.Empty(t, r.Handle("#c", "!quiet", "viewer"))
	assert.Empty(t, r.Handle("#c", "!LOUD", "viewer"))
	assert.Equal(t, []string{"quiet #c", "loud #c"}, v.calls)

	v.err = errors.New("disk full")
	assert.Empty(t, r.Handle("#c", "!quiet", "viewer"))
}

func TestRouter_Observer(t *testing.T) {
	t.Parallel()

	var seen []ID
	r := newTestRouter(&fakeVerbosity{}, WithObserver(func(id ID) { seen = append(seen, id) }))

	r.Handle("#c", "!iub x", "viewer")
	r.Handle("#c", "!nope", "viewer")
	r.Handle("#c", "!ping", "viewer")

	require.Len(t, seen, 2)
	assert.Equal(t, []ID{IDCheck, IDPing}, seen)
}
