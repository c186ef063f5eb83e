package command

import (
	"log/slog"
	"modbot/internal/app/domain/moderation"
	"modbot/internal/app/ports"
	"modbot/pkg/logger"
	"strings"
)

const (
	MsgCheckRequiresName = "check requires a name"
	MsgPong              = "pong!"
	MsgBye               = "Bye!"
)

type VerbositySetter interface {
	SetLoud(channel string) error
	SetQuiet(channel string) error
}

type handler func(cmd Command, channel, sender string) []moderation.Action

// Router dispatches parsed chat commands. Replies are never gated by the
// channel verbosity.
type Router struct {
	log       logger.Logger
	bots      ports.BotListPort
	verbosity VerbositySetter
	botName   string

	handlers map[ID]handler
	onRun    func(id ID)
}

type Option func(r *Router)

// WithObserver registers a callback invoked for every recognised command.
func WithObserver(fn func(id ID)) Option {
	return func(r *Router) {
		r.onRun = fn
	}
}

func NewRouter(log logger.Logger, bots ports.BotListPort, verbosity VerbositySetter, botName string, opts ...Option) *Router {
	r := &Router{
		log:       log,
		bots:      bots,
		verbosity: verbosity,
		botName:   botName,
		onRun:     func(ID) {},
	}
	r.handlers = map[ID]handler{
		IDCheck: r.check,
		IDJoin:  r.join,
		IDLoud:  r.loud,
		IDQuiet: r.quiet,
		IDPing:  r.ping,
		IDStop:  r.stop,
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle parses message and dispatches it. Non-commands yield no actions.
func (r *Router) Handle(channel, message, sender string) []moderation.Action {
	cmd, ok := Parse(message)
	if !ok {
		return nil
	}
	return r.Dispatch(cmd, channel, sender)
}

func (r *Router) Dispatch(cmd Command, channel, sender string) []moderation.Action {
	id, ok := cmd.Resolve()
	if !ok {
		r.log.Debug("Unknown command", slog.String("channel", channel), slog.String("command", cmd.Name), slog.String("sender", sender))
		return nil
	}

	h, ok := r.handlers[id]
	if !ok {
		return nil
	}

	r.onRun(id)
	r.log.Debug("Command received", slog.String("channel", channel), slog.String("command", string(id)), slog.String("sender", sender))
	return h(cmd, channel, sender)
}

func (r *Router) check(cmd Command, channel, _ string) []moderation.Action {
	name := cmd.Arg(0)
	if name == "" {
		return []moderation.Action{moderation.Say(channel, MsgCheckRequiresName)}
	}

	if r.bots.IsMember(name) {
		return []moderation.Action{moderation.Say(channel, name+" seems to be an untrusted bot")}
	}
	return []moderation.Action{moderation.Say(channel, name+" does not seem to be an untrusted bot")}
}

func (r *Router) join(cmd Command, channel, sender string) []moderation.Action {
	if r.botName == "" || !strings.EqualFold(sender, r.botName) {
		r.log.Warn("Join denied", slog.String("channel", channel), slog.String("sender", sender))
		return nil
	}

	target := cmd.Arg(0)
	if target == "" {
		r.log.Debug("Join without a channel", slog.String("channel", channel))
		return nil
	}

	r.log.Info("Join requested", slog.String("channel", channel), slog.String("target", target))
	return []moderation.Action{moderation.Join(target)}
}

func (r *Router) loud(_ Command, channel, _ string) []moderation.Action {
	if err := r.verbosity.SetLoud(channel); err != nil {
		r.log.Error("Failed to set verbosity", err, slog.String("channel", channel), slog.String("level", "loud"))
	}
	return nil
}

func (r *Router) quiet(_ Command, channel, _ string) []moderation.Action {
	if err := r.verbosity.SetQuiet(channel); err != nil {
		r.log.Error("Failed to set verbosity", err, slog.String("channel", channel), slog.String("level", "quiet"))
	}
	return nil
}

func (r *Router) ping(_ Command, channel, _ string) []moderation.Action {
	return []moderation.Action{moderation.Say(channel, MsgPong)}
}

func (r *Router) stop(_ Command, channel, _ string) []moderation.Action {
	return []moderation.Action{
		moderation.Say(channel, MsgBye),
		moderation.Part(channel),
	}
}
