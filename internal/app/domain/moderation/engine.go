package moderation

import (
	"log/slog"
	"modbot/internal/app/infrastructure/config"
	"modbot/internal/app/ports"
	"modbot/pkg/logger"
)

type VerbosityReader interface {
	IsQuiet(channel string) bool
}

type FollowAlertDetector interface {
	Detect(channel, message, sender string) (string, bool)
}

type CommandHandler interface {
	Handle(channel, message, sender string) []Action
}

// Engine turns chat events into moderation actions. It holds no mutable
// state of its own and may be called from a single read loop without locking.
type Engine struct {
	log       logger.Logger
	bots      ports.BotListPort
	verbosity VerbosityReader
	alerts    FollowAlertDetector
	commands  CommandHandler
	welcome   config.Welcome
}

func NewEngine(log logger.Logger, bots ports.BotListPort, verbosity VerbosityReader, alerts FollowAlertDetector, commands CommandHandler, welcome config.Welcome) *Engine {
	return &Engine{
		log:       log,
		bots:      bots,
		verbosity: verbosity,
		alerts:    alerts,
		commands:  commands,
		welcome:   welcome,
	}
}

func (e *Engine) ProcessJoin(channel, username string, isSelf bool) []Action {
	if isSelf || username == "" {
		return nil
	}
	if !e.bots.IsMember(username) {
		return nil
	}

	e.log.Info("Untrusted bot joined", slog.String("channel", channel), slog.String("user", username))
	return e.autoban(channel, username, BanViewBot(channel, username))
}

// ProcessMessage checks for follow alerts first, even on the bot's own
// messages, and only then hands non-self messages to the command handler.
func (e *Engine) ProcessMessage(channel, message, sender string, isSelf bool) []Action {
	if follower, ok := e.alerts.Detect(channel, message, sender); ok {
		return e.processFollow(channel, follower)
	}

	if isSelf {
		return nil
	}
	return e.commands.Handle(channel, message, sender)
}

func (e *Engine) processFollow(channel, follower string) []Action {
	if follower == "" {
		e.log.Debug("Follow alert without a user name", slog.String("channel", channel))
		return nil
	}

	if e.bots.IsMember(follower) {
		e.log.Info("Untrusted bot followed", slog.String("channel", channel), slog.String("user", follower))
		return e.autoban(channel, follower, BanFollowBot(channel, follower))
	}

	if !e.welcome.Enabled {
		return nil
	}
	if e.welcome.RespectVerbosity && e.verbosity.IsQuiet(channel) {
		return nil
	}
	return []Action{Say(channel, WelcomeMessage(follower))}
}

func (e *Engine) autoban(channel, username string, ban Action) []Action {
	if e.verbosity.IsQuiet(channel) {
		return []Action{ban}
	}
	return []Action{Say(channel, AutobanMessage(username)), ban}
}
