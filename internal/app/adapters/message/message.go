package message

import (
	"log/slog"
	"modbot/internal/app/adapters/metrics"
	"modbot/internal/app/domain"
	"modbot/internal/app/domain/moderation"
	"modbot/internal/app/ports"
	"modbot/pkg/logger"
	"time"
)

type Engine interface {
	ProcessJoin(channel, username string, isSelf bool) []moderation.Action
	ProcessMessage(channel, message, sender string, isSelf bool) []moderation.Action
}

// Message bridges chat events to the moderation engine and carries out the
// actions it returns, in order, before the next event is read.
type Message struct {
	log    logger.Logger
	engine Engine
	chat   ports.ChatPort
}

func New(log logger.Logger, engine Engine, chat ports.ChatPort) *Message {
	return &Message{
		log:    log,
		engine: engine,
		chat:   chat,
	}
}

func (m *Message) OnJoin(channel, username string, isSelf bool) {
	start := time.Now()
	m.log.Trace("Processing join", slog.String("channel", channel), slog.String("username", username))

	m.Execute(m.engine.ProcessJoin(channel, username, isSelf))
	metrics.EventProcessingTime.WithLabelValues("join").Observe(time.Since(start).Seconds())
}

func (m *Message) OnMessage(channel, sender, message string, isSelf bool) {
	start := time.Now()
	m.log.Trace("Processing new message", slog.String("channel", channel), slog.String("username", sender), slog.String("message", message))

	m.Execute(m.engine.ProcessMessage(channel, message, sender, isSelf))
	metrics.EventProcessingTime.WithLabelValues("message").Observe(time.Since(start).Seconds())
}

func (m *Message) Execute(actions []moderation.Action) {
	for _, action := range actions {
		if err := m.apply(action); err != nil {
			metrics.ModerationFailures.WithLabelValues(string(action.Type)).Inc()
			m.log.Error("Failed to execute action", err, slog.String("action", action.String()))
			continue
		}
		metrics.ModerationActions.WithLabelValues(domain.ChannelKey(action.Channel), string(action.Type)).Inc()
	}
}

func (m *Message) apply(action moderation.Action) error {
	switch action.Type {
	case moderation.ActionSay:
		return m.chat.Say(action.Channel, action.Message)
	case moderation.ActionBanViewBot:
		m.log.Warn("Ban view bot", slog.String("channel", action.Channel), slog.String("username", action.Username))
		return m.chat.BanViewBot(action.Channel, action.Username)
	case moderation.ActionBanFollowBot:
		m.log.Warn("Ban follow bot", slog.String("channel", action.Channel), slog.String("username", action.Username))
		return m.chat.BanFollowBot(action.Channel, action.Username)
	case moderation.ActionJoin:
		m.log.Info("Joining channel", slog.String("channel", action.Channel))
		return m.chat.Join(action.Channel)
	case moderation.ActionPart:
		m.log.Info("Leaving channel", slog.String("channel", action.Channel))
		return m.chat.Part(action.Channel)
	default:
		m.log.Warn("Unknown action type", slog.String("type", string(action.Type)))
		return nil
	}
}
