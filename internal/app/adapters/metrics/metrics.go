package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JoinedChannels - количество каналов, к которым подключен бот.
	JoinedChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modbot_joined_channels",
		Help: "Number of chat channels currently joined",
	})

	// ModerationActions - действия модерации по каналам.
	ModerationActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modbot_moderation_actions_total",
			Help: "Total number of moderation actions executed per channel and action",
		},
		[]string{"channel", "action"},
	)

	// ModerationFailures - неудачные действия модерации.
	ModerationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modbot_moderation_failures_total",
			Help: "Total number of moderation actions the transport failed to carry out",
		},
		[]string{"action"},
	)

	// Commands - количество вызовов команд.
	Commands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modbot_commands_total",
			Help: "Total number of chat commands handled per command",
		},
		[]string{"command"},
	)

	// ChatEvents - входящие события чата.
	ChatEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modbot_chat_events_total",
			Help: "Total number of chat events received per type",
		},
		[]string{"type"},
	)

	// VelocityPasses - проходы анализатора по результату.
	VelocityPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modbot_velocity_passes_total",
			Help: "Total number of follow velocity passes per result",
		},
		[]string{"result"},
	)

	// VelocityPassDuration - длительность прохода.
	VelocityPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "modbot_velocity_pass_seconds",
			Help:    "Duration of a follow velocity pass",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)

	// FollowersAnalysed - проанализированные новые фолловеры.
	FollowersAnalysed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modbot_followers_analysed_total",
		Help: "Total number of new followers whose outgoing follows were analysed",
	})

	// FollowBotsFlagged - фолловеры с подозрительно малым интервалом.
	FollowBotsFlagged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "modbot_follow_bots_flagged_total",
		Help: "Total number of followers flagged as follow bots",
	})

	// Watermarks - количество каналов с сохраненной отметкой.
	Watermarks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modbot_watermarks",
		Help: "Number of channels with a stored follower watermark",
	})

	// BotListSize - размер списка ботов.
	BotListSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modbot_bot_list_size",
		Help: "Number of names in the suspected bot list",
	})

	// BotListRefreshes - обновления списка ботов по результату.
	BotListRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modbot_bot_list_refreshes_total",
			Help: "Total number of bot list refreshes per result",
		},
		[]string{"result"},
	)

	// PersistFailures - ошибки записи состояния на диск.
	PersistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modbot_persist_failures_total",
			Help: "Total number of failed state writes per store",
		},
		[]string{"store"},
	)

	// HelixRequests - запросы к Helix API по endpoint и статусу.
	HelixRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modbot_helix_requests_total",
			Help: "Total number of Helix API requests per endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	// HelixBreakerState - состояние circuit breaker (0 closed, 1 half-open, 2 open).
	HelixBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "modbot_helix_breaker_state",
		Help: "State of the Helix circuit breaker: 0 closed, 1 half-open, 2 open",
	})
)

// EventProcessingTime - время обработки события чата.
var EventProcessingTime = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "modbot_event_processing_seconds",
		Help:    "Time to process a chat event including executing its actions",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 18),
	},
	[]string{"type"},
)
