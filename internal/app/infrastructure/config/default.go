package config

import "time"

const (
	DefaultHelixURL   = "https://api.twitch.tv/helix"
	DefaultBotListURL = "https://api.twitchinsights.net/v1/bots/all"
)

func (m *Manager) GetDefault() *Config {
	return Default()
}

func Default() *Config {
	return &Config{
		App: App{
			LogLevel: "info",
			GinMode:  "release",
			Channels: make([]string, 0),
		},
		HTTP: HTTP{
			Addr: ":8080",
		},
		Helix: Helix{
			BaseURL:           DefaultHelixURL,
			RequestsPerMinute: 600,
			RetryMax:          4,
			RetryWaitMin:      time.Second,
			RetryWaitMax:      30 * time.Second,
			BreakerFailures:   5,
			BreakerTimeout:    time.Minute,
			UserIDCacheTTL:    24 * time.Hour,
			UserIDCachePath:   "cache/user_ids.json",
		},
		BotList: BotList{
			Path:            "list.json",
			SourceURL:       DefaultBotListURL,
			RefreshInterval: 6 * time.Minute,
			ChannelMinimum:  20,
			DaysMinimum:     30,
			Whitelist:       make([]string, 0),
		},
		Velocity: Velocity{
			Enabled:         true,
			Interval:        15 * time.Minute,
			Threshold:       time.Minute,
			OutgoingFollows: 20,
			PageSize:        100,
			Concurrency:     8,
			WatermarkPath:   "cache/recent_follows.json",
		},
		Verbosity: Verbosity{
			Path: "cache/verbosity.json",
		},
		Welcome: Welcome{
			Enabled:          true,
			RespectVerbosity: true,
		},
		FollowAlerts: make(map[string]FollowAlertRule),
	}
}
