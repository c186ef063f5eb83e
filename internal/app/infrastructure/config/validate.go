package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

func (m *Manager) validate(cfg *Config) error {
	return Validate(cfg)
}

// Validate checks required fields and fills zero values that have a safe default.
func Validate(cfg *Config) error {
	def := Default()

	// app
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if cfg.App.LogLevel != "" && !validLevels[cfg.App.LogLevel] {
		return fmt.Errorf("app.log_level must be one of trace, debug, info, warn, error; got %s", cfg.App.LogLevel)
	}
	if cfg.App.GinMode == "" {
		cfg.App.GinMode = def.App.GinMode
	}

	if cfg.App.OAuth == "" {
		return errors.New("app.oauth is required")
	}
	if cfg.App.ClientID == "" {
		return errors.New("app.client_id is required")
	}
	if cfg.App.Username == "" {
		return errors.New("app.username is required")
	}
	if cfg.App.UserID == "" {
		return errors.New("app.user_id is required")
	}
	for i, ch := range cfg.App.Channels {
		ch = strings.TrimPrefix(strings.TrimSpace(ch), "#")
		if ch == "" {
			return fmt.Errorf("app.channels[%d] is empty", i)
		}
		cfg.App.Channels[i] = strings.ToLower(ch)
	}

	// proxy
	if cfg.Proxy != nil && cfg.Proxy.Address != "" && (cfg.Proxy.Port <= 0 || cfg.Proxy.Port > 65535) {
		return errors.New("proxy.port must be [1,65535]")
	}

	// http
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = def.HTTP.Addr
	}

	// helix
	if cfg.Helix.BaseURL == "" {
		cfg.Helix.BaseURL = def.Helix.BaseURL
	}
	if _, err := url.ParseRequestURI(cfg.Helix.BaseURL); err != nil {
		return fmt.Errorf("helix.base_url: %w", err)
	}
	cfg.Helix.BaseURL = strings.TrimSuffix(cfg.Helix.BaseURL, "/")
	if cfg.Helix.RequestsPerMinute <= 0 {
		cfg.Helix.RequestsPerMinute = def.Helix.RequestsPerMinute
	}
	if cfg.Helix.RetryMax < 0 || cfg.Helix.RetryMax > 10 {
		return errors.New("helix.retry_max must be [0,10]")
	}
	if cfg.Helix.RetryWaitMin <= 0 {
		cfg.Helix.RetryWaitMin = def.Helix.RetryWaitMin
	}
	if cfg.Helix.RetryWaitMax < cfg.Helix.RetryWaitMin {
		cfg.Helix.RetryWaitMax = max(def.Helix.RetryWaitMax, cfg.Helix.RetryWaitMin)
	}
	if cfg.Helix.BreakerFailures == 0 {
		cfg.Helix.BreakerFailures = def.Helix.BreakerFailures
	}
	if cfg.Helix.BreakerTimeout <= 0 {
		cfg.Helix.BreakerTimeout = def.Helix.BreakerTimeout
	}
	if cfg.Helix.UserIDCacheTTL <= 0 {
		cfg.Helix.UserIDCacheTTL = def.Helix.UserIDCacheTTL
	}

	// bot list
	if cfg.BotList.Path == "" {
		return errors.New("bot_list.path is required")
	}
	if cfg.BotList.SourceURL == "" {
		cfg.BotList.SourceURL = def.BotList.SourceURL
	}
	if cfg.BotList.RefreshInterval < 0 {
		return errors.New("bot_list.refresh_interval must be >= 0")
	}
	if cfg.BotList.ChannelMinimum < 0 {
		return errors.New("bot_list.channel_minimum must be >= 0")
	}
	if cfg.BotList.DaysMinimum <= 0 {
		return errors.New("bot_list.days_minimum must be > 0")
	}

	// velocity
	if cfg.Velocity.Enabled {
		if cfg.Velocity.Interval <= 0 {
			return errors.New("velocity.interval must be > 0")
		}
		if cfg.Velocity.Threshold <= 0 {
			return errors.New("velocity.threshold must be > 0")
		}
		if cfg.Velocity.WatermarkPath == "" {
			return errors.New("velocity.watermark_path is required")
		}
	}
	if cfg.Velocity.OutgoingFollows < 2 || cfg.Velocity.OutgoingFollows > 100 {
		return errors.New("velocity.outgoing_follows must be [2,100]")
	}
	if cfg.Velocity.PageSize < 1 || cfg.Velocity.PageSize > 100 {
		return errors.New("velocity.page_size must be [1,100]")
	}
	if cfg.Velocity.Concurrency <= 0 {
		cfg.Velocity.Concurrency = def.Velocity.Concurrency
	}

	// verbosity
	if cfg.Verbosity.Path == "" {
		return errors.New("verbosity.path is required")
	}

	// follow alerts
	if cfg.FollowAlerts == nil {
		cfg.FollowAlerts = make(map[string]FollowAlertRule)
	}
	for channel, rule := range cfg.FollowAlerts {
		if rule.Chatbot == "" {
			return fmt.Errorf("follow_alerts.%s.chatbot is required", channel)
		}
		if rule.MessageStart == "" && rule.MessageEnd == "" {
			return fmt.Errorf("follow_alerts.%s needs message_start or message_end", channel)
		}
	}

	return nil
}
