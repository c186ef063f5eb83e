package config

import "time"

type Config struct {
	App          App                        `json:"app"`
	Proxy        *Proxy                     `json:"proxy"`
	HTTP         HTTP                       `json:"http"`
	Helix        Helix                      `json:"helix"`
	BotList      BotList                    `json:"bot_list"`
	Velocity     Velocity                   `json:"velocity"`
	Verbosity    Verbosity                  `json:"verbosity"`
	Welcome      Welcome                    `json:"welcome"`
	FollowAlerts map[string]FollowAlertRule `json:"follow_alerts"` // ключ - канал без '#'
}

type App struct {
	LogLevel  string   `json:"log_level"`
	GinMode   string   `json:"gin_mode"`
	OAuth     string   `json:"oauth"`
	ClientID  string   `json:"client_id"`
	Username  string   `json:"username"`
	UserID    string   `json:"user_id"`
	AuthToken string   `json:"auth_token"`
	Channels  []string `json:"channels"`
}

type Proxy struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
}

type HTTP struct {
	Addr string `json:"addr"`
}

type Helix struct {
	BaseURL           string        `json:"base_url"`
	RequestsPerMinute int           `json:"requests_per_minute"`
	RetryMax          int           `json:"retry_max"`
	RetryWaitMin      time.Duration `json:"retry_wait_min"`
	RetryWaitMax      time.Duration `json:"retry_wait_max"`
	BreakerFailures   uint32        `json:"breaker_failures"` // подряд неудачных запросов до размыкания
	BreakerTimeout    time.Duration `json:"breaker_timeout"`
	UserIDCacheTTL    time.Duration `json:"user_id_cache_ttl"`
	UserIDCachePath   string        `json:"user_id_cache_path"`
}

type BotList struct {
	Path            string        `json:"path"`
	SourceURL       string        `json:"source_url"`
	RefreshInterval time.Duration `json:"refresh_interval"`
	ChannelMinimum  int           `json:"channel_minimum"`
	DaysMinimum     int           `json:"days_minimum"`
	Whitelist       []string      `json:"whitelist"`
}

type Velocity struct {
	Enabled         bool          `json:"enabled"`
	Interval        time.Duration `json:"interval"`
	Threshold       time.Duration `json:"threshold"`
	OutgoingFollows int           `json:"outgoing_follows"` // сколько последних follow смотреть у подписчика
	PageSize        int           `json:"page_size"`
	Concurrency     int           `json:"concurrency"`
	WatermarkPath   string        `json:"watermark_path"`
}

type Verbosity struct {
	Path string `json:"path"`
}

type Welcome struct {
	Enabled          bool `json:"enabled"`
	RespectVerbosity bool `json:"respect_verbosity"`
}

type FollowAlertRule struct {
	Chatbot      string `json:"chatbot"`
	MessageStart string `json:"message_start"`
	MessageEnd   string `json:"message_end"`
}
