package app

import (
	"context"
	"errors"
	"fmt"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
	"golang.org/x/net/proxy"
	"log/slog"
	router "modbot/internal/app/adapters/http"
	"modbot/internal/app/adapters/http/handlers"
	"modbot/internal/app/adapters/message"
	"modbot/internal/app/adapters/metrics"
	"modbot/internal/app/adapters/platform/twitch"
	"modbot/internal/app/adapters/platform/twitch/api"
	"modbot/internal/app/adapters/platform/twitch/irc"
	"modbot/internal/app/domain/botlist"
	"modbot/internal/app/domain/command"
	"modbot/internal/app/domain/followalert"
	"modbot/internal/app/domain/moderation"
	"modbot/internal/app/domain/velocity"
	"modbot/internal/app/domain/verbosity"
	botlistsync "modbot/internal/app/infrastructure/botlist"
	"modbot/internal/app/infrastructure/config"
	"modbot/internal/app/infrastructure/storage"
	"modbot/internal/app/infrastructure/timers"
	"modbot/internal/app/ports"
	"modbot/pkg/logger"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	configPath         = "config.json"
	idCacheCapacity    = 4096
	idCacheFlushPeriod = 10 * time.Minute
)

func New() error {
	log := logger.New()

	manager, err := config.New(configPath)
	if err != nil {
		if errors.Is(err, config.ErrNotConfigured) {
			log.Warn("Default config written, fill it in and restart", slog.String("path", configPath))
		}
		return err
	}

	cfg := manager.Get()
	log.SetLogLevel(cfg.App.LogLevel)
	gin.SetMode(cfg.App.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport, dial, err := NewTransport(cfg)
	if err != nil {
		return err
	}

	ids, err := storage.NewCache[string](idCacheCapacity, cfg.Helix.UserIDCacheTTL, cfg.Helix.UserIDCachePath)
	if err != nil {
		log.Error("Error loading user id cache", err)
		return err
	}
	defer func() {
		if err := ids.FlushToDisk(); err != nil {
			log.Error("Error flushing user id cache", err)
		}
	}()

	helix := api.NewTwitch(logger.NewPrefixedLogger(log, "helix"), cfg, api.WithTransport(transport), api.WithIDCache(ids))
	checkToken(ctx, log, helix)

	bots := botlist.New(nil)
	refresher := botlistsync.NewRefresher(logger.NewPrefixedLogger(log, "botlist"), &http.Client{Transport: transport, Timeout: time.Minute}, cfg.BotList, bots)
	if n, err := refresher.Load(); err != nil {
		log.Error("Error loading bot list", err, slog.String("path", cfg.BotList.Path))
	} else {
		log.Info("Bot list loaded", slog.Int("size", n))
	}

	verbosityStore, err := verbosity.New(metrics.CountFailures(ports.Persister[map[string]verbosity.Level](
		storage.NewJSONFile[map[string]verbosity.Level](cfg.Verbosity.Path)), "verbosity"))
	if err != nil {
		log.Error("Error loading verbosity", err)
		return err
	}

	chat := irc.New(logger.NewPrefixedLogger(log, "irc"), cfg, irc.WithNetDialContext(dial))
	tw := twitch.New(log, chat, helix)

	commands := command.NewRouter(log, bots, verbosityStore, cfg.App.Username, command.WithObserver(func(id command.ID) {
		metrics.Commands.WithLabelValues(string(id)).Inc()
	}))
	engine := moderation.NewEngine(log, bots, verbosityStore, followalert.New(cfg.FollowAlerts), commands, cfg.Welcome)
	chat.SetHandler(message.New(log, engine, tw))

	sup := suture.New("modbot", suture.Spec{
		EventHook:        (&sutureslog.Handler{Logger: log.Slog()}).MustHook(),
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	})
	sup.Add(fatalOn{Service: chat, log: log, errs: []error{irc.ErrAuthFailed}})
	refreshBots := func(ctx context.Context) {
		if _, err := refresher.Refresh(ctx); err != nil {
			log.Error("Bot list refresh failed", err)
		}
	}
	if cfg.BotList.RefreshInterval > 0 {
		sup.Add(timers.NewPeriodic("bot-list-refresh", cfg.BotList.RefreshInterval, refreshBots, timers.RunAtStart()))
	} else {
		refreshBots(ctx)
	}
	sup.Add(timers.NewPeriodic("user-id-cache-flush", idCacheFlushPeriod, func(context.Context) {
		if err := ids.FlushToDisk(); err != nil {
			log.Error("Error flushing user id cache", err)
		}
	}))

	deps := handlers.Deps{Chat: tw, Bots: bots, Refresher: refresher}
	if cfg.Velocity.Enabled {
		analyzer, err := newAnalyzer(log, cfg, helix, tw)
		if err != nil {
			return err
		}
		deps.Velocity = analyzer

		velocityLog := logger.NewPrefixedLogger(log, "velocity")
		sup.Add(timers.NewPeriodic("follow-velocity", cfg.Velocity.Interval, func(ctx context.Context) {
			res, err := analyzer.RunPass(ctx, tw.ConnectedChannels())
			metrics.ObserveVelocityPass(res, err)
			switch {
			case errors.Is(err, velocity.ErrPassInProgress):
				velocityLog.Warn("Previous pass still running, skipped")
			case err != nil:
				velocityLog.Error("Pass failed", err)
			default:
				velocityLog.Info("Pass finished", slog.String("result", res.String()))
			}
		}))
	}

	sup.Add(router.NewRouter(logger.NewPrefixedLogger(log, "http"), cfg, deps))

	log.Info("Chatbot started", slog.Int("channels", len(cfg.App.Channels)), slog.String("user", cfg.App.Username))
	err = sup.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("Shutting down")
		return nil
	}
	return err
}

func newAnalyzer(log logger.Logger, cfg *config.Config, helix ports.FollowAPIPort, chat velocity.Transport) (*velocity.Analyzer, error) {
	marks, err := velocity.NewWatermarks(metrics.CountFailures(ports.Persister[map[string]ports.FollowData](
		storage.NewJSONFile[map[string]ports.FollowData](cfg.Velocity.WatermarkPath)), "watermarks"))
	if err != nil {
		log.Error("Error loading follower watermarks", err)
		return nil, err
	}
	metrics.Watermarks.Set(float64(marks.Len()))

	return velocity.NewAnalyzer(logger.NewPrefixedLogger(log, "velocity"), helix, chat, marks, velocity.Options{
		Threshold:       cfg.Velocity.Threshold,
		OutgoingFollows: cfg.Velocity.OutgoingFollows,
		Concurrency:     cfg.Velocity.Concurrency,
	}), nil
}

func checkToken(ctx context.Context, log logger.Logger, helix *api.Twitch) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	v, err := helix.ValidateToken(ctx)
	if err != nil {
		log.Error("Token validation failed", err)
		return
	}
	if missing := v.MissingScopes(); len(missing) > 0 {
		log.Warn("Token is missing scopes", slog.Any("scopes", missing))
	}
}

// NewTransport builds the shared HTTP transport and the dial function for
// the chat websocket, both routed through the SOCKS5 proxy when configured.
func NewTransport(cfg *config.Config) (http.RoundTripper, func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	transport := cleanhttp.DefaultPooledTransport()
	if cfg.Proxy == nil || cfg.Proxy.Address == "" || cfg.Proxy.Port == 0 {
		return transport, nil, nil
	}

	dialer, err := proxy.SOCKS5("tcp", fmt.Sprintf("%s:%d", cfg.Proxy.Address, cfg.Proxy.Port), nil, proxy.Direct)
	if err != nil {
		return nil, nil, err
	}

	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			return cd.DialContext(ctx, network, addr)
		}
		return dialer.Dial(network, addr)
	}
	transport.Proxy = nil
	transport.DialContext = dial
	return transport, dial, nil
}

// fatalOn stops the whole tree when the wrapped service fails with one of
// errs instead of restarting it forever.
type fatalOn struct {
	suture.Service
	log  logger.Logger
	errs []error
}

func (f fatalOn) Serve(ctx context.Context) error {
	err := f.Service.Serve(ctx)
	for _, e := range f.errs {
		if errors.Is(err, e) {
			f.log.Error("Service failed permanently, stopping", err, slog.String("service", f.String()))
			return suture.ErrTerminateSupervisorTree
		}
	}
	return err
}

func (f fatalOn) String() string {
	return fmt.Sprint(f.Service)
}
