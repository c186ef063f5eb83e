package irc

import (
	"context"
	"errors"
	"fmt"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
	"log/slog"
	"modbot/internal/app/adapters/metrics"
	"modbot/internal/app/domain"
	"modbot/internal/app/infrastructure/config"
	"modbot/internal/app/ports"
	"modbot/pkg/logger"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"
)

const DefaultURL = "wss://irc-ws.chat.twitch.tv:443"

var (
	ErrNotConnected = errors.New("not connected to chat")
	ErrAuthFailed   = errors.New("chat login authentication failed")
)

// IRC is a Twitch chat client over websocket. Serve runs one connection
// session; callers (a supervisor) restart it when it returns.
type IRC struct {
	log      logger.Logger
	url      string
	username string
	oauth    string
	dialer   *websocket.Dialer
	limiter  *rate.Limiter
	sayWait  time.Duration

	handlerMu sync.RWMutex
	handler   ports.ChatEventHandler

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu       sync.Mutex
	channels map[string]struct{} // желаемые каналы
	joined   map[string]struct{} // подтвержденные сервером
}

type Option func(i *IRC)

func WithURL(url string) Option {
	return func(i *IRC) {
		i.url = url
	}
}

// WithNetDialContext routes the websocket through dial, e.g. a SOCKS5 dialer.
func WithNetDialContext(dial func(ctx context.Context, network, addr string) (net.Conn, error)) Option {
	return func(i *IRC) {
		i.dialer.NetDialContext = dial
	}
}

func WithLimiter(l *rate.Limiter) Option {
	return func(i *IRC) {
		i.limiter = l
	}
}

func New(log logger.Logger, cfg *config.Config, opts ...Option) *IRC {
	i := &IRC{
		log:      log,
		url:      DefaultURL,
		username: strings.ToLower(cfg.App.Username),
		oauth:    strings.TrimPrefix(cfg.App.OAuth, "oauth:"),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		// 20 сообщений за 30 секунд для не-модераторов
		limiter:  rate.NewLimiter(rate.Every(1500*time.Millisecond), 20),
		sayWait:  5 * time.Second,
		handler:  nopHandler{},
		channels: make(map[string]struct{}),
		joined:   make(map[string]struct{}),
	}

	for _, ch := range cfg.App.Channels {
		i.channels[ircChannel(ch)] = struct{}{}
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *IRC) SetHandler(h ports.ChatEventHandler) {
	i.handlerMu.Lock()
	defer i.handlerMu.Unlock()

	i.handler = h
}

func (i *IRC) eventHandler() ports.ChatEventHandler {
	i.handlerMu.RLock()
	defer i.handlerMu.RUnlock()

	return i.handler
}

func (i *IRC) String() string {
	return "irc"
}

func (i *IRC) Serve(ctx context.Context) error {
	conn, resp, err := i.dialer.DialContext(ctx, i.url, nil)
	if resp != nil && resp.Body != nil {
		if cerr := resp.Body.Close(); cerr != nil {
			i.log.Error("Failed to close response body", cerr)
		}
	}
	if err != nil {
		return fmt.Errorf("chat dial: %w", err)
	}

	i.writeMu.Lock()
	i.conn = conn
	i.writeMu.Unlock()

	defer func() {
		i.writeMu.Lock()
		i.conn = nil
		i.writeMu.Unlock()

		i.mu.Lock()
		clear(i.joined)
		i.mu.Unlock()
		metrics.JoinedChannels.Set(0)

		_ = conn.Close()
	}()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	for _, line := range []string{
		"CAP REQ :twitch.tv/tags twitch.tv/commands twitch.tv/membership",
		"PASS oauth:" + i.oauth,
		"NICK " + i.username,
	} {
		if err := i.write(line); err != nil {
			return err
		}
	}

	err = i.listen(conn)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (i *IRC) listen(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("chat read: %w", err)
		}

		for _, line := range strings.Split(string(data), "\r\n") {
			if line == "" {
				continue
			}
			if err := i.handleLine(line); err != nil {
				return err
			}
		}
	}
}

func (i *IRC) handleLine(line string) error {
	i.log.Trace("Chat line", slog.String("line", line))

	msg, ok := ParseLine(line)
	if !ok {
		i.log.Debug("Unparsable chat line", slog.String("line", line))
		return nil
	}

	switch msg.Command {
	case "PING":
		return i.write("PONG :" + msg.Trailing)
	case "001":
		i.log.Info("Logged in to chat", slog.String("user", i.username))
		i.mu.Lock()
		channels := make([]string, 0, len(i.channels))
		for ch := range i.channels {
			channels = append(channels, ch)
		}
		i.mu.Unlock()
		slices.Sort(channels)

		for _, ch := range channels {
			if err := i.write("JOIN " + ch); err != nil {
				return err
			}
		}
	case "RECONNECT":
		return errors.New("server requested reconnect")
	case "NOTICE":
		switch {
		case strings.Contains(msg.Trailing, "Login authentication failed"),
			strings.Contains(msg.Trailing, "Improperly formatted auth"):
			i.log.Error("Login authentication to chat failed", nil, slog.String("line", line))
			return ErrAuthFailed
		default:
			i.log.Info("Chat notice", slog.String("channel", msg.Channel()), slog.String("text", msg.Trailing), slog.String("id", msg.Tags["msg-id"]))
		}
	case "JOIN":
		isSelf := i.isSelf(msg.Nick)
		if isSelf {
			i.setJoined(msg.Channel(), true)
			i.log.Info("Joined channel", slog.String("channel", msg.Channel()))
		}
		metrics.ChatEvents.WithLabelValues("join").Inc()
		i.eventHandler().OnJoin(msg.Channel(), msg.Nick, isSelf)
	case "PART":
		if i.isSelf(msg.Nick) {
			i.setJoined(msg.Channel(), false)
			i.log.Info("Left channel", slog.String("channel", msg.Channel()))
		}
	case "PRIVMSG":
		metrics.ChatEvents.WithLabelValues("message").Inc()
		i.eventHandler().OnMessage(msg.Channel(), msg.Sender(), msg.Text(), i.isSelf(msg.Nick))
	}
	return nil
}

func (i *IRC) isSelf(nick string) bool {
	return strings.EqualFold(nick, i.username)
}

func (i *IRC) setJoined(channel string, joined bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	channel = ircChannel(channel)
	if joined {
		i.joined[channel] = struct{}{}
	} else {
		delete(i.joined, channel)
	}
	metrics.JoinedChannels.Set(float64(len(i.joined)))
}

func (i *IRC) Join(channel string) error {
	channel = ircChannel(channel)
	if channel == "#" {
		return errors.New("empty channel name")
	}

	i.mu.Lock()
	i.channels[channel] = struct{}{}
	i.mu.Unlock()

	err := i.write("JOIN " + channel)
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

func (i *IRC) Part(channel string) error {
	channel = ircChannel(channel)

	i.mu.Lock()
	delete(i.channels, channel)
	i.mu.Unlock()

	err := i.write("PART " + channel)
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

// Say sends message as a /me action. It waits for the outgoing rate limit for
// a short while and gives up rather than stall the read loop. A sent message
// is delivered to the handler as the bot's own message.
func (i *IRC) Say(channel, message string) error {
	message = strings.ReplaceAll(strings.ReplaceAll(message, "\r", " "), "\n", " ")
	if message == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), i.sayWait)
	defer cancel()
	if err := i.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("say in %s: rate limited: %w", channel, err)
	}

	channel = ircChannel(channel)
	if err := i.write("PRIVMSG " + channel + " :\x01ACTION " + message + "\x01"); err != nil {
		return err
	}

	// сервер не возвращает собственные PRIVMSG, поэтому отдаем их обработчику сами
	i.eventHandler().OnMessage(channel, i.username, message, true)
	return nil
}

func (i *IRC) ConnectedChannels() []string {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]string, 0, len(i.joined))
	for ch := range i.joined {
		out = append(out, ch)
	}
	slices.Sort(out)
	return out
}

func (i *IRC) write(line string) error {
	i.writeMu.Lock()
	defer i.writeMu.Unlock()

	if i.conn == nil {
		return ErrNotConnected
	}
	if err := i.conn.WriteMessage(websocket.TextMessage, []byte(line+"\r\n")); err != nil {
		return fmt.Errorf("chat write: %w", err)
	}
	return nil
}

func ircChannel(channel string) string {
	return "#" + domain.ChannelKey(channel)
}

type nopHandler struct{}

func (nopHandler) OnJoin(string, string, bool)            {}
func (nopHandler) OnMessage(string, string, string, bool) {}
