package botlist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"modbot/internal/app/adapters/metrics"
	"modbot/internal/app/domain"
	"modbot/internal/app/infrastructure/config"
	"modbot/internal/app/infrastructure/storage"
	"modbot/pkg/logger"
	"net/http"
	"slices"
	"time"
)

// Entry is one row of the bot directory: [name, channel count, last seen].
type Entry struct {
	Name     string
	Channels int
	LastSeen time.Time
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var row []json.RawMessage
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}
	if len(row) < 3 {
		return fmt.Errorf("bot entry has %d fields, want 3", len(row))
	}

	var lastSeen int64
	if err := json.Unmarshal(row[0], &e.Name); err != nil {
		return fmt.Errorf("bot name: %w", err)
	}
	if err := json.Unmarshal(row[1], &e.Channels); err != nil {
		return fmt.Errorf("bot channels: %w", err)
	}
	if err := json.Unmarshal(row[2], &lastSeen); err != nil {
		return fmt.Errorf("bot last seen: %w", err)
	}
	e.LastSeen = time.Unix(lastSeen, 0)
	return nil
}

type listResponse struct {
	Bots []Entry `json:"bots"`
}

type Replacer interface {
	Replace(names []string)
	Len() int
}

// Refresher keeps the suspected bot list file and the in-memory oracle in
// sync with the public bot directory.
type Refresher struct {
	log    logger.Logger
	client *http.Client
	cfg    config.BotList
	oracle Replacer
	file   *storage.JSONFile[[]string]
	now    func() time.Time
}

func NewRefresher(log logger.Logger, client *http.Client, cfg config.BotList, oracle Replacer) *Refresher {
	return &Refresher{
		log:    log,
		client: client,
		cfg:    cfg,
		oracle: oracle,
		file:   storage.NewJSONFile[[]string](cfg.Path),
		now:    time.Now,
	}
}

// Load fills the oracle from the list file written by a previous refresh.
func (r *Refresher) Load() (int, error) {
	names, err := r.file.Load()
	if err != nil {
		return 0, err
	}

	r.oracle.Replace(names)
	metrics.BotListSize.Set(float64(r.oracle.Len()))
	return len(names), nil
}

func (r *Refresher) Refresh(ctx context.Context) (int, error) {
	entries, err := r.Fetch(ctx)
	if err != nil {
		metrics.BotListRefreshes.WithLabelValues("error").Inc()
		return 0, err
	}
	r.log.Debug("Received bot list", slog.Int("entries", len(entries)))

	names := Filter(entries, r.cfg.ChannelMinimum, r.cfg.DaysMinimum, r.cfg.Whitelist, r.now())
	if err := r.file.Save(names); err != nil {
		metrics.BotListRefreshes.WithLabelValues("error").Inc()
		metrics.PersistFailures.WithLabelValues("bot_list").Inc()
		return 0, err
	}

	r.oracle.Replace(names)
	metrics.BotListSize.Set(float64(r.oracle.Len()))
	metrics.BotListRefreshes.WithLabelValues("ok").Inc()

	r.log.Info("Bot list refreshed",
		slog.Int("received", len(entries)),
		slog.Int("kept", len(names)),
		slog.Int("channel_minimum", r.cfg.ChannelMinimum),
		slog.Int("days_minimum", r.cfg.DaysMinimum),
	)
	return len(names), nil
}

func (r *Refresher) Fetch(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.SourceURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bot list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch bot list: status %d: %s", resp.StatusCode, string(raw))
	}

	var list listResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode bot list: %w", err)
	}
	return list.Bots, nil
}

// Filter keeps bots present in at least channelMinimum channels and seen
// within daysMinimum days of now, drops whitelisted names and sorts the rest.
func Filter(entries []Entry, channelMinimum, daysMinimum int, whitelist []string, now time.Time) []string {
	lastOnline := now.Add(-time.Duration(daysMinimum) * 24 * time.Hour)

	allowed := make(map[string]struct{}, len(whitelist))
	for _, w := range whitelist {
		allowed[domain.Login(w)] = struct{}{}
	}

	names := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Name == "" || e.Channels < channelMinimum || e.LastSeen.Before(lastOnline) {
			continue
		}
		if _, ok := allowed[domain.Login(e.Name)]; ok {
			continue
		}
		if _, ok := seen[e.Name]; ok {
			continue
		}
		seen[e.Name] = struct{}{}
		names = append(names, e.Name)
	}

	slices.Sort(names)
	return names
}
