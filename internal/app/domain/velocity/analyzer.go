package velocity

import (
	"context"
	"errors"
	"fmt"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"log/slog"
	"modbot/internal/app/domain"
	"modbot/internal/app/ports"
	"modbot/pkg/logger"
	"slices"
	"strings"
	"sync"
	"time"
)

var ErrPassInProgress = errors.New("velocity pass already in progress")

const (
	DefaultThreshold       = time.Minute
	DefaultOutgoingFollows = 20
	DefaultConcurrency     = 8
)

// Transport is the part of the chat transport the analyzer needs.
type Transport interface {
	BanFollower(channel, channelID string, follower ports.FollowData) error
	ConnectedChannels() []string
}

type Options struct {
	Threshold       time.Duration
	OutgoingFollows int
	Concurrency     int
}

type Flag struct {
	Channel   string
	ChannelID string
	Follower  ports.FollowData
	Gap       time.Duration
}

type PassResult struct {
	Channels       int
	ColdStarts     int
	NewFollowers   int
	Analysed       int
	Flagged        []Flag
	Banned         int
	BanFailures    int
	Duration       time.Duration
	WatermarksSize int
}

// Analyzer looks for new followers of the joined channels whose own follows
// are spaced too closely together and bans them.
type Analyzer struct {
	log   logger.Logger
	api   ports.FollowAPIPort
	chat  Transport
	marks *Watermarks
	opts  Options

	running *semaphore.Weighted
}

func NewAnalyzer(log logger.Logger, api ports.FollowAPIPort, chat Transport, marks *Watermarks, opts Options) *Analyzer {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.OutgoingFollows < 2 {
		opts.OutgoingFollows = DefaultOutgoingFollows
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	return &Analyzer{
		log:     log,
		api:     api,
		chat:    chat,
		marks:   marks,
		opts:    opts,
		running: semaphore.NewWeighted(1),
	}
}

type target struct {
	channel string
	id      string
}

type newFollows struct {
	target
	follows []ports.FollowData
}

// RunPass performs one full analysis over joined. Passes never overlap: a
// call made while another pass runs returns ErrPassInProgress immediately.
// A failed watermark write aborts the pass before any ban is issued.
func (a *Analyzer) RunPass(ctx context.Context, joined []string) (res PassResult, err error) {
	if !a.running.TryAcquire(1) {
		return PassResult{}, ErrPassInProgress
	}
	defer a.running.Release(1)

	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
	}()

	targets := a.resolve(ctx, joined)
	res.Channels = len(targets)

	updates, found := a.collect(ctx, targets, &res)

	still := domain.ChannelSet(a.chat.ConnectedChannels())
	for _, t := range targets {
		if _, ok := still[domain.ChannelKey(t.channel)]; !ok {
			delete(updates, t.id)
		}
	}
	for _, nf := range found {
		res.NewFollowers += len(nf.follows)
		if _, ok := still[domain.ChannelKey(nf.channel)]; !ok {
			a.log.Debug("Channel left during pass, watermark kept", slog.String("channel", nf.channel))
			continue
		}
		updates[nf.id] = newest(nf.follows)
	}

	if len(updates) > 0 {
		if err = a.marks.Commit(updates); err != nil {
			a.log.Error("Velocity pass aborted", err, slog.Int("channels", len(updates)))
			res.WatermarksSize = a.marks.Len()
			return res, err
		}
	}
	res.WatermarksSize = a.marks.Len()

	res.Flagged = a.analyse(ctx, found, &res)
	a.ban(&res)

	return res, nil
}

func (a *Analyzer) resolve(ctx context.Context, joined []string) []target {
	ids := make([]string, len(joined))

	var g errgroup.Group
	g.SetLimit(a.opts.Concurrency)
	for i, ch := range joined {
		g.Go(func() error {
			id, err := a.api.GetUserID(ctx, ch)
			switch {
			case errors.Is(err, ports.ErrNotFound):
				a.log.Warn("Channel not found", slog.String("channel", ch))
			case err != nil:
				a.log.Error("Failed to resolve channel", err, slog.String("channel", ch))
			default:
				ids[i] = id
			}
			return nil
		})
	}
	_ = g.Wait()

	targets := make([]target, 0, len(joined))
	for i, id := range ids {
		if id == "" {
			continue
		}
		targets = append(targets, target{channel: joined[i], id: id})
	}
	return targets
}

func (a *Analyzer) collect(ctx context.Context, targets []target, res *PassResult) (map[string]ports.FollowData, []newFollows) {
	var (
		mu      sync.Mutex
		updates = make(map[string]ports.FollowData)
		found   []newFollows
	)

	var g errgroup.Group
	g.SetLimit(a.opts.Concurrency)
	for _, t := range targets {
		g.Go(func() error {
			mark, ok := a.marks.Get(t.id)
			if !ok {
				recent, err := a.api.GetMostRecentFollower(ctx, t.id)
				switch {
				case errors.Is(err, ports.ErrNotFound):
					a.log.Debug("Channel has no followers yet", slog.String("channel", t.channel))
					return nil
				case err != nil:
					a.log.Error("Failed to fetch most recent follower", err, slog.String("channel", t.channel))
					return nil
				}

				mu.Lock()
				updates[t.id] = recent
				res.ColdStarts++
				mu.Unlock()
				return nil
			}

			follows, err := a.api.GetFollowersNewerThan(ctx, t.id, mark.FollowedAt)
			if err != nil {
				a.log.Error("Failed to fetch new followers", err, slog.String("channel", t.channel))
				return nil
			}

			follows = slices.DeleteFunc(follows, func(fd ports.FollowData) bool {
				return !fd.FollowedAt.After(mark.FollowedAt)
			})
			if len(follows) == 0 {
				return nil
			}

			mu.Lock()
			found = append(found, newFollows{target: t, follows: follows})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(found, func(x, y newFollows) int {
		return strings.Compare(x.channel, y.channel)
	})
	return updates, found
}

func (a *Analyzer) analyse(ctx context.Context, found []newFollows, res *PassResult) []Flag {
	var (
		mu    sync.Mutex
		flags []Flag
	)

	var g errgroup.Group
	g.SetLimit(a.opts.Concurrency)
	for _, nf := range found {
		for _, fd := range nf.follows {
			g.Go(func() error {
				outgoing, err := a.api.GetOutgoingFollows(ctx, fd.FollowerID, a.opts.OutgoingFollows)
				if err != nil {
					a.log.Error("Failed to fetch outgoing follows", err, slog.String("channel", nf.channel), slog.String("user", fd.FollowerLogin))
					return nil
				}

				gap, ok := GapStatistic(outgoing)

				mu.Lock()
				defer mu.Unlock()
				res.Analysed++
				if !ok || gap >= a.opts.Threshold {
					return nil
				}

				a.log.Info("Follow bot suspected",
					slog.String("channel", nf.channel),
					slog.String("user", fd.FollowerLogin),
					slog.Duration("gap", gap),
				)
				flags = append(flags, Flag{Channel: nf.channel, ChannelID: nf.id, Follower: fd, Gap: gap})
				return nil
			})
		}
	}
	_ = g.Wait()

	slices.SortFunc(flags, func(x, y Flag) int {
		if c := strings.Compare(x.Channel, y.Channel); c != 0 {
			return c
		}
		return y.Follower.FollowedAt.Compare(x.Follower.FollowedAt)
	})
	return flags
}

func (a *Analyzer) ban(res *PassResult) {
	for _, f := range res.Flagged {
		still := domain.ChannelSet(a.chat.ConnectedChannels())
		if _, ok := still[domain.ChannelKey(f.Channel)]; !ok {
			a.log.Debug("Skipping ban, channel no longer joined", slog.String("channel", f.Channel), slog.String("user", f.Follower.FollowerLogin))
			continue
		}

		if err := a.chat.BanFollower(f.Channel, f.ChannelID, f.Follower); err != nil {
			res.BanFailures++
			a.log.Error("Failed to ban follow bot", err, slog.String("channel", f.Channel), slog.String("user", f.Follower.FollowerLogin))
			continue
		}
		res.Banned++
	}
}

func newest(follows []ports.FollowData) ports.FollowData {
	best := follows[0]
	for _, fd := range follows[1:] {
		if fd.FollowedAt.After(best.FollowedAt) {
			best = fd
		}
	}
	return best
}

func (r PassResult) String() string {
	return fmt.Sprintf("channels=%d cold=%d new=%d analysed=%d flagged=%d banned=%d failed=%d in %s",
		r.Channels, r.ColdStarts, r.NewFollowers, r.Analysed, len(r.Flagged), r.Banned, r.BanFailures, r.Duration.Round(time.Millisecond))
}
