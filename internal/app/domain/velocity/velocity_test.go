package velocity

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"modbot/internal/app/ports"
	"modbot/pkg/logger"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func follows(gaps ...time.Duration) []ports.FollowData {
	out := []ports.FollowData{{FollowedAt: base}}
	at := base
	for _, g := range gaps {
		at = at.Add(-g)
		out = append(out, ports.FollowData{FollowedAt: at})
	}
	return out
}

func TestMedian(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		gaps   []time.Duration
		want   time.Duration
		wantOK bool
	}{
		{"empty", nil, 0, false},
		{"single", []time.Duration{5 * time.Second}, 5 * time.Second, true},
		{"odd", []time.Duration{100, 200, 300}, 200, true},
		{"even", []time.Duration{100, 200, 300, 400}, 250, true},
		{"positional not numeric", []time.Duration{300, 100, 200}, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Median(tt.gaps)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("Median(%v) = (%v, %v), want (%v, %v)", tt.gaps, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFollowGaps(t *testing.T) {
	t.Parallel()

	f := follows(30*time.Second, 40*time.Second, 50*time.Second)
	slices.Reverse(f)

	assert.Equal(t, []time.Duration{30 * time.Second, 40 * time.Second, 50 * time.Second}, FollowGaps(f))
	assert.Nil(t, FollowGaps(f[:1]))

	_, ok := GapStatistic(f[:1])
	assert.False(t, ok)

	gap, ok := GapStatistic(follows(30*time.Second, 30*time.Second))
	assert.True(t, ok)
	assert.Equal(t, 30*time.Second, gap)
}

type fakeAPI struct {
	mu        sync.Mutex
	ids       map[string]string
	followers map[string][]ports.FollowData
	outgoing  map[string][]ports.FollowData
	failIDs   map[string]bool
	entered   chan struct{}
	block     chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		ids:       make(map[string]string),
		followers: make(map[string][]ports.FollowData),
		outgoing:  make(map[string][]ports.FollowData),
		failIDs:   make(map[string]bool),
	}
}

func (f *fakeAPI) GetUserID(_ context.Context, login string) (string, error) {
	if f.block != nil {
		f.entered <- struct{}{}
		<-f.block
	}
	login = strings.ToLower(strings.TrimPrefix(login, "#"))
	if f.failIDs[login] {
		return "", errors.New("boom")
	}
	id, ok := f.ids[login]
	if !ok {
		return "", ports.ErrNotFound
	}
	return id, nil
}

func (f *fakeAPI) GetMostRecentFollower(_ context.Context, channelID string) (ports.FollowData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := f.followers[channelID]
	if len(list) == 0 {
		return ports.FollowData{}, ports.ErrNotFound
	}
	return list[0], nil
}

func (f *fakeAPI) GetFollowersNewerThan(_ context.Context, channelID string, since time.Time) ([]ports.FollowData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []ports.FollowData
	for _, fd := range f.followers[channelID] {
		if fd.FollowedAt.After(since) {
			out = append(out, fd)
		}
	}
	return out, nil
}

func (f *fakeAPI) GetOutgoingFollows(_ context.Context, userID string, n int) ([]ports.FollowData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := f.outgoing[userID]
	if len(list) > n {
		list = list[:n]
	}
	return list, nil
}

func (f *fakeAPI) follow(channelID, userID, login string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fd := ports.FollowData{FollowerID: userID, FollowerLogin: login, FollowedID: channelID, FollowedAt: at}
	f.followers[channelID] = append([]ports.FollowData{fd}, f.followers[channelID]...)
}

type ban struct {
	channel, user string
}

type fakeChat struct {
	mu      sync.Mutex
	joined  []string
	bans    []ban
	banIDs  []string
	failFor string
}

func (c *fakeChat) BanFollower(channel, channelID string, follower ports.FollowData) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if follower.FollowerLogin == c.failFor {
		return errors.New("ban rejected")
	}
	c.bans = append(c.bans, ban{channel, follower.FollowerLogin})
	c.banIDs = append(c.banIDs, channelID+"/"+follower.FollowerID)
	return nil
}

func (c *fakeChat) ConnectedChannels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.joined)
}

type memMarks struct {
	mu    sync.Mutex
	data  map[string]ports.FollowData
	saves int
	err   error
}

func (m *memMarks) Load() (map[string]ports.FollowData, error) { return m.data, nil }

func (m *memMarks) Save(v map[string]ports.FollowData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.saves++
	m.data = v
	return nil
}

func newAnalyzer(t *testing.T, api *fakeAPI, chat *fakeChat, p *memMarks) *Analyzer {
	t.Helper()

	marks, err := NewWatermarks(p)
	require.NoError(t, err)

	return NewAnalyzer(logger.NewNop(), api, chat, marks, Options{Threshold: time.Minute, OutgoingFollows: 20, Concurrency: 4})
}

func TestAnalyzer_ColdStartThenBan(t *testing.T) {
	api := newFakeAPI()
	api.ids["c"] = "100"
	api.follow("100", "1", "old_follower", base.Add(-time.Hour))

	chat := &fakeChat{joined: []string{"#c"}}
	p := &memMarks{}
	a := newAnalyzer(t, api, chat, p)

	res, err := a.RunPass(context.Background(), []string{"#c"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ColdStarts)
	assert.Equal(t, 0, res.NewFollowers)
	assert.Empty(t, chat.bans, "cold start never bans")
	assert.Equal(t, "old_follower", p.data["100"].FollowerLogin)

	api.follow("100", "2", "fast_follower", base.Add(time.Minute))
	api.follow("100", "3", "slow_follower", base.Add(2*time.Minute))
	api.outgoing["2"] = follows(30*time.Second, 30*time.Second)
	api.outgoing["3"] = follows(2*time.Hour, 3*time.Hour, time.Hour)

	res, err = a.RunPass(context.Background(), []string{"#c"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.NewFollowers)
	assert.Equal(t, 2, res.Analysed)
	require.Len(t, res.Flagged, 1)
	assert.Equal(t, 30*time.Second, res.Flagged[0].Gap)
	assert.Equal(t, []ban{{"#c", "fast_follower"}}, chat.bans)
	assert.Equal(t, []string{"100/2"}, chat.banIDs, "bans carry the resolved ids")
	assert.Equal(t, "slow_follower", p.data["100"].FollowerLogin, "watermark moves to the newest follower")

	res, err = a.RunPass(context.Background(), []string{"#c"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.NewFollowers)
	assert.Len(t, chat.bans, 1, "second pass must not ban again")
}

func TestAnalyzer_NoBanWhenChannelLeft(t *testing.T) {
	api := newFakeAPI()
	api.ids["c"] = "100"
	api.follow("100", "1", "old", base)

	chat := &fakeChat{joined: []string{"#c"}}
	p := &memMarks{}
	a := newAnalyzer(t, api, chat, p)

	_, err := a.RunPass(context.Background(), []string{"#c"})
	require.NoError(t, err)

	api.follow("100", "2", "bot", base.Add(time.Minute))
	api.outgoing["2"] = follows(time.Second, time.Second)
	chat.joined = nil

	res, err := a.RunPass(context.Background(), []string{"#c"})
	require.NoError(t, err)
	assert.Len(t, res.Flagged, 1)
	assert.Empty(t, chat.bans)
	assert.Equal(t, "old", p.data["100"].FollowerLogin, "watermark only advances for joined channels")
}

func TestAnalyzer_ColdStartSkippedWhenChannelLeft(t *testing.T) {
	api := newFakeAPI()
	api.ids["c"] = "100"
	api.follow("100", "1", "old", base)

	chat := &fakeChat{}
	p := &memMarks{}
	a := newAnalyzer(t, api, chat, p)

	res, err := a.RunPass(context.Background(), []string{"#c"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ColdStarts)
	assert.Equal(t, 0, res.WatermarksSize)
	assert.Equal(t, 0, p.saves)
}

func TestAnalyzer_WatermarkWithoutFollowedID(t *testing.T) {
	api := newFakeAPI()
	api.ids["c"] = "100"

	chat := &fakeChat{joined: []string{"#c"}}
	p := &memMarks{data: map[string]ports.FollowData{"100": {FollowedAt: base}}}
	a := newAnalyzer(t, api, chat, p)

	api.follow("100", "2", "bot", base.Add(time.Minute))
	api.outgoing["2"] = follows(time.Second, time.Second)

	res, err := a.RunPass(context.Background(), []string{"#c"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewFollowers)
	require.Len(t, res.Flagged, 1)
	assert.Equal(t, []ban{{"#c", "bot"}}, chat.bans)
	assert.Equal(t, "bot", p.data["100"].FollowerLogin)
}

func TestAnalyzer_PersistFailureAbortsBeforeBans(t *testing.T) {
	api := newFakeAPI()
	api.ids["c"] = "100"

	chat := &fakeChat{joined: []string{"#c"}}
	p := &memMarks{data: map[string]ports.FollowData{"100": {FollowedID: "100", FollowedAt: base}}}
	a := newAnalyzer(t, api, chat, p)

	api.follow("100", "2", "bot", base.Add(time.Minute))
	api.outgoing["2"] = follows(time.Second, time.Second)
	p.err = errors.New("read-only filesystem")

	_, err := a.RunPass(context.Background(), []string{"#c"})
	require.Error(t, err)
	assert.ErrorIs(t, err, p.err)
	assert.Empty(t, chat.bans)

	mark, ok := a.marks.Get("100")
	require.True(t, ok)
	assert.True(t, mark.FollowedAt.Equal(base), "in-memory watermark unchanged")

	p.err = nil
	_, err = a.RunPass(context.Background(), []string{"#c"})
	require.NoError(t, err)
	assert.Equal(t, []ban{{"#c", "bot"}}, chat.bans)
}

func TestAnalyzer_IsolatesFailures(t *testing.T) {
	api := newFakeAPI()
	api.ids["a"] = "1"
	api.ids["b"] = "2"
	api.failIDs["broken"] = true

	chat := &fakeChat{joined: []string{"#a", "#b"}, failFor: "bot_a"}
	p := &memMarks{data: map[string]ports.FollowData{
		"1": {FollowedID: "1", FollowedAt: base},
		"2": {FollowedID: "2", FollowedAt: base},
	}}
	a := newAnalyzer(t, api, chat, p)

	api.follow("1", "10", "bot_a", base.Add(time.Minute))
	api.follow("2", "20", "bot_b", base.Add(time.Minute))
	api.outgoing["10"] = follows(time.Second, time.Second)
	api.outgoing["20"] = follows(time.Second, time.Second, time.Second)

	res, err := a.RunPass(context.Background(), []string{"#a", "#b", "#missing", "#broken"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Channels)
	assert.Equal(t, 1, res.BanFailures)
	assert.Equal(t, 1, res.Banned)
	assert.Equal(t, []ban{{"#b", "bot_b"}}, chat.bans)
}

func TestAnalyzer_UndefinedGapNeverFlagged(t *testing.T) {
	api := newFakeAPI()
	api.ids["c"] = "100"

	chat := &fakeChat{joined: []string{"#c"}}
	p := &memMarks{data: map[string]ports.FollowData{"100": {FollowedID: "100", FollowedAt: base}}}
	a := newAnalyzer(t, api, chat, p)

	api.follow("100", "2", "lonely", base.Add(time.Minute))
	api.outgoing["2"] = follows()

	res, err := a.RunPass(context.Background(), []string{"#c"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Analysed)
	assert.Empty(t, res.Flagged)
}

func TestAnalyzer_SerializesPasses(t *testing.T) {
	api := newFakeAPI()
	api.ids["c"] = "100"
	api.entered = make(chan struct{}, 1)
	api.block = make(chan struct{})

	a := newAnalyzer(t, api, &fakeChat{}, &memMarks{})

	done := make(chan error, 1)
	go func() {
		_, err := a.RunPass(context.Background(), []string{"#c"})
		done <- err
	}()
	<-api.entered

	_, err := a.RunPass(context.Background(), []string{"#c"})
	assert.ErrorIs(t, err, ErrPassInProgress)

	close(api.block)
	require.NoError(t, <-done)
}

func TestWatermarks_CommitOnlyMovesForward(t *testing.T) {
	p := &memMarks{}
	w, err := NewWatermarks(p)
	require.NoError(t, err)

	require.NoError(t, w.Commit(map[string]ports.FollowData{"1": {FollowedAt: base}}))
	require.NoError(t, w.Commit(map[string]ports.FollowData{"1": {FollowedAt: base.Add(-time.Minute)}}))

	got, ok := w.Get("1")
	require.True(t, ok)
	assert.True(t, got.FollowedAt.Equal(base))
	assert.Equal(t, 1, p.saves, "no-op commit is not persisted")
	assert.Len(t, w.Snapshot(), 1)
}
