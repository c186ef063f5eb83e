package botlist

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"modbot/internal/app/infrastructure/config"
	"modbot/pkg/logger"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type memOracle struct {
	names []string
}

func (m *memOracle) Replace(names []string) { m.names = names }

func (m *memOracle) Len() int { return len(m.names) }

var now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func TestFilter(t *testing.T) {
	t.Parallel()

	recent := now.Add(-24 * time.Hour)
	stale := now.Add(-31 * 24 * time.Hour)

	entries := []Entry{
		{Name: "zeta_bot", Channels: 500, LastSeen: recent},
		{Name: "alpha_bot", Channels: 20, LastSeen: recent},
		{Name: "few_channels", Channels: 19, LastSeen: recent},
		{Name: "stale_bot", Channels: 1000, LastSeen: stale},
		{Name: "Nightbot", Channels: 100000, LastSeen: recent},
		{Name: "alpha_bot", Channels: 20, LastSeen: recent},
	}

	got := Filter(entries, 20, 30, []string{"nightbot"}, now)
	assert.Equal(t, []string{"alpha_bot", "zeta_bot"}, got)
}

func TestEntry_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var list listResponse
	raw := `{"bots":[["some_bot", 42, 1717200000], ["other", 1, 0]],"_total":2}`
	require.NoError(t, json.Unmarshal([]byte(raw), &list))
	require.Len(t, list.Bots, 2)
	assert.Equal(t, "some_bot", list.Bots[0].Name)
	assert.Equal(t, 42, list.Bots[0].Channels)
	assert.Equal(t, int64(1717200000), list.Bots[0].LastSeen.Unix())

	var e Entry
	assert.Error(t, json.Unmarshal([]byte(`["short"]`), &e))
	assert.Error(t, json.Unmarshal([]byte(`{"name":"x"}`), &e))
}

func TestRefresher_Refresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"bots":[["b_bot",50,%d],["a_bot",25,%d],["tiny",2,%d]]}`,
			now.Unix(), now.Unix(), now.Unix())
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "list.json")
	cfg := config.Default().BotList
	cfg.Path = path
	cfg.SourceURL = srv.URL

	oracle := &memOracle{}
	r := NewRefresher(logger.NewNop(), srv.Client(), cfg, oracle)
	r.now = func() time.Time { return now }

	n, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a_bot", "b_bot"}, oracle.names)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk []string
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Equal(t, []string{"a_bot", "b_bot"}, onDisk)

	fresh := &memOracle{}
	n, err = NewRefresher(logger.NewNop(), srv.Client(), cfg, fresh).Load()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a_bot", "b_bot"}, fresh.names)
}

func TestRefresher_FetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := config.Default().BotList
	cfg.Path = filepath.Join(t.TempDir(), "list.json")
	cfg.SourceURL = srv.URL

	oracle := &memOracle{names: []string{"kept"}}
	_, err := NewRefresher(logger.NewNop(), srv.Client(), cfg, oracle).Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, []string{"kept"}, oracle.names, "failed refresh keeps the previous list")
}
