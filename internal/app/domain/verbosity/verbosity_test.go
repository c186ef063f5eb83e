package verbosity

import (
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

type memPersister struct {
	data    map[string]Level
	saves   int
	failErr error
}

func (m *memPersister) Load() (map[string]Level, error) {
	return m.data, nil
}

func (m *memPersister) Save(val map[string]Level) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.saves++
	m.data = val
	return nil
}

func TestStore_DefaultLoud(t *testing.T) {
	s, err := New(&memPersister{})
	require.NoError(t, err)

	assert.Equal(t, Loud, s.Level("#never_seen"))
	assert.False(t, s.IsQuiet("#never_seen"))
}

func TestStore_SetPersists(t *testing.T) {
	p := &memPersister{}
	s, err := New(p)
	require.NoError(t, err)

	require.NoError(t, s.SetQuiet("#Chan"))
	assert.True(t, s.IsQuiet("chan"))
	assert.True(t, s.IsQuiet("#CHAN"))
	assert.Equal(t, Quiet, p.data["chan"])

	require.NoError(t, s.SetLoud("#chan"))
	assert.False(t, s.IsQuiet("#chan"))
	assert.Equal(t, Loud, p.data["chan"])
	assert.Equal(t, 2, p.saves)
}

func TestStore_LoadsExisting(t *testing.T) {
	p := &memPersister{data: map[string]Level{"#Quietchan": Quiet, "other": "bogus"}}
	s, err := New(p)
	require.NoError(t, err)

	assert.True(t, s.IsQuiet("#quietchan"))
	assert.Equal(t, Loud, s.Level("other"))
	assert.Len(t, s.Snapshot(), 1)
}

func TestStore_RollbackOnPersistFailure(t *testing.T) {
	p := &memPersister{}
	s, err := New(p)
	require.NoError(t, err)

	require.NoError(t, s.SetQuiet("#a"))

	p.failErr = errors.New("disk full")
	err = s.SetLoud("#a")
	require.Error(t, err)
	assert.ErrorIs(t, err, p.failErr)
	assert.True(t, s.IsQuiet("#a"), "failed write must keep the previous value")

	err = s.SetQuiet("#b")
	require.Error(t, err)
	assert.False(t, s.IsQuiet("#b"))
	_, present := s.Snapshot()["b"]
	assert.False(t, present)
}

func TestStore_RejectsUnknownLevel(t *testing.T) {
	s, err := New(&memPersister{})
	require.NoError(t, err)

	assert.Error(t, s.Set("#a", "whisper"))
}
