package replay

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ecofleet/core/city"
	"github.com/kilianp07/ecofleet/core/model"
	"github.com/kilianp07/ecofleet/core/state"
)

func sampleState() *state.State {
	r := &model.Request{ID: 101, Origin: 5, Destination: 7, Passengers: 1, Deadline: 60}
	v := &model.Vehicle{ID: "E1", Class: model.Electric, Location: 5, Range: 80, MaxRange: 100, Capacity: 4, Occupied: true, Onboard: []*model.Request{r}}
	s := state.New([]*model.Vehicle{v}, []*model.Request{{ID: 103}, {ID: 102}}, 12)
	s.Label = "[E1] pickup request 101 at 5"
	s.Alert = "request 99 expired"
	s.Congested = []city.RoadID{{From: 1, To: 2}}
	s.Money = 1.5
	return s
}

func TestFromState(t *testing.T) {
	f := FromState("run-1", 3, sampleState())
	assert.Equal(t, "run-1", f.RunID)
	assert.Equal(t, 3, f.Seq)
	assert.Equal(t, 12, f.Minute)
	assert.Equal(t, "[E1] pickup request 101 at 5", f.Label)
	assert.Equal(t, []int{102, 103}, f.Pending)
	require.Len(t, f.Vehicles, 1)
	assert.Equal(t, "electric", f.Vehicles[0].Class)
	assert.Equal(t, []int{101}, f.Vehicles[0].Onboard)
	assert.Equal(t, []city.RoadID{{From: 1, To: 2}}, f.Congested)
	assert.False(t, f.Recorded.IsZero())
}

/*
TestQueryMatch covers the frame filters.
Cases:
  - empty query matches everything
  - run id mismatch
  - minute window bounds are inclusive
  - zero To is unbounded
*/
func TestQueryMatch(t *testing.T) {
	f := Frame{RunID: "a", Minute: 10}
	tests := []struct {
		name string
		q    Query
		want bool
	}{
		{"empty", Query{}, true},
		{"other run", Query{RunID: "b"}, false},
		{"inclusive", Query{From: 10, To: 10}, true},
		{"before window", Query{From: 11}, false},
		{"after window", Query{To: 9}, false},
		{"unbounded", Query{From: 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.Match(f))
		})
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, Frame{RunID: "r1", Seq: i, Minute: i}))
	}
	require.NoError(t, s.Append(ctx, Frame{RunID: "r2", Seq: 0, Minute: 0}))

	all, err := s.Query(ctx, Query{})
	require.NoError(t, err)
	assert.Len(t, all, 6)

	win, err := s.Query(ctx, Query{RunID: "r1", From: 1, To: 3})
	require.NoError(t, err)
	require.Len(t, win, 3)
	assert.Equal(t, 1, win[0].Minute)
	assert.Equal(t, 3, win[2].Minute)

	lim, err := s.Query(ctx, Query{RunID: "r1", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, lim, 2)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)
	assert.Equal(t, 6, s.Len())
}

func TestJSONLStore(t *testing.T) {
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "frames.jsonl"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestRotatingJSONLStore(t *testing.T) {
	s, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "replay", "frames.jsonl"), 1, 2, 1)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frames.jsonl")
	s, err := NewRotatingJSONLStore(path, 1, 5, 1)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	label := make([]byte, 64*1024)
	for i := range label {
		label[i] = 'x'
	}
	ctx := context.Background()
	for i := 0; i < 40; i++ {
		require.NoError(t, s.Append(ctx, Frame{RunID: "r", Seq: i, Minute: i, Label: string(label)}))
	}
	files, err := s.files()
	require.NoError(t, err)
	assert.Greater(t, len(files), 1, "expected rotated files")

	out, err := s.Query(ctx, Query{From: 35})
	require.NoError(t, err)
	require.Len(t, out, 5)
	assert.Equal(t, 35, out[0].Seq)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "replay.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestRebind(t *testing.T) {
	q := `SELECT frame FROM t WHERE a = ? AND b = ?`
	assert.Equal(t, q, SQLite.rebind(q))
	assert.Equal(t, `SELECT frame FROM t WHERE a = $1 AND b = $2`, Postgres.rebind(q))
}

func TestNewStore(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		cfg     Config
		wantErr bool
	}{
		{Config{}, false},
		{Config{Backend: "jsonl", Path: filepath.Join(dir, "a.jsonl")}, false},
		{Config{Backend: "rotating", Path: filepath.Join(dir, "b.jsonl")}, false},
		{Config{Backend: "sqlite", Path: filepath.Join(dir, "c.db")}, false},
		{Config{Backend: "jsonl"}, true},
		{Config{Backend: "postgres"}, true},
		{Config{Backend: "mongo"}, true},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprintf("%d-%s", i, tt.cfg.Backend), func(t *testing.T) {
			s, err := NewStore(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NoError(t, s.Close())
		})
	}
}
