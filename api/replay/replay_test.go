package replay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corereplay "github.com/kilianp07/ecofleet/core/replay"
	"github.com/kilianp07/ecofleet/core/sim"
	"github.com/kilianp07/ecofleet/internal/eventbus"
)

func seededStore(t *testing.T) *corereplay.MemoryStore {
	t.Helper()
	store := corereplay.NewMemoryStore()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(context.Background(), corereplay.Frame{RunID: "r1", Seq: i, Minute: i}))
	}
	require.NoError(t, store.Append(context.Background(), corereplay.Frame{RunID: "r2", Seq: 0}))
	return store
}

func TestFrameHandler(t *testing.T) {
	h := NewFrameHandler(seededStore(t), "tok")
	cases := []struct {
		name   string
		url    string
		auth   string
		status int
		seqs   []int
	}{
		/* missing token */
		{"unauthorized", "/api/replay/frames", "", http.StatusUnauthorized, nil},
		{"all of a run", "/api/replay/frames?run_id=r1", "Bearer tok", http.StatusOK, []int{0, 1, 2, 3, 4}},
		{"window", "/api/replay/frames?run_id=r1&from=1&to=3", "Bearer tok", http.StatusOK, []int{1, 2, 3}},
		{"limit", "/api/replay/frames?run_id=r1&limit=2", "Bearer tok", http.StatusOK, []int{0, 1}},
		/* token as query parameter */
		{"query token", "/api/replay/frames?run_id=r2&token=tok", "", http.StatusOK, []int{0}},
		{"unknown run", "/api/replay/frames?run_id=r9", "Bearer tok", http.StatusOK, []int{}},
		{"bad limit", "/api/replay/frames?limit=x", "Bearer tok", http.StatusBadRequest, nil},
		{"negative from", "/api/replay/frames?from=-1", "Bearer tok", http.StatusBadRequest, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.url, nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			require.Equal(t, tc.status, rr.Code)
			if tc.seqs == nil {
				return
			}
			var out []corereplay.Frame
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
			seqs := []int{}
			for _, f := range out {
				seqs = append(seqs, f.Seq)
			}
			assert.Equal(t, tc.seqs, seqs)
		})
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/replay/frames", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

type fixedStats sim.Stats

func (f fixedStats) Stats() sim.Stats { return sim.Stats(f) }

func TestStatsHandler(t *testing.T) {
	h := NewStatsHandler(fixedStats{RunID: "r1", Generated: 4, Completed: 3, Failed: 1}, "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/replay/stats", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "r1", out["run_id"])
	assert.Equal(t, 3.0, out["completed"])
	assert.Equal(t, 0.75, out["completion_rate"])
}

func TestLiveHandler(t *testing.T) {
	frames := eventbus.NewTyped[corereplay.Frame]()
	srv := httptest.NewServer(NewLiveHandler(frames, "tok"))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/replay/live"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?token=tok", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return frames.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	frames.Publish(corereplay.Frame{RunID: "r1", Seq: 7, Label: "[E1] pickup request 3 at 2"})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f corereplay.Frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, 7, f.Seq)
	assert.Equal(t, "[E1] pickup request 3 at 2", f.Label)

	/* closing the bus ends the stream */
	frames.Close()
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}
