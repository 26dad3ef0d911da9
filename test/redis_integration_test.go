//go:build !no_containers

package test

import (
	"context"
	"encoding/json"
	"os/exec"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ecofleet/app"
	"github.com/kilianp07/ecofleet/core/replay"
	"github.com/kilianp07/ecofleet/test/util"
)

func TestFramesPublishedToRedis(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()
	url, cleanup, err := util.StartRedis(ctx)
	if err != nil {
		t.Skipf("redis: %v", err)
	}
	defer cleanup()

	opts, err := goredis.ParseURL(url)
	require.NoError(t, err)
	rdb := goredis.NewClient(opts)
	defer rdb.Close()
	ps := rdb.PSubscribe(ctx, "ecofleet:*:frames")
	defer ps.Close()
	_, err = ps.Receive(ctx)
	require.NoError(t, err)

	cfg := smallRun()
	cfg.Redis.URL = url
	svc, err := app.New(cfg)
	require.NoError(t, err)
	defer svc.Close()

	st, err := svc.Run(ctx)
	require.NoError(t, err)

	ch := ps.Channel()
	for i := 0; i <= st.Ticks; i++ {
		select {
		case msg := <-ch:
			var f replay.Frame
			require.NoError(t, json.Unmarshal([]byte(msg.Payload), &f))
			assert.Equal(t, st.RunID, f.RunID)
			assert.Equal(t, "ecofleet:"+st.RunID+":frames", msg.Channel)
		case <-time.After(5 * time.Second):
			t.Fatalf("received %d of %d frames", i, st.Ticks+1)
		}
	}
}
