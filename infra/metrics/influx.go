package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/ecofleet/core/events"
	coremetrics "github.com/kilianp07/ecofleet/core/metrics"
	"github.com/kilianp07/ecofleet/infra/logger"
)

// InfluxSink writes simulation events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
	now      func() time.Time
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
		now:      time.Now,
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordTick writes the per-minute counters.
func (s *InfluxSink) RecordTick(ev events.TickEvent) error {
	p := write.NewPointWithMeasurement("sim_tick").
		AddTag("run_id", ev.RunID).
		AddField("minute", ev.Minute).
		AddField("pending", ev.Pending).
		AddField("active", ev.Active).
		AddField("completed", ev.Completed).
		AddField("failed", ev.Failed).
		AddField("idle_fleet", ev.IdleFleet).
		AddField("money", round3(ev.Money)).
		AddField("co2", round3(ev.CO2)).
		SetTime(s.now())
	return s.write(p)
}

// RecordRequest writes a request transition.
func (s *InfluxSink) RecordRequest(ev events.RequestEvent) error {
	p := write.NewPointWithMeasurement("request_event").
		AddTag("run_id", ev.RunID).
		AddTag("status", string(ev.Status))
	if ev.VehicleID != "" {
		p = p.AddTag("vehicle_id", ev.VehicleID)
	}
	if ev.Reason != "" {
		p = p.AddTag("reason", ev.Reason)
	}
	p = p.AddField("request_id", ev.RequestID).
		AddField("minute", ev.Minute).
		AddField("wait_minutes", ev.WaitMinutes).
		SetTime(s.now())
	return s.write(p)
}

// RecordPlanning writes a planning attempt.
func (s *InfluxSink) RecordPlanning(ev events.PlanningEvent) error {
	p := write.NewPointWithMeasurement("planning_attempt").
		AddTag("run_id", ev.RunID).
		AddTag("strategy", ev.Strategy).
		AddTag("outcome", string(ev.Outcome)).
		AddField("minute", ev.Minute).
		AddField("pending", ev.Pending).
		AddField("steps", ev.Steps).
		AddField("cost", round3(ev.Cost)).
		AddField("expanded", ev.Expanded).
		AddField("duration_ms", round3(float64(ev.Duration)/float64(time.Millisecond))).
		SetTime(s.now())
	return s.write(p)
}

// RecordRun writes the end-of-run statistics.
func (s *InfluxSink) RecordRun(sum coremetrics.RunSummary) error {
	at := sum.Time
	if at.IsZero() {
		at = s.now()
	}
	p := write.NewPointWithMeasurement("run_summary").
		AddTag("run_id", sum.RunID).
		AddTag("strategy", sum.Strategy).
		AddField("generated", sum.Generated).
		AddField("completed", sum.Completed).
		AddField("failed", sum.Failed).
		AddField("active", sum.Active).
		AddField("avg_wait", round3(sum.AvgWait)).
		AddField("money", round3(sum.Money)).
		AddField("co2", round3(sum.CO2)).
		AddField("empty_km", round3(sum.EmptyKm)).
		AddField("loaded_km", round3(sum.LoadedKm)).
		SetTime(at)
	return s.write(p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
