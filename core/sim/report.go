package sim

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
)

// WriteReport prints the run summary as an aligned table.
func WriteReport(w io.Writer, st Stats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"run", st.RunID},
		{"strategy", st.Strategy},
		{"simulated minutes", strconv.Itoa(st.Ticks)},
		{"requests generated", strconv.Itoa(st.Generated)},
		{"completed", fmt.Sprintf("%d (%.1f%%)", st.Completed, 100*st.CompletionRate())},
		{"failed", strconv.Itoa(st.Failed)},
		{"active", strconv.Itoa(st.Active)},
		{"pending", strconv.Itoa(st.Pending)},
		{"wait avg/min/max", fmt.Sprintf("%.1f / %d / %d min", st.AvgWait, st.MinWait, st.MaxWait)},
		{"money spent", fmt.Sprintf("%.2f", st.Money)},
		{"co2 emitted", fmt.Sprintf("%.0f g", st.CO2)},
		{"empty / loaded km", fmt.Sprintf("%.1f / %.1f (%.0f%% empty)", st.EmptyKm, st.LoadedKm, 100*st.EmptyRatio)},
		{"planning calls", fmt.Sprintf("%d (%d timed out)", st.PlanCalls, st.PlanTimeouts)},
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

var csvHeader = []string{
	"id", "origin", "destination", "passengers", "created_at", "deadline",
	"picked_up_at", "completed_at", "wait", "status", "reason", "vehicle_id",
}

// WriteCSV exports the per-request outcomes.
func WriteCSV(w io.Writer, outcomes []Outcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, o := range outcomes {
		rec := []string{
			strconv.Itoa(o.ID),
			strconv.FormatInt(o.Origin, 10),
			strconv.FormatInt(o.Destination, 10),
			strconv.Itoa(o.Passengers),
			strconv.Itoa(o.CreatedAt),
			strconv.Itoa(o.Deadline),
			strconv.Itoa(o.PickedUpAt),
			strconv.Itoa(o.CompletedAt),
			strconv.Itoa(o.Wait),
			o.Status,
			o.Reason,
			o.VehicleID,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
