package metrics

import "github.com/kilianp07/ecofleet/core/events"

// MultiSink fans out records to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTick forwards the record to all sinks, returning the first error encountered.
func (m *MultiSink) RecordTick(ev events.TickEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordTick(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordPlanning forwards planning events when supported by the sink.
func (m *MultiSink) RecordPlanning(ev events.PlanningEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(PlanningRecorder); ok {
			if err := r.RecordPlanning(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRequest forwards request events when supported by the sink.
func (m *MultiSink) RecordRequest(ev events.RequestEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(RequestRecorder); ok {
			if err := r.RecordRequest(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRun forwards the run summary when supported by the sink.
func (m *MultiSink) RecordRun(sum RunSummary) error {
	for _, s := range m.Sinks {
		if r, ok := s.(RunRecorder); ok {
			if err := r.RecordRun(sum); err != nil {
				return err
			}
		}
	}
	return nil
}
