package metrics

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordFetchResults forwards to all sinks, returning the first error encountered.
func (m *MultiSink) RecordFetchResults(res []FetchResult) error {
	for _, s := range m.Sinks {
		if err := s.RecordFetchResults(res); err != nil {
			return err
		}
	}
	return nil
}

// RecordOptimizeRun forwards to sinks implementing OptimizeRecorder.
func (m *MultiSink) RecordOptimizeRun(ev OptimizeRunEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(OptimizeRecorder); ok {
			if err := rec.RecordOptimizeRun(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordNavigation forwards to sinks implementing NavigationRecorder.
func (m *MultiSink) RecordNavigation(ev NavigationEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(NavigationRecorder); ok {
			if err := rec.RecordNavigation(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRegistrySize forwards to sinks implementing RegistrySizeRecorder.
func (m *MultiSink) RecordRegistrySize(size int) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RegistrySizeRecorder); ok {
			if err := rec.RecordRegistrySize(size); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink that holds resources.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
