package notifyhook

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger for the extension.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) {
		e.logger = logger
	}
}

// WithEnabledTopics sets which topics to deliver.
// If not called, all topics are delivered.
func WithEnabledTopics(topics ...string) Option {
	return func(e *Extension) {
		e.enabled = make(map[string]bool)
		for _, topic := range topics {
			e.enabled[topic] = true
		}
	}
}

// WithDisabledTopics sets which topics to skip.
func WithDisabledTopics(topics ...string) Option {
	return func(e *Extension) {
		if e.enabled == nil {
			e.enabled = make(map[string]bool)
			for _, topic := range allTopics() {
				e.enabled[topic] = true
			}
		}
		for _, topic := range topics {
			delete(e.enabled, topic)
		}
	}
}
