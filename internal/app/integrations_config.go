package app

import (
	"github.com/charlesng35/sosrelay/internal/evidence"
	"github.com/charlesng35/sosrelay/internal/fanout"
	"github.com/charlesng35/sosrelay/internal/services"
)

// RestRecordConfig converts BackendConfig for the hosted record store.
func (c BackendConfig) RestRecordConfig() services.RestRecordConfig {
	return services.RestRecordConfig{
		URL:        c.URL,
		ServiceKey: c.ServiceKey,
		Timeout:    c.Timeout,
	}
}

// RecorderConfig converts FanoutConfig for the record write queue.
func (c FanoutConfig) RecorderConfig() fanout.RecorderConfig {
	return fanout.RecorderConfig{
		QueueSize:    c.RecordQueueSize,
		Workers:      c.RecordWorkers,
		WriteTimeout: c.RecordWriteTimeout,
	}
}

// EvidenceConfig converts StorageConfig for the evidence store.
func (c StorageConfig) EvidenceConfig() evidence.Config {
	return evidence.Config{
		Enabled:       c.Enabled,
		Endpoint:      c.Endpoint,
		AccessKey:     c.AccessKey,
		SecretKey:     c.SecretKey,
		UseSSL:        c.UseSSL,
		PublicBaseURL: c.PublicBaseURL,
	}
}
