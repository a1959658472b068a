package observability

import (
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/medassureai/artifact-gateway/pkg/config"
)

// Provider is the metrics sink the services emit to.
type Provider interface {
	Count(name string, value int64, tags []string) error
	Gauge(name string, value float64, tags []string) error
	Histogram(name string, value float64, tags []string) error
	Timing(name string, value time.Duration, tags []string) error
}

// NoopProvider is the placeholder used when metrics are disabled.
type NoopProvider struct{}

func (n *NoopProvider) Count(name string, value int64, tags []string) error          { return nil }
func (n *NoopProvider) Gauge(name string, value float64, tags []string) error        { return nil }
func (n *NoopProvider) Histogram(name string, value float64, tags []string) error    { return nil }
func (n *NoopProvider) Timing(name string, value time.Duration, tags []string) error { return nil }

// DatadogProvider adapts the official Datadog client to the Provider interface.
type DatadogProvider struct {
	client *statsd.Client
}

func (d *DatadogProvider) Count(name string, value int64, tags []string) error {
	return d.client.Count(name, value, tags, 1)
}

func (d *DatadogProvider) Gauge(name string, value float64, tags []string) error {
	return d.client.Gauge(name, value, tags, 1)
}

func (d *DatadogProvider) Histogram(name string, value float64, tags []string) error {
	return d.client.Histogram(name, value, tags, 1)
}

func (d *DatadogProvider) Timing(name string, value time.Duration, tags []string) error {
	return d.client.Timing(name, value, tags, 1)
}

// Setup picks the provider from the metrics configuration.
func Setup(cfg config.MetricsConfig) (Provider, error) {
	if !cfg.Enabled {
		return &NoopProvider{}, nil
	}

	opts := []statsd.Option{
		statsd.WithNamespace(cfg.Namespace),
	}

	client, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("observability: connecting to statsd agent: %w", err)
	}

	return &DatadogProvider{client: client}, nil
}
