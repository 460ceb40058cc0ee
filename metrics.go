/*
	Copyright NetFoundry Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package xmodule

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultMetricsNamespace = "xmodule"

	ResultOk      = "ok"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// Collector records module phase outcomes and latencies in its own prometheus registry. A nil *Collector records
// nothing.
type Collector struct {
	registry *prometheus.Registry

	phases  *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewCollector creates a Collector; an empty namespace defaults to DefaultMetricsNamespace.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultMetricsNamespace
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
	}

	c.phases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "module",
			Name:      "invocations_total",
			Help:      "Total number of module phases by module, phase (invoke|execute) and result (ok|skipped|failed)",
		},
		[]string{"module", "phase", "result"},
	)

	c.latency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "module",
			Name:      "phase_duration_seconds",
			Help:      "Time taken by a module phase",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"module", "phase"},
	)

	c.registry.MustRegister(c.phases, c.latency)

	return c
}

// Registry returns the registry holding the module metrics, e.g. to expose it through promhttp.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordPhase records the outcome and duration of one phase of one module.
func (c *Collector) RecordPhase(module, phase, result string, duration time.Duration) {
	if c == nil {
		return
	}
	c.phases.WithLabelValues(module, phase, result).Inc()
	c.latency.WithLabelValues(module, phase).Observe(duration.Seconds())
}
