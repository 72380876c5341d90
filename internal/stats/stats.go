// (c) Copyright cfiverify's authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package stats exposes verification counters in the Prometheus format.
package stats

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "cfiverify"

// Collector counts the work done by one verification run. It owns its
// registry so that concurrent runs in one process do not share counters.
type Collector struct {
	registry   *prometheus.Registry
	functions  prometheus.Counter
	statements prometheus.Counter
	violations *prometheus.CounterVec
	errors     prometheus.Counter
	duration   prometheus.Histogram
}

// New registers a fresh set of counters
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		functions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "functions_checked_total",
			Help:      "Functions whose analysis converged and were checked.",
		}),
		statements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_checked_total",
			Help:      "Statements evaluated by the checkers.",
		}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Violations reported, by rule.",
		}, []string{"rule"}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integration_errors_total",
			Help:      "Functions that could not be analyzed or checked.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "function_check_seconds",
			Help:      "Time spent analyzing and checking one function.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	c.registry.MustRegister(c.functions, c.statements, c.violations, c.errors, c.duration)
	return c
}

// ObserveFunction records a checked function
func (c *Collector) ObserveFunction(statements int, rules []string, elapsed time.Duration) {
	c.functions.Inc()
	c.statements.Add(float64(statements))
	for _, rule := range rules {
		c.violations.WithLabelValues(rule).Inc()
	}
	c.duration.Observe(elapsed.Seconds())
}

// ObserveError records a function that failed with an integration error
func (c *Collector) ObserveError() {
	c.errors.Inc()
}

// Registry returns the registry holding the counters
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteText writes every counter in the Prometheus text exposition format
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
