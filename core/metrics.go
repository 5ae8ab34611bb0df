/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

import (
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("didbase.core")
	meter  = otel.Meter("didbase.core")
)

// instruments are created on first use so that a MeterProvider
// installed by the application before the first Proceed is honored.
var (
	metricsOnce     sync.Once
	sharedStepCount metric.Int64Counter
	executionCount  metric.Int64Counter
	stepLatency     metric.Float64Histogram
)

func initMetrics(logger *slog.Logger) {
	metricsOnce.Do(func() {
		var failed []string
		var err error

		sharedStepCount, err = meter.Int64Counter("didbase_shared_steps_total",
			metric.WithDescription("Number of shared steps executed"),
		)
		if err != nil {
			failed = append(failed, "shared_steps: "+err.Error())
		}

		executionCount, err = meter.Int64Counter("didbase_step_executions_total",
			metric.WithDescription("Number of step function invocations"),
		)
		if err != nil {
			failed = append(failed, "step_executions: "+err.Error())
		}

		stepLatency, err = meter.Float64Histogram("didbase_step_duration_seconds",
			metric.WithDescription("Time spent executing each shared step"),
			metric.WithUnit("s"),
		)
		if err != nil {
			failed = append(failed, "step_duration: "+err.Error())
		}

		if 0 < len(failed) {
			logger.Error("failed to initialize some metrics",
				slog.Int("failed_count", len(failed)),
				slog.Any("errors", failed))
		}
	})
}
