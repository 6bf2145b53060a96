// Copyright 2026 Ant Group Co., Ltd.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sfg_tasks_inserted_total",
		Help: "Total number of task launch records inserted into the state flow graph.",
	})

	TasksFused = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sfg_tasks_fused_total",
		Help: "Total number of task pairs merged by the fusion pass.",
	})

	ListGensDeduped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sfg_listgens_deduped_total",
		Help: "Total number of redundant list generation tasks eliminated.",
	})

	DeadStoresEliminated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sfg_dead_stores_eliminated_total",
		Help: "Total number of unused output states pruned by dead store elimination.",
	})

	NodesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sfg_nodes_deleted_total",
		Help: "Total number of graph nodes removed by optimization passes.",
	})

	TasksExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sfg_tasks_extracted_total",
		Help: "Total number of residual tasks handed back to the engine.",
	})

	FlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sfg_flush_duration_ms",
		Help:    "End-to-end flush latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
)
