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

package async

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/WildKidYourDaddy/taichi/pkg/config"
	"github.com/WildKidYourDaddy/taichi/pkg/ir"
	"github.com/WildKidYourDaddy/taichi/pkg/ir/irbank"
	"github.com/WildKidYourDaddy/taichi/pkg/metrics"
	"github.com/WildKidYourDaddy/taichi/pkg/sfg"
)

// Engine drives the state flow graph: it buffers launched tasks, inserts
// them into the graph on flush, runs the optimization passes to a fixed
// point and hands back the residual schedule. The engine is single-threaded
// like the graph it owns.
type Engine struct {
	bank  *irbank.Bank
	graph *sfg.Graph
	cfg   *config.EngineConfig

	pending []sfg.TaskLaunchRecord
}

// NewEngine creates an engine with a fresh IR bank and graph.
func NewEngine(cfg *config.EngineConfig) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "async: invalid engine config")
	}
	bank := irbank.New()
	return &Engine{
		bank:  bank,
		graph: sfg.NewGraph(bank),
		cfg:   cfg,
	}, nil
}

// Bank exposes the engine's IR bank so callers can intern kernels.
func (e *Engine) Bank() *irbank.Bank {
	return e.bank
}

// Graph exposes the underlying state flow graph for inspection.
func (e *Engine) Graph() *sfg.Graph {
	return e.graph
}

// Launch interns the offloaded task and buffers a launch record for it.
// Accessor kernels are rejected; they must bypass the async engine.
func (e *Engine) Launch(kernel *ir.Kernel, task *ir.OffloadedStmt) error {
	if kernel.IsAccessor {
		return errors.Errorf("async: accessor kernel %s must not enter the async engine", kernel.Name)
	}
	handle := e.bank.Intern(task)
	e.pending = append(e.pending, sfg.TaskLaunchRecord{
		IRHandle: handle,
		Kernel:   kernel,
	})
	return nil
}

// Flush inserts every pending record into the graph, optimizes to a fixed
// point and extracts the residual task list in graph order.
func (e *Engine) Flush() []sfg.TaskLaunchRecord {
	flushID := uuid.NewString()
	start := time.Now()

	for _, rec := range e.pending {
		e.graph.InsertTask(rec)
	}
	logrus.Debugf("async: flush %s inserted %d tasks", flushID, len(e.pending))
	e.pending = e.pending[:0]

	for round := 0; round < e.cfg.MaxRounds; round++ {
		modified := false
		if e.cfg.OptimizeListGen && e.graph.OptimizeListGen() {
			modified = true
		}
		if e.cfg.Fuse && e.graph.Fuse() {
			modified = true
		}
		if e.cfg.OptimizeDeadStore && e.graph.OptimizeDeadStore() {
			modified = true
		}
		if !modified {
			break
		}
		logrus.Debugf("async: flush %s optimization round %d modified the graph", flushID, round)
	}

	if e.cfg.Debug {
		logrus.Debugf("async: flush %s graph:\n%s", flushID, e.graph.DumpDot(e.cfg.DotRankdir))
	}

	tasks := e.graph.Extract()
	metrics.FlushDuration.Observe(float64(time.Since(start).Milliseconds()))
	logrus.Debugf("async: flush %s extracted %d tasks", flushID, len(tasks))
	return tasks
}
