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

package sfg

import (
	"github.com/WildKidYourDaddy/taichi/pkg/ir"
	"github.com/WildKidYourDaddy/taichi/pkg/metrics"
)

// OptimizeDeadStore prunes output states no consumer ever reads, then
// deletes tasks whose bodies became empty. Returns true if anything changed.
func (g *Graph) OptimizeDeadStore() bool {
	modified := false

	for i := 1; i < len(g.nodes); i++ {
		// Start from 1 to skip the initial node.
		task := g.nodes[i]

		// Try to find unnecessary output states.
		for _, s := range sortedStates(task.Meta.OutputStates) {
			used := false
			for other := range task.OutputEdges[s] {
				if task.HasStateFlow(s, other) {
					used = true
				}
				// A dependency edge does not count as a data usage.
			}
			// Some other node consumes this state; it cannot be erased.
			if used {
				continue
			}

			if s.Kind != StateList && g.latestStateOwner[s] == task {
				// The graph's current view of this value may still be
				// observed externally. List states are exempt: a future
				// list generation always comes with its own ClearList, so
				// the latest list may be dropped.
				continue
			}

			// Erase the state s output.
			if s.Kind == StateList && task.Meta.Type == ir.TaskSerial {
				// Strip the clear-list statements for this snode out of the
				// cloned body before dropping the state.
				var mod ir.DelayedIRModifier
				newIR := g.bank.Clone(task.Rec.IRHandle)
				for _, stmt := range ir.GatherStatements(newIR, func(stmt ir.Stmt) bool {
					clearList, ok := stmt.(*ir.ClearListStmt)
					return ok && clearList.SNode == s.SNode
				}) {
					mod.Erase(stmt)
				}
				if !mod.ModifyIR(newIR) {
					continue
				}
				handle := g.bank.Insert(newIR, g.bank.GetHash(newIR))
				task.Rec.IRHandle = handle
				task.Meta.Print()
				task.Meta = g.metas.GetTaskMeta(task.Rec)
				task.Meta.Print()
			} else {
				// No IR edit needed; detach the state from this launch's
				// private copy of the meta.
				task.Meta = task.Meta.cloneWithoutOutput(s)
			}

			for other := range task.OutputEdges[s] {
				delete(other.InputEdges[s], task)
			}
			delete(task.OutputEdges, s)
			modified = true
			metrics.DeadStoresEliminated.Inc()
		}
	}

	// Erase tasks whose bodies are empty.
	toDelete := make(map[int]struct{})
	for i := 1; i < len(g.nodes); i++ {
		meta := g.nodes[i].Meta
		off := g.nodes[i].Rec.Stmt()
		if off == nil {
			continue
		}
		switch meta.Type {
		case ir.TaskSerial, ir.TaskStructFor, ir.TaskRangeFor:
			if off.Body.Size() == 0 {
				toDelete[i] = struct{}{}
			}
		}
	}

	if len(toDelete) > 0 {
		modified = true
	}

	g.DeleteNodes(toDelete)

	return modified
}
