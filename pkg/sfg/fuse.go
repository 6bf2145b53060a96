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
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/WildKidYourDaddy/taichi/pkg/ir"
	"github.com/WildKidYourDaddy/taichi/pkg/metrics"
	"github.com/WildKidYourDaddy/taichi/pkg/util/bitset"
)

// Fuse merges pairs of tasks whose bodies can be combined into a single
// offloaded statement, without ever introducing a cyclic schedule. It keeps
// a transitive-closure oracle incrementally up to date so that each
// candidate pair costs only a bitset intersection. Returns true if the
// graph was modified.
func (g *Graph) Fuse() bool {
	n := len(g.nodes)
	if n <= 2 {
		return false
	}

	g.ReidNodes()

	// Compute the transitive closure.
	// hasPath[i][j] denotes if there is a path from i to j.
	// hasPathReverse[i][j] denotes if there is a path from j to i.
	hasPath := make([]bitset.Bitset, n)
	hasPathReverse := make([]bitset.Bitset, n)
	for i := 0; i < n; i++ {
		hasPath[i] = bitset.New(n)
		hasPath[i].Set(i, true)
		hasPathReverse[i] = bitset.New(n)
		hasPathReverse[i].Set(i, true)
	}
	for i := n - 1; i >= 0; i-- {
		for _, peers := range g.nodes[i].InputEdges {
			for pred := range peers {
				if pred.NodeID >= i {
					panic(fmt.Sprintf("sfg: edge %s -> %s violates topological node order",
						pred, g.nodes[i]))
				}
				hasPath[pred.NodeID].OrEq(hasPath[i])
			}
		}
	}
	for i := 0; i < n; i++ {
		for _, peers := range g.nodes[i].OutputEdges {
			for succ := range peers {
				// Nodes are inserted in a topologically valid order.
				if succ.NodeID <= i {
					panic(fmt.Sprintf("sfg: edge %s -> %s violates topological node order",
						g.nodes[i], succ))
				}
				hasPathReverse[succ.NodeID].OrEq(hasPathReverse[i])
			}
		}
	}

	// Cache which pairs are fusable by task type alone. nodes[0] is the
	// initial node and never participates.
	taskTypeFusable := make([]bitset.Bitset, n)
	for i := range taskTypeFusable {
		taskTypeFusable[i] = bitset.New(n)
	}
	for i := 1; i < n; i++ {
		recI := g.nodes[i].Rec
		if recI.Empty() {
			continue
		}
		taskI := recI.Stmt()
		for j := i + 1; j < n; j++ {
			recJ := g.nodes[j].Rec
			if recJ.Empty() {
				continue
			}
			taskJ := recJ.Stmt()
			isSameStructFor := taskI.TaskType == ir.TaskStructFor &&
				taskJ.TaskType == ir.TaskStructFor &&
				taskI.SNode == taskJ.SNode &&
				taskI.BlockDim == taskJ.BlockDim
			// Two range-fors fuse only when the constant ranges and the
			// block shape agree; equal linear ranges with different index
			// shapes must not be merged.
			isSameRangeFor := taskI.TaskType == ir.TaskRangeFor &&
				taskJ.TaskType == ir.TaskRangeFor &&
				taskI.ConstBegin && taskJ.ConstBegin &&
				taskI.ConstEnd && taskJ.ConstEnd &&
				taskI.BeginValue == taskJ.BeginValue &&
				taskI.EndValue == taskJ.EndValue &&
				taskI.BlockDim == taskJ.BlockDim
			areBothSerial := taskI.TaskType == ir.TaskSerial &&
				taskJ.TaskType == ir.TaskSerial
			sameKernel := recI.Kernel == recJ.Kernel
			kernelArgsMatch := true
			if !sameKernel {
				// Merging kernels with different signatures would break the
				// type-check invariants downstream.
				kernelArgsMatch = emptySignature(recI.Kernel) && emptySignature(recJ.Kernel)
			}
			isSNodeAccessor := recI.Kernel.IsAccessor || recJ.Kernel.IsAccessor
			fusable := (isSameRangeFor || isSameStructFor || areBothSerial) &&
				kernelArgsMatch && !isSNodeAccessor
			taskTypeFusable[i].Set(j, fusable)
		}
	}

	insertEdgeForTransitiveClosure := func(a, b int) {
		// insert edge a -> b
		updateList := hasPath[a].OrEqGetUpdateList(hasPath[b])
		for _, i := range updateList {
			updateListI := hasPathReverse[i].OrEqGetUpdateList(hasPathReverse[a])
			for _, j := range updateListI {
				hasPath[i].Set(j, true)
			}
		}
	}

	doFuse := func(a, b int) {
		nodeA := g.nodes[a]
		nodeB := g.nodes[b]
		logrus.Debugf("sfg: fuse %s <- %s", nodeA, nodeB)

		// Both tasks are about to change; clone them so the bank's interned
		// trees stay immutable.
		clonedTaskA := g.bank.Clone(nodeA.Rec.IRHandle)
		clonedTaskB := g.bank.Clone(nodeB.Rec.IRHandle)

		// Fuse task b into task a.
		for _, s := range clonedTaskB.Body.Statements {
			clonedTaskA.Body.Insert(s)
		}
		clonedTaskB.Body.Statements = nil

		ir.ReplaceAllUsagesWith(clonedTaskA, clonedTaskB, clonedTaskA)

		kernel := nodeA.Rec.Kernel
		ir.FullSimplify(clonedTaskA, false, kernel)
		// ReID is necessary for the hash to be stable.
		ir.ReID(clonedTaskA)

		h := g.bank.GetHash(clonedTaskA)
		nodeA.Rec.IRHandle = g.bank.Insert(clonedTaskA, h)
		nodeB.Rec.IRHandle = ir.IRHandle{}
		// clonedTaskB keeps its lifetime in the trash bin until bank
		// teardown; optimizer scratch data may still point at it.
		g.bank.InsertToTrashBin(clonedTaskB)

		nodeA.Meta = g.metas.GetTaskMeta(nodeA.Rec)

		// Replace all edges touching node b with edges touching node a,
		// keeping the dual index consistent.
		for s, peers := range nodeB.OutputEdges {
			for succ := range peers {
				delete(succ.InputEdges[s], nodeB)
				succ.InputEdges[s][nodeA] = struct{}{}
				if nodeA.OutputEdges[s] == nil {
					nodeA.OutputEdges[s] = make(map[*Node]struct{})
				}
				nodeA.OutputEdges[s][succ] = struct{}{}
			}
		}
		alreadyHadAToBEdge := false
		for s, peers := range nodeB.InputEdges {
			for pred := range peers {
				delete(pred.OutputEdges[s], nodeB)
				if pred == nodeA {
					alreadyHadAToBEdge = true
					continue
				}
				if pred.OutputEdges[s] == nil {
					pred.OutputEdges[s] = make(map[*Node]struct{})
				}
				pred.OutputEdges[s][nodeA] = struct{}{}
				if nodeA.InputEdges[s] == nil {
					nodeA.InputEdges[s] = make(map[*Node]struct{})
				}
				nodeA.InputEdges[s][pred] = struct{}{}
			}
		}
		nodeB.InputEdges = make(map[AsyncState]map[*Node]struct{})
		nodeB.OutputEdges = make(map[AsyncState]map[*Node]struct{})

		// The merged task takes over b's owner and reader roles so that the
		// owner map never points at a compacted-away node.
		for s, owner := range g.latestStateOwner {
			if owner == nodeB {
				g.latestStateOwner[s] = nodeA
			}
		}
		for _, readers := range g.latestStateReaders {
			if _, ok := readers[nodeB]; ok {
				delete(readers, nodeB)
				readers[nodeA] = struct{}{}
			}
		}

		// Update the transitive closure as if the merged pair were a single
		// vertex: edge b -> a, and a -> b unless it already existed.
		insertEdgeForTransitiveClosure(b, a)
		if !alreadyHadAToBEdge {
			insertEdgeForTransitiveClosure(a, b)
		}

		metrics.TasksFused.Inc()
	}

	fused := make([]bool, n)

	modified := false
	for {
		updated := false
		for i := 1; i < n; i++ {
			fused[i] = g.nodes[i].Rec.Empty()
		}

		// Edge-directed phase: try to fuse along existing edges first.
		for i := 1; i < n; i++ {
			if fused[i] {
				continue
			}
			iUpdated := false
			for _, s := range sortedStates(g.nodes[i].OutputEdges) {
				for _, succ := range sortedPeersByID(g.nodes[i].OutputEdges[s]) {
					j := succ.NodeID
					if fused[j] || !taskTypeFusable[i].Get(j) {
						continue
					}
					iHasPathToJ := hasPath[i].And(hasPathReverse[j])
					iHasPathToJ.Set(i, false)
					iHasPathToJ.Set(j, false)
					// Fusing is safe iff i has no path to j of length >= 2.
					if iHasPathToJ.None() {
						doFuse(i, j)
						fused[i] = true
						fused[j] = true
						iUpdated = true
						updated = true
						break
					}
				}
				if iUpdated {
					break
				}
			}
		}

		// Non-adjacent phase: fuse mutually unreachable pairs.
		for i := 1; i < n; i++ {
			if fused[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if !fused[j] && taskTypeFusable[i].Get(j) &&
					!hasPath[i].Get(j) && !hasPath[j].Get(i) {
					doFuse(i, j)
					fused[i] = true
					fused[j] = true
					updated = true
					break
				}
			}
		}

		if updated {
			modified = true
		} else {
			break
		}
	}

	// Compact away the emptied tasks.
	if modified {
		newNodes := make([]*Node, 0, n)
		newNodes = append(newNodes, g.nodes[0])
		for i := 1; i < n; i++ {
			if !g.nodes[i].Rec.Empty() {
				newNodes = append(newNodes, g.nodes[i])
			}
		}
		g.nodes = newNodes
		g.ReidNodes()
	}

	return modified
}

func emptySignature(k *ir.Kernel) bool {
	return len(k.Args) == 0 && len(k.Rets) == 0
}
