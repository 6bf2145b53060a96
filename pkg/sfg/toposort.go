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
	"container/heap"
	"fmt"
)

// readyHeap holds the frontier of Kahn's algorithm: nodes whose remaining
// in-degree dropped to zero. Draining lowest node id first keeps the
// resulting layout deterministic.
type readyHeap []*Node

func (h readyHeap) Len() int { return len(h) }

func (h readyHeap) Less(i, j int) bool { return h[i].NodeID < h[j].NodeID }

func (h readyHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *readyHeap) Push(x any) { *h = append(*h, x.(*Node)) }

func (h *readyHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return node
}

// TopoSortNodes relayouts the node list in topological order using Kahn's
// algorithm. The initial node seeds the frontier and must have no inputs.
func (g *Graph) TopoSortNodes() {
	g.ReidNodes()

	degreesIn := make([]int, len(g.nodes))
	for _, n := range g.nodes {
		degreeIn := 0
		for _, peers := range n.InputEdges {
			degreeIn += len(peers)
		}
		degreesIn[n.NodeID] = degreeIn
	}
	if degreesIn[0] != 0 {
		panic("sfg: initial node must have zero in-degree")
	}

	ready := &readyHeap{g.initialNode}
	heap.Init(ready)

	newNodes := make([]*Node, 0, len(g.nodes))
	for ready.Len() > 0 {
		head := heap.Pop(ready).(*Node)
		for _, s := range sortedStates(head.OutputEdges) {
			for _, succ := range sortedPeersByID(head.OutputEdges[s]) {
				dest := succ.NodeID
				degreesIn[dest]--
				if degreesIn[dest] < 0 {
					panic(fmt.Sprintf("sfg: negative in-degree at %s", succ))
				}
				if degreesIn[dest] == 0 {
					heap.Push(ready, succ)
				}
			}
		}
		newNodes = append(newNodes, head)
	}

	if len(newNodes) != len(g.nodes) {
		panic(fmt.Sprintf("sfg: topological sort covered %d of %d nodes; the graph has a cycle",
			len(newNodes), len(g.nodes)))
	}
	g.nodes = newNodes
	g.ReidNodes()
}
