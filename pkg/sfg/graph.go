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
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"

	"github.com/WildKidYourDaddy/taichi/pkg/ir/irbank"
	"github.com/WildKidYourDaddy/taichi/pkg/metrics"
)

const initialStateName = "initial_state"

// Graph is the state flow graph: the dependency, fusion and elimination core
// of the async engine. Nodes are appended by InsertTask in stream order,
// which keeps the node list topologically valid; the optimization passes
// preserve that property.
//
// The graph is single-threaded. Every public operation assumes exclusive
// access for its full duration.
type Graph struct {
	nodes       []*Node
	initialNode *Node
	initialMeta *TaskMeta

	// latestStateOwner maps each state to its most recent writer.
	latestStateOwner map[AsyncState]*Node
	// latestStateReaders collects the readers of each state since its last
	// write. A present-but-empty entry is meaningful: it means the state has
	// been written at least once and has no reader yet.
	latestStateReaders map[AsyncState]map[*Node]struct{}

	// taskNameToLaunchIDs survives Clear so launch ids stay globally
	// monotonic per engine lifetime.
	taskNameToLaunchIDs map[string]int

	bank  *irbank.Bank
	metas *MetaCache
}

// NewGraph creates a graph holding only the initial node, the sentinel
// source of all initial states.
func NewGraph(bank *irbank.Bank) *Graph {
	g := &Graph{
		latestStateOwner:    make(map[AsyncState]*Node),
		latestStateReaders:  make(map[AsyncState]map[*Node]struct{}),
		taskNameToLaunchIDs: make(map[string]int),
		bank:                bank,
		metas:               NewMetaCache(),
	}
	g.initialMeta = newTaskMeta(initialStateName, 0)
	n := newNode()
	n.Meta = g.initialMeta
	n.LaunchID = 0
	n.IsInitialNode = true
	g.nodes = append(g.nodes, n)
	g.initialNode = n
	return g
}

// Size returns the number of nodes including the initial node.
func (g *Graph) Size() int {
	return len(g.nodes)
}

// Clear drops every task node. Launch id counters are kept.
func (g *Graph) Clear() {
	g.nodes = g.nodes[:1]
	g.initialNode.OutputEdges = make(map[AsyncState]map[*Node]struct{})
	g.latestStateOwner = make(map[AsyncState]*Node)
	g.latestStateReaders = make(map[AsyncState]map[*Node]struct{})
}

// InsertTask appends one launch record to the graph, wiring its dependency
// edges. The three phases must run in this exact order: input edges from the
// current owners, then write-after-read edges plus owner takeover, and only
// then reader registration, so that a task reading and writing the same
// state does not get a self edge.
func (g *Graph) InsertTask(rec TaskLaunchRecord) {
	node := newNode()
	node.Rec = rec
	node.Meta = g.metas.GetTaskMeta(rec)
	node.LaunchID = g.taskNameToLaunchIDs[node.Meta.Name]
	g.taskNameToLaunchIDs[node.Meta.Name]++

	for _, s := range sortedStates(node.Meta.InputStates) {
		owner, ok := g.latestStateOwner[s]
		if !ok {
			owner = g.initialNode
			g.latestStateOwner[s] = owner
		}
		g.insertStateFlow(owner, node, s)
	}

	for _, s := range sortedStates(node.Meta.OutputStates) {
		g.latestStateOwner[s] = node
		if _, ok := g.latestStateReaders[s]; !ok {
			// A first write still depends on the initial state.
			g.latestStateReaders[s] = map[*Node]struct{}{g.initialNode: {}}
		}
		for r := range g.latestStateReaders[s] {
			g.insertStateFlow(r, node, s)
		}
		g.latestStateReaders[s] = make(map[*Node]struct{})
	}

	for _, s := range sortedStates(node.Meta.InputStates) {
		if _, ok := g.latestStateReaders[s]; !ok {
			g.latestStateReaders[s] = make(map[*Node]struct{})
		}
		g.latestStateReaders[s][node] = struct{}{}
	}

	g.nodes = append(g.nodes, node)
	metrics.TasksInserted.Inc()
}

// insertStateFlow records the edge from --s--> to in both directions.
func (g *Graph) insertStateFlow(from, to *Node, s AsyncState) {
	if from == nil || to == nil {
		panic("sfg: edge endpoint must not be nil")
	}
	if from.OutputEdges[s] == nil {
		from.OutputEdges[s] = make(map[*Node]struct{})
	}
	from.OutputEdges[s][to] = struct{}{}
	if to.InputEdges[s] == nil {
		to.InputEdges[s] = make(map[*Node]struct{})
	}
	to.InputEdges[s][from] = struct{}{}
}

// replaceReference rewires every successor of a to read from b instead,
// then clears a's output edges. a's input edges are untouched.
func (g *Graph) replaceReference(a, b *Node) {
	for s, peers := range a.OutputEdges {
		for c := range peers {
			if _, ok := c.InputEdges[s][a]; !ok {
				continue
			}
			delete(c.InputEdges[s], a)
			c.InputEdges[s][b] = struct{}{}
			if b.OutputEdges[s] == nil {
				b.OutputEdges[s] = make(map[*Node]struct{})
			}
			b.OutputEdges[s][c] = struct{}{}
		}
	}
	a.OutputEdges = make(map[AsyncState]map[*Node]struct{})
}

// DeleteNodes removes the nodes at the given indices, detaches them from
// every neighbour and redirects owner entries to the initial node.
func (g *Graph) DeleteNodes(indices map[int]struct{}) {
	doomed := make(map[*Node]struct{}, len(indices))
	for i := range indices {
		g.nodes[i].DisconnectAll()
		doomed[g.nodes[i]] = struct{}{}
	}

	newNodes := make([]*Node, 0, len(g.nodes))
	for i, n := range g.nodes {
		if _, ok := indices[i]; ok {
			logrus.Debugf("sfg: deleting node %d %s", i, n)
			continue
		}
		newNodes = append(newNodes, n)
	}

	for s, owner := range g.latestStateOwner {
		if _, ok := doomed[owner]; ok {
			g.latestStateOwner[s] = g.initialNode
		}
	}
	for _, readers := range g.latestStateReaders {
		for n := range doomed {
			delete(readers, n)
		}
	}

	g.nodes = newNodes
	g.ReidNodes()
	metrics.NodesDeleted.Add(float64(len(doomed)))
}

// ReidNodes reassigns node ids to match the current node order.
func (g *Graph) ReidNodes() {
	for i, n := range g.nodes {
		n.NodeID = i
	}
	if g.initialNode.NodeID != 0 {
		panic("sfg: initial node must stay at position 0")
	}
}

// Extract returns every non-initial record in graph order and resets the
// graph. Launch id counters survive.
func (g *Graph) Extract() []TaskLaunchRecord {
	tasks := make([]TaskLaunchRecord, 0, len(g.nodes)-1)
	for _, n := range g.nodes[1:] {
		tasks = append(tasks, n.Rec)
	}
	g.Clear()
	metrics.TasksExtracted.Add(float64(len(tasks)))
	return tasks
}

// Print writes a plain-text rendering of the graph to standard output.
func (g *Graph) Print() {
	fmt.Print("=== State Flow Graph ===\n")
	for _, n := range g.nodes {
		fmt.Printf("%s\n", n)
		if len(n.InputEdges) > 0 {
			fmt.Print("  Inputs:\n")
			for _, s := range sortedStates(n.InputEdges) {
				for _, from := range sortedPeers(n.InputEdges[s]) {
					fmt.Printf("    %s <- %s\n", s.Name(), from)
				}
			}
		}
		if len(n.OutputEdges) > 0 {
			fmt.Print("  Outputs:\n")
			for _, s := range sortedStates(n.OutputEdges) {
				for _, to := range sortedPeers(n.OutputEdges[s]) {
					fmt.Printf("    %s -> %s\n", s.Name(), to)
				}
			}
		}
	}
	fmt.Print("=======================\n")
}

// DumpTaskStates renders a table of every task and the states it touches.
func (g *Graph) DumpTaskStates() string {
	var sb strings.Builder
	table := tablewriter.NewWriter(&sb)
	table.SetHeader([]string{"Task", "Launch", "Type", "Inputs", "Outputs"})
	for _, n := range g.nodes[1:] {
		table.Append([]string{
			n.Meta.Name,
			fmt.Sprintf("%d", n.LaunchID),
			n.Meta.Type.String(),
			statesString(n.Meta.InputStates),
			statesString(n.Meta.OutputStates),
		})
	}
	table.Render()
	return sb.String()
}
