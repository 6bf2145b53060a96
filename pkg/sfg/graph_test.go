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
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/WildKidYourDaddy/taichi/pkg/ir"
	"github.com/WildKidYourDaddy/taichi/pkg/ir/irbank"
)

// Helper to create a bank plus an empty graph
func createTestGraph() (*irbank.Bank, *Graph) {
	bank := irbank.New()
	return bank, NewGraph(bank)
}

// Helper to create a serial task reading and writing the given fields
func createSerialTask(name string, reads, writes []*ir.SNode) *ir.OffloadedStmt {
	task := ir.NewOffloadedStmt(ir.TaskSerial, name)
	var loads []ir.Stmt
	for _, s := range reads {
		load := &ir.GlobalLoadStmt{SNode: s}
		task.Body.Insert(load)
		loads = append(loads, load)
	}
	for i, s := range writes {
		var data ir.Stmt
		if len(loads) > 0 {
			data = loads[i%len(loads)]
		} else {
			c := &ir.ConstStmt{Value: int64(i + 1)}
			task.Body.Insert(c)
			data = c
		}
		task.Body.Insert(&ir.GlobalStoreStmt{SNode: s, Data: data})
	}
	return task
}

// Helper to create a struct-for task over snode reading the given fields
func createStructForTask(name string, snode *ir.SNode, reads []*ir.SNode) *ir.OffloadedStmt {
	task := ir.NewOffloadedStmt(ir.TaskStructFor, name)
	task.SNode = snode
	task.BlockDim = 128
	for _, s := range reads {
		task.Body.Insert(&ir.GlobalLoadStmt{SNode: s})
	}
	return task
}

// Helper to intern a task and insert its launch record
func insertTestTask(g *Graph, bank *irbank.Bank, kernel *ir.Kernel, task *ir.OffloadedStmt) *Node {
	handle := bank.Intern(task)
	g.InsertTask(TaskLaunchRecord{IRHandle: handle, Kernel: kernel})
	return g.nodes[len(g.nodes)-1]
}

// requireDualEdges checks that the input and output edge views never diverge
func requireDualEdges(t *testing.T, g *Graph) {
	r := require.New(t)
	for _, n := range g.nodes {
		for s, peers := range n.OutputEdges {
			for to := range peers {
				_, ok := to.InputEdges[s][n]
				r.True(ok, "edge %s --%s--> %s missing on the input side", n, s.Name(), to)
			}
		}
		for s, peers := range n.InputEdges {
			for from := range peers {
				_, ok := from.OutputEdges[s][n]
				r.True(ok, "edge %s --%s--> %s missing on the output side", from, s.Name(), n)
			}
		}
	}
}

// requireAcyclic walks the edges and checks no node reaches itself
func requireAcyclic(t *testing.T, g *Graph) {
	r := require.New(t)
	const (
		unvisited = 0
		onStack   = 1
		done      = 2
	)
	state := make(map[*Node]int)
	var visit func(n *Node)
	visit = func(n *Node) {
		state[n] = onStack
		for _, peers := range n.OutputEdges {
			for succ := range peers {
				switch state[succ] {
				case onStack:
					r.Failf("cycle", "node %s is on a cycle", succ)
				case unvisited:
					visit(succ)
				}
			}
		}
		state[n] = done
	}
	for _, n := range g.nodes {
		if state[n] == unvisited {
			visit(n)
		}
	}
}

// requireOwnersInGraph checks every latest-owner entry points at a live node
func requireOwnersInGraph(t *testing.T, g *Graph) {
	r := require.New(t)
	live := make(map[*Node]bool, len(g.nodes))
	for _, n := range g.nodes {
		live[n] = true
	}
	for s, owner := range g.latestStateOwner {
		r.True(live[owner], "owner of %s is not in the graph", s.Name())
	}
}

// edgeSummary flattens the graph's edges into sorted comparable strings
func edgeSummary(g *Graph) []string {
	var out []string
	for _, n := range g.nodes {
		for s, peers := range n.OutputEdges {
			for to := range peers {
				out = append(out, fmt.Sprintf("%s:%d --%s--> %s:%d",
					n.Meta.Name, n.LaunchID, s.Name(), to.Meta.Name, to.LaunchID))
			}
		}
	}
	sort.Strings(out)
	return out
}

func TestInsertTaskWiring(t *testing.T) {
	r := require.New(t)
	bank, g := createTestGraph()
	f := ir.NewSNode(1, "f", nil)
	kernel := ir.NewKernel("k")

	nodeA := insertTestTask(g, bank, kernel, createSerialTask("a", nil, []*ir.SNode{f}))
	// First write depends on the initial state.
	_, ok := g.initialNode.OutputEdges[ValueState(f)][nodeA]
	r.True(ok)
	r.Same(nodeA, g.latestStateOwner[ValueState(f)])

	nodeB := insertTestTask(g, bank, kernel, createSerialTask("b", []*ir.SNode{f}, nil))
	// Read-after-write: a state-flow edge from the writer.
	_, ok = nodeA.OutputEdges[ValueState(f)][nodeB]
	r.True(ok)
	r.True(nodeA.HasStateFlow(ValueState(f), nodeB))

	nodeC := insertTestTask(g, bank, kernel, createSerialTask("c", nil, []*ir.SNode{f}))
	// Write-after-read: a dependency edge from the reader.
	_, ok = nodeB.OutputEdges[ValueState(f)][nodeC]
	r.True(ok)
	r.False(nodeB.HasStateFlow(ValueState(f), nodeC))
	r.Same(nodeC, g.latestStateOwner[ValueState(f)])

	requireDualEdges(t, g)
	requireAcyclic(t, g)
	requireOwnersInGraph(t, g)
}

func TestInsertTaskNoSelfEdgeOnReadWrite(t *testing.T) {
	r := require.New(t)
	bank, g := createTestGraph()
	f := ir.NewSNode(1, "f", nil)
	kernel := ir.NewKernel("k")

	node := insertTestTask(g, bank, kernel,
		createSerialTask("rw", []*ir.SNode{f}, []*ir.SNode{f}))
	_, ok := node.OutputEdges[ValueState(f)][node]
	r.False(ok)
	_, ok = node.InputEdges[ValueState(f)][node]
	r.False(ok)
	requireDualEdges(t, g)
}

func TestLaunchIDMonotonicAcrossClear(t *testing.T) {
	r := require.New(t)
	bank, g := createTestGraph()
	f := ir.NewSNode(1, "f", nil)
	kernel := ir.NewKernel("k")

	n0 := insertTestTask(g, bank, kernel, createSerialTask("a", nil, []*ir.SNode{f}))
	n1 := insertTestTask(g, bank, kernel, createSerialTask("a", nil, []*ir.SNode{f}))
	r.Equal(0, n0.LaunchID)
	r.Equal(1, n1.LaunchID)

	g.Clear()
	r.Equal(1, g.Size())
	r.Empty(g.initialNode.OutputEdges)
	r.Empty(g.latestStateOwner)

	// Launch ids survive a clear.
	n2 := insertTestTask(g, bank, kernel, createSerialTask("a", nil, []*ir.SNode{f}))
	r.Equal(2, n2.LaunchID)
}

func TestExtractResetsGraph(t *testing.T) {
	r := require.New(t)
	bank, g := createTestGraph()
	f := ir.NewSNode(1, "f", nil)
	kernel := ir.NewKernel("k")

	taskA := createSerialTask("a", nil, []*ir.SNode{f})
	taskB := createSerialTask("b", []*ir.SNode{f}, nil)
	insertTestTask(g, bank, kernel, taskA)
	insertTestTask(g, bank, kernel, taskB)

	recs := g.Extract()
	r.Len(recs, 2)
	r.Equal("a", recs[0].Stmt().Name)
	r.Equal("b", recs[1].Stmt().Name)
	r.Equal(1, g.Size())
}

func TestExtractRoundTrip(t *testing.T) {
	r := require.New(t)
	bank, g := createTestGraph()
	f := ir.NewSNode(1, "f", nil)
	h := ir.NewSNode(2, "h", nil)
	kernel := ir.NewKernel("k")

	insertTestTask(g, bank, kernel, createSerialTask("a", nil, []*ir.SNode{f}))
	insertTestTask(g, bank, kernel, createSerialTask("b", []*ir.SNode{f}, []*ir.SNode{h}))
	insertTestTask(g, bank, kernel, createSerialTask("c", []*ir.SNode{h}, nil))

	want := edgeSummary(g)
	recs := g.Extract()

	g2 := NewGraph(bank)
	for _, rec := range recs {
		g2.InsertTask(rec)
	}
	r.Equal(want, edgeSummary(g2))
	requireDualEdges(t, g2)
}

func TestTopoSortNodes(t *testing.T) {
	r := require.New(t)
	bank, g := createTestGraph()
	f := ir.NewSNode(1, "f", nil)
	h := ir.NewSNode(2, "h", nil)
	kernel := ir.NewKernel("k")

	// Diamond: a writes f and h; b reads f, c reads h; d reads both results.
	fb := ir.NewSNode(3, "fb", nil)
	hc := ir.NewSNode(4, "hc", nil)
	insertTestTask(g, bank, kernel, createSerialTask("a", nil, []*ir.SNode{f, h}))
	insertTestTask(g, bank, kernel, createSerialTask("b", []*ir.SNode{f}, []*ir.SNode{fb}))
	insertTestTask(g, bank, kernel, createSerialTask("c", []*ir.SNode{h}, []*ir.SNode{hc}))
	insertTestTask(g, bank, kernel, createSerialTask("d", []*ir.SNode{fb, hc}, nil))

	g.TopoSortNodes()

	// Every edge points from a lower to a higher node id.
	for _, n := range g.nodes {
		for _, peers := range n.OutputEdges {
			for succ := range peers {
				r.Less(n.NodeID, succ.NodeID)
			}
		}
	}
	r.True(g.nodes[0].IsInitialNode)
	r.Equal(5, g.Size())
}

func TestDumpTaskStates(t *testing.T) {
	r := require.New(t)
	bank, g := createTestGraph()
	f := ir.NewSNode(1, "f", nil)
	kernel := ir.NewKernel("k")

	insertTestTask(g, bank, kernel, createSerialTask("writer", nil, []*ir.SNode{f}))
	out := g.DumpTaskStates()
	r.Contains(out, "writer")
	r.Contains(out, "f_value")
	r.Contains(out, "serial")
}
