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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/WildKidYourDaddy/taichi/pkg/ir"
)

func TestFuseIndependentSerialTasks(t *testing.T) {
	r := require.New(t)
	bank, g := createTestGraph()
	fa := ir.NewSNode(1, "fa", nil)
	fb := ir.NewSNode(2, "fb", nil)
	kernel := ir.NewKernel("k")

	insertTestTask(g, bank, kernel, createSerialTask("a", nil, []*ir.SNode{fa}))
	insertTestTask(g, bank, kernel, createSerialTask("b", nil, []*ir.SNode{fb}))

	r.True(g.Fuse())
	r.Equal(2, g.Size())

	merged := g.nodes[1]
	r.Contains(merged.Meta.OutputStates, ValueState(fa))
	r.Contains(merged.Meta.OutputStates, ValueState(fb))
	// The merged body carries both stores.
	body := merged.Rec.Stmt().Body
	stores := 0
	for _, s := range body.Statements {
		if _, ok := s.(*ir.GlobalStoreStmt); ok {
			stores++
		}
	}
	r.Equal(2, stores)

	requireDualEdges(t, g)
	requireAcyclic(t, g)
	requireOwnersInGraph(t, g)

	// Nothing left to fuse.
	r.False(g.Fuse())
}

func TestFuseAlongStateFlowEdge(t *testing.T) {
	r := require.New(t)
	bank, g := createTestGraph()
	f := ir.NewSNode(1, "f", nil)
	kernel := ir.NewKernel("k")

	insertTestTask(g, bank, kernel, createSerialTask("a", nil, []*ir.SNode{f}))
	insertTestTask(g, bank, kernel, createSerialTask("b", []*ir.SNode{f}, nil))

	// Adjacent pair with no longer path between them: fusable.
	r.True(g.Fuse())
	r.Equal(2, g.Size())
	requireDualEdges(t, g)
	requireAcyclic(t, g)
	requireOwnersInGraph(t, g)
	r.False(g.Fuse())
}

func TestFuseRejectsMixedTaskTypes(t *testing.T) {
	r := require.New(t)
	bank, g := createTestGraph()
	f := ir.NewSNode(1, "f", nil)
	s := ir.NewSNode(2, "s", nil)
	kernel := ir.NewKernel("k")

	insertTestTask(g, bank, kernel, createSerialTask("a", nil, []*ir.SNode{f}))
	insertTestTask(g, bank, kernel, createStructForTask("b", s, []*ir.SNode{f}))

	r.False(g.Fuse())
	r.Equal(3, g.Size())
}

func TestFuseRejectsDifferentKernelSignatures(t *testing.T) {
	r := require.New(t)
	bank, g := createTestGraph()
	fa := ir.NewSNode(1, "fa", nil)
	fb := ir.NewSNode(2, "fb", nil)

	kernelA := ir.NewKernel("ka")
	kernelA.Args = []ir.Param{{Name: "n", DType: ir.I32}}
	kernelB := ir.NewKernel("kb")

	insertTestTask(g, bank, kernelA, createSerialTask("a", nil, []*ir.SNode{fa}))
	insertTestTask(g, bank, kernelB, createSerialTask("b", nil, []*ir.SNode{fb}))

	// Different kernels and kernelA has arguments: not fusable.
	r.False(g.Fuse())
	r.Equal(3, g.Size())
}

func TestFuseRejectsAccessorKernels(t *testing.T) {
	r := require.New(t)
	bank, g := createTestGraph()
	fa := ir.NewSNode(1, "fa", nil)
	fb := ir.NewSNode(2, "fb", nil)

	accessor := ir.NewKernel("acc")
	accessor.IsAccessor = true

	insertTestTask(g, bank, accessor, createSerialTask("a", nil, []*ir.SNode{fa}))
	insertTestTask(g, bank, accessor, createSerialTask("b", nil, []*ir.SNode{fb}))

	r.False(g.Fuse())
}

func TestFuseStructForSameSNode(t *testing.T) {
	r := require.New(t)
	bank, g := createTestGraph()
	s := ir.NewSNode(1, "s", nil)
	fa := ir.NewSNode(2, "fa", nil)
	fb := ir.NewSNode(3, "fb", nil)
	kernel := ir.NewKernel("k")

	insertTestTask(g, bank, kernel, createStructForTask("a", s, []*ir.SNode{fa}))
	insertTestTask(g, bank, kernel, createStructForTask("b", s, []*ir.SNode{fb}))

	r.True(g.Fuse())
	r.Equal(2, g.Size())
	requireDualEdges(t, g)
	requireAcyclic(t, g)
}

func TestFuseStructForDifferentBlockDim(t *testing.T) {
	r := require.New(t)
	bank, g := createTestGraph()
	s := ir.NewSNode(1, "s", nil)
	fa := ir.NewSNode(2, "fa", nil)
	fb := ir.NewSNode(3, "fb", nil)
	kernel := ir.NewKernel("k")

	taskA := createStructForTask("a", s, []*ir.SNode{fa})
	taskB := createStructForTask("b", s, []*ir.SNode{fb})
	taskB.BlockDim = 64
	insertTestTask(g, bank, kernel, taskA)
	insertTestTask(g, bank, kernel, taskB)

	r.False(g.Fuse())
}

func TestFuseRangeFor(t *testing.T) {
	r := require.New(t)
	bank, g := createTestGraph()
	fa := ir.NewSNode(1, "fa", nil)
	fb := ir.NewSNode(2, "fb", nil)
	kernel := ir.NewKernel("k")

	mkRange := func(name string, target *ir.SNode, begin, end int) *ir.OffloadedStmt {
		task := ir.NewOffloadedStmt(ir.TaskRangeFor, name)
		task.ConstBegin = true
		task.ConstEnd = true
		task.BeginValue = begin
		task.EndValue = end
		c := &ir.ConstStmt{Value: 1}
		task.Body.Insert(c)
		task.Body.Insert(&ir.GlobalStoreStmt{SNode: target, Data: c})
		return task
	}

	t.Run("SameRange", func(t *testing.T) {
		insertTestTask(g, bank, kernel, mkRange("a", fa, 0, 16))
		insertTestTask(g, bank, kernel, mkRange("b", fb, 0, 16))
		r.True(g.Fuse())
		r.Equal(2, g.Size())
	})

	t.Run("DifferentRange", func(t *testing.T) {
		bank2, g2 := createTestGraph()
		insertTestTask(g2, bank2, kernel, mkRange("a", fa, 0, 16))
		insertTestTask(g2, bank2, kernel, mkRange("b", fb, 0, 32))
		r.False(g2.Fuse())
	})
}

func TestFuseCyclePrevention(t *testing.T) {
	r := require.New(t)
	bank, g := createTestGraph()
	fa := ir.NewSNode(1, "fa", nil)
	fb := ir.NewSNode(2, "fb", nil)
	s := ir.NewSNode(3, "s", nil)
	kernel := ir.NewKernel("k")

	// a and b are mutually unreachable; c consumes both.
	insertTestTask(g, bank, kernel, createSerialTask("a", nil, []*ir.SNode{fa}))
	insertTestTask(g, bank, kernel, createSerialTask("b", nil, []*ir.SNode{fb}))
	nodeC := insertTestTask(g, bank, kernel, createStructForTask("c", s, []*ir.SNode{fa, fb}))

	r.True(g.Fuse())
	r.Equal(3, g.Size())

	merged := g.nodes[1]
	r.False(merged.Rec.Empty())
	// The merged writer is now the single predecessor of c on both states.
	_, ok := merged.OutputEdges[ValueState(fa)][nodeC]
	r.True(ok)
	_, ok = merged.OutputEdges[ValueState(fb)][nodeC]
	r.True(ok)
	// No self loop on the merged node.
	_, ok = merged.OutputEdges[ValueState(fa)][merged]
	r.False(ok)

	requireDualEdges(t, g)
	requireAcyclic(t, g)
	requireOwnersInGraph(t, g)
}

func TestFuseChainConverges(t *testing.T) {
	r := require.New(t)
	bank, g := createTestGraph()
	f1 := ir.NewSNode(1, "f1", nil)
	f2 := ir.NewSNode(2, "f2", nil)
	f3 := ir.NewSNode(3, "f3", nil)
	kernel := ir.NewKernel("k")

	insertTestTask(g, bank, kernel, createSerialTask("a", nil, []*ir.SNode{f1}))
	insertTestTask(g, bank, kernel, createSerialTask("b", []*ir.SNode{f1}, []*ir.SNode{f2}))
	insertTestTask(g, bank, kernel, createSerialTask("c", []*ir.SNode{f2}, []*ir.SNode{f3}))

	// First call merges the adjacent pair; the closure still sees the
	// emptied slot between the survivors, so the rest waits for a recompute.
	r.True(g.Fuse())
	r.Equal(3, g.Size())
	requireAcyclic(t, g)

	// Second call rebuilds the closure and finishes the chain.
	r.True(g.Fuse())
	r.Equal(2, g.Size())
	requireDualEdges(t, g)
	requireAcyclic(t, g)
	requireOwnersInGraph(t, g)

	r.False(g.Fuse())
}

func TestFuseTooSmallGraph(t *testing.T) {
	r := require.New(t)
	bank, g := createTestGraph()
	f := ir.NewSNode(1, "f", nil)
	kernel := ir.NewKernel("k")

	r.False(g.Fuse())
	insertTestTask(g, bank, kernel, createSerialTask("a", nil, []*ir.SNode{f}))
	r.False(g.Fuse())
}
