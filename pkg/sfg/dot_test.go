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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/WildKidYourDaddy/taichi/pkg/ir"
)

func TestDumpDot(t *testing.T) {
	r := require.New(t)
	bank, g := createTestGraph()
	f := ir.NewSNode(1, "f", nil)
	kernel := ir.NewKernel("k")

	insertTestTask(g, bank, kernel, createSerialTask("writer", nil, []*ir.SNode{f}))
	insertTestTask(g, bank, kernel, createSerialTask("reader", []*ir.SNode{f}, nil))

	dot := g.DumpDot("LR")

	r.True(strings.HasPrefix(dot, "digraph {"))
	r.True(strings.HasSuffix(dot, "}\n"))
	r.Contains(dot, "rankdir=LR")

	// Initial node is boxed; the writer owns f and gets double peripheries.
	r.Contains(dot, "n_initial_state_0 [label=\"[node: initial_state:0]\",shape=box]")
	r.Contains(dot, "n_writer_0")
	r.Contains(dot, "peripheries=2")
	r.Contains(dot, "style=filled,fillcolor=lightgray")

	// The initial-to-writer edge is a pure dependency: dotted. The
	// writer-to-reader edge carries data: solid.
	r.Contains(dot, "n_initial_state_0 -> n_writer_0 [label=\"f_value\" style=dotted]")
	r.Contains(dot, "n_writer_0 -> n_reader_0 [label=\"f_value\" ]")
}

func TestDumpDotNoRankdir(t *testing.T) {
	r := require.New(t)
	_, g := createTestGraph()

	dot := g.DumpDot("")
	r.NotContains(dot, "rankdir")
	r.Contains(dot, "n_initial_state_0")
}

func TestPrintDoesNotPanic(t *testing.T) {
	bank, g := createTestGraph()
	f := ir.NewSNode(1, "f", nil)
	kernel := ir.NewKernel("k")
	insertTestTask(g, bank, kernel, createSerialTask("a", nil, []*ir.SNode{f}))
	g.Print()
}
