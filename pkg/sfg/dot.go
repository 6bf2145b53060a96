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

	"github.com/sirupsen/logrus"

	"github.com/WildKidYourDaddy/taichi/pkg/ir"
)

// DumpDot renders the graph as a Graphviz digraph. rankdir is placed
// verbatim when non-empty (e.g. "LR", "TB"). The initial node is boxed,
// latest-owner nodes get double peripheries, user-authored task types are
// filled, and pure dependency edges are dotted.
func (g *Graph) DumpDot(rankdir string) string {
	var sb strings.Builder
	sb.WriteString("digraph {\n")

	// https://graphviz.org/doc/info/lang.html ID naming
	dotID := func(n *Node) string {
		return fmt.Sprintf("n_%s_%d", n.Meta.Name, n.LaunchID)
	}

	// Graph level configuration.
	if rankdir != "" {
		fmt.Fprintf(&sb, "  rankdir=%s\n", rankdir)
	}
	sb.WriteString("\n")

	latestStateNodes := make(map[*Node]struct{})
	for _, owner := range g.latestStateOwner {
		latestStateNodes[owner] = struct{}{}
	}

	var nodesWithNoInputs []*Node
	for _, n := range g.nodes {
		fmt.Fprintf(&sb, "  %s [label=\"%s\"", dotID(n), n)
		if n.IsInitialNode {
			sb.WriteString(",shape=box")
		} else if _, ok := latestStateNodes[n]; ok {
			sb.WriteString(",peripheries=2")
		}
		// Highlight user-defined tasks.
		tt := n.Meta.Type
		if !n.IsInitialNode &&
			(tt == ir.TaskRangeFor || tt == ir.TaskStructFor || tt == ir.TaskSerial) {
			sb.WriteString(",style=filled,fillcolor=lightgray")
		}
		sb.WriteString("]\n")
		if len(n.InputEdges) == 0 {
			nodesWithNoInputs = append(nodesWithNoInputs, n)
		}
	}
	sb.WriteString("\n")

	// DFS from the source nodes, emitting edges as they are discovered.
	visited := make(map[*Node]struct{})
	stack := append([]*Node(nil), nodesWithNoInputs...)
	for len(stack) > 0 {
		from := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := visited[from]; ok {
			continue
		}
		visited[from] = struct{}{}
		for _, s := range sortedStates(from.OutputEdges) {
			for _, to := range sortedPeers(from.OutputEdges[s]) {
				stack = append(stack, to)
				style := ""
				if !from.HasStateFlow(s, to) {
					style = "style=dotted"
				}
				fmt.Fprintf(&sb, "  %s -> %s [label=\"%s\" %s]\n",
					dotID(from), dotID(to), s.Name(), style)
			}
		}
	}
	if len(visited) > len(g.nodes) {
		logrus.Warn("sfg: visited more nodes than the graph holds; the graph may be malformed")
	}

	sb.WriteString("}\n")
	return sb.String()
}
