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
)

// OptimizeListGen removes redundant list generation tasks. Two listgens on
// the same snode whose mask input and parent-list input come from the same
// writers produce identical lists; readers of the second are spliced onto
// the first and the second is deleted. Returns true if anything changed.
func (g *Graph) OptimizeListGen() bool {
	logrus.Debug("sfg: begin optimize listgen")
	modified := false

	var commonPairs [][2]int

	for i := 0; i < len(g.nodes); i++ {
		nodeA := g.nodes[i]
		if nodeA.Meta.Type != ir.TaskListGen {
			continue
		}
		for j := i + 1; j < len(g.nodes); j++ {
			nodeB := g.nodes[j]
			if nodeB.Meta.Type != ir.TaskListGen {
				continue
			}
			if nodeA.Meta.SNode != nodeB.Meta.SNode {
				continue
			}

			// Test if the two list generations share the same mask and
			// parent list.
			snode := nodeA.Meta.SNode
			maskState := MaskState(snode)
			parentListState := ListState(snode.Parent)

			if singleSource(nodeA, maskState) != singleSource(nodeB, maskState) {
				continue
			}
			if singleSource(nodeA, parentListState) != singleSource(nodeB, parentListState) {
				continue
			}

			logrus.Debugf("sfg: common list generation %s and %s", nodeA, nodeB)
			commonPairs = append(commonPairs, [2]int{i, j})
		}
	}

	// Erase node j. The corresponding ClearListStmt is removed by the dead
	// store pass.
	toDelete := make(map[int]struct{})
	for _, p := range commonPairs {
		i, j := p[0], p[1]
		logrus.Debugf("sfg: eliminating %s", g.nodes[j])
		g.replaceReference(g.nodes[j], g.nodes[i])
		modified = true
		toDelete[j] = struct{}{}
	}

	g.DeleteNodes(toDelete)
	metrics.ListGensDeduped.Add(float64(len(toDelete)))

	return modified
}

// singleSource returns the only writer feeding node on state s.
func singleSource(node *Node, s AsyncState) *Node {
	peers := node.InputEdges[s]
	if len(peers) != 1 {
		panic(fmt.Sprintf("sfg: %s must have exactly one input on %s, got %d",
			node, s.Name(), len(peers)))
	}
	for p := range peers {
		return p
	}
	return nil
}
