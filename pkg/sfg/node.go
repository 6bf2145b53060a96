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

	"github.com/WildKidYourDaddy/taichi/pkg/util/sliceutil"
)

// Node is one vertex of the state flow graph. Both edge maps bucket
// neighbours by state; an edge from --s--> to is stored in
// from.OutputEdges[s] and to.InputEdges[s] and the two views must never
// diverge. Only the edge helpers on Graph and the disconnect methods below
// touch the maps.
type Node struct {
	Rec  TaskLaunchRecord
	Meta *TaskMeta

	// LaunchID is per task name and monotonic over the engine lifetime.
	LaunchID int
	// NodeID is the position in the graph's node list; valid after the most
	// recent ReidNodes.
	NodeID int

	IsInitialNode bool

	InputEdges  map[AsyncState]map[*Node]struct{}
	OutputEdges map[AsyncState]map[*Node]struct{}
}

func newNode() *Node {
	return &Node{
		InputEdges:  make(map[AsyncState]map[*Node]struct{}),
		OutputEdges: make(map[AsyncState]map[*Node]struct{}),
	}
}

func (n *Node) String() string {
	return fmt.Sprintf("[node: %s:%d]", n.Meta.Name, n.LaunchID)
}

// HasStateFlow reports whether the edge n --s--> to carries data: n writes s
// and to reads it. Anything else is a mere ordering dependency.
func (n *Node) HasStateFlow(s AsyncState, to *Node) bool {
	if _, ok := n.Meta.OutputStates[s]; !ok {
		return false
	}
	_, ok := to.Meta.InputStates[s]
	return ok
}

// DisconnectAll removes n from the edge maps of every neighbour. n's own
// maps are left untouched; callers drop the node right after.
func (n *Node) DisconnectAll() {
	for _, peers := range n.OutputEdges {
		for other := range peers {
			other.DisconnectWith(n)
		}
	}
	for _, peers := range n.InputEdges {
		for other := range peers {
			other.DisconnectWith(n)
		}
	}
}

// DisconnectWith removes other from every state bucket of n, both sides.
func (n *Node) DisconnectWith(other *Node) {
	for _, peers := range n.OutputEdges {
		delete(peers, other)
	}
	for _, peers := range n.InputEdges {
		delete(peers, other)
	}
}

// nodeLess orders nodes deterministically by (name, launch id), a key that
// is unique and stable even before node ids have been assigned.
func nodeLess(a, b *Node) bool {
	if a.Meta.Name != b.Meta.Name {
		return a.Meta.Name < b.Meta.Name
	}
	return a.LaunchID < b.LaunchID
}

// sortedPeers returns the nodes of one edge bucket in deterministic order.
func sortedPeers(peers map[*Node]struct{}) []*Node {
	return sliceutil.SortedKeysBy(peers, nodeLess)
}

// sortedPeersByID returns the bucket ordered by node id; only valid right
// after ReidNodes.
func sortedPeersByID(peers map[*Node]struct{}) []*Node {
	return sliceutil.SortedKeysBy(peers, func(a, b *Node) bool { return a.NodeID < b.NodeID })
}
