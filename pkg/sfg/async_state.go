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

	"github.com/WildKidYourDaddy/taichi/pkg/ir"
	"github.com/WildKidYourDaddy/taichi/pkg/util/sliceutil"
)

// StateKind is the category of asynchronous runtime state tracked for
// dependency ordering.
type StateKind int

const (
	StateValue StateKind = iota
	StateList
	StateMask
	StateAllocator
)

func (k StateKind) String() string {
	switch k {
	case StateValue:
		return "value"
	case StateList:
		return "list"
	case StateMask:
		return "mask"
	case StateAllocator:
		return "allocator"
	}
	return fmt.Sprintf("state_kind(%d)", int(k))
}

// AsyncState is the value key identifying one scalar piece of runtime state:
// a field's value, its activation list, its mask, or its allocator. States
// are compared structurally and are not owned by the graph.
type AsyncState struct {
	SNode *ir.SNode
	Kind  StateKind
}

// ValueState is shorthand for the value state of a field.
func ValueState(snode *ir.SNode) AsyncState {
	return AsyncState{SNode: snode, Kind: StateValue}
}

// ListState is shorthand for the activation-list state of a field.
func ListState(snode *ir.SNode) AsyncState {
	return AsyncState{SNode: snode, Kind: StateList}
}

// MaskState is shorthand for the mask state of a field.
func MaskState(snode *ir.SNode) AsyncState {
	return AsyncState{SNode: snode, Kind: StateMask}
}

// AllocatorState is shorthand for the allocator state of a field.
func AllocatorState(snode *ir.SNode) AsyncState {
	return AsyncState{SNode: snode, Kind: StateAllocator}
}

// Name renders the state for graph output, e.g. "x_value".
func (s AsyncState) Name() string {
	name := "<nil>"
	if s.SNode != nil {
		name = s.SNode.Name
	}
	return fmt.Sprintf("%s_%s", name, s.Kind)
}

func stateLess(a, b AsyncState) bool {
	aid, bid := -1, -1
	if a.SNode != nil {
		aid = a.SNode.ID
	}
	if b.SNode != nil {
		bid = b.SNode.ID
	}
	if aid != bid {
		return aid < bid
	}
	return a.Kind < b.Kind
}

// sortedStates returns the keys of a state-keyed map in deterministic order.
func sortedStates[V any](m map[AsyncState]V) []AsyncState {
	return sliceutil.SortedKeysBy(m, stateLess)
}
