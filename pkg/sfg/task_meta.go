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

// TaskMeta captures everything the scheduler needs to know about a task
// without looking at its IR again: name, classification, and the states it
// reads and writes. Metas are shared by every launch of the same compiled
// task body; nodes borrow them from the cache.
type TaskMeta struct {
	Name string
	Type ir.TaskType

	InputStates  map[AsyncState]struct{}
	OutputStates map[AsyncState]struct{}

	SNode    *ir.SNode
	BlockDim int

	ConstBegin bool
	ConstEnd   bool
	BeginValue int
	EndValue   int
}

func newTaskMeta(name string, taskType ir.TaskType) *TaskMeta {
	return &TaskMeta{
		Name:         name,
		Type:         taskType,
		InputStates:  make(map[AsyncState]struct{}),
		OutputStates: make(map[AsyncState]struct{}),
	}
}

func (m *TaskMeta) addInput(s AsyncState) {
	m.InputStates[s] = struct{}{}
}

func (m *TaskMeta) addOutput(s AsyncState) {
	m.OutputStates[s] = struct{}{}
}

// cloneWithoutOutput returns a private copy of m with one output state
// removed. Dead store elimination uses it so that launches sharing the
// original meta are unaffected.
func (m *TaskMeta) cloneWithoutOutput(s AsyncState) *TaskMeta {
	c := *m
	c.InputStates = make(map[AsyncState]struct{}, len(m.InputStates))
	for k := range m.InputStates {
		c.InputStates[k] = struct{}{}
	}
	c.OutputStates = make(map[AsyncState]struct{}, len(m.OutputStates))
	for k := range m.OutputStates {
		if k != s {
			c.OutputStates[k] = struct{}{}
		}
	}
	return &c
}

func (m *TaskMeta) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "task_meta{%s %s", m.Type, m.Name)
	fmt.Fprintf(&sb, ", in: [%s]", statesString(m.InputStates))
	fmt.Fprintf(&sb, ", out: [%s]", statesString(m.OutputStates))
	sb.WriteString("}")
	return sb.String()
}

// Print logs the meta at debug level.
func (m *TaskMeta) Print() {
	logrus.Debugf("%s", m)
}

func statesString(states map[AsyncState]struct{}) string {
	names := make([]string, 0, len(states))
	for _, s := range sortedStates(states) {
		names = append(names, s.Name())
	}
	return strings.Join(names, ", ")
}

// MetaCache derives and interns task metadata keyed by IR hash. The cache
// must outlive every graph node borrowing a meta from it.
type MetaCache struct {
	metas map[uint64]*TaskMeta
}

func NewMetaCache() *MetaCache {
	return &MetaCache{metas: make(map[uint64]*TaskMeta)}
}

// GetTaskMeta returns the metadata of rec, deriving it from the offloaded
// body on first sight of the IR hash.
func (c *MetaCache) GetTaskMeta(rec TaskLaunchRecord) *TaskMeta {
	hash := rec.IRHandle.Hash()
	if m, ok := c.metas[hash]; ok {
		return m
	}
	m := deriveTaskMeta(rec)
	c.metas[hash] = m
	return m
}

// deriveTaskMeta reads the states a task touches off its offloaded body.
func deriveTaskMeta(rec TaskLaunchRecord) *TaskMeta {
	off := rec.Stmt()
	name := off.Name
	if name == "" {
		name = fmt.Sprintf("%s_%s", rec.Kernel.Name, off.TaskType)
	}
	m := newTaskMeta(name, off.TaskType)
	m.SNode = off.SNode
	m.BlockDim = off.BlockDim
	m.ConstBegin = off.ConstBegin
	m.ConstEnd = off.ConstEnd
	m.BeginValue = off.BeginValue
	m.EndValue = off.EndValue

	switch off.TaskType {
	case ir.TaskListGen:
		// A list generation appends the active elements of its snode: it
		// reads the mask and the parent's list, and extends its own list
		// (read-modify-write, so the preceding clear stays ordered first).
		m.addInput(MaskState(off.SNode))
		if off.SNode.Parent != nil {
			m.addInput(ListState(off.SNode.Parent))
		}
		m.addInput(ListState(off.SNode))
		m.addOutput(ListState(off.SNode))
	case ir.TaskClearList:
		m.addOutput(ListState(off.SNode))
	case ir.TaskGC:
		m.addInput(AllocatorState(off.SNode))
		m.addOutput(AllocatorState(off.SNode))
	case ir.TaskStructFor:
		m.addInput(ListState(off.SNode))
	}

	if off.Body != nil {
		for _, s := range off.Body.Statements {
			switch stmt := s.(type) {
			case *ir.GlobalLoadStmt:
				m.addInput(ValueState(stmt.SNode))
			case *ir.GlobalStoreStmt:
				m.addOutput(ValueState(stmt.SNode))
			case *ir.ClearListStmt:
				m.addOutput(ListState(stmt.SNode))
			case *ir.ListGenStmt:
				m.addInput(MaskState(stmt.SNode))
				if stmt.SNode.Parent != nil {
					m.addInput(ListState(stmt.SNode.Parent))
				}
				m.addInput(ListState(stmt.SNode))
				m.addOutput(ListState(stmt.SNode))
			case *ir.GCStmt:
				m.addInput(AllocatorState(stmt.SNode))
				m.addOutput(AllocatorState(stmt.SNode))
			}
		}
	}
	return m
}
