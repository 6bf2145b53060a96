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

package ir

import (
	"fmt"
	"strings"
)

// TaskType classifies an offloaded task.
type TaskType int

const (
	TaskSerial TaskType = iota
	TaskRangeFor
	TaskStructFor
	TaskListGen
	TaskGC
	TaskClearList
)

func (t TaskType) String() string {
	switch t {
	case TaskSerial:
		return "serial"
	case TaskRangeFor:
		return "range_for"
	case TaskStructFor:
		return "struct_for"
	case TaskListGen:
		return "listgen"
	case TaskGC:
		return "gc"
	case TaskClearList:
		return "clear_list"
	}
	return fmt.Sprintf("task_type(%d)", int(t))
}

// OffloadedStmt is the root of one offloaded task region. It is the unit the
// async engine schedules and the fusion pass merges.
type OffloadedStmt struct {
	stmtBase
	TaskType TaskType
	Name     string

	// struct_for / listgen / gc target
	SNode    *SNode
	BlockDim int

	// range_for bounds; begin/end values are only meaningful when the
	// corresponding Const flag is set
	ConstBegin bool
	ConstEnd   bool
	BeginValue int
	EndValue   int

	Body *Block
}

func NewOffloadedStmt(taskType TaskType, name string) *OffloadedStmt {
	return &OffloadedStmt{
		TaskType: taskType,
		Name:     name,
		Body:     &Block{},
	}
}

func (s *OffloadedStmt) shallowClone() Stmt {
	c := *s
	return &c
}

func (s *OffloadedStmt) operandRefs() []*Stmt { return nil }

func (s *OffloadedStmt) writeHash(sb *strings.Builder) {
	fmt.Fprintf(sb, "offload %d: %s %s snode=%s block_dim=%d range=[%v:%d, %v:%d]\n",
		s.id, s.TaskType, s.Name, s.SNode, s.BlockDim,
		s.ConstBegin, s.BeginValue, s.ConstEnd, s.EndValue)
}

// Clone deep-copies the task including its body.
func (s *OffloadedStmt) Clone() *OffloadedStmt {
	c := *s
	if s.Body != nil {
		c.Body = s.Body.Clone()
	}
	return &c
}

func (s *OffloadedStmt) String() string {
	return fmt.Sprintf("offloaded{%s %s, %d stmts}", s.TaskType, s.Name, s.Body.Size())
}
