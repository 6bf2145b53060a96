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

import "fmt"

// SNode is a structured node: a tensor field or one of the auxiliary
// per-field structures (activation list, mask) hanging off it. SNodes form a
// tree; the root has a nil Parent.
type SNode struct {
	ID     int
	Name   string
	Parent *SNode
}

func NewSNode(id int, name string, parent *SNode) *SNode {
	return &SNode{ID: id, Name: name, Parent: parent}
}

func (s *SNode) String() string {
	if s == nil {
		return "<nil>"
	}
	return fmt.Sprintf("S%d(%s)", s.ID, s.Name)
}
