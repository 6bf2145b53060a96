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

// DelayedIRModifier queues statement erasures while a pass is still iterating
// over the tree, then applies them in one batch. This keeps the
// iterate-then-mutate discipline in a single place.
type DelayedIRModifier struct {
	toErase []Stmt
}

// Erase schedules s for removal.
func (m *DelayedIRModifier) Erase(s Stmt) {
	m.toErase = append(m.toErase, s)
}

// ModifyIR applies the queued erasures to the blocks under root. Returns
// true if anything was removed.
func (m *DelayedIRModifier) ModifyIR(root Stmt) bool {
	if len(m.toErase) == 0 {
		return false
	}
	doomed := make(map[Stmt]bool, len(m.toErase))
	for _, s := range m.toErase {
		doomed[s] = true
	}
	modified := false
	if off, ok := root.(*OffloadedStmt); ok && off.Body != nil {
		kept := off.Body.Statements[:0]
		for _, s := range off.Body.Statements {
			if doomed[s] {
				modified = true
				continue
			}
			kept = append(kept, s)
		}
		off.Body.Statements = kept
	}
	m.toErase = nil
	return modified
}
