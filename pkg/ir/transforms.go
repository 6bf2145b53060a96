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

import "strings"

// Walk visits root and, for an offloaded task, every statement of its body
// in order. Operand references are not followed; each statement is visited
// exactly once.
func Walk(root Stmt, visit func(Stmt)) {
	visit(root)
	if off, ok := root.(*OffloadedStmt); ok && off.Body != nil {
		for _, s := range off.Body.Statements {
			visit(s)
		}
	}
}

// ReID assigns sequential statement ids starting from 0. Required before
// hashing so that structurally equal trees serialize identically.
func ReID(root Stmt) {
	id := 0
	Walk(root, func(s Stmt) {
		s.setID(id)
		id++
	})
}

// Serialize renders a canonical text form of the tree, used as hash input.
// Callers must ReID first.
func Serialize(root Stmt) string {
	var sb strings.Builder
	Walk(root, func(s Stmt) {
		s.writeHash(&sb)
	})
	return sb.String()
}

// ReplaceAllUsagesWith rewrites every operand reference to old under scope to
// point to new instead.
func ReplaceAllUsagesWith(scope Stmt, old, new Stmt) {
	Walk(scope, func(s Stmt) {
		for _, ref := range s.operandRefs() {
			if *ref == old {
				*ref = new
			}
		}
	})
}

// FullSimplify runs the local simplification pipeline on one offloaded task:
// constant folding, redundant store elimination, and dead pure-statement
// removal, iterated to a fixed point. Returns true if the body changed.
// afterLowerAccess is accepted for parity with the lowered pipeline; the
// passes here run before access lowering and ignore it.
func FullSimplify(task *OffloadedStmt, afterLowerAccess bool, kernel *Kernel) bool {
	modified := false
	for {
		changed := false
		if foldConstants(task.Body) {
			changed = true
		}
		if eliminateRedundantStores(task.Body) {
			changed = true
		}
		if removeUnusedPure(task.Body) {
			changed = true
		}
		if !changed {
			break
		}
		modified = true
	}
	return modified
}

func foldConstants(b *Block) bool {
	changed := false
	for i, s := range b.Statements {
		bin, ok := s.(*BinaryOpStmt)
		if !ok {
			continue
		}
		lhs, lok := bin.LHS.(*ConstStmt)
		rhs, rok := bin.RHS.(*ConstStmt)
		if !lok || !rok {
			continue
		}
		var v int64
		switch bin.Op {
		case OpAdd:
			v = lhs.Value + rhs.Value
		case OpSub:
			v = lhs.Value - rhs.Value
		case OpMul:
			v = lhs.Value * rhs.Value
		case OpDiv:
			if rhs.Value == 0 {
				continue
			}
			v = lhs.Value / rhs.Value
		default:
			continue
		}
		folded := &ConstStmt{Value: v}
		b.Statements[i] = folded
		for _, other := range b.Statements {
			for _, ref := range other.operandRefs() {
				if *ref == s {
					*ref = folded
				}
			}
		}
		changed = true
	}
	return changed
}

// eliminateRedundantStores drops a store that is overwritten by a later
// store to the same SNode with no load of that SNode in between.
func eliminateRedundantStores(b *Block) bool {
	dead := make(map[int]bool)
	for i, s := range b.Statements {
		store, ok := s.(*GlobalStoreStmt)
		if !ok {
			continue
		}
	scan:
		for j := i + 1; j < len(b.Statements); j++ {
			switch later := b.Statements[j].(type) {
			case *GlobalLoadStmt:
				if later.SNode == store.SNode {
					break scan
				}
			case *GlobalStoreStmt:
				if later.SNode == store.SNode {
					dead[i] = true
					break scan
				}
			}
		}
	}
	if len(dead) == 0 {
		return false
	}
	kept := b.Statements[:0]
	for i, s := range b.Statements {
		if !dead[i] {
			kept = append(kept, s)
		}
	}
	b.Statements = kept
	return true
}

func isPure(s Stmt) bool {
	switch s.(type) {
	case *ConstStmt, *GlobalLoadStmt, *BinaryOpStmt:
		return true
	}
	return false
}

func removeUnusedPure(b *Block) bool {
	used := make(map[Stmt]bool)
	for _, s := range b.Statements {
		for _, ref := range s.operandRefs() {
			used[*ref] = true
		}
	}
	changed := false
	kept := b.Statements[:0]
	for _, s := range b.Statements {
		if isPure(s) && !used[s] {
			changed = true
			continue
		}
		kept = append(kept, s)
	}
	b.Statements = kept
	return changed
}
