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

package irbank

import (
	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"github.com/WildKidYourDaddy/taichi/pkg/ir"
)

// Bank is the content-addressed store of IR trees. Handles hand out hashed
// references into the bank; the bank stays the sole owner of every tree.
// Abandoned clones go to the trash bin so that scratch pointers held by
// optimizer passes never outlive the IR they refer to.
type Bank struct {
	irByHash map[uint64]ir.Stmt
	trashBin []ir.Stmt
}

func New() *Bank {
	return &Bank{
		irByHash: make(map[uint64]ir.Stmt),
	}
}

// GetHash computes the content hash of root. Statement ids are reassigned
// first so that structurally equal trees hash identically.
func (b *Bank) GetHash(root ir.Stmt) uint64 {
	ir.ReID(root)
	return xxhash.Sum64String(ir.Serialize(root))
}

// Insert registers root under hash and returns a handle to it. Inserting the
// same hash twice keeps the first tree (content-addressed, both are equal).
func (b *Bank) Insert(root ir.Stmt, hash uint64) ir.IRHandle {
	if existing, ok := b.irByHash[hash]; ok {
		logrus.Debugf("irbank: hash %016x already interned", hash)
		return ir.NewIRHandle(existing, hash)
	}
	b.irByHash[hash] = root
	return ir.NewIRHandle(root, hash)
}

// Intern hashes root and inserts it in one step.
func (b *Bank) Intern(root ir.Stmt) ir.IRHandle {
	return b.Insert(root, b.GetHash(root))
}

// Clone returns a private deep copy of the tree behind h.
func (b *Bank) Clone(h ir.IRHandle) *ir.OffloadedStmt {
	off, ok := h.IR().(*ir.OffloadedStmt)
	if !ok {
		panic("irbank: handle does not refer to an offloaded task")
	}
	return off.Clone()
}

// InsertToTrashBin parks an abandoned tree until bank teardown.
func (b *Bank) InsertToTrashBin(root ir.Stmt) {
	b.trashBin = append(b.trashBin, root)
}

// Lookup returns the interned tree for hash, if any.
func (b *Bank) Lookup(hash uint64) (ir.Stmt, bool) {
	root, ok := b.irByHash[hash]
	return root, ok
}

// TrashSize reports how many abandoned trees the bin holds.
func (b *Bank) TrashSize() int {
	return len(b.trashBin)
}
