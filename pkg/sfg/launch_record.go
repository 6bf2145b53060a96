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

import "github.com/WildKidYourDaddy/taichi/pkg/ir"

// TaskLaunchRecord identifies one task to enqueue: a hashed, immutable IR
// reference plus the kernel that owns it. The zero record is the empty
// sentinel used for fused-away slots.
type TaskLaunchRecord struct {
	IRHandle ir.IRHandle
	Kernel   *ir.Kernel
}

// Empty reports whether this slot has been fused away.
func (r TaskLaunchRecord) Empty() bool {
	return r.IRHandle.Empty()
}

// Stmt returns the offloaded statement the record refers to.
func (r TaskLaunchRecord) Stmt() *ir.OffloadedStmt {
	if r.Empty() {
		return nil
	}
	return r.IRHandle.IR().(*ir.OffloadedStmt)
}
