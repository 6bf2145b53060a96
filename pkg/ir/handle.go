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

// IRHandle is a hash-addressed, immutable reference to an IR tree owned by
// the bank. The zero value is the null handle.
type IRHandle struct {
	ir   Stmt
	hash uint64
}

func NewIRHandle(ir Stmt, hash uint64) IRHandle {
	return IRHandle{ir: ir, hash: hash}
}

// IR returns the referenced root statement. Callers must not mutate it; use
// the bank's Clone to obtain a private copy.
func (h IRHandle) IR() Stmt {
	return h.ir
}

func (h IRHandle) Hash() uint64 {
	return h.hash
}

// Empty reports whether this is the null handle.
func (h IRHandle) Empty() bool {
	return h.ir == nil
}

func (h IRHandle) String() string {
	if h.Empty() {
		return "ir_handle{null}"
	}
	return fmt.Sprintf("ir_handle{%016x}", h.hash)
}
