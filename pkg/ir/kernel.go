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

// DataType of a kernel parameter.
type DataType int

const (
	I32 DataType = iota
	I64
	F32
	F64
)

func (d DataType) String() string {
	switch d {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	}
	return fmt.Sprintf("dtype(%d)", int(d))
}

// Param describes one kernel argument or return value.
type Param struct {
	Name  string
	DType DataType
}

// Kernel is a compiled kernel owning one or more offloaded tasks. Tasks from
// kernels with non-empty signatures must not be merged across kernels, and
// accessor kernels bypass the async engine entirely.
type Kernel struct {
	Name       string
	Args       []Param
	Rets       []Param
	IsAccessor bool
}

func NewKernel(name string) *Kernel {
	return &Kernel{Name: name}
}

func (k *Kernel) String() string {
	return fmt.Sprintf("kernel{%s, %d args, %d rets}", k.Name, len(k.Args), len(k.Rets))
}
