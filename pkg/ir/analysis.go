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

// GatherStatements collects every statement under root matching pred.
func GatherStatements(root Stmt, pred func(Stmt) bool) []Stmt {
	var out []Stmt
	Walk(root, func(s Stmt) {
		if pred(s) {
			out = append(out, s)
		}
	})
	return out
}
