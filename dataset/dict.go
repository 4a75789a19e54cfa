// Copyright 2024 recsys Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

// Dict is a bidirectional mapping between string identifiers and dense
// indices. Indices are assigned in insertion order, one per unique id.
type Dict struct {
	si map[string]int
	is []string
}

func NewDict() *Dict {
	return &Dict{si: map[string]int{}}
}

func (d *Dict) Count() int {
	return len(d.is)
}

// Add inserts an id and returns its index. Existing ids keep their index.
func (d *Dict) Add(s string) int {
	if i, ok := d.si[s]; ok {
		return i
	}
	i := len(d.is)
	d.si[s] = i
	d.is = append(d.is, s)
	return i
}

// Id returns the index of an id.
func (d *Dict) Id(s string) (int, bool) {
	i, ok := d.si[s]
	return i, ok
}

// String returns the id at an index.
func (d *Dict) String(i int) (string, bool) {
	if i < 0 || i >= len(d.is) {
		return "", false
	}
	return d.is[i], true
}

// Strings returns all ids in index order. The returned slice must not be
// modified.
func (d *Dict) Strings() []string {
	return d.is
}
