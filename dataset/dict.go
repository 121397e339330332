// Copyright 2026 gorse Project Authors
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

// Dict maps strings to dense indices in insertion order. Adding a string twice keeps the
// index of its first occurrence and increases its frequency.
type Dict struct {
	si  map[string]int
	is  []string
	cnt []int
}

func NewDict() (d *Dict) {
	d = &Dict{map[string]int{}, []string{}, []int{}}
	return
}

func (d *Dict) Count() int {
	return len(d.is)
}

// Add inserts s and returns its index.
func (d *Dict) Add(s string) (y int) {
	if y, ok := d.si[s]; ok {
		d.cnt[y]++
		return y
	}

	y = len(d.is)
	d.si[s] = y
	d.is = append(d.is, s)
	d.cnt = append(d.cnt, 1)
	return
}

// Id returns the index of s, or -1 if s has never been added.
func (d *Dict) Id(s string) int {
	if y, ok := d.si[s]; ok {
		return y
	}
	return -1
}

func (d *Dict) String(id int) (s string, ok bool) {
	if id < 0 || id >= len(d.is) {
		return "", false
	}
	return d.is[id], true
}

// Freq returns how many times the string at id has been added.
func (d *Dict) Freq(id int) int {
	if id < 0 || id >= len(d.cnt) {
		return 0
	}
	return d.cnt[id]
}

// Strings returns all strings in insertion order. The result must not be modified.
func (d *Dict) Strings() []string {
	return d.is
}
