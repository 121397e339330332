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
package data

import (
	"sort"

	"github.com/gorse-io/bookrec/dataset"
	"github.com/samber/lo"
)

// History is the read-only store of historical interactions.
type History struct {
	interactions []Interaction
	byUser       map[int][]Interaction
	users        []int
	titles       *dataset.Dict
}

func NewHistory(interactions []Interaction) *History {
	h := &History{
		interactions: interactions,
		byUser:       make(map[int][]Interaction),
		titles:       dataset.NewDict(),
	}
	for _, interaction := range interactions {
		h.byUser[interaction.UserId] = append(h.byUser[interaction.UserId], interaction)
		h.titles.Add(interaction.Title)
	}
	h.users = lo.Keys(h.byUser)
	sort.Ints(h.users)
	return h
}

// HasUser returns true if the user has at least one interaction.
func (h *History) HasUser(userId int) bool {
	_, ok := h.byUser[userId]
	return ok
}

// UserInteractions returns interactions of a user in load order. The result must not be modified.
func (h *History) UserInteractions(userId int) []Interaction {
	return h.byUser[userId]
}

// Users returns distinct user ids in ascending order. The result must not be modified.
func (h *History) Users() []int {
	return h.users
}

// Titles returns distinct rated titles in order of first appearance. The result must not be modified.
func (h *History) Titles() []string {
	return h.titles.Strings()
}

func (h *History) Count() int {
	return len(h.interactions)
}
