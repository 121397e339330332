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
	"github.com/gorse-io/bookrec/base/log"
	"go.uber.org/zap"
)

// Catalog is the read-only mapping from titles to book metadata.
type Catalog struct {
	books []Book
	index map[string]int
}

// NewCatalog creates a catalog. Books sharing a title are collapsed into the first one.
func NewCatalog(books []Book) *Catalog {
	c := &Catalog{
		books: make([]Book, 0, len(books)),
		index: make(map[string]int, len(books)),
	}
	duplicates := 0
	for _, book := range books {
		if _, exist := c.index[book.Title]; exist {
			duplicates++
			continue
		}
		c.index[book.Title] = len(c.books)
		c.books = append(c.books, book)
	}
	if duplicates > 0 {
		log.Logger().Warn("duplicate titles in catalog are collapsed", zap.Int("duplicates", duplicates))
	}
	return c
}

// Get returns the book with the given title.
func (c *Catalog) Get(title string) (Book, bool) {
	if i, ok := c.index[title]; ok {
		return c.books[i], true
	}
	return Book{}, false
}

// Books returns all books in load order. The result must not be modified.
func (c *Catalog) Books() []Book {
	return c.books
}

func (c *Catalog) Count() int {
	return len(c.books)
}
