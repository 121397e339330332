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
	"io"
	"strconv"
	"strings"

	"github.com/gorse-io/bookrec/base"
	"github.com/juju/errors"
)

// Book stores descriptive metadata of a book. Title is the identity of a book.
type Book struct {
	Title      string  `json:"title"`
	Authors    string  `json:"authors"`
	CoverLink  string  `json:"cover_link"`
	NumRatings int     `json:"num_ratings"`
	AvgRating  float64 `json:"avg_rating"`
}

// Interaction is a historical rating given by a customer to a book.
type Interaction struct {
	UserId int     `json:"customer_id"`
	Title  string  `json:"book_title"`
	Rating float64 `json:"rating"`
}

// parseBook parses a row of title,authors,cover_link,num_ratings,avg_rating. Empty aggregates are zero.
func parseBook(fields []string) (Book, error) {
	book := Book{
		Title:     fields[0],
		Authors:   fields[1],
		CoverLink: fields[2],
	}
	var err error
	if s := strings.TrimSpace(fields[3]); s != "" {
		if book.NumRatings, err = strconv.Atoi(s); err != nil {
			// exported tables sometimes write counts as floats
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil {
				return Book{}, errors.NotValidf("num_ratings %q", fields[3])
			}
			book.NumRatings = int(f)
		}
	}
	if s := strings.TrimSpace(fields[4]); s != "" {
		if book.AvgRating, err = strconv.ParseFloat(s, 64); err != nil {
			return Book{}, errors.NotValidf("avg_rating %q", fields[4])
		}
	}
	return book, nil
}

// parseInteraction parses a row of customer_id,book_title,rating.
func parseInteraction(fields []string) (Interaction, error) {
	userId, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return Interaction{}, errors.NotValidf("customer_id %q", fields[0])
	}
	rating, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return Interaction{}, errors.NotValidf("rating %q", fields[2])
	}
	return Interaction{UserId: userId, Title: fields[1], Rating: rating}, nil
}

// LoadCatalog reads the catalog table (with header) from a CSV stream.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var books []Book
	err := base.ReadTable(r, ",", true, 5, func(fields []string) error {
		book, err := parseBook(fields)
		if err != nil {
			return err
		}
		books = append(books, book)
		return nil
	})
	if err != nil {
		return nil, errors.Annotate(err, "load catalog")
	}
	return NewCatalog(books), nil
}

// LoadHistory reads the interaction history table (with header) from a CSV stream.
func LoadHistory(r io.Reader) (*History, error) {
	var interactions []Interaction
	err := base.ReadTable(r, ",", true, 3, func(fields []string) error {
		interaction, err := parseInteraction(fields)
		if err != nil {
			return err
		}
		interactions = append(interactions, interaction)
		return nil
	})
	if err != nil {
		return nil, errors.Annotate(err, "load history")
	}
	return NewHistory(interactions), nil
}
