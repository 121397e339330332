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
	"bytes"
	"database/sql"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorse-io/bookrec/base/encoding"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

func TestLoadCatalog(t *testing.T) {
	text := "title,authors,cover_link,num_ratings,avg_rating\n" +
		"Dune,Frank Herbert,http://img/dune.jpg,120,4.25\n" +
		"\"Cosmos, Revised\",Carl Sagan,http://img/cosmos.jpg,80.0,\n" +
		"Dune,Someone Else,http://img/dune2.jpg,1,1\n"
	catalog, err := LoadCatalog(strings.NewReader(text))
	assert.NoError(t, err)
	assert.Equal(t, 2, catalog.Count())
	assert.Equal(t, []Book{
		{Title: "Dune", Authors: "Frank Herbert", CoverLink: "http://img/dune.jpg", NumRatings: 120, AvgRating: 4.25},
		{Title: "Cosmos, Revised", Authors: "Carl Sagan", CoverLink: "http://img/cosmos.jpg", NumRatings: 80},
	}, catalog.Books())

	// duplicates are collapsed into the first row
	book, ok := catalog.Get("Dune")
	assert.True(t, ok)
	assert.Equal(t, "Frank Herbert", book.Authors)
	// lookups are case-sensitive
	_, ok = catalog.Get("dune")
	assert.False(t, ok)
}

func TestLoadCatalogInvalid(t *testing.T) {
	_, err := LoadCatalog(strings.NewReader("title,authors,cover_link,num_ratings,avg_rating\nDune,Frank Herbert,x,many,4\n"))
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = LoadCatalog(strings.NewReader("title,authors,cover_link,num_ratings,avg_rating\nDune,Frank Herbert,x,1,high\n"))
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = LoadCatalog(strings.NewReader("title,authors,cover_link,num_ratings,avg_rating\nDune,Frank Herbert\n"))
	assert.True(t, errors.Is(err, errors.NotValid))
	// unterminated quote
	_, err = LoadCatalog(strings.NewReader("title,authors,cover_link,num_ratings,avg_rating\n" +
		"A,x,y,1,1\n\"B,x,y,1,1\nC,x,y,1,1\n"))
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestLoadHistory(t *testing.T) {
	text := "customer_id,book_title,rating\n" +
		"42,X,5\n" +
		"7,Z,3.5\n" +
		"42,Y,4\n" +
		"7,X,2\n"
	history, err := LoadHistory(strings.NewReader(text))
	assert.NoError(t, err)
	assert.Equal(t, 4, history.Count())
	assert.Equal(t, []int{7, 42}, history.Users())
	assert.Equal(t, []string{"X", "Z", "Y"}, history.Titles())
	assert.True(t, history.HasUser(42))
	assert.False(t, history.HasUser(999))
	assert.Equal(t, []Interaction{
		{UserId: 42, Title: "X", Rating: 5},
		{UserId: 42, Title: "Y", Rating: 4},
	}, history.UserInteractions(42))
	assert.Empty(t, history.UserInteractions(999))

	_, err = LoadHistory(strings.NewReader("customer_id,book_title,rating\nabc,X,5\n"))
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = LoadHistory(strings.NewReader("customer_id,book_title,rating\n1,X,good\n"))
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestLoadHistorySQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratings.db")
	db, err := sql.Open("sqlite", path)
	assert.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE ratings (customer_id INTEGER, book_title TEXT, rating REAL)`)
	assert.NoError(t, err)
	_, err = db.Exec(`INSERT INTO ratings VALUES (42, 'X', 5), (7, 'Z', 3.5), (42, 'Y', 4)`)
	assert.NoError(t, err)
	assert.NoError(t, db.Close())

	assert.True(t, IsSQLite(SQLitePrefix+path))
	assert.False(t, IsSQLite("ratings.csv"))
	history, err := LoadHistorySQLite(SQLitePrefix + path)
	assert.NoError(t, err)
	assert.Equal(t, 3, history.Count())
	assert.Equal(t, []int{7, 42}, history.Users())
	assert.Equal(t, []string{"X", "Z", "Y"}, history.Titles())

	// missing table
	_, err = LoadHistorySQLite(filepath.Join(t.TempDir(), "empty.db"))
	assert.Error(t, err)
}

type SimilarityTestSuite struct {
	suite.Suite
	index *SimilarityIndex
}

func (suite *SimilarityTestSuite) SetupTest() {
	var err error
	suite.index, err = NewSimilarityIndex([]string{"A", "B", "C"}, [][]float64{
		{1, 0.9, 0.2},
		{0.9, 1, 0.3},
		{0.2, 0.3, 1},
	})
	suite.NoError(err)
}

func (suite *SimilarityTestSuite) TestPosition() {
	suite.Equal(0, suite.index.Position("A"))
	suite.Equal(2, suite.index.Position("C"))
	suite.Equal(-1, suite.index.Position("a"))
	suite.Equal([]float64{0.9, 1, 0.3}, suite.index.Row(1))
	suite.Equal(3, suite.index.Count())
}

func (suite *SimilarityTestSuite) TestMarshal() {
	buf := bytes.NewBuffer(nil)
	suite.NoError(suite.index.Marshal(buf))
	index, err := UnmarshalSimilarityIndex(buf)
	suite.NoError(err)
	suite.Equal(suite.index.Axis(), index.Axis())
	for i := range suite.index.Axis() {
		suite.Equal(suite.index.Row(i), index.Row(i))
	}

	// bad header
	buf = bytes.NewBuffer(nil)
	suite.NoError(suite.index.Marshal(buf))
	data := buf.Bytes()
	data[4] = 'X'
	_, err = UnmarshalSimilarityIndex(bytes.NewReader(data))
	suite.True(errors.Is(err, errors.NotValid))

	// truncated
	buf = bytes.NewBuffer(nil)
	suite.NoError(suite.index.Marshal(buf))
	_, err = UnmarshalSimilarityIndex(bytes.NewReader(buf.Bytes()[:buf.Len()-8]))
	suite.Error(err)

	// huge axis
	for _, n := range []int64{1 << 62, 1 << 20, -1} {
		buf = bytes.NewBuffer(nil)
		suite.NoError(encoding.WriteString(buf, similarityMagic))
		suite.NoError(binary.Write(buf, binary.LittleEndian, n))
		_, err = UnmarshalSimilarityIndex(buf)
		suite.True(errors.Is(err, errors.NotValid), n)
	}
}

func (suite *SimilarityTestSuite) TestLoadCSV() {
	var builder strings.Builder
	builder.WriteString("title")
	for _, title := range suite.index.Axis() {
		builder.WriteString("," + title)
	}
	builder.WriteString("\n")
	for i, title := range suite.index.Axis() {
		builder.WriteString(title)
		for _, score := range suite.index.Row(i) {
			builder.WriteString(fmt.Sprintf(",%v", score))
		}
		builder.WriteString("\n")
	}
	index, err := LoadSimilarityCSV(strings.NewReader(builder.String()))
	suite.NoError(err)
	suite.Equal(suite.index.Axis(), index.Axis())
	suite.Equal(suite.index.Row(2), index.Row(2))

	// row out of order
	_, err = LoadSimilarityCSV(strings.NewReader("title,A,B\nB,0,1\nA,1,0\n"))
	suite.True(errors.Is(err, errors.NotValid))
	// missing rows
	_, err = LoadSimilarityCSV(strings.NewReader("title,A,B\nA,1,0\n"))
	suite.True(errors.Is(err, errors.NotValid))
	// bad value
	_, err = LoadSimilarityCSV(strings.NewReader("title,A\nA,high\n"))
	suite.True(errors.Is(err, errors.NotValid))
}

func (suite *SimilarityTestSuite) TestNotSquare() {
	_, err := NewSimilarityIndex([]string{"A", "B"}, [][]float64{{1, 0}})
	suite.True(errors.Is(err, errors.NotValid))
	_, err = NewSimilarityIndex([]string{"A", "B"}, [][]float64{{1, 0}, {0}})
	suite.True(errors.Is(err, errors.NotValid))
}

func (suite *SimilarityTestSuite) TestDuplicateAxis() {
	index, err := NewSimilarityIndex([]string{"A", "B", "A"}, [][]float64{{1, 0, 1}, {0, 1, 0}, {1, 0, 1}})
	suite.NoError(err)
	suite.Equal(0, index.Position("A"))
	suite.Equal(3, index.Count())
}

func TestSimilarity(t *testing.T) {
	suite.Run(t, new(SimilarityTestSuite))
}
