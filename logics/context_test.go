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
package logics

import (
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorse-io/bookrec/config"
	"github.com/gorse-io/bookrec/model/mf"
	"github.com/gorse-io/bookrec/storage/blob"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

const (
	testCatalog = "title,authors,cover_link,num_ratings,avg_rating\n" +
		"X,Author X,http://img/x.jpg,2,3\n" +
		"Y,Author Y,http://img/y.jpg,2,3\n" +
		"Z,Author Z,http://img/z.jpg,1,2\n" +
		"W,Author W,http://img/w.jpg,1,2\n"
	testSimilarity = "title,X,Y,Z,W\n" +
		"X,1,0.5,0.25,0\n" +
		"Y,0.5,1,0,0\n" +
		"Z,0.25,0,1,0\n" +
		"W,0,0,0,1\n"
	testHistory = "customer_id,book_title,rating\n" +
		"42,X,5\n" +
		"42,Y,3\n" +
		"7,Z,4\n" +
		"7,W,2\n"
)

func writeTestArtifacts(t *testing.T, dir string) config.ArtifactsConfig {
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "books.csv"), []byte(testCatalog), 0644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "similarity.csv"), []byte(testSimilarity), 0644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "ratings.csv"), []byte(testHistory), 0644))
	model := mf.NewSVD(mf.Params{Factors: 1, Biased: true, GlobalMean: 3, MinRating: 1, MaxRating: 5})
	assert.NoError(t, model.AddUser(42, 0, []float32{1}))
	assert.NoError(t, model.AddUser(7, 0, []float32{1}))
	assert.NoError(t, model.AddItem("Z", 0.5, []float32{1}))
	assert.NoError(t, model.AddItem("W", 0, []float32{0}))
	f, err := os.Create(filepath.Join(dir, "svd.bin"))
	assert.NoError(t, err)
	assert.NoError(t, model.Marshal(f))
	assert.NoError(t, f.Close())

	cfg := config.GetDefaultConfig().Artifacts
	cfg.Dir = dir
	cfg.Similarity = "similarity.csv"
	return cfg
}

func TestLoadContext(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestArtifacts(t, dir)
	var hooked []string
	artifacts, err := LoadContext(blob.NewPOSIX(dir), cfg, WithReaderHook(func(name string, r io.Reader) io.Reader {
		hooked = append(hooked, name)
		return r
	}))
	assert.NoError(t, err)
	assert.Equal(t, []string{"books.csv", "similarity.csv", "ratings.csv", "svd.bin"}, hooked)
	assert.Equal(t, 4, artifacts.Catalog.Count())
	assert.Equal(t, []string{"X", "Y", "Z", "W"}, artifacts.Similarity.Axis())
	assert.Equal(t, []int{7, 42}, artifacts.History.Users())

	recommender, err := NewRecommender(artifacts, config.GetDefaultConfig().Recommend)
	assert.NoError(t, err)
	items, err := recommender.RecommendForUser(context.Background(), 42, 5)
	assert.NoError(t, err)
	assert.Equal(t, []RecommendationItem{
		{Title: "Z", Authors: "Author Z", CoverLink: "http://img/z.jpg", Score: 4.5},
		{Title: "W", Authors: "Author W", CoverLink: "http://img/w.jpg", Score: 3},
	}, items)
	items, err = recommender.SimilarItems("X")
	assert.NoError(t, err)
	assert.Equal(t, []string{"Y", "Z", "W"}, []string{items[0].Title, items[1].Title, items[2].Title})
}

func TestLoadContextBinarySimilarity(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestArtifacts(t, dir)
	csvContext, err := LoadContext(blob.NewPOSIX(dir), cfg)
	assert.NoError(t, err)
	f, err := os.Create(filepath.Join(dir, "similarity.bin"))
	assert.NoError(t, err)
	assert.NoError(t, csvContext.Similarity.Marshal(f))
	assert.NoError(t, f.Close())

	cfg.Similarity = "similarity.bin"
	artifacts, err := LoadContext(blob.NewPOSIX(dir), cfg)
	assert.NoError(t, err)
	assert.Equal(t, csvContext.Similarity.Axis(), artifacts.Similarity.Axis())
	assert.Equal(t, csvContext.Similarity.Row(0), artifacts.Similarity.Row(0))
}

func TestLoadContextSQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestArtifacts(t, dir)
	path := filepath.Join(dir, "ratings.db")
	db, err := sql.Open("sqlite", path)
	assert.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE ratings (customer_id INTEGER, book_title TEXT, rating REAL)`)
	assert.NoError(t, err)
	_, err = db.Exec(`INSERT INTO ratings VALUES (1, 'X', 5), (2, 'Y', 4)`)
	assert.NoError(t, err)
	assert.NoError(t, db.Close())

	cfg.History = "sqlite://" + path
	artifacts, err := LoadContext(blob.NewPOSIX(dir), cfg)
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2}, artifacts.History.Users())
}

func TestLoadContextMissing(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestArtifacts(t, dir)
	assert.NoError(t, os.Remove(filepath.Join(dir, "svd.bin")))
	_, err := LoadContext(blob.NewPOSIX(dir), cfg)
	assert.True(t, errors.Is(err, errors.NotFound))

	cfg = writeTestArtifacts(t, dir)
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "books.csv"), []byte("title\nX\n"), 0644))
	_, err = LoadContext(blob.NewPOSIX(dir), cfg)
	assert.True(t, errors.Is(err, errors.NotValid))
}
