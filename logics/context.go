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
	"bufio"
	"io"
	"strings"

	"github.com/gorse-io/bookrec/base/log"
	"github.com/gorse-io/bookrec/config"
	"github.com/gorse-io/bookrec/model/mf"
	"github.com/gorse-io/bookrec/storage/blob"
	"github.com/gorse-io/bookrec/storage/data"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Predictor estimates the rating given by a user to a book.
type Predictor interface {
	Predict(userId int, title string) (float64, error)
}

// Context holds the artifacts consulted by the recommender. It is immutable after
// construction and safe for concurrent reads.
type Context struct {
	Catalog    *data.Catalog
	Similarity *data.SimilarityIndex
	History    *data.History
	Predictor  Predictor
}

func NewContext(catalog *data.Catalog, similarity *data.SimilarityIndex, history *data.History, predictor Predictor) *Context {
	return &Context{
		Catalog:    catalog,
		Similarity: similarity,
		History:    history,
		Predictor:  predictor,
	}
}

type loadOptions struct {
	readerHook func(name string, r io.Reader) io.Reader
}

type LoadOption func(*loadOptions)

// WithReaderHook wraps every artifact stream before it is decoded, e.g. to report progress.
func WithReaderHook(hook func(name string, r io.Reader) io.Reader) LoadOption {
	return func(o *loadOptions) {
		o.readerHook = hook
	}
}

// LoadContext loads all artifacts from a blob store.
func LoadContext(store blob.Store, cfg config.ArtifactsConfig, opts ...LoadOption) (*Context, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	open := func(name string, load func(r io.Reader) error) error {
		rc, err := store.Open(name)
		if err != nil {
			return errors.Trace(err)
		}
		defer rc.Close()
		var r io.Reader = rc
		if o.readerHook != nil {
			r = o.readerHook(name, r)
		}
		return load(bufio.NewReader(r))
	}

	var (
		artifacts Context
		err       error
	)
	// load catalog
	if err = open(cfg.Catalog, func(r io.Reader) error {
		artifacts.Catalog, err = data.LoadCatalog(r)
		return err
	}); err != nil {
		return nil, errors.Annotatef(err, "load catalog %s", cfg.Catalog)
	}
	// load similarity index
	if err = open(cfg.Similarity, func(r io.Reader) error {
		if strings.HasSuffix(strings.ToLower(cfg.Similarity), ".csv") {
			artifacts.Similarity, err = data.LoadSimilarityCSV(r)
		} else {
			artifacts.Similarity, err = data.UnmarshalSimilarityIndex(r)
		}
		return err
	}); err != nil {
		return nil, errors.Annotatef(err, "load similarity index %s", cfg.Similarity)
	}
	// load interaction history
	if data.IsSQLite(cfg.History) {
		artifacts.History, err = data.LoadHistorySQLite(cfg.History)
	} else {
		err = open(cfg.History, func(r io.Reader) error {
			artifacts.History, err = data.LoadHistory(r)
			return err
		})
	}
	if err != nil {
		return nil, errors.Annotatef(err, "load history %s", cfg.History)
	}
	// load model
	var model *mf.SVD
	if err = open(cfg.Model, func(r io.Reader) error {
		model, err = mf.Unmarshal(r)
		return err
	}); err != nil {
		return nil, errors.Annotatef(err, "load model %s", cfg.Model)
	}
	artifacts.Predictor = model

	log.Logger().Info("load artifacts complete",
		zap.Int("n_books", artifacts.Catalog.Count()),
		zap.Int("n_similarity_titles", artifacts.Similarity.Count()),
		zap.Int("n_interactions", artifacts.History.Count()),
		zap.Int("n_users", len(artifacts.History.Users())),
		zap.Int("n_model_users", model.UserCount()),
		zap.Int("n_model_items", model.ItemCount()))
	return &artifacts, nil
}
