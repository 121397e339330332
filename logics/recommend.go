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
	"math"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/gorse-io/bookrec/base/log"
	"github.com/gorse-io/bookrec/common/parallel"
	"github.com/gorse-io/bookrec/config"
	"github.com/gorse-io/bookrec/storage/data"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// NumSimilar is the number of books returned by SimilarItems.
const NumSimilar = 4

// RecommendationItem is a recommended book. Score is a similarity or a predicted rating.
type RecommendationItem struct {
	Title     string  `json:"title"`
	Authors   string  `json:"authors"`
	CoverLink string  `json:"cover_link"`
	Score     float64 `json:"score"`
}

// HistoryItem is a book rated by a user.
type HistoryItem struct {
	Title  string  `json:"title"`
	Rating float64 `json:"rating"`
}

type Recommender struct {
	artifacts     *Context
	cfg           config.RecommendConfig
	popularFilter *vm.Program
}

func NewRecommender(artifacts *Context, cfg config.RecommendConfig) (*Recommender, error) {
	r := &Recommender{artifacts: artifacts, cfg: cfg}
	if cfg.PopularFilter != "" {
		program, err := expr.Compile(cfg.PopularFilter, expr.Env(map[string]any{
			"book": data.Book{},
		}), expr.AsBool())
		if err != nil {
			return nil, errors.NewNotValid(err, "popular filter")
		}
		r.popularFilter = program
	}
	return r, nil
}

func (r *Recommender) Context() *Context {
	return r.artifacts
}

func (r *Recommender) Config() config.RecommendConfig {
	return r.cfg
}

// recoverFailure converts a panic into a recommendation failure.
func recoverFailure(err *error, what string) {
	if p := recover(); p != nil {
		log.Logger().Error("recommendation panicked", zap.String("procedure", what), zap.Any("panic", p))
		*err = newRecommendationFailed("%s: %v", what, p)
	}
}

// SimilarItems returns books similar to a book. Positions on the similarity axis are ranked by
// similarity to the query title (ties keep axis order) and the query title itself is excluded.
// Books missing from the catalog are skipped, so fewer than NumSimilar books may be returned.
func (r *Recommender) SimilarItems(title string) (items []RecommendationItem, err error) {
	defer recoverFailure(&err, "similar items")
	similarity := r.artifacts.Similarity
	i := similarity.Position(title)
	if i < 0 {
		return nil, errors.NotFoundf("book %q", title)
	}
	axis := similarity.Axis()
	row := similarity.Row(i)
	positions := make([]int, 0, len(axis))
	for j := range axis {
		if axis[j] != title {
			positions = append(positions, j)
		}
	}
	sort.SliceStable(positions, func(a, b int) bool {
		return row[positions[a]] > row[positions[b]]
	})
	items = make([]RecommendationItem, 0, NumSimilar)
	for _, j := range lo.Slice(positions, 0, NumSimilar) {
		book, ok := r.artifacts.Catalog.Get(axis[j])
		if !ok {
			log.Logger().Warn("similar book missing from catalog", zap.String("title", axis[j]))
			continue
		}
		items = append(items, RecommendationItem{
			Title:     book.Title,
			Authors:   book.Authors,
			CoverLink: book.CoverLink,
			Score:     row[j],
		})
	}
	log.Logger().Debug("similar items", zap.String("title", title), zap.Int("n", len(items)))
	return items, nil
}

// RecommendForUser returns at most n unrated books with the highest predicted ratings. Candidates
// are the rated titles of the history in order of first appearance, which also breaks ties.
// Candidates failing prediction are skipped unless they exceed the failure ratio. Books missing
// from the catalog are skipped without backfilling.
func (r *Recommender) RecommendForUser(ctx context.Context, userId, n int) (items []RecommendationItem, err error) {
	defer recoverFailure(&err, "recommend for user")
	history := r.artifacts.History
	if !history.HasUser(userId) {
		return nil, errors.UserNotFoundf("user %d", userId)
	}
	if n <= 0 {
		return []RecommendationItem{}, nil
	}
	// exclude rated books
	rated := mapset.NewThreadUnsafeSet[string]()
	for _, interaction := range history.UserInteractions(userId) {
		rated.Add(interaction.Title)
	}
	candidates := lo.Filter(history.Titles(), func(title string, _ int) bool {
		return !rated.Contains(title)
	})
	if r.cfg.MaxCandidates > 0 && len(candidates) > r.cfg.MaxCandidates {
		log.Logger().Debug("truncate candidates", zap.Int("user_id", userId),
			zap.Int("n_candidates", len(candidates)), zap.Int("max_candidates", r.cfg.MaxCandidates))
		candidates = candidates[:r.cfg.MaxCandidates]
	}
	if len(candidates) == 0 {
		return []RecommendationItem{}, nil
	}

	// predict ratings
	scores := make([]float64, len(candidates))
	failed := make([]bool, len(candidates))
	err = parallel.Parallel(ctx, len(candidates), r.cfg.PredictJobs, func(_, jobId int) error {
		score, err := r.artifacts.Predictor.Predict(userId, candidates[jobId])
		if err == nil && (math.IsNaN(score) || math.IsInf(score, 0)) {
			err = errors.NotValidf("estimate %v", score)
		}
		if err != nil {
			log.Logger().Warn("failed to predict rating", zap.Int("user_id", userId),
				zap.String("title", candidates[jobId]), zap.Error(err))
			failed[jobId] = true
			return nil
		}
		scores[jobId] = score
		return nil
	})
	if err != nil {
		if errors.Is(err, parallel.ErrPanic) {
			return nil, newRecommendationFailed("predict ratings for user %d: %v", userId, err)
		}
		return nil, errors.Trace(err)
	}
	numFailed := lo.Count(failed, true)
	if numFailed > 0 && float64(numFailed) > r.cfg.MaxFailureRatio*float64(len(candidates)) {
		return nil, newRecommendationFailed("%d of %d predictions failed for user %d",
			numFailed, len(candidates), userId)
	}

	// rank candidates
	positions := make([]int, 0, len(candidates)-numFailed)
	for i := range candidates {
		if !failed[i] {
			positions = append(positions, i)
		}
	}
	sort.SliceStable(positions, func(a, b int) bool {
		return scores[positions[a]] > scores[positions[b]]
	})
	items = make([]RecommendationItem, 0, n)
	for _, i := range lo.Slice(positions, 0, n) {
		book, ok := r.artifacts.Catalog.Get(candidates[i])
		if !ok {
			log.Logger().Warn("recommended book missing from catalog", zap.String("title", candidates[i]))
			continue
		}
		items = append(items, RecommendationItem{
			Title:     book.Title,
			Authors:   book.Authors,
			CoverLink: book.CoverLink,
			Score:     math.RoundToEven(scores[i]*100) / 100,
		})
	}
	log.Logger().Debug("recommend for user", zap.Int("user_id", userId),
		zap.Int("n_candidates", len(candidates)), zap.Int("n", len(items)))
	return items, nil
}

// UserHistory returns the books rated by a user with the highest ratings first.
func (r *Recommender) UserHistory(userId int) ([]HistoryItem, error) {
	history := r.artifacts.History
	if !history.HasUser(userId) {
		return nil, errors.UserNotFoundf("user %d", userId)
	}
	items := lo.Map(history.UserInteractions(userId), func(interaction data.Interaction, _ int) HistoryItem {
		return HistoryItem{Title: interaction.Title, Rating: interaction.Rating}
	})
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Rating > items[j].Rating
	})
	return lo.Slice(items, 0, r.cfg.NumHistory), nil
}

// ListKnownUsers returns ids of users with history in ascending order.
func (r *Recommender) ListKnownUsers() []int {
	users := r.artifacts.History.Users()
	copied := make([]int, len(users))
	copy(copied, users)
	return copied
}

// PopularBooks returns books with the most ratings. Ties are broken by average rating and then
// by catalog order. n <= 0 selects the configured number of popular books.
func (r *Recommender) PopularBooks(n int) ([]data.Book, error) {
	if n <= 0 {
		n = r.cfg.NumPopular
	}
	books := make([]data.Book, 0)
	for _, book := range r.artifacts.Catalog.Books() {
		if book.NumRatings < r.cfg.MinPopularVotes {
			continue
		}
		if r.popularFilter != nil {
			result, err := expr.Run(r.popularFilter, map[string]any{"book": book})
			if err != nil {
				return nil, errors.Annotatef(err, "evaluate popular filter on %q", book.Title)
			}
			if !result.(bool) {
				continue
			}
		}
		books = append(books, book)
	}
	sort.SliceStable(books, func(i, j int) bool {
		if books[i].NumRatings != books[j].NumRatings {
			return books[i].NumRatings > books[j].NumRatings
		}
		return books[i].AvgRating > books[j].AvgRating
	})
	return lo.Slice(books, 0, n), nil
}
