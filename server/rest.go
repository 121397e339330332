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
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/gorse-io/bookrec/base/log"
	"github.com/gorse-io/bookrec/config"
	"github.com/gorse-io/bookrec/logics"
	"github.com/gorse-io/bookrec/storage/data"
	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

type recommendKey struct {
	UserId int
	N      int
}

// RestServer implements a REST-ful API server.
type RestServer struct {
	Recommender *logics.Recommender
	Config      *config.Config
	WebService  *restful.WebService

	recommendCache *ttlcache.Cache[recommendKey, []logics.RecommendationItem]
}

// NewRestServer creates a REST-ful API server. Personalized recommendations are cached
// for server.cache_ttl unless it is zero.
func NewRestServer(recommender *logics.Recommender, cfg *config.Config) *RestServer {
	s := &RestServer{
		Recommender: recommender,
		Config:      cfg,
		WebService:  new(restful.WebService),
	}
	if cfg.Server.CacheTTL > 0 {
		s.recommendCache = ttlcache.New(
			ttlcache.WithTTL[recommendKey, []logics.RecommendationItem](cfg.Server.CacheTTL),
			ttlcache.WithCapacity[recommendKey, []logics.RecommendationItem](cfg.Server.CacheCapacity),
			ttlcache.WithDisableTouchOnHit[recommendKey, []logics.RecommendationItem](),
		)
	}
	return s
}

// RequestIdFilter tags the response with the X-Request-ID of the request, or a new one.
func RequestIdFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	requestId := req.HeaderParameter("X-Request-ID")
	if requestId == "" {
		requestId = uuid.NewString()
	}
	resp.Header().Set("X-Request-ID", requestId)
	chain.ProcessFilter(req, resp)
}

func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	start := time.Now()
	chain.ProcessFilter(req, resp)
	if req.Request.URL.Path != "/api/health" {
		log.ResponseLogger(resp).Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
			zap.Int("status_code", resp.StatusCode()),
			zap.Duration("duration", time.Since(start)))
	}
}

// UserRecommendation is the personalized page of a user.
type UserRecommendation struct {
	UserId          int                         `json:"user_id"`
	Recommendations []logics.RecommendationItem `json:"recommendations"`
	History         []logics.HistoryItem        `json:"history"`
}

type Health struct {
	Ready            bool `json:"ready"`
	Books            int  `json:"books"`
	SimilarityTitles int  `json:"similarity_titles"`
	Interactions     int  `json:"interactions"`
	Users            int  `json:"users"`
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/api/")
	ws.Filter(RequestIdFilter)
	ws.Filter(LogFilter)

	ws.Route(ws.GET("/health").To(s.getHealth).
		Doc("Get artifacts status.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Writes(Health{}))

	/* Books */

	ws.Route(ws.GET("/books/popular").To(s.getPopular).
		Doc("Get popular books.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"book"}).
		Param(ws.QueryParameter("n", "number of returned books").DataType("integer")).
		Writes([]data.Book{}))
	ws.Route(ws.GET("/books/similar").To(s.getSimilar).
		Doc("Get books similar to a book.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"book"}).
		Param(ws.QueryParameter("title", "exact title of the book").DataType("string").Required(true)).
		Writes([]logics.RecommendationItem{}).
		Returns(http.StatusOK, "OK", []logics.RecommendationItem{}).
		Returns(http.StatusBadRequest, "missing title", nil).
		Returns(http.StatusNotFound, "book not in the recommendation system", nil))

	/* Users */

	ws.Route(ws.GET("/users").To(s.getUsers).
		Doc("Get users with history.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"user"}).
		Writes([]int{}))
	ws.Route(ws.GET("/users/{user-id}/recommend").To(s.getRecommend).
		Doc("Get personalized recommendations and history of a user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommendation"}).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("integer")).
		Param(ws.QueryParameter("n", "number of returned recommendations").DataType("integer")).
		Writes(UserRecommendation{}).
		Returns(http.StatusOK, "OK", UserRecommendation{}).
		Returns(http.StatusBadRequest, "invalid user id", nil).
		Returns(http.StatusNotFound, "unknown user", nil).
		Returns(http.StatusInternalServerError, "recommendation failed", nil))
	ws.Route(ws.GET("/users/{user-id}/history").To(s.getHistory).
		Doc("Get books rated by a user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"user"}).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("integer")).
		Writes([]logics.HistoryItem{}))
}

// ParseInt parses integers from the query parameter.
func ParseInt(request *restful.Request, name string, fallback int) (value int, err error) {
	valueString := request.QueryParameter(name)
	value, err = strconv.Atoi(valueString)
	if err != nil && valueString == "" {
		value = fallback
		err = nil
	} else if err != nil {
		err = errors.NotValidf("%s %q", name, valueString)
	}
	return
}

func (s *RestServer) getHealth(_ *restful.Request, response *restful.Response) {
	artifacts := s.Recommender.Context()
	Ok(response, Health{
		Ready:            true,
		Books:            artifacts.Catalog.Count(),
		SimilarityTitles: artifacts.Similarity.Count(),
		Interactions:     artifacts.History.Count(),
		Users:            len(artifacts.History.Users()),
	})
}

func (s *RestServer) getPopular(request *restful.Request, response *restful.Response) {
	n, err := ParseInt(request, "n", s.Config.Recommend.NumPopular)
	if err != nil {
		Error(response, err)
		return
	}
	if n <= 0 {
		Error(response, errors.NotValidf("n %d", n))
		return
	}
	books, err := s.Recommender.PopularBooks(n)
	if err != nil {
		Error(response, err)
		return
	}
	Ok(response, books)
}

func (s *RestServer) getSimilar(request *restful.Request, response *restful.Response) {
	title := request.QueryParameter("title")
	if title == "" {
		Error(response, errors.NotValidf("empty title"))
		return
	}
	start := time.Now()
	items, err := s.Recommender.SimilarItems(title)
	SimilarItemsSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		Error(response, err)
		return
	}
	Ok(response, items)
}

func (s *RestServer) getUsers(_ *restful.Request, response *restful.Response) {
	Ok(response, s.Recommender.ListKnownUsers())
}

// Recommend returns personalized recommendations for a user, served from the cache if possible.
func (s *RestServer) Recommend(ctx context.Context, userId, n int) ([]logics.RecommendationItem, error) {
	key := recommendKey{UserId: userId, N: n}
	if s.recommendCache != nil {
		if item := s.recommendCache.Get(key); item != nil {
			RecommendCacheHitsTotal.Inc()
			return item.Value(), nil
		}
		RecommendCacheMissesTotal.Inc()
	}
	start := time.Now()
	items, err := s.Recommender.RecommendForUser(ctx, userId, n)
	RecommendForUserSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, errors.Trace(err)
	}
	if s.recommendCache != nil {
		s.recommendCache.Set(key, items, ttlcache.DefaultTTL)
	}
	return items, nil
}

func (s *RestServer) getRecommend(request *restful.Request, response *restful.Response) {
	userId, err := logics.ParseUserId(request.PathParameter("user-id"))
	if err != nil {
		Error(response, err)
		return
	}
	n, err := ParseInt(request, "n", s.Config.Recommend.NumRecommend)
	if err != nil {
		Error(response, err)
		return
	}
	if n <= 0 {
		Error(response, errors.NotValidf("n %d", n))
		return
	}
	if n > s.Config.Recommend.MaxRecommend {
		n = s.Config.Recommend.MaxRecommend
	}
	items, err := s.Recommend(request.Request.Context(), userId, n)
	if err != nil {
		Error(response, err)
		return
	}
	history, err := s.Recommender.UserHistory(userId)
	if err != nil {
		Error(response, err)
		return
	}
	Ok(response, UserRecommendation{
		UserId:          userId,
		Recommendations: items,
		History:         history,
	})
}

func (s *RestServer) getHistory(request *restful.Request, response *restful.Response) {
	userId, err := logics.ParseUserId(request.PathParameter("user-id"))
	if err != nil {
		Error(response, err)
		return
	}
	history, err := s.Recommender.UserHistory(userId)
	if err != nil {
		Error(response, err)
		return
	}
	Ok(response, history)
}

// Error writes an error response with the status code of its kind.
func Error(response *restful.Response, err error) {
	switch {
	case errors.Is(err, errors.NotValid):
		RequestErrorsTotal.WithLabelValues("invalid").Inc()
		BadRequest(response, err)
	case errors.Is(err, errors.NotFound), errors.Is(err, errors.UserNotFound):
		RequestErrorsTotal.WithLabelValues("not_found").Inc()
		PageNotFound(response, err)
	default:
		RequestErrorsTotal.WithLabelValues("internal").Inc()
		InternalServerError(response, err)
	}
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Warn("bad request", zap.Error(err))
	if err = response.WriteError(http.StatusBadRequest, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// InternalServerError returns a internal server error.
func InternalServerError(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("internal server error", zap.Error(err))
	if err = response.WriteError(http.StatusInternalServerError, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// PageNotFound returns a not found error.
func PageNotFound(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteError(http.StatusNotFound, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content interface{}) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteAsJson(content); err != nil {
		log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
	}
}
