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
	"sync/atomic"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/gorse-io/bookrec/base/log"
	"github.com/gorse-io/bookrec/config"
	"github.com/gorse-io/bookrec/logics"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const apiDocsPath = "/apidocs.json"

// Server manages the HTTP lifecycle of the REST-ful API.
type Server struct {
	RestServer
	container    *restful.Container
	httpServer   *http.Server
	cacheStarted atomic.Bool
}

// NewServer creates a server with the REST-ful API, the OpenAPI spec and metrics registered.
func NewServer(recommender *logics.Recommender, cfg *config.Config) *Server {
	s := &Server{RestServer: *NewRestServer(recommender, cfg)}
	s.CreateWebService()
	s.container = restful.NewContainer()
	s.container.Add(s.WebService)
	s.container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices: s.container.RegisteredWebServices(),
		APIPath:     apiDocsPath,
	}))
	s.container.Handle("/metrics", promhttp.Handler())
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: s.container,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.container
}

// Serve blocks until the server is shut down.
func (s *Server) Serve() error {
	if s.recommendCache != nil && s.cacheStarted.CompareAndSwap(false, true) {
		go s.recommendCache.Start()
	}
	log.Logger().Info("start http server",
		zap.String("url", fmt.Sprintf("http://%s", s.httpServer.Addr)),
		zap.Duration("cache_ttl", s.Config.Server.CacheTTL))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Trace(err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cacheStarted.CompareAndSwap(true, false) {
		s.recommendCache.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
