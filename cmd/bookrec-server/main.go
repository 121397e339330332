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
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorse-io/bookrec/base/log"
	"github.com/gorse-io/bookrec/cmd/version"
	"github.com/gorse-io/bookrec/config"
	"github.com/gorse-io/bookrec/logics"
	"github.com/gorse-io/bookrec/server"
	"github.com/gorse-io/bookrec/storage/blob"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var serverCommand = &cobra.Command{
	Use:   "bookrec-server",
	Short: "The RESTful API server of the book recommender.",
	Run: func(cmd *cobra.Command, args []string) {
		// show version
		if showVersion, _ := cmd.PersistentFlags().GetBool("version"); showVersion {
			fmt.Println(version.BuildInfo())
			return
		}
		// setup logger
		debug, _ := cmd.PersistentFlags().GetBool("debug")
		if err := log.SetLogger(cmd.PersistentFlags(), debug, log.Stdout); err != nil {
			log.Logger().Fatal("failed to setup logger", zap.Error(err))
		}
		// load config
		configPath, _ := cmd.PersistentFlags().GetString("config")
		log.Logger().Info("load config", zap.String("config", configPath))
		conf, err := config.LoadConfig(configPath)
		if err != nil {
			log.Logger().Fatal("failed to load config", zap.Error(err))
		}
		// load artifacts
		store, err := blob.Open(conf.Artifacts)
		if err != nil {
			log.Logger().Fatal("failed to open artifact storage", zap.Error(err))
		}
		artifacts, err := logics.LoadContext(store, conf.Artifacts)
		if err != nil {
			log.Logger().Fatal("failed to load artifacts", zap.Error(err))
		}
		recommender, err := logics.NewRecommender(artifacts, conf.Recommend)
		if err != nil {
			log.Logger().Fatal("failed to create recommender", zap.Error(err))
		}
		s := server.NewServer(recommender, conf)
		// stop server
		done := make(chan struct{})
		go func() {
			sigint := make(chan os.Signal, 1)
			signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
			<-sigint
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := s.Shutdown(ctx); err != nil {
				log.Logger().Error("failed to shutdown server", zap.Error(err))
			}
			close(done)
		}()
		// start server
		if err = s.Serve(); err != nil {
			log.Logger().Fatal("failed to start server", zap.Error(err))
		}
		<-done
		log.Logger().Info("stop bookrec-server successfully")
	},
}

func init() {
	log.AddFlags(serverCommand.PersistentFlags())
	serverCommand.PersistentFlags().BoolP("version", "v", false, "bookrec version")
	serverCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	serverCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
}

func main() {
	if err := serverCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
