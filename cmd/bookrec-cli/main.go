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
	"fmt"
	"io"

	"github.com/gorse-io/bookrec/base/log"
	"github.com/gorse-io/bookrec/cmd/version"
	"github.com/gorse-io/bookrec/config"
	"github.com/gorse-io/bookrec/logics"
	"github.com/gorse-io/bookrec/storage/blob"
	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cliCommand = &cobra.Command{
	Use:           "bookrec-cli",
	Short:         "Query the book recommender from the command line.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		if !debug && !cmd.Flags().Changed("log-level") && !cmd.Flags().Changed("log-path") {
			log.CloseLogger()
			return nil
		}
		return log.SetLogger(cmd.Flags(), debug, log.Stderr)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.BuildInfo())
			return err
		}
		return cmd.Help()
	},
}

func init() {
	log.AddFlags(cliCommand.PersistentFlags())
	cliCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	cliCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	cliCommand.PersistentFlags().Bool("progress", true, "show progress while loading artifacts")
	cliCommand.Flags().BoolP("version", "v", false, "bookrec version")
}

// loadRecommender loads the configuration and artifacts named by the flags of cmd.
func loadRecommender(cmd *cobra.Command) (*logics.Recommender, error) {
	configPath, _ := cmd.Flags().GetString("config")
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	store, err := blob.Open(conf.Artifacts)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var opts []logics.LoadOption
	if showProgress, _ := cmd.Flags().GetBool("progress"); showProgress {
		opts = append(opts, logics.WithReaderHook(func(name string, r io.Reader) io.Reader {
			bar := progressbar.NewOptions64(-1,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription("Loading "+name),
				progressbar.OptionShowBytes(true),
				progressbar.OptionClearOnFinish(),
			)
			pbReader := progressbar.NewReader(r, bar)
			return &pbReader
		}))
	}
	artifacts, err := logics.LoadContext(store, conf.Artifacts, opts...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return logics.NewRecommender(artifacts, conf.Recommend)
}

// describe turns engine errors into messages for humans.
func describe(err error) error {
	switch {
	case errors.Is(err, errors.NotFound):
		return fmt.Errorf("not in the recommendation system: %v", err)
	case errors.Is(err, errors.UserNotFound):
		return fmt.Errorf("no history in the recommendation system: %v", err)
	case errors.Is(err, errors.NotValid):
		return fmt.Errorf("invalid input: %v", err)
	case errors.Is(err, logics.ErrRecommendationFailed):
		return fmt.Errorf("failed to recommend: %v", err)
	}
	return err
}

func main() {
	if err := cliCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(describe(err)))
	}
}
