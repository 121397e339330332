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

package config

import (
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

const (
	StoragePOSIX = "posix"
	StorageS3    = "s3"
	StorageGCS   = "gcs"
	StorageAzure = "azure"
)

// Config is the configuration for the book recommender.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Recommend RecommendConfig `mapstructure:"recommend"`
}

// ServerConfig is the configuration of the HTTP server.
type ServerConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	CacheCapacity uint64        `mapstructure:"cache_capacity"`
}

// ArtifactsConfig locates the precomputed artifacts loaded at startup.
type ArtifactsConfig struct {
	Storage    string          `mapstructure:"storage" validate:"oneof=posix s3 gcs azure"`
	Dir        string          `mapstructure:"dir"`
	Catalog    string          `mapstructure:"catalog" validate:"required"`
	Similarity string          `mapstructure:"similarity" validate:"required"`
	History    string          `mapstructure:"history" validate:"required"`
	Model      string          `mapstructure:"model" validate:"required"`
	S3         S3Config        `mapstructure:"s3"`
	GCS        GCSConfig       `mapstructure:"gcs"`
	Azure      AzureBlobConfig `mapstructure:"azure"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type AzureBlobConfig struct {
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	ConnectionString string `mapstructure:"connection_string"`
	Endpoint         string `mapstructure:"endpoint"`
	Container        string `mapstructure:"container"`
	Prefix           string `mapstructure:"prefix"`
}

// RecommendConfig holds the result sizes and guards of the recommendation engine.
type RecommendConfig struct {
	NumRecommend    int     `mapstructure:"num_recommend" validate:"gt=0"`
	MaxRecommend    int     `mapstructure:"max_recommend" validate:"gtefield=NumRecommend"`
	NumHistory      int     `mapstructure:"num_history" validate:"gt=0"`
	NumPopular      int     `mapstructure:"num_popular" validate:"gt=0"`
	MinPopularVotes int     `mapstructure:"min_popular_votes" validate:"gte=0"`
	PopularFilter   string  `mapstructure:"popular_filter"`
	PredictJobs     int     `mapstructure:"predict_jobs" validate:"gt=0"`
	MaxCandidates   int     `mapstructure:"max_candidates" validate:"gte=0"`
	MaxFailureRatio float64 `mapstructure:"max_failure_ratio" validate:"gte=0,lte=1"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "127.0.0.1",
			Port:          8087,
			CacheTTL:      10 * time.Minute,
			CacheCapacity: 10000,
		},
		Artifacts: ArtifactsConfig{
			Storage:    StoragePOSIX,
			Dir:        "artifacts",
			Catalog:    "books.csv",
			Similarity: "similarity.bin",
			History:    "ratings.csv",
			Model:      "svd.bin",
		},
		Recommend: RecommendConfig{
			NumRecommend:    5,
			MaxRecommend:    100,
			NumHistory:      5,
			NumPopular:      50,
			MinPopularVotes: 0,
			PredictJobs:     1,
			MaxCandidates:   0,
			MaxFailureRatio: 0.5,
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [server]
	v.SetDefault("server.host", defaultConfig.Server.Host)
	v.SetDefault("server.port", defaultConfig.Server.Port)
	v.SetDefault("server.cache_ttl", defaultConfig.Server.CacheTTL)
	v.SetDefault("server.cache_capacity", defaultConfig.Server.CacheCapacity)
	// [artifacts]
	v.SetDefault("artifacts.storage", defaultConfig.Artifacts.Storage)
	v.SetDefault("artifacts.dir", defaultConfig.Artifacts.Dir)
	v.SetDefault("artifacts.catalog", defaultConfig.Artifacts.Catalog)
	v.SetDefault("artifacts.similarity", defaultConfig.Artifacts.Similarity)
	v.SetDefault("artifacts.history", defaultConfig.Artifacts.History)
	v.SetDefault("artifacts.model", defaultConfig.Artifacts.Model)
	// [artifacts.s3]
	v.SetDefault("artifacts.s3.endpoint", "")
	v.SetDefault("artifacts.s3.access_key_id", "")
	v.SetDefault("artifacts.s3.secret_access_key", "")
	v.SetDefault("artifacts.s3.bucket", "")
	v.SetDefault("artifacts.s3.prefix", "")
	v.SetDefault("artifacts.s3.use_ssl", false)
	// [artifacts.gcs]
	v.SetDefault("artifacts.gcs.bucket", "")
	v.SetDefault("artifacts.gcs.prefix", "")
	v.SetDefault("artifacts.gcs.credentials_file", "")
	// [artifacts.azure]
	v.SetDefault("artifacts.azure.account_name", "")
	v.SetDefault("artifacts.azure.account_key", "")
	v.SetDefault("artifacts.azure.connection_string", "")
	v.SetDefault("artifacts.azure.endpoint", "")
	v.SetDefault("artifacts.azure.container", "")
	v.SetDefault("artifacts.azure.prefix", "")
	// [recommend]
	v.SetDefault("recommend.num_recommend", defaultConfig.Recommend.NumRecommend)
	v.SetDefault("recommend.max_recommend", defaultConfig.Recommend.MaxRecommend)
	v.SetDefault("recommend.num_history", defaultConfig.Recommend.NumHistory)
	v.SetDefault("recommend.num_popular", defaultConfig.Recommend.NumPopular)
	v.SetDefault("recommend.min_popular_votes", defaultConfig.Recommend.MinPopularVotes)
	v.SetDefault("recommend.popular_filter", defaultConfig.Recommend.PopularFilter)
	v.SetDefault("recommend.predict_jobs", defaultConfig.Recommend.PredictJobs)
	v.SetDefault("recommend.max_candidates", defaultConfig.Recommend.MaxCandidates)
	v.SetDefault("recommend.max_failure_ratio", defaultConfig.Recommend.MaxFailureRatio)
}

// LoadConfig loads configuration from a toml file. Environment variables prefixed with
// BOOKREC_ override values from the file, e.g. BOOKREC_SERVER_PORT overrides server.port.
// An empty path loads defaults and environment variables only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	v.SetEnvPrefix("BOOKREC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Annotatef(err, "read config %s", path)
		}
	}
	var conf Config
	if err := v.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}
