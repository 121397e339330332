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

package blob

import (
	"io"

	"github.com/gorse-io/bookrec/base/log"
	"github.com/gorse-io/bookrec/config"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Store is a read-only source of artifacts.
type Store interface {
	// Open an artifact for reading.
	Open(name string) (io.ReadCloser, error)
	// List names of artifacts.
	List() ([]string, error)
}

// Open creates the artifact store selected by the configuration.
func Open(cfg config.ArtifactsConfig) (Store, error) {
	switch cfg.Storage {
	case config.StoragePOSIX, "":
		log.Logger().Info("open posix artifact store", zap.String("dir", cfg.Dir))
		return NewPOSIX(cfg.Dir), nil
	case config.StorageS3:
		log.Logger().Info("open s3 artifact store",
			zap.String("endpoint", cfg.S3.Endpoint),
			zap.String("bucket", cfg.S3.Bucket),
			zap.String("prefix", cfg.S3.Prefix))
		return NewS3(cfg.S3)
	case config.StorageGCS:
		log.Logger().Info("open gcs artifact store",
			zap.String("bucket", cfg.GCS.Bucket),
			zap.String("prefix", cfg.GCS.Prefix))
		return NewGCS(cfg.GCS)
	case config.StorageAzure:
		log.Logger().Info("open azure artifact store",
			zap.String("container", cfg.Azure.Container),
			zap.String("prefix", cfg.Azure.Prefix))
		return NewAzureBlob(cfg.Azure, cfg.Azure.Container, cfg.Azure.Prefix)
	default:
		return nil, errors.NotSupportedf("artifact storage %q", cfg.Storage)
	}
}
