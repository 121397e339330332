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
	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
)

func (config *Config) Validate() error {
	validate := validator.New()
	validate.RegisterStructValidation(validateArtifacts, ArtifactsConfig{})
	if err := validate.Struct(config); err != nil {
		return errors.NewNotValid(err, "invalid config")
	}
	return nil
}

// validateArtifacts checks the settings required by the selected blob storage.
func validateArtifacts(sl validator.StructLevel) {
	artifacts := sl.Current().Interface().(ArtifactsConfig)
	switch artifacts.Storage {
	case StorageS3:
		if artifacts.S3.Endpoint == "" {
			sl.ReportError(artifacts.S3.Endpoint, "S3.Endpoint", "Endpoint", "required_with_s3", "")
		}
		if artifacts.S3.Bucket == "" {
			sl.ReportError(artifacts.S3.Bucket, "S3.Bucket", "Bucket", "required_with_s3", "")
		}
	case StorageGCS:
		if artifacts.GCS.Bucket == "" {
			sl.ReportError(artifacts.GCS.Bucket, "GCS.Bucket", "Bucket", "required_with_gcs", "")
		}
	case StorageAzure:
		if artifacts.Azure.Container == "" {
			sl.ReportError(artifacts.Azure.Container, "Azure.Container", "Container", "required_with_azure", "")
		}
		if artifacts.Azure.ConnectionString == "" &&
			(artifacts.Azure.AccountName == "" || artifacts.Azure.AccountKey == "") {
			sl.ReportError(artifacts.Azure.AccountName, "Azure.AccountName", "AccountName", "required_with_azure", "")
		}
	}
}
