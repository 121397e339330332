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
	"context"
	"io"
	"os"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/gorse-io/bookrec/config"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestAzureBlobEmulator(t *testing.T) {
	connectionString := os.Getenv("AZURE_STORAGE_CONNECTION_STRING")
	if connectionString == "" {
		t.Skip("AZURE_STORAGE_CONNECTION_STRING is not set, skipping Azure Blob emulator test")
	}

	client, err := NewAzureBlob(config.AzureBlobConfig{ConnectionString: connectionString}, "bookrec-test", "artifacts")
	assert.NoError(t, err)

	ctx := context.Background()
	_, err = client.client.CreateContainer(ctx, client.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		assert.NoError(t, err)
	}
	_, err = client.client.UploadBuffer(ctx, client.container, "artifacts/books.csv", []byte("title,authors\n"), nil)
	assert.NoError(t, err)

	r, err := client.Open("books.csv")
	assert.NoError(t, err)
	data, err := io.ReadAll(r)
	assert.NoError(t, err)
	assert.Equal(t, "title,authors\n", string(data))
	assert.NoError(t, r.Close())

	names, err := client.List()
	assert.NoError(t, err)
	assert.Contains(t, names, "books.csv")

	_, err = client.Open("missing.csv")
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestAzureBlobCredentials(t *testing.T) {
	_, err := NewAzureBlob(config.AzureBlobConfig{}, "bookrec", "")
	assert.Error(t, err)
}
