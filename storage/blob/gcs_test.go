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
	"testing"

	"github.com/fsouza/fake-gcs-server/fakestorage"
	"github.com/gorse-io/bookrec/config"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestGCS(t *testing.T) {
	server, err := fakestorage.NewServerWithOptions(fakestorage.Options{
		Scheme:     "http",
		Port:       5050,
		PublicHost: "localhost:5050",
		InitialObjects: []fakestorage.Object{
			{
				ObjectAttrs: fakestorage.ObjectAttrs{
					BucketName: "bookrec-test",
					Name:       "artifacts/books.csv",
				},
				Content: []byte("title,authors\n"),
			},
		},
	})
	assert.NoError(t, err)
	defer server.Stop()
	t.Setenv(GCSEmulatorEndpoint, "http://localhost:5050/storage/v1/")

	// create client
	client, err := NewGCS(config.GCSConfig{
		Bucket: "bookrec-test",
		Prefix: "artifacts",
	})
	assert.NoError(t, err)

	// list files
	names, err := client.List()
	assert.NoError(t, err)
	assert.Equal(t, []string{"books.csv"}, names)

	// read file
	r, err := client.Open("books.csv")
	assert.NoError(t, err)
	data, err := io.ReadAll(r)
	assert.NoError(t, err)
	assert.Equal(t, "title,authors\n", string(data))
	assert.NoError(t, r.Close())

	// missing file
	_, err = client.Open("missing.csv")
	assert.True(t, errors.Is(err, errors.NotFound))
}
