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
package mf

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/chewxy/math32"
	"github.com/gorse-io/bookrec/base/encoding"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type SVDTestSuite struct {
	suite.Suite
	model *SVD
}

func (suite *SVDTestSuite) SetupTest() {
	suite.model = NewSVD(Params{Factors: 2, Biased: true, GlobalMean: 3, MinRating: 1, MaxRating: 5})
	suite.NoError(suite.model.AddUser(42, 0.5, []float32{1, 0}))
	suite.NoError(suite.model.AddUser(7, -0.5, []float32{0, 1}))
	suite.NoError(suite.model.AddItem("Z", 0.25, []float32{0.75, 0}))
	suite.NoError(suite.model.AddItem("W", -0.25, []float32{0, 2}))
	suite.NoError(suite.model.AddItem("V", 1, []float32{4, 0}))
}

func (suite *SVDTestSuite) TestPredict() {
	// 3 + 0.5 + 0.25 + 0.75
	score, err := suite.model.Predict(42, "Z")
	suite.NoError(err)
	suite.InDelta(4.5, score, 1e-6)
	// 3 + 0.5 - 0.25 + 0
	score, err = suite.model.Predict(42, "W")
	suite.NoError(err)
	suite.InDelta(3.25, score, 1e-6)
	// clipped to the rating scale
	score, err = suite.model.Predict(42, "V")
	suite.NoError(err)
	suite.InDelta(5, score, 1e-6)
	// unknown user: mean + item bias
	score, err = suite.model.Predict(999, "Z")
	suite.NoError(err)
	suite.InDelta(3.25, score, 1e-6)
	// unknown item: mean + user bias
	score, err = suite.model.Predict(7, "unknown")
	suite.NoError(err)
	suite.InDelta(2.5, score, 1e-6)
}

func (suite *SVDTestSuite) TestPredictUnbiased() {
	suite.model.Params.Biased = false
	score, err := suite.model.Predict(7, "W")
	suite.NoError(err)
	suite.InDelta(5, score, 1e-6)
	score, err = suite.model.Predict(999, "W")
	suite.NoError(err)
	suite.InDelta(3, score, 1e-6)
}

func (suite *SVDTestSuite) TestDegenerate() {
	suite.NoError(suite.model.AddItem("NaN", 0, []float32{math32.NaN(), 0}))
	suite.NoError(suite.model.AddUser(13, math32.Inf(1), []float32{0, 0}))
	suite.False(suite.model.IsItemPredictable("NaN"))
	suite.False(suite.model.IsUserPredictable(13))
	suite.True(suite.model.IsItemPredictable("Z"))
	suite.True(suite.model.IsUserPredictable(42))
	suite.False(suite.model.IsUserPredictable(999))

	_, err := suite.model.Predict(42, "NaN")
	suite.True(errors.Is(err, errors.NotValid))
	_, err = suite.model.Predict(13, "Z")
	suite.True(errors.Is(err, errors.NotValid))
}

func (suite *SVDTestSuite) TestAddInvalid() {
	suite.True(errors.Is(suite.model.AddUser(1, 0, []float32{1}), errors.NotValid))
	suite.True(errors.Is(suite.model.AddItem("A", 0, []float32{1, 2, 3}), errors.NotValid))
	suite.True(errors.Is(suite.model.AddUser(42, 0, []float32{1, 1}), errors.AlreadyExists))
	suite.True(errors.Is(suite.model.AddItem("Z", 0, []float32{1, 1}), errors.AlreadyExists))
	suite.Equal(2, suite.model.UserCount())
	suite.Equal(3, suite.model.ItemCount())
}

func (suite *SVDTestSuite) TestMarshal() {
	suite.NoError(suite.model.AddItem("NaN", 0, []float32{math32.NaN(), 0}))
	buf := bytes.NewBuffer(nil)
	suite.NoError(suite.model.Marshal(buf))
	copied, err := Unmarshal(buf)
	suite.NoError(err)
	suite.Equal(suite.model.Params, copied.Params)
	suite.Equal(suite.model.UserIds, copied.UserIds)
	suite.Equal(suite.model.ItemIndex.Strings(), copied.ItemIndex.Strings())
	suite.False(copied.IsItemPredictable("NaN"))
	for _, userId := range []int{42, 7, 999} {
		for _, title := range []string{"Z", "W", "V", "unknown"} {
			expected, err := suite.model.Predict(userId, title)
			suite.NoError(err)
			actual, err := copied.Predict(userId, title)
			suite.NoError(err)
			suite.Equal(expected, actual)
		}
	}
}

func TestSVD(t *testing.T) {
	suite.Run(t, new(SVDTestSuite))
}

func TestUnmarshalCorrupted(t *testing.T) {
	model := NewSVD(Params{Factors: 1, GlobalMean: 3})
	assert.NoError(t, model.AddUser(1, 0, []float32{1}))
	assert.NoError(t, model.AddItem("A", 0, []float32{1}))
	buf := bytes.NewBuffer(nil)
	assert.NoError(t, model.Marshal(buf))
	data := buf.Bytes()

	// truncated
	_, err := Unmarshal(bytes.NewReader(data[:len(data)-2]))
	assert.Error(t, err)
	// bad header
	corrupted := append([]byte(nil), data...)
	corrupted[4] = 'X'
	_, err = Unmarshal(bytes.NewReader(corrupted))
	assert.True(t, errors.Is(err, errors.NotValid))

	// huge counts are rejected before allocation
	header := bytes.NewBuffer(nil)
	assert.NoError(t, encoding.WriteString(header, svdMagic))
	assert.NoError(t, encoding.WriteGob(header, Params{Factors: 8}))
	users := bytes.NewBuffer(append([]byte(nil), header.Bytes()...))
	assert.NoError(t, binary.Write(users, binary.LittleEndian, int64(1)<<62))
	_, err = Unmarshal(users)
	assert.True(t, errors.Is(err, errors.NotValid))
	items := bytes.NewBuffer(append([]byte(nil), header.Bytes()...))
	assert.NoError(t, binary.Write(items, binary.LittleEndian, int64(0)))
	assert.NoError(t, binary.Write(items, binary.LittleEndian, int64(1)<<40))
	_, err = Unmarshal(items)
	assert.True(t, errors.Is(err, errors.NotValid))
	factors := bytes.NewBuffer(nil)
	assert.NoError(t, encoding.WriteString(factors, svdMagic))
	assert.NoError(t, encoding.WriteGob(factors, Params{Factors: -1}))
	_, err = Unmarshal(factors)
	assert.True(t, errors.Is(err, errors.NotValid))
}
