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

// Package mf implements the rating predictor backed by a matrix factorization model fitted offline.
package mf

import (
	"encoding/binary"
	"io"

	"github.com/bits-and-blooms/bitset"
	"github.com/chewxy/math32"
	"github.com/gorse-io/bookrec/base/encoding"
	"github.com/gorse-io/bookrec/dataset"
	"github.com/juju/errors"
)

const svdMagic = "bookrec/svd/v1"

// Params are the hyper-parameters and rating statistics of a fitted model.
type Params struct {
	Factors    int
	Biased     bool
	GlobalMean float32
	// MinRating and MaxRating bound estimates. Estimates are not clipped if MinRating >= MaxRating.
	MinRating float32
	MaxRating float32
}

// SVD is a biased matrix factorization model:
//
//	\hat{r}_{ui} = \mu + b_u + b_i + q_i^Tp_u
//
// Terms of unknown users or items are left out, so an unknown pair is estimated by the global mean.
type SVD struct {
	Params          Params
	UserIndex       map[int]int
	UserIds         []int
	ItemIndex       *dataset.Dict
	UserPredictable *bitset.BitSet
	ItemPredictable *bitset.BitSet
	UserBias        []float32   // b_u
	ItemBias        []float32   // b_i
	UserFactor      [][]float32 // p_u
	ItemFactor      [][]float32 // q_i
}

func NewSVD(params Params) *SVD {
	return &SVD{
		Params:          params,
		UserIndex:       make(map[int]int),
		ItemIndex:       dataset.NewDict(),
		UserPredictable: bitset.New(0),
		ItemPredictable: bitset.New(0),
	}
}

// AddUser adds the parameters of a user. A user with non-finite parameters is kept but not predictable.
func (svd *SVD) AddUser(userId int, bias float32, factor []float32) error {
	if len(factor) != svd.Params.Factors {
		return errors.NotValidf("factor of user %d with %d dimensions", userId, len(factor))
	}
	if _, exist := svd.UserIndex[userId]; exist {
		return errors.AlreadyExistsf("user %d", userId)
	}
	userIndex := len(svd.UserIds)
	svd.UserIndex[userId] = userIndex
	svd.UserIds = append(svd.UserIds, userId)
	svd.UserBias = append(svd.UserBias, bias)
	svd.UserFactor = append(svd.UserFactor, factor)
	if finite(bias, factor) {
		svd.UserPredictable.Set(uint(userIndex))
	}
	return nil
}

// AddItem adds the parameters of an item. An item with non-finite parameters is kept but not predictable.
func (svd *SVD) AddItem(title string, bias float32, factor []float32) error {
	if len(factor) != svd.Params.Factors {
		return errors.NotValidf("factor of item %q with %d dimensions", title, len(factor))
	}
	if svd.ItemIndex.Id(title) >= 0 {
		return errors.AlreadyExistsf("item %q", title)
	}
	itemIndex := svd.ItemIndex.Add(title)
	svd.ItemBias = append(svd.ItemBias, bias)
	svd.ItemFactor = append(svd.ItemFactor, factor)
	if finite(bias, factor) {
		svd.ItemPredictable.Set(uint(itemIndex))
	}
	return nil
}

func (svd *SVD) UserCount() int {
	return len(svd.UserIds)
}

func (svd *SVD) ItemCount() int {
	return svd.ItemIndex.Count()
}

// IsUserPredictable returns false if the user is unknown or its parameters are degenerate.
func (svd *SVD) IsUserPredictable(userId int) bool {
	userIndex, ok := svd.UserIndex[userId]
	return ok && svd.UserPredictable.Test(uint(userIndex))
}

// IsItemPredictable returns false if the item is unknown or its parameters are degenerate.
func (svd *SVD) IsItemPredictable(title string) bool {
	itemIndex := svd.ItemIndex.Id(title)
	return itemIndex >= 0 && svd.ItemPredictable.Test(uint(itemIndex))
}

// Predict estimates the rating given by a user to a book. Pairs involving degenerate
// parameters cannot be estimated and return an error.
func (svd *SVD) Predict(userId int, title string) (float64, error) {
	userIndex, userKnown := svd.UserIndex[userId]
	itemIndex := svd.ItemIndex.Id(title)
	itemKnown := itemIndex >= 0
	if userKnown && !svd.IsUserPredictable(userId) {
		return 0, errors.NotValidf("degenerate factors of user %d", userId)
	}
	if itemKnown && !svd.IsItemPredictable(title) {
		return 0, errors.NotValidf("degenerate factors of item %q", title)
	}
	est := svd.Params.GlobalMean
	if svd.Params.Biased {
		if userKnown {
			est += svd.UserBias[userIndex]
		}
		if itemKnown {
			est += svd.ItemBias[itemIndex]
		}
	}
	if userKnown && itemKnown {
		est += dot(svd.UserFactor[userIndex], svd.ItemFactor[itemIndex])
	}
	if svd.Params.MinRating < svd.Params.MaxRating {
		est = math32.Max(svd.Params.MinRating, math32.Min(svd.Params.MaxRating, est))
	}
	return float64(est), nil
}

// Marshal model into byte stream.
func (svd *SVD) Marshal(w io.Writer) error {
	if err := encoding.WriteString(w, svdMagic); err != nil {
		return errors.Trace(err)
	}
	// write params
	if err := encoding.WriteGob(w, svd.Params); err != nil {
		return errors.Trace(err)
	}
	// write users
	if err := binary.Write(w, binary.LittleEndian, int64(len(svd.UserIds))); err != nil {
		return errors.Trace(err)
	}
	userIds := make([]int64, len(svd.UserIds))
	for i, userId := range svd.UserIds {
		userIds[i] = int64(userId)
	}
	if err := binary.Write(w, binary.LittleEndian, userIds); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, svd.UserBias); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteMatrix(w, svd.UserFactor); err != nil {
		return errors.Trace(err)
	}
	// write items
	if err := binary.Write(w, binary.LittleEndian, int64(svd.ItemIndex.Count())); err != nil {
		return errors.Trace(err)
	}
	for _, title := range svd.ItemIndex.Strings() {
		if err := encoding.WriteString(w, title); err != nil {
			return errors.Trace(err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, svd.ItemBias); err != nil {
		return errors.Trace(err)
	}
	return encoding.WriteMatrix(w, svd.ItemFactor)
}

// Unmarshal model from byte stream.
func Unmarshal(r io.Reader) (*SVD, error) {
	magic, err := encoding.ReadString(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if magic != svdMagic {
		return nil, errors.NotValidf("model header %q", magic)
	}
	// read params
	var params Params
	if err = encoding.ReadGob(r, &params); err != nil {
		return nil, errors.Trace(err)
	}
	if err = encoding.CheckShape(1, int64(params.Factors)); err != nil {
		return nil, errors.Annotatef(err, "number of factors %d", params.Factors)
	}
	svd := NewSVD(params)
	// read users
	var userCount int64
	if err = binary.Read(r, binary.LittleEndian, &userCount); err != nil {
		return nil, errors.Trace(err)
	}
	if err = encoding.CheckShape(userCount, int64(params.Factors)); err != nil {
		return nil, errors.Annotatef(err, "number of users %d", userCount)
	}
	userIds := make([]int64, userCount)
	if err = binary.Read(r, binary.LittleEndian, userIds); err != nil {
		return nil, errors.Trace(err)
	}
	userBias := make([]float32, userCount)
	if err = binary.Read(r, binary.LittleEndian, userBias); err != nil {
		return nil, errors.Trace(err)
	}
	userFactor := encoding.NewMatrix[float32](int(userCount), params.Factors)
	if err = encoding.ReadMatrix(r, userFactor); err != nil {
		return nil, errors.Trace(err)
	}
	for i, userId := range userIds {
		if err = svd.AddUser(int(userId), userBias[i], userFactor[i]); err != nil {
			return nil, errors.Trace(err)
		}
	}
	// read items
	var itemCount int64
	if err = binary.Read(r, binary.LittleEndian, &itemCount); err != nil {
		return nil, errors.Trace(err)
	}
	if err = encoding.CheckShape(itemCount, int64(params.Factors)); err != nil {
		return nil, errors.Annotatef(err, "number of items %d", itemCount)
	}
	titles := make([]string, itemCount)
	for i := range titles {
		if titles[i], err = encoding.ReadString(r); err != nil {
			return nil, errors.Trace(err)
		}
	}
	itemBias := make([]float32, itemCount)
	if err = binary.Read(r, binary.LittleEndian, itemBias); err != nil {
		return nil, errors.Trace(err)
	}
	itemFactor := encoding.NewMatrix[float32](int(itemCount), params.Factors)
	if err = encoding.ReadMatrix(r, itemFactor); err != nil {
		return nil, errors.Trace(err)
	}
	for i, title := range titles {
		if err = svd.AddItem(title, itemBias[i], itemFactor[i]); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return svd, nil
}

func dot(a, b []float32) (ret float32) {
	for i := range a {
		ret += a[i] * b[i]
	}
	return
}

func finite(bias float32, factor []float32) bool {
	if math32.IsNaN(bias) || math32.IsInf(bias, 0) {
		return false
	}
	for _, x := range factor {
		if math32.IsNaN(x) || math32.IsInf(x, 0) {
			return false
		}
	}
	return true
}
