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
package data

import (
	"encoding/binary"
	"io"
	"strconv"
	"strings"

	"github.com/gorse-io/bookrec/base"
	"github.com/gorse-io/bookrec/base/encoding"
	"github.com/gorse-io/bookrec/base/log"
	"github.com/gorse-io/bookrec/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const similarityMagic = "bookrec/similarity/v1"

// SimilarityIndex is a square matrix of pairwise similarities over an ordered axis of titles.
type SimilarityIndex struct {
	axis   []string
	index  *dataset.Dict
	scores [][]float64
}

// NewSimilarityIndex creates a similarity index. scores[i][j] is the similarity of axis[i] to axis[j].
func NewSimilarityIndex(axis []string, scores [][]float64) (*SimilarityIndex, error) {
	if len(scores) != len(axis) {
		return nil, errors.NotValidf("similarity matrix with %d rows over %d titles", len(scores), len(axis))
	}
	for i, row := range scores {
		if len(row) != len(axis) {
			return nil, errors.NotValidf("similarity row %d with %d columns over %d titles", i, len(row), len(axis))
		}
	}
	s := &SimilarityIndex{axis: axis, index: dataset.NewDict(), scores: scores}
	for _, title := range axis {
		s.index.Add(title)
	}
	if s.index.Count() != len(axis) {
		log.Logger().Warn("duplicate titles on similarity axis, the first occurrence is queried",
			zap.Int("axis", len(axis)), zap.Int("distinct", s.index.Count()))
	}
	return s, nil
}

// Position returns the axis position of a title, or -1 if the title is not on the axis.
func (s *SimilarityIndex) Position(title string) int {
	return s.index.Id(title)
}

// Axis returns the ordered titles. The result must not be modified.
func (s *SimilarityIndex) Axis() []string {
	return s.axis
}

// Row returns similarities of axis[i] to every title on the axis. The result must not be modified.
func (s *SimilarityIndex) Row(i int) []float64 {
	return s.scores[i]
}

func (s *SimilarityIndex) Count() int {
	return len(s.axis)
}

// Marshal the similarity index into byte stream.
func (s *SimilarityIndex) Marshal(w io.Writer) error {
	if err := encoding.WriteString(w, similarityMagic); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, int64(len(s.axis))); err != nil {
		return errors.Trace(err)
	}
	for _, title := range s.axis {
		if err := encoding.WriteString(w, title); err != nil {
			return errors.Trace(err)
		}
	}
	return encoding.WriteMatrix(w, s.scores)
}

// UnmarshalSimilarityIndex reads a similarity index written by Marshal.
func UnmarshalSimilarityIndex(r io.Reader) (*SimilarityIndex, error) {
	magic, err := encoding.ReadString(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if magic != similarityMagic {
		return nil, errors.NotValidf("similarity index header %q", magic)
	}
	var n int64
	if err = binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, errors.Trace(err)
	}
	if err = encoding.CheckShape(n, n); err != nil {
		return nil, errors.Annotatef(err, "similarity axis length %d", n)
	}
	axis := make([]string, n)
	for i := range axis {
		if axis[i], err = encoding.ReadString(r); err != nil {
			return nil, errors.Trace(err)
		}
	}
	scores := encoding.NewMatrix[float64](int(n), int(n))
	if err = encoding.ReadMatrix(r, scores); err != nil {
		return nil, errors.Trace(err)
	}
	return NewSimilarityIndex(axis, scores)
}

// LoadSimilarityCSV reads a similarity index from a CSV table. The header row holds the axis
// after a leading label cell and each following row starts with its title.
func LoadSimilarityCSV(r io.Reader) (*SimilarityIndex, error) {
	var (
		axis   []string
		scores [][]float64
		header = true
	)
	err := base.ReadTable(r, ",", false, 1, func(fields []string) error {
		if header {
			axis = fields[1:]
			header = false
			return nil
		}
		i := len(scores)
		if i >= len(axis) {
			return errors.NotValidf("similarity row beyond %d titles", len(axis))
		}
		if fields[0] != axis[i] {
			return errors.NotValidf("similarity row %q at position of %q", fields[0], axis[i])
		}
		if len(fields)-1 != len(axis) {
			return errors.NotValidf("similarity row %q with %d columns", fields[0], len(fields)-1)
		}
		row := make([]float64, len(axis))
		for j, field := range fields[1:] {
			value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return errors.NotValidf("similarity %q", field)
			}
			row[j] = value
		}
		scores = append(scores, row)
		return nil
	})
	if err != nil {
		return nil, errors.Annotate(err, "load similarity")
	}
	return NewSimilarityIndex(axis, scores)
}
