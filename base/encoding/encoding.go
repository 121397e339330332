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

package encoding

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"

	"github.com/juju/errors"
)

// maxBytesLength guards ReadBytes against corrupted length prefixes.
const maxBytesLength = 1 << 30

// MaxMatrixElements bounds the number of elements of a matrix read from an artifact.
const MaxMatrixElements = 1 << 28

// Float is the element type of matrices stored in artifacts.
type Float interface {
	~float32 | ~float64
}

// WriteMatrix writes matrix to byte stream.
func WriteMatrix[T Float](w io.Writer, m [][]T) error {
	for i := range m {
		err := binary.Write(w, binary.LittleEndian, m[i])
		if err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// ReadMatrix reads matrix from byte stream. The shape of m must be allocated by the caller.
func ReadMatrix[T Float](r io.Reader, m [][]T) error {
	for i := range m {
		err := binary.Read(r, binary.LittleEndian, m[i])
		if err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// CheckShape returns NotValid if a rows x cols matrix read from a stream cannot be allocated.
func CheckShape(rows, cols int64) error {
	if rows < 0 || cols < 0 {
		return errors.NotValidf("matrix shape %dx%d", rows, cols)
	}
	if rows > MaxMatrixElements || cols > MaxMatrixElements ||
		(cols > 0 && rows > MaxMatrixElements/cols) {
		return errors.NotValidf("matrix shape %dx%d exceeds %d elements", rows, cols, MaxMatrixElements)
	}
	return nil
}

// NewMatrix allocates a rows x cols matrix backed by a single slice.
func NewMatrix[T Float](rows, cols int) [][]T {
	data := make([]T, rows*cols)
	m := make([][]T, rows)
	for i := range m {
		m[i] = data[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return m
}

// WriteString writes string to byte stream.
func WriteString(w io.Writer, s string) error {
	return WriteBytes(w, []byte(s))
}

// ReadString reads string from byte stream.
func ReadString(r io.Reader) (string, error) {
	data, err := ReadBytes(r)
	return string(data), err
}

// WriteBytes writes bytes to byte stream.
func WriteBytes(w io.Writer, s []byte) error {
	err := binary.Write(w, binary.LittleEndian, int32(len(s)))
	if err != nil {
		return err
	}
	n, err := w.Write(s)
	if err != nil {
		return err
	} else if n != len(s) {
		return errors.New("fail to write string")
	}
	return nil
}

// ReadBytes reads bytes from byte stream.
func ReadBytes(r io.Reader) ([]byte, error) {
	var length int32
	err := binary.Read(r, binary.LittleEndian, &length)
	if err != nil {
		return nil, err
	}
	if length < 0 || length > maxBytesLength {
		return nil, errors.NotValidf("byte length %d", length)
	}
	data := make([]byte, length)
	if _, err = io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

// WriteGob writes object to byte stream.
func WriteGob(w io.Writer, v interface{}) error {
	buffer := bytes.NewBuffer(nil)
	encoder := gob.NewEncoder(buffer)
	err := encoder.Encode(v)
	if err != nil {
		return err
	}
	return WriteBytes(w, buffer.Bytes())
}

// ReadGob read object from byte stream.
func ReadGob(r io.Reader, v interface{}) error {
	data, err := ReadBytes(r)
	if err != nil {
		return err
	}
	buffer := bytes.NewBuffer(data)
	decoder := gob.NewDecoder(buffer)
	return decoder.Decode(v)
}
