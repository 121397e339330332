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

package base

import (
	"bufio"
	"io"
	"strings"

	"github.com/juju/errors"
)

// maxLineSize bounds a single physical line of an artifact table.
const maxLineSize = 16 * 1024 * 1024

// ReadLines parse fields of each line for csv file.
func ReadLines(sc *bufio.Scanner, sep string, handler func(int, []string) bool) error {
	lineCount := 0               // line number of current position
	fields := make([]string, 0)  // fields for current line
	builder := strings.Builder{} // string builder for current field
	quoted := false              // whether current position in quote
	recordLine := 0              // line number where current record starts
	for sc.Scan() {
		lineStr := sc.Text()
		line := []rune(lineStr)
		// start of line
		if quoted {
			builder.WriteString("\r\n")
		} else {
			recordLine = lineCount
		}
		for i := 0; i < len(line); i++ {
			if string(line[i]) == sep && !quoted {
				// end of field
				fields = append(fields, builder.String())
				builder.Reset()
			} else if line[i] == '"' {
				if quoted {
					if i+1 >= len(line) || line[i+1] != '"' {
						// end of quoted
						quoted = false
					} else {
						i++
						builder.WriteRune('"')
					}
				} else {
					// start of quoted
					quoted = true
				}
			} else {
				builder.WriteRune(line[i])
			}
		}
		// end of line
		if !quoted {
			fields = append(fields, builder.String())
			builder.Reset()
			if !handler(lineCount, fields) {
				return nil
			}
			fields = []string{}
		}
		lineCount++
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if quoted {
		return errors.NotValidf("line %d: unterminated quoted field", recordLine+1)
	}
	return nil
}

// ReadTable reads a delimited table from r. The header row is skipped when header is true, and
// rows with fewer than minFields fields are rejected. The first error returned by handler stops
// reading and is returned annotated with the line number.
func ReadTable(r io.Reader, sep string, header bool, minFields int, handler func(fields []string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	var handlerErr error
	err := ReadLines(sc, sep, func(lineNo int, fields []string) bool {
		if header && lineNo == 0 {
			return true
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			// blank line
			return true
		}
		if len(fields) < minFields {
			handlerErr = errors.NotValidf("line %d: expect %d fields but got %d", lineNo+1, minFields, len(fields))
			return false
		}
		if err := handler(fields); err != nil {
			handlerErr = errors.Annotatef(err, "line %d", lineNo+1)
			return false
		}
		return true
	})
	if err != nil {
		return errors.Trace(err)
	}
	return handlerErr
}
