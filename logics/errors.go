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
package logics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// ErrRecommendationFailed is the type of unexpected failures while computing recommendations.
const ErrRecommendationFailed = errors.ConstError("recommendation failed")

func newRecommendationFailed(format string, args ...any) error {
	return errors.WithType(fmt.Errorf(format, args...), ErrRecommendationFailed)
}

// ParseUserId parses a user id from text. Surrounding spaces are ignored. An integer out of
// range cannot belong to any known user and is reported as UserNotFound.
func ParseUserId(text string) (int, error) {
	userId, err := strconv.Atoi(strings.TrimSpace(text))
	if errors.Is(err, strconv.ErrRange) {
		return 0, errors.UserNotFoundf("user %s", strings.TrimSpace(text))
	} else if err != nil {
		return 0, errors.NotValidf("user id %q", text)
	}
	return userId, nil
}
