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
	"database/sql"
	"strings"

	"github.com/juju/errors"
	_ "modernc.org/sqlite"
)

const SQLitePrefix = "sqlite://"

// IsSQLite returns true if the history source is a SQLite database.
func IsSQLite(source string) bool {
	return strings.HasPrefix(source, SQLitePrefix)
}

// LoadHistorySQLite reads interactions from the table ratings(customer_id, book_title, rating)
// of a SQLite database. The source is either a path or a sqlite:// DSN.
func LoadHistorySQLite(source string) (*History, error) {
	db, err := sql.Open("sqlite", strings.TrimPrefix(source, SQLitePrefix))
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer db.Close()
	rs, err := db.Query(`
SELECT customer_id, book_title, rating FROM ratings ORDER BY rowid
`)
	if err != nil {
		return nil, errors.Annotate(err, "load history")
	}
	defer rs.Close()
	var interactions []Interaction
	for rs.Next() {
		var interaction Interaction
		if err = rs.Scan(&interaction.UserId, &interaction.Title, &interaction.Rating); err != nil {
			return nil, errors.Annotate(err, "load history")
		}
		interactions = append(interactions, interaction)
	}
	if err = rs.Err(); err != nil {
		return nil, errors.Annotate(err, "load history")
	}
	return NewHistory(interactions), nil
}
