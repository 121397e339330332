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
package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func init() {
	cliCommand.AddCommand(similarCommand)
	cliCommand.AddCommand(popularCommand)
	popularCommand.Flags().IntP("n", "n", 0, "number of popular books")
}

var similarCommand = &cobra.Command{
	Use:   "similar TITLE",
	Short: "Show books similar to a book.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recommender, err := loadRecommender(cmd)
		if err != nil {
			return err
		}
		items, err := recommender.SimilarItems(args[0])
		if err != nil {
			return describe(err)
		}
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header([]string{"title", "authors", "similarity"})
		for _, item := range items {
			if err = table.Append([]string{item.Title, item.Authors, strconv.FormatFloat(item.Score, 'f', 4, 64)}); err != nil {
				return err
			}
		}
		return table.Render()
	},
}

var popularCommand = &cobra.Command{
	Use:   "popular",
	Short: "Show popular books.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		recommender, err := loadRecommender(cmd)
		if err != nil {
			return err
		}
		n, _ := cmd.Flags().GetInt("n")
		books, err := recommender.PopularBooks(n)
		if err != nil {
			return describe(err)
		}
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header([]string{"title", "authors", "votes", "rating"})
		for _, book := range books {
			if err = table.Append([]string{
				book.Title,
				book.Authors,
				strconv.Itoa(book.NumRatings),
				fmt.Sprintf("%.2f", book.AvgRating),
			}); err != nil {
				return err
			}
		}
		return table.Render()
	},
}
