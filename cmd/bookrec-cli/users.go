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
	"strconv"

	"github.com/gorse-io/bookrec/logics"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func init() {
	cliCommand.AddCommand(recommendCommand)
	cliCommand.AddCommand(historyCommand)
	cliCommand.AddCommand(usersCommand)
	recommendCommand.Flags().IntP("n", "n", 0, "number of recommendations")
}

var recommendCommand = &cobra.Command{
	Use:   "recommend USER",
	Short: "Show personalized recommendations for a user.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userId, err := logics.ParseUserId(args[0])
		if err != nil {
			return describe(err)
		}
		recommender, err := loadRecommender(cmd)
		if err != nil {
			return err
		}
		n, _ := cmd.Flags().GetInt("n")
		if n <= 0 {
			n = recommender.Config().NumRecommend
		}
		n = min(n, recommender.Config().MaxRecommend)
		items, err := recommender.RecommendForUser(cmd.Context(), userId, n)
		if err != nil {
			return describe(err)
		}
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header([]string{"title", "authors", "predicted rating"})
		for _, item := range items {
			if err = table.Append([]string{item.Title, item.Authors, strconv.FormatFloat(item.Score, 'f', 2, 64)}); err != nil {
				return err
			}
		}
		return table.Render()
	},
}

var historyCommand = &cobra.Command{
	Use:   "history USER",
	Short: "Show books rated by a user.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userId, err := logics.ParseUserId(args[0])
		if err != nil {
			return describe(err)
		}
		recommender, err := loadRecommender(cmd)
		if err != nil {
			return err
		}
		items, err := recommender.UserHistory(userId)
		if err != nil {
			return describe(err)
		}
		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header([]string{"title", "rating"})
		for _, item := range items {
			if err = table.Append([]string{item.Title, strconv.FormatFloat(item.Rating, 'f', -1, 64)}); err != nil {
				return err
			}
		}
		return table.Render()
	},
}

var usersCommand = &cobra.Command{
	Use:   "users",
	Short: "List users with history.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		recommender, err := loadRecommender(cmd)
		if err != nil {
			return err
		}
		for _, userId := range recommender.ListKnownUsers() {
			if _, err = cmd.OutOrStdout().Write([]byte(strconv.Itoa(userId) + "\n")); err != nil {
				return err
			}
		}
		return nil
	},
}
