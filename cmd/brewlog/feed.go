package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/brewlog/internal/feed"
	"github.com/sakif/brewlog/internal/model"
	"github.com/sakif/brewlog/internal/service"
)

func newFeedCmd(c *cli) *cobra.Command {
	var (
		f          feed.Filter
		minR, maxR float64
		pages      int
	)
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Browse the discovery feed, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("min") || cmd.Flags().Changed("max") {
				f.Rating = &service.RatingFilter{}
				if cmd.Flags().Changed("min") {
					f.Rating.Min = &minR
				}
				if cmd.Flags().Changed("max") {
					f.Rating.Max = &maxR
				}
			}

			ctx := cmd.Context()
			if err := a.feed.ChangeFilter(ctx, f); err != nil {
				return err
			}
			for i := 1; i < pages && a.feed.State().HasMore; i++ {
				if err := a.feed.LoadMore(ctx); err != nil {
					return err
				}
			}

			state := a.feed.State()
			if c.jsonOut {
				return printJSON(c.out, state.Items)
			}
			printFeed(c, state.Items)
			if state.HasMore {
				c.ui.Info("more available: --pages %d", state.Page)
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.Type, "type", service.FilterAll, "all, pourOver or espresso")
	fs.StringVar(&f.SearchKeyword, "search", "", "match bean name or brand")
	fs.Float64Var(&minR, "min", 0, "lowest rating")
	fs.Float64Var(&maxR, "max", 5, "highest rating")
	fs.IntVar(&pages, "pages", 1, "number of pages to load")
	return cmd
}

func printFeed(c *cli, items []model.PublishedRecord) {
	rows := make([][]string, len(items))
	for i, r := range items {
		rows[i] = []string{
			r.PublishTime.Local().Format("2006-01-02 15:04"),
			r.UserName,
			string(r.Type),
			r.BeanName,
			r.Brand,
			fmt.Sprintf("%.1f", r.Rating),
		}
	}
	c.ui.Table([]string{"PUBLISHED", "BY", "TYPE", "BEAN", "BRAND", "RATING"}, rows)
}
