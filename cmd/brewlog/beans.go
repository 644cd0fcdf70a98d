package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sakif/brewlog/internal/model"
)

func newBeanCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bean",
		Aliases: []string{"beans"},
		Short:   "Manage the bean inventory",
	}
	cmd.AddCommand(
		newBeanListCmd(c),
		newBeanAddCmd(c),
		newBeanConsumeCmd(c),
		newBeanFinishCmd(c),
		newBeanDeleteCmd(c),
		newBeanStatsCmd(c),
	)
	return cmd
}

func (c *cli) printBeans(beans []model.InventoryBean) error {
	if c.jsonOut {
		return printJSON(c.out, beans)
	}
	rows := make([][]string, len(beans))
	for i, b := range beans {
		rows[i] = []string{
			b.ID, b.Name, b.Brand, b.RoastLevel,
			fmt.Sprintf("%g/%g g", b.CurrentWeight, b.TotalWeight),
			string(b.Status),
		}
	}
	c.ui.Table([]string{"ID", "NAME", "BRAND", "ROAST", "REMAINING", "STATUS"}, rows)
	return nil
}

func (c *cli) printBean(b model.InventoryBean) error {
	if c.jsonOut {
		return printJSON(c.out, b)
	}
	c.ui.Success("%s %s: %g/%g g, %s", b.ID, b.Name, b.CurrentWeight, b.TotalWeight, b.Status)
	return nil
}

func newBeanListCmd(c *cli) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stocked beans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			var beans []model.InventoryBean
			if status != "" {
				beans, err = a.beans.ByStatus(cmd.Context(), model.BeanStatus(status))
			} else {
				beans, err = a.beans.List(cmd.Context())
			}
			if err != nil {
				return err
			}
			return c.printBeans(beans)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "in_stock, near_empty or finished")
	return cmd
}

func newBeanAddCmd(c *cli) *cobra.Command {
	var (
		in      model.BeanInput
		current float64
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Stock a bag of beans, or update one with --id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("current") {
				in.CurrentWeight = &current
			}
			b, err := a.beans.Upsert(cmd.Context(), in)
			if err != nil {
				return err
			}
			return c.printBean(b)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&in.ID, "id", "", "update this bean instead of adding one")
	fs.StringVar(&in.Name, "name", "", "bean name")
	fs.StringVar(&in.Brand, "brand", "", "roaster or brand")
	fs.StringVar(&in.RoastLevel, "roast", "", "roast level")
	fs.StringVar(&in.Origin, "origin", "", "origin")
	fs.Float64Var(&in.TotalWeight, "weight", 0, "bag weight in grams")
	fs.Float64Var(&current, "current", 0, "remaining grams (default: a full bag)")
	fs.StringVar(&in.RoastDate, "roast-date", "", "roast date")
	fs.StringVar(&in.OpenDate, "open-date", "", "date the bag was opened")
	fs.StringVar(&in.Notes, "notes", "", "notes")
	return cmd
}

func newBeanConsumeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "consume ID GRAMS",
		Short: "Take grams out of a bag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			grams, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("grams %q is not a number", args[1])
			}
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			b, err := a.beans.RecordConsumption(cmd.Context(), args[0], grams)
			if err != nil {
				return err
			}
			return c.printBean(b)
		},
	}
}

func newBeanFinishCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "finish ID",
		Short: "Mark a bag as used up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			b, err := a.beans.MarkFinished(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.printBean(b)
		},
	}
}

func newBeanDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Remove a bean from the inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			if err := a.beans.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			c.ui.Success("deleted %s", args[0])
			return nil
		},
	}
}

func newBeanStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count beans by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			st, err := a.beans.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOut {
				return printJSON(c.out, st)
			}
			c.ui.Info("total %d, in stock %d, near empty %d, finished %d",
				st.Total, st.InStock, st.NearEmpty, st.Finished)
			return nil
		},
	}
}
