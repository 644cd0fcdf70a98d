package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sakif/brewlog/internal/apperror"
	"github.com/sakif/brewlog/internal/local"
	"github.com/sakif/brewlog/internal/model"
	"github.com/sakif/brewlog/internal/publisher"
)

func newRecordCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "record",
		Aliases: []string{"records"},
		Short:   "Manage local brew records",
	}
	cmd.AddCommand(
		newRecordNewCmd(c),
		newRecordListCmd(c),
		newRecordShowCmd(c),
		newRecordDeleteCmd(c),
		newRecordPublishCmd(c),
	)
	return cmd
}

// recordFlags collects a record from the command line. Numbers only enter
// the payload when their flag was given, so unset parameters stay nil.
type recordFlags struct {
	typ, name, brand, roast, origin string
	altitude, process, roastDate    string
	remarks, grind, brewer, grinder string
	flavors                         []string
	rating, price, coffee, water    float64
	output, temperature, seconds    float64
}

func (f *recordFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.typ, "type", string(model.RecordTypePourOver), "pourOver or espresso")
	fs.StringVar(&f.name, "name", "", "bean name")
	fs.StringVar(&f.brand, "brand", "", "roaster or brand")
	fs.StringVar(&f.roast, "roast", "", "roast level")
	fs.StringVar(&f.origin, "origin", "", "origin")
	fs.StringVar(&f.altitude, "altitude", "", "growing altitude")
	fs.StringVar(&f.process, "process", "", "processing method")
	fs.StringVar(&f.roastDate, "roast-date", "", "roast date")
	fs.StringVar(&f.remarks, "remarks", "", "tasting notes")
	fs.StringVar(&f.grind, "grind", "", "grind size")
	fs.StringVar(&f.brewer, "brewer", "", "brewer used")
	fs.StringVar(&f.grinder, "grinder", "", "grinder used")
	fs.StringSliceVar(&f.flavors, "flavor", nil, "flavor tag, repeatable")
	fs.Float64Var(&f.rating, "rating", 0, "rating from 0 to 5")
	fs.Float64Var(&f.price, "price", 0, "price per 100g")
	fs.Float64Var(&f.coffee, "coffee", 0, "dose in grams")
	fs.Float64Var(&f.water, "water", 0, "water in grams (pour-over)")
	fs.Float64Var(&f.output, "output", 0, "yield in grams (espresso)")
	fs.Float64Var(&f.temperature, "temp", 0, "water temperature in °C")
	fs.Float64Var(&f.seconds, "time", 0, "brew time in seconds")
}

func (f *recordFlags) payload(fs *pflag.FlagSet) model.Payload {
	p := model.Payload{
		"name":          f.name,
		"brand":         f.brand,
		"roastLevel":    f.roast,
		"origin":        f.origin,
		"altitude":      f.altitude,
		"processMethod": f.process,
		"roastDate":     f.roastDate,
		"remarks":       f.remarks,
		"flavors":       f.flavors,
		"equipment":     model.Payload{"brewer": f.brewer, "grinder": f.grinder},
	}
	if fs.Changed("rating") {
		p["rating"] = f.rating
	}
	if fs.Changed("price") {
		p["pricePer100g"] = f.price
	}

	params := model.Payload{"grindSize": f.grind}
	set := func(flag, key string, v float64) {
		if fs.Changed(flag) {
			params[key] = v
		}
	}
	set("coffee", "coffeeWeight", f.coffee)
	set("temp", "temperature", f.temperature)
	set("time", "time", f.seconds)
	if model.ParseRecordType(f.typ) == model.RecordTypeEspresso {
		set("output", "outputWeight", f.output)
		p["extractParams"] = params
	} else {
		set("water", "waterWeight", f.water)
		p["brewParams"] = params
	}
	return p
}

func newRecordNewCmd(c *cli) *cobra.Command {
	var (
		f       recordFlags
		publish bool
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Log a brew",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			r := model.CreateRecord(model.ParseRecordType(f.typ), f.payload(cmd.Flags()))

			if publish {
				out, err := a.publisher.Publish(cmd.Context(), r)
				if err != nil {
					return publishError(err)
				}
				return c.printPublished(out)
			}

			saved, err := a.records.Save(cmd.Context(), r)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return printJSON(c.out, saved)
			}
			c.ui.Success("saved %s (%s)", saved.ID, saved.Name)
			return nil
		},
	}
	f.register(cmd.Flags())
	cmd.Flags().BoolVar(&publish, "publish", false, "publish to the discovery feed after saving")
	return cmd
}

func newRecordListCmd(c *cli) *cobra.Command {
	var (
		typ, brand string
		minRating  float64
	)
	cmd := &cobra.Command{
		Use:     "list [keyword]",
		Aliases: []string{"search"},
		Short:   "List records, newest first",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			var keyword string
			if len(args) == 1 {
				keyword = args[0]
			}
			filter := local.SearchFilter{Brand: brand}
			if typ != "" {
				filter.Type = model.ParseRecordType(typ)
			}
			if cmd.Flags().Changed("min-rating") {
				filter.MinRating = &minRating
			}

			cards, err := a.records.HomeList(cmd.Context(), keyword, filter)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return printJSON(c.out, cards)
			}
			rows := make([][]string, len(cards))
			for i, card := range cards {
				rows[i] = []string{card.ID, recordTypeLabel(card.Type), card.Name, card.Brand, card.DisplayRating, card.Ratio(), card.DisplayDate}
			}
			c.ui.Table([]string{"ID", "TYPE", "NAME", "BRAND", "RATING", "RATIO", "DATE"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "only pourOver or espresso records")
	cmd.Flags().StringVar(&brand, "brand", "", "only this brand")
	cmd.Flags().Float64Var(&minRating, "min-rating", 0, "only records rated at least this")
	return cmd
}

func newRecordShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print one record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			r, err := a.records.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(c.out, r)
		},
	}
}

func newRecordDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a local record. Published copies stay in the feed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			if err := a.records.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			c.ui.Success("deleted %s", args[0])
			return nil
		},
	}
}

func newRecordPublishCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "publish ID",
		Short: "Publish a saved record to the discovery feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			out, err := a.publisher.PublishByID(cmd.Context(), args[0])
			if err != nil {
				return publishError(err)
			}
			return c.printPublished(out)
		},
	}
}

func (c *cli) printPublished(out *publisher.Outcome) error {
	if c.jsonOut {
		return printJSON(c.out, out.Result)
	}
	c.ui.Success("%s %s → %s", out.Result.Message, out.Record.ID, out.Result.RecordID)
	for _, w := range out.Result.Warnings {
		c.ui.Warning("%s", w)
	}
	return nil
}

func publishError(err error) error {
	if errors.Is(err, apperror.ErrUnauthenticated) {
		return fmt.Errorf("%w (run `brewlog login` first)", err)
	}
	return err
}
