package main

import (
	"github.com/spf13/cobra"

	"github.com/sakif/brewlog/internal/model"
)

func newDeviceCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "device",
		Aliases: []string{"devices"},
		Short:   "Manage brewing equipment",
	}
	cmd.AddCommand(
		newDeviceListCmd(c),
		newDeviceAddCmd(c),
		newDeviceDefaultCmd(c),
		newDeviceDeleteCmd(c),
	)
	return cmd
}

func newDeviceListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List equipment grouped by type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			groups, err := a.devices.Groups(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOut {
				return printJSON(c.out, groups)
			}
			var rows [][]string
			for _, g := range groups {
				for _, d := range g.Devices {
					mark := ""
					if d.IsDefault {
						mark = "*"
					}
					rows = append(rows, []string{g.Label, d.ID, d.Name, d.Brand, d.Model, mark})
				}
			}
			c.ui.Table([]string{"GROUP", "ID", "NAME", "BRAND", "MODEL", "DEFAULT"}, rows)
			return nil
		},
	}
}

func newDeviceAddCmd(c *cli) *cobra.Command {
	var (
		d   model.Device
		typ string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a device, or update one with --id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			d.Type = model.DeviceType(typ)
			saved, err := a.devices.Upsert(cmd.Context(), d)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return printJSON(c.out, saved)
			}
			c.ui.Success("saved %s (%s, default %t)", saved.ID, saved.Name, saved.IsDefault)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&d.ID, "id", "", "update this device instead of adding one")
	fs.StringVar(&typ, "type", string(model.DeviceTypePourOver), "pour_over, espresso, grinder or other")
	fs.StringVar(&d.Name, "name", "", "device name")
	fs.StringVar(&d.Brand, "brand", "", "brand")
	fs.StringVar(&d.Model, "model", "", "model")
	fs.StringVar(&d.Notes, "notes", "", "notes")
	fs.BoolVar(&d.IsDefault, "default", false, "make this the default of its type")
	return cmd
}

func newDeviceDefaultCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "default ID",
		Short: "Make a device the default of its type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			if _, err := a.devices.SetDefault(cmd.Context(), args[0]); err != nil {
				return err
			}
			c.ui.Success("default set to %s", args[0])
			return nil
		},
	}
}

func newDeviceDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Remove a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd)
			if err != nil {
				return err
			}
			if err := a.devices.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			c.ui.Success("deleted %s", args[0])
			return nil
		},
	}
}
