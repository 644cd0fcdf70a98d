// Command brewlog is the brewing log client.
//
//	brewlog login                 log in and cache the session
//	brewlog record new|list|...   manage local brew records
//	brewlog record publish ID     share a record to the discovery feed
//	brewlog bean ...              bean inventory
//	brewlog device ...            brewing equipment
//	brewlog feed                  browse the discovery feed
//	brewlog import FILE --key K   bulk import an exported feed
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sakif/brewlog/internal/ux"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		ux.New(os.Stderr).Error("brewlog: %v", err)
		os.Exit(1)
	}
}

// run executes one command line. The app is opened lazily by the first
// command that needs it and closed before run returns.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	c := &cli{in: in, out: out, errOut: errOut, ui: ux.New(out), status: ux.New(errOut)}
	defer c.close()

	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	return root.ExecuteContext(ctx)
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "brewlog",
		Short:         "Log coffee brews and share them to the discovery feed",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $BREWLOG_CONFIG or ./brewlog.yaml)")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "print JSON instead of tables")

	root.AddCommand(
		newLoginCmd(c),
		newLogoutCmd(c),
		newProfileCmd(c),
		newRecordCmd(c),
		newBeanCmd(c),
		newDeviceCmd(c),
		newFeedCmd(c),
		newImportCmd(c),
	)
	return root
}
