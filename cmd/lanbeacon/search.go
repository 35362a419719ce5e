package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Soyunomas/lanbeacon/internal/session"
)

func searchCmd(a *app) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Buscar sesiones en la LAN",
		Long:  `Difunde una consulta y lista las sesiones que respondan antes del timeout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if timeout > 0 {
				a.cfg.QueryTimeout.Duration = timeout
			}
			e, err := a.engine()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			results, err := e.Search(ctx)
			printResults(cmd.OutOrStdout(), results)
			return err
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "Sobrescribe query_timeout")

	return cmd
}

func printResults(out io.Writer, results []session.Result) {
	if len(results) == 0 {
		fmt.Fprintln(out, "No se encontraron sesiones.")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tOWNER\tHOST\tBUILD\tPUBLIC\tPRIVATE\tPING\tSETTINGS")
	for _, r := range results {
		adv := r.Advertisement
		settings := ""
		for i, s := range adv.Settings.All() {
			if i > 0 {
				settings += " "
			}
			settings += s.Key + "=" + s.Value.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d/%d\t%d/%d\t%s\t%s\n",
			adv.SessionID,
			adv.OwnerName,
			adv.HostAddr,
			adv.BuildID,
			adv.NumOpenPublicConnections, adv.NumPublicConnections,
			adv.NumOpenPrivateConnections, adv.NumPrivateConnections,
			r.Ping.Round(time.Millisecond),
			settings,
		)
	}
	tw.Flush()
}
