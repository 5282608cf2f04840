package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/UnknownOlympus/tract/internal/metrics"
	"github.com/UnknownOlympus/tract/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newResolveCmd(a *app) *cobra.Command {
	var (
		address models.Address
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve one address to its census tract",
		Example: `  tract resolve --street "5801 S Ellis Ave" --city Chicago --state IL
  tract resolve --street "5801 S Ellis Ave" --city Chicago --state IL --json`,
		Args:    cobra.NoArgs,
		PreRunE: a.loadConfig,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// One-shot lookups are not journaled and their metrics are never exposed.
			svc, err := a.newService(metrics.NewMetrics(prometheus.NewRegistry()), nil)
			if err != nil {
				return err
			}

			resolution, err := svc.Resolve(cmd.Context(), address)
			if errors.Is(err, models.ErrNotFound) {
				fmt.Fprintf(cmd.ErrOrStderr(), "no result for %s\n", address.Query())
				return err
			}
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resolution)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), resolution.Block.Tract.String())
			return err
		},
	}

	cmd.Flags().StringVar(&address.Street, "street", "", "street address, e.g. \"5801 S Ellis Ave\"")
	cmd.Flags().StringVar(&address.City, "city", "", "city name")
	cmd.Flags().StringVar(&address.State, "state", "", "state name or postal code")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full resolution as JSON")
	_ = cmd.MarkFlagRequired("street")
	_ = cmd.MarkFlagRequired("city")
	_ = cmd.MarkFlagRequired("state")

	return cmd
}
