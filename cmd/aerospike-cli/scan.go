package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aerospike-core/client/core"
)

func runScan(cmd *cobra.Command, args []string) error {
	binNames, _ := cmd.Flags().GetStringSlice("bin")
	set := flagSet
	if len(args) > 0 {
		set = args[0]
	}

	policy := core.DefaultScanPolicy()
	policy.Policy = policyFromConfig(sess.cfg)
	if max, _ := cmd.Flags().GetInt64("max-records"); max > 0 {
		policy.MaxRecords = max
	}

	count := 0
	err := core.Scan(context.Background(), []*core.Node{sess.node}, policy, flagNamespace, set, binNames,
		func(rec core.Record) error {
			count++
			fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", keyLabel(rec.Key))
			printRecord(cmd, rec)
			return nil
		}, sess.deps)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "scanned %d records\n", count)
	return nil
}

var scanCmd = &cobra.Command{
	Use:   "scan [set]",
	Short: "Stream every record in a namespace (optionally scoped to a set)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringSlice("bin", nil, "bin names to fetch (default: all bins)")
	scanCmd.Flags().Int64("max-records", 0, "stop after this many records (0 = unbounded)")
}
