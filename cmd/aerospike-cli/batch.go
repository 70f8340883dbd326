package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aerospike-core/client/core"
)

func runBatchGet(cmd *cobra.Command, args []string) error {
	binNames, _ := cmd.Flags().GetStringSlice("bin")
	keys := make([]core.Key, len(args))
	for i, a := range args {
		k, err := core.NewKey(flagNamespace, flagSet, core.StringValue(a))
		if err != nil {
			return err
		}
		keys[i] = k
	}

	policy := core.DefaultBatchPolicy()
	policy.Policy = policyFromConfig(sess.cfg)
	if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
		policy.MaxConcurrentThreads = n
	}

	results, err := core.BatchGet(context.Background(), sess.cluster, policy, keys, binNames, sess.deps)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: error: %v\n", keyLabel(r.Key), r.Err)
			continue
		}
		if r.Record == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: not found\n", keyLabel(r.Key))
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", keyLabel(r.Key))
		printRecord(cmd, *r.Record)
	}
	return nil
}

var batchGetCmd = &cobra.Command{
	Use:   "batch-get <user-key> [user-key...]",
	Short: "Fetch several records in one fanned-out request",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBatchGet,
}

func init() {
	batchGetCmd.Flags().StringSlice("bin", nil, "bin names to fetch (default: all bins)")
	batchGetCmd.Flags().Int("concurrency", 0, "max concurrent per-node requests (default: policy default)")
}
