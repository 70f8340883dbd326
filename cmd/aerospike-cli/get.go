package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aerospike-core/client/core"
)

func runGet(cmd *cobra.Command, args []string) error {
	key, err := core.NewKey(flagNamespace, flagSet, core.StringValue(args[0]))
	if err != nil {
		return err
	}
	binNames, _ := cmd.Flags().GetStringSlice("bin")

	rc := core.NewReadCommand(sess.cluster, policyFromConfig(sess.cfg), key, binNames, sess.deps)
	if err := rc.Execute(context.Background()); err != nil {
		return err
	}
	if rc.Record == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "record not found")
		return nil
	}
	printRecord(cmd, *rc.Record)
	return nil
}

// keyLabel renders a key for CLI output. Keys carry no exported string
// accessor (only their digest identity matters on the wire), so this
// reconstructs a human label from what the caller already gave us.
func keyLabel(k core.Key) string {
	return fmt.Sprintf("%s/%s/%s", k.Namespace, k.Set, k.UserKey.String())
}

func printRecord(cmd *cobra.Command, rec core.Record) {
	fmt.Fprintf(cmd.OutOrStdout(), "generation=%d expiration=%d\n", rec.Generation, rec.Expiration)
	for name, v := range rec.Bins {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", name, v.String())
	}
}

var getCmd = &cobra.Command{
	Use:   "get <user-key>",
	Short: "Fetch a single record by key",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().StringSlice("bin", nil, "bin names to fetch (default: all bins)")
}
