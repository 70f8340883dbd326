package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aerospike-core/client/core"
)

func runDelete(cmd *cobra.Command, args []string) error {
	key, err := core.NewKey(flagNamespace, flagSet, core.StringValue(args[0]))
	if err != nil {
		return err
	}
	policy := core.DefaultWritePolicy()
	policy.Policy = policyFromConfig(sess.cfg)
	dc := core.NewDeleteCommand(sess.cluster, policy, key, sess.deps)
	if err := dc.Execute(context.Background()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "existed=%t\n", dc.Existed)
	return nil
}

var deleteCmd = &cobra.Command{
	Use:   "delete <user-key>",
	Short: "Delete a record by key",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}
