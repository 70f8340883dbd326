package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aerospike-core/client/core"
)

func adminClient() *core.AdminClient {
	policy := core.DefaultAdminPolicy()
	if sess.cfg.Admin.TimeoutMS > 0 {
		policy.Timeout = msToDuration(sess.cfg.Admin.TimeoutMS)
	}
	return core.NewAdminClient(sess.node, policy)
}

func runAdminCreateUser(cmd *cobra.Command, args []string) error {
	roles, _ := cmd.Flags().GetStringSlice("role")
	if err := adminClient().CreateUser(context.Background(), args[0], args[1], roles); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "user created")
	return nil
}

func runAdminDropUser(cmd *cobra.Command, args []string) error {
	if err := adminClient().DropUser(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "user dropped")
	return nil
}

func runAdminGrantRoles(cmd *cobra.Command, args []string) error {
	if err := adminClient().GrantRoles(context.Background(), args[0], args[1:]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "roles granted")
	return nil
}

func runAdminRevokeRoles(cmd *cobra.Command, args []string) error {
	if err := adminClient().RevokeRoles(context.Background(), args[0], args[1:]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "roles revoked")
	return nil
}

func runAdminQueryUsers(cmd *cobra.Command, args []string) error {
	filter := ""
	if len(args) > 0 {
		filter = args[0]
	}
	users, err := adminClient().QueryUsers(context.Background(), filter)
	if err != nil {
		return err
	}
	for _, u := range users {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", u.Name, u.Roles)
	}
	return nil
}

func runAdminQueryRoles(cmd *cobra.Command, _ []string) error {
	roles, err := adminClient().QueryRoles(context.Background())
	if err != nil {
		return err
	}
	for _, r := range roles {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", r.Name, r.Privileges)
	}
	return nil
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage users and roles via the admin sub-protocol",
}

func init() {
	createUser := &cobra.Command{
		Use:   "create-user <user> <password>",
		Args:  cobra.ExactArgs(2),
		RunE:  runAdminCreateUser,
	}
	createUser.Flags().StringSlice("role", nil, "role to grant at creation, repeatable")

	adminCmd.AddCommand(createUser)
	adminCmd.AddCommand(&cobra.Command{
		Use:  "drop-user <user>",
		Args: cobra.ExactArgs(1),
		RunE: runAdminDropUser,
	})
	adminCmd.AddCommand(&cobra.Command{
		Use:  "grant-roles <user> <role> [role...]",
		Args: cobra.MinimumNArgs(2),
		RunE: runAdminGrantRoles,
	})
	adminCmd.AddCommand(&cobra.Command{
		Use:  "revoke-roles <user> <role> [role...]",
		Args: cobra.MinimumNArgs(2),
		RunE: runAdminRevokeRoles,
	})
	adminCmd.AddCommand(&cobra.Command{
		Use:  "query-users [user]",
		Args: cobra.MaximumNArgs(1),
		RunE: runAdminQueryUsers,
	})
	adminCmd.AddCommand(&cobra.Command{
		Use:  "query-roles",
		Args: cobra.NoArgs,
		RunE: runAdminQueryRoles,
	})
}
