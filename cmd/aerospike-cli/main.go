// Command aerospike-cli is a thin operator tool over the command execution
// core: point it at one seed node and issue single-key, batch, scan, admin
// and transaction operations from the shell.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	root := &cobra.Command{
		Use:               "aerospike-cli",
		Short:             "Operate an Aerospike-wire cluster from the command line",
		PersistentPreRunE: sessionInit,
		SilenceUsage:      true,
	}
	root.PersistentFlags().StringVar(&flagSeed, "seed", "", "seed node address, host:port (overrides config)")
	root.PersistentFlags().StringVar(&flagNamespace, "namespace", "test", "namespace")
	root.PersistentFlags().StringVar(&flagSet, "set", "", "set name")

	root.AddCommand(getCmd, putCmd, deleteCmd, batchGetCmd, scanCmd, adminCmd, txnCmd)

	if err := root.Execute(); err != nil {
		logrus.WithError(err).Error("aerospike-cli: command failed")
		os.Exit(1)
	}
}
