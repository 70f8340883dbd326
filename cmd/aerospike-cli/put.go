package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aerospike-core/client/core"
)

// binFile is the shape of a --from-file bin document: a flat map of bin
// name to scalar value. loadBinFile keeps YAML's own scalar typing
// (integer, float, bool, string); any other value is stored as its %v
// string. parseBinFlag's integer-or-string guessing is not applied here.
type binFile map[string]any

func loadBinFile(path string) (map[string]core.Value, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bin file: %w", err)
	}
	var doc binFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse bin file %s: %w", path, err)
	}
	bins := make(map[string]core.Value, len(doc))
	for name, v := range doc {
		switch tv := v.(type) {
		case int:
			bins[name] = core.IntegerValue(int64(tv))
		case int64:
			bins[name] = core.IntegerValue(tv)
		case float64:
			bins[name] = core.FloatValue(tv)
		case bool:
			bins[name] = core.BoolValue(tv)
		case string:
			bins[name] = core.StringValue(tv)
		default:
			bins[name] = core.StringValue(fmt.Sprintf("%v", tv))
		}
	}
	return bins, nil
}

// parseBinFlag splits a "name=value" flag into a bin name and a Value,
// guessing integer vs. string from the value's own syntax since the CLI
// has no schema to consult.
func parseBinFlag(raw string) (string, core.Value, error) {
	parts := strings.SplitN(raw, "=", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", core.Value{}, fmt.Errorf("bin flag %q must be name=value", raw)
	}
	if n, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
		return parts[0], core.IntegerValue(n), nil
	}
	return parts[0], core.StringValue(parts[1]), nil
}

func runPut(cmd *cobra.Command, args []string) error {
	key, err := core.NewKey(flagNamespace, flagSet, core.StringValue(args[0]))
	if err != nil {
		return err
	}
	fromFile, _ := cmd.Flags().GetString("from-file")
	var bins map[string]core.Value
	if fromFile != "" {
		bins, err = loadBinFile(fromFile)
		if err != nil {
			return err
		}
	} else {
		bins = make(map[string]core.Value)
	}
	raw, _ := cmd.Flags().GetStringSlice("bin")
	for _, r := range raw {
		name, v, err := parseBinFlag(r)
		if err != nil {
			return err
		}
		bins[name] = v
	}

	policy := core.DefaultWritePolicy()
	policy.Policy = policyFromConfig(sess.cfg)
	wc := core.NewWriteCommand(sess.cluster, policy, key, bins, sess.deps)
	if err := wc.Execute(context.Background()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}

var putCmd = &cobra.Command{
	Use:   "put <user-key>",
	Short: "Write one or more bins to a record",
	Args:  cobra.ExactArgs(1),
	RunE:  runPut,
}

func init() {
	putCmd.Flags().StringSlice("bin", nil, "bin=value pairs to write, repeatable")
	putCmd.Flags().String("from-file", "", "YAML file of bin: value pairs to write, merged under --bin overrides")
}
