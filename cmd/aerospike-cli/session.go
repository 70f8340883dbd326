package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aerospike-core/client/core"
	"github.com/aerospike-core/client/pkg/config"
)

// session bundles the collaborators every subcommand needs: a single seed
// node wrapped in a Cluster, and the deps bundle every core command takes.
// Built once in a PersistentPreRunE and shared by the whole invocation,
// mirroring the teacher's connpool command's cpInit/cpOnce shape.
type session struct {
	node    *core.Node
	cluster core.Cluster
	deps    core.CommandDeps
	cfg     *config.Config
}

var (
	sess     *session
	sessOnce sync.Once
	sessErr  error

	flagSeed      string
	flagNamespace string
	flagSet       string
)

// singleNodeCluster adapts one already-dialed Node into core.Cluster. This
// CLI never discovers topology — it is handed one seed address on the
// command line, the same "cluster is an external collaborator" boundary
// spec'd for the core package itself.
type singleNodeCluster struct{ node *core.Node }

func (c singleNodeCluster) NodeFor(core.Partition) (*core.Node, error) { return c.node, nil }

func sessionInit(cmd *cobra.Command, _ []string) error {
	sessOnce.Do(func() {
		cfg, err := config.LoadFromEnv()
		if err != nil {
			logrus.WithError(err).Warn("aerospike-cli: no config file found, using flag/env defaults")
			cfg = &config.AppConfig
		}

		log := logrus.StandardLogger()
		if lvl, parseErr := logrus.ParseLevel(cfg.Logging.Level); parseErr == nil {
			log.SetLevel(lvl)
		}

		seed := flagSeed
		if seed == "" && len(cfg.Cluster.Seeds) > 0 {
			seed = cfg.Cluster.Seeds[0]
		}
		if seed == "" {
			sessErr = fmt.Errorf("aerospike-cli: no seed address given, pass --seed or set cluster.seeds")
			return
		}

		dialer := core.NewDialer(5*time.Second, 30*time.Second)
		poolCfg := core.PoolConfig{
			MaxIdle:          cfg.Pool.MaxIdle,
			IdleTimeout:      time.Duration(cfg.Pool.IdleTimeoutMS) * time.Millisecond,
			MaxConnsInFlight: cfg.Pool.MaxConnsInFlight,
			Clock:            clock.New(),
			Logger:           log,
		}
		node := core.NewNode(seed, seed, dialer, poolCfg)

		sess = &session{
			node:    node,
			cluster: singleNodeCluster{node: node},
			cfg:     cfg,
			deps: core.CommandDeps{
				Clock:   clock.New(),
				Metrics: core.NewMetrics(prometheus.NewRegistry()),
				Log:     log,
			},
		}
	})
	return sessErr
}

// policyFromConfig builds a core.Policy seeded from the loaded config,
// overridden by nothing yet (per-command flags layer on top as needed).
func policyFromConfig(cfg *config.Config) core.Policy {
	p := core.DefaultPolicy()
	if cfg.Policy.SocketTimeoutMS > 0 {
		p.SocketTimeout = time.Duration(cfg.Policy.SocketTimeoutMS) * time.Millisecond
	}
	if cfg.Policy.TotalTimeoutMS > 0 {
		p.TotalTimeout = time.Duration(cfg.Policy.TotalTimeoutMS) * time.Millisecond
	}
	if cfg.Policy.TimeoutDelayMS > 0 {
		p.TimeoutDelay = time.Duration(cfg.Policy.TimeoutDelayMS) * time.Millisecond
	}
	if cfg.Policy.MaxRetries > 0 {
		p.MaxRetries = cfg.Policy.MaxRetries
	}
	if cfg.Policy.SleepBetweenRetriesMS > 0 {
		p.SleepBetweenRetries = time.Duration(cfg.Policy.SleepBetweenRetriesMS) * time.Millisecond
	}
	p.Compress = cfg.Policy.Compress
	return p
}

func msToDuration(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
