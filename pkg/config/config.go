// Package config provides a reusable loader for aerospike-core client
// configuration files and environment variables. It is versioned so that
// applications can depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/aerospike-core/client/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for a client instance. It mirrors
// the structure of the YAML files under cmd/config.
type Config struct {
	Cluster struct {
		Seeds       []string `mapstructure:"seeds" json:"seeds"`
		DefaultPort int      `mapstructure:"default_port" json:"default_port"`
	} `mapstructure:"cluster" json:"cluster"`

	Policy struct {
		SocketTimeoutMS       int    `mapstructure:"socket_timeout_ms" json:"socket_timeout_ms"`
		TotalTimeoutMS        int    `mapstructure:"total_timeout_ms" json:"total_timeout_ms"`
		TimeoutDelayMS        int    `mapstructure:"timeout_delay_ms" json:"timeout_delay_ms"`
		MaxRetries            int    `mapstructure:"max_retries" json:"max_retries"`
		SleepBetweenRetriesMS int    `mapstructure:"sleep_between_retries_ms" json:"sleep_between_retries_ms"`
		Replica               string `mapstructure:"replica" json:"replica"`
		Compress              bool   `mapstructure:"compress" json:"compress"`
	} `mapstructure:"policy" json:"policy"`

	Write struct {
		GenerationPolicy   string `mapstructure:"generation_policy" json:"generation_policy"`
		RecordExistsAction string `mapstructure:"record_exists_action" json:"record_exists_action"`
		CommitLevel        string `mapstructure:"commit_level" json:"commit_level"`
		DurableDelete      bool   `mapstructure:"durable_delete" json:"durable_delete"`
		RespondAllOps      bool   `mapstructure:"respond_all_ops" json:"respond_all_ops"`
	} `mapstructure:"write" json:"write"`

	Batch struct {
		MaxConcurrentThreads int  `mapstructure:"max_concurrent_threads" json:"max_concurrent_threads"`
		AllowInline          bool `mapstructure:"allow_inline" json:"allow_inline"`
		AllowProleReads      bool `mapstructure:"allow_prole_reads" json:"allow_prole_reads"`
		SendSetName          bool `mapstructure:"send_set_name" json:"send_set_name"`
		RespondAllKeys       bool `mapstructure:"respond_all_keys" json:"respond_all_keys"`
	} `mapstructure:"batch" json:"batch"`

	Scan struct {
		ConcurrentNodes  bool  `mapstructure:"concurrent_nodes" json:"concurrent_nodes"`
		MaxRecords       int64 `mapstructure:"max_records" json:"max_records"`
		RecordsPerSecond int   `mapstructure:"records_per_second" json:"records_per_second"`
		IncludeBinData   bool  `mapstructure:"include_bin_data" json:"include_bin_data"`
	} `mapstructure:"scan" json:"scan"`

	Admin struct {
		TimeoutMS int `mapstructure:"timeout_ms" json:"timeout_ms"`
	} `mapstructure:"admin" json:"admin"`

	Pool struct {
		MaxIdle          int `mapstructure:"max_idle" json:"max_idle"`
		IdleTimeoutMS    int `mapstructure:"idle_timeout_ms" json:"idle_timeout_ms"`
		MaxConnsInFlight int `mapstructure:"max_conns_in_flight" json:"max_conns_in_flight"`
	} `mapstructure:"pool" json:"pool"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment-specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
//
// The function uses the provided environment name to merge additional
// config files. If env is empty, only the default configuration is
// loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up from .env

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the AEROSPIKE_CLIENT_ENV
// environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("AEROSPIKE_CLIENT_ENV", ""))
}
