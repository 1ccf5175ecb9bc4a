// Package config provides a reusable loader for node configuration files and
// environment variables.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/stark-stack/core/pkg/utils"
)

// Config is the unified configuration for a node binary (katana, torii,
// saya, or sozo). Each binary only reads the sections it needs; unused
// sections are left at their zero value.
type Config struct {
	Chain struct {
		ID               string `mapstructure:"id" json:"id"`
		GasPrice         uint64 `mapstructure:"gas_price" json:"gas_price"`
		SequencerAddress string `mapstructure:"sequencer_address" json:"sequencer_address"`
		RPCListenAddr    string `mapstructure:"rpc_listen_addr" json:"rpc_listen_addr"`
		InMemoryLimit    int    `mapstructure:"in_memory_limit" json:"in_memory_limit"`
		MinInMemoryLimit int    `mapstructure:"min_in_memory_limit" json:"min_in_memory_limit"`
	} `mapstructure:"chain" json:"chain"`

	Bridge struct {
		RPCURL          string `mapstructure:"rpc_url" json:"rpc_url"`
		PrivateKey      string `mapstructure:"private_key" json:"private_key"`
		ContractAddress string `mapstructure:"contract_address" json:"contract_address"`
		IntervalBlocks  uint64 `mapstructure:"interval_blocks" json:"interval_blocks"`
		FromBlock       uint64 `mapstructure:"from_block" json:"from_block"`
	} `mapstructure:"bridge" json:"bridge"`

	Pipeline struct {
		ChunkSize uint64 `mapstructure:"chunk_size" json:"chunk_size"`
	} `mapstructure:"pipeline" json:"pipeline"`

	Store struct {
		DBPath       string `mapstructure:"db_path" json:"db_path"`
		WorldAddress string `mapstructure:"world_address" json:"world_address"`
	} `mapstructure:"store" json:"store"`

	Migration struct {
		ArtifactsDir string `mapstructure:"artifacts_dir" json:"artifacts_dir"`
		ProfileName  string `mapstructure:"profile_name" json:"profile_name"`
	} `mapstructure:"migration" json:"migration"`

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
// config files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	_ = godotenv.Load()

	viper.SetConfigName("default")
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

	viper.SetEnvPrefix("STARK")
	viper.AutomaticEnv() // picks up STARK_* overrides

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the STARK_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("STARK_ENV", ""))
}
