package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "lead-responder"
	envPrefix = "LEAD_RESPONDER"
)

type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server"`
	AI         AIConfig         `mapstructure:"ai"`
	Evaluation EvaluationConfig `mapstructure:"evaluation"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Address     string   `mapstructure:"address"`
	CORSOrigins []string `mapstructure:"cors-origins"`
}

type AIConfig struct {
	// Provider is xai, gemini or none.
	Provider     string        `mapstructure:"provider"`
	Model        string        `mapstructure:"model"`
	APIKey       string        `mapstructure:"api-key"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	BaseURL      string        `mapstructure:"base-url"`
	MaxRetries   int           `mapstructure:"max-retries"`
	Backoff      time.Duration `mapstructure:"backoff"`
	MaxLogLength int           `mapstructure:"max-log-length"`
}

type EvaluationConfig struct {
	Delay        time.Duration `mapstructure:"delay"`
	FixturesFile string        `mapstructure:"fixtures-file"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "lead-responder scores, qualifies and tracks sales leads",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is lead-responder.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("db", "", "path to the SQLite database")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", app+".db")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.cors-origins", []string{"http://localhost:3000"})
	v.SetDefault("ai.provider", "xai")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.api-key", "")
	v.SetDefault("ai.api-key-file", "")
	v.SetDefault("ai.base-url", "")
	v.SetDefault("ai.max-retries", 3)
	v.SetDefault("ai.backoff", time.Second)
	v.SetDefault("ai.max-log-length", 200)
	v.SetDefault("evaluation.delay", 500*time.Millisecond)
	v.SetDefault("evaluation.fixtures-file", "")
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The file is optional unless it was requested explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			cobra.CheckErr(fmt.Errorf("reading config: %w", err))
		}
	}
}

func getConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if config.Database.Path == "" {
		return nil, errors.New("database.path must not be empty")
	}

	return &config, nil
}
