package cmd

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/opportunity-scout/internal/goal"
	"github.com/spigell/opportunity-scout/internal/scheduler"
	"github.com/spigell/opportunity-scout/internal/store"
)

const (
	app = "opportunity-scout"
)

type Config struct {
	Search      goal.Criteria     `mapstructure:"search"`
	Sources     []string          `mapstructure:"sources"`
	Limit       int               `mapstructure:"limit"`
	UserID      string            `mapstructure:"user-id"`
	ExcludeFile string            `mapstructure:"exclude-file"`
	Automation  *AutomationConfig `mapstructure:"automation"`
	Filters     *FiltersConfig    `mapstructure:"filters"`
	AI          *AIConfig         `mapstructure:"ai"`
	Store       *StoreConfig      `mapstructure:"store"`
	Watch       *WatchConfig      `mapstructure:"watch"`
}

type AutomationConfig struct {
	BaseURL        string        `mapstructure:"base-url"`
	APIKey         string        `mapstructure:"api-key"`
	APIKeyFile     string        `mapstructure:"api-key-file"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
	RunTimeout     time.Duration `mapstructure:"run-timeout"`
	Concurrency    int           `mapstructure:"concurrency"`
	BrowserProfile string        `mapstructure:"browser-profile"`
	StealthSources []string      `mapstructure:"stealth-sources"`
	Proxy          *ProxyConfig  `mapstructure:"proxy"`
	AgentMemory    bool          `mapstructure:"agent-memory"`
	Integration    string        `mapstructure:"integration"`
}

type ProxyConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	CountryCode string `mapstructure:"country-code"`
}

type FiltersConfig struct {
	ExcludeOrganizations []string `mapstructure:"exclude-organizations"`
	RedFlags             []string `mapstructure:"red-flags"`
	MinimumScore         float64  `mapstructure:"minimum-score"`
}

type AIConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Provider        string        `mapstructure:"provider"`
	MinimumFitScore float64       `mapstructure:"minimum-fit-score"`
	Profile         string        `mapstructure:"profile"`
	ProfileFile     string        `mapstructure:"profile-file"`
	Gemini          *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type StoreConfig struct {
	Driver      string `mapstructure:"driver"`
	File        string `mapstructure:"file"`
	DatabaseURL string `mapstructure:"database-url"`
	RedisURL    string `mapstructure:"redis-url"`
	Channel     string `mapstructure:"channel"`
}

type WatchConfig struct {
	Schedule string `mapstructure:"schedule"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "opportunity-scout searches job boards through a browser-automation service and collects matching opportunities",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"automation.api-key-file": "AUTOMATION_API_KEY_FILE",
		"ai.gemini.api-key-file":  "GEMINI_API_KEY_FILE",
		"store.database-url":      "DATABASE_URL",
		"store.redis-url":         "REDIS_URL",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("store.driver", store.DriverNone)
	viper.SetDefault("store.channel", store.DefaultChannel)
	viper.SetDefault("watch.schedule", scheduler.DefaultSpec)
	viper.SetDefault("limit", goal.DefaultLimit)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is opportunity-scout.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// The version command works without a config.
	if searchCmd.CalledAs() == "" && watchCmd.CalledAs() == "" {
		return
	}

	// Variables already set in the environment win over .env.
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
