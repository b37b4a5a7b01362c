package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/smartintern/internal/filtering"
	"github.com/spigell/smartintern/internal/server"
)

const (
	app = "smartintern"
)

type Config struct {
	Server    server.Config   `mapstructure:"server"`
	AI        AIConfig        `mapstructure:"ai"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Ranking   RankingConfig   `mapstructure:"ranking"`
	Filters   FiltersConfig   `mapstructure:"filters"`
}

type AIConfig struct {
	Provider       string        `mapstructure:"provider"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
	MaxLogLength   int           `mapstructure:"max-log-length"`
	Gemini         GeminiConfig  `mapstructure:"gemini"`
	OpenAI         OpenAIConfig  `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type OpenAIConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	BaseURL    string `mapstructure:"base-url"`
	Model      string `mapstructure:"model"`
}

type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Cache      CacheConfig   `mapstructure:"cache"`
}

type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addrs    []string      `mapstructure:"addrs"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type JobsConfig struct {
	APIKeyFile string        `mapstructure:"api-key-file"`
	BaseURL    string        `mapstructure:"base-url"`
	Host       string        `mapstructure:"host"`
	NumPages   int           `mapstructure:"num-pages"`
	DatePosted string        `mapstructure:"date-posted"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type RankingConfig struct {
	TopK int `mapstructure:"top-k"`
}

type FiltersConfig struct {
	filtering.Config `mapstructure:",squash"`
	Disabled         []string `mapstructure:"disabled"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "smartintern parses resumes, chats about job preferences and ranks matching job postings",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"ai.openai.api-key-file": "OPENAI_API_KEY_FILE",
		"jobs.api-key-file":      "JSEARCH_API_KEY_FILE",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is smartintern.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("server.address", ":8000")
	viper.SetDefault("server.read-timeout", "30s")
	viper.SetDefault("server.write-timeout", "180s")
	viper.SetDefault("server.shutdown-timeout", "15s")
	viper.SetDefault("server.max-upload-bytes", 10<<20)

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.request-timeout", "60s")
	viper.SetDefault("ai.max-log-length", 500)
	viper.SetDefault("ai.gemini.max-retries", 1)

	viper.SetDefault("embedding.provider", "openai")
	viper.SetDefault("embedding.timeout", "60s")
	viper.SetDefault("embedding.cache.ttl", "168h")

	viper.SetDefault("jobs.num-pages", 1)
	viper.SetDefault("jobs.date-posted", "all")
	viper.SetDefault("jobs.timeout", "30s")

	viper.SetDefault("ranking.top-k", 5)
}

func initConfig() {
	// version does not need a config.
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Without an explicit --config the defaults and environment are enough.
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
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
