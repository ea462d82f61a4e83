package app

import (
	stderrors "errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/scansync/pkg/constants"
	"github.com/agentstation/scansync/pkg/errors"
)

// EnvPrefix prefixes every environment variable scansync reads,
// e.g. SCANSYNC_BACKEND or SCANSYNC_DOWNLOAD_DIR.
const EnvPrefix = "SCANSYNC"

// Configuration keys. Each is also the name of the matching flag.
const (
	KeyConfig           = "config"
	KeyVerbose          = "verbose"
	KeyQuiet            = "quiet"
	KeyNoColor          = "no-color"
	KeyFormat           = "format"
	KeyLogLevel         = "log-level"
	KeyLogFormat        = "log-format"
	KeyLogOutput        = "log-output"
	KeyManifestURL      = "manifest-url"
	KeyDownloadDir      = "download-dir"
	KeyBackend          = "backend"
	KeyCatalog          = "catalog"
	KeyClassifier       = "classifier"
	KeyAlgorithm        = "algorithm"
	KeyReuseLocal       = "reuse-local"
	KeyTimeout          = "timeout"
	KeyDownloadTimeout  = "download-timeout"
	KeyUserAgent        = "user-agent"
	KeyAuth             = "auth"
	KeyAuthSecret       = "auth-secret"
	KeyWatchInterval    = "watch-interval"
	KeyElasticAddresses = "elastic-addresses"
	KeyElasticIndex     = "elastic-index"
	KeyElasticUsername  = "elastic-username"
	KeyElasticPassword  = "elastic-password"
	KeyElasticAPIKey    = "elastic-api-key"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Reconciliation
	ManifestURL     string
	DownloadDir     string
	Algorithm       string
	ReuseLocal      bool
	Timeout         time.Duration
	DownloadTimeout time.Duration
	UserAgent       string
	AuthScheme      string
	AuthSecret      string
	WatchInterval   time.Duration

	// Catalog backend
	Backend          string
	CatalogPath      string
	Classifier       string
	ElasticAddresses []string
	ElasticIndex     string
	ElasticUsername  string
	ElasticPassword  string
	ElasticAPIKey    string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// newViper creates a viper instance reading SCANSYNC_ environment
// variables, with every default set.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyManifestURL, constants.DefaultManifestURL)
	v.SetDefault(KeyDownloadDir, ".")
	v.SetDefault(KeyBackend, "files")
	v.SetDefault(KeyAlgorithm, "sha1")
	v.SetDefault(KeyAuth, "bearer")
	v.SetDefault(KeyReuseLocal, true)
	v.SetDefault(KeyTimeout, constants.DefaultHTTPTimeout)
	v.SetDefault(KeyDownloadTimeout, constants.DownloadTimeout)
	v.SetDefault(KeyUserAgent, constants.DefaultUserAgent)
	v.SetDefault(KeyWatchInterval, constants.DefaultWatchInterval)
	v.SetDefault(KeyElasticAddresses, []string{constants.DefaultElasticsearchURL})
	v.SetDefault(KeyElasticIndex, constants.DefaultIndex)
	v.SetDefault(KeyLogFormat, "auto")
	v.SetDefault(KeyLogOutput, "stderr")
	return v
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (bound to v by the root command)
// 2. SCANSYNC_ environment variables
// 3. .env files
// 4. Config file (--config, or .scansync.yaml in $HOME or the working directory)
// 5. Defaults
func LoadConfig(v *viper.Viper) (*Config, error) {
	// Load .env files first so AutomaticEnv sees them
	loadEnvFiles()

	if configFile := v.GetString(KeyConfig); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "cannot read "+configFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".scansync")

		// A missing config file is fine, a broken one is not
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !stderrors.As(err, &notFound) {
				return nil, errors.NewConfigError("config", "cannot parse config file", err)
			}
		}
	}

	return &Config{
		Verbose: v.GetBool(KeyVerbose),
		Quiet:   v.GetBool(KeyQuiet),
		NoColor: v.GetBool(KeyNoColor),
		Format:  v.GetString(KeyFormat),

		ConfigFile: v.ConfigFileUsed(),

		ManifestURL:     v.GetString(KeyManifestURL),
		DownloadDir:     v.GetString(KeyDownloadDir),
		Algorithm:       v.GetString(KeyAlgorithm),
		ReuseLocal:      v.GetBool(KeyReuseLocal),
		Timeout:         v.GetDuration(KeyTimeout),
		DownloadTimeout: v.GetDuration(KeyDownloadTimeout),
		UserAgent:       v.GetString(KeyUserAgent),
		AuthScheme:      v.GetString(KeyAuth),
		AuthSecret:      v.GetString(KeyAuthSecret),
		WatchInterval:   v.GetDuration(KeyWatchInterval),

		Backend:          v.GetString(KeyBackend),
		CatalogPath:      v.GetString(KeyCatalog),
		Classifier:       v.GetString(KeyClassifier),
		ElasticAddresses: splitList(v.GetStringSlice(KeyElasticAddresses)),
		ElasticIndex:     v.GetString(KeyElasticIndex),
		ElasticUsername:  v.GetString(KeyElasticUsername),
		ElasticPassword:  v.GetString(KeyElasticPassword),
		ElasticAPIKey:    v.GetString(KeyElasticAPIKey),

		LogLevel:  v.GetString(KeyLogLevel),
		LogFormat: v.GetString(KeyLogFormat),
		LogOutput: v.GetString(KeyLogOutput),
	}, nil
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// .env.local overrides .env
	envFiles := []string{
		".env",
		".env.local",
	}

	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
