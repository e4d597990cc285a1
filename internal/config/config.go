package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for all environment overrides.
const EnvPrefix = "AUTOKUBE"

// ErrMissingToken is returned when no control-plane API token is configured.
var ErrMissingToken = errors.New("api token is required (set AUTOKUBE_API_TOKEN or INTERNAL_API_TOKEN)")

// Strategy selects how the remote executor installs the cluster.
type Strategy string

const (
	// StrategyAuto picks Helm when the KubeSphere app is enabled, Kubespray otherwise.
	StrategyAuto Strategy = "auto"
	// StrategyHelm always bootstraps via the Helm chart on the first control-plane node.
	StrategyHelm Strategy = "helm"
	// StrategyKubespray always runs the full Kubespray playbook.
	StrategyKubespray Strategy = "kubespray"
)

// Config is the resolved runtime configuration.
type Config struct {
	APIURL         string   `mapstructure:"api_url"`
	APIToken       string   `mapstructure:"api_token"`
	WorkDir        string   `mapstructure:"work_dir"`
	KubesprayDir   string   `mapstructure:"kubespray_dir"`
	Strategy       Strategy `mapstructure:"strategy"`
	ReportFailures bool     `mapstructure:"report_failures"`
	VerifyNodes    bool     `mapstructure:"verify_nodes"`

	Log      LogConfig     `mapstructure:"log"`
	Probe    ProbeConfig   `mapstructure:"probe"`
	Helm     HelmConfig    `mapstructure:"helm"`
	Archive  ArchiveConfig `mapstructure:"archive"`
	Serve    ServeConfig   `mapstructure:"serve"`
	Timeouts Timeouts      `mapstructure:"timeouts"`
}

// LogConfig controls the logrus logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// ProbeConfig controls the connectivity prober.
type ProbeConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// HelmConfig describes the chart installed by the Helm strategy.
type HelmConfig struct {
	ChartURL  string `mapstructure:"chart_url"`
	Release   string `mapstructure:"release"`
	Namespace string `mapstructure:"namespace"`
}

// ArchiveConfig configures optional upload of run reports to S3-compatible storage.
// Archiving is disabled when Bucket is empty.
type ArchiveConfig struct {
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// Enabled reports whether report archiving is configured.
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// ServeConfig configures the run server.
type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "http://localhost:3000")
	v.SetDefault("api_token", "")
	v.SetDefault("work_dir", "/var/lib/autokube")
	v.SetDefault("kubespray_dir", "/opt/kubespray")
	v.SetDefault("strategy", string(StrategyAuto))
	v.SetDefault("report_failures", false)
	v.SetDefault("verify_nodes", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("probe.concurrency", 8)
	v.SetDefault("probe.timeout", 10*time.Second)

	v.SetDefault("helm.chart_url", "https://charts.kubesphere.io/main/ks-core-1.1.4.tgz")
	v.SetDefault("helm.release", "ks-core")
	v.SetDefault("helm.namespace", "kubesphere-system")

	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "reports")
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.access_key", "")
	v.SetDefault("archive.secret_key", "")

	v.SetDefault("serve.addr", ":8080")

	setTimeoutDefaults(v)
}

// Load resolves configuration from defaults, the optional file at path and
// the environment, then validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The control plane's own deployment exports INTERNAL_API_TOKEN.
	if err := v.BindEnv("api_token", EnvPrefix+"_API_TOKEN", "INTERNAL_API_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind api token env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for values that would make every run fail.
func (c *Config) Validate() error {
	if c.APIToken == "" {
		return ErrMissingToken
	}

	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api_url %q: must be an absolute http(s) URL", c.APIURL)
	}

	if c.WorkDir == "" {
		return fmt.Errorf("work_dir is required")
	}

	switch c.Strategy {
	case StrategyAuto, StrategyHelm, StrategyKubespray:
	default:
		return fmt.Errorf("invalid strategy: %s (valid: auto, helm, kubespray)", c.Strategy)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.Log.Format)
	}

	if c.Probe.Concurrency < 1 {
		return fmt.Errorf("probe.concurrency must be at least 1, got %d", c.Probe.Concurrency)
	}
	if c.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive")
	}

	if c.Helm.ChartURL == "" || c.Helm.Release == "" || c.Helm.Namespace == "" {
		return fmt.Errorf("helm.chart_url, helm.release and helm.namespace are required")
	}

	if c.Archive.Enabled() && (c.Archive.AccessKey == "") != (c.Archive.SecretKey == "") {
		return fmt.Errorf("archive.access_key and archive.secret_key must be set together")
	}

	return c.Timeouts.validate()
}
