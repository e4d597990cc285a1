package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Timeouts bounds every blocking operation of a run.
// Each value can be overridden via AUTOKUBE_TIMEOUTS_<NAME> (e.g. AUTOKUBE_TIMEOUTS_HELM=10m).
type Timeouts struct {
	Fetch      time.Duration `mapstructure:"fetch"`      // descriptor GET including retries
	Report     time.Duration `mapstructure:"report"`     // status PUT including retries
	Kubeconfig time.Duration `mapstructure:"kubeconfig"` // admin.conf retrieval over SSH
	Helm       time.Duration `mapstructure:"helm"`       // chart install/upgrade with wait
	Kubespray  time.Duration `mapstructure:"kubespray"`  // full cluster.yml run
	Verify     time.Duration `mapstructure:"verify"`     // post-install node listing
	Lock       time.Duration `mapstructure:"lock"`       // waiting for a concurrent run of the same cluster

	RetryMaxAttempts  int           `mapstructure:"retry_max_attempts"`
	RetryInitialDelay time.Duration `mapstructure:"retry_initial_delay"`
}

func setTimeoutDefaults(v *viper.Viper) {
	d := DefaultTimeouts()
	v.SetDefault("timeouts.fetch", d.Fetch)
	v.SetDefault("timeouts.report", d.Report)
	v.SetDefault("timeouts.kubeconfig", d.Kubeconfig)
	v.SetDefault("timeouts.helm", d.Helm)
	v.SetDefault("timeouts.kubespray", d.Kubespray)
	v.SetDefault("timeouts.verify", d.Verify)
	v.SetDefault("timeouts.lock", d.Lock)
	v.SetDefault("timeouts.retry_max_attempts", d.RetryMaxAttempts)
	v.SetDefault("timeouts.retry_initial_delay", d.RetryInitialDelay)
}

// DefaultTimeouts returns the built-in timeout values.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Fetch:             30 * time.Second,
		Report:            30 * time.Second,
		Kubeconfig:        30 * time.Second,
		Helm:              300 * time.Second,
		Kubespray:         90 * time.Minute,
		Verify:            30 * time.Second,
		Lock:              10 * time.Minute,
		RetryMaxAttempts:  3,
		RetryInitialDelay: 1 * time.Second,
	}
}

func (t Timeouts) validate() error {
	for name, d := range map[string]time.Duration{
		"fetch":      t.Fetch,
		"report":     t.Report,
		"kubeconfig": t.Kubeconfig,
		"helm":       t.Helm,
		"kubespray":  t.Kubespray,
		"verify":     t.Verify,
		"lock":       t.Lock,
	} {
		if d <= 0 {
			return fmt.Errorf("timeouts.%s must be positive", name)
		}
	}
	if t.RetryMaxAttempts < 0 {
		return fmt.Errorf("timeouts.retry_max_attempts cannot be negative")
	}
	return nil
}
