package helm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/release"
	"helm.sh/helm/v3/pkg/storage/driver"
)

// DefaultTimeout bounds a single install or upgrade including the wait for
// the release's resources.
const DefaultTimeout = 5 * time.Minute

// LogFunc receives helm's debug output.
type LogFunc func(format string, v ...any)

// Client provides Helm operations using in-memory kubeconfig.
type Client struct {
	namespace    string
	timeout      time.Duration
	log          LogFunc
	settings     *cli.EnvSettings
	actionConfig *action.Configuration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the install/upgrade timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger routes helm's debug output to fn.
func WithLogger(fn LogFunc) ClientOption {
	return func(c *Client) {
		if fn != nil {
			c.log = fn
		}
	}
}

// NewClient creates a Helm client from kubeconfig bytes.
func NewClient(kubeconfig []byte, namespace string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		namespace: namespace,
		timeout:   DefaultTimeout,
		log:       func(string, ...any) {},
		settings:  cli.New(),
	}
	for _, opt := range opts {
		opt(c)
	}

	actionConfig := new(action.Configuration)
	restGetter := NewInMemoryRESTClientGetter(kubeconfig, namespace)
	if err := actionConfig.Init(restGetter, namespace, "secret", func(format string, v ...interface{}) {
		c.log(format, v...)
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize helm action config: %w", err)
	}

	c.actionConfig = actionConfig
	return c, nil
}

// InstallOrUpgrade installs the chart at chartRef as releaseName, or upgrades
// the release when it already exists. chartRef is an archive URL or a local path.
func (c *Client) InstallOrUpgrade(ctx context.Context, releaseName, chartRef string, values Values) (*release.Release, error) {
	ch, err := LoadChart(c.settings, chartRef)
	if err != nil {
		return nil, err
	}

	exists, err := c.ReleaseExists(releaseName)
	if err != nil {
		return nil, err
	}
	if exists {
		return c.upgrade(ctx, releaseName, ch, values)
	}
	return c.install(ctx, releaseName, ch, values)
}

func (c *Client) install(ctx context.Context, releaseName string, ch *chart.Chart, values Values) (*release.Release, error) {
	installClient := action.NewInstall(c.actionConfig)
	installClient.ReleaseName = releaseName
	installClient.Namespace = c.namespace
	installClient.CreateNamespace = true
	installClient.Wait = true
	installClient.Timeout = c.timeout

	rel, err := installClient.RunWithContext(ctx, ch, values)
	if err != nil {
		return nil, fmt.Errorf("failed to install release %s: %w", releaseName, err)
	}
	return rel, nil
}

func (c *Client) upgrade(ctx context.Context, releaseName string, ch *chart.Chart, values Values) (*release.Release, error) {
	upgradeClient := action.NewUpgrade(c.actionConfig)
	upgradeClient.Namespace = c.namespace
	upgradeClient.Wait = true
	upgradeClient.Timeout = c.timeout
	upgradeClient.ReuseValues = false

	rel, err := upgradeClient.RunWithContext(ctx, releaseName, ch, values)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade release %s: %w", releaseName, err)
	}
	return rel, nil
}

// ReleaseExists checks if a release exists.
func (c *Client) ReleaseExists(releaseName string) (bool, error) {
	histClient := action.NewHistory(c.actionConfig)
	histClient.Max = 1
	if _, err := histClient.Run(releaseName); err != nil {
		if errors.Is(err, driver.ErrReleaseNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read history of release %s: %w", releaseName, err)
	}
	return true, nil
}

// LoadChart loads a chart archive. References with a URL scheme are fetched
// through helm's getters, anything else is read from the local filesystem.
func LoadChart(settings *cli.EnvSettings, ref string) (*chart.Chart, error) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" {
		ch, err := loader.Load(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to load chart %s: %w", ref, err)
		}
		return ch, nil
	}

	g, err := getter.All(settings).ByScheme(u.Scheme)
	if err != nil {
		return nil, fmt.Errorf("no getter for chart %s: %w", ref, err)
	}
	buf, err := g.Get(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to download chart %s: %w", ref, err)
	}
	ch, err := loader.LoadArchive(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart %s: %w", ref, err)
	}
	return ch, nil
}
