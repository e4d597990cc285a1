package ssh

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/autokube/provisioner/internal/util/retry"
)

const (
	defaultPort        = 22
	defaultDialTimeout = 10 * time.Second
	defaultRetryDelay  = 2 * time.Second
	defaultMaxDelay    = 10 * time.Second
)

// Config holds SSH client configuration. Exactly one of PrivateKey and
// Password is required.
type Config struct {
	Host       string
	Port       int
	User       string
	PrivateKey []byte
	Password   string

	// DialTimeout is the timeout for establishing the TCP connection and
	// the SSH handshake. If zero, defaultDialTimeout is used.
	DialTimeout time.Duration

	// MaxRetries is the number of additional connection attempts after the
	// first one fails. Zero means a single attempt.
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts.
	// If zero, defaultRetryDelay is used.
	RetryDelay time.Duration

	// HostKeyCallback handles host key verification.
	// If nil, ssh.InsecureIgnoreHostKey() is used.
	HostKeyCallback ssh.HostKeyCallback
}

// Client executes commands on a remote server via SSH.
// It resolves authentication once during construction and
// creates connections on-demand per call.
type Client struct {
	config *Config
	auth   ssh.AuthMethod
}

// NewClient creates a new SSH client and validates its credentials.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if cfg.Host == "" {
		return nil, fmt.Errorf("config host cannot be empty")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("config user cannot be empty")
	}
	if len(cfg.PrivateKey) == 0 && cfg.Password == "" {
		return nil, fmt.Errorf("config needs a private key or a password")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("config max retries cannot be negative")
	}

	// Copy config to avoid mutating caller's struct
	configCopy := *cfg

	if configCopy.Port == 0 {
		configCopy.Port = defaultPort
	}
	if configCopy.DialTimeout == 0 {
		configCopy.DialTimeout = defaultDialTimeout
	}
	if configCopy.RetryDelay == 0 {
		configCopy.RetryDelay = defaultRetryDelay
	}
	if configCopy.HostKeyCallback == nil {
		configCopy.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // node keys are not known before provisioning
	}

	var auth ssh.AuthMethod
	if len(configCopy.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(configCopy.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = ssh.PublicKeys(signer)
	} else {
		auth = ssh.Password(configCopy.Password)
	}

	return &Client{
		config: &configCopy,
		auth:   auth,
	}, nil
}

// Addr returns the host:port the client dials.
func (c *Client) Addr() string {
	return net.JoinHostPort(c.config.Host, strconv.Itoa(c.config.Port))
}

// Execute runs a command on the remote host.
// Returns command output (stdout+stderr) and any execution error.
func (c *Client) Execute(ctx context.Context, command string) (string, error) {
	var out bytes.Buffer
	err := c.run(ctx, command, nil, &out, &out)
	return out.String(), err
}

// Output runs a command feeding stdin to it and returns stdout only.
// Stderr is included in the returned error when the command fails.
func (c *Client) Output(ctx context.Context, command string, stdin io.Reader) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	if err := c.run(ctx, command, stdin, &stdout, &stderr); err != nil {
		return stdout.Bytes(), fmt.Errorf("%w\nStderr: %s", err, stderr.String())
	}
	return stdout.Bytes(), nil
}

func (c *Client) run(ctx context.Context, command string, stdin io.Reader, stdout, stderr io.Writer) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create SSH session on %s: %w", c.config.Host, err)
	}
	defer func() { _ = session.Close() }()

	session.Stdin = stdin
	session.Stdout = stdout
	session.Stderr = stderr

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = client.Close()
		case <-done:
		}
	}()

	if err := session.Run(command); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("command aborted on %s: %w", c.config.Host, ctxErr)
		}
		return fmt.Errorf("command failed on %s: %w", c.config.Host, err)
	}
	return nil
}

// connect establishes SSH connection with retry logic.
func (c *Client) connect(ctx context.Context) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User:            c.config.User,
		Auth:            []ssh.AuthMethod{c.auth},
		HostKeyCallback: c.config.HostKeyCallback,
		Timeout:         c.config.DialTimeout,
	}

	addr := c.Addr()
	var client *ssh.Client

	err := retry.WithExponentialBackoff(ctx, func() error {
		var dialErr error
		client, dialErr = dial(ctx, addr, config)
		if isAuthError(dialErr) {
			return retry.Fatal(dialErr)
		}
		return dialErr
	},
		retry.WithMaxRetries(c.config.MaxRetries),
		retry.WithInitialDelay(c.config.RetryDelay),
		retry.WithMaxDelay(defaultMaxDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to establish SSH connection to %s: %w", addr, err)
	}

	return client, nil
}

// dial is ssh.Dial with the TCP connect and handshake bound to ctx.
func dial(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := dialCtx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(sshConn, chans, reqs), nil
}

// isAuthError reports handshake failures caused by rejected credentials,
// which retrying cannot fix.
func isAuthError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "unable to authenticate")
}
