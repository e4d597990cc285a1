// Package credentials turns node auth specs into credentials usable for one
// provisioning run.
//
// Passwords stay in memory. Private keys are written below the run's keys
// directory with owner-only permissions and removed by [Set.Cleanup], which
// callers must defer on every exit path.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/autokube/provisioner/internal/provisioning/fault"
	"github.com/autokube/provisioner/internal/topology"
	"github.com/autokube/provisioner/internal/util/keygen"
	"github.com/autokube/provisioner/internal/util/naming"
)

const (
	keyFileMode = 0o600
	keyDirMode  = 0o700
)

// Credential is a resolved, ready-to-use login for one node.
type Credential struct {
	Node     string
	User     string
	AuthType topology.AuthType

	// KeyPath is the materialized private key, set for SSH_KEY nodes.
	KeyPath     string
	Fingerprint string

	password   string
	privateKey []byte
	become     string
}

// Password returns the in-memory SSH password.
func (c *Credential) Password() string { return c.password }

// PrivateKey returns the private key bytes.
func (c *Credential) PrivateKey() []byte { return c.privateKey }

// BecomePassword returns the sudo password, or "" for passwordless sudo.
func (c *Credential) BecomePassword() string { return c.become }

// String redacts secrets.
func (c *Credential) String() string {
	if c.KeyPath != "" {
		return fmt.Sprintf("%s@%s key=%s (%s)", c.User, c.Node, c.KeyPath, c.Fingerprint)
	}
	return fmt.Sprintf("%s@%s password=<redacted>", c.User, c.Node)
}

// Materializer writes key material for a run.
type Materializer struct {
	// KeysDir receives one key file per SSH_KEY node.
	KeysDir string
}

// NewMaterializer creates a Materializer writing into keysDir.
func NewMaterializer(keysDir string) *Materializer {
	return &Materializer{KeysDir: keysDir}
}

// Materialize resolves credentials for nodes, named by names (index-aligned).
// Nodes whose auth settings are unusable are left out of the returned Set and
// reported as node-scoped KindCredential errors joined together. The Set is
// always non-nil so the caller can clean up whatever was written.
func (m *Materializer) Materialize(nodes []topology.NodeSpec, names []string) (*Set, error) {
	set := &Set{creds: make(map[string]*Credential, len(nodes))}
	if len(names) != len(nodes) {
		return set, fault.Newf(fault.KindCredential, "got %d names for %d nodes", len(names), len(nodes))
	}

	var errs []error
	for i, node := range nodes {
		cred, err := m.materialize(set, node, names[i])
		if err != nil {
			errs = append(errs, fault.OnNode(fault.KindCredential, names[i], err))
			continue
		}
		set.add(cred)
	}

	return set, errors.Join(errs...)
}

func (m *Materializer) materialize(set *Set, node topology.NodeSpec, name string) (*Credential, error) {
	cred := &Credential{
		Node:     name,
		User:     node.Username,
		AuthType: node.AuthType,
		become:   node.BecomePassword,
	}

	switch node.AuthType {
	case topology.AuthPassword:
		if node.Password == "" {
			return nil, fmt.Errorf("auth type PASSWORD requires a password")
		}
		cred.password = node.Password
		if cred.become == "" {
			cred.become = node.Password
		}
		return cred, nil

	case topology.AuthSSHKey:
		key := strings.TrimSpace(node.SSHKey)
		if key == "" {
			return nil, fmt.Errorf("auth type SSH_KEY requires a private key")
		}
		keyBytes := []byte(key + "\n")

		fingerprint, err := keygen.Fingerprint(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("unusable private key: %w", err)
		}

		path, err := m.writeKey(set, name, keyBytes)
		if err != nil {
			return nil, err
		}
		cred.KeyPath = path
		cred.Fingerprint = fingerprint
		cred.privateKey = keyBytes
		return cred, nil

	default:
		return nil, fmt.Errorf("unsupported auth type %q", node.AuthType)
	}
}

func (m *Materializer) writeKey(set *Set, name string, key []byte) (string, error) {
	if err := os.MkdirAll(m.KeysDir, keyDirMode); err != nil {
		return "", fmt.Errorf("failed to create keys directory: %w", err)
	}

	path := filepath.Join(m.KeysDir, naming.KeyFile(name))
	if set.hasFile(path) {
		return "", fmt.Errorf("key path %s already used by another node", path)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, keyFileMode)
	if err != nil {
		return "", fmt.Errorf("failed to create key file: %w", err)
	}
	// Record before writing so a partial file is still cleaned up.
	set.trackFile(path)

	if _, err := f.Write(key); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write key file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close key file: %w", err)
	}
	// OpenFile honours umask only on creation; force the mode on reuse.
	if err := os.Chmod(path, keyFileMode); err != nil {
		return "", fmt.Errorf("failed to restrict key file permissions: %w", err)
	}
	return path, nil
}

// Set owns the credentials of one run.
type Set struct {
	mu    sync.Mutex
	creds map[string]*Credential
	order []string
	files []string
}

func (s *Set) add(c *Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[c.Node] = c
	s.order = append(s.order, c.Node)
}

func (s *Set) trackFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, path)
}

func (s *Set) hasFile(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		if f == path {
			return true
		}
	}
	return false
}

// Get returns the credential for node name.
func (s *Set) Get(name string) (*Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.creds[name]
	return c, ok
}

// Len returns the number of usable credentials.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Files returns the key files written so far.
func (s *Set) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.files...)
}

// Env returns NAME=value pairs carrying passwords to an installer
// subprocess. Variable names come from naming.PasswordEnv and naming.BecomeEnv.
func (s *Set) Env() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var env []string
	for _, name := range s.order {
		c := s.creds[name]
		if c.password != "" {
			env = append(env, naming.PasswordEnv(name)+"="+c.password)
		}
		if c.become != "" {
			env = append(env, naming.BecomeEnv(name)+"="+c.become)
		}
	}
	return env
}

// Cleanup removes every materialized key file. It is safe to call more than once.
func (s *Set) Cleanup() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	files := s.files
	s.files = nil
	s.mu.Unlock()

	var errs []error
	for _, f := range files {
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", f, err))
		}
	}
	return errors.Join(errs...)
}
