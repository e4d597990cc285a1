package testing

import (
	"context"
	"testing"
	"time"

	"github.com/autokube/provisioner/internal/util/keygen"
)

// TestContext returns a context with a reasonable timeout for tests.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// PrivateKey returns a throwaway OpenSSH private key.
func PrivateKey(t *testing.T) string {
	t.Helper()
	kp, err := keygen.GenerateEd25519KeyPair()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return string(kp.PrivateKey)
}
