package ssh

import (
	"fmt"
	"io"
	"net"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/autokube/provisioner/internal/util/keygen"
)

// execResult is what the test server answers to an exec request.
type execResult struct {
	stdout, stderr string
	code           uint32
}

type execHandler func(command string, stdin []byte) execResult

// startTestServer runs an in-process SSH server accepting the given password
// or public key and answering exec requests with handler.
func startTestServer(t *testing.T, password string, authorized ssh.PublicKey, handler execHandler) (host string, port int) {
	t.Helper()

	hostKey, err := keygen.GenerateEd25519KeyPair()
	if err != nil {
		t.Fatalf("host key: %v", err)
	}
	signer, err := ssh.ParsePrivateKey(hostKey.PrivateKey)
	if err != nil {
		t.Fatalf("parse host key: %v", err)
	}

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(_ ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if password != "" && string(pass) == password {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected")
		},
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if authorized != nil && string(key.Marshal()) == string(authorized.Marshal()) {
				return nil, nil
			}
			return nil, fmt.Errorf("key rejected")
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveConn(conn, cfg, handler)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port
}

func serveConn(conn net.Conn, cfg *ssh.ServerConfig, handler execHandler) {
	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		_ = conn.Close()
		return
	}
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "only sessions")
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			continue
		}
		go serveSession(ch, chReqs, handler)
	}
}

func serveSession(ch ssh.Channel, reqs <-chan *ssh.Request, handler execHandler) {
	defer func() { _ = ch.Close() }()
	for req := range reqs {
		if req.Type != "exec" {
			_ = req.Reply(false, nil)
			continue
		}
		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			_ = req.Reply(false, nil)
			return
		}
		_ = req.Reply(true, nil)

		stdin, _ := io.ReadAll(ch)
		res := handler(payload.Command, stdin)
		_, _ = io.WriteString(ch, res.stdout)
		_, _ = io.WriteString(ch.Stderr(), res.stderr)
		_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{res.code}))
		return
	}
}
