package execute

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/autokube/provisioner/internal/provisioning/fault"
	"github.com/autokube/provisioner/internal/provisioning/inventory"
)

const (
	// DefaultPlaybook is Kubespray's full cluster installation playbook.
	DefaultPlaybook    = "cluster.yml"
	ansiblePlaybook    = "ansible-playbook"
	hostKeyCheckingEnv = "ANSIBLE_HOST_KEY_CHECKING=False"
)

// PlaybookArgs returns the ansible-playbook argument vector for an inventory.
func PlaybookArgs(inventoryPath, playbook string) []string {
	return []string{"-i", inventoryPath, "--become", "--become-user=root", playbook}
}

func (e *Executor) runKubespray(ctx context.Context, req *Request, res *Result) error {
	hasPasswordHosts := slices.ContainsFunc(req.Targets.Hosts, func(h inventory.Host) bool { return h.Password })
	if err := e.checkTools(hasPasswordHosts); err != nil {
		return fault.New(fault.KindUnavailable, err)
	}

	// The inventory on disk may still list hosts the prober excluded.
	invPath, err := req.Targets.Write(req.InventoryDir)
	if err != nil {
		return fault.New(fault.KindExecution, err)
	}

	playbook := e.Playbook
	if playbook == "" {
		playbook = DefaultPlaybook
	}

	runCtx, cancel := context.WithTimeout(ctx, orDefault(e.KubesprayTimeout, defaultKubesprayTimeout))
	defer cancel()

	cmd := Command{
		Name:   ansiblePlaybook,
		Args:   PlaybookArgs(invPath, playbook),
		Dir:    e.KubesprayDir,
		Env:    append(req.Credentials.Env(), hostKeyCheckingEnv),
		Stream: e.Stream,
	}
	out, err := e.runner().Run(runCtx, cmd)
	res.Output = tail(string(out))
	if err == nil {
		return nil
	}

	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return fault.Newf(fault.KindTimeout, "%s %s did not finish within %s", ansiblePlaybook, filepath.Base(playbook), orDefault(e.KubesprayTimeout, defaultKubesprayTimeout)).
			WithOutput(res.Output)
	default:
		return fault.Newf(fault.KindExecution, "%s %s: %w", ansiblePlaybook, filepath.Base(playbook), err).
			WithOutput(res.Output)
	}
}

// maxOutput bounds the captured output kept in results and errors.
const maxOutput = 64 << 10

func tail(s string) string {
	if len(s) <= maxOutput {
		return s
	}
	return fmt.Sprintf("...(%d bytes truncated)\n%s", len(s)-maxOutput, s[len(s)-maxOutput:])
}
