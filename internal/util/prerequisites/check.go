// Package prerequisites checks that the external installer tools a run
// shells out to are present on the operator host.
package prerequisites

import (
	"fmt"
	"os/exec"
	"strings"
)

// Tool represents a client tool that may be required.
type Tool struct {
	// Name is the binary name to look for in PATH.
	Name string

	// Required indicates if this tool is mandatory.
	Required bool

	// Description explains what the tool is used for.
	Description string

	// InstallURL provides a URL for installation instructions.
	InstallURL string
}

// lookPath resolves binaries; replaced in tests.
var lookPath = exec.LookPath

// KubesprayTools returns the tools needed for a full Kubespray install.
func KubesprayTools() []Tool {
	return []Tool{
		{
			Name:        "ansible-playbook",
			Required:    true,
			Description: "Runs the Kubespray cluster.yml playbook",
			InstallURL:  "https://kubespray.io/#/docs/ansible/ansible",
		},
	}
}

// PasswordAuthTools returns the tools Ansible needs to log in with passwords.
func PasswordAuthTools() []Tool {
	return []Tool{
		{
			Name:        "sshpass",
			Required:    true,
			Description: "Lets Ansible's ssh connection authenticate with a password",
			InstallURL:  "https://docs.ansible.com/ansible/latest/inventory_guide/connection_details.html",
		},
	}
}

// CheckResult contains the result of checking a single tool.
type CheckResult struct {
	Tool  Tool
	Found bool
	Path  string
}

// CheckResults contains the results of checking multiple tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors returns true if any required tools are missing.
func (r *CheckResults) HasErrors() bool {
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	return false
}

// Error returns an error if any required tools are missing.
func (r *CheckResults) Error() error {
	if !r.HasErrors() {
		return nil
	}
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			missing = append(missing, fmt.Sprintf("%s (%s)", tool.Name, tool.InstallURL))
		}
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

// Check verifies that the specified tools are available.
func Check(tools []Tool) *CheckResults {
	results := &CheckResults{}

	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		path, err := lookPath(tool.Name)
		if err == nil {
			result.Found = true
			result.Path = path
		} else {
			results.Missing = append(results.Missing, tool)
		}

		results.Results = append(results.Results, result)
	}

	return results
}

// CheckKubespray checks the tools needed for the Kubespray strategy.
// passwordAuth adds the tools required when any host logs in with a password.
func CheckKubespray(passwordAuth bool) *CheckResults {
	tools := KubesprayTools()
	if passwordAuth {
		tools = append(tools, PasswordAuthTools()...)
	}
	return Check(tools)
}
