package overlay

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/autokube/provisioner/internal/addons/helm"
	"github.com/autokube/provisioner/internal/provisioning/fault"
	"github.com/autokube/provisioner/internal/topology"
	"github.com/autokube/provisioner/internal/util/fileutil"
)

// GroupVarsDir is where Kubespray reads cluster-wide variables, relative to
// an inventory directory.
const GroupVarsDir = "group_vars/k8s_cluster"

// SampleInventoryDir is the inventory shipped inside a Kubespray checkout.
const SampleInventoryDir = "inventory/sample"

const (
	CoreTemplate   = "k8s-cluster.yml"
	AddonsTemplate = "addons.yml"
)

// Template is one base file and the overrides derived for it.
type Template struct {
	Name     string
	Required bool
	Values   func(*topology.ClusterDescriptor) helm.Values
}

// Templates lists the files the engine manages, core first.
var Templates = []Template{
	{Name: CoreTemplate, Required: true, Values: CoreValues},
	{Name: AddonsTemplate, Required: false, Values: AddonValues},
}

// Engine merges descriptor overrides onto base templates.
type Engine struct {
	// TemplateDir holds the base templates, normally
	// <kubespray>/inventory/sample/group_vars/k8s_cluster.
	TemplateDir string
	// OutputDir receives the merged files, normally
	// <inventory-dir>/group_vars/k8s_cluster.
	OutputDir string
}

// NewEngine returns an engine reading the sample templates of a Kubespray
// checkout and writing into an inventory directory.
func NewEngine(kubesprayDir, inventoryDir string) *Engine {
	return &Engine{
		TemplateDir: filepath.Join(kubesprayDir, SampleInventoryDir, GroupVarsDir),
		OutputDir:   filepath.Join(inventoryDir, GroupVarsDir),
	}
}

// Overlay is the outcome of applying the engine.
type Overlay struct {
	// Files maps template name to the merged values written for it.
	Files map[string]helm.Values
	// Paths lists written files in template order.
	Paths []string
	// Warnings describes skipped optional templates.
	Warnings []string
}

// Apply reads every template, merges the descriptor's overrides and writes the
// result. A missing or unreadable required template is a KindOverlay error and
// nothing is written.
func (e *Engine) Apply(d *topology.ClusterDescriptor) (*Overlay, error) {
	out := &Overlay{Files: make(map[string]helm.Values, len(Templates))}

	for _, tmpl := range Templates {
		base, err := e.readTemplate(tmpl.Name)
		if err != nil {
			if tmpl.Required || !errors.Is(err, fs.ErrNotExist) {
				return nil, fault.New(fault.KindOverlay, err)
			}
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("template %s not found in %s, skipping its overlay", tmpl.Name, e.TemplateDir))
			continue
		}
		out.Files[tmpl.Name] = helm.Merge(base, tmpl.Values(d))
	}

	if err := os.MkdirAll(e.OutputDir, 0o750); err != nil {
		return nil, fault.Newf(fault.KindOverlay, "failed to create %s: %w", e.OutputDir, err)
	}
	for _, tmpl := range Templates {
		values, ok := out.Files[tmpl.Name]
		if !ok {
			continue
		}
		data, err := values.ToYAML()
		if err != nil {
			return nil, fault.Newf(fault.KindOverlay, "%s: %w", tmpl.Name, err)
		}
		path := filepath.Join(e.OutputDir, tmpl.Name)
		if err := fileutil.WriteAtomic(path, data, 0o640); err != nil {
			return nil, fault.New(fault.KindOverlay, err)
		}
		out.Paths = append(out.Paths, path)
	}

	return out, nil
}

func (e *Engine) readTemplate(name string) (helm.Values, error) {
	path := filepath.Join(e.TemplateDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}
	values, err := helm.FromYAML(data)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	return values, nil
}
