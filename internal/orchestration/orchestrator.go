package orchestration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/autokube/provisioner/internal/config"
	"github.com/autokube/provisioner/internal/controlplane"
	"github.com/autokube/provisioner/internal/metrics"
	"github.com/autokube/provisioner/internal/platform/s3"
	"github.com/autokube/provisioner/internal/provisioning"
	"github.com/autokube/provisioner/internal/provisioning/execute"
	"github.com/autokube/provisioner/internal/provisioning/fault"
	"github.com/autokube/provisioner/internal/provisioning/probe"
	"github.com/autokube/provisioner/internal/provisioning/report"
	"github.com/autokube/provisioner/internal/util/naming"
	"github.com/autokube/provisioner/internal/util/retry"
)

// Mode selects how much of the pipeline a run executes.
type Mode string

const (
	// ModeProvision runs the full pipeline and reports the outcome.
	ModeProvision Mode = "provision"
	// ModeProbe stops after the connectivity probe.
	ModeProbe Mode = "probe"
	// ModeInventory only renders the inventory and overlays.
	ModeInventory Mode = "inventory"
)

// ParseMode validates a mode name. The empty string is ModeProvision.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeProvision:
		return ModeProvision, nil
	case ModeProbe, ModeInventory:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid mode: %s (valid: provision, probe, inventory)", s)
	}
}

func (m Mode) pipeline() *provisioning.Pipeline {
	switch m {
	case ModeProbe:
		return provisioning.NewPipeline(provisioning.ProbeOnlyPhases()...)
	case ModeInventory:
		return provisioning.NewPipeline(provisioning.InventoryOnlyPhases()...)
	default:
		return provisioning.NewPipeline(provisioning.ProvisionPhases()...)
	}
}

// StatusReporter sends the run outcome to the control plane.
// Implemented by report.Reporter.
type StatusReporter interface {
	Report(ctx context.Context, o report.Outcome) (*report.Delivery, error)
}

// ReportArchiver stores encoded reports. Implemented by report.Archiver.
type ReportArchiver interface {
	Archive(ctx context.Context, clusterID, runID string, data []byte) (string, error)
}

// ReportHistory reads archived reports back. report.Archiver implements it;
// an Archiver that does not is write-only.
type ReportHistory interface {
	Fetch(ctx context.Context, clusterID, runID string, v any) error
	Runs(ctx context.Context, clusterID string) ([]string, error)
}

// Request identifies one run.
type Request struct {
	ClusterID string
	Mode      Mode
	// RunID is generated when empty.
	RunID string
}

// Orchestrator runs the provisioning pipeline for one cluster at a time
// per cluster. It is safe for concurrent use.
type Orchestrator struct {
	Config   *config.Config
	Fetcher  provisioning.DescriptorFetcher
	Prober   provisioning.ConnectivityProber
	Executor provisioning.RemoteExecutor
	Reporter StatusReporter
	// Archiver is optional.
	Archiver ReportArchiver
	Observer provisioning.Observer

	EnableMetrics bool
}

// Options tune NewFromConfig.
type Options struct {
	Observer provisioning.Observer
	// Stream receives installer output while it runs.
	Stream        io.Writer
	EnableMetrics bool
}

// NewFromConfig wires the production collaborators from cfg.
func NewFromConfig(ctx context.Context, cfg *config.Config, opts Options) (*Orchestrator, error) {
	cp := controlplane.NewClient(cfg.APIURL, cfg.APIToken, controlplane.WithRetry(
		retry.WithMaxRetries(cfg.Timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(cfg.Timeouts.RetryInitialDelay),
	))

	exec := execute.New(execute.OptionsFromConfig(cfg))
	exec.Stream = opts.Stream

	o := &Orchestrator{
		Config:   cfg,
		Fetcher:  cp,
		Prober:   probe.New(cfg.Probe.Concurrency, cfg.Probe.Timeout),
		Executor: exec,
		Reporter: &report.Reporter{
			Client:         cp,
			ReportFailures: cfg.ReportFailures,
			Timeout:        cfg.Timeouts.Report,
		},
		Observer:      opts.Observer,
		EnableMetrics: opts.EnableMetrics,
	}

	if cfg.Archive.Enabled() {
		client, err := s3.NewClient(ctx, s3.Options{
			Endpoint:  cfg.Archive.Endpoint,
			Region:    cfg.Archive.Region,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			PathStyle: cfg.Archive.Endpoint != "",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create archive client: %w", err)
		}
		exists, err := client.BucketExists(ctx, cfg.Archive.Bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to check archive bucket: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("archive bucket %s does not exist", cfg.Archive.Bucket)
		}
		o.Archiver = &report.Archiver{Store: client, Bucket: cfg.Archive.Bucket, Prefix: cfg.Archive.Prefix}
	}

	return o, nil
}

func (o *Orchestrator) observer() provisioning.Observer {
	if o.Observer == nil {
		o.Observer = provisioning.NewLogrusObserver(nil)
	}
	return o.Observer
}

// Run executes one run of req.ClusterID. Runs of the same cluster are
// serialized; the caller blocks until the lock is free or Timeouts.Lock
// elapses.
//
// The report is returned whenever the lock was taken, also alongside the
// pipeline's error. Key files are removed on every exit path, including
// cancellation. In ModeProvision the outcome is reported to the control
// plane; a reporting failure is recorded in the report but never turns a
// successful run into a failed one.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*provisioning.Report, error) {
	if req.ClusterID == "" {
		return nil, fault.Newf(fault.KindFetch, "cluster id is required")
	}
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		return nil, err
	}
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	started := time.Now()
	obs := o.observer().WithFields(map[string]string{"cluster": req.ClusterID, "run": runID})
	dir := naming.ClusterDir(o.Config.WorkDir, req.ClusterID)

	lock, err := AcquireLock(ctx, dir, o.Config.Timeouts.Lock)
	if err != nil {
		if fault.IsKind(err, fault.KindUnavailable) {
			obs.Printf("cluster is busy with another run")
		}
		o.recordFailure("lock", err)
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			obs.Printf("failed to release lock: %v", err)
		}
	}()

	if o.EnableMetrics {
		metrics.RunStarted(req.ClusterID)
	}

	state := provisioning.NewState(req.ClusterID, runID, dir)
	pctx := provisioning.NewContext(ctx, o.Config, state, obs)
	pctx.Fetcher = o.Fetcher
	pctx.Prober = o.Prober
	pctx.Executor = o.Executor

	obs.Printf("Starting %s run %s for cluster %s", mode, runID, req.ClusterID)
	runErr := runPipeline(pctx, mode.pipeline())

	rep := provisioning.NewReport(state, started, runErr)
	if mode == ModeProvision {
		o.report(ctx, obs, rep)
	} else if runErr == nil {
		// Partial runs install nothing; completing them is their success.
		rep.Status = report.StatusSucceeded
	}
	o.persist(ctx, obs, dir, rep)
	o.recordRun(mode, rep)

	if runErr != nil {
		obs.Printf("Run %s failed: %v", runID, runErr)
	} else {
		obs.Printf("Run %s finished: %s", runID, rep.Status)
	}
	return rep, runErr
}

// runPipeline runs p and always removes materialized credentials.
func runPipeline(ctx *provisioning.Context, p *provisioning.Pipeline) error {
	defer func() {
		if err := ctx.State.Credentials.Cleanup(); err != nil {
			msg := fmt.Sprintf("credential cleanup incomplete: %v", err)
			ctx.State.Warn(msg)
			provisioning.LogWarning(ctx.Observer, provisioning.StageCredentials, msg)
		}
	}()
	return p.Run(ctx)
}

// report delivers the outcome. It runs detached from ctx's cancellation so a
// cancelled run can still be reported as failed.
func (o *Orchestrator) report(ctx context.Context, obs provisioning.Observer, rep *provisioning.Report) {
	if o.Reporter == nil {
		return
	}

	started := time.Now()
	delivery, err := o.Reporter.Report(context.WithoutCancel(ctx), rep.Outcome())
	rep.Delivery = delivery

	stage := provisioning.StageResult{
		Name:      provisioning.StageReport,
		Success:   err == nil,
		StartedAt: started,
		Duration:  time.Since(started),
	}
	if err != nil {
		stage.Error = err.Error()
		msg := fmt.Sprintf("status report failed, provisioning is not rolled back: %v", err)
		rep.Warnings = append(rep.Warnings, msg)
		obs.Event(provisioning.Event{
			Type:    provisioning.EventPhaseFailed,
			Phase:   provisioning.StageReport,
			Kind:    fault.KindReport,
			Message: msg,
		})
	} else if delivery != nil && delivery.Sent {
		obs.Printf("[%s] cluster marked %s", provisioning.StageReport, delivery.Status)
	} else if delivery != nil {
		obs.Printf("[%s] nothing reported: %s", provisioning.StageReport, delivery.Reason)
	}
	rep.Stages = append(rep.Stages, stage)

	if o.EnableMetrics && delivery != nil && (delivery.Sent || delivery.Error != "") {
		metrics.StatusReport(delivery.Sent)
	}
}

// persist archives the report when configured and writes report.json.
// Failures are logged only.
func (o *Orchestrator) persist(ctx context.Context, obs provisioning.Observer, dir string, rep *provisioning.Report) {
	if o.Archiver != nil {
		data, err := report.Encode(rep)
		if err == nil {
			rep.ArchiveURI, err = o.Archiver.Archive(context.WithoutCancel(ctx), rep.ClusterID, rep.RunID, data)
		}
		if err != nil {
			msg := fmt.Sprintf("report archive failed: %v", err)
			rep.Warnings = append(rep.Warnings, msg)
			provisioning.LogWarning(obs, provisioning.StageReport, msg)
		}
	}

	data, err := report.Encode(rep)
	if err != nil {
		obs.Printf("failed to encode report: %v", err)
		return
	}
	path, err := report.WriteFile(dir, data)
	if err != nil {
		obs.Printf("failed to write report: %v", err)
		return
	}
	obs.Printf("Report written to %s", path)
}

// Lookup returns the stored report of a finished run: the cluster's
// report.json when it belongs to runID, else the archived copy. A run found
// in neither place yields report.ErrNotFound.
func (o *Orchestrator) Lookup(ctx context.Context, clusterID, runID string) (*provisioning.Report, error) {
	var rep provisioning.Report
	err := report.ReadFile(naming.ClusterDir(o.Config.WorkDir, clusterID), &rep)
	switch {
	case err == nil && rep.RunID == runID:
		return &rep, nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}

	history, ok := o.Archiver.(ReportHistory)
	if !ok {
		return nil, fmt.Errorf("run %s of cluster %s: %w", runID, clusterID, report.ErrNotFound)
	}
	var archived provisioning.Report
	if err := history.Fetch(ctx, clusterID, runID, &archived); err != nil {
		return nil, err
	}
	return &archived, nil
}

// Runs lists the ids of a cluster's stored runs: every archived run, plus
// the run behind report.json.
func (o *Orchestrator) Runs(ctx context.Context, clusterID string) ([]string, error) {
	var ids []string
	if history, ok := o.Archiver.(ReportHistory); ok {
		archived, err := history.Runs(ctx, clusterID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, archived...)
	}

	var rep provisioning.Report
	err := report.ReadFile(naming.ClusterDir(o.Config.WorkDir, clusterID), &rep)
	switch {
	case err == nil && rep.RunID != "" && !slices.Contains(ids, rep.RunID):
		ids = append(ids, rep.RunID)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}
	slices.Sort(ids)
	return ids, nil
}

func (o *Orchestrator) recordRun(mode Mode, rep *provisioning.Report) {
	if !o.EnableMetrics {
		return
	}
	metrics.RunFinished(rep.ClusterID, string(mode), string(rep.Status), rep.Duration)
	for _, s := range rep.Stages {
		metrics.Stage(s.Name, s.Success, s.Duration)
	}
	for _, p := range rep.Probes {
		metrics.Probe(p.ControlPlane, p.Success)
	}
	if rep.Failure != nil {
		metrics.Failure(rep.Failure.Stage, string(rep.Failure.Kind))
	}
}

func (o *Orchestrator) recordFailure(stage string, err error) {
	if !o.EnableMetrics {
		return
	}
	kind, _ := fault.KindOf(err)
	metrics.Failure(stage, string(kind))
}
