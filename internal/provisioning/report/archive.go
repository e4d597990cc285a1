package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/autokube/provisioner/internal/platform/s3"
	"github.com/autokube/provisioner/internal/provisioning/fault"
	"github.com/autokube/provisioner/internal/util/fileutil"
	"github.com/autokube/provisioner/internal/util/naming"
)

// Encode renders a report as indented JSON.
func Encode(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteFile stores an encoded report as dir/report.json.
func WriteFile(dir string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fault.Newf(fault.KindReport, "failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, naming.ReportFile)
	if err := fileutil.WriteAtomic(path, data, 0o640); err != nil {
		return "", fault.New(fault.KindReport, err)
	}
	return path, nil
}

// ReadFile loads dir/report.json into v.
func ReadFile(dir string, v any) error {
	data, err := os.ReadFile(filepath.Join(dir, naming.ReportFile))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode report: %w", err)
	}
	return nil
}

// ErrNotFound is returned when no stored report matches a run.
var ErrNotFound = errors.New("report not found")

// ObjectStore stores and retrieves objects. Implemented by s3.Client.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
}

// Archiver uploads reports to bucket under prefix/<cluster-id>/<run-id>.json.
type Archiver struct {
	Store  ObjectStore
	Bucket string
	Prefix string
}

// Archive uploads one report and returns its s3:// URI.
func (a *Archiver) Archive(ctx context.Context, clusterID, runID string, data []byte) (string, error) {
	key := naming.ReportObjectKey(a.Prefix, clusterID, runID)
	if err := a.Store.PutObject(ctx, a.Bucket, key, data, "application/json"); err != nil {
		return "", fault.New(fault.KindReport, err)
	}
	return fmt.Sprintf("s3://%s/%s", a.Bucket, key), nil
}

// Fetch downloads the archived report of one run into v. A run that was
// never archived yields ErrNotFound.
func (a *Archiver) Fetch(ctx context.Context, clusterID, runID string, v any) error {
	data, err := a.Store.GetObject(ctx, a.Bucket, naming.ReportObjectKey(a.Prefix, clusterID, runID))
	if err != nil {
		if errors.Is(err, s3.ErrNotFound) {
			return fmt.Errorf("run %s of cluster %s: %w", runID, clusterID, ErrNotFound)
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode archived report: %w", err)
	}
	return nil
}

// Runs lists the ids of the archived runs of a cluster, sorted.
func (a *Archiver) Runs(ctx context.Context, clusterID string) ([]string, error) {
	prefix := naming.ReportObjectPrefix(a.Prefix, clusterID)
	keys, err := a.Store.ListObjects(ctx, a.Bucket, prefix)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		id, ok := strings.CutSuffix(strings.TrimPrefix(key, prefix), naming.ReportObjectExt)
		if !ok || id == "" || strings.Contains(id, "/") {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
