package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autokube/provisioner/internal/platform/s3"
	"github.com/autokube/provisioner/internal/provisioning/fault"
)

type sample struct {
	RunID   string `json:"runId"`
	Outcome string `json:"outcome"`
}

func TestWriteAndReadFile(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "c1")

	data, err := Encode(sample{RunID: "r1", Outcome: "succeeded"})
	require.NoError(t, err)

	path, err := WriteFile(dir, data)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.json"), path)

	var got sample
	require.NoError(t, ReadFile(dir, &got))
	assert.Equal(t, sample{RunID: "r1", Outcome: "succeeded"}, got)
}

func TestReadFile_Missing(t *testing.T) {
	t.Parallel()
	var got sample
	err := ReadFile(t.TempDir(), &got)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

type fakeStore struct {
	bucket, key, contentType string
	data                     []byte
	err                      error

	objects    map[string][]byte
	listPrefix string
}

func (f *fakeStore) PutObject(_ context.Context, bucket, key string, data []byte, contentType string) error {
	f.bucket, f.key, f.data, f.contentType = bucket, key, data, contentType
	return f.err
}

func (f *fakeStore) GetObject(_ context.Context, _, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, s3.ErrNotFound)
	}
	return data, nil
}

func (f *fakeStore) ListObjects(_ context.Context, _, prefix string) ([]string, error) {
	f.listPrefix = prefix
	if f.err != nil {
		return nil, f.err
	}
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func TestArchiver_Archive(t *testing.T) {
	t.Parallel()
	store := &fakeStore{}
	a := &Archiver{Store: store, Bucket: "runs", Prefix: "reports"}

	uri, err := a.Archive(context.Background(), "c1", "r1", []byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, "s3://runs/reports/c1/r1.json", uri)
	assert.Equal(t, "reports/c1/r1.json", store.key)
	assert.Equal(t, "application/json", store.contentType)
	assert.Equal(t, []byte("{}"), store.data)
}

func TestArchiver_Failure(t *testing.T) {
	t.Parallel()
	a := &Archiver{Store: &fakeStore{err: errors.New("access denied")}, Bucket: "runs"}

	_, err := a.Archive(context.Background(), "c1", "r1", nil)
	assert.True(t, fault.IsKind(err, fault.KindReport))
}

func TestArchiver_Fetch(t *testing.T) {
	t.Parallel()
	store := &fakeStore{objects: map[string][]byte{
		"reports/c1/r1.json": []byte(`{"runId":"r1","outcome":"failed"}`),
	}}
	a := &Archiver{Store: store, Bucket: "runs", Prefix: "reports"}

	var got sample
	require.NoError(t, a.Fetch(context.Background(), "c1", "r1", &got))
	assert.Equal(t, sample{RunID: "r1", Outcome: "failed"}, got)

	err := a.Fetch(context.Background(), "c1", "r2", &got)
	assert.ErrorIs(t, err, ErrNotFound)

	store.err = errors.New("access denied")
	err = a.Fetch(context.Background(), "c1", "r1", &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestArchiver_Runs(t *testing.T) {
	t.Parallel()
	store := &fakeStore{objects: map[string][]byte{
		"reports/c1/r2.json":        nil,
		"reports/c1/r1.json":        nil,
		"reports/c1/nested/r3.json": nil,
		"reports/c1/notes.txt":      nil,
		"reports/c10/r9.json":       nil,
	}}
	a := &Archiver{Store: store, Bucket: "runs", Prefix: "reports"}

	ids, err := a.Runs(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, ids)
	assert.Equal(t, "reports/c1/", store.listPrefix, "the trailing slash keeps c10 out")
}
