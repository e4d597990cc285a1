package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// testClient creates a Client backed by a test HTTP server.
// The handler receives real S3 XML-protocol requests.
func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(server.URL),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("test-key", "test-secret", ""),
		HTTPClient: &http.Client{
			Transport: &http.Transport{},
		},
	})

	return &Client{s3: client, region: "us-east-1"}
}

// xmlResponse is a helper to write S3-style XML responses.
func xmlResponse(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(body))
}

const noSuchKey = `<?xml version="1.0" encoding="UTF-8"?>
<Error>
  <Code>NoSuchKey</Code>
  <Message>The specified key does not exist.</Message>
</Error>`

func TestNewClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
	}{
		{name: "static credentials", opts: Options{Endpoint: "https://minio.local:9000", Region: "us-east-1", AccessKey: "a", SecretKey: "b", PathStyle: true}},
		{name: "default chain", opts: Options{Region: "eu-central-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client, err := NewClient(context.Background(), tt.opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.region != tt.opts.Region {
				t.Errorf("expected region %s, got %s", tt.opts.Region, client.region)
			}
		})
	}
}

func TestPutObject_Success(t *testing.T) {
	t.Parallel()

	var capturedBody []byte
	var capturedPath, capturedType string
	var mu sync.Mutex

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			mu.Lock()
			capturedBody, _ = io.ReadAll(r.Body)
			capturedPath = r.URL.Path
			capturedType = r.Header.Get("Content-Type")
			mu.Unlock()
			w.WriteHeader(200)
			return
		}
		w.WriteHeader(404)
	}))

	data := []byte(`{"outcome":"succeeded"}`)
	err := client.PutObject(context.Background(), "reports", "reports/c1/run.json", data, "application/json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !bytes.Equal(capturedBody, data) {
		t.Errorf("expected body %q, got %q", data, capturedBody)
	}
	if capturedPath != "/reports/reports/c1/run.json" {
		t.Errorf("unexpected path %s", capturedPath)
	}
	if capturedType != "application/json" {
		t.Errorf("unexpected content type %s", capturedType)
	}
}

func TestPutObject_Error(t *testing.T) {
	t.Parallel()

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		xmlResponse(w, 403, `<?xml version="1.0" encoding="UTF-8"?>
<Error>
  <Code>AccessDenied</Code>
  <Message>Access Denied</Message>
</Error>`)
	}))

	err := client.PutObject(context.Background(), "reports", "k", []byte("data"), "")
	if err == nil {
		t.Fatal("expected error but got nil")
	}
	if !strings.Contains(err.Error(), "failed to put object k in bucket reports") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestGetObject(t *testing.T) {
	t.Parallel()

	expected := []byte(`{"runId":"r1"}`)
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/present.json") {
			w.Header().Set("Content-Length", fmt.Sprintf("%d", len(expected)))
			w.WriteHeader(200)
			_, _ = w.Write(expected)
			return
		}
		xmlResponse(w, 404, noSuchKey)
	}))

	data, err := client.GetObject(context.Background(), "reports", "present.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(data, expected) {
		t.Errorf("expected %q, got %q", expected, data)
	}

	_, err = client.GetObject(context.Background(), "reports", "missing.json")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListObjects_WithPrefix(t *testing.T) {
	t.Parallel()

	var gotPrefix string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPrefix = r.URL.Query().Get("prefix")
		xmlResponse(w, 200, `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>reports</Name>
  <Prefix>reports/c1/</Prefix>
  <KeyCount>2</KeyCount>
  <MaxKeys>1000</MaxKeys>
  <IsTruncated>false</IsTruncated>
  <Contents><Key>reports/c1/r1.json</Key><Size>10</Size></Contents>
  <Contents><Key>reports/c1/r2.json</Key><Size>20</Size></Contents>
</ListBucketResult>`)
	}))

	keys, err := client.ListObjects(context.Background(), "reports", "reports/c1/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPrefix != "reports/c1/" {
		t.Errorf("expected prefix to be sent, got %q", gotPrefix)
	}
	if len(keys) != 2 || keys[0] != "reports/c1/r1.json" || keys[1] != "reports/c1/r2.json" {
		t.Errorf("unexpected keys %v", keys)
	}
}

func TestBucketExists(t *testing.T) {
	t.Parallel()

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/present") {
			w.WriteHeader(200)
			return
		}
		w.WriteHeader(404)
	}))

	ok, err := client.BucketExists(context.Background(), "present")
	if err != nil || !ok {
		t.Errorf("expected bucket to exist, got %v, %v", ok, err)
	}
	ok, err = client.BucketExists(context.Background(), "absent")
	if err != nil || ok {
		t.Errorf("expected bucket to be absent, got %v, %v", ok, err)
	}
}

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"wrapped NoSuchBucket", fmt.Errorf("outer: %w", &s3types.NoSuchBucket{}), true},
		{"wrapped NoSuchKey", fmt.Errorf("outer: %w", &s3types.NoSuchKey{}), true},
		{"wrapped NotFound", fmt.Errorf("outer: %w", &s3types.NotFound{}), true},
		{"generic", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isNotFoundError(tt.err); got != tt.want {
				t.Errorf("isNotFoundError() = %v, want %v", got, tt.want)
			}
		})
	}
}
