// Package s3 provides a small client for S3-compatible object storage.
//
// It archives run reports: one JSON object per run, listed and fetched back
// by key prefix. Static credentials are used when given, otherwise the AWS
// default credential chain applies.
package s3
