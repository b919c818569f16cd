package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/turnstilehq/turnstile/pkg/api"
)

// BlobArchiver writes completed run records to a gocloud.dev bucket,
// supporting S3, GCS, Azure Blob Storage, local files, and in-memory buckets
type BlobArchiver struct {
	bucket *blob.Bucket
	prefix string
}

// NewBlobArchiver opens the bucket behind the given URL
func NewBlobArchiver(
	ctx context.Context, bucketURL, prefix string,
) (*BlobArchiver, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &BlobArchiver{bucket: bucket, prefix: prefix}, nil
}

// ArchiveRun stores one completed run record as JSON
func (a *BlobArchiver) ArchiveRun(
	ctx context.Context, rec *api.RunRecord,
) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return a.bucket.WriteAll(ctx, a.keyFor(rec), data, nil)
}

// ReadRun fetches one archived run record, or nil when absent
func (a *BlobArchiver) ReadRun(
	ctx context.Context, entryID api.EntryID, stepID api.StepID,
	invocationID string,
) (*api.RunRecord, error) {
	key := fmt.Sprintf("%sruns/%s/%s/%s.json",
		a.prefix, entryID, stepID, invocationID)
	data, err := a.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, nil
		}
		return nil, err
	}

	var rec api.RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Close releases the underlying bucket
func (a *BlobArchiver) Close() error {
	return a.bucket.Close()
}

func (a *BlobArchiver) keyFor(rec *api.RunRecord) string {
	return fmt.Sprintf("%sruns/%s/%s/%s.json",
		a.prefix, rec.EntryID, rec.StepID, rec.InvocationID)
}
