package minio

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/MedKG-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MedKG-Intelligence/pkg/errors"
)

// MaxSnapshotBytes bounds a staged document fetched from object storage.
const MaxSnapshotBytes int64 = 512 << 20

const snapshotContentType = "application/json"

var (
	ErrObjectNotFound = errors.New(errors.ErrCodeSnapshotInvalid, "staged object not found")
	ErrInvalidRequest = errors.New(errors.ErrCodeValidation, "invalid request")
)

// UploadResult describes a stored staged document.
type UploadResult struct {
	Bucket     string    `json:"bucket"`
	ObjectKey  string    `json:"object_key"`
	ETag       string    `json:"etag"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// SnapshotRepository stores and fetches staged ontology documents.
type SnapshotRepository struct {
	client *MinIOClient
	logger logging.Logger
	now    func() time.Time
}

func NewSnapshotRepository(client *MinIOClient, log logging.Logger) *SnapshotRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SnapshotRepository{client: client, logger: log.Named("minio"), now: time.Now}
}

// Upload stores data under objectKey, or the configured default key when
// objectKey is empty.  The document checksum travels as user metadata.
func (r *SnapshotRepository) Upload(ctx context.Context, objectKey string, data []byte, checksum string) (*UploadResult, error) {
	if objectKey == "" {
		objectKey = r.client.DefaultObject()
	}
	if len(data) == 0 {
		return nil, ErrInvalidRequest
	}
	opts := minio.PutObjectOptions{ContentType: snapshotContentType}
	if checksum != "" {
		opts.UserMetadata = map[string]string{"snapshot-checksum": checksum}
	}
	info, err := r.client.GetClient().PutObject(ctx, r.client.Bucket(), objectKey, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeObjectStore, "upload failed").WithDetail(objectKey)
	}
	r.logger.Info("staged document uploaded",
		logging.String("bucket", info.Bucket),
		logging.String("object", info.Key),
		logging.Int64("size", info.Size))
	return &UploadResult{
		Bucket:     info.Bucket,
		ObjectKey:  info.Key,
		ETag:       info.ETag,
		Size:       info.Size,
		UploadedAt: r.now().UTC(),
	}, nil
}

// Download returns the whole staged document at objectKey.
func (r *SnapshotRepository) Download(ctx context.Context, objectKey string) ([]byte, error) {
	if objectKey == "" {
		objectKey = r.client.DefaultObject()
	}
	bucket := r.client.Bucket()
	api := r.client.GetClient()

	stat, err := api.StatObject(ctx, bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound.WithDetail(bucket + "/" + objectKey)
		}
		return nil, errors.Wrap(err, errors.ErrCodeObjectStore, "stat staged object").WithDetail(objectKey)
	}
	if stat.Size > MaxSnapshotBytes {
		return nil, errors.Newf(errors.ErrCodeSnapshotInvalid, "staged object is %d bytes, limit %d", stat.Size, MaxSnapshotBytes)
	}

	obj, err := api.GetObject(ctx, bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeObjectStore, "download failed").WithDetail(objectKey)
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, MaxSnapshotBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeObjectStore, "read staged object").WithDetail(objectKey)
	}
	if int64(len(data)) > MaxSnapshotBytes {
		return nil, errors.New(errors.ErrCodeSnapshotInvalid, "staged object exceeds size limit")
	}
	r.logger.Debug("staged document downloaded", logging.String("object", objectKey), logging.Int("bytes", len(data)))
	return data, nil
}

// Source adapts one object to the loader's document source.
func (r *SnapshotRepository) Source(objectKey string) *ObjectSource {
	if objectKey == "" {
		objectKey = r.client.DefaultObject()
	}
	return &ObjectSource{repo: r, object: objectKey}
}

// ObjectSource yields a staged document stored in MinIO.
type ObjectSource struct {
	repo   *SnapshotRepository
	object string
}

func (s *ObjectSource) Name() string {
	return "s3://" + s.repo.client.Bucket() + "/" + s.object
}

func (s *ObjectSource) Fetch(ctx context.Context) ([]byte, error) {
	return s.repo.Download(ctx, s.object)
}

//Personal.AI order the ending
