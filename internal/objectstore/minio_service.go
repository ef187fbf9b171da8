package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"speech-eval-toolkit/internal/config"
)

// DefaultURLExpiry is how long signed dataset URLs stay valid.
const DefaultURLExpiry = 8 * time.Hour

// MinioClient holds the MinIO client and bucket name.
type MinioClient struct {
	Client     *minio.Client
	BucketName string
	URLExpiry  time.Duration
}

// NewMinioClient connects to the configured store and creates the bucket if
// it does not exist.
func NewMinioClient(ctx context.Context, cfg config.MinioConfig) (*MinioClient, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("MINIO_ENDPOINT, MINIO_ACCESS_KEY_ID, MINIO_SECRET_ACCESS_KEY, and MINIO_BUCKET_NAME must be set")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if MinIO bucket '%s' exists: %w", cfg.Bucket, err)
	}
	if !exists {
		log.Printf("MinIO bucket '%s' does not exist. Attempting to create it.", cfg.Bucket)
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create MinIO bucket '%s': %w", cfg.Bucket, err)
		}
		log.Printf("MinIO bucket '%s' created successfully.", cfg.Bucket)
	}

	expiry := cfg.URLExpiry.Duration
	if expiry <= 0 {
		expiry = DefaultURLExpiry
	}
	log.Println("MinIO client initialized successfully.")
	return &MinioClient{Client: client, BucketName: cfg.Bucket, URLExpiry: expiry}, nil
}

func (mc *MinioClient) ready() error {
	if mc == nil || mc.Client == nil {
		return errors.New("MinIO client not initialized")
	}
	if mc.BucketName == "" {
		return errors.New("MinIO bucket name not configured")
	}
	return nil
}

// UniqueObjectName returns a random object name keeping the extension of
// originalFilename.
func UniqueObjectName(originalFilename string) string {
	return uuid.New().String() + strings.ToLower(filepath.Ext(originalFilename))
}

// UploadFile stores reader under a unique object name and returns that name.
func (mc *MinioClient) UploadFile(ctx context.Context, originalFilename string, reader io.Reader, size int64, contentType string) (string, error) {
	objectName := UniqueObjectName(originalFilename)
	if err := mc.PutNamed(ctx, objectName, reader, size, contentType); err != nil {
		return "", err
	}
	return objectName, nil
}

// PutNamed stores reader under objectName, replacing any existing object.
func (mc *MinioClient) PutNamed(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	if err := mc.ready(); err != nil {
		return err
	}
	if contentType == "" {
		contentType = ContentTypeFor(objectName)
	}
	info, err := mc.Client.PutObject(ctx, mc.BucketName, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file to MinIO (bucket: %s, object: %s): %w", mc.BucketName, objectName, err)
	}
	log.Printf("Successfully uploaded '%s' of size %d to MinIO. ETag: %s", objectName, info.Size, info.ETag)
	return nil
}

// DeleteFile deletes an object from the bucket.
func (mc *MinioClient) DeleteFile(ctx context.Context, objectName string) error {
	if err := mc.ready(); err != nil {
		return err
	}
	if err := mc.Client.RemoveObject(ctx, mc.BucketName, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object '%s' from MinIO bucket '%s': %w", objectName, mc.BucketName, err)
	}
	log.Printf("Successfully deleted object '%s' from MinIO bucket '%s'.", objectName, mc.BucketName)
	return nil
}

// notFound converts a missing-key response into an error wrapping fs.ErrNotExist.
func notFound(err error, objectName string) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NoSuchObject" {
		return fmt.Errorf("object '%s': %w", objectName, fs.ErrNotExist)
	}
	return err
}

// GetFileBytes reads a whole object into memory.
func (mc *MinioClient) GetFileBytes(ctx context.Context, objectName string) ([]byte, error) {
	reader, _, err := mc.GetFileReader(ctx, objectName)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read object '%s' data: %w", objectName, notFound(err, objectName))
	}
	return data, nil
}

// GetFileReader opens an object for streaming. The caller closes the reader.
func (mc *MinioClient) GetFileReader(ctx context.Context, objectName string) (io.ReadCloser, int64, error) {
	if err := mc.ready(); err != nil {
		return nil, 0, err
	}
	object, err := mc.Client.GetObject(ctx, mc.BucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", objectName, mc.BucketName, notFound(err, objectName))
	}
	stat, err := object.Stat()
	if err != nil {
		object.Close()
		return nil, 0, fmt.Errorf("failed to get object stats for '%s': %w", objectName, notFound(err, objectName))
	}
	return object, stat.Size, nil
}

// PresignedURL returns a GET URL for objectName valid for expiry. A
// non-positive expiry uses the client default.
func (mc *MinioClient) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	if err := mc.ready(); err != nil {
		return "", err
	}
	if expiry <= 0 {
		expiry = mc.URLExpiry
	}
	if expiry <= 0 {
		expiry = DefaultURLExpiry
	}
	u, err := mc.Client.PresignedGetObject(ctx, mc.BucketName, objectName, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL for object '%s': %w", objectName, err)
	}
	return u.String(), nil
}

// ListObjects returns the names of objects under prefix in lexical order.
func (mc *MinioClient) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	if err := mc.ready(); err != nil {
		return nil, err
	}
	var names []string
	for obj := range mc.Client.ListObjects(ctx, mc.BucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects under '%s': %w", prefix, obj.Err)
		}
		names = append(names, obj.Key)
	}
	sort.Strings(names)
	return names, nil
}

// ContentTypeFor guesses a MIME type from the object's extension.
func ContentTypeFor(objectName string) string {
	switch strings.ToLower(path.Ext(objectName)) {
	case ".zip":
		return "application/zip"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".wav":
		return "audio/wav"
	}
	if t := mime.TypeByExtension(path.Ext(objectName)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// DatasetFile is a local dataset archive or transcript ready for upload.
type DatasetFile struct {
	Name string // file name without extension, used as the dataset name
	Path string
}

// DatasetFiles lists the .zip and .txt files directly inside dir, sorted by name.
func DatasetFiles(dir string) ([]DatasetFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory '%s': %w", dir, err)
	}
	var files []DatasetFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".zip" && ext != ".txt" {
			continue
		}
		files = append(files, DatasetFile{
			Name: strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			Path: filepath.Join(dir, e.Name()),
		})
	}
	return files, nil
}

// UploadDatasetFolder uploads every dataset file in dir under its own file
// name and returns the dataset names plus a signed URL per name.
func (mc *MinioClient) UploadDatasetFolder(ctx context.Context, dir string, expiry time.Duration) ([]string, map[string]string, error) {
	files, err := DatasetFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		log.Printf("Warning: no .zip or .txt dataset files found in '%s'", dir)
	}

	names := make([]string, 0, len(files))
	urls := make(map[string]string, len(files))
	for _, f := range files {
		if err := mc.uploadLocal(ctx, f.Path); err != nil {
			return nil, nil, err
		}
		signed, err := mc.PresignedURL(ctx, filepath.Base(f.Path), expiry)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, f.Name)
		urls[f.Name] = signed
	}
	return names, urls, nil
}

func (mc *MinioClient) uploadLocal(ctx context.Context, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open dataset file '%s': %w", localPath, err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat dataset file '%s': %w", localPath, err)
	}
	return mc.PutNamed(ctx, filepath.Base(localPath), file, info.Size(), "")
}
