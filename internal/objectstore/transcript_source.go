package objectstore

import (
	"context"
	"io"
	"path"
	"strings"
	"time"
)

// ObjectReader is the subset of MinioClient that TranscriptSource needs.
type ObjectReader interface {
	GetFileBytes(ctx context.Context, objectName string) ([]byte, error)
}

// TranscriptSource serves hypotheses stored as `<Prefix>/<id>.txt` objects.
// Missing objects surface as errors wrapping fs.ErrNotExist.
type TranscriptSource struct {
	Client ObjectReader
	Prefix string
}

// ObjectName returns the key holding the transcript for id.
func (s TranscriptSource) ObjectName(id string) string {
	return path.Join(s.Prefix, id+".txt")
}

// Hypothesis returns the raw transcript text for id.
func (s TranscriptSource) Hypothesis(ctx context.Context, id string) (string, error) {
	data, err := s.Client.GetFileBytes(ctx, s.ObjectName(id))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ObjectLister lists object names under a prefix.
type ObjectLister interface {
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// IDs returns the id of every `<Prefix>/<id>.txt` object directly under the
// prefix, in lexical order.
func (s TranscriptSource) IDs(ctx context.Context, lister ObjectLister) ([]string, error) {
	dir := strings.Trim(s.Prefix, "/")
	if dir != "" {
		dir += "/"
	}
	names, err := lister.ListObjects(ctx, dir)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, name := range names {
		rest := strings.TrimPrefix(name, dir)
		if strings.Contains(rest, "/") || !strings.HasSuffix(rest, ".txt") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(rest, ".txt"))
	}
	return ids, nil
}

// Store is the blob store surface used by handlers and job sources. It is
// satisfied by *MinioClient.
type Store interface {
	ObjectReader
	GetFileReader(ctx context.Context, objectName string) (io.ReadCloser, int64, error)
	UploadFile(ctx context.Context, originalFilename string, reader io.Reader, size int64, contentType string) (string, error)
	PutNamed(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	DeleteFile(ctx context.Context, objectName string) error
	PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	ObjectLister
}

var _ Store = (*MinioClient)(nil)
