package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/andresuchdata/autopo-labels/internal/storage"
)

// ObjectStore keeps the ledger as a single object in S3-compatible storage.
// Object stores cannot append, so AppendLine re-uploads the existing content
// with the new line added. Two concurrent appends can lose one line.
type ObjectStore struct {
	objects storage.ObjectStorage
	key     string
}

func NewObjectStore(objects storage.ObjectStorage, key string) *ObjectStore {
	return &ObjectStore{objects: objects, key: key}
}

func (s *ObjectStore) Lines(ctx context.Context) ([]string, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return splitLines(data), nil
}

func (s *ObjectStore) AppendLine(ctx context.Context, line string) error {
	data, err := s.read(ctx)
	if err != nil {
		return err
	}
	if data != "" && !strings.HasSuffix(data, "\n") {
		data += "\n"
	}
	return s.objects.PutObject(ctx, s.key, []byte(data+line+"\n"))
}

func (s *ObjectStore) read(ctx context.Context) (string, error) {
	data, err := s.objects.GetObject(ctx, s.key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
