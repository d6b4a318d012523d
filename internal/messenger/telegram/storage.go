package telegram

import (
	"context"
	"sync"

	"github.com/gotd/td/session"
)

// blobStorage adapts an opaque secret blob to gotd's session.Storage. The
// client rewrites the session during login and key rotation; Bytes returns
// whatever the client last stored so the caller can persist it.
type blobStorage struct {
	mu   sync.Mutex
	data []byte
}

func newBlobStorage(blob []byte) *blobStorage {
	s := &blobStorage{}
	if len(blob) > 0 {
		s.data = append([]byte(nil), blob...)
	}
	return s
}

func (s *blobStorage) LoadSession(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.data) == 0 {
		return nil, session.ErrNotFound
	}
	return append([]byte(nil), s.data...), nil
}

func (s *blobStorage) StoreSession(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	return nil
}

// Bytes returns a copy of the current session blob, or nil when the client
// never stored one.
func (s *blobStorage) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.data) == 0 {
		return nil
	}
	return append([]byte(nil), s.data...)
}
