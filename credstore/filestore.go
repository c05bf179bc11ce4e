package credstore

import (
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the required length in bytes of the FileStore sealing key.
const KeySize = chacha20poly1305.KeySize

// FileStore keeps the record in a single file, CBOR-encoded and sealed
// with XChaCha20-Poly1305. A record that fails to open (missing file,
// wrong key, truncated write) is treated as absent.
type FileStore struct {
	path    string
	key     []byte
	nowTime func() time.Time
}

// FileStoreOption modifies a FileStore.
type FileStoreOption func(*FileStore)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) FileStoreOption {
	return func(s *FileStore) {
		s.nowTime = nowFunc
	}
}

// NewFileStore creates a store writing to path with the given 32-byte key.
func NewFileStore(path string, key []byte, options ...FileStoreOption) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("[NewFileStore] path is required")
	}
	if len(key) != KeySize {
		return nil, errors.Errorf("[NewFileStore] key must be %d bytes, got %d", KeySize, len(key))
	}

	s := &FileStore{
		path:    path,
		key:     append([]byte(nil), key...),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Save replaces the persisted record wholesale.
func (s *FileStore) Save(_ context.Context, record Record) error {
	plaintext, err := cbor.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "[FileStore.Save] encode record")
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return errors.Wrap(err, "[FileStore.Save] cipher")
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return errors.Wrap(err, "[FileStore.Save] nonce")
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "[FileStore.Save] create directory")
	}
	if err := os.WriteFile(s.path, sealed, 0o600); err != nil {
		return errors.Wrap(err, "[FileStore.Save] write file")
	}
	return nil
}

// Load reads the persisted record. Absent, unreadable or already-expired
// records all come back as nil; an expired record is also cleared.
func (s *FileStore) Load(ctx context.Context) (*Record, error) {
	sealed, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("credential store unreadable, treating as empty")
		}
		return nil, nil
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, errors.Wrap(err, "[FileStore.Load] cipher")
	}

	if len(sealed) < aead.NonceSize() {
		log.Warn().Msg("credential store truncated, treating as empty")
		return nil, nil
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		log.Warn().Msg("credential store failed to decrypt, treating as empty")
		return nil, nil
	}

	var record Record
	if err := cbor.Unmarshal(plaintext, &record); err != nil {
		log.Warn().Err(err).Msg("credential store failed to decode, treating as empty")
		return nil, nil
	}

	if !record.ExpiresAt.After(s.nowTime()) {
		if err := s.Clear(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to clear expired credential record")
		}
		return nil, nil
	}

	return &record, nil
}

// Clear deletes the persisted record. Deleting an absent record is a no-op.
func (s *FileStore) Clear(context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStore.Clear] remove file")
	}
	return nil
}
