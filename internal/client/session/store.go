package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/99designs/keyring"

	"github.com/atinyakov/safedrive/internal/models"
)

// Durable storage keeps exactly these two entries.
const (
	KeyToken = "authToken"
	KeyUser  = "userData"
)

// ErrMalformed is returned by Load when the stored entries do not form a session.
var ErrMalformed = errors.New("stored session is malformed")

func encode(s Session) (token, user string, err error) {
	b, err := json.Marshal(s.User)
	if err != nil {
		return "", "", fmt.Errorf("encode user: %w", err)
	}
	return s.Token, string(b), nil
}

// decode rebuilds a session from the two stored entries. Both absent is the
// signed-out session; only one present is malformed.
func decode(token, user string) (Session, error) {
	if token == "" && user == "" {
		return Session{}, nil
	}
	if token == "" || user == "" {
		return Session{}, ErrMalformed
	}
	var u models.User
	if err := json.Unmarshal([]byte(user), &u); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if u.Identity() == "" {
		return Session{}, ErrMalformed
	}
	return Session{User: &u, Token: token}, nil
}

// FileStore keeps the session in a JSON file readable only by its owner.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the stored session. A missing file is the signed-out session.
func (fs *FileStore) Load() (Session, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Session{}, nil
		}
		return Session{}, err
	}
	entries := map[string]string{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return decode(entries[KeyToken], entries[KeyUser])
}

// Save replaces the stored session.
func (fs *FileStore) Save(s Session) error {
	token, user, err := encode(s)
	if err != nil {
		return err
	}
	data, err := json.Marshal(map[string]string{KeyToken: token, KeyUser: user})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, fs.path)
}

// Clear removes the stored session.
func (fs *FileStore) Clear() error {
	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// KeyringStore keeps the session in the OS credential store.
type KeyringStore struct {
	kr keyring.Keyring
}

// NewKeyringStore returns a store over an opened keyring.
func NewKeyringStore(kr keyring.Keyring) *KeyringStore {
	return &KeyringStore{kr: kr}
}

// OpenKeyringStore opens the keyring described by cfg.
func OpenKeyringStore(cfg keyring.Config) (*KeyringStore, error) {
	kr, err := keyring.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return NewKeyringStore(kr), nil
}

func (ks *KeyringStore) get(key string) (string, error) {
	item, err := ks.kr.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("could not load %s: %w", key, err)
	}
	return string(item.Data), nil
}

// Load reads the stored session. Missing items are the signed-out session.
func (ks *KeyringStore) Load() (Session, error) {
	token, err := ks.get(KeyToken)
	if err != nil {
		return Session{}, err
	}
	user, err := ks.get(KeyUser)
	if err != nil {
		return Session{}, err
	}
	return decode(token, user)
}

// Save replaces the stored session.
func (ks *KeyringStore) Save(s Session) error {
	token, user, err := encode(s)
	if err != nil {
		return err
	}
	for _, item := range []keyring.Item{
		{Key: KeyToken, Data: []byte(token), Label: "vault bearer token"},
		{Key: KeyUser, Data: []byte(user), Label: "vault user"},
	} {
		if err := ks.kr.Set(item); err != nil {
			return fmt.Errorf("failed to store %s in keyring: %w", item.Key, err)
		}
	}
	return nil
}

// Clear removes both stored items.
func (ks *KeyringStore) Clear() error {
	var errs []error
	for _, key := range []string{KeyToken, KeyUser} {
		if err := ks.kr.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MemoryStore keeps the session for the lifetime of the process only.
type MemoryStore struct {
	mu sync.Mutex
	s  Session
}

func (ms *MemoryStore) Load() (Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.s, nil
}

func (ms *MemoryStore) Save(s Session) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.s = s
	return nil
}

func (ms *MemoryStore) Clear() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.s = Session{}
	return nil
}
