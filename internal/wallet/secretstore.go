package wallet

import (
	"crypto/ed25519"
	"encoding/hex"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

// SecretStore is a small encrypted-at-rest KV wrapper (Badger) holding
// signing keys. Encryption is provided by Badger options, not this wrapper.
type SecretStore struct {
	db *badger.DB
}

// OpenOptions secret store open options.
type OpenOptions struct {
	Path          string
	EncryptionKey []byte // 32 bytes; if nil, DB is opened without encryption (not recommended)
	ReadOnly      bool
}

// OpenSecretStore opens (or creates) the store at the given path.
func OpenSecretStore(opts OpenOptions) (*SecretStore, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("secretstore: path is required")
	}
	bopts := badger.DefaultOptions(opts.Path).
		WithLogger(nil).
		WithReadOnly(opts.ReadOnly)
	if len(opts.EncryptionKey) > 0 {
		// Badger requires index cache for encrypted workloads
		bopts = bopts.
			WithEncryptionKey(opts.EncryptionKey).
			WithIndexCacheSize(100 << 20)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	return &SecretStore{db: db}, nil
}

// Close closes the underlying DB.
func (s *SecretStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PutKeypair stores an ed25519 private key under name (hex encoded).
func (s *SecretStore) PutKeypair(name string, priv ed25519.PrivateKey) error {
	if len(priv) != ed25519.PrivateKeySize {
		return errors.Errorf("secretstore: bad private key length %d", len(priv))
	}
	key := []byte("keypair:" + strings.TrimSpace(name))
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, []byte(hex.EncodeToString(priv)))
	})
}

// GetKeypair loads the ed25519 private key stored under name.
func (s *SecretStore) GetKeypair(name string) (ed25519.PrivateKey, error) {
	key := []byte("keypair:" + strings.TrimSpace(name))
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errors.Errorf("secretstore: keypair %q not found", name)
	}
	if err != nil {
		return nil, err
	}
	decoded, err := hex.DecodeString(string(raw))
	if err != nil {
		return nil, errors.Wrap(err, "secretstore: corrupt keypair entry")
	}
	if len(decoded) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("secretstore: bad stored key length %d", len(decoded))
	}
	return ed25519.PrivateKey(decoded), nil
}

// SignerFromStore loads the named keypair and wraps it as a Signer.
func SignerFromStore(store *SecretStore, name string) (Signer, error) {
	priv, err := store.GetKeypair(name)
	if err != nil {
		return nil, err
	}
	return NewKeypairSigner(priv)
}
