// Package wallet implements the development keystore: a plaintext JSON file
// mapping labels to public keys and public keys to private keys. It is a
// handle with an explicit lifecycle: state is read when the wallet is
// opened and written back on every mutation. Keys are stored unencrypted,
// which is only acceptable for local development chains.
package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/digigaia/kudu/crypto"
)

var (
	ErrKeyNotFound = errors.New("wallet: key not found")
	ErrDuplicate   = errors.New("wallet: key already present")
)

// walletFile is the on-disk document. Public maps a label (usually an
// account name) to a public key; Private maps a public key to its private
// key. All keys are in their canonical text form.
type walletFile struct {
	ID      string            `json:"id"`
	Public  map[string]string `json:"public"`
	Private map[string]string `json:"private"`
}

// Wallet is an open keystore handle.
type Wallet struct {
	mu   sync.Mutex
	path string
	data walletFile
	log  *zap.Logger
}

// Option configures a Wallet.
type Option func(*Wallet)

// WithLogger attaches a logger. By default the wallet is silent.
func WithLogger(log *zap.Logger) Option {
	return func(w *Wallet) { w.log = log }
}

// Open loads the wallet file at path, creating an empty wallet (and any
// missing parent directories) when the file does not exist yet.
func Open(path string, opts ...Option) (*Wallet, error) {
	w := &Wallet{
		path: path,
		data: walletFile{
			Public:  make(map[string]string),
			Private: make(map[string]string),
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		w.data.ID = uuid.NewString()
		if err := w.save(); err != nil {
			return nil, err
		}
		w.log.Info("created wallet", zap.String("path", path))
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(raw, &w.data); err != nil {
			return nil, fmt.Errorf("wallet: parsing %s: %w", path, err)
		}
		if w.data.Public == nil {
			w.data.Public = make(map[string]string)
		}
		if w.data.Private == nil {
			w.data.Private = make(map[string]string)
		}
	}
	return w, nil
}

// save writes the document back to disk. Caller holds the lock.
func (w *Wallet) save() error {
	raw, err := json.MarshalIndent(&w.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(w.path, raw, 0600)
}

// Path returns the file backing this wallet.
func (w *Wallet) Path() string { return w.path }

// ImportKey adds a private key under a label and saves. The label may be
// empty for an unlabeled key. Returns the derived public key text.
func (w *Wallet) ImportKey(label, privText string) (string, error) {
	priv, err := crypto.NewPrivateKey(privText)
	if err != nil {
		return "", err
	}
	pub, err := priv.PublicKey()
	if err != nil {
		return "", err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	pubText := pub.String()
	if _, dup := w.data.Private[pubText]; dup {
		return "", fmt.Errorf("%w: %s", ErrDuplicate, pubText)
	}
	w.data.Private[pubText] = priv.String()
	if label != "" {
		w.data.Public[label] = pubText
	}
	if err := w.save(); err != nil {
		return "", err
	}
	w.log.Info("imported key", zap.String("public", pubText), zap.String("label", label))
	return pubText, nil
}

// CreateKey generates a fresh key on the given curve, stores it under the
// label and saves. Returns the public key text.
func (w *Wallet) CreateKey(label string, curve crypto.CurveType) (string, error) {
	priv, err := crypto.GeneratePrivateKey(curve)
	if err != nil {
		return "", err
	}
	return w.ImportKey(label, priv.String())
}

// PublicKeys lists the stored public keys, sorted.
func (w *Wallet) PublicKeys() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.data.Private))
	for pub := range w.data.Private {
		out = append(out, pub)
	}
	sort.Strings(out)
	return out
}

// PublicKeyFor resolves a label (e.g. an account name) to its public key.
func (w *Wallet) PublicKeyFor(label string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	pub, ok := w.data.Public[label]
	if !ok {
		return "", fmt.Errorf("%w: label %q", ErrKeyNotFound, label)
	}
	return pub, nil
}

// PrivateKey returns the private key for a public key text.
func (w *Wallet) PrivateKey(pubText string) (*crypto.PrivateKey, error) {
	w.mu.Lock()
	privText, ok := w.data.Private[pubText]
	w.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, pubText)
	}
	return crypto.NewPrivateKey(privText)
}

// PrivateKeyFor resolves a label directly to its private key.
func (w *Wallet) PrivateKeyFor(label string) (*crypto.PrivateKey, error) {
	pub, err := w.PublicKeyFor(label)
	if err != nil {
		return nil, err
	}
	return w.PrivateKey(pub)
}

// SignDigest signs a digest with the key stored for pubText.
func (w *Wallet) SignDigest(pubText string, digest [32]byte) (*crypto.Signature, error) {
	priv, err := w.PrivateKey(pubText)
	if err != nil {
		return nil, err
	}
	return priv.Sign(digest)
}

// RemoveKey deletes a key and any labels pointing at it, then saves.
func (w *Wallet) RemoveKey(pubText string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.data.Private[pubText]; !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, pubText)
	}
	delete(w.data.Private, pubText)
	for label, pub := range w.data.Public {
		if pub == pubText {
			delete(w.data.Public, label)
		}
	}
	return w.save()
}
