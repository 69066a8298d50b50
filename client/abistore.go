package client

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/digigaia/kudu/chain"
)

// ABI documents are stored under "abi/<account>".
var abiKeyPrefix = []byte("abi/")

// ErrNotFound is returned when the store has no document for an account.
var ErrNotFound = errors.New("client: ABI not in store")

// ABIStore persists raw ABI JSON documents in a leveldb database so a
// frequently restarted tool does not refetch every contract schema.
type ABIStore struct {
	db *leveldb.DB
}

// OpenABIStore opens (or creates) the database at path.
func OpenABIStore(path string) (*ABIStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("opening ABI store: %w", err)
	}
	return &ABIStore{db: db}, nil
}

func abiKey(account chain.Name) []byte {
	return append(append([]byte(nil), abiKeyPrefix...), account.String()...)
}

// Put stores the raw ABI document for an account.
func (s *ABIStore) Put(account chain.Name, doc []byte) error {
	return s.db.Put(abiKey(account), doc, nil)
}

// Get returns the stored ABI document for an account.
func (s *ABIStore) Get(account chain.Name) ([]byte, error) {
	doc, err := s.db.Get(abiKey(account), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, account)
	}
	return doc, err
}

// Delete removes the stored ABI document for an account.
func (s *ABIStore) Delete(account chain.Name) error {
	return s.db.Delete(abiKey(account), nil)
}

// Accounts lists every account with a stored document.
func (s *ABIStore) Accounts() ([]chain.Name, error) {
	var out []chain.Name
	iter := s.db.NewIterator(util.BytesPrefix(abiKeyPrefix), nil)
	defer iter.Release()
	for iter.Next() {
		name, err := chain.NewName(string(iter.Key()[len(abiKeyPrefix):]))
		if err != nil {
			continue
		}
		out = append(out, name)
	}
	return out, iter.Error()
}

// Close releases the database.
func (s *ABIStore) Close() error {
	return s.db.Close()
}
