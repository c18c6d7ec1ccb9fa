package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwalitptl/dental-api/pkg/security"
)

type encrypted struct {
	Store
	enc security.Encryptor
}

// Encrypt seals every value with enc before it reaches s. A stored value
// that does not decrypt is returned as stored: plaintext written before
// encryption was enabled still reads, and anything else fails to parse and
// is handled by the caller as corrupt state.
func Encrypt(s Store, enc security.Encryptor) Store {
	if enc == nil {
		return s
	}
	return &encrypted{Store: s, enc: enc}
}

func (e *encrypted) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := e.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	plain, err := e.enc.Decrypt(raw)
	if errors.Is(err, security.ErrDecryption) {
		return raw, nil
	}
	if err != nil {
		return nil, err
	}
	return plain, nil
}

func (e *encrypted) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := e.enc.Encrypt(value)
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", key, err)
	}
	return e.Store.Set(ctx, key, sealed)
}
