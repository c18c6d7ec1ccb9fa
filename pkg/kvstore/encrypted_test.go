package kvstore_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-api/pkg/kvstore"
	"github.com/jwalitptl/dental-api/pkg/kvstore/memory"
	"github.com/jwalitptl/dental-api/pkg/security"
)

func newEncryptor(t *testing.T) security.Encryptor {
	t.Helper()
	enc, err := security.NewAESEncryptorFromHex("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	require.NoError(t, err)
	return enc
}

func TestEncrypt_RoundTrip(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()
	s := kvstore.Encrypt(inner, newEncryptor(t))

	value := []byte(`[{"id":"p1","name":"John Doe"}]`)
	require.NoError(t, s.Set(ctx, "dental_patients", value))

	stored, err := inner.Get(ctx, "dental_patients")
	require.NoError(t, err)
	assert.False(t, bytes.Contains(stored, []byte("John Doe")))

	got, err := s.Get(ctx, "dental_patients")
	require.NoError(t, err)
	assert.Equal(t, value, got)
}

func TestEncrypt_PlaintextPassesThrough(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()
	require.NoError(t, inner.Set(ctx, "dental_session_expiry", []byte("1749988800000")))

	got, err := kvstore.Encrypt(inner, newEncryptor(t)).Get(ctx, "dental_session_expiry")
	require.NoError(t, err)
	assert.Equal(t, "1749988800000", string(got))
}

func TestEncrypt_MissingKey(t *testing.T) {
	_, err := kvstore.Encrypt(memory.New(), newEncryptor(t)).Get(context.Background(), "absent")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func TestNewAESEncryptorFromHex_BadKey(t *testing.T) {
	_, err := security.NewAESEncryptorFromHex("abcd")
	assert.ErrorIs(t, err, security.ErrInvalidKeySize)
	_, err = security.NewAESEncryptorFromHex("zz")
	assert.ErrorIs(t, err, security.ErrInvalidKeySize)
}
