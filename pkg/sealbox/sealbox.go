// Package sealbox шифрует файлы паролем: scrypt для ключа, nacl/secretbox для данных.
package sealbox

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

var (
	ErrDecrypt   = errors.New("sealbox: wrong password or corrupted data")
	ErrNotSealed = errors.New("sealbox: data is not sealed")
)

var magic = []byte("SBX1")

const (
	saltLen  = 16
	nonceLen = 24
	keyLen   = 32
)

// scrypt N/r/p
const (
	costN = 1 << 15
	costR = 8
	costP = 1
)

func IsSealed(data []byte) bool { return bytes.HasPrefix(data, magic) }

func Seal(plain []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("sealbox: empty password")
	}
	var salt [saltLen]byte
	if _, err := io.ReadFull(rand.Reader, salt[:]); err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	var nonce [nonceLen]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	key, err := deriveKey(password, salt[:])
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(magic)+saltLen+nonceLen+len(plain)+secretbox.Overhead)
	out = append(out, magic...)
	out = append(out, salt[:]...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plain, &nonce, key), nil
}

func Open(sealed []byte, password string) ([]byte, error) {
	if !IsSealed(sealed) {
		return nil, ErrNotSealed
	}
	body := sealed[len(magic):]
	if len(body) < saltLen+nonceLen+secretbox.Overhead {
		return nil, ErrDecrypt
	}
	salt := body[:saltLen]
	var nonce [nonceLen]byte
	copy(nonce[:], body[saltLen:saltLen+nonceLen])

	key, err := deriveKey(password, salt)
	if err != nil {
		return nil, err
	}
	plain, ok := secretbox.Open(nil, body[saltLen+nonceLen:], &nonce, key)
	if !ok {
		return nil, ErrDecrypt
	}
	return plain, nil
}

func deriveKey(password string, salt []byte) (*[keyLen]byte, error) {
	raw, err := scrypt.Key([]byte(password), salt, costN, costR, costP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	var key [keyLen]byte
	copy(key[:], raw)
	return &key, nil
}
