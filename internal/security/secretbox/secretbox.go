// Package secretbox encrypts configuration secrets (the auth backend service
// key) with NaCl secretbox under a master key from the environment. Stored
// form is base64(nonce)|base64(ciphertext); values without the separator are
// treated as plaintext by callers (dev mode).
package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	masterKeyEnvVar = "SECRETBOX_MASTER_KEY"
	keyLength       = 32 // secretbox requires a 32-byte key
	nonceLength     = 24
	sep             = "|"
)

var (
	masterKey *[keyLength]byte
	loadOnce  sync.Once
	loadErr   error
)

func ensureLoaded() error {
	loadOnce.Do(func() {
		kb64 := strings.TrimSpace(os.Getenv(masterKeyEnvVar))
		if kb64 == "" {
			loadErr = fmt.Errorf("%s not set; generate one with: openssl rand -base64 32", masterKeyEnvVar)
			return
		}
		k, err := base64.StdEncoding.DecodeString(kb64)
		if err != nil {
			loadErr = fmt.Errorf("decode %s: %w", masterKeyEnvVar, err)
			return
		}
		if len(k) != keyLength {
			loadErr = fmt.Errorf("%s must decode to %d bytes, got %d", masterKeyEnvVar, keyLength, len(k))
			return
		}
		var key [keyLength]byte
		copy(key[:], k)
		masterKey = &key
	})
	return loadErr
}

// Ready reports whether the master key is loaded (healthchecks, config dump).
func Ready() bool {
	return ensureLoaded() == nil
}

// Encrypt seals plainText and returns base64(nonce)|base64(ciphertext).
func Encrypt(plainText string) (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}

	var nonce [nonceLength]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}

	ct := secretbox.Seal(nil, []byte(plainText), &nonce, masterKey)
	return base64.StdEncoding.EncodeToString(nonce[:]) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt opens a value produced by Encrypt.
func Decrypt(cipherText string) (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}
	return open(masterKey, cipherText)
}

// DecryptWithKey opens a value with an explicit base64 key (tools, tests).
func DecryptWithKey(key, cipherText string) (string, error) {
	kb, err := base64.StdEncoding.DecodeString(strings.TrimSpace(key))
	if err != nil || len(kb) != keyLength {
		return "", fmt.Errorf("invalid key: need base64 of %d bytes", keyLength)
	}
	var k [keyLength]byte
	copy(k[:], kb)
	return open(&k, cipherText)
}

// Looks reports whether a value looks like an Encrypt output. Callers use it
// to accept plaintext secrets in dev.
func Looks(v string) bool {
	return strings.Contains(v, sep)
}

// UnsafeResetForTests clears the cached master key so tests can swap the env
// var. Never call it from production code.
func UnsafeResetForTests() {
	masterKey = nil
	loadOnce = sync.Once{}
	loadErr = nil
}

func open(key *[keyLength]byte, cipherText string) (string, error) {
	parts := strings.SplitN(cipherText, sep, 2)
	if len(parts) != 2 {
		return "", errors.New("invalid format: expected base64(nonce)|base64(ciphertext)")
	}
	nb, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nb) != nonceLength {
		return "", errors.New("invalid nonce")
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	var nonce [nonceLength]byte
	copy(nonce[:], nb)

	pt, ok := secretbox.Open(nil, ct, &nonce, key)
	if !ok {
		return "", errors.New("decryption failed")
	}
	return string(pt), nil
}
