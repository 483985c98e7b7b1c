// Package filecache persists the last-resolved credential to an encrypted
// file on disk, so a process restarting between metadata-service calls
// (or running somewhere IMDS is briefly unreachable) can still start up
// with a working credential. It mirrors the teacher's internal/pkg/crypto
// AES-256-GCM envelope (NewEncryptor/Encrypt/Decrypt), but derives the
// encryption key from an operator-supplied passphrase rather than a raw
// hex master key: PBKDF2 stretches the passphrase, and HKDF then derives
// a purpose-scoped subkey from that intermediate so the same passphrase
// can safely back more than one cache file without key reuse across them.
package filecache

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"

	awscore "github.com/prn-tf/awscore/aws"
)

const (
	keySize        = 32
	nonceSize      = 12
	pbkdf2Iters    = 200_000
	pbkdf2SaltSize = 16
)

var (
	// ErrDecryptionFailed indicates the passphrase is wrong or the file is
	// corrupted; both look identical to GCM's authentication check.
	ErrDecryptionFailed = errors.New("filecache: decryption failed: authentication error")
	// ErrInvalidCiphertext indicates the on-disk file is too short to
	// contain a salt, nonce, and at least one byte of ciphertext.
	ErrInvalidCiphertext = errors.New("filecache: invalid ciphertext: too short or malformed")
)

// Cache reads and writes one encrypted credential file.
type Cache struct {
	path       string
	passphrase string
	// Purpose scopes the HKDF-derived subkey, so the same passphrase used
	// for two different cache files (e.g. two distinct IAM roles) derives
	// two unrelated AES keys.
	purpose string
}

// New returns a Cache that reads/writes path, deriving its encryption key
// from passphrase and purpose.
func New(path, passphrase, purpose string) *Cache {
	return &Cache{path: path, passphrase: passphrase, purpose: purpose}
}

// onDiskEnvelope is the JSON shape written to disk: a fresh PBKDF2 salt per
// write (so two writes with the same passphrase don't share a stretched
// key) plus the AES-GCM nonce and ciphertext, all base64 via json's
// default []byte-as-base64 encoding.
type onDiskEnvelope struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

type cachedCredential struct {
	AccessKeyID     string    `json:"access_key_id"`
	SecretAccessKey string    `json:"secret_access_key"`
	SessionToken    string    `json:"session_token"`
	Expiration      time.Time `json:"expiration"`
}

// Load reads and decrypts the cache file. A missing file is reported via
// os.IsNotExist on the returned error, matching os.ReadFile's own
// convention, so callers can treat "no cache yet" as a normal miss.
func (c *Cache) Load() (awscore.ExpiringCredential, error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return awscore.ExpiringCredential{}, err
	}

	var envelope onDiskEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return awscore.ExpiringCredential{}, fmt.Errorf("filecache: decoding envelope: %w", err)
	}

	gcm, err := c.gcmForSalt(envelope.Salt)
	if err != nil {
		return awscore.ExpiringCredential{}, err
	}
	if len(envelope.Nonce) != nonceSize || len(envelope.Ciphertext) == 0 {
		return awscore.ExpiringCredential{}, ErrInvalidCiphertext
	}

	plaintext, err := gcm.Open(nil, envelope.Nonce, envelope.Ciphertext, nil)
	if err != nil {
		return awscore.ExpiringCredential{}, ErrDecryptionFailed
	}

	var stored cachedCredential
	if err := json.Unmarshal(plaintext, &stored); err != nil {
		return awscore.ExpiringCredential{}, fmt.Errorf("filecache: decoding credential: %w", err)
	}

	return awscore.ExpiringCredential{
		Credential: awscore.Credential{
			AccessKeyID:     stored.AccessKeyID,
			SecretAccessKey: stored.SecretAccessKey,
			SessionToken:    stored.SessionToken,
		},
		Expiration: stored.Expiration,
	}, nil
}

// Store encrypts cred and writes it to the cache file, creating or
// truncating it as needed with 0600 permissions (the file holds live
// credentials once decrypted).
func (c *Cache) Store(cred awscore.ExpiringCredential) error {
	salt := make([]byte, pbkdf2SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("filecache: generating salt: %w", err)
	}

	gcm, err := c.gcmForSalt(salt)
	if err != nil {
		return err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("filecache: generating nonce: %w", err)
	}

	stored := cachedCredential{
		AccessKeyID:     cred.AccessKeyID,
		SecretAccessKey: cred.SecretAccessKey,
		SessionToken:    cred.SessionToken,
		Expiration:      cred.Expiration,
	}
	plaintext, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("filecache: encoding credential: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)
	raw, err := json.Marshal(onDiskEnvelope{Salt: salt, Nonce: nonce, Ciphertext: ciphertext})
	if err != nil {
		return fmt.Errorf("filecache: encoding envelope: %w", err)
	}

	if err := os.WriteFile(c.path, raw, 0o600); err != nil {
		return fmt.Errorf("filecache: writing cache file: %w", err)
	}
	return nil
}

// gcmForSalt derives this cache's AES key for one salt: PBKDF2 stretches
// the passphrase against the salt, then HKDF derives a purpose-scoped
// subkey from that intermediate.
func (c *Cache) gcmForSalt(salt []byte) (cipher.AEAD, error) {
	stretched := pbkdf2.Key([]byte(c.passphrase), salt, pbkdf2Iters, keySize, sha256.New)

	hkdfReader := hkdf.New(sha256.New, stretched, salt, []byte(c.purpose))
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdfReader, key); err != nil {
		return nil, fmt.Errorf("filecache: deriving key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("filecache: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("filecache: creating GCM: %w", err)
	}
	return gcm, nil
}
