// Package wallet holds the admin key of a head and builds the transactions
// the aggregator submits on its behalf.
package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tolelom/headstats/crypto"
	"golang.org/x/crypto/pbkdf2"
)

// KeystoreType marks an encrypted admin key file. Files of any other type
// are read as cardano-cli signing key envelopes.
const KeystoreType = "HeadstatsAdminKeystore"

const seedSize = 32

// ErrWrongPassword is returned when a keystore cannot be decrypted or its
// key hash was altered.
var ErrWrongPassword = errors.New("wrong password or corrupted keystore")

// keystoreFile keeps only the 32-byte seed, sealed with the admin key hash
// as additional data.
type keystoreFile struct {
	Type       string `json:"type"`
	KeyHash    string `json:"key_hash"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipher_text"`
}

// SaveKey writes priv to path. With an empty password it writes a plain
// text envelope cardano-cli can read; otherwise an encrypted keystore.
func SaveKey(path, password string, priv crypto.PrivateKey) error {
	var v any = crypto.NewTextEnvelope(priv)
	if password != "" {
		ks, err := seal(password, priv)
		if err != nil {
			return err
		}
		v = ks
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// LoadAdminKey reads a head's admin key from a keystore or a text envelope.
func LoadAdminKey(path, password string) (crypto.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("admin key %q: %w", path, err)
	}
	if head.Type != KeystoreType {
		return crypto.LoadSigningKey(path)
	}
	var ks keystoreFile
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("admin key %q: %w", path, err)
	}
	priv, err := open(password, ks)
	if err != nil {
		return nil, fmt.Errorf("admin key %q: %w", path, err)
	}
	return priv, nil
}

func seal(password string, priv crypto.PrivateKey) (keystoreFile, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return keystoreFile{}, err
	}
	gcm, err := aead(password, salt)
	if err != nil {
		return keystoreFile{}, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return keystoreFile{}, err
	}
	keyHash := priv.Public().KeyHash()
	return keystoreFile{
		Type:       KeystoreType,
		KeyHash:    hex.EncodeToString(keyHash),
		Salt:       hex.EncodeToString(salt),
		Nonce:      hex.EncodeToString(nonce),
		CipherText: hex.EncodeToString(gcm.Seal(nil, nonce, []byte(priv)[:seedSize], keyHash)),
	}, nil
}

func open(password string, ks keystoreFile) (crypto.PrivateKey, error) {
	var fields [4][]byte
	for i, s := range []string{ks.KeyHash, ks.Salt, ks.Nonce, ks.CipherText} {
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("keystore field %d: %w", i, err)
		}
		fields[i] = b
	}
	keyHash, salt, nonce, cipherText := fields[0], fields[1], fields[2], fields[3]

	gcm, err := aead(password, salt)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, ErrWrongPassword
	}
	seed, err := gcm.Open(nil, nonce, cipherText, keyHash)
	if err != nil {
		return nil, ErrWrongPassword
	}
	return crypto.PrivKeyFromSeed(seed)
}

func aead(password string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(pbkdf2.Key([]byte(password), salt, 210_000, 32, sha256.New))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
