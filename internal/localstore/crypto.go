package localstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const keySalt = "course_sync_localstore_v1"

// blobCipher 对本地blob做AES-GCM静态加密，密钥由配置口令经pbkdf2派生
type blobCipher struct {
	aead cipher.AEAD
}

func newBlobCipher(passphrase string) *blobCipher {
	key := pbkdf2.Key([]byte(passphrase), []byte(keySalt), 4096, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		// 32字节密钥不会走到这里
		panic(err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		panic(err)
	}
	return &blobCipher{aead: aead}
}

func (c *blobCipher) seal(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *blobCipher) open(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	if len(raw) < c.aead.NonceSize() {
		return "", fmt.Errorf("localstore: sealed blob too short")
	}
	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
