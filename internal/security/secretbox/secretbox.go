// Package secretbox cifra credenciales en reposo (AES-256-GCM).
//
// El formato persistido es base64(nonce)|base64(ciphertext). El repositorio de
// conexiones invoca el Codec en su frontera de lectura/escritura; el modelo de
// dominio nunca ve texto cifrado.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// EnvMasterKey es la variable de entorno con la clave maestra (base64, 32 bytes).
	EnvMasterKey = "SECRETBOX_MASTER_KEY"

	nonceSizeGCM      = 12
	requiredKeyLength = 32
	sep               = "|"
)

var (
	// ErrMissingKey indica que no hay clave maestra configurada.
	ErrMissingKey = errors.New("secretbox: master key not set")
	// ErrMalformed indica un ciphertext con formato inválido.
	ErrMalformed = errors.New("secretbox: malformed ciphertext, expected base64(nonce)|base64(ciphertext)")
)

// Codec cifra y descifra valores de texto.
type Codec interface {
	Encrypt(plain string) (string, error)
	Decrypt(cipherText string) (string, error)
}

// Box implementa Codec con AES-GCM.
type Box struct {
	aead cipher.AEAD
}

// New crea un Box a partir de una clave cruda de 32 bytes.
func New(key []byte) (*Box, error) {
	if len(key) != requiredKeyLength {
		return nil, fmt.Errorf("secretbox: key must be %d bytes, got %d", requiredKeyLength, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &Box{aead: aead}, nil
}

// NewFromString acepta la clave en base64 (std o raw), hex (64 chars) o 32 bytes crudos.
func NewFromString(key string) (*Box, error) {
	k, err := ParseKey(key)
	if err != nil {
		return nil, err
	}
	return New(k)
}

// FromEnv construye un Box con SECRETBOX_MASTER_KEY.
func FromEnv() (*Box, error) {
	v := strings.TrimSpace(os.Getenv(EnvMasterKey))
	if v == "" {
		return nil, fmt.Errorf("%w: genere una con `socialconnect keygen` y exporte %s", ErrMissingKey, EnvMasterKey)
	}
	return NewFromString(v)
}

// ParseKey decodifica una clave maestra de 32 bytes.
func ParseKey(key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrMissingKey
	}
	if b, err := base64.StdEncoding.DecodeString(key); err == nil && len(b) == requiredKeyLength {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(key); err == nil && len(b) == requiredKeyLength {
		return b, nil
	}
	if len(key) == 2*requiredKeyLength {
		if b, err := hex.DecodeString(key); err == nil {
			return b, nil
		}
	}
	if len(key) == requiredKeyLength {
		return []byte(key), nil
	}
	return nil, fmt.Errorf("secretbox: invalid key: need %d bytes (base64, hex or raw)", requiredKeyLength)
}

// DeriveKey deriva una subclave independiente de la maestra (HKDF-SHA256).
// info separa dominios: "credentials", "state", etc.
func DeriveKey(master []byte, info string) ([]byte, error) {
	out := make([]byte, requiredKeyLength)
	r := hkdf.New(sha256.New, master, nil, []byte(info))
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return out, nil
}

// GenerateKey retorna una clave aleatoria de 32 bytes en base64.
func GenerateKey() (string, error) {
	k := make([]byte, requiredKeyLength)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(k), nil
}

// Encrypt cifra plain y devuelve base64(nonce)|base64(ciphertext).
func (b *Box) Encrypt(plain string) (string, error) {
	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}
	ct := b.aead.Seal(nil, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(nonce) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt invierte Encrypt. Falla si el texto fue alterado.
func (b *Box) Decrypt(cipherText string) (string, error) {
	parts := strings.Split(cipherText, sep)
	if len(parts) != 2 {
		return "", ErrMalformed
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("decode nonce: %w", err)
	}
	if len(nonce) != nonceSizeGCM {
		return "", fmt.Errorf("%w: nonce is %d bytes", ErrMalformed, len(nonce))
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	pt, err := b.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("gcm auth/decrypt: %w", err)
	}
	return string(pt), nil
}

// Noop no cifra. Sólo para tests y desarrollo local.
type Noop struct{}

func (Noop) Encrypt(plain string) (string, error)      { return plain, nil }
func (Noop) Decrypt(cipherText string) (string, error) { return cipherText, nil }

// EncryptOptional cifra v salvo que sea vacío (columnas nullable).
func EncryptOptional(c Codec, v string) (string, error) {
	if v == "" {
		return "", nil
	}
	return c.Encrypt(v)
}

// DecryptOptional descifra v salvo que sea vacío.
func DecryptOptional(c Codec, v string) (string, error) {
	if v == "" {
		return "", nil
	}
	return c.Decrypt(v)
}
