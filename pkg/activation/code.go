package activation

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
)

const (
	keySize = 32
	sigSize = 8
	kdfInfo = "devicecap-activation-v1"
)

// codePayload is what an activation code carries. It is readable by anyone holding the code;
// the signature only proves it was minted here.
type codePayload struct {
	TokenID      uuid.UUID `json:"i"`
	DeviceTypeID string    `json:"t"`
	ExpiresAt    int64     `json:"e"`
}

func (p codePayload) expired(now time.Time) bool {
	return !now.Before(time.Unix(p.ExpiresAt, 0))
}

// codec mints and verifies activation codes shaped as base64url(json).base64url(hmac[:8])
// and derives the digest under which a code is stored.
type codec struct {
	signKey   []byte
	digestKey []byte
}

// newCodec derives independent signing and digest keys from one secret.
func newCodec(secret string) (*codec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(kdfInfo))
	keys := make([]byte, 2*keySize)
	if _, err := io.ReadFull(r, keys); err != nil {
		return nil, errors.Join(ErrEmptySecret, err)
	}
	return &codec{signKey: keys[:keySize], digestKey: keys[keySize:]}, nil
}

func (c *codec) sign(p codePayload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data) + "." +
		base64.RawURLEncoding.EncodeToString(c.mac(data)), nil
}

func (c *codec) parse(code string) (codePayload, error) {
	var p codePayload

	payload, sig, ok := strings.Cut(strings.TrimSpace(code), ".")
	if !ok {
		return p, ErrInvalidToken
	}
	data, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return p, errors.Join(ErrInvalidToken, err)
	}
	gotSig, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return p, errors.Join(ErrInvalidToken, err)
	}
	if subtle.ConstantTimeCompare(gotSig, c.mac(data)) != 1 {
		return p, ErrInvalidToken
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, errors.Join(ErrInvalidToken, err)
	}
	return p, nil
}

func (c *codec) mac(data []byte) []byte {
	h := hmac.New(sha256.New, c.signKey)
	h.Write(data)
	return h.Sum(nil)[:sigSize]
}

// digest is the keyed BLAKE2b-256 of the trimmed code, hex encoded. Only digests are persisted.
func (c *codec) digest(code string) string {
	h, err := blake2b.New256(c.digestKey)
	if err != nil {
		// only possible with a key longer than 64 bytes
		panic(err)
	}
	h.Write([]byte(strings.TrimSpace(code)))
	return hex.EncodeToString(h.Sum(nil))
}
