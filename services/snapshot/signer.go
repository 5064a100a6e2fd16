package snapshot

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"filippo.io/age"
	"github.com/btcsuite/btcutil/bech32"
)

const ageSecretHRP = "age-secret-key-"

var ErrSignature = errors.New("snapshot: signature verification failed")

// Keys holds the signing material as configured. Either field may be empty,
// but not both: a secret key can sign and verify, a public key only verifies.
type Keys struct {
	// SecretKey is an age X25519 identity ("AGE-SECRET-KEY-1...") whose seed doubles as an Ed25519 seed.
	SecretKey string
	// PublicKey is the base64 Ed25519 public key derived from SecretKey.
	PublicKey string
}

// Signer signs and verifies snapshot manifests.
type Signer struct {
	private   ed25519.PrivateKey
	public    ed25519.PublicKey
	recipient string
}

func NewSigner(keys Keys) (*Signer, error) {
	secret := strings.TrimSpace(keys.SecretKey)
	pub := strings.TrimSpace(keys.PublicKey)
	if secret == "" && pub == "" {
		return nil, errors.New("snapshot: a secret or public key is required")
	}

	s := &Signer{}
	if secret != "" {
		seed, err := ageSeed(secret)
		if err != nil {
			return nil, fmt.Errorf("snapshot: parse secret key: %w", err)
		}
		s.private = ed25519.NewKeyFromSeed(seed)
		s.public = s.private.Public().(ed25519.PublicKey)
		if identity, err := age.ParseX25519Identity(secret); err == nil {
			s.recipient = identity.Recipient().String()
		}
	}

	if pub != "" {
		decoded, err := decodePublicKey(pub)
		if err != nil {
			return nil, fmt.Errorf("snapshot: parse public key: %w", err)
		}
		if s.public != nil && !bytes.Equal(s.public, decoded) {
			return nil, errors.New("snapshot: public key does not match secret key")
		}
		s.public = decoded
	}
	return s, nil
}

// GenerateKeys creates a fresh age identity and the matching Ed25519 public key.
func GenerateKeys() (Keys, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return Keys{}, fmt.Errorf("snapshot: generate identity: %w", err)
	}
	signer, err := NewSigner(Keys{SecretKey: identity.String()})
	if err != nil {
		return Keys{}, err
	}
	return Keys{SecretKey: identity.String(), PublicKey: signer.PublicKey()}, nil
}

func (s *Signer) CanSign() bool {
	return s != nil && len(s.private) > 0
}

// Sign returns the base64 Ed25519 signature of payload.
func (s *Signer) Sign(payload []byte) (string, error) {
	if !s.CanSign() {
		return "", errors.New("snapshot: signer has no secret key")
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(s.private, payload)), nil
}

// Verify checks signature over payload. embedded is the key recorded in the
// manifest; it must match the configured key.
func (s *Signer) Verify(payload []byte, signature, embedded string) error {
	if s == nil || len(s.public) == 0 {
		return errors.New("snapshot: signer has no public key")
	}
	if embedded != "" {
		key, err := decodePublicKey(embedded)
		if err != nil {
			return fmt.Errorf("snapshot: manifest key: %w", err)
		}
		if !bytes.Equal(key, s.public) {
			return fmt.Errorf("%w: signed by an unexpected key", ErrSignature)
		}
	}

	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return fmt.Errorf("%w: decode signature: %v", ErrSignature, err)
	}
	if len(sig) != ed25519.SignatureSize || !ed25519.Verify(s.public, payload, sig) {
		return ErrSignature
	}
	return nil
}

// PublicKey returns the Ed25519 public key in base64.
func (s *Signer) PublicKey() string {
	if s == nil || len(s.public) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(s.public)
}

// Recipient is the age recipient of the secret key, empty for verify-only signers.
func (s *Signer) Recipient() string {
	if s == nil {
		return ""
	}
	return s.recipient
}

func decodePublicKey(raw string) (ed25519.PublicKey, error) {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("want %d bytes, got %d", ed25519.PublicKeySize, len(decoded))
	}
	return ed25519.PublicKey(decoded), nil
}

func ageSeed(secret string) ([]byte, error) {
	hrp, data, err := bech32.Decode(secret)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(hrp, ageSecretHRP) {
		return nil, fmt.Errorf("unexpected prefix %q", hrp)
	}
	seed, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, err
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("unexpected seed length %d", len(seed))
	}
	return seed, nil
}
