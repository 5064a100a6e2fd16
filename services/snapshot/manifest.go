package snapshot

import (
	"time"

	"gopkg.in/yaml.v3"
)

const manifestVersion = "1"

// Manifest is the signed table of contents of a snapshot archive.
type Manifest struct {
	Version          string              `yaml:"version"`
	CreatedAt        time.Time           `yaml:"created_at"`
	Signer           string              `yaml:"signer,omitempty"`
	SigningPublicKey string              `yaml:"signing_public_key,omitempty"`
	Signature        string              `yaml:"signature,omitempty"`
	Containers       []ManifestContainer `yaml:"containers"`
}

// ManifestContainer describes one container file in the archive.
type ManifestContainer struct {
	Key    string `yaml:"key"`
	Path   string `yaml:"path"`
	Size   int64  `yaml:"size"`
	SHA256 string `yaml:"sha256"`
}

// signingBytes is the manifest encoding covered by the signature.
func (m Manifest) signingBytes() ([]byte, error) {
	m.Signature = ""
	return yaml.Marshal(m)
}
