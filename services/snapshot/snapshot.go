// Package snapshot exports every container of a key-value area into a
// signed tar.zst archive and restores it on the same or another device.
package snapshot

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"checkround/pkg/kv"
)

const (
	manifestFileName = "manifest.yaml"
	containersDir    = "containers"
	// maxEntrySize bounds how much of one archive entry is read into memory.
	maxEntrySize = 64 << 20
)

// ErrInvalidArchive reports a snapshot whose contents do not match its manifest.
var ErrInvalidArchive = errors.New("snapshot: invalid archive")

// ExportConfig configures Export.
type ExportConfig struct {
	Backend kv.Backend
	Output  string
	Signer  *Signer
	// Exclude lists keys that stay on this device.
	Exclude []string
	Now     func() time.Time
	Stdout  io.Writer
}

// ImportConfig configures Import.
type ImportConfig struct {
	Backend    kv.Backend
	BundlePath string
	Signer     *Signer
	// Keep lists local keys that survive the restore untouched.
	Keep   []string
	Stdout io.Writer
}

// Export writes every backend key, except excluded ones, as containers/<key>.json.
func Export(ctx context.Context, cfg ExportConfig) (*Manifest, error) {
	if cfg.Backend == nil {
		return nil, errors.New("snapshot: backend is required")
	}
	if cfg.Output == "" {
		return nil, errors.New("snapshot: output path is required")
	}
	if !cfg.Signer.CanSign() {
		return nil, errors.New("snapshot: a signer with a secret key is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Stdout == nil {
		cfg.Stdout = io.Discard
	}

	keys, err := cfg.Backend.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list keys: %w", err)
	}

	manifest := &Manifest{
		Version:          manifestVersion,
		CreatedAt:        cfg.Now().UTC().Truncate(time.Second),
		Signer:           cfg.Signer.Recipient(),
		SigningPublicKey: cfg.Signer.PublicKey(),
		Containers:       []ManifestContainer{},
	}
	payloads := map[string][]byte{}
	for _, key := range keys {
		if slices.Contains(cfg.Exclude, key) {
			continue
		}
		value, err := cfg.Backend.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("snapshot: read %q: %w", key, err)
		}
		entry := ManifestContainer{
			Key:    key,
			Path:   containerPath(key),
			Size:   int64(len(value)),
			SHA256: digest(value),
		}
		manifest.Containers = append(manifest.Containers, entry)
		payloads[entry.Path] = value
	}

	payload, err := manifest.signingBytes()
	if err != nil {
		return nil, fmt.Errorf("snapshot: marshal manifest for signing: %w", err)
	}
	if manifest.Signature, err = cfg.Signer.Sign(payload); err != nil {
		return nil, err
	}
	manifestBytes, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("snapshot: marshal manifest: %w", err)
	}

	if err := writeArchive(cfg.Output, manifestBytes, manifest.Containers, payloads, manifest.CreatedAt); err != nil {
		return nil, err
	}

	fmt.Fprintf(cfg.Stdout, "wrote snapshot %s (%d containers)\n", cfg.Output, len(manifest.Containers))
	return manifest, nil
}

func writeArchive(output string, manifest []byte, entries []ManifestContainer, payloads map[string][]byte, modTime time.Time) (err error) {
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("snapshot: create output dir: %w", err)
		}
	}

	file, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("snapshot: create output: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			os.Remove(output)
		}
	}()

	encoder, err := zstd.NewWriter(file)
	if err != nil {
		return fmt.Errorf("snapshot: zstd writer: %w", err)
	}
	tw := tar.NewWriter(encoder)

	if err := writeEntry(tw, manifestFileName, manifest, modTime); err != nil {
		return err
	}
	for _, entry := range entries {
		if err := writeEntry(tw, entry.Path, payloads[entry.Path], modTime); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("snapshot: finish tar: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("snapshot: finish zstd: %w", err)
	}
	return nil
}

func writeEntry(tw *tar.Writer, name string, data []byte, modTime time.Time) error {
	header := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(data)),
		ModTime:  modTime,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("snapshot: write header for %q: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("snapshot: write %q: %w", name, err)
	}
	return nil
}

// Import verifies the archive completely, then replaces the backend's
// contents with it. Nothing is written unless every check passes.
func Import(ctx context.Context, cfg ImportConfig) (*Manifest, error) {
	if cfg.Backend == nil {
		return nil, errors.New("snapshot: backend is required")
	}
	if cfg.BundlePath == "" {
		return nil, errors.New("snapshot: snapshot file is required")
	}
	if cfg.Signer == nil {
		return nil, errors.New("snapshot: signer is required")
	}
	if cfg.Stdout == nil {
		cfg.Stdout = io.Discard
	}

	manifest, files, err := readArchive(ctx, cfg.BundlePath)
	if err != nil {
		return nil, err
	}

	restore, err := verifyArchive(manifest, files, cfg.Signer)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(cfg.Stdout, "verified snapshot signed at %s\n", manifest.CreatedAt.Format(time.RFC3339))

	existing, err := cfg.Backend.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list keys: %w", err)
	}
	for _, key := range existing {
		if _, ok := restore[key]; ok || slices.Contains(cfg.Keep, key) {
			continue
		}
		if err := cfg.Backend.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("snapshot: delete %q: %w", key, err)
		}
	}
	for _, entry := range manifest.Containers {
		if slices.Contains(cfg.Keep, entry.Key) {
			continue
		}
		if err := cfg.Backend.Put(ctx, entry.Key, restore[entry.Key]); err != nil {
			return nil, fmt.Errorf("snapshot: restore %q: %w", entry.Key, err)
		}
		fmt.Fprintf(cfg.Stdout, "restored %s (%d bytes)\n", entry.Key, entry.Size)
	}

	return manifest, nil
}

func readArchive(ctx context.Context, bundlePath string) (*Manifest, map[string][]byte, error) {
	file, err := os.Open(bundlePath)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: open: %w", err)
	}
	defer file.Close()

	decoder, err := zstd.NewReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: zstd reader: %w", err)
	}
	defer decoder.Close()

	var manifestBytes []byte
	files := map[string][]byte{}
	tr := tar.NewReader(decoder)
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: read tar entry: %v", ErrInvalidArchive, err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		if header.Size > maxEntrySize {
			return nil, nil, fmt.Errorf("%w: entry %q too large", ErrInvalidArchive, header.Name)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: read %q: %v", ErrInvalidArchive, header.Name, err)
		}

		name := path.Clean(header.Name)
		if name == manifestFileName {
			manifestBytes = data
			continue
		}
		files[name] = data
	}

	if len(manifestBytes) == 0 {
		return nil, nil, fmt.Errorf("%w: missing %s", ErrInvalidArchive, manifestFileName)
	}
	var manifest Manifest
	if err := yaml.Unmarshal(manifestBytes, &manifest); err != nil {
		return nil, nil, fmt.Errorf("%w: decode manifest: %v", ErrInvalidArchive, err)
	}
	return &manifest, files, nil
}

func containerPath(key string) string {
	return containersDir + "/" + key + ".json"
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// verifyArchive checks the manifest version and signature, then every
// container against its manifest entry. It returns the payloads keyed by container.
func verifyArchive(manifest *Manifest, files map[string][]byte, signer *Signer) (map[string][]byte, error) {
	if manifest.Version != manifestVersion {
		return nil, fmt.Errorf("%w: unsupported manifest version %q", ErrInvalidArchive, manifest.Version)
	}
	if manifest.Signature == "" {
		return nil, fmt.Errorf("%w: manifest is not signed", ErrInvalidArchive)
	}
	payload, err := manifest.signingBytes()
	if err != nil {
		return nil, fmt.Errorf("snapshot: marshal manifest for verification: %w", err)
	}
	if err := signer.Verify(payload, manifest.Signature, manifest.SigningPublicKey); err != nil {
		return nil, err
	}

	restore := make(map[string][]byte, len(manifest.Containers))
	for _, entry := range manifest.Containers {
		if entry.Path != containerPath(entry.Key) {
			return nil, fmt.Errorf("%w: container %q stored at %q", ErrInvalidArchive, entry.Key, entry.Path)
		}
		data, ok := files[entry.Path]
		if !ok {
			return nil, fmt.Errorf("%w: %q missing from archive", ErrInvalidArchive, entry.Path)
		}
		if int64(len(data)) != entry.Size {
			return nil, fmt.Errorf("%w: size mismatch for %q: expected %d got %d", ErrInvalidArchive, entry.Key, entry.Size, len(data))
		}
		if !strings.EqualFold(digest(data), entry.SHA256) {
			return nil, fmt.Errorf("%w: sha256 mismatch for %q", ErrInvalidArchive, entry.Key)
		}
		if !json.Valid(data) {
			return nil, fmt.Errorf("%w: %q is not valid JSON", ErrInvalidArchive, entry.Key)
		}
		restore[entry.Key] = data
	}
	return restore, nil
}

// Inspect verifies a snapshot exactly as Import does, without touching any store.
func Inspect(ctx context.Context, bundlePath string, signer *Signer) (*Manifest, error) {
	if signer == nil {
		return nil, errors.New("snapshot: signer is required")
	}
	manifest, files, err := readArchive(ctx, bundlePath)
	if err != nil {
		return nil, err
	}
	if _, err := verifyArchive(manifest, files, signer); err != nil {
		return nil, err
	}
	return manifest, nil
}
