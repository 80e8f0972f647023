package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"
)

const filePrefix = "file://"

var ErrNoLayers = errors.New("no layers found in manifest")

type RegistryConfig struct {
	Username  string `env:"REGISTRY_USERNAME"`
	Password  string `env:"REGISTRY_PASSWORD"`
	PlainHTTP bool   `env:"REGISTRY_PLAIN_HTTP" envDefault:"false"`
}

// Fetch loads a trainer module. References starting with file:// or naming
// an existing file are read from disk; anything else is pulled from an OCI
// registry as the manifest's largest layer.
func Fetch(ctx context.Context, ref string, cfg RegistryConfig) ([]byte, error) {
	if path, ok := strings.CutPrefix(ref, filePrefix); ok {
		return os.ReadFile(path)
	}
	if _, err := os.Stat(ref); err == nil {
		return os.ReadFile(ref)
	}

	return pull(ctx, ref, cfg)
}

func pull(ctx context.Context, ref string, cfg RegistryConfig) ([]byte, error) {
	name, tag := splitRef(ref)
	repo, err := remote.NewRepository(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository for %s: %w", name, err)
	}
	repo.PlainHTTP = cfg.PlainHTTP
	repo.Client = &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
		Credential: auth.StaticCredential(repo.Reference.Registry, auth.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		}),
	}

	desc, err := repo.Resolve(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", ref, err)
	}

	rc, err := repo.Fetch(ctx, desc)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest: %w", err)
	}
	defer rc.Close()

	var manifest ocispec.Manifest
	if err := json.NewDecoder(rc).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}

	layer, err := largestLayer(manifest)
	if err != nil {
		return nil, err
	}

	lr, err := repo.Fetch(ctx, layer)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch layer: %w", err)
	}
	defer lr.Close()

	return io.ReadAll(lr)
}

func largestLayer(m ocispec.Manifest) (ocispec.Descriptor, error) {
	if len(m.Layers) == 0 {
		return ocispec.Descriptor{}, ErrNoLayers
	}
	largest := m.Layers[0]
	for _, l := range m.Layers[1:] {
		if l.Size > largest.Size {
			largest = l
		}
	}

	return largest, nil
}

// splitRef separates "registry/repo:tag" into repository and tag, treating a
// colon inside the registry host as a port.
func splitRef(ref string) (string, string) {
	if name, digest, ok := strings.Cut(ref, "@"); ok {
		return name, digest
	}
	slash := strings.LastIndex(ref, "/")
	colon := strings.LastIndex(ref, ":")
	if colon > slash {
		return ref[:colon], ref[colon+1:]
	}

	return ref, "latest"
}
