// Package secrets resolves configuration references stored in HashiCorp Vault.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/patrickmn/go-cache"
)

// DefaultTTL is how long a resolved value is reused before Vault is asked again.
const DefaultTTL = 15 * time.Minute

// KVReader reads a KV version 2 secret. *vault.KVv2 satisfies it through
// VaultResolver.
type KVReader interface {
	Get(ctx context.Context, mount, path string) (map[string]any, error)
}

// VaultResolver resolves references of the form <mount>/<path>#<key>.
// Resolved values are cached for the configured TTL.
type VaultResolver struct {
	kv    KVReader
	cache *cache.Cache
}

// NewVaultResolver builds a resolver from VAULT_ADDR, VAULT_TOKEN and the
// other standard Vault environment variables.
func NewVaultResolver() (*VaultResolver, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("secrets: vault environment: %w", err)
	}
	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("secrets: vault client: %w", err)
	}
	return NewResolver(apiReader{client: client}, DefaultTTL), nil
}

// NewResolver wraps an arbitrary KV reader. A non-positive ttl keeps values
// for the life of the resolver.
func NewResolver(kv KVReader, ttl time.Duration) *VaultResolver {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &VaultResolver{kv: kv, cache: cache.New(ttl, 2*DefaultTTL)}
}

// Resolve returns the string value a reference points at.
func (r *VaultResolver) Resolve(ctx context.Context, ref string) (string, error) {
	mount, path, key, err := parseRef(ref)
	if err != nil {
		return "", err
	}

	if v, ok := r.cache.Get(ref); ok {
		return v.(string), nil
	}

	data, err := r.kv.Get(ctx, mount, path)
	if err != nil {
		return "", fmt.Errorf("secrets: read %s/%s: %w", mount, path, err)
	}
	raw, ok := data[key]
	if !ok {
		return "", fmt.Errorf("secrets: key %q not found in %s/%s", key, mount, path)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("secrets: value at %s/%s#%s is not a string", mount, path, key)
	}

	r.cache.SetDefault(ref, value)
	return value, nil
}

func parseRef(ref string) (mount, path, key string, err error) {
	location, key, found := strings.Cut(ref, "#")
	if !found || key == "" {
		return "", "", "", fmt.Errorf("secrets: reference %q has no #key", ref)
	}
	mount, path, found = strings.Cut(location, "/")
	if !found || mount == "" || path == "" {
		return "", "", "", fmt.Errorf("secrets: reference %q must be <mount>/<path>#<key>", ref)
	}
	return mount, path, key, nil
}

type apiReader struct {
	client *vault.Client
}

func (a apiReader) Get(ctx context.Context, mount, path string) (map[string]any, error) {
	secret, err := a.client.KVv2(mount).Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if secret == nil || secret.Data == nil {
		return nil, errors.New("empty secret")
	}
	return secret.Data, nil
}
