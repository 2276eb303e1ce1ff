// Package secrets resolves named secrets. Cloud Functions deployments mount
// Secret Manager values as environment variables, so the env-backed store is
// the production path too.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvStore reads secrets from environment variables. Names are upper-snaked:
// "source-api-key-hevy" resolves from SOURCE_API_KEY_HEVY.
type EnvStore struct{}

func NewEnvStore() *EnvStore { return &EnvStore{} }

func (s *EnvStore) GetSecret(ctx context.Context, name string) (string, error) {
	key := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("secret %s not found (env %s unset)", name, key)
	}
	return value, nil
}

// StaticStore serves a fixed map. Test use only.
type StaticStore struct {
	Values map[string]string
}

func (s *StaticStore) GetSecret(ctx context.Context, name string) (string, error) {
	if v, ok := s.Values[name]; ok {
		return v, nil
	}
	return "", fmt.Errorf("secret %s not found", name)
}
