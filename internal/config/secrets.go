package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"
)

var secretPattern = regexp.MustCompile(`\$\{(ENV|VAULT|AWS_SM):([^}]+)\}`)

// secretTimeout bounds a single secret lookup.
const secretTimeout = 15 * time.Second

type secretResolver func(ctx context.Context, ref string) (string, error)

// resolvers maps a provider prefix to its lookup.
var resolvers = map[string]secretResolver{
	"ENV":    resolveEnv,
	"VAULT":  resolveVault,
	"AWS_SM": resolveAWSSecretsManager,
}

// ResolveValue replaces every secret reference embedded in val, such as
// "${ENV:PGPASSWORD}" or "amqp://bank:${VAULT:secret/data/mq#password}@mq:5672/".
func ResolveValue(val string) (string, error) {
	var firstErr error
	out := secretPattern.ReplaceAllStringFunc(val, func(m string) string {
		if firstErr != nil {
			return m
		}
		parts := secretPattern.FindStringSubmatch(m)
		resolve, ok := resolvers[parts[1]]
		if !ok {
			firstErr = fmt.Errorf("unknown secrets provider: %s", parts[1])
			return m
		}
		ctx, cancel := context.WithTimeout(context.Background(), secretTimeout)
		defer cancel()
		v, err := resolve(ctx, parts[2])
		if err != nil {
			firstErr = err
			return m
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func resolveEnv(_ context.Context, name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("environment variable %s not set", name)
	}
	return v, nil
}
