package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// resolveAWSSecretsManager reads a secret from AWS Secrets Manager. The
// reference is either a secret name, returning the whole string value, or
// name#field, returning one field of a JSON secret such as an RDS credential.
func resolveAWSSecretsManager(ctx context.Context, ref string) (string, error) {
	name, field, hasField := strings.Cut(ref, "#")

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("loading AWS config: %w", err)
	}

	client := secretsmanager.NewFromConfig(cfg)
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("getting secret %q: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %q has no string value (binary secrets not supported)", name)
	}
	if !hasField {
		return *out.SecretString, nil
	}
	return secretField(*out.SecretString, name, field)
}

func secretField(raw, name, field string) (string, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return "", fmt.Errorf("secret %q is not a JSON object: %w", name, err)
	}
	v, ok := fields[field]
	if !ok {
		return "", fmt.Errorf("field %q not found in secret %q", field, name)
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}
