package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openbao/openbao/api/v2"
)

var ErrOpenBaoSecretNotFound = errors.New("openbao secret path not found")

// BootstrapFromOpenBao loads secrets from an OpenBao KV v2 path and exports them as environment variables.
// When OpenBao configuration variables are not present, the function is a no-op so .env based setups keep working.
func BootstrapFromOpenBao(ctx context.Context) error {
	cfg := openBaoConfigFromEnv()
	if !cfg.enabled {
		return nil
	}

	secrets, err := readSecrets(ctx, cfg)
	if err != nil {
		return err
	}

	for k, v := range secrets {
		_ = os.Setenv(k, v)
	}
	return nil
}

type openBaoConfig struct {
	addr      string
	token     string
	mountPath string
	secretKey string
	namespace string
	enabled   bool
}

func openBaoConfigFromEnv() openBaoConfig {
	addr := strings.TrimSpace(os.Getenv("OPENBAO_ADDR"))
	token := os.Getenv("OPENBAO_TOKEN")
	secretPath := strings.Trim(strings.TrimSpace(os.Getenv("OPENBAO_SECRET_PATH")), "/")

	if addr == "" || token == "" || secretPath == "" {
		return openBaoConfig{enabled: false}
	}

	mount := os.Getenv("OPENBAO_MOUNT")
	if mount == "" {
		mount = "secret"
	}

	return openBaoConfig{
		addr:      strings.TrimRight(addr, "/"),
		token:     token,
		mountPath: strings.Trim(strings.TrimSpace(mount), "/"),
		secretKey: secretPath,
		namespace: strings.TrimSpace(os.Getenv("OPENBAO_NAMESPACE")),
		enabled:   true,
	}
}

func readSecrets(ctx context.Context, cfg openBaoConfig) (map[string]string, error) {
	clientCfg := api.DefaultConfig()
	if clientCfg.Error != nil {
		return nil, fmt.Errorf("OpenBao client config: %w", clientCfg.Error)
	}
	clientCfg.Address = cfg.addr
	clientCfg.Timeout = 5 * time.Second
	clientCfg.MaxRetries = 1

	client, err := api.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create OpenBao client: %w", err)
	}
	client.SetToken(cfg.token)
	if cfg.namespace != "" {
		client.SetNamespace(cfg.namespace)
	}

	secret, err := client.KVv2(cfg.mountPath).Get(ctx, cfg.secretKey)
	if err != nil {
		if errors.Is(err, api.ErrSecretNotFound) {
			return nil, ErrOpenBaoSecretNotFound
		}
		return nil, fmt.Errorf("read OpenBao secret %s/%s: %w", cfg.mountPath, cfg.secretKey, err)
	}

	out := make(map[string]string, len(secret.Data))
	for k, v := range secret.Data {
		switch val := v.(type) {
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		case bool:
			out[k] = fmt.Sprintf("%t", val)
		case fmt.Stringer:
			out[k] = val.String()
		case float64:
			out[k] = strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", val), "0"), ".")
		default:
			// ignore unsupported types to avoid failing the entire bootstrap
		}
	}

	return out, nil
}
