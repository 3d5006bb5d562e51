package config

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"

	"github.com/michaelpento.lv/arbscanner/types"
)

// Environment variables
const (
	EnvPrivateKey  = "PRIVATE_KEY"
	EnvPostgresDSN = "DATABASE_URL"
	EnvRedisAddr   = "REDIS_ADDR"
	// EnvRPCPrefix is followed by the upper-cased chain key, e.g. RPC_URL_BASE
	EnvRPCPrefix = "RPC_URL_"
)

// Secrets are never read from config files
type Secrets struct {
	PrivateKey *ecdsa.PrivateKey
	Address    common.Address
}

// LoadEnv loads environment variables from .env file
func LoadEnv(files ...string) error {
	return godotenv.Load(files...)
}

// GetEnvWithDefault gets an environment variable with a default value
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetRequiredEnv gets a required environment variable
func GetRequiredEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%w: environment variable %s", types.ErrConfigurationMissing, key)
	}
	return value, nil
}

// LoadSecrets reads the wallet key from the environment
func LoadSecrets() (*Secrets, error) {
	raw, err := GetRequiredEnv(EnvPrivateKey)
	if err != nil {
		return nil, err
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s: %v", types.ErrConfigurationMissing, EnvPrivateKey, err)
	}

	return &Secrets{
		PrivateKey: key,
		Address:    crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// ApplyEnvOverrides lets deployments point at private RPCs and stores
// without editing the config file.
func (c *Config) ApplyEnvOverrides() {
	for i := range c.Chains {
		key := EnvRPCPrefix + strings.ToUpper(c.Chains[i].Key)
		c.Chains[i].RPCEndpoint = GetEnvWithDefault(key, c.Chains[i].RPCEndpoint)
	}
	c.Postgres.DSN = GetEnvWithDefault(EnvPostgresDSN, c.Postgres.DSN)
	c.Redis.Addr = GetEnvWithDefault(EnvRedisAddr, c.Redis.Addr)
}
