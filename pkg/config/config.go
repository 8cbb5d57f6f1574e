package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"safe-core/pkg/validator"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Service  ServiceConfig  `mapstructure:"service"`
	Signer   SignerConfig   `mapstructure:"signer"`
	Eth      EthConfig      `mapstructure:"eth"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Observer ObserverConfig `mapstructure:"observer"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type AppConfig struct {
	Env string `mapstructure:"env" validate:"oneof=development production"`
}

// ServiceConfig selects the Safe Transaction Service. URL may be empty when
// ChainID names a known network.
type ServiceConfig struct {
	URL     string `mapstructure:"url" validate:"omitempty,url"`
	ChainID uint64 `mapstructure:"chain_id" validate:"required"`
	Timeout string `mapstructure:"timeout" validate:"required,duration"`
	Origin  string `mapstructure:"origin"`
}

type SignerConfig struct {
	PrivateKey     string `mapstructure:"private_key"`
	Mnemonic       string `mapstructure:"mnemonic"`
	KeystorePath   string `mapstructure:"keystore_path"`
	Password       string `mapstructure:"password"` // usually SAFE_SIGNER_PASSWORD
	DerivationPath string `mapstructure:"derivation_path"`
	EthSign        bool   `mapstructure:"eth_sign"`
}

type EthConfig struct {
	RpcUrl string `mapstructure:"rpc_url"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MQType   string `mapstructure:"mq_type" validate:"oneof=redis kafka"`
	Enabled  bool   `mapstructure:"enabled"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers" validate:"dive,required"`
	Topic   string   `mapstructure:"topic"`
}

type ObserverConfig struct {
	Safes    []string `mapstructure:"safes" validate:"dive,eth_addr"`
	Schedule string   `mapstructure:"schedule" validate:"required"`
	Topic    string   `mapstructure:"topic"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

var Global Config

// Init loads configuration into Global. cfgFile overrides the search path
// when non-empty.
func Init(cfgFile string) error {
	cfg, err := Load(viper.GetViper(), cfgFile)
	if err != nil {
		return err
	}
	Global = *cfg
	return nil
}

// Load reads config.yaml and SAFE_* environment variables through v.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("safe")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")

	v.SetDefault("service.chain_id", 1)
	v.SetDefault("service.timeout", "30s")

	v.SetDefault("signer.derivation_path", "m/44'/60'/0'/0/0")
	v.SetDefault("signer.keystore_path", "wallet.json")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.mq_type", "redis")
	v.SetDefault("redis.enabled", false)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "safe_events")

	v.SetDefault("observer.schedule", "@every 30s")
	v.SetDefault("observer.topic", "safe_events")

	v.SetDefault("metrics.addr", ":9100")
}
