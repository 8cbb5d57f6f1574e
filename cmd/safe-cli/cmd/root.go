package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"safe-core/pkg/cache"
	"safe-core/pkg/config"
	"safe-core/pkg/errno"
	"safe-core/pkg/lock"
	"safe-core/pkg/logger"
	"safe-core/pkg/model"
	"safe-core/pkg/networks"
	"safe-core/pkg/safeclient"
	"safe-core/pkg/transport"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "safe-cli",
	Short: "Safe multisig transaction service client",
	Long: `safe-cli reads Safe state from a Safe Transaction Service, proposes and
confirms multisig transactions, executes them once enough owners signed and
watches pending queues.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(cfgFile); err != nil {
			return err
		}
		logger.Init(config.Global.App.Env)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute runs the root command and exits non-zero with the error code on
// failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		code, msg := errno.Decode(err)
		fmt.Fprintf(os.Stderr, "error %d: %s\n", code, msg)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
	rootCmd.PersistentFlags().String("env", "", "environment: development or production")
	rootCmd.PersistentFlags().Uint64("chain-id", 0, "chain id of the Safe network")
	rootCmd.PersistentFlags().String("service-url", "", "transaction service base URL")

	_ = viper.BindPFlag("app.env", rootCmd.PersistentFlags().Lookup("env"))
	_ = viper.BindPFlag("service.chain_id", rootCmd.PersistentFlags().Lookup("chain-id"))
	_ = viper.BindPFlag("service.url", rootCmd.PersistentFlags().Lookup("service-url"))
}

// newClient builds a client from config.Global. With Redis enabled the
// propose lock and token cache are shared across processes.
func newClient(extra ...safeclient.Option) (*safeclient.Client, error) {
	cfg := config.Global
	svc, err := networks.Resolve(cfg.Service.URL, cfg.Service.ChainID)
	if err != nil {
		return nil, err
	}
	timeout, err := time.ParseDuration(cfg.Service.Timeout)
	if err != nil {
		return nil, fmt.Errorf("service.timeout: %w", err)
	}

	opts := []safeclient.Option{
		safeclient.WithTransport(transport.WithTimeout(timeout), transport.WithUserAgent("safe-cli")),
		safeclient.WithOrigin(cfg.Service.Origin),
	}
	local := cache.NewMemoryCache(time.Hour, 10*time.Minute)
	if rdb := redisClient(); rdb != nil {
		opts = append(opts,
			safeclient.WithLock(lock.NewRedisLock(rdb), 30*time.Second),
			safeclient.WithTokenCache(cache.NewMultiLevelCache(local, cache.NewRedisCache(rdb, "safe:")), 24*time.Hour),
		)
	} else {
		opts = append(opts, safeclient.WithTokenCache(local, time.Hour))
	}
	return safeclient.New(svc, append(opts, extra...)...)
}

func redisClient() *redis.Client {
	if !config.Global.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     config.Global.Redis.Addr,
		Password: config.Global.Redis.Password,
		DB:       config.Global.Redis.DB,
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseAddress(s string) (common.Address, error) {
	return model.ParseAddress(s)
}

func parseHash(s string) (common.Hash, error) {
	raw, err := hexutil.Decode(s)
	if err != nil || len(raw) != common.HashLength {
		return common.Hash{}, errno.Errno{Code: errno.ErrBind.Code, Message: fmt.Sprintf("invalid safeTxHash %q", s)}
	}
	return common.BytesToHash(raw), nil
}
