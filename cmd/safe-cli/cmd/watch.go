package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"safe-core/internal/mq"
	"safe-core/internal/observer"
	"safe-core/pkg/cache"
	"safe-core/pkg/config"
	"safe-core/pkg/lock"
	"safe-core/pkg/logger"
	"safe-core/pkg/monitor"
)

var watchCmd = &cobra.Command{
	Use:   "watch [safe...]",
	Short: "Poll pending proposals and publish lifecycle events",
	Long: `watch polls the pending queue of every Safe given as argument or listed
under observer.safes, and publishes proposal events to Redis Streams or Kafka
(redis.mq_type). Without Redis the events are printed as JSON lines.
Prometheus metrics are served on metrics.addr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Global
		raw := append(append([]string{}, args...), cfg.Observer.Safes...)
		if len(raw) == 0 {
			return errors.New("no safes to watch")
		}
		safes := make([]common.Address, 0, len(raw))
		for _, s := range raw {
			addr, err := parseAddress(s)
			if err != nil {
				return err
			}
			safes = append(safes, addr)
		}

		c, err := newClient()
		if err != nil {
			return err
		}

		var (
			producer  mq.Producer
			locker    lock.DistributedLock
			snapshots cache.Cache
		)
		rdb := redisClient()
		switch {
		case cfg.Redis.MQType == "kafka":
			logger.Info("MQ mode: kafka", zap.Strings("brokers", cfg.Kafka.Brokers))
			producer = mq.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Observer.Topic)
		case rdb != nil:
			logger.Info("MQ mode: redis streams", zap.String("addr", cfg.Redis.Addr))
			producer = mq.NewRedisProducer(rdb, 10000)
		default:
			logger.Info("MQ mode: stdout")
			producer = lineProducer{w: cmd.OutOrStdout()}
		}
		if rdb != nil {
			locker = lock.NewRedisLock(rdb)
			snapshots = cache.NewRedisCache(rdb, "safe:")
		}
		defer producer.Close()

		monitor.Init()
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: monitor.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", zap.Error(err))
			}
		}()

		obs := observer.New(observer.Config{
			ChainID:   c.ChainID(),
			Safes:     safes,
			Topic:     cfg.Observer.Topic,
			Snapshots: snapshots,
		}, c, producer, locker)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		// First poll right away so the baseline does not wait a full period.
		obs.Tick(ctx)
		sched := observer.NewScheduler(obs)
		if err := sched.Start(ctx, cfg.Observer.Schedule); err != nil {
			return err
		}

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case <-ctx.Done():
		}

		logger.Info("stopping watcher")
		sched.Stop()
		shutdown, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		return srv.Shutdown(shutdown)
	},
}

// lineProducer prints each event payload on its own line.
type lineProducer struct {
	w io.Writer
}

func (p lineProducer) Publish(_ context.Context, _ string, _ string, payload []byte) error {
	_, err := fmt.Fprintf(p.w, "%s\n", payload)
	return err
}

func (lineProducer) Close() error { return nil }

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Tail proposal events published by watch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Global
		group, _ := cmd.Flags().GetString("group")

		var consumer mq.Consumer
		if cfg.Redis.MQType == "kafka" {
			consumer = mq.NewKafkaConsumer(cfg.Kafka.Brokers, group)
		} else {
			rdb := redisClient()
			if rdb == nil {
				return errors.New("events needs redis.enabled or redis.mq_type=kafka")
			}
			host, _ := os.Hostname()
			consumer = mq.NewRedisConsumer(rdb, group, host)
		}
		defer consumer.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		err := consumer.Subscribe(ctx, cfg.Observer.Topic, func(msg *mq.Message) error {
			_, err := fmt.Fprintf(out, "%s\n", msg.Payload)
			return err
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	eventsCmd.Flags().String("group", "safe-cli", "consumer group")
	rootCmd.AddCommand(watchCmd, eventsCmd)
}
