// Package bootstrap builds the process dependencies named by the config.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/bookmd/internal/config"
	"github.com/hackgods/bookmd/internal/db"
	"github.com/hackgods/bookmd/internal/event"
	"github.com/hackgods/bookmd/internal/metrics"
	redisclient "github.com/hackgods/bookmd/internal/redis"
	"github.com/hackgods/bookmd/internal/service"
	"github.com/hackgods/bookmd/internal/store"
	"github.com/hackgods/bookmd/internal/store/postgres"
)

type Deps struct {
	Config     config.Config
	Log        zerolog.Logger
	Metrics    *metrics.Metrics
	DB         store.Database
	Redis      *redis.Client
	Locker     redisclient.Locker
	Idem       redisclient.IdempotencyStore
	Dispatcher event.Dispatcher

	closers []func()
}

// Open connects everything cfg asks for. On error whatever was opened is
// closed again.
func Open(ctx context.Context, cfg config.Config, log zerolog.Logger, m *metrics.Metrics) (*Deps, error) {
	d := &Deps{Config: cfg, Log: log, Metrics: m}
	if err := d.open(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Deps) open(ctx context.Context) error {
	kind, err := d.Config.StoreKind()
	if err != nil {
		return err
	}
	switch kind {
	case config.StorePostgres:
		pool, err := db.ConnectPostgres(ctx, d.Config.StoreDSN)
		if err != nil {
			return fmt.Errorf("postgres connection error: %w", err)
		}
		d.closers = append(d.closers, pool.Close)
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		d.DB = postgres.New(pool)
	default:
		d.DB = store.NewMemory(d.Config.StoreName())
	}
	d.Log.Info().Str("store", kind).Str("name", d.Config.StoreName()).Msg("store ready")

	lockCfg := redisclient.DefaultLockConfig()
	lockCfg.TTL = d.Config.LockTTL
	if d.Config.RedisURL != "" {
		rdb, err := redisclient.NewRedisClient(ctx, d.Config.RedisURL)
		if err != nil {
			return fmt.Errorf("redis connection error: %w", err)
		}
		d.closers = append(d.closers, func() { _ = rdb.Close() })
		d.Redis = rdb
		d.Locker = redisclient.NewRedisLocker(rdb, lockCfg)
		d.Idem = redisclient.NewRedisIdempotency(rdb, d.Config.IdempotencyTTL)
		d.Log.Info().Msg("connected to Redis")
	} else {
		d.Locker = redisclient.NewMemoryLocker(lockCfg)
		d.Idem = redisclient.NewMemoryIdempotency(d.Config.IdempotencyTTL)
		d.Log.Warn().Msg("REDIS_URL not set, locks and idempotency keys are process local")
	}

	sinks, err := d.sinks()
	if err != nil {
		return err
	}
	d.Dispatcher = event.NewFanout(d.Metrics, sinks...)
	return nil
}

func (d *Deps) sinks() ([]event.Sink, error) {
	var sinks []event.Sink
	for _, name := range d.Config.EventSinks {
		switch name {
		case config.SinkLog:
			sinks = append(sinks, event.NewLogSink(d.Log))
		case config.SinkRedis:
			if d.Redis == nil {
				return nil, errors.New("redis event sink needs REDIS_URL")
			}
			sinks = append(sinks, event.NewRedisSink(d.Redis, d.Config.RedisEventChannel))
		case config.SinkAMQP:
			s, err := event.DialAMQP(d.Config.AMQPURL, d.Config.AMQPExchange)
			if err != nil {
				return nil, err
			}
			d.closers = append(d.closers, func() { _ = s.Close() })
			sinks = append(sinks, s)
		default:
			return nil, fmt.Errorf("unknown event sink %q", name)
		}
	}
	return sinks, nil
}

func (d *Deps) Gateway() *store.Gateway {
	return store.NewGateway(d.DB, d.Dispatcher, d.Log, d.Metrics)
}

func (d *Deps) Service() *service.Service {
	return service.New(d.Gateway(), d.Locker, d.Idem, d.Config, d.Log)
}

func (d *Deps) Relay() *event.Relay {
	return event.NewRelay(d.DB, d.Dispatcher, event.RelayConfig{
		BatchSize: d.Config.RelayBatchSize,
		MinAge:    d.Config.RelayMinAge,
	}, d.Log, d.Metrics)
}

// Ready pings the store and, when configured, Redis.
func (d *Deps) Ready(ctx context.Context) error {
	if err := d.DB.Ping(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if d.Redis != nil {
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close releases connections in reverse order of opening.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
	if d.DB != nil {
		d.DB.Close()
	}
}
