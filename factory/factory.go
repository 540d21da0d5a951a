package factory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis"
	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"

	"ticketing-backend/config"
	"ticketing-backend/logger"
	"ticketing-backend/model"
	"ticketing-backend/notify"
	"ticketing-backend/store"
)

type Factory interface {
	Store(ctx context.Context) store.Store
	// Redis returns nil when no redis address is configured.
	Redis(ctx context.Context) *redis.Client
	Notifier(ctx context.Context) notify.Notifier
	Close() error
}

type factory struct {
	storeOnce    sync.Once
	redisOnce    sync.Once
	notifierOnce sync.Once

	db       *sql.DB
	st       store.Store
	redis    *redis.Client
	notifier notify.Notifier
}

func NewFactory() Factory {
	return &factory{}
}

func (f *factory) Store(ctx context.Context) store.Store {
	f.storeOnce.Do(func() {
		switch driver := viper.GetString(config.DBDriver); driver {
		case config.DriverMemory:
			m := store.NewMemory()
			events, err := memoryEvents()
			if err != nil {
				logger.Fatalf(ctx, "store: error reading %s: %+v", config.DBMemoryEvents, err)
			}
			for _, e := range events {
				m.AddEvent(e)
			}
			logger.Infof(ctx, "store: using in-memory store with %d events", len(events))
			f.st = m
		case config.DriverMySQL:
			sqlDB, err := sql.Open("mysql", viper.GetString(config.DBURL))
			if err != nil {
				logger.Fatalf(ctx, "Error creating connection pool: %+v", err)
			}
			sqlDB.SetMaxOpenConns(viper.GetInt(config.DBMaxOpenConns))
			sqlDB.SetMaxIdleConns(viper.GetInt(config.DBMaxIdleConns))
			sqlDB.SetConnMaxLifetime(viper.GetDuration(config.DBConnMaxLifetime))

			f.db = sqlDB
			f.st = store.NewMySQL(sqlDB)
		default:
			logger.Fatalf(ctx, "store: unknown database driver %q", driver)
		}
	})

	return f.st
}

type memoryEvent struct {
	ID          int64  `mapstructure:"id"`
	Title       string `mapstructure:"title"`
	StartsAt    string `mapstructure:"starts_at"`
	OrganizerID int64  `mapstructure:"organizer_id"`
}

// memoryEvents reads the events the in-memory store starts with.
func memoryEvents() ([]model.Event, error) {
	var raw []memoryEvent
	if err := viper.UnmarshalKey(config.DBMemoryEvents, &raw); err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(raw))
	for _, r := range raw {
		startsAt, err := time.Parse(time.RFC3339, r.StartsAt)
		if err != nil {
			return nil, fmt.Errorf("memoryEvents: event %d: %w", r.ID, err)
		}
		events = append(events, model.Event{
			EventID:     r.ID,
			Title:       r.Title,
			StartsAt:    startsAt.UTC(),
			OrganizerID: r.OrganizerID,
		})
	}
	return events, nil
}

func (f *factory) Redis(ctx context.Context) *redis.Client {
	f.redisOnce.Do(func() {
		addr := viper.GetString(config.RedisAddress)
		if addr == "" {
			logger.Infof(ctx, "redis: no address configured, idempotency keys disabled")
			return
		}

		f.redis = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: viper.GetString(config.RedisPassword),
			DB:       viper.GetInt(config.RedisDB),
		})
	})

	return f.redis
}

func (f *factory) Notifier(ctx context.Context) notify.Notifier {
	f.notifierOnce.Do(func() {
		switch driver := viper.GetString(config.NotifyDriver); driver {
		case config.NotifyMailersend:
			f.notifier = notify.NewMailer(
				viper.GetString(config.MailersendAPIKey),
				viper.GetString(config.MailersendFromEmail),
				viper.GetString(config.MailersendFromName),
			)
		case config.NotifyTwilio:
			f.notifier = notify.NewSMS(
				viper.GetString(config.TwilioAccountSID),
				viper.GetString(config.TwilioAuthToken),
				viper.GetString(config.TwilioURL),
				viper.GetString(config.TwilioFrom),
			)
		case config.NotifyAMQP:
			p, err := notify.NewPublisher(
				viper.GetString(config.AMQPURL),
				viper.GetString(config.AMQPExchange),
				viper.GetString(config.AMQPRoutingKey),
			)
			if err != nil {
				logger.Fatalf(ctx, "notifier: %+v", err)
			}
			f.notifier = p
		case config.NotifyLog:
			f.notifier = notify.NewLog()
		default:
			logger.Fatalf(ctx, "notifier: unknown notify driver %q", driver)
		}
	})

	return f.notifier
}

// Close releases the connections opened so far.
func (f *factory) Close() error {
	var errs []error
	if f.db != nil {
		if err := f.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close: db: %w", err))
		}
	}
	if f.redis != nil {
		if err := f.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close: redis: %w", err))
		}
	}
	if p, ok := f.notifier.(*notify.Publisher); ok {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close: amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}
