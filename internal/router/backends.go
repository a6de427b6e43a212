package router

import (
	"context"
	"errors"
	"fmt"

	"petpal/internal/adapters/kv/memkv"
	"petpal/internal/adapters/kv/rediskv"
	mailadapter "petpal/internal/adapters/mail"
	mem "petpal/internal/adapters/storage/memory"
	"petpal/internal/adapters/storage/sqlstore"
	"petpal/internal/config"
	"petpal/internal/platform/logger"
	mailport "petpal/internal/ports/mail"
	"petpal/internal/ports/ratelimit"
)

// Backends son las dependencias externas abiertas a partir de la config.
type Backends struct {
	Storage Storage
	KV      KV
	Limiter ratelimit.Limiter
	Mailer  mailport.Sender

	closers []func() error
}

// OpenBackends abre DB, Redis y transporte de mail. Sin DSN se usa memoria;
// si Redis no responde se degrada a memkv con un warning. Un DSN que no
// conecta sí es error.
func OpenBackends(ctx context.Context, cfg config.Config, log logger.Logger) (*Backends, error) {
	if log == nil {
		log = logger.NewNop()
	}
	b := &Backends{}

	if cfg.DB.Driver == "memory" {
		b.Storage = mem.New()
		log.Info("storage: memory", nil)
	} else {
		db, err := OpenDB(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		b.Storage = db
		log.Info("storage: sql", map[string]any{"driver": cfg.DB.Driver})
	}

	bucket := cfg.RateLimit
	var rdb *rediskv.Client
	if cfg.Redis.Addr != "" {
		c, err := rediskv.Connect(ctx, rediskv.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Log.App,
		})
		if err != nil {
			log.Warn("redis unavailable, using memory kv", map[string]any{"addr": cfg.Redis.Addr, "error": err})
		} else {
			rdb = c
			b.closers = append(b.closers, c.Close)
		}
	}
	if rdb != nil {
		b.KV = rdb
		if bucket.Enabled {
			b.Limiter = rdb.Limiter(rediskv.BucketConfig{
				Capacity:       bucket.Capacity,
				RefillTokens:   bucket.RefillTokens,
				RefillInterval: bucket.RefillInterval,
				TTL:            bucket.TTL,
			})
		}
	} else {
		b.KV = memkv.New()
		if bucket.Enabled {
			b.Limiter = memkv.NewLimiter(memkv.BucketConfig{
				Capacity:       bucket.Capacity,
				RefillTokens:   bucket.RefillTokens,
				RefillInterval: bucket.RefillInterval,
				TTL:            bucket.TTL,
			})
		}
	}

	switch cfg.Mail.Transport {
	case "smtp":
		s, err := NewSMTPSender(cfg.Mail)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.Mailer = s
	case "amqp":
		p, err := mailadapter.NewQueuePublisher(cfg.Mail.RabbitMQURL)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.closers = append(b.closers, p.Close)
		b.Mailer = p
	default:
		b.Mailer = mailadapter.NewLogSender(log)
	}
	log.Info("mail transport", map[string]any{"transport": cfg.Mail.Transport})

	return b, nil
}

// OpenDB abre la base SQL configurada y aplica el schema (idempotente).
func OpenDB(ctx context.Context, cfg config.DBConfig) (*sqlstore.DB, error) {
	db, err := sqlstore.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("router: migrate: %w", err)
	}
	return db, nil
}

func NewSMTPSender(cfg config.MailConfig) (*mailadapter.SMTPSender, error) {
	return mailadapter.NewSMTPSender(mailadapter.SMTPConfig{
		Server:   cfg.Server,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		UseSSL:   cfg.UseSSL,
		UseTLS:   cfg.UseTLS,
		Sender:   cfg.Sender,
	})
}

// Options arma router.Options con estos backends.
func (b *Backends) Options(cfg config.Config, log logger.Logger) Options {
	return Options{
		Config:  cfg,
		Log:     log,
		Storage: b.Storage,
		KV:      b.KV,
		Limiter: b.Limiter,
		Mailer:  b.Mailer,
	}
}

// Close cierra en orden inverso al de apertura.
func (b *Backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
