// Package server assembles the booking API from configuration.
package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/noah-isme/pilotaja-api/internal/handler"
	"github.com/noah-isme/pilotaja-api/internal/repository"
	"github.com/noah-isme/pilotaja-api/internal/service"
	"github.com/noah-isme/pilotaja-api/pkg/cache"
	"github.com/noah-isme/pilotaja-api/pkg/config"
	"github.com/noah-isme/pilotaja-api/pkg/database"
	"github.com/noah-isme/pilotaja-api/pkg/jobs"
	"github.com/noah-isme/pilotaja-api/pkg/lock"
)

const lessonCounterBuffer = 256

// App holds the wired services and the resources that must be released on shutdown.
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Metrics      *service.MetricsService
	Auth         *service.AuthService
	Appointments *service.AppointmentService
	Instructors  *service.InstructorService
	Students     *service.StudentService

	checks  map[string]handler.ReadinessCheck
	closers []func(context.Context) error
}

type stores struct {
	appointments service.AppointmentRepository
	instructors  service.InstructorRepository
	students     service.StudentRepository
}

// Build connects the configured backends and wires the services.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: service.NewMetricsService(),
		Auth:    service.NewAuthService(service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer}),
		checks:  map[string]handler.ReadinessCheck{},
	}

	st, err := app.openStores(ctx)
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	locker, err := app.openLocker(ctx)
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}

	validate := validator.New()
	app.Instructors = service.NewInstructorService(st.instructors, validate, logger.Named("instructors"), cfg.Booking.DefaultTimezone)
	app.Students = service.NewStudentService(st.students, validate, logger.Named("students"))

	var counter service.LessonCounter
	if cfg.Counter.Async {
		queued := service.NewQueuedLessonCounter(app.Instructors, jobs.QueueConfig{
			Workers:    cfg.Counter.Workers,
			BufferSize: lessonCounterBuffer,
			MaxRetries: cfg.Counter.Retries,
		}, app.Metrics, logger.Named("lesson-counter"))
		queued.Start(context.WithoutCancel(ctx))
		app.closers = append(app.closers, func(context.Context) error {
			queued.Stop()
			return nil
		})
		counter = queued
	}

	app.Appointments = service.NewAppointmentService(
		st.appointments,
		app.Instructors,
		app.Students,
		locker,
		counter,
		app.Metrics,
		validate,
		logger.Named("appointments"),
		service.AppointmentServiceConfig{
			DefaultDurationMinutes: cfg.Booking.DefaultDurationMinutes,
			EnableInProgress:       cfg.Booking.EnableInProgress,
		},
	)
	return app, nil
}

func (a *App) openStores(ctx context.Context) (*stores, error) {
	switch a.Config.StorageDriver {
	case config.StoragePostgres:
		db, err := database.NewPostgres(ctx, a.Config.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		a.checks["postgres"] = db.PingContext
		if a.Config.Database.MigrateOnStart {
			if err := database.Migrate(ctx, db.DB, a.Logger); err != nil {
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		return postgresStores(db), nil

	case config.StorageMongo:
		client, db, err := database.NewMongo(ctx, a.Config.Mongo)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		a.closers = append(a.closers, client.Disconnect)
		a.checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		return mongoStores(ctx, db)

	case config.StorageMemory:
		a.Logger.Warn("using in-memory storage, data is lost on restart")
		return &stores{
			appointments: repository.NewMemoryAppointmentRepository(),
			instructors:  repository.NewMemoryInstructorRepository(),
			students:     repository.NewMemoryStudentRepository(),
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", a.Config.StorageDriver)
}

func postgresStores(db *sqlx.DB) *stores {
	return &stores{
		appointments: repository.NewAppointmentRepository(db),
		instructors:  repository.NewInstructorRepository(db),
		students:     repository.NewStudentRepository(db),
	}
}

func mongoStores(ctx context.Context, db *mongo.Database) (*stores, error) {
	appointments := repository.NewMongoAppointmentRepository(db)
	instructors := repository.NewMongoInstructorRepository(db)
	students := repository.NewMongoStudentRepository(db)
	for _, ensure := range []func(context.Context) error{appointments.EnsureIndexes, instructors.EnsureIndexes, students.EnsureIndexes} {
		if err := ensure(ctx); err != nil {
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
	}
	return &stores{appointments: appointments, instructors: instructors, students: students}, nil
}

func (a *App) openLocker(ctx context.Context) (lock.Locker, error) {
	switch a.Config.Lock.Driver {
	case "", config.LockLocal:
		return lock.NewLocalLocker(), nil
	case config.LockRedis:
		client, err := cache.NewRedis(ctx, a.Config.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		a.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return newRedisLocker(client, a.Config.Lock, a.Logger), nil
	}
	return nil, fmt.Errorf("unknown lock driver %q", a.Config.Lock.Driver)
}

func newRedisLocker(client *redis.Client, cfg config.LockConfig, logger *zap.Logger) *lock.RedisLocker {
	return lock.NewRedisLocker(client, lock.RedisConfig{
		Prefix: "pilotaja:lock:",
		TTL:    cfg.TTL,
		Wait:   cfg.Wait,
		Logger: logger.Named("lock"),
	})
}

// ReadinessChecks lists the backend probes used by /ready.
func (a *App) ReadinessChecks() map[string]handler.ReadinessCheck {
	return a.checks
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
