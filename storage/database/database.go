package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"DopamineBreaker/config"
	"DopamineBreaker/pkg/logger"
)

var (
	db     *gorm.DB
	dbOnce sync.Once
	dbErr  error
)

func Init() error {
	dbOnce.Do(func() {
		cfg := config.Cfg

		var gormDB *gorm.DB
		gormDB, dbErr = Open(Dialector(cfg.DBDriver, cfg.GetDSN()))
		if dbErr != nil {
			logger.Logger.Error("Failed to open database",
				zap.String("driver", cfg.DBDriver),
				zap.String("dsn", "please check database connection"),
				zap.Error(dbErr),
			)
			return
		}

		if len(cfg.DBReplicaDSNs) > 0 {
			replicas := make([]gorm.Dialector, 0, len(cfg.DBReplicaDSNs))
			for _, dsn := range cfg.DBReplicaDSNs {
				replicas = append(replicas, Dialector(cfg.DBDriver, dsn))
			}
			// 读走副本，写和事务走主库
			if err := gormDB.Use(dbresolver.Register(dbresolver.Config{
				Replicas: replicas,
				Policy:   dbresolver.RandomPolicy{},
			})); err != nil {
				dbErr = fmt.Errorf("register db resolver: %w", err)
				return
			}
			logger.Logger.Info("Database read replicas registered", zap.Int("replicas", len(replicas)))
		}

		if cfg.OTelEnabled {
			if err := gormDB.Use(NewOTELPlugin(cfg.ServiceName, cfg.DBDriver)); err != nil {
				logger.Logger.Warn("Failed to register gorm otel plugin", zap.Error(err))
			}
		}

		sqlDB, err := gormDB.DB()
		if err != nil {
			dbErr = err
			logger.Logger.Error("Failed to get sql.DB from gorm", zap.Error(err))
			return
		}

		configureConnectionPool(sqlDB)

		if err := sqlDB.Ping(); err != nil {
			dbErr = err
			logger.Logger.Error("Failed to ping database", zap.Error(err))
			return
		}

		db = gormDB
		if err := Migrate(db); err != nil {
			dbErr = fmt.Errorf("failed to run database migration: %w", err)
			return
		}
		logger.Logger.Info("Database initialized successfully", zap.String("driver", cfg.DBDriver))
	})

	return dbErr
}

// Dialector 根据驱动名返回 gorm 方言
func Dialector(driver, dsn string) gorm.Dialector {
	switch driver {
	case "mysql":
		return mysql.Open(dsn)
	case "sqlite":
		return sqlite.Open(dsn)
	default:
		return postgres.Open(dsn)
	}
}

// Open 以统一配置打开连接，测试中直接传入内存 sqlite
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, GormConfig())
}

// GormConfig 统一的 gorm 配置，时间统一按 UTC 写入
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:                                   newLogger(),
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		TranslateError:                           true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func DB() *gorm.DB {
	return db
}

func Close(ctx context.Context) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- sqlDB.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func configureConnectionPool(sqlDB *sql.DB) {
	cfg := config.Cfg

	sqlDB.SetMaxIdleConns(cfg.DBMaxIdle)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpen)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	sqlDB.SetConnMaxLifetime(2 * time.Hour)
}

func newLogger() gormlogger.Interface {
	level := gormlogger.Warn
	if config.Cfg.DBLogSQL {
		level = gormlogger.Info
	}

	return gormlogger.New(zapWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	logger.Logger.Sugar().Infof(format, args...)
}
