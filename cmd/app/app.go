package app

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rifadigital/raffle-api/internal/api"
	"github.com/rifadigital/raffle-api/internal/config"
	"github.com/rifadigital/raffle-api/internal/db"
	"github.com/rifadigital/raffle-api/internal/logger"
	"github.com/rifadigital/raffle-api/internal/repository"
	"github.com/rifadigital/raffle-api/internal/repository/dao"
	"github.com/rifadigital/raffle-api/internal/repository/filestore"
)

func Start() error {
	conf, err := config.Load("./cmd/app/config.yml")
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}

	store, err := openStore(conf)
	if err != nil {
		return fmt.Errorf("failed to initialize storage -> %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			zap.L().Error("failed to close store", zap.Error(err))
		}
	}()

	s := api.NewServer(conf, store)

	addr := ":" + s.Config.API.Port
	zap.L().Info(fmt.Sprintf("starting server at %v", addr))
	if err = s.Router.Run(addr); err != nil {
		return fmt.Errorf("failed to start the server -> %w", err)
	}

	return nil
}

func openStore(conf *config.AppConfig) (repository.Store, error) {
	switch conf.Storage.Driver {
	case "file":
		store, err := filestore.Open(conf.Storage.FilePath)
		if err != nil {
			return nil, fmt.Errorf("filestore.Open -> %w", err)
		}

		zap.L().Info("using file storage", zap.String("path", conf.Storage.FilePath))

		return store, nil
	case "postgres", "":
		dbURL := os.Getenv("DATABASE_URL")
		var postgresDB *gorm.DB
		var err error
		if dbURL != "" {
			postgresDB, err = db.OpenPostgresWithURL(dbURL)
		} else {
			postgresDB, err = db.OpenPostgres(conf.Postgres)
		}
		if err != nil {
			return nil, fmt.Errorf("db.OpenPostgres -> %w", err)
		}

		if err = dao.InitTables(postgresDB); err != nil {
			return nil, fmt.Errorf("dao.InitTables -> %w", err)
		}

		zap.L().Info("using postgres storage")

		return dao.NewPostgresStore(postgresDB), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", conf.Storage.Driver)
	}
}
