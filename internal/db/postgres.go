package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/noodl-labs/kodo-backend/internal/logger"
	"github.com/noodl-labs/kodo-backend/internal/types"
	"github.com/noodl-labs/kodo-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "kodo", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := s.db.AutoMigrate(
		&types.User{},
		&types.LearningPath{},
		&types.Level{},
		&types.ContentItem{},
		&types.TaskLog{},
		&types.TaskLogEntry{},
		&types.UserProgress{},
		&types.LevelProgress{},
		&types.UserNFT{},
	); err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	// Cascades make worker cleanup a single path delete: removing a
	// learning_paths row takes its levels, items and progress with it.
	s.log.Info("Configuring foreign key relationships for postgres tables...")
	constraints := []struct {
		name string
		ddl  string
	}{
		{"fk_levels_path_id", `ALTER TABLE "levels" ADD CONSTRAINT "fk_levels_path_id" FOREIGN KEY ("path_id") REFERENCES "learning_paths"("id") ON DELETE CASCADE`},
		{"fk_content_items_level_id", `ALTER TABLE "content_items" ADD CONSTRAINT "fk_content_items_level_id" FOREIGN KEY ("level_id") REFERENCES "levels"("id") ON DELETE CASCADE`},
		{"fk_task_log_entries_task_id", `ALTER TABLE "task_log_entries" ADD CONSTRAINT "fk_task_log_entries_task_id" FOREIGN KEY ("task_id") REFERENCES "task_logs"("task_id") ON DELETE CASCADE`},
		{"fk_user_progress_user_id", `ALTER TABLE "user_progress" ADD CONSTRAINT "fk_user_progress_user_id" FOREIGN KEY ("user_id") REFERENCES "users"("id") ON DELETE CASCADE`},
		{"fk_user_progress_path_id", `ALTER TABLE "user_progress" ADD CONSTRAINT "fk_user_progress_path_id" FOREIGN KEY ("path_id") REFERENCES "learning_paths"("id") ON DELETE CASCADE`},
		{"fk_level_progress_progress_id", `ALTER TABLE "level_progress" ADD CONSTRAINT "fk_level_progress_progress_id" FOREIGN KEY ("progress_id") REFERENCES "user_progress"("id") ON DELETE CASCADE`},
		{"fk_user_nfts_user_id", `ALTER TABLE "user_nfts" ADD CONSTRAINT "fk_user_nfts_user_id" FOREIGN KEY ("user_id") REFERENCES "users"("id") ON DELETE CASCADE`},
		{"fk_user_nfts_path_id", `ALTER TABLE "user_nfts" ADD CONSTRAINT "fk_user_nfts_path_id" FOREIGN KEY ("path_id") REFERENCES "learning_paths"("id") ON DELETE CASCADE`},
	}
	for _, c := range constraints {
		var count int64
		if err := s.db.Raw(`SELECT COUNT(*) FROM pg_constraint WHERE conname = ?`, c.name).Scan(&count).Error; err != nil {
			return fmt.Errorf("failed to check constraint %s: %w", c.name, err)
		}
		if count > 0 {
			continue
		}
		if err := s.db.Exec(c.ddl).Error; err != nil {
			return fmt.Errorf("failed to add %s: %w", c.name, err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
