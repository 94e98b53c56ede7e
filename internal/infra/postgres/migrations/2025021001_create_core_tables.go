package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_core_tables.sql
var createCoreTablesSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createCoreTablesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			for _, table := range []string{"submissions", "quiz_sessions", "quizzes"} {
				if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
					return err
				}
			}
			return nil
		},
	)
}
