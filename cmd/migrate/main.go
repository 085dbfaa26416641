// Command migrate applies, reverts and lists the embedded SQL migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"threads/internal/bootstrap"
	"threads/internal/config"
	"threads/internal/database"

	"github.com/jedib0t/go-pretty/v6/table"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	action := flag.String("action", "up", "migration action: up, down or status")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer bootstrap.Close(db, nil)

	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(*action)) {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Println("sql migrations applied")
	case "down":
		m, err := database.RollbackLatest(ctx, db)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		if m == nil {
			log.Println("nothing to roll back")
			return nil
		}
		log.Printf("rolled back %s", m)
	case "status":
		return printStatus(ctx, db)
	default:
		return fmt.Errorf("unknown action %q, want up, down or status", *action)
	}
	return nil
}

func printStatus(ctx context.Context, db *gorm.DB) error {
	statuses, err := database.Status(ctx, db)
	if err != nil {
		return fmt.Errorf("migration status failed: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Version", "Name", "Applied"})
	for _, s := range statuses {
		applied := "pending"
		if s.Applied {
			applied = "yes"
		}
		t.AppendRow(table.Row{fmt.Sprintf("%06d", s.Migration.Version), s.Migration.Name, applied})
	}
	t.Render()
	return nil
}
