package main

import (
	"flag"
	"fmt"
	"os"

	"finsight/internal/config"
	"finsight/internal/csvimport"
	"finsight/internal/database"
	"finsight/internal/logger"
	"finsight/internal/models"
	"finsight/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(os.Args[1:]); err != nil {
		logger.Get().Fatalf("Import error: %v", err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	userID := fs.String("user", "", "ID of the user that owns the records")
	path := fs.String("file", "", "CSV file with date,description,amount,category,source[,aiGenerated] rows")
	skipHeader := fs.Bool("skip-header", false, "skip the first line of the file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" || *path == "" {
		fs.Usage()
		return fmt.Errorf("-user and -file are required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbManager, err := database.NewManager(database.ConfigFrom(cfg))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	db := dbManager.DB()
	if _, err := services.NewUserService(db).GetUserByID(*userID); err != nil {
		return fmt.Errorf("user %s: %w", *userID, err)
	}

	parsed := csvimport.ImportFile(*path, *skipHeader)
	for _, lineErr := range parsed.Errors {
		logger.Get().Warnw("skipped line", "file", *path, "reason", lineErr)
	}

	summary, err := services.NewTransactionService(db).ImportCSV(*userID, parsed)
	if err != nil {
		return err
	}

	services.NewAuditService(db).Log(*userID, models.AuditImportTransactions, "", "cli",
		map[string]any{"imported": summary.Imported, "skipped": len(summary.Errors), "file": *path})

	fmt.Printf("Imported %d transactions, skipped %d lines\n", summary.Imported, len(summary.Errors))
	return nil
}
