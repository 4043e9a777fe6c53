package main

import (
	"log"
	"os"

	"perspectives-be/internal/model"
	"perspectives-be/pkg/database"
	"perspectives-be/pkg/vectorstore"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 3. Pre-Migration: Extensions (Things GORM AutoMigrate doesn't do)
	log.Println("Step 1: Setting up Extensions...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate All Models
	log.Println("Step 2: Running AutoMigrate...")

	models := []interface{}{
		&model.SourceDocument{},
		&model.SourceDocumentTag{},
		&model.Aspect{},
		&model.Cluster{},
		&model.DocumentAspect{},
		&model.DocumentCluster{},
		&model.PerspectivesJob{},
		&model.ActionLog{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatal("Error: AutoMigrate failed:", err)
	}

	// 5. Embedding table for the pgvector backend
	log.Println("Step 3: Migrating vector store table...")
	if err := vectorstore.NewPgVectorStore(db).AutoMigrate(); err != nil {
		log.Fatal("Error: Vector store migration failed:", err)
	}

	log.Println("✅ Success: Migration completed.")
}
