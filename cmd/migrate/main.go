package main

import (
	"log"

	"clinic-chat-be/internal/config"
	"clinic-chat-be/internal/model"
	"clinic-chat-be/pkg/database"
)

func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Setting up extensions...")
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Printf("Warn: Failed to create pgcrypto extension: %v. Continuing...", err)
	}

	log.Println("Step 2: Running AutoMigrate...")
	models := []interface{}{
		&model.Organization{},
		&model.StaffMember{},
		&model.Patient{},
		&model.ChatSession{},
		&model.ChatMessage{},
		&model.Escalation{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("Step 3: Creating indexes...")
	// At most one non-resolved escalation per chat session.
	postMigrationSQL := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_escalations_active_session
		 ON escalations (chat_session_id) WHERE status <> 'resolved';`,
		`CREATE INDEX IF NOT EXISTS idx_escalations_assignee_status
		 ON escalations (assigned_staff_id, status) WHERE assigned_staff_id IS NOT NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_chat_sessions_org_status
		 ON chat_sessions (organization_id, status);`,
	}
	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Fatalf("Error: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("Success: database migration completed.")
}
