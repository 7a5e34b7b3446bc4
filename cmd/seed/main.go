package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"clinic-chat-be/internal/config"
	"clinic-chat-be/internal/constant"
	"clinic-chat-be/internal/pkg/serverutils"
	"clinic-chat-be/internal/repository/seed"
	"clinic-chat-be/internal/repository/unitofwork"
	"clinic-chat-be/pkg/access"
	"clinic-chat-be/pkg/database"

	"github.com/fatih/color"
	"github.com/google/uuid"
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

	clinic, err := seed.DemoClinic(context.Background(), unitofwork.NewRepositoryFactory(db), true)
	if err != nil {
		log.Fatalf("Error: seeding failed: %v", err)
	}

	color.Green("Seeded %s (%s)", clinic.Organization.Name, clinic.Organization.Id)

	orgId := clinic.Organization.Id
	show := func(label string, userId uuid.UUID, role string) {
		fmt.Printf("%-14s user_id=%s\n", label, userId)
		if cfg.Keys.JwtSecret == "" {
			return
		}
		token, err := serverutils.IssueToken(access.Caller{UserId: userId, OrganizationId: orgId, Role: role}, cfg.Keys.JwtSecret, 24*time.Hour)
		if err != nil {
			color.Red("  token: %v", err)
			return
		}
		color.Cyan("  token: %s", token)
	}

	show("nurse", clinic.Nurse.UserId, constant.RoleStaff)
	show("doctor", clinic.Doctor.UserId, constant.RoleStaff)
	show("receptionist", clinic.Receptionist.UserId, constant.RoleStaff)
	show("patient", *clinic.Patient.UserId, constant.RolePatient)

	if cfg.Keys.JwtSecret == "" {
		color.Yellow("JWT_SECRET is not set, skipping token generation")
	}
}
