//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/rvegajr/blessbox-server/internal/auth"
	"github.com/rvegajr/blessbox-server/internal/database"
	"github.com/rvegajr/blessbox-server/internal/database/models"
	"github.com/rvegajr/blessbox-server/internal/forms"
	"github.com/rvegajr/blessbox-server/pkg/config"
	"github.com/rvegajr/blessbox-server/pkg/util"
	"gorm.io/datatypes"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env, "seed")

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Create owner user
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService)

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	name := os.Getenv("ADMIN_NAME")

	if email == "" {
		email = "admin@example.com"
	}
	if password == "" {
		password = "admin123!"
	}
	if name == "" {
		name = "Admin"
	}

	resp, err := authService.Register(context.Background(), auth.RegisterInput{
		Email:    email,
		Password: password,
		Name:     name,
		OrgName:  "Demo Organization",
	})

	if err != nil {
		if err == auth.ErrUserExists {
			fmt.Printf("Admin user already exists: %s\n", email)
			return
		}
		log.Fatalf("failed to create admin user: %v", err)
	}

	// Create a demo QR code set with one entry point
	fields, err := forms.EncodeFields([]forms.Field{
		{ID: "name", Type: forms.TypeText, Label: "Full name", Required: true},
		{ID: "email", Type: forms.TypeEmail, Label: "Email", Required: true},
		{ID: "phone", Type: forms.TypePhone, Label: "Phone"},
	})
	if err != nil {
		log.Fatalf("failed to encode demo form fields: %v", err)
	}

	set := models.QRCodeSet{
		OrganizationID: resp.User.OrganizationID,
		Name:           "Demo Event",
		Language:       "en",
		FormFields:     datatypes.JSON(fields),
		IsActive:       true,
	}
	if err := set.SetEntries([]models.QRCodeEntry{
		{ID: "main0001", Label: "main", Slug: "main-entrance", Active: true},
	}); err != nil {
		log.Fatalf("failed to encode demo qr entries: %v", err)
	}
	if err := db.Create(&set).Error; err != nil {
		log.Fatalf("failed to create demo qr code set: %v", err)
	}

	fmt.Printf("Seed complete!\n")
	fmt.Printf("Email: %s\n", resp.User.Email)
	fmt.Printf("Organization: %s (slug %s)\n", resp.User.Organization.Name, resp.User.Organization.Slug)
	fmt.Printf("Demo QR code set: %s (entry slug main-entrance)\n", set.ID)
	fmt.Printf("Token: %s\n", resp.Token)
}
