// Package main provisions the first admin account. Admins cannot be
// created through the public signup endpoint; operators run this once
// against a fresh database.
package main

import (
	"errors"
	"os"

	"vaultpay/internal/config"
	"vaultpay/internal/logger"
	"vaultpay/internal/models"
	"vaultpay/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	config.LoadEnv()

	log, err := logger.New(config.GetEnv("LOG_LEVEL", "info"))
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	adminPhone := os.Getenv("ADMIN_PHONE")
	if adminEmail == "" || adminPassword == "" || adminPhone == "" {
		log.Fatalw("ADMIN_EMAIL, ADMIN_PASSWORD and ADMIN_PHONE must be set")
	}

	db, err := repositories.OpenDB(repositories.DBConfigFromEnv())
	if err != nil {
		log.Fatalw("failed to open database", "error", err)
	}
	if err := repositories.Migrate(db); err != nil {
		log.Fatalw("failed to migrate schema", "error", err)
	}

	users := repositories.NewUserRepository(db, nil, log)

	if _, err := users.GetByEmail(adminEmail); err == nil {
		log.Infow("admin account already exists", "email", adminEmail)
		return
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		log.Fatalw("failed to check for existing admin", "error", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalw("failed to hash password", "error", err)
	}

	admin := &models.User{
		Name:         "Administrator",
		Email:        adminEmail,
		Phone:        adminPhone,
		Password:     string(hash),
		Role:         models.RoleAdmin,
		Status:       models.UserStatusActive,
		TokenVersion: 1,
	}
	if err := users.Create(admin); err != nil {
		log.Fatalw("failed to create admin account", "error", err)
	}
	log.Infow("admin account created", "email", adminEmail, "user_id", admin.ID)
}
