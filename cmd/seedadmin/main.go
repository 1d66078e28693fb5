// Command seedadmin creates or resets the bootstrap "admin" account. It is
// meant to be run once against a fresh database, or again to recover a lost
// admin password. The password is read from the terminal without echo.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/term"

	"github.com/navhub/navhub/internal/common"
	"github.com/navhub/navhub/internal/server/auth"
	"github.com/navhub/navhub/internal/server/config"
	"github.com/navhub/navhub/internal/server/models"
	"github.com/navhub/navhub/internal/server/repositories/repomanager"
	"github.com/navhub/navhub/internal/server/repositories/users"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

const adminUserName = "admin"
const adminEmail = "admin@localhost"

func main() {
	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

func run() error {
	ctx := context.Background()
	cfg := config.LoadConfig()

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	rm := &repomanager.PostgresRepositoryManager{}
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}

	created, err := seedAdmin(ctx, rm.Users(db), auth.NewHasher(cfg.BcryptCost), password)
	if err != nil {
		return err
	}
	if created {
		fmt.Println("Admin account created.")
	} else {
		fmt.Println("Admin password reset.")
	}
	return nil
}

// seedAdmin creates the bootstrap admin account, or, when it already exists,
// rewrites its password hash and restores the active/admin flags. Update does
// not touch password_hash, so the reset goes through UpdatePasswordHash.
// Reports whether the account was created.
func seedAdmin(ctx context.Context, repo users.Repository, hasher *auth.Hasher, password string) (bool, error) {
	hash, err := hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hashing error: %w", err)
	}

	existing, err := repo.GetByUserName(ctx, adminUserName)
	switch {
	case err == nil:
		existing.IsActive = true
		existing.IsAdmin = true
		if err := repo.Update(ctx, existing); err != nil {
			return false, fmt.Errorf("update error: %w", err)
		}
		if err := repo.UpdatePasswordHash(ctx, existing.ID, hash); err != nil {
			return false, fmt.Errorf("password update error: %w", err)
		}
		return false, nil
	case errors.Is(err, common.ErrorNotFound):
		now := time.Now()
		user := &models.User{
			ID:           uuid.NewString(),
			UserName:     adminUserName,
			Email:        adminEmail,
			PasswordHash: hash,
			IsActive:     true,
			IsAdmin:      true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if _, err := repo.Create(ctx, user); err != nil {
			return false, fmt.Errorf("create error: %w", err)
		}
		return true, nil
	default:
		return false, fmt.Errorf("lookup error: %w", err)
	}
}

// promptPassword reads the new admin password twice without echo and
// requires the entries to match.
func promptPassword() (string, error) {
	fmt.Print("New admin password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(first) == 0 {
		return "", errors.New("password must not be empty")
	}

	fmt.Print("Repeat password: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
