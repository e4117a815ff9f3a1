package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"voicegate/internal/auth"
	"voicegate/internal/db"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: createadmin <username> <password>")
		os.Exit(1)
	}

	_ = godotenv.Load()

	username := strings.TrimSpace(os.Args[1])
	password := os.Args[2]

	if utf8.RuneCountInString(username) < 3 || utf8.RuneCountInString(username) > 32 {
		fmt.Fprintln(os.Stderr, "username must be between 3 and 32 characters")
		os.Exit(1)
	}
	if ok, reason := auth.ValidatePassword(password); !ok {
		fmt.Fprintf(os.Stderr, "invalid password: %s\n", reason)
		os.Exit(1)
	}

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		fmt.Fprintln(os.Stderr, "missing required env: DATABASE_URL")
		os.Exit(1)
	}

	database, err := sql.Open("pgx", databaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		fmt.Fprintf(os.Stderr, "run migrations: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	repo := auth.NewRepository(database)

	if _, err := repo.GetByUsername(ctx, username); err == nil {
		fmt.Fprintf(os.Stderr, "admin %q already exists\n", username)
		os.Exit(1)
	} else if !errors.Is(err, sql.ErrNoRows) {
		fmt.Fprintf(os.Stderr, "lookup admin: %v\n", err)
		os.Exit(1)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		os.Exit(1)
	}

	if _, err := repo.Create(ctx, username, hash); err != nil {
		fmt.Fprintf(os.Stderr, "create admin: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("admin %q created successfully\n", username)
}
