// seed creates an admin and a regular verified account in the local dev database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ErlanBelekov/prompt-library/internal/domain"
	"github.com/ErlanBelekov/prompt-library/internal/hash"
	"github.com/ErlanBelekov/prompt-library/internal/infrastructure/postgres"
	"github.com/joho/godotenv"
)

type account struct {
	username string
	email    string
	password string
	admin    bool
}

var accounts = []account{
	{"admin", "admin@promptkhajana.com", "Admin123!", true},
	{"testuser", "user@example.com", "User1234!", false},
}

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set, copy .env.example to .env")
	}

	pool, err := postgres.NewPool(ctx, dbURL, postgres.PoolConfig{MaxConns: 2, ApplicationName: "promptlib-seed"})
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	users := postgres.NewUserRepository(pool)
	hasher := hash.NewBcrypt(0)

	for _, a := range accounts {
		exists, err := users.ExistsByEmail(ctx, a.email)
		if err != nil {
			log.Fatalf("check %s: %v", a.email, err)
		}
		if exists {
			fmt.Printf("skip     %s (already exists)\n", a.email)
			continue
		}

		pw, err := hasher.Hash(a.password)
		if err != nil {
			log.Fatalf("hash: %v", err)
		}

		u, err := users.Create(ctx, &domain.User{
			Username:      a.username,
			Email:         a.email,
			PasswordHash:  pw,
			EmailVerified: true,
			IsAdmin:       a.admin,
		})
		if err != nil {
			log.Fatalf("create %s: %v", a.email, err)
		}
		fmt.Printf("created  %s  %s  admin=%t\n", u.ID, u.Email, u.IsAdmin)
	}

	fmt.Println()
	fmt.Println("Log in with one of the accounts above:")
	fmt.Println(`  curl -c jar -b jar -X POST localhost:8080/auth/login -H 'Content-Type: application/json' -d '{"email":"user@example.com","password":"User1234!"}'`)
	fmt.Println("Then read the code from the server log (MAIL_DRIVER=log) and verify it:")
	fmt.Println(`  curl -c jar -b jar -X POST localhost:8080/auth/login/verify -H 'Content-Type: application/json' -d '{"otp":"123456"}'`)
}
