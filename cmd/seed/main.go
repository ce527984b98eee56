package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-account-service/config"
	"github.com/oksasatya/go-account-service/internal/domain/entity"
	"github.com/oksasatya/go-account-service/internal/domain/repository"
	mongoinfra "github.com/oksasatya/go-account-service/internal/infrastructure/mongodb"
	pginfra "github.com/oksasatya/go-account-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-account-service/pkg/helpers"
)

// seed creates a confirmed development account through the same store and
// hasher the API uses.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	email := flag.String("email", "demo@example.com", "account email")
	password := flag.String("password", "password123", "account password")
	first := flag.String("first", "Demo", "first name")
	last := flag.String("last", "User", "last name")
	flag.Parse()

	ctx := context.Background()
	var users repository.UserRepository
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, err := mongoinfra.NewClient(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		repo := mongoinfra.NewUserRepository(client, cfg.MongoDatabase)
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Fatalf("failed to ensure indexes: %v", err)
		}
		users = repo
	case config.StorePostgres:
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
			MaxConns:        cfg.DBMaxConns,
			MinConns:        cfg.DBMinConns,
			MaxConnLifetime: cfg.DBMaxConnLife,
		})
		if err != nil {
			log.Fatalf("failed to open db: %v", err)
		}
		defer pool.Close()
		users = pginfra.NewUserRepository(pool)
	default:
		log.Fatalf("seeding is not supported for STORE_DRIVER=%s", cfg.StoreDriver)
	}

	hash, err := helpers.NewBcryptHasher(cfg.BcryptCost).Hash(*password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	u := &entity.User{Email: *email, PasswordHash: hash, FirstName: *first, LastName: *last}
	err = users.Create(ctx, u)
	switch {
	case errors.Is(err, repository.ErrDuplicateKey):
		existing, ferr := users.FindByEmail(ctx, *email)
		if ferr != nil {
			log.Fatalf("failed to load existing user: %v", ferr)
		}
		u = existing
		fmt.Printf("user already exists: id=%s email=%s\n", u.ID, u.Email)
	case err != nil:
		log.Fatalf("failed to seed user: %v", err)
	default:
		fmt.Printf("seeded user: id=%s email=%s password=%s\n", u.ID, u.Email, *password)
	}

	if err := users.UpdateConfirmed(ctx, u.ID, true); err != nil {
		log.Fatalf("failed to confirm user: %v", err)
	}
	fmt.Println("marked user as confirmed")
}
