package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/oksasatya/fluxo-backend/config"
	"github.com/oksasatya/fluxo-backend/internal/domain/entity"
	"github.com/oksasatya/fluxo-backend/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	dsn := cfg.PostgresDSN()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	for _, st := range entity.DefaultPromptStyles {
		if _, err := db.Exec(`
			INSERT INTO prompt_styles (id, name, description, instruction)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, description = EXCLUDED.description, instruction = EXCLUDED.instruction
		`, st.ID, st.Name, st.Description, st.Instruction); err != nil {
			log.Fatalf("failed to seed style %s: %v", st.Name, err)
		}
	}
	fmt.Printf("seeded %d prompt styles\n", len(entity.DefaultPromptStyles))

	email := "demo@fluxo.app"
	password := "password123"
	name := "Demo User"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	// confirmed so the demo account can generate prompts right away
	var id string
	err = db.QueryRow(`
		INSERT INTO users (email, password_hash, name, is_email_confirmed, daily_limit)
		VALUES ($1, $2, $3, TRUE, $4)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, is_email_confirmed = TRUE
		RETURNING id
	`, email, hash, name, cfg.QuotaDefaultDailyLimit).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%s email=%s name=%s password=%s\n", id, email, name, password)
}
