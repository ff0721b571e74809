package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-concerts/internal/config"
	"ms-concerts/internal/database/migrations"
	"ms-concerts/internal/models"
)

func main() {
	down := flag.Bool("down", false, "roll back all migrations instead of applying them")
	seed := flag.Bool("seed", false, "seed a sample concert with inventory after migrating")
	dir := flag.String("dir", "./migrations", "directory containing SQL migration files")
	flag.Parse()

	ctx := context.Background()
	cfg := config.Load()

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer sqldb.Close()

	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())

	runner := migrations.NewRunner(db, migrations.Options{MigrationsDir: *dir})
	defer runner.Close()

	if *down {
		log.Println("Rolling back migrations...")
		if err := runner.MigrateDown(); err != nil {
			log.Fatalf("❌ Migration down failed: %v", err)
		}
		log.Println("✅ Done.")
		return
	}

	log.Println("Applying migrations...")
	if err := runner.MigrateUp(); err != nil {
		log.Fatalf("❌ Migration up failed: %v", err)
	}

	if *seed {
		log.Println("Seeding sample data...")
		if err := seedData(ctx, db); err != nil {
			log.Fatalf("❌ Seeding failed: %v", err)
		}
	}

	log.Println("✅ Done.")
}

func seedData(ctx context.Context, db *bun.DB) error {
	now := time.Now()
	publishedAt := now

	concert := models.Concert{
		ConcertID:   uuid.NewString(),
		Title:       "The Red Chord",
		Venue:       "The Mosh Pit",
		Date:        now.AddDate(0, 1, 0),
		TicketPrice: 3250,
		PublishedAt: &publishedAt,
		CreatedAt:   now,
	}
	if _, err := db.NewInsert().Model(&concert).Exec(ctx); err != nil {
		return err
	}

	tickets := make([]models.Ticket, 50)
	for i := range tickets {
		tickets[i] = models.Ticket{
			TicketID:  uuid.NewString(),
			ConcertID: concert.ConcertID,
			Status:    models.TicketAvailable,
			CreatedAt: now,
		}
	}
	if _, err := db.NewInsert().Model(&tickets).Exec(ctx); err != nil {
		return err
	}

	log.Printf("Seeded concert %s with %d tickets", concert.ConcertID, len(tickets))
	return nil
}
