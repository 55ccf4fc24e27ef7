package main

import (
	"context"
	"log"
	"os"

	"codenames/internal/db"
	"codenames/internal/words"
)

// Seeds the words table from a plain text word list, one word per line.
// Existing rows are kept; duplicates in the file are ignored.
func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	file := os.Getenv("WORDS_FILE")
	if file == "" {
		file = "words.txt"
	}

	pool, err := words.LoadFile(file)
	if err != nil {
		log.Fatalf("load %s: %v", file, err)
	}

	dbPool := db.Connect(dsn)
	defer dbPool.Close()

	ctx := context.Background()
	inserted := 0
	for _, word := range pool {
		tag, err := dbPool.Exec(ctx,
			`INSERT INTO words (word) VALUES ($1) ON CONFLICT (word) DO NOTHING`, word)
		if err != nil {
			log.Fatalf("insert %q: %v", word, err)
		}
		inserted += int(tag.RowsAffected())
	}

	log.Printf("seeded %d new words (%d in file)", inserted, len(pool))
}
