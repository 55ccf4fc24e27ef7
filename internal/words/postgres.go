package words

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LoadPostgres pulls the word pool from the words table. The table is
// expected to hold one word per row in a text column named word.
func LoadPostgres(ctx context.Context, db *pgxpool.Pool) ([]string, error) {
	rows, err := db.Query(ctx, `SELECT word FROM words ORDER BY word`)
	if err != nil {
		return nil, fmt.Errorf("query words: %w", err)
	}
	defer rows.Close()

	var pool []string
	for rows.Next() {
		var word string
		if err := rows.Scan(&word); err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		if word != "" {
			pool = append(pool, word)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read words: %w", err)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("words table is empty")
	}
	return pool, nil
}
