// Package words loads the candidate word pool for board generation.
// The engine consumes the pool as a plain []string; loaders here only
// differ in where the strings come from.
package words

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadFile reads one word per line, skipping blanks and comments.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()

	var pool []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		pool = append(pool, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("word list %s is empty", path)
	}
	return pool, nil
}
