// Package main provides a read-only dump of the library database for
// debugging. It goes straight to Badger so it works on a database the server
// currently has problems opening through the normal store.
package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/heysmata/strava-for-books/internal/domain"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/bookwyrm/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	bookCount := 0
	withContent := 0
	totalQuotes := 0
	byStatus := map[domain.ReadingStatus]int{}

	err = db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte("book:")
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek([]byte("book:")); it.ValidForPrefix([]byte("book:")); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(val []byte) error {
				var book domain.Book
				if err := json.Unmarshal(val, &book); err != nil {
					return err
				}

				bookCount++
				byStatus[book.Status]++
				totalQuotes += len(book.Quotes)
				if book.HasContent() {
					withContent++
				}

				// Show the first few books in detail.
				if bookCount <= 5 {
					fmt.Printf("Book: %s\n", book.Title)
					fmt.Printf("  ID: %s\n", book.ID)
					fmt.Printf("  Author: %s\n", book.Author)
					fmt.Printf("  Status: %s (%d/%d pages, %.0f%%)\n",
						book.Status, book.CurrentPage, book.TotalPages, book.ProgressPercent())
					fmt.Printf("  Quotes: %d, Content: %d bytes\n", len(book.Quotes), len(book.Content))
					fmt.Println()
				}

				return nil
			})
			if err != nil {
				log.Printf("Error reading book %s: %v", key, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating database: %v", err)
	}

	var goal domain.ReadingGoal
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("goal:reading"))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &goal)
		})
	})

	fmt.Println("=== Summary ===")
	fmt.Printf("Total books: %d\n", bookCount)
	for _, status := range []domain.ReadingStatus{domain.StatusToRead, domain.StatusReading, domain.StatusFinished} {
		fmt.Printf("  %s: %d\n", status, byStatus[status])
	}
	fmt.Printf("Books with readable content: %d\n", withContent)
	fmt.Printf("Total quotes: %d\n", totalQuotes)
	if err == nil {
		fmt.Printf("Reading goal: %d books in %d\n", goal.Target, goal.Year)
	} else {
		fmt.Println("Reading goal: not set")
	}
}
