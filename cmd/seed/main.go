// Package main provides a tool to seed the database with sample books.
//
// This creates a small library with varied statuses, progress, quotes, and a
// yearly goal so the UI and stats have something to show during development.
//
// Usage:
//
//	DB_PATH=~/bookwyrm/db go run ./cmd/seed
//	DB_PATH=~/bookwyrm/db go run ./cmd/seed --with-content  # Include readable text
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/heysmata/strava-for-books/internal/domain"
	"github.com/heysmata/strava-for-books/internal/id"
	"github.com/heysmata/strava-for-books/internal/store"
)

var withContent = flag.Bool("with-content", false, "Give each book readable text for the immersive reader")

type seedBook struct {
	title       string
	author      string
	summary     string
	totalPages  int
	currentPage int
	quotes      []string
}

var seedBooks = []seedBook{
	{
		title:      "The Wind in the Willows",
		author:     "Kenneth Grahame",
		summary:    "Mole, Rat, Badger and the incorrigible Toad mess about in boats.",
		totalPages: 256,
		quotes: []string{
			"There is nothing - absolutely nothing - half so much worth doing as simply messing about in boats.",
		},
	},
	{
		title:       "Twenty Thousand Leagues Under the Seas",
		author:      "Jules Verne",
		summary:     "Professor Aronnax joins Captain Nemo aboard the Nautilus.",
		totalPages:  420,
		currentPage: 187,
		quotes: []string{
			"The sea is everything.",
		},
	},
	{
		title:       "A Study in Scarlet",
		author:      "Arthur Conan Doyle",
		summary:     "Dr. Watson meets a consulting detective at 221B Baker Street.",
		totalPages:  188,
		currentPage: 188,
	},
	{
		title:      "The Time Machine",
		author:     "H. G. Wells",
		summary:    "A Victorian inventor travels to the year 802,701.",
		totalPages: 118,
	},
	{
		title:       "Treasure Island",
		author:      "Robert Louis Stevenson",
		summary:     "Jim Hawkins sails for buried pirate gold.",
		totalPages:  292,
		currentPage: 292,
		quotes: []string{
			"Fifteen men on the dead man's chest.",
		},
	},
}

func main() {
	flag.Parse()

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/bookwyrm/db")
	}

	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := store.New(dbPath, nil, store.NewNoopEmitter())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	existing, err := s.ListBooks(ctx)
	if err != nil {
		log.Fatalf("Failed to list books: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("Database already has %d books, adding seed books alongside them\n", len(existing))
	}

	for _, sb := range seedBooks {
		book := &domain.Book{
			ID:         id.MustGenerate(id.PrefixBook),
			Title:      sb.title,
			Author:     sb.author,
			Summary:    sb.summary,
			TotalPages: sb.totalPages,
			Quotes:     sb.quotes,
			AddedAt:    time.Now().UTC(),
			UpdatedAt:  time.Now().UTC(),
		}
		if book.Quotes == nil {
			book.Quotes = []string{}
		}
		if *withContent {
			book.Content = sampleContent(sb.title)
		}
		if err := book.SetCurrentPage(sb.currentPage); err != nil {
			log.Fatalf("Bad seed data for %q: %v", sb.title, err)
		}

		if err := s.CreateBook(ctx, book); err != nil {
			log.Fatalf("Failed to create book %q: %v", sb.title, err)
		}
		fmt.Printf("  %-45s %s (%d/%d pages)\n", sb.title, book.Status, book.CurrentPage, book.TotalPages)
	}

	goal := domain.ReadingGoal{Target: 12, Year: time.Now().Year()}
	if err := s.SetGoal(ctx, goal); err != nil {
		log.Fatalf("Failed to set goal: %v", err)
	}
	fmt.Printf("\nReading goal: %d books in %d\n", goal.Target, goal.Year)
	fmt.Println("Done.")
}

// sampleContent builds a few paragraphs of placeholder text long enough to
// exercise the reader's pagination.
func sampleContent(title string) string {
	para := fmt.Sprintf("This is placeholder text for %s. ", title) +
		strings.Repeat("The afternoon light slanted through the window and settled on the page, and for a while nothing else in the world seemed to matter at all. ", 4)

	paras := make([]string, 12)
	for i := range paras {
		paras[i] = fmt.Sprintf("Chapter fragment %d. %s", i+1, para)
	}
	return strings.Join(paras, "\n\n")
}
