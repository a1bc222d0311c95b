// Command seed-users inserts sample users directly into the store.
// Intended for local development and demo environments.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/userhub/userhub/internal/model"
	"github.com/userhub/userhub/internal/repository"
)

var sampleUsers = []struct {
	name  string
	email string
}{
	{"Ada Lovelace", "ada@userhub.local"},
	{"Grace Hopper", "grace@userhub.local"},
	{"Alan Turing", "alan@userhub.local"},
	{"Katherine Johnson", "katherine@userhub.local"},
	{"Edsger Dijkstra", "edsger@userhub.local"},
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	created := make([]*model.User, 0, len(sampleUsers))
	for _, sample := range sampleUsers {
		user := &model.User{
			Name:      sample.name,
			Email:     sample.email,
			CreatedAt: time.Now().UTC(),
		}

		if err := repo.CreateUser(ctx, user); err != nil {
			if errors.Is(err, repository.ErrEmailExists) {
				fmt.Fprintf(os.Stderr, "skipping %s: already seeded\n", sample.email)
				continue
			}
			fmt.Fprintln(os.Stderr, "create user:", err)
			os.Exit(1)
		}
		created = append(created, user)
	}

	if *format == "json" {
		if err := json.NewEncoder(os.Stdout).Encode(created); err != nil {
			fmt.Fprintln(os.Stderr, "encode output:", err)
			os.Exit(1)
		}
		return
	}

	for _, user := range created {
		fmt.Printf("created user %d: %s <%s>\n", user.ID, user.Name, user.Email)
	}
}
