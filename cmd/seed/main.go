// Seed provisions room memberships and prints development tokens, so a local
// gateway can be exercised with a websocket client right away.
package main

import (
	"chat-gateway/auth"
	"chat-gateway/domain"
	"chat-gateway/repositories"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	room := flag.String("room", "general", "Room to seed")
	users := flag.String("users", "u-alice:alice,u-bob:bob,u-carol:carol",
		"Comma separated id:name pairs")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("AUTH_SECRET")
	if secret == "" {
		log.Fatal("AUTH_SECRET must be set to sign development tokens")
	}

	db, err := badger.Open(badger.DefaultOptions(*dbPath).WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	members := repositories.NewMembershipRepository(db, slog.Default())
	tokens := auth.NewTokenManager(secret, *ttl)

	color.Cyan.Printf("Seeding room %q\n\n", *room)

	for _, pair := range strings.Split(*users, ",") {
		id, name, found := strings.Cut(strings.TrimSpace(pair), ":")
		if !found || id == "" || name == "" {
			log.Fatalf("Invalid user entry %q, expected id:name", pair)
		}

		if err := members.AddMember(id, domain.RoomID(*room)); err != nil {
			log.Fatalf("Failed to add %s to %s: %v", id, *room, err)
		}
		token, err := tokens.Generate(id, name)
		if err != nil {
			log.Fatalf("Failed to sign token for %s: %v", id, err)
		}

		color.Green.Printf("✔ %s (%s)\n", name, id)
		fmt.Printf("  token: %s\n\n", token)
	}

	color.Yellow.Println("Connect with: ws://localhost:8080/ws?token=<token>")
}
