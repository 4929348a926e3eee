// Command seed provisions users, chats and the moderation blacklist in a
// fresh database. The relay itself never writes those records.
package main

import (
	"chat-relay/internal"
	"chat-relay/repositories"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

func main() {
	users := flag.String("users", "", "Users to register as name:password pairs, comma separated")
	chat := flag.String("chat", "", "Chat to create as name=id1;id2;id3")
	blacklist := flag.String("blacklist", "", "Words to blacklist, comma separated")
	flag.Parse()

	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if *users != "" {
		if err := seedUsers(db, *users); err != nil {
			log.Fatal(err)
		}
	}
	if *chat != "" {
		if err := seedChat(db, *chat); err != nil {
			log.Fatal(err)
		}
	}
	if *blacklist != "" {
		words := strings.Split(*blacklist, ",")
		if err := repositories.NewBlacklistRepository(db).AddWords(words); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("blacklisted %d word(s)\n", len(words))
	}
}

func seedUsers(db *badger.DB, arg string) error {
	repository, err := repositories.NewUserRepository(db)
	if err != nil {
		return err
	}
	defer repository.Close()

	for _, pair := range strings.Split(arg, ",") {
		name, password, found := strings.Cut(pair, ":")
		if !found {
			return fmt.Errorf("invalid user entry %q, want name:password", pair)
		}
		user, err := repository.RegisterUser(name, password)
		if err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
		fmt.Printf("user %s registered with id %d\n", user.Username, user.ID)
	}
	return nil
}

func seedChat(db *badger.DB, arg string) error {
	name, rawIDs, found := strings.Cut(arg, "=")
	if !found {
		return fmt.Errorf("invalid chat entry %q, want name=id1;id2", arg)
	}

	var participantIDs []int
	for _, raw := range strings.Split(rawIDs, ";") {
		id, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid participant id %q: %w", raw, err)
		}
		participantIDs = append(participantIDs, id)
	}

	repository, err := repositories.NewChatRepository(db)
	if err != nil {
		return err
	}
	defer repository.Close()

	chat, err := repository.CreateChat(name, participantIDs)
	if err != nil {
		return err
	}
	fmt.Printf("chat %s created with id %d (%d participants)\n", chat.Name, chat.ID, len(chat.ParticipantIDs))
	return nil
}
