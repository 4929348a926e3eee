// Command history lists or searches the sender-side message journal of a
// chat without touching the running relay or client.
package main

import (
	"chat-relay/domain"
	"chat-relay/internal"
	"chat-relay/repositories"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

func main() {
	chatID := flag.Int("chat", 0, "Chat id to list")
	search := flag.String("search", "", "Full-text query over message contents")
	limit := flag.Int("limit", 20, "Maximum number of search hits")
	flag.Parse()

	if *chatID == 0 && *search == "" {
		log.Fatal("one of -chat or -search is required")
	}

	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// Note: BypassLockGuard allows opening if another process (the client) holds the lock
	opts := badger.DefaultOptions(journalPath(config)).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	var index *bluge.Writer
	if *search != "" {
		if config.BlugeFilepath == "" {
			log.Fatal("BLUGE_FILEPATH must be set to search")
		}
		index, err = bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
		if err != nil {
			log.Fatalf("Failed to open index: %v", err)
		}
		defer index.Close()
	}

	repository := repositories.NewMessageReader(db, index, logger, nil)

	var messages []domain.Message
	if *search != "" {
		messages, err = repository.Search(*search, *limit)
	} else {
		messages, err = repository.MessagesOf(domain.ChatID(*chatID))
	}
	if err != nil {
		log.Fatal(err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Chat", "At", "Sender", "Content"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, message := range messages {
		table.Append([]string{
			strconv.Itoa(message.ID),
			strconv.Itoa(int(message.ChatID)),
			message.Timestamp.Format("2006-01-02 15:04:05"),
			message.SenderUsername,
			message.Content,
		})
	}
	table.Render()

	fmt.Printf("%d message(s)\n", len(messages))
}

// journalPath mirrors the client's default: the journal lives beside the
// cached token, not in the relay's database.
func journalPath(config internal.Config) string {
	if config.JournalFilepath != "" {
		return config.JournalFilepath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".chat-relay", "journal")
}
