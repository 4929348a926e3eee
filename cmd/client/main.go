package main

import (
	"bufio"
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/internal"
	"chat-relay/network"
	"chat-relay/repositories"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Load config
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Open Badger in Read-Only mode
	// Note: BypassLockGuard allows opening if another process (the relay) holds the lock
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	users := repositories.NewUserDirectory(db)
	chats := repositories.NewChatDirectory(db)
	stdin := bufio.NewScanner(os.Stdin)

	// 3. Identity: a cached token skips the password prompt
	user, err := login(config, users, stdin)
	if err != nil {
		return exitRuntime, err
	}
	color.Green.Printf("Logged in as %s (id %d)\n", user.Username, user.ID)

	// 4. Chat selection, limited to the chats the user belongs to
	chatID, err := pickChat(chats, user.ID, stdin)
	if err != nil {
		return exitRuntime, err
	}

	// 5. Sender-side journal: every message is persisted here before it
	// goes on the wire; the relay never stores messages.
	journalDB, err := badger.Open(badger.DefaultOptions(journalPath(config)).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open journal: %w", err)
	}
	defer journalDB.Close()

	var index *bluge.Writer
	if config.BlugeFilepath != "" {
		index, err = bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
		if err != nil {
			return exitRuntime, fmt.Errorf("failed to open index: %w", err)
		}
		defer index.Close()
	}

	journal, err := repositories.NewMessageRepository(journalDB, index, logger, config.LimitMessages)
	if err != nil {
		return exitRuntime, err
	}
	defer journal.Close()

	// 6. Connect and relay the terminal
	client := network.NewChatClient(config.Host, config.Port, user.ID, printMessage, logger)
	if err := client.Start(); err != nil {
		return exitRuntime, err
	}
	defer client.Stop()

	color.Gray.Println("Connected. Type a message and press enter, /quit to leave.")
	for stdin.Scan() {
		line := strings.TrimSpace(stdin.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			break
		}
		message := domain.NewMessage(user.ID, chatID, line)
		message.SenderUsername = user.Username

		// Persist first; an unjournaled message is never transmitted.
		stored, err := journal.StoreMessage(message)
		if err != nil {
			color.Red.Printf("could not save message, not sent: %v\n", err)
			continue
		}
		if err := client.SendMessage(stored); err != nil {
			color.Red.Printf("send failed: %v\n", err)
		}
	}

	return exitOK, nil
}

func printMessage(message domain.Message) {
	header := color.New(color.BgBlack, color.FgGreen).
		Render(fmt.Sprintf("[%s] %s", message.Timestamp.Format("15:04:05"), message.SenderUsername))
	fmt.Printf("%s %s\n", header, message.Content)
}

// login returns the authenticated user, preferring a cached session token
// over a password prompt. A fresh login writes a new token to the cache.
func login(config internal.Config, users *repositories.UserRepository, stdin *bufio.Scanner) (domain.User, error) {
	key := []byte(config.AuthTokenKey)

	if data, err := os.ReadFile(tokenCachePath()); err == nil {
		claims, err := auth.ValidateToken(key, strings.TrimSpace(string(data)))
		if err == nil {
			return domain.User{ID: claims.UserID, Username: claims.Username}, nil
		}
		// Expired or tampered cache, fall through to the prompt.
	}

	fmt.Print("username: ")
	if !stdin.Scan() {
		return domain.User{}, fmt.Errorf("no username provided")
	}
	username := strings.TrimSpace(stdin.Text())

	fmt.Print("password: ")
	if !stdin.Scan() {
		return domain.User{}, fmt.Errorf("no password provided")
	}
	password := stdin.Text()

	user, err := users.Authenticate(username, password)
	if err != nil {
		return domain.User{}, err
	}

	token, err := auth.IssueToken(key, user.ID, user.Username, config.AuthTokenDuration)
	if err != nil {
		return domain.User{}, err
	}
	if err := cacheToken(token); err != nil {
		// Losing the cache only costs a prompt next time.
		color.Yellow.Printf("could not cache session token: %v\n", err)
	}
	return user, nil
}

func pickChat(chats *repositories.ChatRepository, userID int, stdin *bufio.Scanner) (domain.ChatID, error) {
	available, err := chats.ChatsOfUser(userID)
	if err != nil {
		return 0, err
	}
	if len(available) == 0 {
		return 0, fmt.Errorf("you are not a participant of any chat yet")
	}
	for _, chat := range available {
		fmt.Printf("  %d  %s (%d participants)\n", chat.ID, chat.Name, len(chat.ParticipantIDs))
	}
	fmt.Print("chat id: ")
	if !stdin.Scan() {
		return 0, fmt.Errorf("no chat selected")
	}
	id, err := strconv.Atoi(strings.TrimSpace(stdin.Text()))
	if err != nil {
		return 0, fmt.Errorf("invalid chat id: %w", err)
	}
	if _, err := chats.ChatByID(domain.ChatID(id)); err != nil {
		return 0, err
	}
	return domain.ChatID(id), nil
}

func tokenCachePath() string {
	return filepath.Join(dotDir(), "token")
}

// journalPath resolves the sender-side history database, defaulting to a
// per-user location so it never collides with the relay's own database.
func journalPath(config internal.Config) string {
	if config.JournalFilepath != "" {
		return config.JournalFilepath
	}
	return filepath.Join(dotDir(), "journal")
}

func dotDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".chat-relay")
}

func cacheToken(token string) error {
	path := tokenCachePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token), 0o600)
}
