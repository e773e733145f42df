package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"polychat/catalog"
	"polychat/chat"
	"polychat/config"
	"polychat/logging"
	"polychat/model"
	"polychat/provider"
	"polychat/storage"
)

const Version = "v0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel(), filepath.Join(cfg.DataDir(), "polychat.log"))
	if err != nil {
		fmt.Printf("Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := storage.Open(cfg.DataDir())
	if err != nil {
		fmt.Printf("Failed to open chat database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	enabled := cfg.EnabledProviders()
	if len(enabled) == 0 {
		fmt.Println("No providers enabled. Edit " + config.GetConfigFilePath() + " and set enabled = true for at least one provider.")
		os.Exit(1)
	}

	app := &cli{
		cfg:      cfg,
		store:    store,
		registry: provider.DefaultRegistry(),
		catalog:  catalog.NewService(cfg, log),
		log:      log,
	}
	if err := app.run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

type cli struct {
	cfg      *config.Store
	store    *storage.Store
	registry *provider.Registry
	catalog  *catalog.Service
	log      *zap.Logger
	orch     *chat.Orchestrator
}

func (c *cli) run() error {
	defer func() {
		if c.orch != nil {
			c.orch.Close()
		}
	}()

	c.newChat()
	fmt.Printf("polychat %s - chatting with: %s\n", Version, model.JoinProviders(c.cfg.EnabledProviders()))
	fmt.Println("Type a question, or /help for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := c.command(line)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := c.ask(line); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

func (c *cli) command(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		c.printHelp()
	case "/new":
		c.newChat()
		fmt.Println("Started a new chat.")
	case "/chats":
		err = c.listChats()
	case "/open":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: /open <chat id>")
		}
		err = c.openChat(fields[1])
	case "/delete":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: /delete <chat id> [<chat id> ...]")
		}
		err = c.deleteChats(fields[1:])
	case "/rename":
		if len(fields) < 3 {
			return false, fmt.Errorf("usage: /rename <chat id> <title>")
		}
		err = c.renameChat(fields[1], strings.Join(fields[2:], " "))
	case "/retry":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: /retry <provider>")
		}
		err = c.retry(fields[1])
	case "/models":
		err = c.listModels()
	default:
		return false, fmt.Errorf("unknown command: %s", fields[0])
	}
	return false, err
}

func (c *cli) printHelp() {
	fmt.Println(`Commands:
  /new                     start a new chat
  /chats                   list saved chats
  /open <id>               resume a saved chat
  /delete <id> [<id>...]   delete chats
  /rename <id> <title>     rename a chat
  /retry <provider>        re-ask the last question to one provider
  /models                  list available models per enabled provider
  /quit                    exit`)
}

func (c *cli) newChat() {
	if c.orch != nil {
		c.orch.Close()
	}
	c.orch = chat.NewOrchestrator(c.registry, c.cfg, c.store,
		c.log, model.NewChat(c.cfg.EnabledProviders()), nil)
}

func (c *cli) ask(question string) error {
	if err := c.orch.Ask(question); err != nil {
		return err
	}
	c.waitAndPrint()
	return nil
}

func (c *cli) retry(name string) error {
	t, err := model.ParseProviderType(name)
	if err != nil {
		return err
	}
	if err := c.orch.Retry(t); err != nil {
		return err
	}
	c.waitAndPrint()
	return nil
}

// waitAndPrint blocks until the in-flight turn commits, then prints every
// provider's answer from the finished turn.
func (c *cli) waitAndPrint() {
	for range c.orch.Updates() {
		if c.orch.Snapshot().Idle {
			break
		}
	}

	turns := c.orch.Turns()
	last := model.TurnCount(turns) - 1
	for _, m := range turns[last] {
		if !m.FromUser() {
			fmt.Printf("\n[%s]\n%s\n", m.Origin, m.Content)
		}
	}
	fmt.Println()
}

func (c *cli) listChats() error {
	chats, err := c.store.Chats()
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		fmt.Println("No saved chats.")
		return nil
	}
	for _, ch := range chats {
		fmt.Printf("  %d  %s  (%s)\n", ch.ID, ch.Title, model.JoinProviders(ch.EnabledProviders))
	}
	return nil
}

func (c *cli) openChat(arg string) error {
	id, err := parseChatID(arg)
	if err != nil {
		return err
	}
	ch, err := c.store.Chat(id)
	if err != nil {
		return err
	}
	messages, err := c.store.Messages(id)
	if err != nil {
		return err
	}

	if c.orch != nil {
		c.orch.Close()
	}
	c.orch = chat.NewOrchestrator(c.registry, c.cfg, c.store, c.log, ch, messages)

	fmt.Printf("Resumed chat %d: %s\n", ch.ID, ch.Title)
	for _, m := range messages {
		if m.FromUser() {
			fmt.Printf("> %s\n", m.Content)
		} else {
			fmt.Printf("[%s] %s\n", m.Origin, m.Content)
		}
	}
	return nil
}

func (c *cli) deleteChats(args []string) error {
	ids := make([]model.ID, 0, len(args))
	for _, arg := range args {
		id, err := parseChatID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if err := c.store.DeleteChats(ids); err != nil {
		return err
	}
	fmt.Printf("Deleted %d chat(s).\n", len(ids))
	return nil
}

func (c *cli) renameChat(arg, title string) error {
	id, err := parseChatID(arg)
	if err != nil {
		return err
	}
	return c.store.RenameChat(id, title)
}

func (c *cli) listModels() error {
	snap, err := c.catalog.Refresh(context.Background())
	if err != nil {
		return err
	}
	for _, t := range model.AllProviders() {
		if models := snap.Models(t); len(models) > 0 {
			fmt.Printf("%s:\n", t)
			for _, m := range models {
				fmt.Printf("  %s\n", m.Name)
			}
		}
		if err := snap.Errors[t]; err != nil {
			fmt.Printf("%s: listing failed: %v\n", t, err)
		}
	}
	return nil
}

func parseChatID(arg string) (model.ID, error) {
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat id: %q", arg)
	}
	return model.ID(n), nil
}
