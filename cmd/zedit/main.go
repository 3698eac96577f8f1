// Command zedit is a small terminal client for the zedit API, built on
// the client package stores.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"zedit/api/client"
)

func main() {
	apiURL := flag.String("api", envOr("ZEDIT_API_URL", "http://localhost:5000"), "API base URL")
	sessionFile := flag.String("session", defaultSessionPath(), "session file path")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := client.New(*apiURL)
	auth := client.NewAuthStore(c, *sessionFile)

	if err := run(ctx, c, auth, args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, auth *client.AuthStore, args []string) error {
	switch args[0] {
	case "register":
		if len(args) != 4 {
			return fmt.Errorf("usage: zedit register <name> <email> <password>")
		}
		auth.Register(ctx, args[1], args[2], args[3])
		return reportAuth(auth)

	case "login":
		if len(args) != 3 {
			return fmt.Errorf("usage: zedit login <email> <password>")
		}
		auth.Login(ctx, args[1], args[2])
		return reportAuth(auth)

	case "logout":
		auth.Logout()
		fmt.Println(auth.Status.Message)
		return nil

	case "whoami":
		user, err := c.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s <%s> theme=%s\n", user.Name, user.Email, user.Theme)
		return nil

	case "boards":
		boards := client.NewBoardStore(c)
		boards.Fetch(ctx)
		if boards.Status.IsError {
			return fmt.Errorf("%s", boards.Status.Message)
		}
		for _, b := range boards.Boards {
			visibility := "public"
			if b.IsPrivate {
				visibility = "private"
			}
			fmt.Printf("%s  %-24s %s  %d collaborator(s)\n", b.ID, b.Name, visibility, len(b.Collaborators))
		}
		return nil

	case "board-create":
		if len(args) < 2 {
			return fmt.Errorf("usage: zedit board-create <name>")
		}
		boards := client.NewBoardStore(c)
		name := args[1]
		boards.Create(ctx, client.BoardInput{Name: &name})
		if boards.Status.IsError {
			return fmt.Errorf("%s", boards.Status.Message)
		}
		fmt.Println(boards.Status.Message, boards.Boards[0].ID)
		return nil

	case "docs":
		docs := client.NewDocStore(c)
		docs.Fetch(ctx)
		if docs.Status.IsError {
			return fmt.Errorf("%s", docs.Status.Message)
		}
		for _, d := range docs.Docs {
			board := "unsorted"
			if d.Board != nil {
				board = *d.Board
			}
			fmt.Printf("%s  %-32s %-10s %s\n", d.ID, d.Title, d.Status, board)
		}
		return nil

	case "doc-create":
		if len(args) < 2 {
			return fmt.Errorf("usage: zedit doc-create <title> [boardId]")
		}
		docs := client.NewDocStore(c)
		in := client.DocumentInput{Title: &args[1]}
		if len(args) > 2 {
			in.BoardID = &args[2]
		}
		docs.Create(ctx, in)
		if docs.Status.IsError {
			return fmt.Errorf("%s", docs.Status.Message)
		}
		fmt.Println(docs.Status.Message, docs.Current.ID)
		return nil

	case "doc-status":
		if len(args) != 3 {
			return fmt.Errorf("usage: zedit doc-status <docId> <status>")
		}
		docs := client.NewDocStore(c)
		docs.SetStatus(ctx, args[1], args[2])
		if docs.Status.IsError {
			return fmt.Errorf("%s", docs.Status.Message)
		}
		fmt.Println(docs.Status.Message)
		return nil

	case "doc-show":
		if len(args) != 2 {
			return fmt.Errorf("usage: zedit doc-show <docId>")
		}
		doc, err := c.GetDocument(ctx, args[1])
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Println(string(out))
		return nil

	case "search":
		if len(args) != 2 {
			return fmt.Errorf("usage: zedit search <query>")
		}
		resp, err := c.SearchDocuments(ctx, args[1], 20, 0)
		if err != nil {
			return err
		}
		for _, hit := range resp.Results {
			fmt.Printf("%s  %-32s %s\n", hit.ID, hit.Title, hit.Snippet)
		}
		fmt.Printf("%d result(s)\n", resp.Total)
		return nil

	case "theme":
		theme := "light"
		if auth.User != nil {
			theme = auth.User.Theme
		}
		themes := client.NewThemeStore(c, theme)
		themes.Toggle(ctx)
		if themes.Status.IsError {
			return fmt.Errorf("%s", themes.Status.Message)
		}
		fmt.Println(themes.Status.Message)
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func reportAuth(auth *client.AuthStore) error {
	if auth.Status.IsError {
		return fmt.Errorf("%s", auth.Status.Message)
	}
	fmt.Println(auth.Status.Message)
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: zedit [-api URL] [-session FILE] <command>

commands:
  register <name> <email> <password>
  login <email> <password>
  logout
  whoami
  boards
  board-create <name>
  docs
  doc-create <title> [boardId]
  doc-status <docId> <status>
  doc-show <docId>
  search <query>
  theme`)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".zedit-session.json"
	}
	return filepath.Join(home, ".zedit-session.json")
}
