package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) error
	Save(ctx context.Context) error
	List(ctx context.Context, args []string) error
	Search(ctx context.Context, args []string) error
	Fetch(ctx context.Context, args []string) error
	Status(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the shelfsync CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command and dispatches to methods on 'a'. The loop exits on scanner EOF or
// when the user types "exit" or "quit".
//
//	Not logged in:
//	  - help, login, status, exit | quit
//
//	Logged in:
//	  - help
//	  - (l)ist <collection>
//	  - (s)earch <collection> [query]
//	  - fetch <image-id>  download an image into ./images
//	  - refresh        pull every collection and save a snapshot
//	  - save           save a snapshot
//	  - status
//	  - login          switch user
//	  - logout
//	  - exit | quit
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("shelf%s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, (s)earch, fetch, refresh, save, status, login, logout, exit")
			} else {
				printlnFn("Available commands: login, status, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "status":
			_ = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		case "l", "list", "s", "search", "fetch", "refresh", "save", "logout":
			if !a.isLoggedIn() {
				printlnFn("Not logged in")
				continue
			}
			switch cmd {
			case "l", "list":
				_ = a.List(ctx, args)
			case "s", "search":
				_ = a.Search(ctx, args)
			case "fetch":
				_ = a.Fetch(ctx, args)
			case "refresh":
				_ = a.Refresh(ctx)
			case "save":
				_ = a.Save(ctx)
			case "logout":
				_ = a.Logout(ctx)
			}

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
