package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dmitrijs2005/shelfsync/internal/flagx"
	"github.com/dmitrijs2005/shelfsync/internal/server"
	"github.com/dmitrijs2005/shelfsync/internal/server/auth"
	"github.com/dmitrijs2005/shelfsync/internal/server/config"
)

// issueFor returns the user id given with -issue, or "".
func issueFor(args []string) string {
	var userID string
	fs := flag.NewFlagSet("issue", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&userID, "issue", "", "print an access token for the given user id and exit")
	_ = fs.Parse(flagx.FilterArgs(args, []string{"-issue"}))
	return userID
}

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	if userID := issueFor(os.Args[1:]); userID != "" {
		token, err := auth.GenerateToken(userID, []byte(cfg.SecretKey), cfg.AccessTokenValidityDuration)
		if err != nil {
			log.Fatalf("issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	app, err := server.NewApp(ctx, cfg, nil)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		os.Exit(1)
	}
}
