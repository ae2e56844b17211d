package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"textbook-gateway/internal/conversation"
	"textbook-gateway/internal/credentials"
	"textbook-gateway/internal/gatewayclient"
	"textbook-gateway/internal/logger"
	"textbook-gateway/internal/prefs"
	"textbook-gateway/internal/tui"
)

func main() {
	os.Exit(run())
}

func run() int {
	prefsPath := flag.String("prefs", prefs.DefaultPath(), "preferences file")
	gatewayURL := flag.String("gateway", "", "gateway base URL (overrides prefs)")
	textbookID := flag.String("textbook", "", "textbook id to open; defaults to the first in the catalog")
	token := flag.String("token", "", "access token for this run only (optional)")
	saveToken := flag.String("save-token", "", "store an access token and exit")
	logout := flag.Bool("logout", false, "remove the stored access token and exit")
	logPath := flag.String("log", "", "write logs to this file (optional)")
	flag.Parse()

	p, _ := prefs.Load(*prefsPath)
	if *gatewayURL != "" {
		p.GatewayURL = *gatewayURL
	}

	store := credentials.NewFileStore(p.ResolvedCredentialsPath())
	switch {
	case *saveToken != "":
		if err := store.Save(*saveToken); err != nil {
			fmt.Fprintf(os.Stderr, "textbook-chat: %v\n", err)
			return 1
		}
		return 0
	case *logout:
		if err := store.Clear(); err != nil {
			fmt.Fprintf(os.Stderr, "textbook-chat: %v\n", err)
			return 1
		}
		return 0
	}

	// stdout belongs to the terminal UI
	log := logger.NewNop()
	if *logPath != "" {
		l, err := logger.NewFile(*logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "textbook-chat: open log: %v\n", err)
			return 1
		}
		log = l
	}
	defer log.Sync()

	var creds conversation.Credentials = store
	if *token != "" {
		creds = credentials.Static(*token)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := gatewayclient.New(p.GatewayURL, 0)
	session := conversation.NewSession(client, creds,
		conversation.WithQuizDelay(p.QuizDelay()),
		conversation.WithLogger(log),
	)
	defer session.Close()

	log.Info("starting chat client", "gateway_url", p.GatewayURL, "authenticated", session.Authenticated())

	model := tui.New(tui.Options{
		Context:     ctx,
		Session:     session,
		Catalog:     client,
		Progress:    client,
		Credentials: creds,
		TextbookID:  *textbookID,
		Logger:      log,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "textbook-chat: %v\n", err)
		return 1
	}
	return 0
}
