// Command notifywatch logs in to a ScholarHub backend, opens the realtime
// notification channel and streams incoming notifications to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scholarhub.app/scholarhub/client"
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8080", "backend base URL")
		email     = flag.String("email", "", "login email (omit to continue as guest)")
		password  = flag.String("password", "", "login password")
		guestFile = flag.String("guest-file", defaultGuestFile(), "where the guest credential is persisted")
		reconnect = flag.Duration("reconnect", 3*time.Second, "websocket reconnect delay")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	c := client.New(client.Config{
		BaseURL:        *baseURL,
		GuestTokenFile: *guestFile,
		ReconnectDelay: *reconnect,
		Logger:         log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		identity client.Identity
		err      error
	)
	if *email != "" {
		identity, err = c.Login(ctx, *email, *password)
	} else {
		identity, err = c.ContinueAsGuest(ctx)
	}
	if err != nil {
		log.Error("authentication failed", "error", err)
		os.Exit(1)
	}
	log.Info("authenticated", "id", identity.ID, "guest", identity.IsGuest)

	if identity.IsGuest {
		fmt.Println("guest sessions have no notification feed; log in with -email to watch notifications")
		return
	}

	store := c.NewNotificationStore()
	if err := store.LoadInitial(ctx); err != nil {
		log.Error("failed to load notifications", "error", err)
		os.Exit(1)
	}

	for _, n := range store.Notifications() {
		printNotification(n, false)
	}
	fmt.Printf("-- %d unread, watching for new notifications --\n", store.UnreadCount())

	ch := c.NewChannel(func(n client.Notification) {
		store.OnPush(n)
		printNotification(n, true)
	})
	ch.Connect()
	defer ch.Close()

	store.StartPolling(ctx)
	defer store.StopPolling()

	<-ctx.Done()
	fmt.Println("bye")
}

func printNotification(n client.Notification, live bool) {
	marker := " "
	if !n.IsRead {
		marker = "*"
	}
	if live {
		marker = ">"
	}
	fmt.Printf("%s [%s] %s  %s: %s\n",
		marker,
		n.Timestamp().Format(time.RFC3339),
		n.Type,
		n.Title,
		n.Message,
	)
}

func defaultGuestFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scholarhub-guest.json"
	}
	return home + "/.scholarhub-guest.json"
}
