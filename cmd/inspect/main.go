package main

import (
	"chat-presence/httpapi"
	"chat-presence/repositories"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
)

// inspect prints the accounts of a gateway store, or serves the JSON
// inspector when -http is given. The store is opened read-only, so it can
// run next to a live gateway.
type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/badger"`
}

func main() {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(2)
	}
	dbPath := flag.String("db", config.BadgerFilepath, "Path to badger DB")
	address := flag.String("http", "", "Serve the inspector on this address instead of printing")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if *address != "" {
		err = serve(db, *address)
	} else {
		err = printUsers(os.Stdout, db)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Inspect error: %v\n", err)
		os.Exit(1)
	}
}

func printUsers(out io.Writer, db *badger.DB) error {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"User ID", "Email", "Full name", "Roles", "Created"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)

	err := repositories.ScanUsers(db, func(user repositories.User) error {
		table.Append([]string{
			user.ID,
			user.Email,
			user.FullName,
			strings.Join(user.Roles, ","),
			user.CreatedAt.Format(time.DateTime),
		})
		return nil
	})
	if err != nil {
		return err
	}
	table.Render()
	return nil
}

func serve(db *badger.DB, address string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Method(http.MethodGet, "/debug/inspect", httpapi.InspectHandler(db, nil, func() map[string]any {
		return map[string]any{
			"status": "Viewer Mode (Read-Only)",
			"time":   time.Now().Format(time.RFC822),
		}
	}))
	server := &http.Server{Addr: address, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	fmt.Printf("🌐 Viewer started at http://%s/debug/inspect\n", address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
