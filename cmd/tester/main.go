package main

import (
	"bufio"
	"chat-presence/client"
	"chat-presence/domain/event"
	"chat-presence/sink"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config is read from TESTER_* variables.
type Config struct {
	GatewayURL string `envconfig:"GATEWAY_URL" default:"http://localhost:3000"`
	Email      string `envconfig:"EMAIL" required:"true"`
	Password   string `envconfig:"PASSWORD" required:"true"`
	FullName   string `envconfig:"FULL_NAME"`
	// TESTER_REGISTER creates the account before logging in
	Register bool   `envconfig:"REGISTER" default:"false"`
	Colours  bool   `envconfig:"COLOURS" default:"true"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Tester error: %v\n", err)
	}
	os.Exit(code)
}

// run logs in, joins the room, then sends every stdin line as a chat message
// while printing what the gateway broadcasts.
func run() (int, error) {
	var config Config
	if err := envconfig.Process("tester", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(log, config.GatewayURL)
	if config.Register {
		if _, err := c.Register(ctx, config.Email, config.Password, config.FullName); err != nil {
			return exitRuntime, err
		}
	}
	session, err := c.Login(ctx, config.Email, config.Password)
	if err != nil {
		return exitRuntime, err
	}

	conn, err := c.Connect(ctx, session.Token)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()
	log.Info(fmt.Sprintf(">>> Connected to %s as %s (Ctrl+C to quit)...", config.GatewayURL, session.FullName))

	go readLines(ctx, os.Stdin, conn)

	printer := newPrinter(os.Stdout, config.Colours)
	timeline := sink.NewTimeline(session.UserID)
	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping tester...")
			return exitOK, nil
		case e, ok := <-conn.Events():
			if !ok {
				if err := conn.Err(); err != nil {
					return exitRuntime, fmt.Errorf("connection lost: %w", err)
				}
				return exitOK, nil
			}
			_ = timeline.Consume(ctx, e)
			printer.print(e, timeline)
		}
	}
}

func readLines(ctx context.Context, r io.Reader, conn *client.Conn) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if err := conn.Send(strings.TrimRight(scanner.Text(), "\r")); err != nil {
			return
		}
	}
}

type printer struct {
	out     io.Writer
	colours bool
}

func newPrinter(out io.Writer, colours bool) printer {
	return printer{out: out, colours: colours}
}

func (p printer) print(e event.Event, timeline *sink.Timeline) {
	switch evt := e.(type) {
	case event.ChatBroadcast:
		author := evt.FullName
		if p.colours {
			author = color.New(color.BgBlack, color.FgGreen).Render(author)
		}
		fmt.Fprintf(p.out, "[%s] %s: %s\n", time.Now().Format(time.TimeOnly), author, evt.Message)
	case event.ClientsUpdated:
		p.roster(timeline)
	}
}

func (p printer) roster(timeline *sink.Timeline) {
	header := fmt.Sprintf("  ====== %d connected ======", len(timeline.Roster()))
	if p.colours {
		header = color.New(color.BgBlack, color.FgCyan).Render(header)
	}
	fmt.Fprintln(p.out, header)

	table := tablewriter.NewWriter(p.out)
	table.SetHeader([]string{"Connection", "User", "Full name"})
	table.SetBorder(false)
	for _, c := range timeline.Roster() {
		table.Append([]string{c.ID, c.UserID, c.FullName})
	}
	table.Render()
}
