package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/peterbourgon/ff/v3/ffyaml"

	"pastelchat/internal/client"
	"pastelchat/internal/models"
)

// Build flags
var Version = ""

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmd := newCommand(os.Stdin, os.Stdout)
	if err := cmd.ParseAndRun(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func newCommand(in io.Reader, out io.Writer) *ffcli.Command {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "chat [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newSendCommand(out),
			newReplCommand(in, out),
			newHistoryCommand(out),
			newExportCommand(out),
			newClearCommand(out),
			newVersionCommand(out),
		},
	}
}

type options struct {
	Server      string
	Transport   string
	Store       string
	StorePath   string
	RedisURL    string
	DatabaseURL string
	Timeout     time.Duration
}

func newFlagSet(name string) (*flag.FlagSet, *options) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	_ = fs.String("config", "", "yaml config file (optional)")

	opts := &options{}
	fs.StringVar(&opts.Server, "server", "http://localhost:7860", "chat server base URL")
	fs.StringVar(&opts.Transport, "transport", transportHTTP, "transport (http, ws)")
	fs.StringVar(&opts.Store, "store", storeFile, "history store (file, sqlite, redis, postgres)")
	fs.StringVar(&opts.StorePath, "store-path", defaultStorePath(), "directory for the file store or database file for sqlite")
	fs.StringVar(&opts.RedisURL, "redis-url", "redis://localhost:6379/0", "redis URL for the redis store")
	fs.StringVar(&opts.DatabaseURL, "database-url", "", "postgres URL for the postgres store")
	fs.DurationVar(&opts.Timeout, "timeout", 90*time.Second, "per-request timeout")
	return fs, opts
}

func command(name, usage, help string, fs *flag.FlagSet, exec func(context.Context, []string) error) *ffcli.Command {
	return &ffcli.Command{
		Name:       name,
		ShortUsage: usage,
		ShortHelp:  help,
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("CHAT"),
		},
		FlagSet: fs,
		Exec:    exec,
	}
}

func newSendCommand(out io.Writer) *ffcli.Command {
	fs, opts := newFlagSet("send")
	return command("send", "chat send [flags] <message...>", "send one message and print the reply", fs,
		func(ctx context.Context, args []string) error {
			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				return errors.New("message is required")
			}
			s, err := openSession(ctx, opts, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.conv.SendMessage(ctx, text); err != nil {
				return err
			}
			history := s.conv.History(ctx)
			if len(history) > 0 {
				fmt.Fprintln(out, history[len(history)-1].Content)
			}
			return nil
		})
}

func newReplCommand(in io.Reader, out io.Writer) *ffcli.Command {
	fs, opts := newFlagSet("repl")
	return command("repl", "chat repl [flags]", "interactive chat, one message per line", fs,
		func(ctx context.Context, args []string) error {
			// Only the newest message is printed on each render; the placeholder
			// is shown as a pending marker.
			render := func(history []models.ChatMessage) {
				if len(history) == 0 {
					return
				}
				last := history[len(history)-1]
				if last.Role == models.RoleUser {
					return
				}
				client.RenderText(out, history[len(history)-1:])
			}

			s, err := openSession(ctx, opts, render)
			if err != nil {
				return err
			}
			defer s.Close()

			client.RenderText(out, s.conv.History(ctx))
			scanner := bufio.NewScanner(in)
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}
				if _, err := s.conv.SendMessage(ctx, scanner.Text()); err != nil {
					return err
				}
				if ctx.Err() != nil {
					return nil
				}
			}
		})
}

func newHistoryCommand(out io.Writer) *ffcli.Command {
	fs, opts := newFlagSet("history")
	return command("history", "chat history [flags]", "print the stored conversation", fs,
		func(ctx context.Context, args []string) error {
			store, closeStore, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer closeStore()

			client.RenderText(out, client.LoadHistory(ctx, store))
			return nil
		})
}

func newExportCommand(out io.Writer) *ffcli.Command {
	fs, opts := newFlagSet("export")
	output := fs.String("output", "", "file to write, stdout if empty")
	return command("export", "chat export [flags]", "export the stored conversation as HTML", fs,
		func(ctx context.Context, args []string) error {
			store, closeStore, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer closeStore()

			html := client.RenderHTML(client.LoadHistory(ctx, store))
			if *output == "" {
				_, err := io.WriteString(out, html)
				return err
			}
			return os.WriteFile(*output, []byte(html), 0o644)
		})
}

func newClearCommand(out io.Writer) *ffcli.Command {
	fs, opts := newFlagSet("clear")
	return command("clear", "chat clear [flags]", "delete the stored conversation", fs,
		func(ctx context.Context, args []string) error {
			store, closeStore, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := client.ClearHistory(ctx, store); err != nil {
				return err
			}
			fmt.Fprintln(out, "history cleared")
			return nil
		})
}

func newVersionCommand(out io.Writer) *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "chat version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := Version
			if v == "" {
				v = "dev"
			}
			fmt.Fprintln(out, v)
			return nil
		},
	}
}
