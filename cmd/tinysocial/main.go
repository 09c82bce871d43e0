package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tnetwork96/tinysocial/internal/client"
	"github.com/tnetwork96/tinysocial/internal/config"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		host        string
		port        int
		username    string
		pin         string
		metricsAddr string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "tinysocial",
		Short: "Terminal client for the tiny game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := buildLogger(verbose)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			cfg := config.Load()
			if host != "" {
				cfg.ServerHost = host
			}
			if port != 0 {
				cfg.ServerPort = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if metricsAddr != "" {
				r := chi.NewRouter()
				r.Handle("/metrics", promhttp.Handler())
				go func() {
					if err := http.ListenAndServe(metricsAddr, r); err != nil {
						log.Warn("metrics listener stopped", zap.Error(err))
					}
				}()
			}

			return run(ctx, cfg, log, username, pin)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "server host (overrides SERVER_HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "server port (overrides SERVER_PORT)")
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&pin, "pin", "p", "", "account PIN")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("pin")
	return cmd
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger, username, pin string) error {
	c := client.New(client.Options{Config: cfg, Log: log})
	defer c.Close()

	res, err := c.Login(ctx, username, pin)
	if err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("login failed: %s", res.Message)
	}
	log.Info("logged in", zap.Int("user_id", res.UserID), zap.String("nickname", res.Nickname))

	if err := c.Connect(ctx); err != nil {
		return err
	}

	go repl(ctx, c, log)

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

// repl is a bare-bones command prompt for poking at the client:
// friends, notifs, invites, board, chat <id> <text>, read <id>,
// play <friend_id>, accept <session_id>, decline <session_id>,
// ready, cursor <row> <col>, move <row> <col>, leave.
func repl(ctx context.Context, c *client.Client, log *zap.Logger) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if err := runCommand(ctx, c, fields); err != nil {
			log.Warn("command failed", zap.String("cmd", fields[0]), zap.Error(err))
		}
	}
}

func runCommand(ctx context.Context, c *client.Client, fields []string) error {
	switch fields[0] {
	case "friends":
		for _, f := range c.FriendsSnapshot() {
			fmt.Printf("%d %s online=%v typing=%v unread=%d\n", f.ID, f.Name, f.Online, f.Typing, f.Unread)
		}
	case "notifs":
		for _, n := range c.NotificationsSnapshot() {
			fmt.Printf("%d [%s] %s\n", n.ID, n.Kind, n.Message)
		}
	case "invites":
		for _, inv := range c.ActiveInvites() {
			fmt.Printf("session %d from %s (%s)\n", inv.SessionID, inv.HostName, inv.GameType)
		}
	case "board":
		v, ok := c.GameView()
		if !ok {
			return client.ErrNotLoggedIn
		}
		fmt.Printf("session=%d status=%s turn=%d winner=%d myturn=%v\n",
			v.SessionID, v.Status, v.CurrentTurn, v.WinnerID, v.MyTurn)
	case "chat":
		if len(fields) < 3 {
			return fmt.Errorf("usage: chat <friend_id> <text>")
		}
		toID, err := strconv.Atoi(fields[1])
		if err != nil {
			return err
		}
		_, err = c.SendChat(ctx, toID, strings.Join(fields[2:], " "))
		return err
	case "read":
		if len(fields) < 2 {
			return fmt.Errorf("usage: read <friend_id>")
		}
		toID, err := strconv.Atoi(fields[1])
		if err != nil {
			return err
		}
		return c.MarkRead(ctx, toID, "")
	case "play":
		return withInt(fields, func(id int) error {
			_, err := c.StartGame(ctx, id)
			return err
		})
	case "accept":
		return withInt(fields, func(id int) error { return c.RespondToInvite(ctx, id, true) })
	case "decline":
		return withInt(fields, func(id int) error { return c.RespondToInvite(ctx, id, false) })
	case "cursor":
		return withRowCol(fields, func(row, col int) error {
			c.SetCursor(row, col)
			return nil
		})
	case "move":
		return withRowCol(fields, func(row, col int) error {
			c.SetCursor(row, col)
			return c.SubmitMove(ctx, row, col)
		})
	case "ready":
		return c.SetReady(ctx)
	case "leave":
		return c.LeaveGame(ctx)
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
	return nil
}

func withInt(fields []string, fn func(int) error) error {
	if len(fields) < 2 {
		return fmt.Errorf("usage: %s <id>", fields[0])
	}
	id, err := strconv.Atoi(fields[1])
	if err != nil {
		return err
	}
	return fn(id)
}

func withRowCol(fields []string, fn func(row, col int) error) error {
	if len(fields) < 3 {
		return fmt.Errorf("usage: %s <row> <col>", fields[0])
	}
	row, err := strconv.Atoi(fields[1])
	if err != nil {
		return err
	}
	col, err := strconv.Atoi(fields[2])
	if err != nil {
		return err
	}
	return fn(row, col)
}
