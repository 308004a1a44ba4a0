package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/s0ngyang/catai/internal/domain"
	"github.com/s0ngyang/catai/internal/session"
	"github.com/s0ngyang/catai/internal/transport/ws"
)

func buildChatCmd(opts *rootOptions) *cobra.Command {
	var watchPort int

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session with the assistant.

Each line you type is sent as a user turn. Assistant replies and the URLs of any
fetched cat images are printed once the turn settles. Type /quit to exit.

With --watch-port, session snapshots are also streamed over a WebSocket at /ws.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("watch-port") {
				cfg.WatchPort = watchPort
			}

			rt, err := newRuntime(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer rt.close()

			ctrl := rt.newSession()
			defer ctrl.Close()

			if cfg.WatchPort > 0 {
				watcher := echo.New()
				watcher.HideBanner = true
				watcher.HidePort = true
				watcher.Use(middleware.Recover())
				ws.NewServer(ctrl, logger).RegisterRoutes(watcher)
				watcher.GET("/metrics", echo.WrapHandler(rt.metrics.Handler()))

				go func() {
					addr := fmt.Sprintf(":%d", cfg.WatchPort)
					if err := watcher.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("watch server failed", "error", err)
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					watcher.Shutdown(shutdownCtx)
				}()
				logger.Info("watch server started", "port", cfg.WatchPort)
			}

			return runREPL(cmd.Context(), ctrl, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&watchPort, "watch-port", 0, "Serve session snapshots over WebSocket on this port")
	return cmd
}

// runREPL reads lines from in until EOF, /quit or ctx is done, running each as a turn.
func runREPL(ctx context.Context, ctrl *session.Controller, in io.Reader, out io.Writer) error {
	// Interrupts cancel the turn in flight.
	stop := context.AfterFunc(ctx, func() { ctrl.Close() })
	defer stop()

	fmt.Fprintln(out, "Type a message and press Enter to send.")
	fmt.Fprintln(out, "Commands: /quit to exit")
	fmt.Fprintln(out)

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	printer := &turnPrinter{out: out}
	for {
		fmt.Fprint(out, "> ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nInterrupted")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = l
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "/quit" {
			fmt.Fprintln(out, "Bye!")
			return nil
		}

		if err := ctrl.SendUserTurn(input); err != nil {
			if errors.Is(err, session.ErrClosed) {
				return nil
			}
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		err := ctrl.Wait()
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(out, "\nInterrupted")
			return nil
		}

		printer.print(ctrl.Snapshot())
	}
}

// turnPrinter prints what changed in the session since the previous turn.
type turnPrinter struct {
	out    io.Writer
	seen   int
	images []string
}

// print writes the new assistant messages, the image list if it changed and any turn error.
func (p *turnPrinter) print(snap session.Snapshot) {
	if p.seen > len(snap.Messages) {
		p.seen = 0
	}
	for _, msg := range snap.Messages[p.seen:] {
		if msg.Role != domain.RoleAssistant {
			continue
		}
		fmt.Fprintf(p.out, "assistant: %s\n", msg.Text())
	}
	p.seen = len(snap.Messages)

	if len(snap.Images) > 0 && !slices.Equal(snap.Images, p.images) {
		fmt.Fprintf(p.out, "images (%d):\n", len(snap.Images))
		for _, url := range snap.Images {
			fmt.Fprintf(p.out, "  %s\n", url)
		}
	}
	p.images = snap.Images

	if snap.Error != "" {
		fmt.Fprintf(p.out, "error: %s\n", snap.Error)
	}
}
