package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LeventeLantos/modem-sms/internal/cache"
	"github.com/LeventeLantos/modem-sms/internal/export"
	"github.com/LeventeLantos/modem-sms/internal/logger"
	"github.com/LeventeLantos/modem-sms/internal/model"
	"github.com/LeventeLantos/modem-sms/internal/monitor"
	"github.com/LeventeLantos/modem-sms/internal/prompt"
	"github.com/LeventeLantos/modem-sms/internal/scheduler"
	"github.com/LeventeLantos/modem-sms/internal/service"
)

func newSendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send <number> <text...>",
		Short: "Send an SMS and wait for the modem to confirm it",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, text := args[0], strings.Join(args[1:], " ")
			if err := a.sms.Send(cmd.Context(), number, text); err != nil {
				if errors.Is(err, service.ErrSendFailed) {
					fmt.Fprintln(a.out, "SMS failed to send")
				}
				return err
			}
			fmt.Fprintln(a.out, "SMS sent successfully")
			return nil
		},
	}
}

func newReceiveCmd(a *app) *cobra.Command {
	var (
		all, unread, sent   bool
		contact             string
		toFile, toJSON, yml bool
	)
	cmd := &cobra.Command{
		Use:   "receive",
		Short: "List stored messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			receivedOnly := !sent

			var (
				msgs   []model.Message
				source string
			)
			if contact != "" {
				id, ok, err := a.sms.FindContactID(ctx, contact)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintf(a.out, "No messages for number: %s\n", contact)
					return nil
				}
				msgs, err = a.sms.ByContact(ctx, id, receivedOnly)
				if err != nil {
					return err
				}
				source = "Messages for " + contact
			} else {
				var err error
				msgs, err = a.sms.List(ctx, service.ListOptions{
					UnreadOnly:   unread && !all,
					ReceivedOnly: receivedOnly,
				})
				if err != nil {
					return err
				}
				source = "All messages"
				if unread && !all {
					source = "Unread messages"
				}
			}

			switch {
			case toFile:
				return a.save(export.Text, source, msgs)
			case toJSON:
				return a.save(export.JSON, source, msgs)
			case yml:
				return a.save(export.YAML, source, msgs)
			}
			printMessages(a.out, source, msgs)
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&all, "all", false, "list every message (default)")
	f.BoolVar(&unread, "unread", false, "list unread messages only")
	f.BoolVar(&sent, "sent", false, "include sent, draft and outbox messages")
	f.StringVar(&contact, "contact", "", "list the thread with this phone number")
	f.BoolVar(&toFile, "file", false, "save to a text file instead of printing")
	f.BoolVar(&toJSON, "json", false, "save to a JSON file instead of printing")
	f.BoolVar(&yml, "yaml", false, "save to a YAML file instead of printing")
	cmd.MarkFlagsMutuallyExclusive("all", "unread")
	cmd.MarkFlagsMutuallyExclusive("file", "json", "yaml")
	return cmd
}

func (a *app) save(format export.Format, source string, msgs []model.Message) error {
	path, err := a.exporter.Write(format, source, msgs)
	if errors.Is(err, export.ErrNoMessages) {
		fmt.Fprintln(a.out, "No messages to save")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %d messages to: %s\n", len(msgs), path)
	return nil
}

func newClearCmd(a *app) *cobra.Command {
	var (
		contact   string
		bulk, yes bool
	)
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete stored messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if contact != "" {
				id, found, err := a.sms.FindContactID(ctx, contact)
				if err != nil {
					return err
				}
				if !found {
					fmt.Fprintf(a.out, "No messages for %s\n", contact)
					return nil
				}
				if !yes && !prompt.Confirm(a.in, a.out, fmt.Sprintf("Delete ALL messages from %s? (y/N): ", contact)) {
					fmt.Fprintln(a.out, "Cancelled")
					return nil
				}
				if err := a.sms.DeleteContact(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Deleted messages from %s\n", contact)
				return nil
			}

			if !yes && !prompt.Confirm(a.in, a.out, "Delete ALL messages? (y/N): ") {
				fmt.Fprintln(a.out, "Cancelled")
				return nil
			}
			if bulk {
				cleared, err := a.sms.DeleteAll(ctx)
				if err != nil {
					return err
				}
				if !cleared {
					fmt.Fprintln(a.out, "No messages to delete")
					return nil
				}
				fmt.Fprintln(a.out, "Cleared all messages")
				return nil
			}

			n, err := a.sms.ClearAll(ctx)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(a.out, "No messages to delete")
				return nil
			}
			fmt.Fprintf(a.out, "Deleted %d messages\n", n)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&contact, "contact", "", "only delete the thread with this phone number")
	f.BoolVar(&bulk, "bulk", false, "delete everything in one request")
	f.BoolVar(&yes, "yes", false, "do not ask for confirmation")
	return cmd
}

func newMonitorCmd(a *app) *cobra.Command {
	var (
		unread, includeExisting bool
		interval                time.Duration
	)
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Poll for new messages until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if interval <= 0 {
				interval = a.cfg.Monitor.Interval
			}

			seen, closeSeen, err := a.seenStore(cmd)
			if err != nil {
				return err
			}
			defer closeSeen()

			logw, err := monitor.NewLogWriter(a.cfg.Monitor.LogPath, a.cfg.Monitor.LogMaxMB)
			if err != nil {
				return err
			}
			defer logw.Close()

			mon := monitor.New(a.sms, seen, a.out, logw, monitor.Options{
				List:            service.ListOptions{UnreadOnly: unread, ReceivedOnly: true},
				IncludeExisting: includeExisting,
			})
			s, err := scheduler.New(interval, mon.Tick)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Monitoring every %s, logging to %s (Ctrl+C to stop)\n", interval, a.cfg.Monitor.LogPath)
			if err := s.Run(ctx); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Monitor stopped")
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&unread, "unread", false, "only watch unread messages")
	f.BoolVar(&includeExisting, "include-existing", false, "report messages already stored at startup")
	f.DurationVar(&interval, "interval", 0, "poll interval (default MONITOR_INTERVAL_SECONDS)")
	return cmd
}

func (a *app) seenStore(cmd *cobra.Command) (cache.SeenStore, func(), error) {
	if !a.cfg.Redis.Enabled {
		return cache.NewMemorySeenStore(a.cfg.Monitor.History), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Address,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := rdb.Ping(cmd.Context()).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	store := cache.NewRedisSeenStore(rdb, a.cfg.Redis.TTL)
	logger.Info("using redis seen store", zap.String("addr", a.cfg.Redis.Address), zap.String("run_id", store.RunID()))
	return store, func() { _ = rdb.Close() }, nil
}
