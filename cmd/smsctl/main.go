package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LeventeLantos/modem-sms/internal/client"
	"github.com/LeventeLantos/modem-sms/internal/config"
	"github.com/LeventeLantos/modem-sms/internal/export"
	"github.com/LeventeLantos/modem-sms/internal/logger"
	"github.com/LeventeLantos/modem-sms/internal/service"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Error("command failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	in  io.Reader
	out io.Writer

	cfg      *config.Config
	sms      *service.SMSService
	exporter *export.Exporter
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	a := &app{in: in, out: out}

	root := &cobra.Command{
		Use:           "smsctl",
		Short:         "Send, read and delete SMS on an Alcatel IK40 modem",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}
	root.SetIn(in)
	root.SetOut(out)

	root.AddCommand(
		newSendCmd(a),
		newReceiveCmd(a),
		newClearCmd(a),
		newMonitorCmd(a),
	)
	return root
}

func (a *app) init(stderr io.Writer) error {
	cfg, err := config.LoadAll()
	if err != nil {
		return err
	}
	if err := logger.Init(logger.Options{
		Level:   cfg.Log.Level,
		Path:    cfg.Log.File,
		Console: stderr,
	}); err != nil {
		return err
	}

	modem, err := client.NewModemClient(cfg.Modem.URL, cfg.Modem.Timeout)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.sms = service.NewSMSService(modem, service.Options{
		SendTimeout:      cfg.Send.Timeout,
		SendPollInterval: cfg.Send.PollInterval,
		SendInitialDelay: cfg.Send.InitialDelay,
		DeleteRate:       cfg.Delete.RatePerSecond,
		Region:           cfg.Phone.Region,
	})
	a.exporter = export.New(cfg.Export.Dir)

	logger.Debug("smsctl starting",
		zap.String("modem", cfg.Modem.URL),
		zap.Bool("redis", cfg.Redis.Enabled),
	)
	return nil
}
