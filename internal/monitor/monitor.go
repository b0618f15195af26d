package monitor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/LeventeLantos/modem-sms/internal/cache"
	"github.com/LeventeLantos/modem-sms/internal/export"
	"github.com/LeventeLantos/modem-sms/internal/logger"
	"github.com/LeventeLantos/modem-sms/internal/model"
	"github.com/LeventeLantos/modem-sms/internal/service"
)

const logTimeLayout = "2006-01-02 15:04:05"

type Lister interface {
	List(ctx context.Context, opts service.ListOptions) ([]model.Message, error)
}

type Options struct {
	List service.ListOptions
	// IncludeExisting reports messages already stored when the monitor
	// starts instead of silently marking them seen.
	IncludeExisting bool
}

// Monitor reports messages that appear between polls. It is driven by a
// scheduler and must not be ticked concurrently.
type Monitor struct {
	lister  Lister
	seen    cache.SeenStore
	out     io.Writer
	log     io.Writer
	opts    Options
	primed  bool
	nowFunc func() time.Time
}

func New(lister Lister, seen cache.SeenStore, out, log io.Writer, opts Options) *Monitor {
	return &Monitor{
		lister:  lister,
		seen:    seen,
		out:     out,
		log:     log,
		opts:    opts,
		primed:  opts.IncludeExisting,
		nowFunc: time.Now,
	}
}

// Tick polls once and returns the poll error for the scheduler to retry.
func (m *Monitor) Tick(ctx context.Context) error {
	fresh, err := m.Poll(ctx)
	if err != nil {
		return err
	}
	if len(fresh) > 0 {
		logger.Debug("new messages", zap.Int("count", len(fresh)))
	}
	return nil
}

// Poll fetches the current list and reports every message not seen before.
// The first successful poll only records what is already stored unless
// IncludeExisting is set. A message whose log entry cannot be written is
// left unseen and reported again on the next poll.
func (m *Monitor) Poll(ctx context.Context) ([]model.Message, error) {
	msgs, err := m.lister.List(ctx, m.opts.List)
	if err != nil {
		return nil, err
	}

	var fresh []model.Message
	for _, msg := range msgs {
		isNew, err := m.seen.MarkSeen(ctx, msg.Key())
		if err != nil {
			return fresh, err
		}
		if !isNew || !m.primed {
			continue
		}
		if err := m.report(msg); err != nil {
			if ferr := m.seen.Forget(ctx, msg.Key()); ferr != nil {
				logger.Error("unmark unreported message", zap.String("key", msg.Key()), zap.Error(ferr))
			}
			return fresh, err
		}
		fresh = append(fresh, msg)
	}

	if !m.primed {
		m.primed = true
		fmt.Fprintf(m.out, "Watching for new messages (%d already stored)\n", len(msgs))
	}
	return fresh, nil
}

func (m *Monitor) report(msg model.Message) error {
	now := m.nowFunc().Format(logTimeLayout)

	if m.log != nil {
		var b strings.Builder
		fmt.Fprintf(&b, "=== %s ===\n", now)
		fmt.Fprintf(&b, "ID: %s\nContact ID: %s\n", msg.ID, msg.ContactID)
		export.WriteBlock(&b, msg)
		b.WriteString(strings.Repeat("-", 40) + "\n\n")
		if _, err := io.WriteString(m.log, b.String()); err != nil {
			return fmt.Errorf("append monitor log: %w", err)
		}
	}

	fmt.Fprintf(m.out, "[%s] New message from %s: %s\n", now, export.From(msg), msg.Body)
	return nil
}

// NewLogWriter opens the append-only monitor log, rotated at maxMB.
func NewLogWriter(path string, maxMB int) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create monitor log dir: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxMB,
		MaxBackups: 3,
	}, nil
}
