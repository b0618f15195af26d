package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/LeventeLantos/modem-sms/internal/client"
	"github.com/LeventeLantos/modem-sms/internal/logger"
	"github.com/LeventeLantos/modem-sms/internal/model"
	"github.com/LeventeLantos/modem-sms/internal/payload"
	"github.com/LeventeLantos/modem-sms/internal/phone"
)

// Modem is the subset of the modem web API the workflows need.
type Modem interface {
	SendSMS(ctx context.Context, numbers []string, content string) error
	SendResult(ctx context.Context) (int, error)
	ContactList(ctx context.Context, page int, unreadOnly bool) (gjson.Result, error)
	ContentList(ctx context.Context, page int, contactID model.ID) (gjson.Result, error)
	DeleteMessage(ctx context.Context, contactID, smsID model.ID) error
	DeleteContact(ctx context.Context, contactID model.ID) error
	DeleteAll(ctx context.Context) error
}

var (
	ErrSendFailed  = errors.New("sms failed to send")
	ErrSendTimeout = errors.New("timed out waiting for send status")
)

// maxPages caps pagination in case a modem reports a bogus page count.
// Hitting it is logged since lookups and deletes then see a partial list.
const maxPages = 100

type Options struct {
	SendTimeout      time.Duration
	SendPollInterval time.Duration
	SendInitialDelay time.Duration
	DeleteRate       int
	Region           string
}

type SMSService struct {
	modem   Modem
	opts    Options
	limiter *rate.Limiter
}

func NewSMSService(modem Modem, opts Options) *SMSService {
	if opts.DeleteRate <= 0 {
		opts.DeleteRate = 10
	}
	return &SMSService{
		modem:   modem,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.DeleteRate), 1),
	}
}

// Send queues text for number and waits for the modem to report a
// terminal status.
func (s *SMSService) Send(ctx context.Context, number, text string) error {
	if err := phone.ValidateDestination(number, s.opts.Region); err != nil {
		logger.Warn("destination is not a valid phone number, sending anyway",
			zap.String("number", number), zap.Error(err))
	}

	if err := s.modem.SendSMS(ctx, []string{number}, text); err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	logger.Debug("sms queued", zap.String("to", phone.E164(number, s.opts.Region)))

	ctx, cancel := context.WithTimeoutCause(ctx, s.opts.SendTimeout, ErrSendTimeout)
	defer cancel()

	if err := sleep(ctx, s.opts.SendInitialDelay); err != nil {
		return err
	}
	for {
		status, err := s.modem.SendResult(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return context.Cause(ctx)
			}
			return fmt.Errorf("check sms status: %w", err)
		}
		if status == client.SendStatusSuccess {
			return nil
		}
		if status > client.SendStatusSuccess {
			return fmt.Errorf("%w: status %d", ErrSendFailed, status)
		}
		if err := sleep(ctx, s.opts.SendPollInterval); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return context.Cause(ctx)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-t.C:
		return nil
	}
}

type ListOptions struct {
	UnreadOnly   bool
	ReceivedOnly bool
}

// List returns the per-contact message list across all pages.
func (s *SMSService) List(ctx context.Context, opts ListOptions) ([]model.Message, error) {
	msgs, err := collect(ctx, func(ctx context.Context, page int) (gjson.Result, error) {
		return s.modem.ContactList(ctx, page, opts.UnreadOnly)
	})
	if err != nil {
		return nil, fmt.Errorf("get sms list: %w", err)
	}
	if opts.ReceivedOnly {
		msgs = model.FilterDirection(msgs, model.Received)
	}
	return msgs, nil
}

// ByContact returns every message exchanged with contactID.
func (s *SMSService) ByContact(ctx context.Context, contactID model.ID, receivedOnly bool) ([]model.Message, error) {
	msgs, err := collect(ctx, func(ctx context.Context, page int) (gjson.Result, error) {
		return s.modem.ContentList(ctx, page, contactID)
	})
	if err != nil {
		return nil, fmt.Errorf("get sms for contact %s: %w", contactID, err)
	}
	if receivedOnly {
		msgs = model.FilterDirection(msgs, model.Received)
	}
	return msgs, nil
}

func collect(ctx context.Context, fetch func(context.Context, int) (gjson.Result, error)) ([]model.Message, error) {
	var out []model.Message
	for page := 0; ; page++ {
		res, err := fetch(ctx, page)
		if err != nil {
			return nil, err
		}
		out = append(out, payload.Messages(res)...)

		total := payload.TotalPages(res)
		if page+1 >= total {
			break
		}
		if page+1 >= maxPages {
			logger.Warn("page limit reached, list is incomplete",
				zap.Int("pages_read", maxPages), zap.Int("total_pages", total))
			break
		}
	}
	return out, nil
}

// FindContactID resolves number against the full, unfiltered contact list.
// ok is false when no contact matches.
func (s *SMSService) FindContactID(ctx context.Context, number string) (id model.ID, ok bool, err error) {
	msgs, err := s.List(ctx, ListOptions{})
	if err != nil {
		return model.ID{}, false, err
	}
	id, ok = phone.FindContactID(number, msgs)
	return id, ok, nil
}

func (s *SMSService) DeleteContact(ctx context.Context, contactID model.ID) error {
	if err := s.modem.DeleteContact(ctx, contactID); err != nil {
		return fmt.Errorf("delete contact %s: %w", contactID, err)
	}
	return nil
}

func (s *SMSService) DeleteMessage(ctx context.Context, contactID, smsID model.ID) error {
	if err := s.modem.DeleteMessage(ctx, contactID, smsID); err != nil {
		return fmt.Errorf("delete sms %s: %w", smsID, err)
	}
	return nil
}

// DeleteAll clears the whole store with one unscoped delete. cleared is
// false when there was nothing to delete.
func (s *SMSService) DeleteAll(ctx context.Context) (cleared bool, err error) {
	contacts, err := s.List(ctx, ListOptions{})
	if err != nil {
		return false, err
	}
	if len(contacts) == 0 {
		return false, nil
	}
	if err := s.modem.DeleteAll(ctx); err != nil {
		return false, fmt.Errorf("delete all sms: %w", err)
	}
	return true, nil
}

// ClearAll lists each contact's thread and deletes its messages one at a
// time, paced by the delete rate limit. Individual failures are logged and
// skipped; the number of deleted messages is returned.
func (s *SMSService) ClearAll(ctx context.Context) (int, error) {
	contacts, err := s.List(ctx, ListOptions{})
	if err != nil {
		return 0, err
	}

	deleted := 0
	seen := make(map[model.ID]bool, len(contacts))
	for _, c := range contacts {
		if c.ContactID.IsZero() || seen[c.ContactID] {
			continue
		}
		seen[c.ContactID] = true

		thread, err := s.ByContact(ctx, c.ContactID, false)
		if err != nil {
			logger.Warn("skipping contact", zap.Stringer("contact", c.ContactID), zap.Error(err))
			continue
		}
		for _, m := range thread {
			if m.ID.IsZero() {
				continue
			}
			if err := s.limiter.Wait(ctx); err != nil {
				return deleted, err
			}
			if err := s.DeleteMessage(ctx, c.ContactID, m.ID); err != nil {
				logger.Warn("delete failed", zap.Stringer("contact", c.ContactID), zap.Error(err))
				continue
			}
			deleted++
		}
	}
	return deleted, nil
}
