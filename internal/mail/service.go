package mail

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"golang.org/x/text/language"

	"commune/pkg/email"
	platformstrings "commune/pkg/platform/strings"
)

// VarRecipientName is filled per recipient unless the caller sets it.
const VarRecipientName = "recipientName"

// Service renders templates and hands them to a Sender.
type Service struct {
	sender    Sender
	templates *Templates
	logger    *slog.Logger
	metrics   *Metrics
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New creates a mail service.
func New(sender Sender, templates *Templates, opts ...Option) *Service {
	s := &Service{
		sender:    sender,
		templates: templates,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send renders template id and delivers one mail per distinct recipient. It reports
// whether every recipient was handed to the transport. Failures are logged
// and counted, never returned: callers treat mail as fire-and-forget.
func (s *Service) Send(ctx context.Context, id TemplateID, locale language.Tag, format Format, vars map[string]any, recipients ...string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "mail delivery panicked",
				"template", string(id),
				"panic", fmt.Sprint(r),
			)
			s.metrics.inc(id, "send_failed")
			ok = false
		}
	}()

	recipients = platformstrings.DedupeAndTrim(recipients)
	if len(recipients) == 0 {
		s.logger.WarnContext(ctx, "mail without recipients dropped", "template", string(id))
		return false
	}

	ok = true
	for _, to := range recipients {
		if !s.sendOne(ctx, id, locale, format, vars, to) {
			ok = false
		}
	}
	return ok
}

func (s *Service) sendOne(ctx context.Context, id TemplateID, locale language.Tag, format Format, vars map[string]any, to string) bool {
	data := make(map[string]any, len(vars)+1)
	maps.Copy(data, vars)
	if _, set := data[VarRecipientName]; !set {
		data[VarRecipientName] = email.DisplayName(to)
	}

	rendered, err := s.templates.Render(id, locale, format, data)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to render mail",
			"template", string(id),
			"locale", locale.String(),
			"error", err,
		)
		s.metrics.inc(id, "render_failed")
		return false
	}

	msg := Message{
		To:      to,
		Subject: rendered.Subject,
		Body:    rendered.Body,
		Format:  rendered.Format,
	}
	if err := s.sender.Deliver(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to deliver mail",
			"template", string(id),
			"error", err,
		)
		s.metrics.inc(id, "send_failed")
		return false
	}
	s.metrics.inc(id, "sent")
	return true
}
