package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"

	"commune/internal/audit"
	"commune/internal/configuration"
	"commune/internal/confirmation/metrics"
	"commune/internal/confirmation/models"
	"commune/internal/i18n"
	"commune/internal/mail"
	dErrors "commune/pkg/domain-errors"
	"commune/pkg/email"
	"commune/pkg/platform/sentinel"
	"commune/pkg/requestcontext"
)

// Store holds pending confirmations. Execute must run fn at most once with a
// true outcome per record.
type Store interface {
	Put(ctx context.Context, rec *models.PendingConfirmation) error
	Execute(ctx context.Context, id string, fn func(rec *models.PendingConfirmation) bool) error
	DeleteExpired(ctx context.Context) (int, error)
	TTL() time.Duration
}

// ConfigReader resolves display settings for the confirmation mail.
type ConfigReader interface {
	Get(ctx context.Context, setting configuration.Setting, locale language.Tag) string
}

// Mailer delivers the confirmation link. It reports success and never fails
// loudly.
type Mailer interface {
	Send(ctx context.Context, id mail.TemplateID, locale language.Tag, format mail.Format, vars map[string]any, recipients ...string) bool
}

// AuditPublisher records lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Template variables of the confirmation mail.
const (
	VarInstanceName        = "instanceName"
	VarConfirmationLink    = "confirmationLink"
	VarConfirmationTimeout = "confirmationTimeout"
	VarConfirmationMessage = "confirmationMessage"
)

// StartRequest describes a confirmation to start.
type StartRequest struct {
	Email string
	// Message is shown in the mail above the link.
	Message string
	Locale  language.Tag
	Handler models.Handler
	Context models.Context
	// Purpose labels audit events, e.g. "registration".
	Purpose string
}

// Service is the confirmation engine. It mails a link for each started
// process and resolves presented identifiers into results, running each
// handler to success at most once.
type Service struct {
	store          Store
	config         ConfigReader
	mailer         Mailer
	translator     *i18n.Translator
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	newID          func() string
	now            func() time.Time
	mailFormat     mail.Format
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithIDGenerator replaces the identifier source. Identifiers must be
// unguessable; tests use deterministic ones.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithClock sets the time source for audit timestamps and latency.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithMailFormat selects the body format of confirmation mails.
func WithMailFormat(format mail.Format) Option {
	return func(s *Service) {
		s.mailFormat = format
	}
}

// New creates the confirmation engine.
func New(store Store, config ConfigReader, mailer Mailer, translator *i18n.Translator, opts ...Option) *Service {
	s := &Service{
		store:      store,
		config:     config,
		mailer:     mailer,
		translator: translator,
		logger:     slog.Default(),
		tracer:     otel.Tracer("commune/confirmation"),
		newID:      uuid.NewString,
		now:        time.Now,
		mailFormat: mail.FormatHTML,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartProcess stores a pending confirmation and mails its link to
// req.Email. Only caller mistakes are returned as errors: a failed delivery
// is logged and the record simply expires.
func (s *Service) StartProcess(ctx context.Context, req StartRequest) error {
	ctx, span := s.tracer.Start(ctx, "confirmation.StartProcess",
		trace.WithAttributes(attribute.String("confirmation.purpose", req.Purpose)),
	)
	defer span.End()

	if err := validateStart(req); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		return err
	}

	locale := i18n.Normalize(req.Locale)
	rec := &models.PendingConfirmation{
		ID:      s.newID(),
		Email:   strings.TrimSpace(req.Email),
		Message: req.Message,
		Locale:  locale,
		Handler: req.Handler,
		Context: req.Context,
	}
	// The record must be discoverable before the link can reach anyone.
	if err := s.store.Put(ctx, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failed")
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store pending confirmation")
	}
	s.metrics.IncStarted()

	vars := map[string]any{
		VarInstanceName:        s.config.Get(ctx, configuration.InstanceName, locale),
		VarConfirmationLink:    ConfirmationLink(s.config.Get(ctx, configuration.InstanceURL, locale), rec.ID),
		VarConfirmationTimeout: s.translator.Timeout(locale, s.timeoutMinutes()),
		VarConfirmationMessage: req.Message,
	}
	if !s.mailer.Send(ctx, mail.TemplateConfirmation, locale, s.mailFormat, vars, rec.Email) {
		s.logger.WarnContext(ctx, "confirmation mail was not accepted for delivery",
			"confirmation_id", rec.ID,
			"purpose", req.Purpose,
		)
		s.emit(ctx, audit.Event{
			Action:  audit.ActionMailRejected,
			Email:   rec.Email,
			Purpose: req.Purpose,
		})
	}

	s.emit(ctx, audit.Event{
		Action:  audit.ActionConfirmationStarted,
		Email:   rec.Email,
		Purpose: req.Purpose,
	})
	return nil
}

// Confirm resolves id into a result. It never fails: unknown, consumed and
// expired identifiers all yield the same ERROR naming the timeout, and
// handler failures yield a generic ERROR while the record stays pending.
func (s *Service) Confirm(ctx context.Context, id string, locale language.Tag) models.Result {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "confirmation.Confirm")
	defer span.End()
	defer func() {
		s.metrics.ObserveConfirmLatency(s.now().Sub(start))
	}()

	locale = i18n.Normalize(locale)
	handlerCtx := requestcontext.WithLocale(ctx, locale)

	var (
		result  models.Result
		failed  bool
		pending *models.PendingConfirmation
	)
	err := s.store.Execute(ctx, id, func(rec *models.PendingConfirmation) bool {
		pending = rec
		res, herr := s.invoke(handlerCtx, rec)
		if herr != nil {
			failed = true
			s.logger.ErrorContext(ctx, "confirmation handler failed",
				"confirmation_id", id,
				"error", herr,
			)
			span.RecordError(herr)
			result = models.Error(s.translator.Translate(locale, i18n.KeyConfirmationError))
			return false
		}
		result = res
		return res.IsSuccess()
	})

	switch {
	case err != nil && !errors.Is(err, sentinel.ErrNotFound) && !errors.Is(err, sentinel.ErrExpired):
		// Store trouble looks the same as an unknown id to the visitor.
		s.logger.ErrorContext(ctx, "failed to look up confirmation",
			"confirmation_id", id,
			"error", err,
		)
		fallthrough
	case err != nil:
		s.metrics.IncOutcome("expired")
		span.SetAttributes(attribute.String("confirmation.outcome", "expired"))
		return s.expiredResult(locale)
	case failed:
		s.metrics.IncOutcome("failed")
		span.SetStatus(codes.Error, "handler failed")
		s.emit(ctx, audit.Event{
			Action:  audit.ActionConfirmationFailed,
			Email:   pending.Email,
			Outcome: string(result.Type),
		})
		return result
	case result.IsSuccess():
		s.metrics.IncOutcome("confirmed")
		span.SetAttributes(attribute.String("confirmation.outcome", "confirmed"))
		s.emit(ctx, audit.Event{
			Action:  audit.ActionConfirmationConfirmed,
			Email:   pending.Email,
			Outcome: string(result.Type),
		})
		return result
	default:
		s.metrics.IncOutcome("rejected")
		span.SetAttributes(attribute.String("confirmation.outcome", "rejected"))
		s.emit(ctx, audit.Event{
			Action:  audit.ActionConfirmationRejected,
			Email:   pending.Email,
			Outcome: string(result.Type),
			Reason:  result.Message,
		})
		return result
	}
}

// invoke runs the handler and turns panics into errors. A misused Context
// panics, and an anonymous visitor must never see that.
func (s *Service) invoke(ctx context.Context, rec *models.PendingConfirmation) (result models.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.IncHandlerFailure("panic")
			s.logger.ErrorContext(ctx, "confirmation handler panicked",
				"confirmation_id", rec.ID,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	result, err = rec.Handler.Handle(ctx, rec.Email, rec.Context)
	if err != nil {
		s.metrics.IncHandlerFailure("error")
		return models.Result{}, err
	}
	if !result.Type.IsValid() {
		s.metrics.IncHandlerFailure("error")
		return models.Result{}, fmt.Errorf("handler returned invalid result type %q", result.Type)
	}
	return result, nil
}

func (s *Service) expiredResult(locale language.Tag) models.Result {
	timeout := s.translator.Timeout(locale, s.timeoutMinutes())
	return models.Error(s.translator.Translate(locale, i18n.KeyConfirmationExpired, timeout))
}

// timeoutMinutes rounds the store TTL up so a 90s lifetime reads "2 minutes".
func (s *Service) timeoutMinutes() int {
	return int(math.Ceil(s.store.TTL().Minutes()))
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.Timestamp = s.now()
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	event.UserAgent = requestcontext.UserAgent(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", string(event.Action),
			"error", err,
		)
	}
}

func validateStart(req StartRequest) error {
	addr := strings.TrimSpace(req.Email)
	if addr == "" {
		return dErrors.New(dErrors.CodeBadRequest, "recipient email is required")
	}
	if err := email.Validate(addr); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "recipient email is invalid")
	}
	if req.Handler == nil {
		return dErrors.New(dErrors.CodeBadRequest, "confirmation handler is required")
	}
	return nil
}
