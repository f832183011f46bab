package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/language"

	"commune/internal/community/models"
	"commune/internal/configuration"
	confirmationmodels "commune/internal/confirmation/models"
	confirmation "commune/internal/confirmation/service"
	"commune/internal/i18n"
	"commune/internal/mail"
	dErrors "commune/pkg/domain-errors"
	"commune/pkg/email"
	"commune/pkg/platform/sentinel"
)

// Confirmations starts confirmation processes.
type Confirmations interface {
	StartProcess(ctx context.Context, req confirmation.StartRequest) error
}

// Store persists members and events.
type Store interface {
	CreateMember(ctx context.Context, member *models.Member) error
	FindMemberByEmail(ctx context.Context, email string) (*models.Member, error)
	FindMemberByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash []byte) error
	CreateEvent(ctx context.Context, event *models.Event) error
	FindEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListEvents(ctx context.Context) ([]*models.Event, error)
	AddAttendee(ctx context.Context, eventID uuid.UUID, email string) (*models.Event, error)
}

// Mailer sends the welcome mail after a completed registration.
type Mailer interface {
	Send(ctx context.Context, id mail.TemplateID, locale language.Tag, format mail.Format, vars map[string]any, recipients ...string) bool
}

// ConfigReader resolves the instance name for the welcome mail.
type ConfigReader interface {
	Get(ctx context.Context, setting configuration.Setting, locale language.Tag) string
}

// Service runs the member-facing flows. Each flow only starts a
// confirmation; the change itself happens when the mailed link is opened.
type Service struct {
	confirmations Confirmations
	store         Store
	translator    *i18n.Translator
	mailer        Mailer
	config        ConfigReader
	logger        *slog.Logger
	bcryptCost    int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithWelcomeMail sends a welcome mail once a registration is confirmed.
func WithWelcomeMail(mailer Mailer, config ConfigReader) Option {
	return func(s *Service) {
		s.mailer = mailer
		s.config = config
	}
}

// WithBcryptCost overrides the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

func New(confirmations Confirmations, store Store, translator *i18n.Translator, opts ...Option) *Service {
	s := &Service{
		confirmations: confirmations,
		store:         store,
		translator:    translator,
		logger:        slog.Default(),
		bcryptCost:    bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register mails a registration link. Already registered addresses receive a
// link too; opening it reports the existing registration.
func (s *Service) Register(ctx context.Context, address, password string, locale language.Tag) error {
	address, err := normalizeAddress(address)
	if err != nil {
		return err
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}

	return s.confirmations.StartProcess(ctx, confirmation.StartRequest{
		Email:   address,
		Message: s.translator.Translate(locale, i18n.KeyRegistrationPrompt),
		Locale:  locale,
		Handler: confirmationmodels.HandlerFunc(s.completeRegistration),
		Context: confirmationmodels.NewContext(models.ContextKeyPasswordHash, string(hash)),
		Purpose: models.PurposeRegistration,
	})
}

// JoinEvent mails a link that adds address to the event's attendees.
func (s *Service) JoinEvent(ctx context.Context, eventID uuid.UUID, address string, locale language.Tag) error {
	address, err := normalizeAddress(address)
	if err != nil {
		return err
	}
	event, err := s.store.FindEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeNotFound, "event not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}

	return s.confirmations.StartProcess(ctx, confirmation.StartRequest{
		Email:   address,
		Message: s.translator.Translate(locale, i18n.KeyEventJoinPrompt, event.Title),
		Locale:  locale,
		Handler: confirmationmodels.HandlerFunc(s.completeEventJoin),
		Context: confirmationmodels.NewContext(models.ContextKeyEventID, event.ID),
		Purpose: models.PurposeEventJoin,
	})
}

// RequestPasswordReset mails a link that replaces the member's password.
// Unknown addresses receive a link as well so the response never reveals
// whether an account exists; opening it reports the missing account.
func (s *Service) RequestPasswordReset(ctx context.Context, address, password string, locale language.Tag) error {
	address, err := normalizeAddress(address)
	if err != nil {
		return err
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}

	var memberID any
	member, err := s.store.FindMemberByEmail(ctx, address)
	switch {
	case err == nil:
		memberID = member.ID
	case !errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up member")
	}

	return s.confirmations.StartProcess(ctx, confirmation.StartRequest{
		Email:   address,
		Message: s.translator.Translate(locale, i18n.KeyPasswordResetPrompt),
		Locale:  locale,
		Handler: confirmationmodels.HandlerFunc(s.completePasswordReset),
		Context: confirmationmodels.NewContext(
			models.ContextKeyMemberID, memberID,
			models.ContextKeyPasswordHash, string(hash),
		),
		Purpose: models.PurposePasswordReset,
	})
}

// CreateEvent adds an event members can join.
func (s *Service) CreateEvent(ctx context.Context, title string, startsAt time.Time) (*models.Event, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if startsAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "starts_at is required")
	}
	event := &models.Event{
		ID:       uuid.New(),
		Title:    title,
		StartsAt: startsAt,
	}
	if err := s.store.CreateEvent(ctx, event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create event")
	}
	return event, nil
}

func (s *Service) ListEvents(ctx context.Context) ([]*models.Event, error) {
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events")
	}
	return events, nil
}

func (s *Service) hashPassword(password string) ([]byte, error) {
	if len(password) < models.MinPasswordLength {
		return nil, dErrors.New(dErrors.CodeValidation, "password is too short")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "password is too long")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	return hash, nil
}

func normalizeAddress(address string) (string, error) {
	address = email.Normalize(address)
	if address == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "email is required")
	}
	if err := email.Validate(address); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeValidation, "email is invalid")
	}
	return address, nil
}
