package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"commune/internal/community/models"
	"commune/internal/configuration"
	confirmationmodels "commune/internal/confirmation/models"
	"commune/internal/i18n"
	"commune/internal/mail"
	"commune/pkg/platform/sentinel"
	"commune/pkg/requestcontext"
)

// The complete* methods run when a mailed link is opened. A returned error
// keeps the link usable; any SUCCESS result consumes it.

func (s *Service) completeRegistration(ctx context.Context, address string, data confirmationmodels.Context) (confirmationmodels.Result, error) {
	locale := requestcontext.Locale(ctx)
	member := &models.Member{
		ID:           uuid.New(),
		Email:        address,
		PasswordHash: []byte(data.GetString(models.ContextKeyPasswordHash)),
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.store.CreateMember(ctx, member); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return confirmationmodels.Info(s.translator.Translate(locale, i18n.KeyRegistrationExists)), nil
		}
		return confirmationmodels.Result{}, fmt.Errorf("create member: %w", err)
	}

	s.logger.InfoContext(ctx, "member registered", "member_id", member.ID)
	s.sendWelcome(ctx, address)
	return confirmationmodels.Success(s.translator.Translate(locale, i18n.KeyRegistrationSuccess)), nil
}

func (s *Service) completeEventJoin(ctx context.Context, address string, data confirmationmodels.Context) (confirmationmodels.Result, error) {
	locale := requestcontext.Locale(ctx)
	event, err := s.store.AddAttendee(ctx, data.GetID(models.ContextKeyEventID), address)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return confirmationmodels.Error(s.translator.Translate(locale, i18n.KeyEventJoinUnknown)), nil
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return confirmationmodels.Info(s.translator.Translate(locale, i18n.KeyEventJoinAlready, event.Title)), nil
	case err != nil:
		return confirmationmodels.Result{}, fmt.Errorf("add attendee: %w", err)
	}
	return confirmationmodels.Success(s.translator.Translate(locale, i18n.KeyEventJoinSuccess, event.Title)), nil
}

func (s *Service) completePasswordReset(ctx context.Context, _ string, data confirmationmodels.Context) (confirmationmodels.Result, error) {
	locale := requestcontext.Locale(ctx)
	failed := confirmationmodels.Error(s.translator.Translate(locale, i18n.KeyPasswordResetFailed))

	if v, _ := data.Lookup(models.ContextKeyMemberID); v.IsNull() {
		return failed, nil
	}
	memberID := data.GetID(models.ContextKeyMemberID)
	hash := []byte(data.GetString(models.ContextKeyPasswordHash))

	err := s.store.UpdatePasswordHash(ctx, memberID, hash)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return failed, nil
	case err != nil:
		return confirmationmodels.Result{}, fmt.Errorf("update password: %w", err)
	}

	s.logger.InfoContext(ctx, "member password changed", "member_id", memberID)
	return confirmationmodels.Success(s.translator.Translate(locale, i18n.KeyPasswordReset)), nil
}

func (s *Service) sendWelcome(ctx context.Context, address string) {
	if s.mailer == nil {
		return
	}
	locale := requestcontext.Locale(ctx)
	vars := map[string]any{
		"instanceName": s.config.Get(ctx, configuration.InstanceName, locale),
	}
	s.mailer.Send(ctx, mail.TemplateWelcome, locale, mail.FormatHTML, vars, address)
}
