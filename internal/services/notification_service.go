package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/equipped-com/platform-api/internal/models"
	"github.com/equipped-com/platform-api/pkg/logger"
	"github.com/equipped-com/platform-api/pkg/mail"
)

// Notifier dispatches invitation lifecycle emails. All sends are
// fire-and-forget from the caller's perspective: delivery failure must never
// fail a lifecycle transition.
type Notifier interface {
	SendInvitation(ctx context.Context, inv *models.Invitation, account *models.Account)
	SendAcceptanceNotice(ctx context.Context, inv *models.Invitation, inviter *models.User)
	SendDeclineNotice(ctx context.Context, inv *models.Invitation, inviter *models.User)
}

// NotificationService implements Notifier over an SMTP mailer.
type NotificationService struct {
	mailer  mail.Mailer
	baseURL string
	log     *zap.Logger
}

// NewNotificationService builds the dispatcher. A nil mailer disables delivery.
func NewNotificationService(mailer mail.Mailer, baseURL string) *NotificationService {
	return &NotificationService{
		mailer:  mailer,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     logger.WithModule("notifications"),
	}
}

// SendInvitation emails the invitee a link to view the invitation.
func (s *NotificationService) SendInvitation(ctx context.Context, inv *models.Invitation, account *models.Account) {
	if inv == nil || account == nil {
		return
	}

	body := fmt.Sprintf(
		"Hello,\n\nYou have been invited to join %s on Equipped as %s.\n\nView the invitation:\n%s\n\nThis invitation expires on %s.\n",
		account.Name, inv.Role, s.invitationLink(inv.ID), inv.ExpiresAt.Format("January 2, 2006"),
	)

	s.deliver(ctx, mail.Message{
		To:      []string{inv.Email},
		Subject: fmt.Sprintf("You're invited to join %s on Equipped", account.Name),
		Body:    body,
	})
}

// SendAcceptanceNotice tells the original inviter their invitation was accepted.
func (s *NotificationService) SendAcceptanceNotice(ctx context.Context, inv *models.Invitation, inviter *models.User) {
	if inv == nil || inviter == nil || inviter.Email == "" {
		return
	}

	s.deliver(ctx, mail.Message{
		To:      []string{inviter.Email},
		Subject: fmt.Sprintf("%s accepted your invitation", inv.Email),
		Body:    fmt.Sprintf("Hello,\n\n%s has accepted your invitation and now has %s access.\n", inv.Email, inv.Role),
	})
}

// SendDeclineNotice tells the original inviter their invitation was declined.
func (s *NotificationService) SendDeclineNotice(ctx context.Context, inv *models.Invitation, inviter *models.User) {
	if inv == nil || inviter == nil || inviter.Email == "" {
		return
	}

	s.deliver(ctx, mail.Message{
		To:      []string{inviter.Email},
		Subject: fmt.Sprintf("%s declined your invitation", inv.Email),
		Body:    fmt.Sprintf("Hello,\n\n%s has declined your invitation.\n", inv.Email),
	})
}

func (s *NotificationService) deliver(ctx context.Context, msg mail.Message) {
	if s.mailer == nil {
		return
	}

	if err := s.mailer.Send(ctx, msg); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		s.log.Warn("notification delivery failed",
			zap.Strings("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) invitationLink(id string) string {
	if s.baseURL == "" {
		return "/invitations/" + id
	}
	return fmt.Sprintf("%s/invitations/%s", s.baseURL, id)
}
