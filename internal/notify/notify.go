// Package notify turns service requests from the site into e-mail for the administrator.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/novostroy/novostroy-api/internal/logger"
	"github.com/novostroy/novostroy-api/internal/mail"
	"github.com/novostroy/novostroy-api/internal/models"
	"github.com/novostroy/novostroy-api/internal/storage"
)

// TimestampLayout renders submission times as dd.mm.yyyy HH:MM:SS.
const TimestampLayout = "02.01.2006 15:04:05"

const subjectPrefix = "Новая заявка: "

// DefaultArchiveTimeout bounds the upload of one archived copy.
const DefaultArchiveTimeout = 30 * time.Second

// Archiver keeps a copy of every sent notification.
type Archiver interface {
	ArchiveHTML(ctx context.Context, name, html string) (*storage.UploadResult, error)
}

type Config struct {
	AdminEmail string
	From       string
	Location   *time.Location
	// ArchiveTimeout overrides DefaultArchiveTimeout when positive.
	ArchiveTimeout time.Duration
}

type Service struct {
	sender   mail.Sender
	archiver Archiver
	cfg      Config
	log      *logger.Logger
	now      func() time.Time
}

// NewService builds the notifier. archiver may be nil.
func NewService(sender mail.Sender, archiver Archiver, cfg Config, log *logger.Logger) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.ArchiveTimeout <= 0 {
		cfg.ArchiveTimeout = DefaultArchiveTimeout
	}
	return &Service{
		sender:   sender,
		archiver: archiver,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

func orNotSpecified(p *string) string {
	if p == nil || *p == "" {
		return mail.NotSpecified
	}
	return *p
}

// Compose renders the e-mail for req without sending it.
func (s *Service) Compose(req models.ServiceRequest) (mail.Message, error) {
	submitted := req.SubmittedAt
	if submitted.IsZero() {
		submitted = s.now()
	}

	label := req.ServiceType.Label()
	html, err := mail.RenderServiceRequest(mail.ServiceRequestData{
		ServiceType: label,
		Name:        req.Name,
		Phone:       req.Phone,
		Message:     orNotSpecified(req.Message),
		SourceURL:   orNotSpecified(req.SourceURL),
		SubmittedAt: submitted.In(s.cfg.Location).Format(TimestampLayout),
	})
	if err != nil {
		return mail.Message{}, err
	}

	return mail.Message{
		From:    s.cfg.From,
		To:      s.cfg.AdminEmail,
		Subject: subjectPrefix + label,
		HTML:    html,
	}, nil
}

// Send delivers the notification. Archiving failures are logged only.
func (s *Service) Send(ctx context.Context, req models.ServiceRequest) error {
	msg, err := s.Compose(req)
	if err != nil {
		return err
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send service request mail: %w", err)
	}

	if s.archiver != nil {
		// the mail is already out, a client disconnect must not lose the copy
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ArchiveTimeout)
		res, err := s.archiver.ArchiveHTML(actx, string(req.ServiceType), msg.HTML)
		cancel()
		if err != nil {
			s.log.Warn("service request mail not archived", "service_type", req.ServiceType, "error", err)
		} else {
			s.log.Debug("service request mail archived", "key", res.Key)
		}
	}
	return nil
}
