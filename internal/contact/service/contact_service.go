package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"bucheron/internal/domain"
	"bucheron/internal/dto"
	"bucheron/internal/infrastructure/mailer"
	"bucheron/internal/infrastructure/rabbitmq"

	"go.uber.org/zap"
)

type Validator interface {
	Struct(s interface{}) error
}

type MessageRepository interface {
	Insert(ctx context.Context, msg domain.ContactMessage) (uint, error)
}

type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type EventPublisher interface {
	Publish(ctx context.Context, pattern string, data interface{}) error
}

var notificationTmpl = template.Must(template.New("contact").Parse(`<h2>Nouveau message depuis le site</h2>
<p><strong>{{.FirstName}} {{.LastName}}</strong> &lt;{{.Email}}&gt;{{if .Phone}} · {{.Phone}}{{end}}</p>
{{if .OrderNumber}}<p>Commande : {{.OrderNumber}}</p>{{end}}
<p>Objet : {{.Subject}}</p>
<blockquote style="white-space:pre-wrap">{{.Message}}</blockquote>`))

type ContactService struct {
	repo      MessageRepository
	validator Validator
	mail      Mailer
	events    EventPublisher
	notify    string
	logger    *zap.Logger
}

func NewContactService(repo MessageRepository, validator Validator, mail Mailer, events EventPublisher, notify string, logger *zap.Logger) *ContactService {
	return &ContactService{
		repo:      repo,
		validator: validator,
		mail:      mail,
		events:    events,
		notify:    notify,
		logger:    logger,
	}
}

// Submit stores the message then notifies the shop. Once stored, the message
// counts as delivered even if the notification fails.
func (s *ContactService) Submit(ctx context.Context, req dto.ContactRequest) (*domain.ContactMessage, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)
	req.OrderNumber = strings.ToUpper(strings.TrimSpace(req.OrderNumber))
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	msg := domain.ContactMessage{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		Subject:     req.Subject,
		Message:     req.Message,
		OrderNumber: req.OrderNumber,
		Metadata:    req.Metadata,
	}
	if msg.Metadata == nil {
		msg.Metadata = map[string]string{}
	}

	id, err := s.repo.Insert(ctx, msg)
	if err != nil {
		return nil, err
	}
	msg.ID = id

	logger := s.logger.With(zap.Uint("contactId", id))
	logger.Info("contact message stored", zap.String("subject", msg.Subject))

	if err := s.sendNotification(ctx, msg); err != nil {
		logger.Error("failed to send contact notification", zap.Error(err))
	}
	if err := s.events.Publish(ctx, rabbitmq.EventContactSubmitted, msg); err != nil {
		logger.Error("failed to publish contact event", zap.Error(err))
	}

	return &msg, nil
}

func (s *ContactService) sendNotification(ctx context.Context, msg domain.ContactMessage) error {
	if s.notify == "" {
		return nil
	}
	var body bytes.Buffer
	if err := notificationTmpl.Execute(&body, msg); err != nil {
		return fmt.Errorf("rendering notification: %w", err)
	}
	return s.mail.Send(ctx, mailer.Message{
		To:      s.notify,
		ReplyTo: msg.Email,
		Subject: "[Contact] " + msg.Subject,
		HTML:    body.String(),
	})
}
