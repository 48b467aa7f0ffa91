package service

import (
	"context"
	"strings"

	"bucheron/internal/domain"
	"bucheron/internal/dto"

	"go.uber.org/zap"
)

const defaultSource = "website"

type Validator interface {
	Struct(s interface{}) error
}

type SubscriptionRepository interface {
	Insert(ctx context.Context, sub domain.NewsletterSubscription) (uint, error)
}

type SubscriptionService struct {
	repo      SubscriptionRepository
	validator Validator
	logger    *zap.Logger
}

func NewSubscriptionService(repo SubscriptionRepository, validator Validator, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{repo: repo, validator: validator, logger: logger}
}

// Subscribe registers an address once; a second attempt is a ConflictError.
func (s *SubscriptionService) Subscribe(ctx context.Context, req dto.NewsletterRequest) (*domain.NewsletterSubscription, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	sub := domain.NewsletterSubscription{
		Email:     req.Email,
		FirstName: req.FirstName,
		Interests: normalizeInterests(req.Interests),
		Source:    strings.TrimSpace(req.Source),
	}
	if sub.Source == "" {
		sub.Source = defaultSource
	}

	id, err := s.repo.Insert(ctx, sub)
	if err != nil {
		return nil, err
	}
	sub.ID = id

	s.logger.Info("newsletter subscription", zap.Uint("id", id), zap.String("source", sub.Source))
	return &sub, nil
}

func normalizeInterests(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, i := range in {
		i = strings.ToLower(strings.TrimSpace(i))
		if i == "" {
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	return out
}
