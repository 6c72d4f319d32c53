package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/anidigital/harvest-hub/internal/domain"
	"github.com/anidigital/harvest-hub/internal/repo"
)

// ProfileInput carries the editable profile fields.
type ProfileInput struct {
	FullName  string
	AvatarURL string
	Location  string
	Phone     string
}

// ProfileService reads and writes display profiles. Accounts live in the
// hosted auth service; a profile row is created on first save.
type ProfileService struct {
	DB *gorm.DB
}

// Get returns userID's own profile. A user without a row gets an empty
// profile carrying only the id.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	p, err := repo.GetProfile(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return &domain.Profile{ID: userID}, nil
	}
	return p, err
}

// Public returns the fields of id visible to other users.
func (s *ProfileService) Public(ctx context.Context, id string) (*domain.PublicProfile, error) {
	p, err := repo.GetProfile(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &domain.PublicProfile{ID: p.ID, FullName: p.FullName, AvatarURL: p.AvatarURL}, nil
}

// Save creates or replaces userID's profile.
func (s *ProfileService) Save(ctx context.Context, userID string, in ProfileInput) (*domain.Profile, error) {
	p := &domain.Profile{
		ID:        userID,
		FullName:  strings.TrimSpace(in.FullName),
		AvatarURL: strings.TrimSpace(in.AvatarURL),
		Location:  strings.TrimSpace(in.Location),
		Phone:     strings.TrimSpace(in.Phone),
	}
	if p.FullName == "" {
		return nil, ErrInvalidInput
	}
	if existing, err := repo.GetProfile(ctx, s.DB, userID); err == nil {
		p.CreatedAt = existing.CreatedAt
	}
	if err := repo.UpsertProfile(ctx, s.DB, p); err != nil {
		return nil, err
	}
	return p, nil
}
