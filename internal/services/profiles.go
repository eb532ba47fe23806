package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/shadowtwin/internal/database"
	"github.com/snappy-loop/shadowtwin/internal/models"
	"github.com/snappy-loop/shadowtwin/internal/pipeline"
	"github.com/snappy-loop/shadowtwin/internal/storage"
)

const (
	maxDisplayNameLength = 100
	maxBioLength         = 2000
)

// ProfileService manages user profiles and their avatar images
type ProfileService struct {
	repo            profileRepository
	uploader        Uploader
	maxPortraitSize int64
	now             func() time.Time
}

// NewProfileService creates a new ProfileService. uploader may be nil, disabling avatar upload.
func NewProfileService(repo profileRepository, uploader Uploader, maxPortraitSize int64) *ProfileService {
	return &ProfileService{
		repo:            repo,
		uploader:        uploader,
		maxPortraitSize: maxPortraitSize,
		now:             time.Now,
	}
}

// Get returns the user's profile; a user who never saved one gets an empty profile.
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p, err := s.repo.Get(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return &models.Profile{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// Update applies the non-nil fields of req
func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, req *models.UpdateProfileRequest) (*models.Profile, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if utf8.RuneCountInString(name) > maxDisplayNameLength {
			return nil, fmt.Errorf("%w: display_name exceeds %d characters", ErrInvalidInput, maxDisplayNameLength)
		}
		p.DisplayName = name
	}
	if req.Bio != nil {
		if utf8.RuneCountInString(*req.Bio) > maxBioLength {
			return nil, fmt.Errorf("%w: bio exceeds %d characters", ErrInvalidInput, maxBioLength)
		}
		p.Bio = *req.Bio
	}
	p.UpdatedAt = s.now()
	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	return p, nil
}

// UploadAvatar stores a profile image and records its URL
func (s *ProfileService) UploadAvatar(ctx context.Context, userID uuid.UUID, image []byte) (*models.Profile, error) {
	if s.uploader == nil {
		return nil, &pipeline.ConfigurationError{Missing: "object storage"}
	}
	if s.maxPortraitSize > 0 && int64(len(image)) > s.maxPortraitSize {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrInvalidInput, s.maxPortraitSize)
	}
	contentType, err := pipeline.DetectImageType(image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	url, err := s.uploader.Upload(ctx, storage.ObjectKey("avatars/"+userID.String(), contentType), image, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}
	p.AvatarURL = &url
	p.UpdatedAt = s.now()
	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("content_type", contentType).
		Int("size", len(image)).
		Msg("Profile avatar uploaded")
	return p, nil
}
