package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/nebula-auto-parts/storefront/internal/apperror"
	"github.com/nebula-auto-parts/storefront/internal/blob"
	"github.com/nebula-auto-parts/storefront/internal/model"
	"github.com/nebula-auto-parts/storefront/internal/repository"
)

// Upload is an image received from a client. Its content type is always
// sniffed from Data; whatever the client declared is not trusted.
type Upload struct {
	Filename string
	Data     []byte
}

// allowedImageTypes are the sniffed content types accepted for upload.
// SVG is excluded: it can carry script and is served from the API origin.
var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// ProfileService manages a user's own account and their uploaded images.
type ProfileService struct {
	users     repository.UserRepository
	blobs     blob.Store
	maxUpload int64
	logger    *slog.Logger
}

// NewProfileService creates a ProfileService. Uploads larger than maxUpload
// bytes are rejected.
func NewProfileService(users repository.UserRepository, blobs blob.Store, maxUpload int64, logger *slog.Logger) *ProfileService {
	return &ProfileService{users: users, blobs: blobs, maxUpload: maxUpload, logger: logger}
}

// GetProfile returns the caller's account.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/profile: fetching %s: %w", userID, err)
	}
	return user, nil
}

// UpdateProfile applies fields to the caller's account. When pic is not
// nil it is stored first and becomes the profile picture.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, fields ProfileFields, pic *Upload) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/profile: fetching %s: %w", userID, err)
	}
	if err := fields.apply(user); err != nil {
		return nil, err
	}

	var stored *blob.Blob
	if pic != nil {
		if stored, err = s.store(ctx, userID, *pic); err != nil {
			return nil, err
		}
		user.ProfilePicture = &stored.ID
	}

	if err := s.users.Update(ctx, user); err != nil {
		if stored != nil {
			s.discard(ctx, stored.ID)
		}
		return nil, fmt.Errorf("service/profile: updating %s: %w", userID, err)
	}
	return user, nil
}

// UploadProfilePicture stores pic and makes it the caller's profile
// picture.
func (s *ProfileService) UploadProfilePicture(ctx context.Context, userID string, pic Upload) (*blob.Blob, error) {
	b, err := s.store(ctx, userID, pic)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetProfilePicture(ctx, userID, &b.ID); err != nil {
		s.discard(ctx, b.ID)
		return nil, fmt.Errorf("service/profile: setting picture for %s: %w", userID, err)
	}
	return b, nil
}

// GetImage returns a stored image with its bytes. Images are public.
func (s *ProfileService) GetImage(ctx context.Context, id string) (*blob.Blob, error) {
	b, err := s.blobs.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/profile: fetching image %s: %w", id, err)
	}
	return b, nil
}

// SetProfilePicture points the caller's profile at an image they uploaded
// earlier.
func (s *ProfileService) SetProfilePicture(ctx context.Context, userID, imageID string) error {
	imageID = strings.TrimSpace(imageID)
	if imageID == "" {
		return apperror.ValidationFailed("imageId", "imageId is required")
	}

	b, err := s.blobs.Get(ctx, imageID)
	if err != nil {
		return fmt.Errorf("service/profile: fetching image %s: %w", imageID, err)
	}
	if b.UploadedBy != userID {
		return apperror.Forbidden("image belongs to another user")
	}

	if err := s.users.SetProfilePicture(ctx, userID, &imageID); err != nil {
		return fmt.Errorf("service/profile: setting picture for %s: %w", userID, err)
	}
	return nil
}

// DeleteImage removes an image. Only its uploader or an admin may do so.
// Every profile that pointed at it is cleared.
func (s *ProfileService) DeleteImage(ctx context.Context, userID string, isAdmin bool, imageID string) error {
	b, err := s.blobs.Get(ctx, imageID)
	if err != nil {
		return fmt.Errorf("service/profile: fetching image %s: %w", imageID, err)
	}
	if b.UploadedBy != userID && !isAdmin {
		return apperror.Forbidden("only the uploader or an admin can delete this image")
	}

	if err := s.blobs.Delete(ctx, imageID); err != nil {
		return fmt.Errorf("service/profile: deleting image %s: %w", imageID, err)
	}
	cleared, err := s.users.ClearProfilePicture(ctx, imageID)
	if err != nil {
		return fmt.Errorf("service/profile: clearing references to %s: %w", imageID, err)
	}

	s.logger.Info("image deleted",
		slog.String("imageID", imageID),
		slog.String("by", userID),
		slog.Int64("profilesCleared", cleared),
	)
	return nil
}

// store validates pic and writes it to the blob store. The content type
// comes from the bytes and must be one of allowedImageTypes.
func (s *ProfileService) store(ctx context.Context, userID string, pic Upload) (*blob.Blob, error) {
	if len(pic.Data) == 0 {
		return nil, apperror.ValidationFailed("profilePicture", "no file uploaded")
	}
	if int64(len(pic.Data)) > s.maxUpload {
		return nil, apperror.ValidationFailed("profilePicture",
			fmt.Sprintf("file is larger than %d bytes", s.maxUpload))
	}

	contentType := http.DetectContentType(pic.Data)
	if !allowedImageTypes[contentType] {
		return nil, apperror.ValidationFailed("profilePicture", "file must be a PNG, JPEG, GIF or WebP image")
	}

	b := &blob.Blob{
		Filename:    filepath.Base(pic.Filename),
		ContentType: contentType,
		UploadedBy:  userID,
		Category:    blob.CategoryProfile,
		Data:        pic.Data,
	}
	if err := s.blobs.Put(ctx, b); err != nil {
		return nil, fmt.Errorf("service/profile: storing upload: %w", err)
	}

	s.logger.Info("image uploaded",
		slog.String("imageID", b.ID),
		slog.String("userID", userID),
		slog.Int64("size", b.Size),
	)
	return b, nil
}

// discard removes a blob whose owning update failed. A failure here only
// leaves an unreferenced blob behind, so it is logged and not returned.
func (s *ProfileService) discard(ctx context.Context, id string) {
	if err := s.blobs.Delete(ctx, id); err != nil {
		s.logger.Error("failed to discard orphaned image",
			slog.String("imageID", id),
			slog.String("error", err.Error()),
		)
	}
}
