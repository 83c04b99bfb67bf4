package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/kendall-kelly/quickfix-api/config"
	"github.com/kendall-kelly/quickfix-api/utils"
)

// ImageService stores booking problem photos
type ImageService interface {
	// UploadBookingImage validates and stores a photo for a booking and
	// returns its storage key
	UploadBookingImage(ctx context.Context, bookingID uint, fileHeader *multipart.FileHeader) (string, error)

	// GetImageURL returns a URL the client can fetch the photo from
	GetImageURL(ctx context.Context, imageKey string) (string, error)

	// DeleteImage removes a photo from storage
	DeleteImage(ctx context.Context, imageKey string) error
}

// NewImageService picks S3 when a bucket is configured and the local upload
// directory otherwise
func NewImageService(ctx context.Context, cfg *config.Config) (ImageService, error) {
	if cfg.AWSS3Bucket == "" {
		log.Printf("AWS_S3_BUCKET not set, storing booking photos in %s", utils.UploadDir)
		return NewLocalImageService(utils.UploadDir), nil
	}
	s3Service, err := NewS3Service(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("Storing booking photos in s3://%s", cfg.AWSS3Bucket)
	return NewS3ImageService(s3Service), nil
}

// S3ImageService implements ImageService using S3 for storage
type S3ImageService struct {
	s3Service S3Interface
}

// NewS3ImageService wraps an S3 backend
func NewS3ImageService(s3Service S3Interface) *S3ImageService {
	return &S3ImageService{s3Service: s3Service}
}

// BookingImageKey returns a fresh object key under the booking's prefix
func BookingImageKey(bookingID uint) string {
	return fmt.Sprintf("bookings/%d/%s.png", bookingID, uuid.NewString())
}

func (s *S3ImageService) UploadBookingImage(ctx context.Context, bookingID uint, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	key := BookingImageKey(bookingID)
	if err := s.s3Service.UploadFile(ctx, key, fileHeader); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return key, nil
}

func (s *S3ImageService) GetImageURL(ctx context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}

	url, err := s.s3Service.GetPresignedURL(ctx, imageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}
	return url, nil
}

func (s *S3ImageService) DeleteImage(ctx context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}

	if err := s.s3Service.DeleteFile(ctx, imageKey); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// LocalImageService keeps photos in a flat directory served by the uploads
// endpoint
type LocalImageService struct {
	dir string
}

// NewLocalImageService stores photos under dir
func NewLocalImageService(dir string) *LocalImageService {
	return &LocalImageService{dir: dir}
}

func (s *LocalImageService) UploadBookingImage(_ context.Context, bookingID uint, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	filename := fmt.Sprintf("booking_%d_%s.png", bookingID, uuid.NewString())
	saved, err := utils.SaveUploadedFile(fileHeader, s.dir, filename)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return saved, nil
}

func (s *LocalImageService) GetImageURL(_ context.Context, imageKey string) (string, error) {
	return utils.GetImageURL(imageKey), nil
}

func (s *LocalImageService) DeleteImage(_ context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}

	err := os.Remove(filepath.Join(s.dir, filepath.Base(imageKey)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
