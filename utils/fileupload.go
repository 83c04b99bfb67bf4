package utils

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

const (
	// MaxFileSize is 10MB in bytes
	MaxFileSize = 10 * 1024 * 1024
	// AllowedImageFormat is PNG
	AllowedImageFormat = ".png"
)

var (
	// UploadDir is the directory where booking photos are stored when no
	// bucket is configured. Can be overridden for testing.
	UploadDir = "./uploads"
)

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateImageFile validates the uploaded file format and size
func ValidateImageFile(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size <= 0 {
		return &FileUploadError{
			Code:    "EMPTY_FILE",
			Message: "Uploaded file is empty",
		}
	}

	if fileHeader.Size > MaxFileSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext != AllowedImageFormat {
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: fmt.Sprintf("Only %s files are allowed", AllowedImageFormat),
		}
	}

	return nil
}

// IsSafeFilename reports whether name is a plain file name with no path
// components
func IsSafeFilename(name string) bool {
	if name == "" || name == "." {
		return false
	}
	return !strings.Contains(name, "..") && !strings.ContainsAny(name, `/\`)
}

// SaveUploadedFile writes the uploaded file to uploadDir under filename and
// returns the stored file name. The file appears under its final name only
// once fully written.
func SaveUploadedFile(fileHeader *multipart.FileHeader, uploadDir, filename string) (saved string, err error) {
	if !IsSafeFilename(filename) {
		return "", fmt.Errorf("invalid file name %q", filename)
	}

	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			log.Printf("warning: failed to close uploaded file: %v", closeErr)
		}
	}()

	tmp, err := os.CreateTemp(uploadDir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err = os.Rename(tmp.Name(), filepath.Join(uploadDir, filename)); err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}

	return filename, nil
}

// ResolveStoredImage maps a requested file name to a photo on disk under
// uploadDir. Failures are *FileUploadError with INVALID_FILENAME,
// INVALID_FILE_TYPE or FILE_NOT_FOUND.
func ResolveStoredImage(uploadDir, filename string) (string, error) {
	if !IsSafeFilename(filename) || strings.HasPrefix(filename, ".") {
		return "", &FileUploadError{Code: "INVALID_FILENAME", Message: "Invalid filename"}
	}
	if strings.ToLower(filepath.Ext(filename)) != AllowedImageFormat {
		return "", &FileUploadError{Code: "INVALID_FILE_TYPE", Message: "Only PNG files are supported"}
	}

	fullPath := filepath.Join(uploadDir, filename)
	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		return "", &FileUploadError{Code: "FILE_NOT_FOUND", Message: "Image not found"}
	}
	return fullPath, nil
}

// GetImageURL returns the URL path for accessing a locally stored photo
func GetImageURL(filename string) string {
	if filename == "" {
		return ""
	}
	return fmt.Sprintf("/api/v1/uploads/%s", filename)
}
