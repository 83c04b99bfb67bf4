package utils

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestFileHeader creates a multipart.FileHeader for testing
func createTestFileHeader(t *testing.T, filename string, size int64, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	h.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content)) + 1024)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	require.NotEmpty(t, form.File["image"])
	fileHeader := form.File["image"][0]
	// Override size for testing purposes
	fileHeader.Size = size
	return fileHeader
}

func TestValidateImageFile(t *testing.T) {
	content := []byte("fake png content")

	tests := []struct {
		name     string
		filename string
		size     int64
		wantCode string
	}{
		{"valid png", "leak.png", int64(len(content)), ""},
		{"uppercase extension", "leak.PNG", int64(len(content)), ""},
		{"exactly the limit", "leak.png", MaxFileSize, ""},
		{"too large", "leak.png", 11 * 1024 * 1024, "FILE_TOO_LARGE"},
		{"empty", "leak.png", 0, "EMPTY_FILE"},
		{"jpg", "leak.jpg", int64(len(content)), "INVALID_FILE_FORMAT"},
		{"jpeg", "leak.jpeg", int64(len(content)), "INVALID_FILE_FORMAT"},
		{"gif", "leak.gif", int64(len(content)), "INVALID_FILE_FORMAT"},
		{"no extension", "leak", int64(len(content)), "INVALID_FILE_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileHeader := createTestFileHeader(t, tt.filename, tt.size, content)

			err := ValidateImageFile(fileHeader)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			var fileErr *FileUploadError
			require.ErrorAs(t, err, &fileErr)
			assert.Equal(t, tt.wantCode, fileErr.Code)
		})
	}
}

func TestValidateImageFile_Messages(t *testing.T) {
	content := []byte("fake jpg content")

	err := ValidateImageFile(createTestFileHeader(t, "photo.jpg", int64(len(content)), content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Only .png files are allowed")

	err = ValidateImageFile(createTestFileHeader(t, "photo.png", MaxFileSize+1, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "File size exceeds maximum allowed size of 10 MB")
}

func TestIsSafeFilename(t *testing.T) {
	assert.True(t, IsSafeFilename("booking_1_abc.png"))
	assert.False(t, IsSafeFilename(""))
	assert.False(t, IsSafeFilename("."))
	assert.False(t, IsSafeFilename("../secret.png"))
	assert.False(t, IsSafeFilename("nested/photo.png"))
	assert.False(t, IsSafeFilename(`nested\photo.png`))
}

func TestSaveUploadedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	content := []byte("\x89PNG fake image bytes")
	fileHeader := createTestFileHeader(t, "sink.png", int64(len(content)), content)

	saved, err := SaveUploadedFile(fileHeader, dir, "booking_7_photo.png")
	require.NoError(t, err)
	assert.Equal(t, "booking_7_photo.png", saved)

	stored, err := os.ReadFile(filepath.Join(dir, saved))
	require.NoError(t, err)
	assert.Equal(t, content, stored)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestSaveUploadedFile_RejectsPaths(t *testing.T) {
	content := []byte("data")
	fileHeader := createTestFileHeader(t, "sink.png", int64(len(content)), content)

	_, err := SaveUploadedFile(fileHeader, t.TempDir(), "../escape.png")
	assert.Error(t, err)
}

func TestResolveStoredImage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "booking_2.png"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.png"), 0755))

	path, err := ResolveStoredImage(dir, "booking_2.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "booking_2.png"), path)

	tests := []struct {
		name string
		file string
		code string
	}{
		{"empty", "", "INVALID_FILENAME"},
		{"traversal", "../booking_2.png", "INVALID_FILENAME"},
		{"hidden", ".upload-1.png", "INVALID_FILENAME"},
		{"not png", "booking_2.jpg", "INVALID_FILE_TYPE"},
		{"missing", "booking_3.png", "FILE_NOT_FOUND"},
		{"directory", "folder.png", "FILE_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveStoredImage(dir, tt.file)
			var fileErr *FileUploadError
			require.ErrorAs(t, err, &fileErr)
			assert.Equal(t, tt.code, fileErr.Code)
		})
	}
}

func TestGetImageURL(t *testing.T) {
	assert.Equal(t, "", GetImageURL(""))
	assert.Equal(t, "/api/v1/uploads/booking_1.png", GetImageURL("booking_1.png"))
}

func TestFileUploadError_Error(t *testing.T) {
	err := &FileUploadError{
		Code:    "TEST_CODE",
		Message: "Test error message",
	}

	assert.Equal(t, "Test error message", err.Error())
}
