package services

import (
	"fmt"
	"path/filepath"
	"strings"

	"ragwizard/models"
)

// Upload limits enforced locally before any upload is attempted
const (
	MaxFilesPerChatbot       = 10
	MaxFileSize        int64 = 50 * 1024 * 1024
)

// AllowedExtensions lists the document types the backend ingests
var AllowedExtensions = []string{".pdf", ".txt", ".docx"}

// CheckFile validates a single file's type and size, ignoring the count limit
func CheckFile(file models.SelectedFile) *UploadConstraintError {
	if !isAllowedExtension(file.Name) {
		return &UploadConstraintError{File: file.Name, Reason: ReasonInvalidType}
	}
	if file.Size > MaxFileSize {
		return &UploadConstraintError{File: file.Name, Reason: ReasonTooLarge}
	}
	return nil
}

// FilterFiles splits incoming into the files that may join existing and one
// error per refused file. Accepted files keep their order; duplicates by name
// are allowed.
func FilterFiles(existing, incoming []models.SelectedFile) ([]models.SelectedFile, ConstraintErrors) {
	var accepted []models.SelectedFile
	var rejected ConstraintErrors

	for _, file := range incoming {
		if err := CheckFile(file); err != nil {
			rejected = append(rejected, err)
			continue
		}
		if len(existing)+len(accepted) >= MaxFilesPerChatbot {
			rejected = append(rejected, &UploadConstraintError{File: file.Name, Reason: ReasonTooMany})
			continue
		}
		accepted = append(accepted, file)
	}

	return accepted, rejected
}

func isAllowedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// FormatFileSize renders a byte count as B, KB or MB with one decimal
func FormatFileSize(bytes int64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	}
}
