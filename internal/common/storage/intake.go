// Package storage implements file intake for uploaded application documents.
//
// Files are validated, written to a private staging directory and only moved
// into the public upload tree once the owning record has been committed.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"rts-portal/internal/common/config"
	"rts-portal/internal/common/logger"
	"rts-portal/internal/common/metrics"

	"github.com/google/uuid"
)

var (
	ErrFileEmpty           = errors.New("FILE_EMPTY")
	ErrFileTooLarge        = errors.New("FILE_TOO_LARGE")
	ErrExtensionNotAllowed = errors.New("EXTENSION_NOT_ALLOWED")
	ErrFileWriteFailed     = errors.New("FILE_WRITE_FAILED")
	ErrInvalidPath         = errors.New("INVALID_PATH")
)

const maxStemLength = 50

// Policy is the per-form upload constraint set.
type Policy struct {
	MaxBytes   int64    `json:"maxBytes"`
	Extensions []string `json:"extensions"`
}

// Allows reports whether ext (with leading dot, any case) is in the allow-list.
func (p Policy) Allows(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range p.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// File is an uploaded blob as received from the transport layer.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// StagedFile is a validated upload sitting in the staging area.
type StagedFile struct {
	Subfolder    string
	FileName     string
	PublicPath   string
	OriginalName string
	ContentType  string
	Size         int64
	Checksum     string

	stagingPath string
}

type FileStore struct {
	uploadRoot   string
	stagingDir   string
	publicPrefix string
	logger       logger.Logger
	now          func() time.Time
}

func NewFileStore(cfg config.StorageConfig, log logger.Logger) (*FileStore, error) {
	for _, dir := range []string{cfg.UploadRoot, cfg.StagingDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory %s: %w", dir, err)
		}
	}

	prefix := cfg.PublicPrefix
	if prefix == "" {
		prefix = "/uploads"
	}

	return &FileStore{
		uploadRoot:   cfg.UploadRoot,
		stagingDir:   cfg.StagingDir,
		publicPrefix: "/" + strings.Trim(prefix, "/"),
		logger:       log.WithFields(map[string]interface{}{"component": "file-intake"}),
		now:          time.Now,
	}, nil
}

// Root returns the on-disk directory holding promoted uploads.
func (s *FileStore) Root() string {
	return s.uploadRoot
}

// Validate checks size and extension without touching the filesystem.
func Validate(f *File, policy Policy) error {
	if f == nil || f.Size <= 0 {
		return ErrFileEmpty
	}
	if policy.MaxBytes > 0 && f.Size > policy.MaxBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, f.Size, policy.MaxBytes)
	}
	ext := filepath.Ext(f.Name)
	if !policy.Allows(ext) {
		return fmt.Errorf("%w: %q (allowed: %s)", ErrExtensionNotAllowed, ext, strings.Join(policy.Extensions, ", "))
	}
	return nil
}

// Stage validates f and writes it to the staging area. The returned PublicPath is
// where the file will be reachable once promoted.
func (s *FileStore) Stage(ctx context.Context, f *File, subfolder string, policy Policy) (*StagedFile, error) {
	if err := Validate(f, policy); err != nil {
		metrics.FileUploads.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cleanSub, err := cleanSubfolder(subfolder)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(f.Name))
	name := storedName(f.Name, ext)
	stagingPath := filepath.Join(s.stagingDir, uuid.New().String()+ext)

	out, err := os.OpenFile(stagingPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		metrics.FileUploads.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: create staging file: %v", ErrFileWriteFailed, err)
	}

	hasher := sha256.New()
	limit := f.Size + 1
	if policy.MaxBytes > 0 {
		limit = policy.MaxBytes + 1
	}
	written, copyErr := io.Copy(io.MultiWriter(out, hasher), io.LimitReader(f.Content, limit))
	closeErr := out.Close()

	switch {
	case copyErr != nil || closeErr != nil:
		_ = os.Remove(stagingPath)
		metrics.FileUploads.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: write %s: %v", ErrFileWriteFailed, f.Name, errors.Join(copyErr, closeErr))
	case written == 0:
		_ = os.Remove(stagingPath)
		metrics.FileUploads.WithLabelValues("rejected").Inc()
		return nil, ErrFileEmpty
	case policy.MaxBytes > 0 && written > policy.MaxBytes:
		_ = os.Remove(stagingPath)
		metrics.FileUploads.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: content exceeds limit of %d", ErrFileTooLarge, policy.MaxBytes)
	}

	metrics.FileUploads.WithLabelValues("staged").Inc()
	metrics.FileUploadBytes.Observe(float64(written))

	return &StagedFile{
		Subfolder:    cleanSub,
		FileName:     name,
		PublicPath:   path.Join(s.publicPrefix, cleanSub, name),
		OriginalName: filepath.Base(f.Name),
		ContentType:  f.ContentType,
		Size:         written,
		Checksum:     hex.EncodeToString(hasher.Sum(nil)),
		stagingPath:  stagingPath,
	}, nil
}

// Promote moves a staged file into the public upload tree.
func (s *FileStore) Promote(staged *StagedFile) error {
	destDir := filepath.Join(s.uploadRoot, filepath.FromSlash(staged.Subfolder))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrFileWriteFailed, destDir, err)
	}

	dest := filepath.Join(destDir, staged.FileName)
	if err := moveFile(staged.stagingPath, dest); err != nil {
		return fmt.Errorf("%w: promote %s: %v", ErrFileWriteFailed, staged.FileName, err)
	}

	metrics.FileUploads.WithLabelValues("promoted").Inc()
	return nil
}

// PromoteAll promotes every staged file, continuing past failures.
func (s *FileStore) PromoteAll(staged []*StagedFile) error {
	var errs []error
	for _, f := range staged {
		if err := s.Promote(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard removes staged files that will never be promoted.
func (s *FileStore) Discard(staged ...*StagedFile) {
	for _, f := range staged {
		if f == nil {
			continue
		}
		if err := os.Remove(f.stagingPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to discard staged file", map[string]interface{}{
				"file":  f.stagingPath,
				"error": err,
			})
			continue
		}
		metrics.FileUploads.WithLabelValues("discarded").Inc()
	}
}

// Save stages and immediately promotes f, returning its public path.
func (s *FileStore) Save(ctx context.Context, f *File, subfolder string, policy Policy) (string, error) {
	staged, err := s.Stage(ctx, f, subfolder, policy)
	if err != nil {
		return "", err
	}
	if err := s.Promote(staged); err != nil {
		s.Discard(staged)
		return "", err
	}
	return staged.PublicPath, nil
}

// SweepStaging removes staged files older than olderThan and returns how many were removed.
func (s *FileStore) SweepStaging(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.stagingDir)
	if err != nil {
		return 0, fmt.Errorf("read staging dir: %w", err)
	}

	cutoff := s.now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.stagingDir, entry.Name())); err == nil {
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info("swept orphan staged files", map[string]interface{}{"removed": removed})
	}
	return removed, nil
}

func cleanSubfolder(subfolder string) (string, error) {
	cleaned := path.Clean("/" + filepath.ToSlash(subfolder))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("%w: empty subfolder", ErrInvalidPath)
	}
	return cleaned, nil
}

// storedName builds "<stem>_<32 hex chars><ext>" from the client file name.
func storedName(original, ext string) string {
	stem := strings.TrimSuffix(filepath.Base(filepath.ToSlash(original)), filepath.Ext(original))
	stem = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, stem)

	if runes := []rune(stem); len(runes) > maxStemLength {
		stem = string(runes[:maxStemLength])
	}

	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	if stem == "" {
		return id + ext
	}
	return stem + "_" + id + ext
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	// rename fails across devices; fall back to copy and remove
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
