package logs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	logsPrefix        = "daily_logs/"
	attachmentsPrefix = "attachments/"
	dateLayout        = "2006-01-02"
)

var (
	errMissingStore             = errors.New("object store is required")
	errMissingLogsBucket        = errors.New("logs bucket is required")
	errMissingAttachmentsBucket = errors.New("attachments bucket is required")
	noOpLogger                  = zap.NewNop()

	allowedExtensions = map[string]struct{}{
		".pdf":  {},
		".docx": {},
	}
)

// ObjectStore is the blob-store surface the log service depends on.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// ServiceConfig describes the dependencies for the log service.
type ServiceConfig struct {
	Store             ObjectStore
	LogsBucket        string
	AttachmentsBucket string
	PresignTTL        time.Duration
	Clock             func() time.Time
	Logger            *zap.Logger
}

// Service implements log ingestion, self retrieval and analytics over
// the object store. It holds no mutable state; every call re-derives
// its view from storage.
type Service struct {
	store             ObjectStore
	logsBucket        string
	attachmentsBucket string
	presignTTL        time.Duration
	clock             func() time.Time
	logger            *zap.Logger
}

// NewService constructs the log service with validated dependencies.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opServiceNew, "missing_store", errMissingStore)
	}
	if strings.TrimSpace(cfg.LogsBucket) == "" {
		return nil, newServiceError(opServiceNew, "missing_logs_bucket", errMissingLogsBucket)
	}
	if strings.TrimSpace(cfg.AttachmentsBucket) == "" {
		return nil, newServiceError(opServiceNew, "missing_attachments_bucket", errMissingAttachmentsBucket)
	}

	presignTTL := cfg.PresignTTL
	if presignTTL <= 0 {
		presignTTL = time.Hour
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		store:             cfg.Store,
		logsBucket:        cfg.LogsBucket,
		attachmentsBucket: cfg.AttachmentsBucket,
		presignTTL:        presignTTL,
		clock:             clock,
		logger:            logger,
	}, nil
}

// Attachment carries the uploaded file for one log submission.
type Attachment struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Size        int64
}

// CreateLog validates and persists one daily log plus its attachment.
// The attachment is uploaded first; a failure there aborts before the
// record write, so the worst crash outcome is an orphaned attachment,
// never a record referencing a missing blob. The record key
// (date, email) overwrites any earlier submission for the same day.
func (s *Service) CreateLog(ctx context.Context, callerEmail string, entry LogEntry, attachment Attachment) (CreateResult, error) {
	if err := validateEntry(entry); err != nil {
		return CreateResult{}, newServiceError(opCreateLog, "invalid_payload", err)
	}

	if !strings.EqualFold(entry.Email, callerEmail) {
		return CreateResult{}, newServiceError(opCreateLog, "email_mismatch",
			fmt.Errorf("%w: payload email %q does not match caller", ErrOwnership, entry.Email))
	}

	filename := strings.ReplaceAll(attachment.Filename, " ", "_")
	extension := strings.ToLower(path.Ext(filename))
	if _, ok := allowedExtensions[extension]; !ok {
		return CreateResult{}, newServiceError(opCreateLog, "bad_extension",
			fmt.Errorf("%w: attachment must be a PDF or DOCX file", ErrValidation))
	}

	today := s.clock().UTC().Format(dateLayout)
	attachmentKey := fmt.Sprintf("%s%s/%s/%s", attachmentsPrefix, today, entry.Email, filename)
	logKey := fmt.Sprintf("%s%s/%s.json", logsPrefix, today, entry.Email)

	if err := s.store.Put(ctx, s.attachmentsBucket, attachmentKey, attachment.Body, attachment.Size, attachment.ContentType); err != nil {
		s.logError(opCreateLog, "attachment_upload_failed", err, zap.String("key", attachmentKey))
		return CreateResult{}, newServiceError(opCreateLog, "attachment_upload_failed",
			fmt.Errorf("%w: %v", ErrStorage, err))
	}

	attachmentURL, err := s.store.PresignGet(ctx, s.attachmentsBucket, attachmentKey, s.presignTTL)
	if err != nil {
		s.logError(opCreateLog, "attachment_presign_failed", err, zap.String("key", attachmentKey))
		return CreateResult{}, newServiceError(opCreateLog, "attachment_presign_failed",
			fmt.Errorf("%w: %v", ErrStorage, err))
	}

	record := LogRecord{
		Email:              entry.Email,
		TopicLearned:       entry.TopicLearned,
		Day:                entry.Day,
		JobsApplied:        entry.JobsApplied,
		SubmissionsDone:    entry.SubmissionsDone,
		WhatYouLearned:     entry.WhatYouLearned,
		RecruiterName:      entry.RecruiterName,
		Date:               today,
		AttachmentKey:      attachmentKey,
		AttachmentFilename: filename,
	}
	body, err := json.Marshal(record)
	if err != nil {
		return CreateResult{}, newServiceError(opCreateLog, "encode_failed", err)
	}

	if err := s.store.Put(ctx, s.logsBucket, logKey, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
		s.logError(opCreateLog, "record_upload_failed", err, zap.String("key", logKey))
		return CreateResult{}, newServiceError(opCreateLog, "record_upload_failed",
			fmt.Errorf("%w: %v", ErrStorage, err))
	}

	s.logger.Info("log stored",
		zap.String("key", logKey),
		zap.String("attachment_key", attachmentKey))

	return CreateResult{
		Path:               logKey,
		AttachmentURL:      attachmentURL,
		AttachmentFilename: filename,
	}, nil
}

// ListOwn returns the caller's log history, newest first. A listing
// failure is fatal; an individual record's fetch or presign failure
// degrades only that record.
func (s *Service) ListOwn(ctx context.Context, email string) ([]OwnedLog, error) {
	keys, err := s.store.List(ctx, s.logsBucket, logsPrefix)
	if err != nil {
		s.logError(opListOwn, "list_failed", err)
		return nil, newServiceError(opListOwn, "list_failed", fmt.Errorf("%w: %v", ErrStorage, err))
	}

	suffix := "/" + email + ".json"
	owned := make([]OwnedLog, 0, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, suffix) {
			continue
		}

		record, ok := s.fetchRecord(ctx, key, opListOwn)
		if !ok {
			continue
		}

		var attachmentURL *string
		if record.AttachmentKey != "" {
			if signed, signErr := s.store.PresignGet(ctx, s.attachmentsBucket, record.AttachmentKey, s.presignTTL); signErr == nil {
				attachmentURL = &signed
			} else {
				s.logger.Warn("attachment presign failed",
					zap.String("operation", opListOwn),
					zap.String("key", record.AttachmentKey),
					zap.Error(signErr))
			}
		}

		owned = append(owned, OwnedLog{LogRecord: record, AttachmentURL: attachmentURL})
	}

	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].Date > owned[j].Date
	})

	return owned, nil
}

// Analytics scans every stored record and reduces it to per-submitter
// aggregates plus today's top performer. Only the listing failure is
// fatal; unreadable records and presign failures degrade silently.
func (s *Service) Analytics(ctx context.Context) (*TopPerformer, []SubmitterAggregate, error) {
	keys, err := s.store.List(ctx, s.logsBucket, logsPrefix)
	if err != nil {
		s.logError(opAnalytics, "list_failed", err)
		return nil, nil, newServiceError(opAnalytics, "list_failed", fmt.Errorf("%w: %v", ErrStorage, err))
	}

	records := make([]LogRecord, 0, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		record, ok := s.fetchRecord(ctx, key, opAnalytics)
		if !ok {
			continue
		}
		records = append(records, record)
	}

	today := s.clock().UTC().Format(dateLayout)
	signer := func(attachmentKey string) (string, error) {
		return s.store.PresignGet(ctx, s.attachmentsBucket, attachmentKey, s.presignTTL)
	}

	topPerformer, aggregates := Aggregate(records, today, signer)
	return topPerformer, aggregates, nil
}

func (s *Service) fetchRecord(ctx context.Context, key, operation string) (LogRecord, bool) {
	body, err := s.store.Get(ctx, s.logsBucket, key)
	if err != nil {
		s.logger.Warn("record fetch failed",
			zap.String("operation", operation),
			zap.String("key", key),
			zap.Error(err))
		return LogRecord{}, false
	}

	var record LogRecord
	if err := json.Unmarshal(body, &record); err != nil {
		s.logger.Warn("record parse failed",
			zap.String("operation", operation),
			zap.String("key", key),
			zap.Error(err))
		return LogRecord{}, false
	}
	return record, true
}

func validateEntry(entry LogEntry) error {
	if strings.TrimSpace(entry.Email) == "" || !strings.Contains(entry.Email, "@") {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if strings.TrimSpace(entry.TopicLearned) == "" {
		return fmt.Errorf("%w: topic_learned is required", ErrValidation)
	}
	if strings.TrimSpace(entry.Day) == "" {
		return fmt.Errorf("%w: day is required", ErrValidation)
	}
	if strings.TrimSpace(entry.WhatYouLearned) == "" {
		return fmt.Errorf("%w: what_you_learned is required", ErrValidation)
	}
	if strings.TrimSpace(entry.RecruiterName) == "" {
		return fmt.Errorf("%w: recruiter_name is required", ErrValidation)
	}
	if entry.JobsApplied < 0 {
		return fmt.Errorf("%w: jobs_applied must not be negative", ErrValidation)
	}
	if entry.SubmissionsDone < 0 {
		return fmt.Errorf("%w: submissions_done must not be negative", ErrValidation)
	}
	return nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("log service error", attrs...)
}
