package magicapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Backup endpoints, relative to the session base URL.
const (
	backupsPath        = "/backups"
	backupPath         = "/backup"
	backupRollbackPath = "/backup/rollback"
	backupFullPath     = "/backup/full"
)

// BackupRecord is one backup entry as the backend reports it.
type BackupRecord struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Name       string `json:"name"`
	Tag        string `json:"tag"`
	CreateBy   string `json:"createBy"`
	CreateDate int64  `json:"createDate"`
}

// BackupClient reads and restores backend backup records. It is a plain
// collaborator over the session — all auth recovery happens below it.
type BackupClient struct {
	session *Session
	logger  *slog.Logger
}

// NewBackupClient creates the backup collaborator.
func NewBackupClient(session *Session, logger *slog.Logger) *BackupClient {
	if logger == nil {
		logger = slog.Default()
	}

	return &BackupClient{session: session, logger: logger}
}

// List returns backup records, newest first as delivered. A non-zero
// timestamp asks for records created before it (cursor paging).
func (b *BackupClient) List(ctx context.Context, timestamp int64) ([]BackupRecord, error) {
	query := url.Values{}
	if timestamp > 0 {
		query.Set("timestamp", strconv.FormatInt(timestamp, 10))
	}

	data, err := b.session.Call(ctx, Request{Method: http.MethodGet, Path: backupsPath, Query: query})
	if err != nil {
		return nil, err
	}

	return decodeBackupRecords(data)
}

// History returns the version history of one backed-up object.
func (b *BackupClient) History(ctx context.Context, id string) ([]BackupRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("magicapi: backup id is required")
	}

	data, err := b.session.Call(ctx, Request{Method: http.MethodGet, Path: backupPath + "/" + url.PathEscape(id)})
	if err != nil {
		return nil, err
	}

	return decodeBackupRecords(data)
}

// Content fetches the stored script content of one backup version.
func (b *BackupClient) Content(ctx context.Context, id string, timestamp int64) (string, error) {
	query := url.Values{}
	query.Set("id", id)
	query.Set("timestamp", strconv.FormatInt(timestamp, 10))

	data, err := b.session.Call(ctx, Request{Method: http.MethodGet, Path: backupPath, Query: query})
	if err != nil {
		return "", err
	}

	return gjson.ParseBytes(data).String(), nil
}

// Rollback restores an object to the given backup version.
func (b *BackupClient) Rollback(ctx context.Context, id string, timestamp int64) error {
	b.logger.Info("rolling back backup",
		slog.String("id", id),
		slog.Int64("timestamp", timestamp),
	)

	body := map[string]any{"id": id, "timestamp": timestamp}

	data, err := b.session.Call(ctx, Request{Method: http.MethodPost, Path: backupRollbackPath, JSON: body})
	if err != nil {
		return err
	}

	if !gjson.ParseBytes(data).Bool() {
		return &APIError{Code: envelopeOK, Message: "rollback reported failure"}
	}

	return nil
}

// FullBackup triggers a manual full backup on the backend.
func (b *BackupClient) FullBackup(ctx context.Context) error {
	b.logger.Info("requesting full backup")

	data, err := b.session.Call(ctx, Request{Method: http.MethodPost, Path: backupFullPath})
	if err != nil {
		return err
	}

	if !gjson.ParseBytes(data).Bool() {
		return &APIError{Code: envelopeOK, Message: "full backup reported failure"}
	}

	return nil
}

func decodeBackupRecords(data json.RawMessage) ([]BackupRecord, error) {
	var records []BackupRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: decoding backup records: %v", ErrMalformedResponse, err)
	}

	return records, nil
}

// FilterBackups keeps records matching the fuzzy filter (any of id, type,
// name, createBy, tag) and the name filter, both case-insensitive
// substrings. Empty filters keep everything.
func FilterBackups(records []BackupRecord, fuzzy, name string) []BackupRecord {
	if fuzzy == "" && name == "" {
		return records
	}

	fuzzy = strings.ToLower(fuzzy)
	name = strings.ToLower(name)

	kept := make([]BackupRecord, 0, len(records))

	for _, r := range records {
		if fuzzy != "" && !backupMatchesFuzzy(&r, fuzzy) {
			continue
		}

		if name != "" && !strings.Contains(strings.ToLower(r.Name), name) {
			continue
		}

		kept = append(kept, r)
	}

	return kept
}

func backupMatchesFuzzy(r *BackupRecord, needle string) bool {
	for _, field := range []string{r.ID, r.Type, r.Name, r.CreateBy, r.Tag} {
		if field != "" && strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}

	return false
}
