package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ShiShiBits1/GrowthQuest/internal/apperr"
	"github.com/ShiShiBits1/GrowthQuest/internal/database"
	"github.com/ShiShiBits1/GrowthQuest/internal/model"
	"github.com/ShiShiBits1/GrowthQuest/internal/store"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	getErr  error
	delErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &s3NotFound{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(data)),
	}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if m.delErr != nil {
		return nil, m.delErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3Client) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type s3NotFound struct{}

func (e *s3NotFound) Error() string { return "NoSuchKey" }

var testS3 = S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"}

func setupManager(t *testing.T) (*Manager, *mockS3Client, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewManager(Config{S3: testS3, Passphrase: "correct horse"}, db, store.NewBackupStore(db), nil, nil)
	mock := newMockS3()
	m.client = mock
	return m, mock, db
}

func TestManagerStateLifecycle(t *testing.T) {
	m := NewManager(Config{}, nil, nil, nil, nil)
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m.Status().State, StateDisabled)
	}

	// S3 credentials without a passphrase are not enough.
	m2 := NewManager(Config{S3: testS3}, nil, nil, nil, nil)
	if m2.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m2.Status().State, StateDisabled)
	}

	m3 := NewManager(Config{S3: testS3, Passphrase: "pw"}, nil, nil, nil, nil)
	if m3.Status().State != StateIdle {
		t.Errorf("state = %q, want %q", m3.Status().State, StateIdle)
	}
	if !m3.Enabled() {
		t.Error("expected manager to be enabled")
	}
}

func TestManagerDefaults(t *testing.T) {
	m := NewManager(Config{}, nil, nil, nil, nil)
	if m.cfg.Interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", m.cfg.Interval, DefaultInterval)
	}
	if m.cfg.RetentionDays != DefaultRetentionDays {
		t.Errorf("retention = %d, want %d", m.cfg.RetentionDays, DefaultRetentionDays)
	}
}

func TestManagerStatusCallback(t *testing.T) {
	var received []Status
	var mu sync.Mutex
	cb := func(s Status) {
		mu.Lock()
		received = append(received, s)
		mu.Unlock()
	}

	m := NewManager(Config{S3: testS3, Passphrase: "pw"}, nil, nil, nil, cb)

	m.setStatus(Status{State: StateRunning, InProgress: true})
	m.setStatus(Status{State: StateIdle})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("received %d callbacks, want 2", len(received))
	}
	if received[0].State != StateRunning {
		t.Errorf("first callback state = %q, want %q", received[0].State, StateRunning)
	}
	if received[1].State != StateIdle {
		t.Errorf("second callback state = %q, want %q", received[1].State, StateIdle)
	}
}

func TestManagerStopSafety(t *testing.T) {
	m := NewManager(Config{S3: testS3, Passphrase: "pw"}, nil, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	m.Stop()

	// Double stop should not panic
	m.Stop()
}

func TestManagerDisabledNoStart(t *testing.T) {
	m := NewManager(Config{}, nil, nil, nil, nil)

	m.Start(context.Background())
	m.Stop()
}

func TestRunNowDisabled(t *testing.T) {
	m := NewManager(Config{}, nil, nil, nil, nil)
	_, err := m.RunNow(context.Background())
	if !errors.Is(err, apperr.Validation) {
		t.Fatalf("err = %v, want Validation", err)
	}
}

func TestRunNowAndRestore(t *testing.T) {
	m, mock, db := setupManager(t)
	ctx := context.Background()

	if _, err := store.NewParentStore(db).Create("mom", "hash"); err != nil {
		t.Fatalf("create parent: %v", err)
	}

	b, err := m.RunNow(ctx)
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}
	if b.Status != model.BackupStatusCompleted {
		t.Errorf("status = %q, want completed", b.Status)
	}
	if !strings.HasPrefix(b.ObjectKey, keyPrefix) || !strings.HasSuffix(b.ObjectKey, ".db.enc") {
		t.Errorf("object key = %q", b.ObjectKey)
	}
	if b.SizeBytes == 0 {
		t.Error("expected non-zero size")
	}
	if mock.count() != 1 {
		t.Fatalf("objects = %d, want 1", mock.count())
	}
	if m.Status().LastBackup == nil {
		t.Error("expected LastBackup to be set")
	}

	dst := filepath.Join(t.TempDir(), "restored.db")
	if err := m.Restore(ctx, b.ID, dst); err != nil {
		t.Fatalf("restore: %v", err)
	}

	restored, err := sql.Open("sqlite", dst)
	if err != nil {
		t.Fatalf("open restored: %v", err)
	}
	defer restored.Close()

	var username string
	if err := restored.QueryRow(`SELECT username FROM parents`).Scan(&username); err != nil {
		t.Fatalf("query restored: %v", err)
	}
	if username != "mom" {
		t.Errorf("username = %q, want mom", username)
	}

	// A second restore into the same path is refused.
	if err := m.Restore(ctx, b.ID, dst); !errors.Is(err, apperr.Validation) {
		t.Errorf("err = %v, want Validation", err)
	}
}

func TestRestoreWrongPassphrase(t *testing.T) {
	m, _, _ := setupManager(t)
	ctx := context.Background()

	b, err := m.RunNow(ctx)
	if err != nil {
		t.Fatalf("run backup: %v", err)
	}

	m.cfg.Passphrase = "wrong"
	if err := m.Restore(ctx, b.ID, filepath.Join(t.TempDir(), "x.db")); err == nil {
		t.Fatal("expected error with wrong passphrase")
	}
}

func TestRunNowUploadFailure(t *testing.T) {
	m, mock, _ := setupManager(t)
	mock.putErr = errors.New("bucket gone")

	if _, err := m.RunNow(context.Background()); err == nil {
		t.Fatal("expected upload error")
	}
	if m.Status().State != StateError {
		t.Errorf("state = %q, want %q", m.Status().State, StateError)
	}

	backups, err := m.List(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(backups) != 1 || backups[0].Status != model.BackupStatusFailed {
		t.Fatalf("backups = %+v, want one failed row", backups)
	}
	if !strings.Contains(backups[0].ErrorMessage, "bucket gone") {
		t.Errorf("error message = %q", backups[0].ErrorMessage)
	}

	// Failed backups cannot be downloaded.
	if _, _, err := m.Download(context.Background(), backups[0].ID); !errors.Is(err, apperr.Validation) {
		t.Errorf("err = %v, want Validation", err)
	}
}

func TestDownloadNotFound(t *testing.T) {
	m, _, _ := setupManager(t)
	if _, _, err := m.Download(context.Background(), 99); !errors.Is(err, apperr.NotFound) {
		t.Errorf("err = %v, want NotFound", err)
	}
}

func TestCleanup(t *testing.T) {
	m, mock, db := setupManager(t)
	ctx := context.Background()

	old, err := m.RunNow(ctx)
	if err != nil {
		t.Fatalf("run old backup: %v", err)
	}
	if _, err := m.RunNow(ctx); err != nil {
		t.Fatalf("run new backup: %v", err)
	}

	stale := time.Now().UTC().AddDate(0, 0, -(DefaultRetentionDays + 5))
	if _, err := db.Exec(`UPDATE backups SET started_at = ? WHERE id = ?`, stale, old.ID); err != nil {
		t.Fatalf("age backup: %v", err)
	}

	removed, err := m.Cleanup(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if mock.count() != 1 {
		t.Errorf("objects = %d, want 1", mock.count())
	}

	backups, _ := m.List(10)
	if len(backups) != 1 {
		t.Errorf("backups = %d, want 1", len(backups))
	}
}
