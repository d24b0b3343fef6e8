package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/atlashist/archive-assistant/internal/core/domain"
)

type fakeRepo struct {
	created       []*domain.Document
	createErr     error
	docs          map[string]*domain.Document
	getErr        error
	statusUpdates []statusUpdate
	statusErrs    map[domain.DocumentStatus]error
	passageCounts map[string]int
}

type statusUpdate struct {
	id      string
	status  domain.DocumentStatus
	message string
}

func (f *fakeRepo) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, doc)
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	return doc, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, message string) error {
	if err := f.statusErrs[status]; err != nil {
		return err
	}
	f.statusUpdates = append(f.statusUpdates, statusUpdate{id: id, status: status, message: message})
	return nil
}

func (f *fakeRepo) SetPassageCount(_ context.Context, id string, passages int) error {
	if f.passageCounts == nil {
		f.passageCounts = map[string]int{}
	}
	f.passageCounts[id] = passages
	return nil
}

type fakeStorage struct {
	saved   map[string]string
	saveErr error
}

func (f *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[key] = string(raw)
	return nil
}

func (f *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.saved[key]
	if !ok {
		return nil, errors.New("not found: " + key)
	}
	return io.NopCloser(strings.NewReader(raw)), nil
}

type fakeQueue struct {
	published  []string
	publishErr error
}

func (f *fakeQueue) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *fakeQueue) SubscribeDocumentIngested(_ context.Context, _ func(context.Context, string) error) error {
	return nil
}

func TestIngest_UploadHappyPath(t *testing.T) {
	repo := &fakeRepo{}
	storage := &fakeStorage{}
	queue := &fakeQueue{}
	uc := NewIngestDocumentUseCase(repo, storage, queue, staticRegistry{ids: []string{"hansard_nsw"}})

	meta := map[string]string{"date": "1901-05-09", "source_url": "https://example.org/x"}
	doc, err := uc.Upload(context.Background(), "debate transcript.txt", "text/plain", "hansard_nsw", meta, strings.NewReader("body"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if doc.ID == "" {
		t.Fatal("expected generated document id")
	}
	if doc.Status != domain.StatusUploaded {
		t.Fatalf("status = %q, want %q", doc.Status, domain.StatusUploaded)
	}
	if doc.Corpus != "hansard_nsw" {
		t.Fatalf("corpus = %q", doc.Corpus)
	}
	if doc.Metadata["date"] != "1901-05-09" {
		t.Fatalf("metadata not carried: %v", doc.Metadata)
	}

	if len(repo.created) != 1 {
		t.Fatalf("repo.Create calls = %d", len(repo.created))
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("published = %v, want [%s]", queue.published, doc.ID)
	}

	if _, ok := storage.saved[doc.StoragePath]; !ok {
		t.Fatalf("object not saved under %q", doc.StoragePath)
	}
	if strings.Contains(doc.StoragePath, " ") {
		t.Fatalf("storage key must be sanitized, got %q", doc.StoragePath)
	}
}

func TestIngest_UploadRejectsEmptyCorpus(t *testing.T) {
	uc := NewIngestDocumentUseCase(&fakeRepo{}, &fakeStorage{}, &fakeQueue{}, staticRegistry{ids: []string{"a"}})

	_, err := uc.Upload(context.Background(), "x.txt", "text/plain", "   ", nil, strings.NewReader("body"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestIngest_UploadRejectsUnknownCorpus(t *testing.T) {
	uc := NewIngestDocumentUseCase(&fakeRepo{}, &fakeStorage{}, &fakeQueue{}, staticRegistry{ids: []string{"a"}})

	_, err := uc.Upload(context.Background(), "x.txt", "text/plain", "atlantis", nil, strings.NewReader("body"))
	if !domain.IsKind(err, domain.ErrInvalidCorpus) {
		t.Fatalf("expected ErrInvalidCorpus, got %v", err)
	}
}

func TestIngest_UploadStorageFailureStopsPipeline(t *testing.T) {
	repo := &fakeRepo{}
	queue := &fakeQueue{}
	uc := NewIngestDocumentUseCase(repo, &fakeStorage{saveErr: errors.New("disk full")}, queue, staticRegistry{ids: []string{"a"}})

	if _, err := uc.Upload(context.Background(), "x.txt", "text/plain", "a", nil, strings.NewReader("body")); err == nil {
		t.Fatal("expected storage error")
	}
	if len(repo.created) != 0 || len(queue.published) != 0 {
		t.Fatal("nothing must be persisted or published after storage failure")
	}
}

func TestSanitizeFilename(t *testing.T) {
	for input, want := range map[string]string{
		"debate transcript.txt":  "debate_transcript.txt",
		"../../etc/passwd":       "passwd",
		"Hansard (1901) #3.pdf":  "Hansard__1901___3.pdf",
		"":                       "document.bin",
		"ña_ü.txt":               "_a__.txt",
	} {
		if got := sanitizeFilename(input); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", input, got, want)
		}
	}
}
