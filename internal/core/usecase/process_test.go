package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

func TestProcessIndexesStoredFile(t *testing.T) {
	store := newDocStoreFake()
	storage := newStorageFake()
	storage.files["k1_policy.txt"] = "Earned leave: 15 days"
	uc := NewProcessIngestUseCase(newIndexUseCase(t, store, &embedderFake{}, nil), extractorFake{}, storage)

	err := uc.Process(context.Background(), domain.IngestJob{
		StorageKey:  "k1_policy.txt",
		Filename:    "policy.txt",
		Name:        "policy",
		CountryCode: "IN",
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	page, _ := store.ListDocuments(context.Background(), domain.DocumentFilter{})
	if page.Total != 1 {
		t.Fatalf("expected 1 document, got %d", page.Total)
	}
	if got := page.Documents[0]; got.StorageKey != "k1_policy.txt" || got.FileType != ".txt" {
		t.Fatalf("unexpected document %+v", got)
	}
}

func TestProcessAcknowledgesDuplicate(t *testing.T) {
	store := newDocStoreFake()
	storage := newStorageFake()
	storage.files["k1"] = "same"
	storage.files["k2"] = "same"
	uc := NewProcessIngestUseCase(newIndexUseCase(t, store, &embedderFake{}, nil), extractorFake{}, storage)

	if err := uc.Process(context.Background(), domain.IngestJob{StorageKey: "k1", Filename: "a.txt", Name: "a"}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	err := uc.Process(context.Background(), domain.IngestJob{StorageKey: "k2", Filename: "b.txt", Name: "b"})
	var dup *domain.DuplicateContentError
	if !errors.As(err, &dup) || dup.ExistingID == "" {
		t.Fatalf("expected duplicate content error naming the existing document, got %v", err)
	}
	if _, ok := storage.files["k2"]; ok {
		t.Fatalf("duplicate source file should be removed")
	}
}

func TestProcessMissingFile(t *testing.T) {
	uc := NewProcessIngestUseCase(newIndexUseCase(t, newDocStoreFake(), &embedderFake{}, nil), extractorFake{}, newStorageFake())
	err := uc.Process(context.Background(), domain.IngestJob{StorageKey: "missing", Filename: "a.txt", Name: "a"})
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProcessExtractionFailure(t *testing.T) {
	storage := newStorageFake()
	storage.files["k"] = "x"
	uc := NewProcessIngestUseCase(newIndexUseCase(t, newDocStoreFake(), &embedderFake{}, nil), extractorFake{}, storage)
	err := uc.Process(context.Background(), domain.IngestJob{StorageKey: "k", Filename: "broken.pdf", Name: "a"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, ok := storage.files["k"]; ok {
		t.Fatalf("unreadable source file should be removed")
	}
}

func TestProcessStoreFailurePropagates(t *testing.T) {
	store := newDocStoreFake()
	store.indexErr = errBoom
	storage := newStorageFake()
	storage.files["k"] = "x"
	uc := NewProcessIngestUseCase(newIndexUseCase(t, store, &embedderFake{}, nil), extractorFake{}, storage)
	if err := uc.Process(context.Background(), domain.IngestJob{StorageKey: "k", Filename: "a.txt", Name: "a"}); !errors.Is(err, errBoom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if _, ok := storage.files["k"]; ok {
		t.Fatalf("source file of a failed job should be removed")
	}
}
