package service

import (
	"context"
	"testing"

	"github.com/dreamware/terrastore/internal/errs"
)

func TestUnimplementedBackupServiceReportsProcessingError(t *testing.T) {
	var svc BackupService = UnimplementedBackupService{}

	if err := svc.Export(context.Background(), "orders", "s3://bucket"); err == nil {
		t.Fatal("expected error from Export")
	} else if kind, ok := errs.KindOf(err); !ok || kind != errs.KindProcessing {
		t.Fatalf("expected ProcessingError, got %v", err)
	}

	if err := svc.Import(context.Background(), "orders", "s3://bucket"); err == nil {
		t.Fatal("expected error from Import")
	} else if kind, ok := errs.KindOf(err); !ok || kind != errs.KindProcessing {
		t.Fatalf("expected ProcessingError, got %v", err)
	}
}
