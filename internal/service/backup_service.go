package service

import (
	"context"

	"github.com/dreamware/terrastore/internal/errs"
)

// BackupService is named by spec §6 as part of the ingress contract, but
// backup import/export is explicitly out of scope (spec §1: "backup
// import/export" is an external collaborator whose interface only is
// specified). The interface is declared so a future implementation has a
// contract to satisfy; UnimplementedBackupService is the only
// implementation this repo carries.
type BackupService interface {
	Export(ctx context.Context, bucket, destination string) error
	Import(ctx context.Context, bucket, source string) error
}

// UnimplementedBackupService reports ProcessingError for every call. It
// exists so internal/service's four interfaces can be wired as a matched
// set without inventing a storage-engine-specific backup format this spec
// never describes.
type UnimplementedBackupService struct{}

func (UnimplementedBackupService) Export(context.Context, string, string) error {
	return errs.NewProcessing("backup export is an external collaborator, not implemented", nil)
}

func (UnimplementedBackupService) Import(context.Context, string, string) error {
	return errs.NewProcessing("backup import is an external collaborator, not implemented", nil)
}
