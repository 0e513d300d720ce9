package registry

import (
	"context"
	"errors"
	"io"

	dto "github.com/dropDatabas3/potatoreg/internal/http/dto/registry"
	"github.com/dropDatabas3/potatoreg/internal/observability/logger"
	"github.com/dropDatabas3/potatoreg/internal/storage"
	"github.com/dropDatabas3/potatoreg/internal/store/core"
)

// UploadService ingests one artifact: package and version rows are created
// idempotently, the filename must be globally new, and the bytes land on
// disk atomically.
type UploadService interface {
	Upload(ctx context.Context, caller *core.User, name, version, filename string, content io.Reader) (*dto.UploadResult, error)
}

// UploadDeps contains dependencies for the upload service.
type UploadDeps struct {
	Packages core.PackageRepository
	Storage  *storage.Disk
}

type uploadService struct {
	deps UploadDeps
}

func NewUploadService(deps UploadDeps) UploadService {
	return &uploadService{deps: deps}
}

// Upload errors (sentinel)
var (
	ErrUploadMissingFields = errors.New("name, version and content are required")
	ErrDuplicateFile       = errors.New("filename already exists")
)

func (s *uploadService) Upload(ctx context.Context, caller *core.User, name, version, filename string, content io.Reader) (*dto.UploadResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("registry.upload"),
		logger.Op("Upload"),
	)

	name = Normalize(name)
	if name == "" || version == "" || filename == "" || content == nil {
		return nil, ErrUploadMissingFields
	}

	pkg, created, err := s.deps.Packages.GetOrCreate(ctx, name)
	if err != nil {
		return nil, err
	}
	if created {
		log.Info("package created", logger.PackageName(name))
	}

	var uploaderID *string
	if caller != nil {
		uploaderID = &caller.ID
	}
	ver, _, err := s.deps.Packages.GetOrCreateVersion(ctx, pkg.ID, version, uploaderID)
	if err != nil {
		return nil, err
	}

	if exists, err := s.deps.Packages.FileExists(ctx, ver.ID, filename); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrDuplicateFile
	}

	size, err := s.deps.Storage.Save(pkg.Name, filename, content)
	if err != nil {
		if errors.Is(err, storage.ErrExists) {
			return nil, ErrDuplicateFile
		}
		return nil, err
	}

	if _, err := s.deps.Packages.AddFile(ctx, ver.ID, filename); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return nil, ErrDuplicateFile
		}
		return nil, err
	}

	log.Info("artifact stored",
		logger.PackageName(name),
		logger.Version(version),
		logger.Filename(filename),
	)
	return &dto.UploadResult{
		Package:  name,
		Version:  version,
		Filename: filename,
		Size:     size,
	}, nil
}
