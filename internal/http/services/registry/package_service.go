package registry

import (
	"context"
	"errors"

	dto "github.com/dropDatabas3/potatoreg/internal/http/dto/registry"
	"github.com/dropDatabas3/potatoreg/internal/observability/logger"
	"github.com/dropDatabas3/potatoreg/internal/storage"
	"github.com/dropDatabas3/potatoreg/internal/store/core"
)

// PackageService is the management API view over packages: listing with
// stats, deletion and yanking.
type PackageService interface {
	List(ctx context.Context, caller *core.User) ([]dto.PackageSummary, error)
	Get(ctx context.Context, caller *core.User, name string) (*dto.PackageDetail, error)
	Delete(ctx context.Context, name string) error
	Yank(ctx context.Context, name, version, reason string) error
}

// PackageDeps contains dependencies for the package service.
type PackageDeps struct {
	Users    core.UserRepository
	Packages core.PackageRepository
	Storage  *storage.Disk
}

type packageService struct {
	deps PackageDeps
}

func NewPackageService(deps PackageDeps) PackageService {
	return &packageService{deps: deps}
}

// Package errors (sentinel)
var (
	ErrVersionNotFound = errors.New("version not found")
)

func (s *packageService) List(ctx context.Context, caller *core.User) ([]dto.PackageSummary, error) {
	pkgs, err := s.deps.Packages.List(ctx)
	if err != nil {
		return nil, err
	}
	labels, err := CallerLabels(ctx, s.deps.Users, caller)
	if err != nil {
		return nil, err
	}

	out := make([]dto.PackageSummary, 0, len(pkgs))
	for i := range pkgs {
		if !Visible(&pkgs[i], caller, labels) {
			continue
		}
		out = append(out, dto.PackageSummary{
			Name:      pkgs[i].Name,
			Labels:    pkgs[i].Labels,
			UpdatedAt: pkgs[i].UpdatedAt,
		})
	}
	return out, nil
}

func (s *packageService) Get(ctx context.Context, caller *core.User, name string) (*dto.PackageDetail, error) {
	pkg, err := s.deps.Packages.GetByName(ctx, Normalize(name))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}
	labels, err := CallerLabels(ctx, s.deps.Users, caller)
	if err != nil {
		return nil, err
	}
	if !Visible(pkg, caller, labels) {
		return nil, ErrPackageNotFound
	}

	versions, err := s.deps.Packages.ListVersions(ctx, pkg.ID)
	if err != nil {
		return nil, err
	}
	counts, err := s.deps.Packages.DownloadCounts(ctx, pkg.ID)
	if err != nil {
		return nil, err
	}

	detail := &dto.PackageDetail{
		Name:     pkg.Name,
		Labels:   pkg.Labels,
		Versions: make([]dto.VersionResponse, 0, len(versions)),
	}
	for _, v := range versions {
		vr := dto.VersionResponse{
			Version:      v.Version,
			Yanked:       v.Yanked,
			YankedReason: v.YankedReason,
			CreatedAt:    v.CreatedAt,
			Downloads:    counts[v.ID],
			Files:        []dto.FileResponse{},
		}
		if v.UploaderID != nil {
			if up, err := s.deps.Users.GetByID(ctx, *v.UploaderID); err == nil {
				vr.Uploader = up.Username
			}
		}
		files, err := s.deps.Packages.ListFilesByVersion(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			vr.Files = append(vr.Files, dto.FileResponse{
				Filename:  f.Filename,
				CreatedAt: f.CreatedAt,
			})
		}
		detail.Versions = append(detail.Versions, vr)
	}
	return detail, nil
}

// Delete removes the package rows and then the artifacts on disk. A disk
// failure is logged but not surfaced: the DB is the source of truth and the
// leftover files are unreachable.
func (s *packageService) Delete(ctx context.Context, name string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("registry.packages"),
		logger.Op("Delete"),
	)

	name = Normalize(name)
	if err := s.deps.Packages.Delete(ctx, name); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrPackageNotFound
		}
		return err
	}
	if err := s.deps.Storage.RemovePackage(name); err != nil {
		log.Warn("disk cleanup failed", logger.PackageName(name), logger.Err(err))
	}
	log.Info("package deleted", logger.PackageName(name))
	return nil
}

func (s *packageService) Yank(ctx context.Context, name, version, reason string) error {
	pkg, err := s.deps.Packages.GetByName(ctx, Normalize(name))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrPackageNotFound
		}
		return err
	}
	if err := s.deps.Packages.YankVersion(ctx, pkg.ID, version, reason); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrVersionNotFound
		}
		return err
	}
	logger.From(ctx).Info("version yanked",
		logger.Layer("service"),
		logger.PackageName(pkg.Name),
		logger.Version(version),
	)
	return nil
}
