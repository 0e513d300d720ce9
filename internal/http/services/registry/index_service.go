package registry

import (
	"context"
	"errors"
	"io"

	"github.com/dropDatabas3/potatoreg/internal/observability/logger"
	"github.com/dropDatabas3/potatoreg/internal/storage"
	"github.com/dropDatabas3/potatoreg/internal/store/core"
)

// IndexService serves the PEP-503 simple index: package listing, per-package
// file listing, and artifact downloads. Every view is filtered by the
// caller's label set; an invisible package is indistinguishable from a
// missing one (404).
type IndexService interface {
	ListVisible(ctx context.Context, caller *core.User) ([]string, error)
	PackageFiles(ctx context.Context, caller *core.User, name string) ([]string, error)
	Download(ctx context.Context, caller *core.User, name, filename string, userAgent, ip string) (io.ReadSeekCloser, int64, error)
}

// IndexDeps contains dependencies for the index service.
type IndexDeps struct {
	Users    core.UserRepository
	Packages core.PackageRepository
	Storage  *storage.Disk
}

type indexService struct {
	deps IndexDeps
}

func NewIndexService(deps IndexDeps) IndexService {
	return &indexService{deps: deps}
}

// Index errors (sentinel)
var (
	ErrPackageNotFound = errors.New("package not found")
	ErrFileNotFound    = errors.New("file not found")
)

func (s *indexService) ListVisible(ctx context.Context, caller *core.User) ([]string, error) {
	pkgs, err := s.deps.Packages.List(ctx)
	if err != nil {
		return nil, err
	}
	labels, err := CallerLabels(ctx, s.deps.Users, caller)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(pkgs))
	for i := range pkgs {
		if Visible(&pkgs[i], caller, labels) {
			out = append(out, pkgs[i].Name)
		}
	}
	return out, nil
}

// visiblePackage resolves a package and applies the label check. Invisible
// collapses to not-found on purpose.
func (s *indexService) visiblePackage(ctx context.Context, caller *core.User, name string) (*core.Package, error) {
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
	return pkg, nil
}

func (s *indexService) PackageFiles(ctx context.Context, caller *core.User, name string) ([]string, error) {
	pkg, err := s.visiblePackage(ctx, caller, name)
	if err != nil {
		return nil, err
	}
	// yanked versions are omitted from the index per PEP-503
	files, err := s.deps.Packages.ListFilesByPackage(ctx, pkg.ID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Filename)
	}
	return out, nil
}

func (s *indexService) Download(ctx context.Context, caller *core.User, name, filename, userAgent, ip string) (io.ReadSeekCloser, int64, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("registry.index"),
		logger.Op("Download"),
	)

	pkg, err := s.visiblePackage(ctx, caller, name)
	if err != nil {
		return nil, 0, err
	}

	file, _, filePkg, err := s.deps.Packages.GetFile(ctx, filename)
	if err != nil || filePkg.ID != pkg.ID {
		return nil, 0, ErrFileNotFound
	}

	rc, size, err := s.deps.Storage.Open(pkg.Name, filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Error("file in DB but missing on disk", logger.Filename(filename))
			return nil, 0, ErrFileNotFound
		}
		return nil, 0, err
	}

	// stats logging never blocks or fails the download
	go func() {
		if err := s.deps.Packages.LogDownload(context.WithoutCancel(ctx), file.ID, userAgent, ip); err != nil {
			log.Warn("download log failed", logger.Err(err))
		}
	}()

	return rc, size, nil
}
