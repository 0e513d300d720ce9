package registry

import "time"

// FileResponse is one stored artifact.
type FileResponse struct {
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}

// VersionResponse is one package version with its files and stats.
type VersionResponse struct {
	Version      string         `json:"version"`
	Uploader     string         `json:"uploader,omitempty"`
	Yanked       bool           `json:"yanked"`
	YankedReason string         `json:"yanked_reason,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	Downloads    int64          `json:"downloads"`
	Files        []FileResponse `json:"files"`
}

// PackageSummary is the listing view.
type PackageSummary struct {
	Name      string    `json:"name"`
	Labels    []string  `json:"labels"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PackageDetail is the per-package view with versions.
type PackageDetail struct {
	Name     string            `json:"name"`
	Labels   []string          `json:"labels"`
	Versions []VersionResponse `json:"versions"`
}

// YankRequest marks a version as yanked.
type YankRequest struct {
	Reason string `json:"reason,omitempty"`
}

// UploadResult reports what an upload created.
type UploadResult struct {
	Package  string `json:"package"`
	Version  string `json:"version"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}
