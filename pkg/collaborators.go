package rema

import "context"

// Release is one release as reported by the release host.
type Release struct {
	Name         string `json:"name"`
	TagName      string `json:"tagName"`
	PublishedAt  string `json:"publishedAt"`
	CreatedAt    string `json:"createdAt"`
	IsDraft      bool   `json:"isDraft"`
	IsPrerelease bool   `json:"isPrerelease"`
	IsLatest     bool   `json:"isLatest"`
}

// ReleaseSpec describes a release to publish.
type ReleaseSpec struct {
	Tag           string
	Title         string
	Notes         string
	Prerelease    bool
	GenerateNotes bool
	Target        string // revision the tag is created on, empty for the host default
}

// ReleaseHost lists and publishes releases.
type ReleaseHost interface {
	ListReleases(ctx context.Context) ([]Release, error)
	CreateRelease(ctx context.Context, spec ReleaseSpec) error
	DeleteRelease(ctx context.Context, tag string) error
}

// CommitHandle identifies the release commit until the transaction ends.
type CommitHandle struct {
	Revision string
	Message  string
}

// VCS is the version control capability needed by a release.
type VCS interface {
	// Commit records paths (or an empty commit when paths is empty).
	Commit(ctx context.Context, message string, paths []string) (CommitHandle, error)
	Push(ctx context.Context) error
	FetchTags(ctx context.Context) error
	// RevertLocal resets the local branch to the parent of revision.
	RevertLocal(ctx context.Context, revision string) error
	// RevertRemote moves the remote branch back to the parent of revision.
	RevertRemote(ctx context.Context, revision string) error
}

// ManifestStore writes versions into manifests and undoes those writes.
// *ManifestWriter implements it.
type ManifestStore interface {
	Write(target ReleaseRecord) ([]ManifestBackup, error)
	Restore(backups []ManifestBackup) error
}

var _ ManifestStore = (*ManifestWriter)(nil)
