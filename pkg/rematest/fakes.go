// Package rematest provides in-memory collaborators for testing release
// transactions without git or a release host.
package rematest

import (
	"context"
	"fmt"
	"sync"

	rema "github.com/bcomnes/rema/pkg"
)

// Operation names used as keys of the Errors maps and in call logs.
const (
	OpCommit        = "commit"
	OpPush          = "push"
	OpFetchTags     = "fetch-tags"
	OpRevertLocal   = "revert-local"
	OpRevertRemote  = "revert-remote"
	OpCreateRelease = "create-release"
	OpDeleteRelease = "delete-release"
	OpListReleases  = "list-releases"
)

// VCS records calls and fails the operations listed in Errors.
type VCS struct {
	mu     sync.Mutex
	Errors map[string]error
	Calls  []string

	commits int
	// Local and Remote are the revision stacks of the branch.
	Local  []string
	Remote []string
}

var _ rema.VCS = (*VCS)(nil)

// NewVCS returns a fake whose local and remote branch both hold base.
func NewVCS(base string) *VCS {
	return &VCS{
		Errors: map[string]error{},
		Local:  []string{base},
		Remote: []string{base},
	}
}

func (v *VCS) call(op string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Calls = append(v.Calls, op)
	return v.Errors[op]
}

// Commit appends a revision to the local branch.
func (v *VCS) Commit(_ context.Context, message string, _ []string) (rema.CommitHandle, error) {
	if err := v.call(OpCommit); err != nil {
		return rema.CommitHandle{}, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.commits++
	rev := fmt.Sprintf("rev%d", v.commits)
	v.Local = append(v.Local, rev)
	return rema.CommitHandle{Revision: rev, Message: message}, nil
}

// Push copies the local branch to the remote.
func (v *VCS) Push(context.Context) error {
	if err := v.call(OpPush); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Remote = append([]string(nil), v.Local...)
	return nil
}

// FetchTags only records the call.
func (v *VCS) FetchTags(context.Context) error {
	return v.call(OpFetchTags)
}

// RevertLocal drops revision from the local branch tip.
func (v *VCS) RevertLocal(_ context.Context, revision string) error {
	if err := v.call(OpRevertLocal); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return dropTip(&v.Local, revision)
}

// RevertRemote drops revision from the remote branch tip.
func (v *VCS) RevertRemote(_ context.Context, revision string) error {
	if err := v.call(OpRevertRemote); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return dropTip(&v.Remote, revision)
}

func dropTip(branch *[]string, revision string) error {
	b := *branch
	if len(b) == 0 || b[len(b)-1] != revision {
		return fmt.Errorf("%s is not the branch tip", revision)
	}
	*branch = b[:len(b)-1]
	return nil
}

// Host is an in-memory release host.
type Host struct {
	mu       sync.Mutex
	Errors   map[string]error
	Calls    []string
	Releases []rema.Release
	Created  []rema.ReleaseSpec
}

var _ rema.ReleaseHost = (*Host)(nil)

// NewHost returns a host already holding a release for each tag.
func NewHost(tags ...string) *Host {
	h := &Host{Errors: map[string]error{}}
	for _, t := range tags {
		h.Releases = append(h.Releases, rema.Release{Name: t, TagName: t})
	}
	return h
}

func (h *Host) call(op string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Calls = append(h.Calls, op)
	return h.Errors[op]
}

// ListReleases returns a copy of Releases.
func (h *Host) ListReleases(context.Context) ([]rema.Release, error) {
	if err := h.call(OpListReleases); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]rema.Release(nil), h.Releases...), nil
}

// CreateRelease adds a release for spec.Tag.
func (h *Host) CreateRelease(_ context.Context, spec rema.ReleaseSpec) error {
	if err := h.call(OpCreateRelease); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.Releases {
		if r.TagName == spec.Tag {
			return fmt.Errorf("release %s already exists", spec.Tag)
		}
	}
	h.Created = append(h.Created, spec)
	h.Releases = append(h.Releases, rema.Release{
		Name:         spec.Title,
		TagName:      spec.Tag,
		IsPrerelease: spec.Prerelease,
	})
	return nil
}

// DeleteRelease removes the release for tag.
func (h *Host) DeleteRelease(_ context.Context, tag string) error {
	if err := h.call(OpDeleteRelease); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, r := range h.Releases {
		if r.TagName == tag {
			h.Releases = append(h.Releases[:i], h.Releases[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("release %s not found", tag)
}

// Tags returns the tag names of the current releases.
func (h *Host) Tags() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	tags := make([]string, 0, len(h.Releases))
	for _, r := range h.Releases {
		tags = append(tags, r.TagName)
	}
	return tags
}
