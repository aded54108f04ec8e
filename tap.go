package flowplan

import (
	"fmt"

	"github.com/google/uuid"
)

// Tap is a source or sink resource at the edge of a pipeline. Implementations
// must provide a stable identity; two taps with the same ID are the same
// endpoint for planning purposes.
type Tap interface {
	Element

	// ID returns the stable identity of the resource.
	ID() string

	// Path returns the display form of the resource location.
	Path() string

	// WriteDirect reports whether the resource can be written directly. A
	// sink that cannot be written directly gets a staging tap inserted in
	// front of it during planning.
	WriteDirect() bool
}

// FileTap is a durable tap identified by its path.
type FileTap struct {
	path        string
	writeDirect bool
}

// NewFileTap creates a tap for the given path that supports direct writes.
func NewFileTap(path string) *FileTap {
	return &FileTap{path: path, writeDirect: true}
}

// NewIndirectFileTap creates a tap that cannot be written directly. Steps
// sinking into it receive a staging tap.
func NewIndirectFileTap(path string) *FileTap {
	return &FileTap{path: path, writeDirect: false}
}

func (t *FileTap) Kind() ElementKind { return KindTap }
func (t *FileTap) ID() string        { return t.path }
func (t *FileTap) Path() string      { return t.path }
func (t *FileTap) WriteDirect() bool { return t.writeDirect }
func (t *FileTap) String() string    { return t.path }

// StagingTap is a synthetic tap created by the planner when a sink cannot be
// written directly. It is owned by exactly one step and exists only for the
// lifetime of the plan.
type StagingTap struct {
	id   string
	path string
}

// NewStagingTap creates a staging tap in front of base. The identity embeds a
// random component so staging taps never collide, independent of how many
// plans target the same base resource.
func NewStagingTap(base Tap) *StagingTap {
	return &StagingTap{
		id:   fmt.Sprintf("staging:%s#%s", base.Path(), uuid.NewString()),
		path: fmt.Sprintf("staging:%s", base.Path()),
	}
}

func (t *StagingTap) Kind() ElementKind { return KindTap }
func (t *StagingTap) ID() string        { return t.id }
func (t *StagingTap) Path() string      { return t.path }
func (t *StagingTap) WriteDirect() bool { return true }
func (t *StagingTap) String() string    { return t.path }

// IsStaging reports whether t is a synthetic staging tap.
func IsStaging(t Tap) bool {
	_, ok := t.(*StagingTap)
	return ok
}
