// Package capabilities holds the example resources, tools and prompts served
// by example-server.
//
// RegisterAll adds every capability to a registry. Handlers reach external
// systems only through the dependencies passed in Deps, so tests can swap
// the data store opener, the clock and the host probes.
package capabilities

import (
	"context"
	"errors"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ajitpratap0/mcp-example-server/pkg/datastore"
	"github.com/ajitpratap0/mcp-example-server/pkg/registry"
)

// Deps are the external dependencies of the example handlers
type Deps struct {
	// Opener acquires per-invocation data store connections
	Opener datastore.Opener
	// Policy gates every query before a connection is opened
	Policy datastore.Policy
	// SQLiteBaseDir, when set, confines sqlite-query database files to
	// that directory
	SQLiteBaseDir string

	Now      func() time.Time
	Memory   func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	HostInfo func(ctx context.Context) (*host.InfoStat, error)
}

// DefaultDeps returns dependencies backed by real drivers and host probes
func DefaultDeps() Deps {
	return Deps{
		Opener:   datastore.SQLOpener{},
		Policy:   datastore.DefaultPolicy,
		Now:      time.Now,
		Memory:   mem.VirtualMemoryWithContext,
		HostInfo: host.InfoWithContext,
	}
}

func (d Deps) withDefaults() Deps {
	def := DefaultDeps()
	if d.Opener == nil {
		d.Opener = def.Opener
	}
	if d.Policy.MaxRows == 0 {
		d.Policy = def.Policy
	}
	if d.Now == nil {
		d.Now = def.Now
	}
	if d.Memory == nil {
		d.Memory = def.Memory
	}
	if d.HostInfo == nil {
		d.HostInfo = def.HostInfo
	}
	return d
}

// RegisterAll registers every example capability. Unset dependencies fall
// back to DefaultDeps.
func RegisterAll(reg *registry.Registry, deps Deps) error {
	deps = deps.withDefaults()

	caps := []registry.Capability{
		readmeResource(),
		userInfoResource(deps),
		calculateTool(),
		systemInfoTool(deps),
		generateDataTool(),
		mysqlQueryTool(deps),
		sqliteQueryTool(deps),
		explainConceptPrompt(),
		codeReviewPrompt(),
		projectPlanningPrompt(),
	}

	var errs []error
	for _, c := range caps {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
