// Package sandbox spawns child processes under a workspace policy with a
// sanitized environment. Platform confinement primitives (seatbelt,
// landlock, job objects) are out of scope here; when they are unavailable
// the runner degrades to an env-sanitized spawn and logs a warning.
package sandbox

// PolicyKind identifies the confinement level for a spawned process.
type PolicyKind int

const (
	// PolicyDangerFullAccess spawns with no confinement beyond env
	// sanitization. The name is deliberately alarming.
	PolicyDangerFullAccess PolicyKind = iota

	// PolicyReadOnly denies all filesystem writes.
	PolicyReadOnly

	// PolicyWorkspaceWrite allows writes only under the configured
	// writable roots.
	PolicyWorkspaceWrite
)

// Policy describes the confinement contract for a child process. The kind
// set is closed, so this is a tagged variant rather than an interface.
type Policy struct {
	Kind PolicyKind

	// WritableRoots lists directories writable under PolicyWorkspaceWrite.
	WritableRoots []string

	// NetworkAccess permits outbound network use under PolicyWorkspaceWrite.
	NetworkAccess bool

	// ExcludeTmpdirEnvVar removes $TMPDIR from the writable set.
	ExcludeTmpdirEnvVar bool

	// ExcludeSlashTmp removes /tmp from the writable set.
	ExcludeSlashTmp bool
}

// DangerFullAccess returns an unconfined policy.
func DangerFullAccess() Policy {
	return Policy{Kind: PolicyDangerFullAccess}
}

// ReadOnly returns a policy denying all writes.
func ReadOnly() Policy {
	return Policy{Kind: PolicyReadOnly}
}

// WorkspaceWrite returns a policy allowing writes under the given roots.
func WorkspaceWrite(roots []string, network bool) Policy {
	return Policy{
		Kind:          PolicyWorkspaceWrite,
		WritableRoots: roots,
		NetworkAccess: network,
	}
}

// Label returns the policy's canonical name, used for the CORTEX_SANDBOX
// marker in the child environment.
func (p Policy) Label() string {
	switch p.Kind {
	case PolicyReadOnly:
		return "read-only"
	case PolicyWorkspaceWrite:
		return "workspace-write"
	default:
		return "danger-full-access"
	}
}
