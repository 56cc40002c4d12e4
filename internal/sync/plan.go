package sync

// Reason explains why a hook needs to be copied
type Reason string

const (
	ReasonMissing Reason = "missing" // destination file does not exist
	ReasonChanged Reason = "changed" // destination content differs
)

// Plan represents the copies a deploy would perform
type Plan struct {
	DestinationMissing bool
	Ops                []FileOp
}

// FileOp represents a single hook copy
type FileOp struct {
	Name       string // hook file name
	SourcePath string // path in the source directory
	DestPath   string // path in the destination directory
	Reason     Reason
}

// UpToDate returns true if the plan has nothing to do
func (p *Plan) UpToDate() bool {
	return !p.DestinationMissing && len(p.Ops) == 0
}
