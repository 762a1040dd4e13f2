// Package manifest provides loading and validation of batch operation
// manifests.
//
// A manifest is a YAML or JSON file describing an ordered list of
// storage operations to execute against one backend. It is the file
// counterpart of an interactively planned batch: the apply command
// loads a manifest, turns it into pending operations, and hands them to
// the executor.
//
// Example manifest (YAML):
//
//	version: "1.0"
//	backend: archive
//	operations:
//	  - type: copy
//	    source: reports/2025/
//	    destination: archive/reports/2025/
//	    recursive: true
//	  - type: delete
//	    source: tmp/staging/
//	    recursive: true
package manifest

import (
	"fmt"

	"github.com/omnistor/omnistor/pkg/plan"
)

// Version is the manifest schema version this package accepts.
const Version = "1.0"

// Manifest is a validated batch operation manifest.
type Manifest struct {
	// Version is the manifest schema version. Must be "1.0".
	Version string `json:"version" yaml:"version"`

	// Backend names the backend profile to run against. Optional; the
	// command-line selection wins when both are set.
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`

	// Operations is the ordered list to execute.
	Operations []Operation `json:"operations" yaml:"operations"`
}

// Operation is one manifest entry.
type Operation struct {
	// Type is one of create, delete, move, copy, rename, download,
	// upload.
	Type string `json:"type" yaml:"type"`

	// Source is the origin path. Required for all types except create.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Destination is the target path. Required for move, copy, rename,
	// create, download, and upload.
	Destination string `json:"destination,omitempty" yaml:"destination,omitempty"`

	// Recursive marks directory-subtree operations.
	Recursive bool `json:"recursive,omitempty" yaml:"recursive,omitempty"`
}

var validTypes = map[string]plan.OperationType{
	"create":   plan.OpCreate,
	"delete":   plan.OpDelete,
	"move":     plan.OpMove,
	"copy":     plan.OpCopy,
	"rename":   plan.OpRename,
	"download": plan.OpDownload,
	"upload":   plan.OpUpload,
}

// Validate checks structural correctness. The index in error messages
// is zero-based.
func (m *Manifest) Validate() error {
	if m.Version != Version {
		return fmt.Errorf("manifest: unsupported version %q (want %q)", m.Version, Version)
	}
	if len(m.Operations) == 0 {
		return fmt.Errorf("manifest: at least one operation is required")
	}
	for i, op := range m.Operations {
		if err := op.validate(); err != nil {
			return fmt.Errorf("manifest: operation %d: %w", i, err)
		}
	}
	return nil
}

func (o Operation) validate() error {
	typ, ok := validTypes[o.Type]
	if !ok {
		return fmt.Errorf("unknown type %q", o.Type)
	}

	switch typ {
	case plan.OpCreate:
		if o.Destination == "" {
			return fmt.Errorf("create requires destination")
		}
	case plan.OpDelete:
		if o.Source == "" {
			return fmt.Errorf("delete requires source")
		}
	default:
		if o.Source == "" || o.Destination == "" {
			return fmt.Errorf("%s requires source and destination", o.Type)
		}
	}
	return nil
}

// Pending converts the manifest into executable pending operations,
// minting a correlation ID per operation.
func (m *Manifest) Pending() []plan.PendingOperation {
	ops := make([]plan.PendingOperation, 0, len(m.Operations))
	for _, op := range m.Operations {
		ops = append(ops, plan.NewOperation(validTypes[op.Type], op.Source, op.Destination, op.Recursive))
	}
	return ops
}
