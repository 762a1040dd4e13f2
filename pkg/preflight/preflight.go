// Package preflight verifies that a backend actually grants the
// permissions its declared capabilities imply, before a transfer or
// batch run commits to using them. Checks are staged from harmless to
// invasive and fail fast.
package preflight

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/omnistor/omnistor/pkg/provider"
)

// Mode defines how aggressive preflight checks are.
type Mode string

const (
	// ModePlanOnly performs no backend calls at all.
	ModePlanOnly Mode = "plan-only"

	// ModeReadSafe performs list and read probes only.
	ModeReadSafe Mode = "read-safe"

	// ModeWriteProbe additionally verifies write and delete access by
	// creating and removing a probe object.
	ModeWriteProbe Mode = "write-probe"
)

// ProbeStrategy selects how write access is verified.
type ProbeStrategy string

const (
	// ProbeMultipartAbort starts and immediately aborts a multipart
	// upload. Nothing is ever stored; requires the upload capability.
	ProbeMultipartAbort ProbeStrategy = "multipart-abort"

	// ProbePutDelete writes a small probe object and deletes it.
	ProbePutDelete ProbeStrategy = "put-delete"
)

// Check names are stable strings carried in reports.
const (
	CheckList   = "list"
	CheckRead   = "read"
	CheckWrite  = "write"
	CheckDelete = "delete"
)

// Spec controls which checks run and where probes land.
type Spec struct {
	Mode          Mode
	ProbeStrategy ProbeStrategy

	// ProbePrefix is the path prefix under which probe objects are
	// created. Empty uses ".omnistor-preflight/".
	ProbePrefix string
}

// CheckResult is the outcome of one staged check.
type CheckResult struct {
	Check   string          `json:"check"`
	Allowed bool            `json:"allowed"`
	Method  string          `json:"method"`
	Status  provider.Status `json:"status,omitempty"`
	Detail  string          `json:"detail,omitempty"`
}

// Report aggregates the staged check results for one backend.
type Report struct {
	Backend       string        `json:"backend"`
	Mode          string        `json:"mode"`
	ProbeStrategy string        `json:"probe_strategy,omitempty"`
	Results       []CheckResult `json:"results"`
}

// Allowed reports whether every executed check passed.
func (r *Report) Allowed() bool {
	for _, c := range r.Results {
		if !c.Allowed {
			return false
		}
	}
	return true
}

func (s Spec) probePath() string {
	prefix := s.ProbePrefix
	if prefix == "" {
		prefix = ".omnistor-preflight/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + "probe-" + uuid.NewString()
}

// Run executes the staged checks against p. The returned error is the
// first check failure; the report always carries every check that ran.
//
// Ordering is harmless-first: list, then read, then the write probe.
func Run(ctx context.Context, p provider.Provider, prefix string, spec Spec) (*Report, error) {
	rec := &Report{
		Backend: p.Scheme(),
		Mode:    string(spec.Mode),
		Results: []CheckResult{},
	}
	if spec.Mode == ModeWriteProbe {
		rec.ProbeStrategy = string(spec.ProbeStrategy)
	}
	if spec.Mode == ModePlanOnly {
		return rec, nil
	}

	if err := checkList(ctx, p, prefix, rec); err != nil {
		return rec, err
	}
	if err := checkRead(ctx, p, prefix, rec); err != nil {
		return rec, err
	}
	if spec.Mode != ModeWriteProbe {
		return rec, nil
	}
	return rec, checkWrite(ctx, p, spec, rec)
}

func checkList(ctx context.Context, p provider.Provider, prefix string, rec *Report) error {
	method := fmt.Sprintf("List(path=%q,max=1)", prefix)
	res, err := p.List(ctx, prefix, provider.ListOptions{MaxEntries: 1})
	if err != nil {
		rec.Results = append(rec.Results, failure(CheckList, method, err))
		return err
	}
	rec.Results = append(rec.Results, CheckResult{
		Check:   CheckList,
		Allowed: true,
		Method:  method,
		Detail:  fmt.Sprintf("%d entries", len(res.Entries)),
	})
	return nil
}

// checkRead opens the first listed object. An empty prefix passes
// vacuously since there is nothing to read.
func checkRead(ctx context.Context, p provider.Provider, prefix string, rec *Report) error {
	res, err := p.List(ctx, prefix, provider.ListOptions{Recursive: true, MaxEntries: 25})
	if err != nil {
		rec.Results = append(rec.Results, failure(CheckRead, "List for read probe", err))
		return err
	}

	var target string
	for _, e := range res.Entries {
		if e.Type == provider.EntryFile {
			target = e.Path
			break
		}
	}
	if target == "" {
		rec.Results = append(rec.Results, CheckResult{
			Check:   CheckRead,
			Allowed: true,
			Method:  "skipped",
			Detail:  "no object under prefix to read",
		})
		return nil
	}

	method := fmt.Sprintf("Read(path=%q,length=1)", target)
	rc, _, err := p.Read(ctx, target, provider.ReadOptions{Length: 1})
	if err != nil {
		rec.Results = append(rec.Results, failure(CheckRead, method, err))
		return err
	}
	_, _ = io.Copy(io.Discard, rc)
	_ = rc.Close()
	rec.Results = append(rec.Results, CheckResult{Check: CheckRead, Allowed: true, Method: method})
	return nil
}

func checkWrite(ctx context.Context, p provider.Provider, spec Spec, rec *Report) error {
	path := spec.probePath()

	if spec.ProbeStrategy == ProbeMultipartAbort {
		mp, ok := p.(provider.MultipartUploader)
		if ok && p.Capabilities().Has(provider.CapUpload) {
			return probeMultipartAbort(ctx, mp, path, rec)
		}
		// Fall through to put-delete when the backend cannot do
		// multipart probes.
	}
	return probePutDelete(ctx, p, path, rec)
}

func probeMultipartAbort(ctx context.Context, mp provider.MultipartUploader, path string, rec *Report) error {
	method := fmt.Sprintf("CreateMultipartUpload+Abort(path=%q)", path)
	uploadID, err := mp.CreateMultipartUpload(ctx, path, provider.WriteOptions{})
	if err != nil {
		rec.Results = append(rec.Results, failure(CheckWrite, method, err))
		return err
	}
	if err := mp.AbortMultipartUpload(ctx, path, uploadID); err != nil {
		rec.Results = append(rec.Results, failure(CheckWrite, method, err))
		return err
	}
	rec.Results = append(rec.Results, CheckResult{Check: CheckWrite, Allowed: true, Method: method})
	return nil
}

func probePutDelete(ctx context.Context, p provider.Provider, path string, rec *Report) error {
	body := []byte("omnistor preflight probe")
	writeMethod := fmt.Sprintf("Write(path=%q,size=%d)", path, len(body))
	err := p.Write(ctx, path, bytes.NewReader(body), int64(len(body)), provider.WriteOptions{Overwrite: true})
	if err != nil {
		rec.Results = append(rec.Results, failure(CheckWrite, writeMethod, err))
		return err
	}
	rec.Results = append(rec.Results, CheckResult{Check: CheckWrite, Allowed: true, Method: writeMethod})

	deleteMethod := fmt.Sprintf("Delete(path=%q)", path)
	if err := p.Delete(ctx, path, provider.DeleteOptions{}); err != nil {
		rec.Results = append(rec.Results, failure(CheckDelete, deleteMethod, err))
		return err
	}
	rec.Results = append(rec.Results, CheckResult{Check: CheckDelete, Allowed: true, Method: deleteMethod})
	return nil
}

func failure(check, method string, err error) CheckResult {
	return CheckResult{
		Check:   check,
		Allowed: false,
		Method:  method,
		Status:  provider.StatusOf(err),
		Detail:  err.Error(),
	}
}
