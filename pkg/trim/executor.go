package trim

import (
	"fmt"

	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/chazu/facetrim/pkg/coverage"
	"github.com/chazu/facetrim/pkg/extend"
	"github.com/chazu/facetrim/pkg/geom"
	"github.com/chazu/facetrim/pkg/hierarchy"
)

// State is one step of the trim pipeline. A run advances Idle ->
// CoverageChecked -> (ExtensionApplied ->) Trimmed -> HierarchyBuilt ->
// Done, or drops into Failed from any step.
type State int

const (
	Idle State = iota
	CoverageChecked
	ExtensionApplied
	Trimmed
	HierarchyBuilt
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CoverageChecked:
		return "coverage-checked"
	case ExtensionApplied:
		return "extension-applied"
	case Trimmed:
		return "trimmed"
	case HierarchyBuilt:
		return "hierarchy-built"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// InvalidInputError reports malformed input: missing surface or
// curves, or a malformed direction vector. Surfaced immediately; no
// state is created.
type InvalidInputError struct {
	Msg string
}

func (e *InvalidInputError) Error() string { return "invalid input: " + e.Msg }

// TrimPrimitiveError reports a failure of the external trim primitive.
// Fatal: the run aborts before any hierarchy is built.
type TrimPrimitiveError struct {
	Cause error
}

func (e *TrimPrimitiveError) Error() string { return "trim primitive failed: " + e.Cause.Error() }

func (e *TrimPrimitiveError) Unwrap() error { return e.Cause }

// CurveInput is one user-supplied trim curve. The engine treats the
// curve as read-only for the duration of a run.
type CurveInput struct {
	Name  string
	Curve geom.Curve
}

// Request is the full input contract of one trim invocation. Curve
// order defines hierarchy iteration order.
type Request struct {
	Curves    []CurveInput
	Surface   geom.Surface
	Direction coverage.DirectionSpec
	// Extension selects the curve-extension policy; the zero Spec falls
	// back to the executor default.
	Extension extend.Spec
	// Resolution is the per-curve sample count; 0 uses DefaultResolution.
	Resolution int
	// Strict turns extension failures from per-curve fallbacks into a
	// fatal error for the whole run.
	Strict bool
	// Keep selects the surviving side of the cut in UV space; nil uses
	// the domain center.
	Keep *v2.Vec
	// FaceName names the root output node; empty uses "TrimmedFace".
	FaceName string
}

// DefaultResolution is the sample count used when a request leaves
// Resolution zero.
const DefaultResolution = 64

// CurveReport is the per-curve slice of the diagnostic report.
type CurveReport struct {
	Name           string
	Ratio          float64
	Class          coverage.Class
	Samples        int
	InvalidSamples int
	Extended       bool
	Fallbacks      []string
}

// Report is the diagnostic output of a run. It is always produced,
// even when the run fails partway: whatever coverage was computed
// before the failure is retained.
type Report struct {
	Final     State
	Curves    []CurveReport
	Fallbacks []string
}

// Result bundles the outputs of a successful run.
type Result struct {
	Root   *hierarchy.Node
	Face   Face
	Report *Report
}

// Executor drives the trim pipeline. It holds no per-run state, so a
// single Executor is safely reusable across independent invocations.
type Executor struct {
	checker  *coverage.Checker
	extender *extend.Extender
	trimmer  Trimmer

	defResolution int
	defStrict     bool
	defExtension  extend.Spec
}

// NewExecutor wires the pipeline stages together.
func NewExecutor(checker *coverage.Checker, extender *extend.Extender, trimmer Trimmer) *Executor {
	return &Executor{checker: checker, extender: extender, trimmer: trimmer}
}

// SetDefaults installs run defaults applied when a Request leaves the
// corresponding fields unset: resolution replaces DefaultResolution,
// strict forces strict mode for every run, and extension is used when
// the request carries a zero Spec.
func (x *Executor) SetDefaults(resolution int, strict bool, extension extend.Spec) {
	x.defResolution = resolution
	x.defStrict = strict
	x.defExtension = extension
}

// Run executes one trim invocation to completion. On success the
// returned error is nil and the Result carries the hierarchy root, the
// trimmed face and the report. On failure the error is one of the
// typed errors of this package (or a wrapped stage error) and the
// returned Result still carries the partial Report; no hierarchy or
// document state is created.
func (x *Executor) Run(req Request) (*Result, error) {
	report := &Report{Final: Idle}
	res := &Result{Report: report}

	if err := validate(req); err != nil {
		report.Final = Failed
		return res, err
	}

	resolution := req.Resolution
	if resolution == 0 {
		resolution = x.defResolution
	}
	if resolution == 0 {
		resolution = DefaultResolution
	}
	strict := req.Strict || x.defStrict
	extension := req.Extension
	if extension == (extend.Spec{}) {
		extension = x.defExtension
	}

	// Coverage pass over every curve.
	type curveState struct {
		name  string
		curve geom.Curve
		cov   coverage.Result
	}
	states := make([]curveState, 0, len(req.Curves))
	for i, in := range req.Curves {
		name := in.Name
		if name == "" {
			name = fmt.Sprintf("Curve%d", i+1)
		}
		cov, err := x.checker.Check(in.Curve, req.Surface, req.Direction, resolution)
		if err != nil {
			report.Final = Failed
			return res, &InvalidInputError{Msg: err.Error()}
		}
		states = append(states, curveState{name: name, curve: in.Curve, cov: cov})
		report.Curves = append(report.Curves, CurveReport{
			Name:           name,
			Ratio:          cov.Ratio,
			Class:          cov.Class,
			Samples:        len(cov.Samples),
			InvalidSamples: cov.Invalid,
			Fallbacks:      cov.Fallbacks,
		})
	}
	report.Final = CoverageChecked

	// Conditional extension per under-covering curve.
	finalCurves := make([]geom.Curve, len(states))
	entries := make([]hierarchy.Entry, len(states))
	anyExtended := false
	for i, st := range states {
		finalCurves[i] = st.curve
		entries[i] = hierarchy.Entry{Name: st.name}

		if st.cov.Class == coverage.Covering || extension.Mode == extend.None {
			continue
		}
		ext, err := x.extender.Extend(st.curve, st.cov, extension, req.Surface)
		if err != nil {
			if strict {
				report.Final = Failed
				return res, fmt.Errorf("curve %q: %w", st.name, err)
			}
			// Lenient mode: fall back to the curve as supplied.
			note := fmt.Sprintf("curve %q: %v; using the unextended curve", st.name, err)
			report.Curves[i].Fallbacks = append(report.Curves[i].Fallbacks, note)
			report.Fallbacks = append(report.Fallbacks, note)
			continue
		}
		if ext != nil {
			finalCurves[i] = ext
			entries[i].WasExtended = true
			report.Curves[i].Extended = true
			anyExtended = true
		}
	}
	if anyExtended {
		report.Final = ExtensionApplied
	}

	// External trim primitive.
	keep := req.Surface.UVBounds().Center()
	if req.Keep != nil {
		keep = *req.Keep
	}
	face, err := x.trimmer.Trim(req.Surface, finalCurves, keep)
	if err != nil {
		report.Final = Failed
		return res, &TrimPrimitiveError{Cause: err}
	}
	report.Final = Trimmed

	// Hierarchy assembly happens only after a successful trim.
	faceName := req.FaceName
	if faceName == "" {
		faceName = "TrimmedFace"
	}
	root := hierarchy.Build(faceName, entries)
	report.Final = HierarchyBuilt

	res.Root = root
	res.Face = face
	report.Final = Done
	return res, nil
}

// validate enforces the input contract before any state is created.
func validate(req Request) error {
	if req.Surface == nil {
		return &InvalidInputError{Msg: "no surface supplied"}
	}
	if len(req.Curves) == 0 {
		return &InvalidInputError{Msg: "no trimming curves supplied"}
	}
	for i, in := range req.Curves {
		if in.Curve == nil {
			return &InvalidInputError{Msg: fmt.Sprintf("curve %d is nil", i+1)}
		}
	}
	if req.Direction.Mode != coverage.FaceNormal && req.Direction.Vector.Length() < 1e-9 {
		return &InvalidInputError{Msg: "projection direction vector has zero length"}
	}
	if err := req.Extension.Validate(); err != nil {
		return &InvalidInputError{Msg: err.Error()}
	}
	if req.Resolution < 0 || req.Resolution == 1 {
		return &InvalidInputError{Msg: fmt.Sprintf("resolution %d is not usable", req.Resolution)}
	}
	return nil
}
