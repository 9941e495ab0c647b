package engine

import (
	"fmt"
	"math"
	"strings"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/facetrim/pkg/coverage"
	"github.com/chazu/facetrim/pkg/extend"
	"github.com/chazu/facetrim/pkg/geom"
	"github.com/chazu/facetrim/pkg/trim"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms facetrim Lisp source code before passing
// it to zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: trim-face -> trim_face
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a v3.Vec.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %.1f %.1f %.1f)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpSurface wraps a geom.Surface so it can be passed between builtins.
type sexpSurface struct {
	surface geom.Surface
	kind    string
}

func (s *sexpSurface) SexpString(ps *zygo.PrintState) string {
	b := s.surface.UVBounds()
	return fmt.Sprintf("(%s u[%g %g] v[%g %g])", s.kind, b.UMin, b.UMax, b.VMin, b.VMax)
}
func (s *sexpSurface) Type() *zygo.RegisteredType { return nil }

// sexpCurve wraps a named geom.Curve.
type sexpCurve struct {
	curve geom.Curve
	name  string
}

func (c *sexpCurve) SexpString(ps *zygo.PrintState) string {
	if c.name != "" {
		return fmt.Sprintf("(curve %q)", c.name)
	}
	return "(curve)"
}
func (c *sexpCurve) Type() *zygo.RegisteredType { return nil }

// sexpResult wraps a trim.Result so scripts can reference a finished run.
type sexpResult struct {
	result *trim.Result
}

func (r *sexpResult) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(trim-result %q %s)", r.result.Root.Name, r.result.Report.Final)
}
func (r *sexpResult) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an int from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a bool from a Sexp.
func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected bool, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_boundary) and plain strings
// ("boundary").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toVec3 extracts a v3.Vec from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toSurface extracts a geom.Surface from a sexpSurface.
func toSurface(s zygo.Sexp) (geom.Surface, error) {
	if v, ok := s.(*sexpSurface); ok {
		return v.surface, nil
	}
	return nil, fmt.Errorf("expected surface, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toExtensionMode converts a keyword to an extend.Mode.
func toExtensionMode(s zygo.Sexp) (extend.Mode, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected extension keyword (:none, :boundary, :custom): %w", err)
	}
	switch name {
	case "none":
		return extend.None, nil
	case "boundary":
		return extend.Boundary, nil
	case "custom":
		return extend.Custom, nil
	}
	return 0, fmt.Errorf("invalid extension mode %q, expected none, boundary, or custom", name)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all facetrim DSL builtins into a zygomys
// environment. trim-face runs pipelines on x, appending results to out.
//
// Source code must be preprocessed with preprocessSource() before evaluation
// so that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, x *trim.Executor, out *Outcome) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}

		return &sexpVec3{vec: v3.Vec{X: x, Y: y, Z: z}}, nil
	})

	// -----------------------------------------------------------------------
	// (plane :umin 0 :umax 100 :vmin 0 :vmax 50
	//        :origin (vec3 0 0 0) :udir (vec3 1 0 0) :vdir (vec3 0 1 0))
	// -----------------------------------------------------------------------
	env.AddFunction("plane", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		bounds, err := boundsFromArgs(pa, geom.UVRect{})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane: %w", err)
		}

		p := geom.NewPlane(bounds)
		if v, ok := pa.kw["origin"]; ok {
			if p.Origin, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("plane: origin: %w", err)
			}
		}
		if v, ok := pa.kw["udir"]; ok {
			if p.UDir, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("plane: udir: %w", err)
			}
		}
		if v, ok := pa.kw["vdir"]; ok {
			if p.VDir, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("plane: vdir: %w", err)
			}
		}

		return &sexpSurface{surface: p, kind: "plane"}, nil
	})

	// -----------------------------------------------------------------------
	// (cylinder :radius 10 :vmin 0 :vmax 50
	//           :origin (vec3 0 0 0) :axis (vec3 0 0 1) :ref (vec3 1 0 0))
	//
	// The angular span defaults to a full turn.
	// -----------------------------------------------------------------------
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		bounds, err := boundsFromArgs(pa, geom.UVRect{UMax: 2 * math.Pi})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}

		c := geom.Cylinder{
			Axis:   v3.Vec{Z: 1},
			Ref:    v3.Vec{X: 1},
			Radius: 1,
			Bounds: bounds,
		}
		if v, ok := pa.kw["radius"]; ok {
			if c.Radius, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: radius: %w", err)
			}
		}
		if c.Radius <= 0 {
			return zygo.SexpNull, fmt.Errorf("cylinder: radius must be positive, got %g", c.Radius)
		}
		if v, ok := pa.kw["origin"]; ok {
			if c.Origin, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: origin: %w", err)
			}
		}
		if v, ok := pa.kw["axis"]; ok {
			a, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: axis: %w", err)
			}
			if a.Length() < 1e-9 {
				return zygo.SexpNull, fmt.Errorf("cylinder: axis has zero length")
			}
			c.Axis = a.Normalize()
		}
		if v, ok := pa.kw["ref"]; ok {
			r, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cylinder: ref: %w", err)
			}
			if r.Length() < 1e-9 {
				return zygo.SexpNull, fmt.Errorf("cylinder: ref has zero length")
			}
			c.Ref = r.Normalize()
		}

		return &sexpSurface{surface: c, kind: "cylinder"}, nil
	})

	// -----------------------------------------------------------------------
	// (line (vec3 0 25 1) (vec3 100 25 1) :name "Sketch001")
	// -----------------------------------------------------------------------
	env.AddFunction("line", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("line requires 2 endpoints, got %d", len(pa.positional))
		}

		p0, err := toVec3(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: start: %w", err)
		}
		p1, err := toVec3(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: end: %w", err)
		}

		c := &sexpCurve{curve: geom.Line{P0: p0, P1: p1}}
		if v, ok := pa.kw["name"]; ok {
			if c.name, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("line: name: %w", err)
			}
		}
		return c, nil
	})

	// -----------------------------------------------------------------------
	// (bezier p0 p1 p2 p3 :name "Sketch002")
	// -----------------------------------------------------------------------
	env.AddFunction("bezier", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 4 {
			return zygo.SexpNull, fmt.Errorf("bezier requires 4 control points, got %d", len(pa.positional))
		}

		var pts [4]v3.Vec
		for i, s := range pa.positional {
			p, err := toVec3(s)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("bezier: point %d: %w", i, err)
			}
			pts[i] = p
		}

		c := &sexpCurve{curve: geom.CubicBezier{P0: pts[0], P1: pts[1], P2: pts[2], P3: pts[3]}}
		if v, ok := pa.kw["name"]; ok {
			var err error
			if c.name, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("bezier: name: %w", err)
			}
		}
		return c, nil
	})

	// -----------------------------------------------------------------------
	// (trim-face :surface s :curves (list c1 c2)
	//            :direction :face-normal            ; or :view / :custom
	//            :vector (vec3 0 0 -1)              ; for :view and :custom
	//            :extension :boundary :distance 5.0
	//            :keep-u 10 :keep-v 25
	//            :resolution 64 :strict true :name "TrimmedFace")
	//
	// Note: registered as "trim_face" because zygomys does not support
	// hyphens in identifiers. The preprocessor converts trim-face to
	// trim_face in the source.
	// -----------------------------------------------------------------------
	env.AddFunction("trim_face", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		req := trim.Request{}

		v, ok := pa.kw["surface"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("trim-face: :surface is required")
		}
		surface, err := toSurface(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("trim-face: surface: %w", err)
		}
		req.Surface = surface

		v, ok = pa.kw["curves"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("trim-face: :curves is required")
		}
		items, err := sexpListToSlice(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("trim-face: curves: %w", err)
		}
		for i, item := range items {
			c, ok := item.(*sexpCurve)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("trim-face: curve %d: expected curve, got %T (%s)",
					i, item, item.SexpString(nil))
			}
			req.Curves = append(req.Curves, trim.CurveInput{Name: c.name, Curve: c.curve})
		}

		if v, ok := pa.kw["direction"]; ok {
			mode, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("trim-face: direction: %w", err)
			}
			switch mode {
			case "face-normal", "face_normal":
				req.Direction.Mode = coverage.FaceNormal
			case "view":
				req.Direction.Mode = coverage.ViewVector
			case "custom":
				req.Direction.Mode = coverage.CustomVector
			default:
				return zygo.SexpNull, fmt.Errorf("trim-face: invalid direction %q", mode)
			}
		}
		if v, ok := pa.kw["vector"]; ok {
			if req.Direction.Vector, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("trim-face: vector: %w", err)
			}
		}

		if v, ok := pa.kw["extension"]; ok {
			if req.Extension.Mode, err = toExtensionMode(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("trim-face: %w", err)
			}
		}
		if v, ok := pa.kw["distance"]; ok {
			if req.Extension.Distance, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("trim-face: distance: %w", err)
			}
		}

		ku, haveU := pa.kw["keep-u"]
		kv, haveV := pa.kw["keep-v"]
		if haveU != haveV {
			return zygo.SexpNull, fmt.Errorf("trim-face: :keep-u and :keep-v must be given together")
		}
		if haveU {
			u, err := toFloat64(ku)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("trim-face: keep-u: %w", err)
			}
			vv, err := toFloat64(kv)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("trim-face: keep-v: %w", err)
			}
			req.Keep = &v2.Vec{X: u, Y: vv}
		}

		if v, ok := pa.kw["resolution"]; ok {
			if req.Resolution, err = toInt(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("trim-face: resolution: %w", err)
			}
		}
		if v, ok := pa.kw["strict"]; ok {
			if req.Strict, err = toBool(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("trim-face: strict: %w", err)
			}
		}
		if v, ok := pa.kw["name"]; ok {
			if req.FaceName, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("trim-face: name: %w", err)
			}
		}

		result, err := x.Run(req)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("trim-face: %w", err)
		}
		out.Results = append(out.Results, result)
		return &sexpResult{result: result}, nil
	})
}

// boundsFromArgs reads :umin/:umax/:vmin/:vmax keywords over defaults.
func boundsFromArgs(pa kwArgs, def geom.UVRect) (geom.UVRect, error) {
	b := def
	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"umin", &b.UMin},
		{"umax", &b.UMax},
		{"vmin", &b.VMin},
		{"vmax", &b.VMax},
	} {
		if v, ok := pa.kw[f.key]; ok {
			val, err := toFloat64(v)
			if err != nil {
				return b, fmt.Errorf("%s: %w", f.key, err)
			}
			*f.dst = val
		}
	}
	if b.Width() <= 0 || b.Height() <= 0 {
		return b, fmt.Errorf("UV domain u[%g %g] v[%g %g] is empty", b.UMin, b.UMax, b.VMin, b.VMax)
	}
	return b, nil
}
