package engine

import (
	"strings"
	"testing"

	zygo "github.com/glycerine/zygomys/zygo"
)

func TestPreprocessSource(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "keyword",
			source: `(trim-face :surface s)`,
			want:   `(trim_face "__kw_surface" s)`,
		},
		{
			name:   "kebab identifier",
			source: `(face-normal-check a)`,
			want:   `(face_normal_check a)`,
		},
		{
			name:   "minus stays minus",
			source: `(- 5 3)`,
			want:   `(- 5 3)`,
		},
		{
			name:   "numeric subtraction stays",
			source: `(+ 1 -2)`,
			want:   `(+ 1 -2)`,
		},
		{
			name:   "string untouched",
			source: `(line p q :name "a-b :c")`,
			want:   `(line p q "__kw_name" "a-b :c")`,
		},
		{
			name:   "lisp comment converted",
			source: ";; trim the face\n(+ 1 2)",
			want:   "// trim the face\n(+ 1 2)",
		},
		{
			name:   "assignment operator preserved",
			source: `(x := 10)`,
			want:   `(x := 10)`,
		},
		{
			name:   "keyword with hyphen",
			source: `(f :keep-u 5)`,
			want:   `(f "__kw_keep-u" 5)`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preprocessSource(tt.source); got != tt.want {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.source, got, tt.want)
			}
		})
	}
}

func TestIsKW(t *testing.T) {
	name, ok := isKW(&zygo.SexpStr{S: "__kw_surface"})
	if !ok || name != "surface" {
		t.Errorf("isKW = (%q, %v), want (surface, true)", name, ok)
	}

	if _, ok := isKW(&zygo.SexpStr{S: "plain"}); ok {
		t.Error("plain string detected as keyword")
	}
	if _, ok := isKW(&zygo.SexpInt{Val: 3}); ok {
		t.Error("int detected as keyword")
	}
}

func TestParseArgs(t *testing.T) {
	args := []zygo.Sexp{
		&zygo.SexpInt{Val: 1},
		&zygo.SexpStr{S: "__kw_name"},
		&zygo.SexpStr{S: "Sketch"},
		&zygo.SexpFloat{Val: 2.5},
		&zygo.SexpStr{S: "__kw_flag"},
	}
	pa := parseArgs(args)

	if len(pa.positional) != 2 {
		t.Fatalf("positional = %d, want 2", len(pa.positional))
	}
	if v, ok := pa.kw["name"]; !ok {
		t.Error("missing keyword name")
	} else if s, _ := toString(v); s != "Sketch" {
		t.Errorf("name = %q, want Sketch", s)
	}
	// Trailing keyword with no value acts as a nil-valued flag.
	if v, ok := pa.kw["flag"]; !ok || v != zygo.SexpNull {
		t.Errorf("flag = %v, want SexpNull", v)
	}
}

func TestToFloat64(t *testing.T) {
	if f, err := toFloat64(&zygo.SexpInt{Val: 4}); err != nil || f != 4 {
		t.Errorf("toFloat64(int 4) = %g, %v", f, err)
	}
	if f, err := toFloat64(&zygo.SexpFloat{Val: 2.5}); err != nil || f != 2.5 {
		t.Errorf("toFloat64(2.5) = %g, %v", f, err)
	}
	if _, err := toFloat64(&zygo.SexpStr{S: "x"}); err == nil {
		t.Error("toFloat64(string) succeeded, want error")
	}
}

func TestToKeywordString(t *testing.T) {
	if s, err := toKeywordString(&zygo.SexpStr{S: "__kw_boundary"}); err != nil || s != "boundary" {
		t.Errorf("= %q, %v; want boundary", s, err)
	}
	if s, err := toKeywordString(&zygo.SexpStr{S: "boundary"}); err != nil || s != "boundary" {
		t.Errorf("= %q, %v; want boundary", s, err)
	}
	if _, err := toKeywordString(&zygo.SexpInt{Val: 1}); err == nil {
		t.Error("want error for non-string")
	}
}

func TestToExtensionMode(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"__kw_none", false},
		{"__kw_boundary", false},
		{"__kw_custom", false},
		{"__kw_sideways", true},
	}
	for _, tt := range tests {
		_, err := toExtensionMode(&zygo.SexpStr{S: tt.in})
		if (err != nil) != tt.wantErr {
			t.Errorf("toExtensionMode(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}

func TestBuiltinErrors(t *testing.T) {
	eng := newTestEngine()

	tests := []struct {
		name    string
		source  string
		wantMsg string
	}{
		{"vec3 arity", `(vec3 1 2)`, "vec3"},
		{"plane empty domain", `(plane)`, "empty"},
		{"cylinder bad radius", `(cylinder :radius -1 :vmax 10)`, "radius"},
		{"line arity", `(line (vec3 0 0 0))`, "line"},
		{"bezier arity", `(bezier (vec3 0 0 0) (vec3 1 0 0))`, "bezier"},
		{"bad direction", `(trim-face :surface (plane :umax 1 :vmax 1)
			:curves (list (line (vec3 0 0 0) (vec3 1 0 0)))
			:direction :diagonal)`, "direction"},
		{"keep half specified", `(trim-face :surface (plane :umax 1 :vmax 1)
			:curves (list (line (vec3 0 0 0) (vec3 1 0 0)))
			:keep-u 0.5)`, "keep"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, evalErrs, err := eng.Evaluate(tt.source)
			if err != nil {
				t.Fatalf("fatal error: %v", err)
			}
			if out != nil {
				t.Fatal("expected nil outcome")
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected eval errors")
			}
			if !strings.Contains(evalErrs[0].Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", evalErrs[0].Message, tt.wantMsg)
			}
		})
	}
}

func TestCylinderBuiltin(t *testing.T) {
	eng := newTestEngine()

	// A half-cylinder trimmed by a straight axial cut near the seam.
	source := `
(trim-face :surface (cylinder :radius 10 :umin 0.2 :umax 2.9 :vmax 50)
           :curves (list (line (vec3 10.5 0 0) (vec3 10.5 0 50) :name "Axial"))
           :direction :custom :vector (vec3 -1 0 0)
           :name "Shell")
`
	out, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if len(out.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(out.Results))
	}
	if out.Results[0].Root.Name != "Shell" {
		t.Errorf("root name = %q, want Shell", out.Results[0].Root.Name)
	}
}
