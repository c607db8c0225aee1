package render_test

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/ctf"
	"github.com/wippyai/ctf/container"
	"github.com/wippyai/ctf/errors"
	"github.com/wippyai/ctf/render"
)

// buildDict assembles a dictionary exercising every declaration shape.
func buildDict(t *testing.T) (*container.Container, map[string]ctf.TypeID) {
	t.Helper()
	c := container.NewDict(ctf.ModelLP64)
	t.Cleanup(func() { c.Close() })

	ids := make(map[string]ctf.TypeID)

	add := func(name string, id ctf.TypeID, e error) ctf.TypeID {
		t.Helper()
		if e != nil {
			t.Fatalf("building %q: %v", name, e)
		}
		ids[name] = id
		return id
	}

	id, err := c.AddInteger("int", ctf.Encoding{Format: ctf.IntSigned, Bits: 32}, true)
	intID := add("int", id, err)
	id, err = c.AddInteger("char", ctf.Encoding{Format: ctf.IntSigned | ctf.IntChar, Bits: 8}, true)
	charID := add("char", id, err)

	id, err = c.AddPointer(intID, true)
	ptrInt := add("int *", id, err)
	id, err = c.AddPointer(ptrInt, true)
	add("int **", id, err)

	arrInt, err := c.AddArray(ctf.ArrayInfo{Contents: intID, Index: intID, NumElems: 10}, true)
	add("int [10]", arrInt, err)

	// array of pointers: int *p[10]
	arrPtr, err := c.AddArray(ctf.ArrayInfo{Contents: ptrInt, Index: intID, NumElems: 10}, true)
	add("int *[10]", arrPtr, err)

	// pointer to array: int (*p)[10]
	id, err = c.AddPointer(arrInt, true)
	add("int (*)[10]", id, err)

	id, err = c.AddFunction(intID, []ctf.TypeID{charID}, true)
	fnID := add("fn", id, err)
	id, err = c.AddPointer(fnID, true)
	add("fnptr", id, err)

	id, err = c.AddStruct("pair", true)
	sID := add("struct pair", id, err)
	if err := c.AddMember(sID, "a", intID); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	id, err = c.AddPointer(sID, true)
	add("struct pair *", id, err)

	id, err = c.AddConst(charID, true)
	cID := add("const char", id, err)
	id, err = c.AddPointer(cID, true)
	add("const char *", id, err)

	id, err = c.AddTypedef("counter_t", intID, true)
	add("counter_t", id, err)
	id, err = c.AddEnum("color", true)
	add("enum color", id, err)
	id, err = c.AddForward("later", ctf.KindUnion, true)
	add("forward", id, err)
	id, err = c.AddVolatile(intID, true)
	add("volatile int", id, err)

	return c, ids
}

func TestDeclarations(t *testing.T) {
	c, ids := buildDict(t)

	cases := []struct {
		typ   string
		ident string
		want  string
	}{
		{"int", "x", "int x"},
		{"int", "", "int"},
		{"int *", "b", "int *b"},
		{"int **", "pp", "int **pp"},
		{"int [10]", "a", "int a[10]"},
		{"int *[10]", "arr", "int *arr[10]"},
		{"int (*)[10]", "arr", "int (*arr)[10]"},
		{"int (*)[10]", "", "int (*)[10]"},
		{"fn", "f", "int f()"},
		{"fnptr", "f", "int (*f)()"},
		{"struct pair", "p", "struct pair p"},
		{"struct pair *", "p", "struct pair *p"},
		{"const char", "c", "char const c"},
		{"const char *", "s", "char const *s"},
		{"counter_t", "n", "counter_t n"},
		{"enum color", "e", "enum color e"},
		{"forward", "u", "union later u"},
		{"volatile int", "v", "int volatile v"},
	}
	for _, tc := range cases {
		got, err := render.Declaration(c, ids[tc.typ], tc.ident)
		if err != nil {
			t.Errorf("Declaration(%q, %q): %v", tc.typ, tc.ident, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Declaration(%q, %q): got %q, want %q", tc.typ, tc.ident, got, tc.want)
		}
	}
}

func TestTypeNameSurvivesCommit(t *testing.T) {
	c, ids := buildDict(t)
	if err := c.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	r, err := container.Open(ctf.Section{Data: c.Bytes()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	got, err := render.Declaration(r, ids["int (*)[10]"], "arr")
	if err != nil {
		t.Fatalf("Declaration: %v", err)
	}
	if got != "int (*arr)[10]" {
		t.Fatalf("after reopen: got %q", got)
	}
}

func TestTruncation(t *testing.T) {
	c, ids := buildDict(t)
	got, err := render.Declaration(c, ids["struct pair *"], "p", render.WithMaxLen(6))
	if !stderrors.Is(err, errors.New(errors.PhaseRender, errors.KindTruncated).Build()) {
		t.Fatalf("expected truncated error, got: %v", err)
	}
	if got != "struct" {
		t.Fatalf("truncated output: got %q", got)
	}
}

func TestRenderInvalidID(t *testing.T) {
	c, _ := buildDict(t)
	_, err := render.Declaration(c, 9999, "x")
	if !stderrors.Is(err, errors.New(errors.PhaseRender, errors.KindInvalidID).Build()) {
		t.Fatalf("expected render error, got: %v", err)
	}
}
