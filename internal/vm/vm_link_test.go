package vm

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fallen-lang/fallen/internal/config"
	"github.com/fallen-lang/fallen/internal/lexer"
	"github.com/fallen-lang/fallen/internal/parser"
)

// writeModule drops a source file into dir for import tests.
func writeModule(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
}

// runScript compiles and runs mainSrc as dir/main.fallen, so imports
// resolve against dir.
func runScript(t *testing.T, dir, mainSrc string) (string, error) {
	t.Helper()
	mainPath := filepath.Join(dir, "main.fallen")
	writeModule(t, dir, "main.fallen", mainSrc)

	tree, err := parser.New(lexer.New(mainSrc)).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	prog, err := NewCompiler(mainPath).Compile(tree)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	var out bytes.Buffer
	machine := New(prog, Options{
		Stdout:    &out,
		Stdin:     strings.NewReader(""),
		ColorMode: "never",
		BaseDir:   dir,
	})
	err = machine.Run()
	return out.String(), err
}

const utilSrc = `
func double(x =i) =i {
	return x + x
}
base =i 10
_secret =i 99
`

func TestImportExposesPublicNames(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "util.fallen", utilSrc)

	out, err := runScript(t, dir, "import 'util'\nwrite(double(4))\nwrite(base)\n")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := "8\n10\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestImportAliasPrefixesNames(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "util.fallen", utilSrc)

	out, err := runScript(t, dir, "import 'util' as u\nwrite(u_double(4))\nwrite(u_base)\n")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := "8\n10\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}

	_, err = runScript(t, dir, "import 'util' as u\nwrite(double(1))\n")
	var rerr *RuntimeError
	if !errors.As(err, &rerr) || rerr.Message != "undefined function: double" {
		t.Errorf("unprefixed name should stay hidden, got %v", err)
	}
}

func TestImportHidesUnderscoreNames(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "util.fallen", utilSrc)

	_, err := runScript(t, dir, "import 'util'\nwrite(_secret)\n")
	var rerr *RuntimeError
	if !errors.As(err, &rerr) || rerr.Message != "undefined variable: _secret" {
		t.Errorf("expected _secret to be private, got %v", err)
	}
}

func TestImportHonorsExportList(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "pair.fallen", "a =i 1\nb =i 2\nexport a\n")

	out, err := runScript(t, dir, "import 'pair' as p\nwrite(p_a)\n")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := "1\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}

	_, err = runScript(t, dir, "import 'pair' as p\nwrite(p_b)\n")
	var rerr *RuntimeError
	if !errors.As(err, &rerr) || rerr.Message != "undefined variable: p_b" {
		t.Errorf("unexported b should be hidden, got %v", err)
	}
}

func TestImportRunsTopLevelOnce(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "noisy.fallen", "write('init')\n")

	out, err := runScript(t, dir, "import 'noisy'\nimport 'noisy'\nwrite('done')\n")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := "init\ndone\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestCircularImport(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "a.fallen", "import 'b'\nwrite('a loaded')\n")
	writeModule(t, dir, "b.fallen", "import 'a'\nwrite('b loaded')\n")

	out, err := runScript(t, dir, "import 'a'\n")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := "b loaded\na loaded\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestModuleFunctionsSeeModuleGlobals(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "cfg.fallen", `
limit =i 5
func cap(x =i) =i {
	if x > limit {
		return limit
	}
	return x
}
`)

	out, err := runScript(t, dir, "import 'cfg' as c\nwrite(c_cap(9))\nwrite(c_cap(3))\n")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := "5\n3\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestImportMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := runScript(t, dir, "import 'ghost'\n")
	var ierr *ImportError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected *ImportError, got %T: %v", err, err)
	}
	if ierr.Path != "ghost" {
		t.Errorf("path: got %q, want %q", ierr.Path, "ghost")
	}
}

func TestImportNameConflict(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "util.fallen", utilSrc)

	src := `
func double(x =i) =i {
	return x * 2
}
import 'util'
`
	_, err := runScript(t, dir, src)
	var ierr *ImportError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected *ImportError, got %T: %v", err, err)
	}
	if !strings.Contains(ierr.Error(), "conflicts with existing function: double") {
		t.Errorf("got %q", ierr.Error())
	}
}

func TestImportCompileErrorIsWrapped(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "broken.fallen", "export ghost\n")

	_, err := runScript(t, dir, "import 'broken'\n")
	var ierr *ImportError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected *ImportError, got %T: %v", err, err)
	}
	var cerr *CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("wrapped error should be a *CompileError, got %v", ierr.Err)
	}
}

func TestImportInsideFunctionStoresModuleGlobals(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "lib.fallen", "limit =i 7\nfunc cap() =i {\n return limit\n}\n")

	src := `
func setup() {
	import 'lib'
}
setup()
write(cap())
write(limit)
`
	out, err := runScript(t, dir, src)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := "7\n7\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestImportRuntimeErrorIsWrapped(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "bad.fallen", "x =i 1 / 0\n")

	_, err := runScript(t, dir, "import 'bad'\n")
	var ierr *ImportError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected *ImportError, got %T: %v", err, err)
	}
	if ierr.Path != "bad" {
		t.Errorf("path: got %q, want %q", ierr.Path, "bad")
	}
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("wrapped error should be a *RuntimeError, got %v", ierr.Err)
	}
	if rerr.Message != "division by zero" {
		t.Errorf("message: got %q", rerr.Message)
	}
	if len(rerr.Trace) == 0 || rerr.Trace[0].Function != config.ModuleFrame {
		t.Errorf("trace should enter through %s, got %+v", config.ModuleFrame, rerr.Trace)
	}
}
