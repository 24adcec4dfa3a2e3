package analyze

import (
	"testing"

	"github.com/graphlint/graphlint/internal/lang"
)

const pythonSource = `import os
import numpy as np
from collections import OrderedDict
from .util import helper as h

class Base:
    kind = "base"

    def __init__(self, name):
        self.name = name

    def describe(self):
        return self.name

class Invoice(Base):
    def __init__(self, total, currency="USD"):
        self.total = total
        self.currency = currency

    def add_line(self, amount, note=None, *extras):
        self.last_amount = amount

def standalone(x, y=1):
    return x + y
`

func parsePython(t *testing.T) *ModuleDecl {
	t.Helper()
	mod, err := File("billing/invoice.py", lang.Python, []byte(pythonSource))
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	return mod
}

func findClass(t *testing.T, mod *ModuleDecl, name string) *ClassDecl {
	t.Helper()
	for i := range mod.Classes {
		if mod.Classes[i].Name == name {
			return &mod.Classes[i]
		}
	}
	t.Fatalf("class %s not found (have %d classes)", name, len(mod.Classes))
	return nil
}

func TestPythonClasses(t *testing.T) {
	mod := parsePython(t)

	if len(mod.Classes) != 2 {
		t.Fatalf("expected 2 classes, got %d", len(mod.Classes))
	}

	base := findClass(t, mod, "Base")
	if len(base.Bases) != 0 {
		t.Errorf("Base should have no bases, got %v", base.Bases)
	}
	if len(base.Methods) != 2 {
		t.Errorf("Base should have 2 methods, got %d", len(base.Methods))
	}

	inv := findClass(t, mod, "Invoice")
	if len(inv.Bases) != 1 || inv.Bases[0] != "Base" {
		t.Errorf("Invoice bases: got %v, want [Base]", inv.Bases)
	}
}

func TestPythonMethodParams(t *testing.T) {
	mod := parsePython(t)
	inv := findClass(t, mod, "Invoice")

	var addLine *FuncDecl
	for i := range inv.Methods {
		if inv.Methods[i].Name == "add_line" {
			addLine = &inv.Methods[i]
		}
	}
	if addLine == nil {
		t.Fatal("add_line not found")
	}

	// self is the receiver, not a call-site parameter
	if len(addLine.Params) != 2 {
		t.Fatalf("add_line params: got %d, want 2 (%v)", len(addLine.Params), addLine.Params)
	}
	if addLine.Params[0].Name != "amount" || addLine.Params[0].HasDefault {
		t.Errorf("param 0: got %+v", addLine.Params[0])
	}
	if addLine.Params[1].Name != "note" || !addLine.Params[1].HasDefault {
		t.Errorf("param 1: got %+v", addLine.Params[1])
	}
	if !addLine.Variadic {
		t.Error("add_line should be variadic (*extras)")
	}
}

func TestPythonAttributes(t *testing.T) {
	mod := parsePython(t)

	base := findClass(t, mod, "Base")
	names := map[string]bool{}
	for _, a := range base.Attributes {
		names[a.Name] = true
	}
	if !names["kind"] || !names["name"] {
		t.Errorf("Base attributes: got %v, want kind and name", names)
	}

	inv := findClass(t, mod, "Invoice")
	names = map[string]bool{}
	for _, a := range inv.Attributes {
		names[a.Name] = true
	}
	for _, want := range []string{"total", "currency", "last_amount"} {
		if !names[want] {
			t.Errorf("Invoice missing attribute %s (have %v)", want, names)
		}
	}
}

func TestPythonFunctions(t *testing.T) {
	mod := parsePython(t)
	if len(mod.Functions) != 1 || mod.Functions[0].Name != "standalone" {
		t.Fatalf("functions: got %+v", mod.Functions)
	}
	fn := mod.Functions[0]
	if len(fn.Params) != 2 {
		t.Fatalf("standalone params: got %d", len(fn.Params))
	}
	if RequiredParams(fn.Params) != 1 {
		t.Errorf("standalone required params: got %d, want 1", RequiredParams(fn.Params))
	}
	if fn.StartLine == 0 {
		t.Error("expected non-zero start line")
	}
}

func TestPythonImports(t *testing.T) {
	mod := parsePython(t)
	if len(mod.Imports) != 4 {
		t.Fatalf("imports: got %d, want 4 (%+v)", len(mod.Imports), mod.Imports)
	}

	table := ImportTable("myrepo", "billing/invoice.py", mod.Imports)
	if table["np"] != "myrepo.numpy" {
		t.Errorf("np: got %q", table["np"])
	}
	if table["OrderedDict"] != "myrepo.collections.OrderedDict" {
		t.Errorf("OrderedDict: got %q", table["OrderedDict"])
	}
	// from .util import helper as h → relative to billing/
	if table["h"] != "myrepo.billing.util.helper" {
		t.Errorf("h: got %q", table["h"])
	}
	if table["os"] != "myrepo.os" {
		t.Errorf("os: got %q", table["os"])
	}
}

func TestPythonNestedClass(t *testing.T) {
	source := `class Outer:
    class Inner:
        def ping(self):
            pass
`
	mod, err := File("m.py", lang.Python, []byte(source))
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	inner := findClass(t, mod, "Outer.Inner")
	if len(inner.Methods) != 1 || inner.Methods[0].Name != "ping" {
		t.Errorf("Outer.Inner methods: %+v", inner.Methods)
	}
	outer := findClass(t, mod, "Outer")
	if len(outer.Methods) != 0 {
		t.Errorf("Outer should own no methods, got %+v", outer.Methods)
	}
}

func TestGoStructMethods(t *testing.T) {
	source := `package server

import (
	"fmt"
	nethttp "net/http"
)

type Server struct {
	Addr string
	port int
}

func (s *Server) Listen(timeout int, opts ...string) error {
	return fmt.Errorf("unimplemented %s", nethttp.MethodGet)
}

func NewServer(addr string) *Server {
	return &Server{Addr: addr}
}
`
	mod, err := File("server/server.go", lang.Go, []byte(source))
	if err != nil {
		t.Fatalf("File: %v", err)
	}

	srv := findClass(t, mod, "Server")
	if len(srv.Methods) != 1 || srv.Methods[0].Name != "Listen" {
		t.Fatalf("Server methods: %+v", srv.Methods)
	}
	if !srv.Methods[0].Variadic {
		t.Error("Listen should be variadic")
	}
	attrs := map[string]string{}
	for _, a := range srv.Attributes {
		attrs[a.Name] = a.Annotation
	}
	if attrs["Addr"] != "string" || attrs["port"] != "int" {
		t.Errorf("Server attributes: %v", attrs)
	}

	if len(mod.Functions) != 1 || mod.Functions[0].Name != "NewServer" {
		t.Errorf("functions: %+v", mod.Functions)
	}

	table := ImportTable("myrepo", "server/server.go", mod.Imports)
	if table["nethttp"] != "net.http" {
		t.Errorf("nethttp: got %q", table["nethttp"])
	}
	if table["fmt"] != "myrepo.fmt" {
		t.Errorf("fmt: got %q", table["fmt"])
	}
}

func TestTypeScriptClass(t *testing.T) {
	source := `import { Component } from "./base";

export class Widget extends Component {
  label: string;

  render(depth: number, pretty = false): string {
    return this.label;
  }
}
`
	mod, err := File("ui/widget.ts", lang.TypeScript, []byte(source))
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	w := findClass(t, mod, "Widget")
	if len(w.Bases) != 1 || w.Bases[0] != "Component" {
		t.Errorf("Widget bases: %v", w.Bases)
	}
	if len(w.Attributes) != 1 || w.Attributes[0].Name != "label" {
		t.Errorf("Widget attributes: %+v", w.Attributes)
	}
	if len(w.Methods) != 1 {
		t.Fatalf("Widget methods: %+v", w.Methods)
	}
	m := w.Methods[0]
	if m.Name != "render" || len(m.Params) != 2 {
		t.Fatalf("render: %+v", m)
	}
	if !m.Params[1].HasDefault {
		t.Error("pretty should have a default")
	}

	table := ImportTable("myrepo", "ui/widget.ts", mod.Imports)
	if table["Component"] != "myrepo.ui.base.Component" {
		t.Errorf("Component: got %q", table["Component"])
	}
}

func TestMalformedConstructSkipped(t *testing.T) {
	// A class with a broken method still yields the class and its valid members.
	source := `class Ok:
    def fine(self):
        pass

def also_fine():
    pass

def broken(:
`
	mod, err := File("m.py", lang.Python, []byte(source))
	if err != nil {
		t.Fatalf("File should tolerate malformed constructs: %v", err)
	}
	findClass(t, mod, "Ok")
}

func TestUnsupportedLanguage(t *testing.T) {
	if _, err := File("m.rb", lang.Language("ruby"), []byte("puts 1")); err == nil {
		t.Error("expected error for unsupported language")
	}
}
