// landgen generates landsync.StateNode implementations for Go structs.
//
// Usage:
//
//	//go:generate landgen -type=GameState,Player
//
// A field opts into a non-default sync policy with a `sync` tag:
//
//	Round int32 `land:"0"`
//	Hand  []int32 `land:"1" sync:"perPlayer=OwnsHand"`
//	Score int32 `land:"2" sync:"masked=RoundedScore"`
//
// `sync` values: serverOnly, perPlayer=FilterFuncName, perPlayerSlice,
// masked=TransformFuncName, custom=TransformFuncName. Omitted means
// broadcast, the common case. `atomic:"true"` forces whole-value replacement
// on a nested struct field instead of member-by-member diffing.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
)

var (
	typeNames = flag.String("type", "", "comma-separated list of type names")
	output    = flag.String("output", "", "output file name; default srcdir/<type>_land.go")
)

func main() {
	flag.Parse()

	if *typeNames == "" {
		fmt.Fprintln(os.Stderr, "landgen: -type flag is required")
		os.Exit(1)
	}

	types := strings.Split(*typeNames, ",")
	for i := range types {
		types[i] = strings.TrimSpace(types[i])
	}

	dir := "."
	if args := flag.Args(); len(args) > 0 {
		dir = args[0]
	}

	g := &Generator{types: make(map[string]*TypeInfo)}

	if err := g.parsePackage(dir); err != nil {
		fmt.Fprintf(os.Stderr, "landgen: %v\n", err)
		os.Exit(1)
	}

	for _, typeName := range types {
		if _, ok := g.types[typeName]; !ok {
			fmt.Fprintf(os.Stderr, "landgen: type %q not found\n", typeName)
			os.Exit(1)
		}
	}

	var buf bytes.Buffer
	if err := g.generate(&buf, types); err != nil {
		fmt.Fprintf(os.Stderr, "landgen: %v\n", err)
		os.Exit(1)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		fmt.Fprintf(os.Stderr, "landgen: format error: %v\n%s\n", err, buf.String())
		os.Exit(1)
	}

	outputName := *output
	if outputName == "" {
		baseName := strings.ToLower(types[0]) + "_land.go"
		outputName = filepath.Join(dir, baseName)
	}

	if err := os.WriteFile(outputName, src, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "landgen: %v\n", err)
		os.Exit(1)
	}
}

// Generator collects type information and generates code.
type Generator struct {
	pkg   string
	types map[string]*TypeInfo
}

// TypeInfo holds parsed information about one struct type.
type TypeInfo struct {
	Name   string
	Fields []FieldInfo
}

// FieldInfo holds parsed information about one field.
type FieldInfo struct {
	Name      string
	Type      string
	Index     int
	IsPointer bool
	IsSlice   bool
	ElemType  string

	// PolicyKind is one of "broadcast", "serverOnly", "perPlayer",
	// "perPlayerSlice", "masked", "custom".
	PolicyKind string
	// PolicyFunc names the filter/transform function for perPlayer, masked,
	// and custom policies.
	PolicyFunc string
	Atomic     bool
}

func (g *Generator) parsePackage(dir string) error {
	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, dir, nil, parser.ParseComments)
	if err != nil {
		return err
	}

	for pkgName, pkg := range pkgs {
		if strings.HasSuffix(pkgName, "_test") {
			continue
		}
		g.pkg = pkgName
		for _, file := range pkg.Files {
			g.parseFile(file)
		}
	}
	return nil
}

func (g *Generator) parseFile(file *ast.File) {
	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			continue
		}

		for _, spec := range genDecl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			structType, ok := typeSpec.Type.(*ast.StructType)
			if !ok {
				continue
			}

			typeInfo := &TypeInfo{Name: typeSpec.Name.Name, Fields: make([]FieldInfo, 0)}

			fieldIndex := 0
			for _, field := range structType.Fields.List {
				if len(field.Names) == 0 {
					continue // skip embedded fields (e.g. landsync.Tracking)
				}
				for _, name := range field.Names {
					if !ast.IsExported(name.Name) {
						continue
					}

					fi := FieldInfo{Name: name.Name, Index: fieldIndex, PolicyKind: "broadcast"}
					fi.Type, fi.IsPointer, fi.IsSlice, fi.ElemType = parseFieldType(field.Type)

					if field.Tag != nil {
						tag := strings.Trim(field.Tag.Value, "`")
						if idx := parseLandIndex(tag); idx >= 0 {
							fi.Index = idx
						}
						fi.PolicyKind, fi.PolicyFunc = parseSyncTag(tag)
						fi.Atomic = parseTagBool(tag, "atomic")
					}

					typeInfo.Fields = append(typeInfo.Fields, fi)
					fieldIndex++
				}
			}

			g.types[typeInfo.Name] = typeInfo
		}
	}
}

func parseFieldType(expr ast.Expr) (typeName string, isPtr, isSlice bool, elemType string) {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name, false, false, ""
	case *ast.StarExpr:
		inner, _, _, _ := parseFieldType(t.X)
		return "*" + inner, true, false, ""
	case *ast.ArrayType:
		elem, _, _, _ := parseFieldType(t.Elt)
		return "[]" + elem, false, true, elem
	case *ast.SelectorExpr:
		pkg, _, _, _ := parseFieldType(t.X)
		return pkg + "." + t.Sel.Name, false, false, ""
	default:
		return "interface{}", false, false, ""
	}
}

// parseLandIndex extracts the explicit field index from `land:"N"`.
func parseLandIndex(tag string) int {
	for _, part := range strings.Split(tag, " ") {
		if strings.HasPrefix(part, "land:") {
			val := strings.Trim(strings.TrimPrefix(part, "land:"), "\"")
			if idx, err := strconv.Atoi(val); err == nil {
				return idx
			}
		}
	}
	return -1
}

// parseSyncTag extracts the policy kind and, where applicable, its function
// name from `sync:"..."`.
func parseSyncTag(tag string) (kind, fn string) {
	val := parseTagValue(tag, "sync")
	if val == "" {
		return "broadcast", ""
	}
	if eq := strings.IndexByte(val, '='); eq >= 0 {
		return val[:eq], val[eq+1:]
	}
	return val, ""
}

func parseTagValue(tag, key string) string {
	prefix := key + ":"
	for _, part := range strings.Split(tag, " ") {
		if strings.HasPrefix(part, prefix) {
			return strings.Trim(strings.TrimPrefix(part, prefix), "\"")
		}
	}
	return ""
}

func parseTagBool(tag, key string) bool {
	val := parseTagValue(tag, key)
	return val == "true" || val == "1"
}

func (g *Generator) generate(buf *bytes.Buffer, types []string) error {
	tmpl, err := template.New("land").Funcs(template.FuncMap{
		"lower":        strings.ToLower,
		"isStateNode":  func(t string) bool { return g.types[t] != nil },
		"zeroValue":    zeroValue,
		"policyExpr":   policyExpr,
		"maxIndex":     func(fields []FieldInfo) int { return len(fields) - 1 },
		"comparable":   isComparable,
	}).Parse(landTemplate)
	if err != nil {
		return err
	}

	data := struct {
		Package string
		Types   []*TypeInfo
	}{
		Package: g.pkg,
		Types:   make([]*TypeInfo, 0, len(types)),
	}
	for _, name := range types {
		data.Types = append(data.Types, g.types[name])
	}

	return tmpl.Execute(buf, data)
}

// policyExpr renders the landsync.SyncPolicy constructor call for a field.
func policyExpr(fi FieldInfo) string {
	switch fi.PolicyKind {
	case "serverOnly":
		return "landsync.ServerOnly()"
	case "perPlayer":
		return fmt.Sprintf("landsync.PerPlayer(%s)", fi.PolicyFunc)
	case "perPlayerSlice":
		return "landsync.PerPlayerSlice()"
	case "masked":
		return fmt.Sprintf("landsync.Masked(%s)", fi.PolicyFunc)
	case "custom":
		return fmt.Sprintf("landsync.Custom(%s)", fi.PolicyFunc)
	default:
		return "landsync.Broadcast()"
	}
}

func zeroValue(fi FieldInfo) string {
	if fi.IsPointer || fi.IsSlice {
		return "nil"
	}
	switch fi.Type {
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64",
		"float32", "float64", "byte":
		return "0"
	case "string":
		return `""`
	case "bool":
		return "false"
	default:
		return fi.Type + "{}"
	}
}

func isComparable(fi FieldInfo) bool {
	return !fi.IsSlice
}

const landTemplate = `// Code generated by landgen. DO NOT EDIT.

package {{.Package}}

import (
	"github.com/landkeeper/landsync"
)

{{range .Types}}
{{$type := .}}
// {{.Name}}Schema returns the field schema for {{.Name}}.
func {{.Name}}Schema() *landsync.Schema {
	return landsync.NewSchemaBuilder("{{.Name}}").
		{{- range .Fields}}
		{{- if .Atomic}}
		AtomicField("{{.Name}}", {{policyExpr .}}).
		{{- else if isStateNode .Type}}
		Struct("{{.Name}}", {{policyExpr .}}, {{.Type}}Schema()).
		{{- else}}
		Field("{{.Name}}", {{policyExpr .}}).
		{{- end}}
		{{- end}}
		Build()
}

var {{.Name | lower}}Schema = {{.Name}}Schema()

// Schema implements landsync.StateNode.
func (s *{{.Name}}) Schema() *landsync.Schema {
	return {{.Name | lower}}Schema
}

// MarkAllDirty implements landsync.StateNode.
func (s *{{.Name}}) MarkAllDirty() {
	s.Tracking.MarkAllDirty({{len .Fields}})
}

// GetFieldValue implements landsync.StateNode.
func (s *{{.Name}}) GetFieldValue(index uint8) interface{} {
	switch index {
	{{- range .Fields}}
	case {{.Index}}:
		{{- if isStateNode .Type}}
		return &s.{{.Name}}
		{{- else}}
		return s.{{.Name}}
		{{- end}}
	{{- end}}
	}
	return nil
}

{{range .Fields}}
{{- if comparable .}}
// Set{{.Name}} sets {{.Name}} and marks it changed if the value differs.
func (s *{{$type.Name}}) Set{{.Name}}(v {{.Type}}) {
	if s.{{.Name}} != v {
		s.{{.Name}} = v
		s.Changes().Mark({{.Index}}, landsync.FieldOpReplace)
	}
}
{{- else}}
// Set{{.Name}} replaces {{.Name}} and marks it changed.
func (s *{{$type.Name}}) Set{{.Name}}(v {{.Type}}) {
	s.{{.Name}} = v
	s.Changes().Mark({{.Index}}, landsync.FieldOpReplace)
}

{{- if .IsSlice}}
// Append{{.Name}} adds an element to {{.Name}} and marks it changed.
func (s *{{$type.Name}}) Append{{.Name}}(v {{.ElemType}}) {
	s.{{.Name}} = append(s.{{.Name}}, v)
	s.Changes().Mark({{.Index}}, landsync.FieldOpAdd)
}

// Remove{{.Name}}At removes the element at index from {{.Name}} and marks it
// changed. Out-of-range indices are ignored.
func (s *{{$type.Name}}) Remove{{.Name}}At(index int) {
	if index < 0 || index >= len(s.{{.Name}}) {
		return
	}
	s.{{.Name}} = append(s.{{.Name}}[:index], s.{{.Name}}[index+1:]...)
	s.Changes().Mark({{.Index}}, landsync.FieldOpRemove)
}
{{- end}}
{{- end}}
{{end}}
{{end}}
`
