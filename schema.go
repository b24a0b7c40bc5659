package landsync

import "fmt"

// FieldMeta describes a single root-level field of a state tree: its name on
// the wire, how it is projected per viewer, and whether it nests further
// schema-described structure.
type FieldMeta struct {
	Index  uint8      // Field index (0-255), position in the owning Schema
	Name   string     // Field name, used verbatim in JSON Pointer paths
	Policy SyncPolicy // Visibility/projection rule applied at extraction time

	// Atomic marks a field whose value is always replaced as a whole unit
	// rather than diffed member-by-member, even when its Kind is array or
	// object. Declaring this on the schema avoids inferring it from runtime
	// shape, which would make diff behavior depend on incidental structure.
	Atomic bool

	// ChildSchema describes the nested StateNode stored in this field, when
	// the field holds another tracked sub-tree rather than a plain value.
	ChildSchema *Schema
}

// Schema describes the fields of a StateNode. A Land's root state and every
// nested tracked sub-object each carry their own Schema.
type Schema struct {
	ID     uint16
	Name   string
	Fields []FieldMeta
	byName map[string]int
}

// NewSchema creates an empty schema definition.
func NewSchema(id uint16, name string) *Schema {
	return &Schema{
		ID:     id,
		Name:   name,
		Fields: make([]FieldMeta, 0),
		byName: make(map[string]int),
	}
}

// AddField appends a field; its Index must equal its position.
func (s *Schema) AddField(field FieldMeta) *Schema {
	if field.Index != uint8(len(s.Fields)) {
		panic(fmt.Sprintf("landsync: field index %d doesn't match position %d", field.Index, len(s.Fields)))
	}
	s.byName[field.Name] = len(s.Fields)
	s.Fields = append(s.Fields, field)
	return s
}

// Field returns field meta by index, or nil if out of range.
func (s *Schema) Field(index uint8) *FieldMeta {
	if int(index) >= len(s.Fields) {
		return nil
	}
	return &s.Fields[index]
}

// FieldByName returns field meta by name, or nil.
func (s *Schema) FieldByName(name string) *FieldMeta {
	if idx, ok := s.byName[name]; ok {
		return &s.Fields[idx]
	}
	return nil
}

// FieldCount returns the number of fields in the schema.
func (s *Schema) FieldCount() int {
	return len(s.Fields)
}

// MaxIndex returns the highest valid field index.
func (s *Schema) MaxIndex() uint8 {
	if len(s.Fields) == 0 {
		return 0
	}
	return uint8(len(s.Fields) - 1)
}

// StateNode is implemented by a Land's root state and by every nested
// tracked sub-object. Implementations are generated by cmd/landgen from
// struct tags, or hand-written for small types.
type StateNode interface {
	// Schema returns the type's field schema.
	Schema() *Schema

	// Changes returns the node's dirty-bit tracker.
	Changes() *ChangeSet

	// ClearChanges clears all tracked dirty bits, normally called once a
	// tick's diffs have been computed and delivered.
	ClearChanges()

	// MarkAllDirty marks every field dirty, used to force a full resync.
	MarkAllDirty()

	// GetFieldValue returns the current value of a field by index, boxed as
	// one of the Go types FromAny understands.
	GetFieldValue(index uint8) interface{}
}

// SchemaRegistry maps schema IDs and names to Schema definitions, letting a
// wire message reference a schema by ID instead of repeating field layout.
type SchemaRegistry struct {
	schemas map[uint16]*Schema
	byName  map[string]*Schema
	nextID  uint16
}

// NewSchemaRegistry creates a new, empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{
		schemas: make(map[uint16]*Schema),
		byName:  make(map[string]*Schema),
		nextID:  1,
	}
}

// Register adds a schema, assigning it an ID if it doesn't already have one.
func (r *SchemaRegistry) Register(schema *Schema) {
	if schema.ID == 0 {
		schema.ID = r.nextID
		r.nextID++
	}
	r.schemas[schema.ID] = schema
	r.byName[schema.Name] = schema
}

// Get returns a schema by ID.
func (r *SchemaRegistry) Get(id uint16) *Schema {
	return r.schemas[id]
}

// GetByName returns a schema by name.
func (r *SchemaRegistry) GetByName(name string) *Schema {
	return r.byName[name]
}

// registerSchemaTree registers schema and every schema reachable from it
// through a ChildSchema, so a caller that only has the root type's schema
// can still resolve a nested struct field's schema by ID or name later.
func registerSchemaTree(reg *SchemaRegistry, schema *Schema) {
	if schema == nil {
		return
	}
	reg.Register(schema)
	for _, field := range schema.Fields {
		registerSchemaTree(reg, field.ChildSchema)
	}
}

// SchemaBuilder provides a fluent API for hand-building a schema; generated
// code uses this same API, just produced by cmd/landgen instead of by hand.
type SchemaBuilder struct {
	schema *Schema
}

// NewSchemaBuilder starts building a schema with the given type name.
func NewSchemaBuilder(name string) *SchemaBuilder {
	return &SchemaBuilder{schema: NewSchema(0, name)}
}

// WithID pins the schema's registry ID.
func (b *SchemaBuilder) WithID(id uint16) *SchemaBuilder {
	b.schema.ID = id
	return b
}

// Field adds a plain value field with the given policy.
func (b *SchemaBuilder) Field(name string, policy SyncPolicy) *SchemaBuilder {
	b.schema.AddField(FieldMeta{
		Index:  uint8(len(b.schema.Fields)),
		Name:   name,
		Policy: policy,
	})
	return b
}

// AtomicField adds a value field that is always replaced as a whole unit
// when it changes, rather than diffed structurally.
func (b *SchemaBuilder) AtomicField(name string, policy SyncPolicy) *SchemaBuilder {
	b.schema.AddField(FieldMeta{
		Index:  uint8(len(b.schema.Fields)),
		Name:   name,
		Policy: policy,
		Atomic: true,
	})
	return b
}

// Struct adds a nested StateNode field.
func (b *SchemaBuilder) Struct(name string, policy SyncPolicy, child *Schema) *SchemaBuilder {
	b.schema.AddField(FieldMeta{
		Index:       uint8(len(b.schema.Fields)),
		Name:        name,
		Policy:      policy,
		ChildSchema: child,
	})
	return b
}

// Build returns the completed schema.
func (b *SchemaBuilder) Build() *Schema {
	return b.schema
}
