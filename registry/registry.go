package registry

import (
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anirudhraja/wirecodec/schema"
)

// ErrNotFound is returned by lookups for names that were never registered.
var ErrNotFound = errors.New("not found")

// Registry allows us to store the schema of the protobuf messages. We look
// this up when we need to parse or marshal a nested message. It is safe for
// concurrent use; descriptors are immutable once registered.
type Registry struct {
	// ProtoDirectories are the roots searched for .proto files and imports.
	ProtoDirectories []string

	mu       sync.RWMutex
	files    map[string]*schema.ProtoFile // resolved path -> file
	messages map[string]*schema.Message   // fully qualified name -> message
	enums    map[string]*schema.Enum      // fully qualified name -> enum
	services map[string]*schema.Service   // fully qualified name -> service
	logger   *zap.Logger
	fsys     fs.FS // nil reads from the OS filesystem
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for schema loading events.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithFS makes the registry read .proto files from fsys instead of the OS
// filesystem. ProtoDirectories are then slash-separated paths within fsys.
func WithFS(fsys fs.FS) Option {
	return func(r *Registry) { r.fsys = fsys }
}

// NewRegistry returns a registry that resolves .proto paths against protoDirs
// and already knows the well-known google.protobuf message types.
func NewRegistry(protoDirs []string, opts ...Option) *Registry {
	r := &Registry{
		ProtoDirectories: protoDirs,
		files:            make(map[string]*schema.ProtoFile),
		messages:         make(map[string]*schema.Message),
		enums:            make(map[string]*schema.Enum),
		services:         make(map[string]*schema.Service),
		logger:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, msg := range wellKnownMessages() {
		r.messages[msg.FullName] = msg
	}
	return r
}

// RegisterMessage validates msg and registers it, with its nested types,
// under pkg. Field type names must already be fully qualified.
func (r *Registry) RegisterMessage(pkg string, msg *schema.Message) error {
	staged := make(map[string]*schema.Message)
	stagedEnums := make(map[string]*schema.Enum)
	if err := stageMessage(getFullName(pkg, ""), msg, staged, stagedEnums); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, m := range staged {
		r.messages[name] = m
	}
	for name, e := range stagedEnums {
		r.enums[name] = e
	}
	r.logger.Debug("registered message", zap.String("message", msg.FullName), zap.Int("fields", len(msg.AllFields())))
	return nil
}

// stageMessage assigns full names and validates msg and its nested types.
func stageMessage(scope string, msg *schema.Message, staged map[string]*schema.Message, stagedEnums map[string]*schema.Enum) error {
	if msg.Name == "" {
		return errors.New("message name is empty")
	}
	fullName := getFullName(scope, msg.Name)
	msg.FullName = fullName
	if err := ValidateMessage(msg); err != nil {
		return err
	}
	staged[fullName] = msg

	for _, nested := range msg.NestedTypes {
		if err := stageMessage(fullName, nested, staged, stagedEnums); err != nil {
			return err
		}
	}
	for _, enum := range msg.NestedEnums {
		stagedEnums[getFullName(fullName, enum.Name)] = enum
	}
	return nil
}

// ValidateMessage checks the descriptor table of a single message: positive
// unique field numbers, unique names, and supported kinds.
func ValidateMessage(msg *schema.Message) error {
	numbers := make(map[int32]string)
	names := make(map[string]struct{})
	for _, f := range msg.AllFields() {
		if f.Number <= 0 || f.Number > 1<<29-1 {
			return errors.Newf("message %s: field %s has invalid number %d", msg.Name, f.Name, f.Number)
		}
		if prev, dup := numbers[f.Number]; dup {
			return errors.Newf("message %s: fields %s and %s share number %d", msg.Name, prev, f.Name, f.Number)
		}
		numbers[f.Number] = f.Name
		if _, dup := names[f.Name]; dup {
			return errors.Newf("message %s: duplicate field name %s", msg.Name, f.Name)
		}
		names[f.Name] = struct{}{}

		switch f.Type.Kind {
		case schema.KindPrimitive:
			if _, ok := schema.LookupPrimitive(string(f.Type.PrimitiveType)); !ok {
				return errors.Newf("message %s: field %s has unsupported type %q", msg.Name, f.Name, f.Type.PrimitiveType)
			}
		case schema.KindMessage:
			if f.Type.MessageType == "" {
				return errors.Newf("message %s: field %s has no message type", msg.Name, f.Name)
			}
		case schema.KindEnum:
			if f.Type.EnumType == "" {
				return errors.Newf("message %s: field %s has no enum type", msg.Name, f.Name)
			}
		case schema.KindMap:
			if !f.Type.IsStringMap() {
				return errors.Newf("message %s: field %s: only map<string,string> is supported", msg.Name, f.Name)
			}
			if f.Label == schema.LabelRepeated {
				return errors.Newf("message %s: map field %s cannot be repeated", msg.Name, f.Name)
			}
		default:
			return errors.Newf("message %s: field %s has unknown kind %q", msg.Name, f.Name, f.Type.Kind)
		}
		if f.JsonName == "" {
			f.JsonName = schema.JSONName(f.Name)
		}
	}
	return nil
}

// RegisterEnum registers an enum under pkg.
func (r *Registry) RegisterEnum(pkg string, enum *schema.Enum) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enums[getFullName(pkg, enum.Name)] = enum
}

func getFullName(pkg, name string) string {
	switch {
	case pkg == "":
		return name
	case name == "":
		return pkg
	default:
		return pkg + "." + name
	}
}

// GetMessage retrieves a message definition by fully qualified name. A bare
// or partially qualified name matches the first registered name with that
// suffix, in sorted order.
func (r *Registry) GetMessage(name string) (*schema.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name = strings.TrimPrefix(name, ".")
	if msg, exists := r.messages[name]; exists {
		return msg, nil
	}
	if full, ok := lookupSuffix(r.messages, name); ok {
		return r.messages[full], nil
	}
	return nil, errors.Wrapf(ErrNotFound, "message %s", name)
}

// GetEnum retrieves an enum definition by name
func (r *Registry) GetEnum(name string) (*schema.Enum, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name = strings.TrimPrefix(name, ".")
	if enum, exists := r.enums[name]; exists {
		return enum, nil
	}
	if full, ok := lookupSuffix(r.enums, name); ok {
		return r.enums[full], nil
	}
	return nil, errors.Wrapf(ErrNotFound, "enum %s", name)
}

// GetService retrieves a service definition by name
func (r *Registry) GetService(name string) (*schema.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if service, exists := r.services[name]; exists {
		return service, nil
	}
	if full, ok := lookupSuffix(r.services, name); ok {
		return r.services[full], nil
	}
	return nil, errors.Wrapf(ErrNotFound, "service %s", name)
}

func lookupSuffix[T any](table map[string]T, name string) (string, bool) {
	for _, full := range sortedKeys(table) {
		if strings.HasSuffix(full, "."+name) {
			return full, true
		}
	}
	return "", false
}

// ListMessages returns all registered message names, sorted
func (r *Registry) ListMessages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.messages)
}

// ListEnums returns all registered enum names, sorted
func (r *Registry) ListEnums() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.enums)
}

// ListServices returns all registered service names, sorted
func (r *Registry) ListServices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.services)
}

func sortedKeys[T any](table map[string]T) []string {
	names := lo.Keys(table)
	sort.Strings(names)
	return names
}

// wellKnownMessages are the google/protobuf types that .proto imports may
// reference without the files being on disk.
func wellKnownMessages() []*schema.Message {
	return []*schema.Message{
		{
			Name:     "Any",
			FullName: "google.protobuf.Any",
			Fields: []*schema.Field{
				{Name: "type_url", JsonName: "typeUrl", Number: 1, Label: schema.LabelOptional,
					Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString}},
				{Name: "value", JsonName: "value", Number: 2, Label: schema.LabelOptional,
					Type: schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeBytes}},
			},
		},
		{
			Name:     "Empty",
			FullName: "google.protobuf.Empty",
		},
	}
}
