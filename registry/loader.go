package registry

import (
	"bytes"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	protoparser "github.com/yoheimuta/go-protoparser/v4"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"
	"go.uber.org/zap"

	"github.com/anirudhraja/wirecodec/schema"
)

// pendingType is a field whose type name still needs scope resolution.
type pendingType struct {
	scope string
	name  string
	field *schema.Field
}

// loadState accumulates one LoadSchemaFromFile call before it is committed.
type loadState struct {
	files    map[string]*schema.ProtoFile
	messages map[string]*schema.Message
	enums    map[string]*schema.Enum
	services map[string]*schema.Service
	pending  []pendingType
	methods  []pendingMethod
}

// pendingMethod is an RPC whose request and response names need resolution.
type pendingMethod struct {
	scope  string
	method *schema.Method
}

// LoadSchemaFromFile parses protoFile and, depth first, every file it
// imports, then resolves field type references and registers the result.
// Imports under google/protobuf are served by the built-in well-known types.
// Nothing is registered if any file fails to parse or resolve.
func (r *Registry) LoadSchemaFromFile(protoFile string) error {
	st := &loadState{
		files:    make(map[string]*schema.ProtoFile),
		messages: make(map[string]*schema.Message),
		enums:    make(map[string]*schema.Enum),
		services: make(map[string]*schema.Service),
	}

	visited := make(map[string]struct{})
	var dfs func(path string) error
	dfs = func(path string) error {
		if _, ok := visited[path]; ok {
			return nil
		}
		visited[path] = struct{}{}

		r.mu.RLock()
		_, loaded := r.files[path]
		r.mu.RUnlock()
		if loaded {
			return nil
		}

		content, err := r.readFile(path)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", path)
		}
		file, parsed, err := parseProtoFile(path, content)
		if err != nil {
			return err
		}
		st.files[path] = file
		r.logger.Debug("parsed proto file", zap.String("path", path), zap.String("package", file.Package))

		for _, imp := range file.Imports {
			if strings.HasPrefix(imp.Path, "google/protobuf/") {
				continue
			}
			importPath, err := r.findIfProtoExists(imp.Path)
			if err != nil {
				return errors.Wrapf(err, "import %s from %s", imp.Path, path)
			}
			if err := dfs(importPath); err != nil {
				return err
			}
		}
		return st.collect(file, parsed)
	}

	protoPath, err := r.findIfProtoExists(protoFile)
	if err != nil {
		return err
	}
	if err := dfs(protoPath); err != nil {
		return err
	}
	if err := r.resolve(st); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for path, f := range st.files {
		r.files[path] = f
	}
	for name, m := range st.messages {
		r.messages[name] = m
	}
	for name, e := range st.enums {
		r.enums[name] = e
	}
	for name, s := range st.services {
		r.services[name] = s
	}
	r.logger.Info("loaded proto schema",
		zap.String("file", protoPath),
		zap.Int("files", len(st.files)),
		zap.Int("messages", len(st.messages)),
		zap.Int("services", len(st.services)))
	return nil
}

// parseProtoFile parses one file with go-protoparser.
func parseProtoFile(path string, content []byte) (*schema.ProtoFile, *protoparserparser.Proto, error) {
	parsed, err := protoparser.Parse(
		bytes.NewReader(content),
		protoparser.WithFilename(filepath.Base(path)),
		protoparser.WithPermissive(true),
	)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to parse %s", path)
	}

	file := &schema.ProtoFile{
		Name:   filepath.Base(path),
		Syntax: "proto3",
	}
	if parsed.Syntax != nil && parsed.Syntax.ProtobufVersion != "" {
		file.Syntax = parsed.Syntax.ProtobufVersion
	}
	for _, body := range parsed.ProtoBody {
		switch b := body.(type) {
		case *protoparserparser.Package:
			file.Package = b.Name
		case *protoparserparser.Import:
			file.Imports = append(file.Imports, &schema.Import{
				Path:   strings.Trim(b.Location, `"`),
				Public: b.Modifier == protoparserparser.ImportModifierPublic,
				Weak:   b.Modifier == protoparserparser.ImportModifierWeak,
			})
		}
	}
	return file, parsed, nil
}

// collect converts the parsed top-level declarations of one file.
func (st *loadState) collect(file *schema.ProtoFile, parsed *protoparserparser.Proto) error {
	for _, body := range parsed.ProtoBody {
		switch b := body.(type) {
		case *protoparserparser.Message:
			msg, err := st.convertMessage(file.Package, b)
			if err != nil {
				return errors.Wrapf(err, "file %s", file.Name)
			}
			file.Messages = append(file.Messages, msg)
		case *protoparserparser.Enum:
			enum, err := convertEnum(b)
			if err != nil {
				return errors.Wrapf(err, "file %s", file.Name)
			}
			st.enums[getFullName(file.Package, enum.Name)] = enum
			file.Enums = append(file.Enums, enum)
		case *protoparserparser.Service:
			svc := convertService(b)
			for _, m := range svc.Methods {
				st.methods = append(st.methods, pendingMethod{scope: file.Package, method: m})
			}
			st.services[getFullName(file.Package, svc.Name)] = svc
			file.Services = append(file.Services, svc)
		}
	}
	return nil
}

func (st *loadState) convertMessage(scope string, m *protoparserparser.Message) (*schema.Message, error) {
	msg := &schema.Message{
		Name:     m.MessageName,
		FullName: getFullName(scope, m.MessageName),
	}
	st.messages[msg.FullName] = msg

	for _, body := range m.MessageBody {
		switch b := body.(type) {
		case *protoparserparser.Field:
			field, err := st.convertField(msg.FullName, b.FieldName, b.FieldNumber, b.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "message %s", msg.FullName)
			}
			if b.IsRepeated {
				field.Label = schema.LabelRepeated
			}
			msg.Fields = append(msg.Fields, field)
		case *protoparserparser.MapField:
			number, err := parseFieldNumber(b.FieldNumber)
			if err != nil {
				return nil, errors.Wrapf(err, "message %s field %s", msg.FullName, b.MapName)
			}
			if b.KeyType != "string" || b.Type != "string" {
				return nil, errors.Newf("message %s field %s: only map<string,string> is supported, got map<%s,%s>",
					msg.FullName, b.MapName, b.KeyType, b.Type)
			}
			msg.Fields = append(msg.Fields, &schema.Field{
				Name:     b.MapName,
				JsonName: schema.JSONName(b.MapName),
				Number:   number,
				Label:    schema.LabelOptional,
				Type:     schema.StringMap(),
			})
		case *protoparserparser.Oneof:
			group := &schema.Oneof{Name: b.OneofName}
			for _, of := range b.OneofFields {
				field, err := st.convertField(msg.FullName, of.FieldName, of.FieldNumber, of.Type)
				if err != nil {
					return nil, errors.Wrapf(err, "message %s oneof %s", msg.FullName, b.OneofName)
				}
				group.Fields = append(group.Fields, field)
			}
			msg.OneofGroups = append(msg.OneofGroups, group)
		case *protoparserparser.Message:
			nested, err := st.convertMessage(msg.FullName, b)
			if err != nil {
				return nil, err
			}
			msg.NestedTypes = append(msg.NestedTypes, nested)
		case *protoparserparser.Enum:
			enum, err := convertEnum(b)
			if err != nil {
				return nil, errors.Wrapf(err, "message %s", msg.FullName)
			}
			st.enums[getFullName(msg.FullName, enum.Name)] = enum
			msg.NestedEnums = append(msg.NestedEnums, enum)
		}
	}
	return msg, nil
}

// convertField builds a field whose scalar type is known now; named types
// are queued for resolution once every file has been collected.
func (st *loadState) convertField(scope, name, numberText, typeName string) (*schema.Field, error) {
	number, err := parseFieldNumber(numberText)
	if err != nil {
		return nil, errors.Wrapf(err, "field %s", name)
	}
	field := &schema.Field{
		Name:     name,
		JsonName: schema.JSONName(name),
		Number:   number,
		Label:    schema.LabelOptional,
	}
	if pt, ok := schema.LookupPrimitive(typeName); ok {
		field.Type = schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: pt}
		return field, nil
	}
	if isUnsupportedScalar(typeName) {
		return nil, errors.Newf("field %s: scalar type %s is not supported by this codec", name, typeName)
	}
	st.pending = append(st.pending, pendingType{scope: scope, name: typeName, field: field})
	return field, nil
}

func isUnsupportedScalar(typeName string) bool {
	switch typeName {
	case "double", "float", "fixed32", "fixed64", "sfixed32", "sfixed64", "sint32", "sint64":
		return true
	}
	return false
}

func parseFieldNumber(text string) (int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid field number %q", text)
	}
	return int32(n), nil
}

func convertEnum(e *protoparserparser.Enum) (*schema.Enum, error) {
	enum := &schema.Enum{Name: e.EnumName}
	for _, body := range e.EnumBody {
		ef, ok := body.(*protoparserparser.EnumField)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(ef.Number), 0, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "enum %s value %s", e.EnumName, ef.Ident)
		}
		enum.Values = append(enum.Values, &schema.EnumValue{Name: ef.Ident, Number: int32(n)})
	}
	return enum, nil
}

func convertService(s *protoparserparser.Service) *schema.Service {
	svc := &schema.Service{Name: s.ServiceName}
	for _, body := range s.ServiceBody {
		rpc, ok := body.(*protoparserparser.RPC)
		if !ok {
			continue
		}
		method := &schema.Method{Name: rpc.RPCName}
		if rpc.RPCRequest != nil {
			method.InputType = rpc.RPCRequest.MessageType
			method.ClientStreaming = rpc.RPCRequest.IsStream
		}
		if rpc.RPCResponse != nil {
			method.OutputType = rpc.RPCResponse.MessageType
			method.ServerStreaming = rpc.RPCResponse.IsStream
		}
		svc.Methods = append(svc.Methods, method)
	}
	return svc
}

// resolve binds pending type names to messages or enums, from this load or
// from earlier registrations, qualifies RPC types, then validates every new
// message.
func (r *Registry) resolve(st *loadState) error {
	messageNames := make(map[string]struct{})
	enumNames := make(map[string]struct{})
	r.mu.RLock()
	for name := range r.messages {
		messageNames[name] = struct{}{}
	}
	for name := range r.enums {
		enumNames[name] = struct{}{}
	}
	r.mu.RUnlock()
	for name := range st.messages {
		messageNames[name] = struct{}{}
	}
	for name := range st.enums {
		enumNames[name] = struct{}{}
	}
	known := make(map[string]struct{}, len(messageNames)+len(enumNames))
	for name := range messageNames {
		known[name] = struct{}{}
	}
	for name := range enumNames {
		known[name] = struct{}{}
	}

	for _, p := range st.pending {
		full, err := getReferencedType(p.name, p.scope, known)
		if err != nil {
			return errors.Wrapf(err, "field %s.%s", p.scope, p.field.Name)
		}
		if _, isEnum := enumNames[full]; isEnum {
			p.field.Type = schema.FieldType{Kind: schema.KindEnum, EnumType: full}
		} else {
			p.field.Type = schema.FieldType{Kind: schema.KindMessage, MessageType: full}
		}
	}

	for _, p := range st.methods {
		in, err := getReferencedType(p.method.InputType, p.scope, messageNames)
		if err != nil {
			return errors.Wrapf(err, "rpc %s input", p.method.Name)
		}
		out, err := getReferencedType(p.method.OutputType, p.scope, messageNames)
		if err != nil {
			return errors.Wrapf(err, "rpc %s output", p.method.Name)
		}
		p.method.InputType, p.method.OutputType = in, out
	}

	for _, msg := range st.messages {
		if err := ValidateMessage(msg); err != nil {
			return err
		}
	}
	return nil
}

// Files returns the loaded proto files keyed by resolved path.
func (r *Registry) Files() map[string]*schema.ProtoFile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*schema.ProtoFile, len(r.files))
	for k, v := range r.files {
		out[k] = v
	}
	return out
}
