package wirecodec

import (
	"io/fs"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/anirudhraja/wirecodec/registry"
	"github.com/anirudhraja/wirecodec/schema"
	"github.com/anirudhraja/wirecodec/wire"
)

// ===== SCHEMA-AWARE API =====

// Codec provides schema-aware protobuf operations without generated code.
// A Codec is safe for concurrent use once its schema is loaded.
type Codec struct {
	registry *registry.Registry
	config   wire.Config
	logger   *zap.Logger
}

// Option configures a Codec.
type Option func(*codecOptions)

type codecOptions struct {
	protoDirs []string
	protoFS   fs.FS
	config    wire.Config
	logger    *zap.Logger
}

// WithProtoDirs sets the roots searched for .proto files and their imports.
func WithProtoDirs(dirs ...string) Option {
	return func(o *codecOptions) { o.protoDirs = append(o.protoDirs, dirs...) }
}

// WithProtoFS reads .proto files from fsys, such as protos.FS, instead of
// the OS filesystem.
func WithProtoFS(fsys fs.FS) Option {
	return func(o *codecOptions) { o.protoFS = fsys }
}

// WithConfig sets the decode policy.
func WithConfig(c wire.Config) Option {
	return func(o *codecOptions) { o.config = c }
}

// WithLogger sets the logger for schema loading.
func WithLogger(l *zap.Logger) Option {
	return func(o *codecOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates a new Codec. Without WithProtoDirs, .proto paths are resolved
// relative to the working directory.
func New(opts ...Option) *Codec {
	o := codecOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	regOpts := []registry.Option{registry.WithLogger(o.logger)}
	if o.protoFS != nil {
		regOpts = append(regOpts, registry.WithFS(o.protoFS))
	}
	return &Codec{
		registry: registry.NewRegistry(o.protoDirs, regOpts...),
		config:   o.config,
		logger:   o.logger,
	}
}

// LoadSchemaFromFile loads a .proto file and everything it imports.
func (c *Codec) LoadSchemaFromFile(protoPath string) error {
	if err := c.registry.LoadSchemaFromFile(protoPath); err != nil {
		c.logger.Warn("failed to load schema", zap.String("file", protoPath), zap.Error(err))
		return err
	}
	return nil
}

// RegisterMessage adds a hand-built descriptor table under pkg.
func (c *Codec) RegisterMessage(pkg string, msg *schema.Message) error {
	return c.registry.RegisterMessage(pkg, msg)
}

// Parse decodes protobuf bytes using schema-aware decoder
func (c *Codec) Parse(data []byte, messageType string) (map[string]interface{}, error) {
	msg, err := c.registry.GetMessage(messageType)
	if err != nil {
		return nil, errors.Wrapf(err, "message type not found: %s", messageType)
	}
	return wire.DecodeMessageWithConfig(data, msg, c.registry, c.config)
}

// Marshal encodes a map to protobuf bytes using schema information
func (c *Codec) Marshal(data map[string]interface{}, messageType string) ([]byte, error) {
	msg, err := c.registry.GetMessage(messageType)
	if err != nil {
		return nil, errors.Wrapf(err, "message type not found: %s", messageType)
	}
	return wire.EncodeMessage(data, msg, c.registry)
}

// Unmarshal decodes protobuf bytes into a tagged Go struct using this
// codec's decode policy.
func (c *Codec) Unmarshal(data []byte, v interface{}) error {
	return UnmarshalWithConfig(data, v, c.config)
}

// Scan reads every top-level field of data without a schema.
func Scan(data []byte) ([]wire.Value, error) {
	d := wire.NewDecoder(data)
	var values []wire.Value
	for {
		v, err := d.DecodeField()
		if err != nil {
			return nil, err
		}
		if v == nil {
			return values, nil
		}
		values = append(values, *v)
	}
}

// ===== REGISTRY ACCESS =====

func (c *Codec) GetRegistry() *registry.Registry { return c.registry }
func (c *Codec) ListMessages() []string          { return c.registry.ListMessages() }
func (c *Codec) ListEnums() []string             { return c.registry.ListEnums() }
func (c *Codec) ListServices() []string          { return c.registry.ListServices() }
