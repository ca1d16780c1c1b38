// Command wirecodec encodes, decodes and inspects protobuf payloads using
// .proto files loaded at run time.
//
//	wirecodec encode -proto google/type/date.proto -type google.type.Date < in.json
//	wirecodec decode -bundled -type google.cloud.location.Location < payload.hex
//	wirecodec scan -format base64 < payload.b64
//	wirecodec describe -bundled
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/anirudhraja/wirecodec"
	"github.com/anirudhraja/wirecodec/internal/logutil"
	"github.com/anirudhraja/wirecodec/protos"
	"github.com/anirudhraja/wirecodec/schema"
)

var bundledProtos = []string{
	"google/cloud/location/locations.proto",
	"google/type/date.proto",
}

var jsonAPI = jsoniter.Config{
	UseNumber:              true,
	SortMapKeys:            true,
	EscapeHTML:             false,
	ValidateJsonRawMessage: true,
}.Froze()

type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

type options struct {
	configPath string
	protoDirs  stringList
	protos     stringList
	msgType    string
	format     string
	strict     bool
	bundled    bool
	in         io.Reader
	out        io.Writer
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "wirecodec:", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: wirecodec <encode|decode|scan|describe> [flags]")
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		usage(os.Stderr)
		return errors.New("missing command")
	}
	cmd, args := args[0], args[1:]

	o := options{in: stdin, out: stdout}
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "TOML config file")
	fs.Var(&o.protoDirs, "proto-dir", "import root for .proto files (repeatable)")
	fs.Var(&o.protos, "proto", ".proto file to load (repeatable)")
	fs.StringVar(&o.msgType, "type", "", "fully qualified message name")
	fs.StringVar(&o.format, "format", "", "binary format: hex, base64 or raw")
	fs.BoolVar(&o.strict, "strict", false, "fail on wire type mismatches")
	fs.BoolVar(&o.bundled, "bundled", false, "load the built-in google.cloud.location and google.type protos")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return err
	}
	applyFlags(&cfg, &o, fs)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logutil.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	switch cmd {
	case "scan":
		return scanCmd(cfg, o)
	case "encode", "decode", "describe":
	default:
		usage(os.Stderr)
		return errors.Newf("unknown command %q", cmd)
	}

	codec, err := newCodec(cfg, logger)
	if err != nil {
		return err
	}
	switch cmd {
	case "encode":
		return encodeCmd(codec, cfg, o)
	case "decode":
		return decodeCmd(codec, cfg, o)
	default:
		return describeCmd(codec, o)
	}
}

// applyFlags overlays the flags that were set explicitly.
func applyFlags(cfg *Config, o *options, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "proto-dir":
			cfg.ProtoDirs = o.protoDirs
		case "proto":
			cfg.Protos = o.protos
		case "format":
			cfg.Format = o.format
		case "strict":
			cfg.Decode.Strict = o.strict
		case "bundled":
			cfg.Bundled = o.bundled
		}
	})
}

func newCodec(cfg Config, logger *zap.Logger) (*wirecodec.Codec, error) {
	opts := []wirecodec.Option{
		wirecodec.WithConfig(cfg.wireConfig()),
		wirecodec.WithLogger(logger),
	}
	files := cfg.Protos
	if cfg.Bundled {
		if len(cfg.ProtoDirs) > 0 {
			return nil, errors.New("bundled protos cannot be combined with proto_dirs")
		}
		opts = append(opts, wirecodec.WithProtoFS(protos.FS))
		files = append(append([]string(nil), bundledProtos...), files...)
	} else {
		opts = append(opts, wirecodec.WithProtoDirs(cfg.ProtoDirs...))
	}

	codec := wirecodec.New(opts...)
	for _, f := range files {
		if err := codec.LoadSchemaFromFile(f); err != nil {
			return nil, errors.Wrapf(err, "load %s", f)
		}
	}
	logger.Debug("schema ready", zap.Strings("files", files), zap.Int("messages", len(codec.ListMessages())))
	return codec, nil
}

func encodeCmd(codec *wirecodec.Codec, cfg Config, o options) error {
	if o.msgType == "" {
		return errors.New("encode: -type is required")
	}
	var data map[string]interface{}
	if err := jsonAPI.NewDecoder(o.in).Decode(&data); err != nil {
		return errors.Wrap(err, "encode: read JSON")
	}
	encoded, err := codec.Marshal(data, o.msgType)
	if err != nil {
		return err
	}
	return writeBinary(o.out, cfg.Format, encoded)
}

func decodeCmd(codec *wirecodec.Codec, cfg Config, o options) error {
	if o.msgType == "" {
		return errors.New("decode: -type is required")
	}
	data, err := readBinary(o.in, cfg.Format)
	if err != nil {
		return err
	}
	decoded, err := codec.Parse(data, o.msgType)
	if err != nil {
		return err
	}
	out, err := jsonAPI.MarshalIndent(decoded, "", "  ")
	if err != nil {
		return errors.Wrap(err, "decode: write JSON")
	}
	_, err = fmt.Fprintf(o.out, "%s\n", out)
	return err
}

func scanCmd(cfg Config, o options) error {
	data, err := readBinary(o.in, cfg.Format)
	if err != nil {
		return err
	}
	values, err := wirecodec.Scan(data)
	if err != nil {
		return err
	}
	for _, v := range values {
		switch d := v.Data.(type) {
		case []byte:
			fmt.Fprintf(o.out, "%d\t%s\t%x\n", v.FieldNumber, v.WireType, d)
		default:
			fmt.Fprintf(o.out, "%d\t%s\t%v\n", v.FieldNumber, v.WireType, d)
		}
	}
	return nil
}

func describeCmd(codec *wirecodec.Codec, o options) error {
	reg := codec.GetRegistry()
	for _, name := range codec.ListMessages() {
		msg, err := reg.GetMessage(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(o.out, "message %s\n", name)
		for _, f := range msg.Fields {
			fmt.Fprintf(o.out, "  %d %s %s\n", f.Number, f.Name, describeType(f))
		}
	}
	for _, name := range codec.ListEnums() {
		fmt.Fprintf(o.out, "enum %s\n", name)
	}
	for _, name := range codec.ListServices() {
		svc, err := reg.GetService(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(o.out, "service %s\n", name)
		for _, m := range svc.Methods {
			fmt.Fprintf(o.out, "  rpc %s(%s) returns (%s)\n", m.Name, m.InputType, m.OutputType)
		}
	}
	return nil
}

func describeType(f *schema.Field) string {
	if f.Label == schema.LabelRepeated {
		return "repeated " + f.Type.String()
	}
	return f.Type.String()
}

func readBinary(r io.Reader, format string) ([]byte, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read input")
	}
	switch format {
	case "raw":
		return raw, nil
	case "base64":
		return base64.StdEncoding.DecodeString(string(bytes.TrimSpace(raw)))
	default:
		text := strings.Join(strings.Fields(string(raw)), "")
		return hex.DecodeString(text)
	}
}

func writeBinary(w io.Writer, format string, data []byte) error {
	var err error
	switch format {
	case "raw":
		_, err = w.Write(data)
	case "base64":
		_, err = fmt.Fprintln(w, base64.StdEncoding.EncodeToString(data))
	default:
		_, err = fmt.Fprintln(w, hex.EncodeToString(data))
	}
	return err
}
