package main

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"

	"github.com/anirudhraja/wirecodec/internal/logutil"
	"github.com/anirudhraja/wirecodec/wire"
)

// Config is the optional TOML file passed with -config. Flags given on the
// command line win over values from the file.
type Config struct {
	ProtoDirs []string       `toml:"proto_dirs"`
	Protos    []string       `toml:"protos"`
	Bundled   bool           `toml:"bundled"`
	Format    string         `toml:"format"`
	Decode    DecodeConfig   `toml:"decode"`
	Log       logutil.Config `toml:"log"`
}

type DecodeConfig struct {
	Strict          bool `toml:"strict"`
	PreserveUnknown bool `toml:"preserve_unknown"`
	MaxDepth        int  `toml:"max_depth"`
}

func defaultConfig() Config {
	return Config{
		Format: "hex",
		Log:    logutil.Config{Level: "warn", Format: "console"},
	}
}

// loadConfig reads path over the defaults. An empty path returns the
// defaults with the WIRECODEC_* environment toggles applied.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	env := wire.ConfigFromEnv()
	cfg.Decode = DecodeConfig{
		Strict:          env.StrictWireTypeOnDecode,
		PreserveUnknown: env.PreserveUnknownBytesOnDecode,
		MaxDepth:        env.MaxDepth,
	}
	if path == "" {
		if err := cfg.Validate(); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrapf(err, "load config %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, errors.Newf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	switch c.Format {
	case "hex", "base64", "raw":
	default:
		return errors.Newf("format must be hex, base64 or raw, got %q", c.Format)
	}
	if c.Decode.MaxDepth < 0 {
		return errors.Newf("decode.max_depth must not be negative, got %d", c.Decode.MaxDepth)
	}
	for _, dir := range c.ProtoDirs {
		if strings.TrimSpace(dir) == "" {
			return errors.New("proto_dirs contains an empty entry")
		}
	}
	return nil
}

func (c Config) wireConfig() wire.Config {
	return wire.Config{
		StrictWireTypeOnDecode:       c.Decode.Strict,
		PreserveUnknownBytesOnDecode: c.Decode.PreserveUnknown,
		MaxDepth:                     c.Decode.MaxDepth,
	}
}
