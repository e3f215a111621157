package config

import "github.com/spf13/pflag"

// Flags holds command-line overrides. Only flags the user actually set
// are applied.
type Flags struct {
	ConfigPath string
	Debug      bool
	LogFile    string
	Workers    int
	MaxMB      int64
	Lenient    bool
	Format     string
	BoneLength float32
	NoLink     bool

	set *pflag.FlagSet
}

// AddFlags registers the shared flags on set.
func (f *Flags) AddFlags(set *pflag.FlagSet) {
	f.set = set
	set.StringVar(&f.ConfigPath, "config", "", "path to config file")
	set.BoolVar(&f.Debug, "debug", false, "enable debug logging")
	set.StringVar(&f.LogFile, "log-file", "", "also write logs to this file")
	set.IntVarP(&f.Workers, "workers", "j", 0, "decode nested world meshes with this many workers")
	set.Int64Var(&f.MaxMB, "max-decompressed-mb", 0, "limit each decompressed body to this many MiB")
	set.BoolVar(&f.Lenient, "lenient", false, "accept chunks whose size differs from their header")
	set.StringVarP(&f.Format, "format", "f", "", "output format: yaml or cbor")
	set.Float32Var(&f.BoneLength, "bone-length", 0, "bone display length in meters")
	set.BoolVar(&f.NoLink, "no-link", false, "do not link standalone meshes into the scene")
}

func (f *Flags) changed(name string) bool {
	return f.set != nil && f.set.Changed(name)
}

// applyFlags applies CLI flag overrides to the config.
func (f *Flags) applyFlags(cfg *Config) {
	if f.changed("debug") && f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.changed("log-file") {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.changed("workers") {
		cfg.Decode.Workers = f.Workers
	}
	if f.changed("max-decompressed-mb") {
		cfg.Decode.MaxDecompressedMB = f.MaxMB
	}
	if f.changed("lenient") {
		cfg.Decode.Strict = !f.Lenient
	}
	if f.changed("format") {
		cfg.Output.Format = f.Format
	}
	if f.changed("bone-length") {
		cfg.Import.BoneLength = f.BoneLength
	}
	if f.changed("no-link") {
		cfg.Import.LinkRoot = !f.NoLink
	}
}
