// unrealtool is a CLI utility for inspecting and importing UNREALFORMAT
// containers (.uemodel, .ueworld).
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/ueformat/internal/config"
	"github.com/Faultbox/ueformat/internal/export"
	"github.com/Faultbox/ueformat/internal/logger"
	"github.com/Faultbox/ueformat/internal/scene"
	"github.com/Faultbox/ueformat/pkg/formats"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

func run(args []string, stdout io.Writer) error {
	if len(args) < 1 {
		printUsage(os.Stderr)
		return errUsage
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "info":
		return cmdInfo(args, stdout)
	case "chunks", "ls":
		return cmdChunks(args, stdout)
	case "dump":
		return cmdDump(args, stdout)
	case "import":
		return cmdImport(args, stdout)
	case "config":
		return cmdConfig(args, stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stderr)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `unrealtool - UNREALFORMAT container utility

Usage:
  unrealtool <command> [options]

Commands:
  info <file>...            Show header and record counts
  chunks <file>             List the chunks of a record body
  dump [-f fmt] [-o out] <file>
                            Materialize and write the scene as yaml or cbor
  import <file>...          Materialize files into one scene and summarize it
  config [--save path] [--write]
                            Print the effective configuration, save it to
                            path or write it to the user config directory

Common options:
  --config path             Config file (default: ./ueformat.yaml or user config dir)
  --debug                   Enable debug logging
  -j, --workers n           Decode nested world meshes concurrently
  --lenient                 Accept chunks whose size differs from their header

Examples:
  unrealtool info SK_Hero.uemodel
  unrealtool chunks Lobby.ueworld
  unrealtool dump -f cbor -o lobby.cbor Lobby.ueworld`)
}

// command is the state shared by every subcommand after flag parsing.
type command struct {
	flags *pflag.FlagSet
	cfg   *config.Config
	log   *zap.Logger
}

func (c *command) decoder() *formats.Decoder {
	return formats.NewDecoder(c.cfg.Decode.Options(logger.Named("decoder")))
}

func (c *command) builder() *scene.Builder {
	return scene.NewBuilder(c.cfg.Import.Options(logger.Named("scene")))
}

// setup parses args, loads the config and initializes logging. extra
// registers command-specific flags.
func setup(name string, args []string, extra func(*pflag.FlagSet)) (*command, error) {
	var flags config.Flags
	set := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.AddFlags(set)
	if extra != nil {
		extra(set)
	}
	if err := set.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, errUsage
		}
		return nil, err
	}

	cfg, err := config.Load(&flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	return &command{flags: set, cfg: cfg, log: logger.Named(name)}, nil
}

func (c *command) needArgs(n int, usage string) error {
	if c.flags.NArg() < n {
		fmt.Fprintf(os.Stderr, "Usage: unrealtool %s\n", usage)
		return errUsage
	}
	return nil
}

func cmdInfo(args []string, stdout io.Writer) error {
	c, err := setup("info", args, nil)
	if err != nil {
		return err
	}
	defer logger.Sync()
	if err := c.needArgs(1, "info <file>..."); err != nil {
		return err
	}

	d := c.decoder()
	var errs error
	for _, path := range c.flags.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		obj, err := d.Decode(data)
		if formats.IsNotThisFormat(err) {
			fmt.Fprintf(stdout, "%s: not an UNREALFORMAT file\n", path)
			continue
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		printObject(stdout, path, obj)
	}
	return errs
}

func printObject(w io.Writer, path string, obj *formats.Object) {
	h := obj.Header
	fmt.Fprintf(w, "File:        %s\n", path)
	fmt.Fprintf(w, "Kind:        %s\n", h.Kind)
	fmt.Fprintf(w, "Name:        %s\n", h.Name)
	fmt.Fprintf(w, "Version:     %d\n", h.Version)
	if h.Compressed {
		fmt.Fprintf(w, "Compression: %s\n", h.Compression)
	} else {
		fmt.Fprintln(w, "Compression: none")
	}

	switch {
	case obj.Mesh != nil:
		printMesh(w, "", obj.Mesh)
	case obj.World != nil:
		fmt.Fprintf(w, "Meshes:      %d\n", len(obj.World.Meshes))
		fmt.Fprintf(w, "Actors:      %d\n", len(obj.World.Actors))
		uses := obj.World.ActorsByMesh()
		for _, hm := range obj.World.Meshes {
			fmt.Fprintf(w, "  [%d] %s (%d actors)\n", hm.Hash, hm.Header.Name, uses[hm.Hash])
			printMesh(w, "      ", hm.Mesh)
		}
	}
	fmt.Fprintln(w)
}

func printMesh(w io.Writer, indent string, m *formats.Mesh) {
	fmt.Fprintf(w, "%sVertices:    %d\n", indent, m.VertexCount())
	fmt.Fprintf(w, "%sTriangles:   %d\n", indent, m.TriangleCount())
	if len(m.Materials) > 0 {
		fmt.Fprintf(w, "%sMaterials:   %d\n", indent, len(m.Materials))
	}
	if len(m.Bones) > 0 {
		fmt.Fprintf(w, "%sBones:       %d (%d weights)\n", indent, len(m.Bones), len(m.Weights))
	}
	if len(m.MorphTargets) > 0 {
		fmt.Fprintf(w, "%sMorphs:      %d\n", indent, len(m.MorphTargets))
	}
	if len(m.Sockets) > 0 {
		fmt.Fprintf(w, "%sSockets:     %d\n", indent, len(m.Sockets))
	}
}

func cmdChunks(args []string, stdout io.Writer) error {
	c, err := setup("chunks", args, nil)
	if err != nil {
		return err
	}
	defer logger.Sync()
	if err := c.needArgs(1, "chunks <file>"); err != nil {
		return err
	}

	path := c.flags.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	h, body, err := c.decoder().ReadBody(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	headers, err := formats.ListChunks(body)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	fmt.Fprintf(stdout, "%s %q (%d chunks)\n", h.Kind, h.Name, len(headers))
	for _, ch := range headers {
		fmt.Fprintf(stdout, "  %-14s count=%-8d bytes=%d\n", ch.Name, ch.Count, ch.ByteLength)
	}
	return nil
}

func cmdDump(args []string, stdout io.Writer) error {
	var output string
	c, err := setup("dump", args, func(set *pflag.FlagSet) {
		set.StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	})
	if err != nil {
		return err
	}
	defer logger.Sync()
	if err := c.needArgs(1, "dump [-f yaml|cbor] [-o out] <file>"); err != nil {
		return err
	}

	format, err := export.ParseFormat(c.cfg.Output.Format)
	if err != nil {
		return err
	}

	s, err := c.materialize(c.builder(), c.flags.Arg(0))
	if err != nil {
		return err
	}

	doc := export.FromScene(s)
	if output == "" {
		return export.Write(stdout, format, doc)
	}
	if err := writeDocument(output, format, doc); err != nil {
		return err
	}
	c.log.Info("wrote scene", zap.String("path", output), zap.String("format", string(format)))
	return nil
}

// writeDocument writes doc to path, reporting a failed close as an error.
func writeDocument(path string, format export.Format, doc *export.Document) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()
	return export.Write(f, format, doc)
}

func cmdImport(args []string, stdout io.Writer) error {
	c, err := setup("import", args, nil)
	if err != nil {
		return err
	}
	defer logger.Sync()
	if err := c.needArgs(1, "import <file>..."); err != nil {
		return err
	}

	b := c.builder()
	for _, path := range c.flags.Args() {
		if _, err := c.materialize(b, path); err != nil {
			return err
		}
	}

	st := b.Scene().Stats()
	c.log.Info("import complete",
		zap.Int("files", c.flags.NArg()),
		zap.Int("objects", st.Objects),
		zap.Int("vertices", st.Vertices))

	fmt.Fprintf(stdout, "Objects:    %d (%d linked)\n", st.Objects, len(b.Scene().Linked()))
	fmt.Fprintf(stdout, "Meshes:     %d\n", st.Meshes)
	fmt.Fprintf(stdout, "Materials:  %d\n", st.Materials)
	fmt.Fprintf(stdout, "Vertices:   %d\n", st.Vertices)
	fmt.Fprintf(stdout, "Triangles:  %d\n", st.Triangles)
	fmt.Fprintf(stdout, "Bones:      %d\n", st.Bones)
	fmt.Fprintf(stdout, "Sockets:    %d\n", st.Sockets)
	fmt.Fprintf(stdout, "Shape keys: %d\n", st.ShapeKeys)
	return nil
}

func (c *command) materialize(b *scene.Builder, path string) (*scene.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	obj, err := c.decoder().Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b.Materialize(obj)
}

func cmdConfig(args []string, stdout io.Writer) error {
	var savePath string
	var write bool
	c, err := setup("config", args, func(set *pflag.FlagSet) {
		set.StringVar(&savePath, "save", "", "write the effective config to this path")
		set.BoolVar(&write, "write", false, "write the effective config to the user config directory")
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	switch {
	case savePath != "":
		if err := c.cfg.SaveTo(savePath); err != nil {
			return err
		}
		c.log.Info("saved config", zap.String("path", savePath))
		return nil
	case write:
		if err := c.cfg.Save(); err != nil {
			return err
		}
		c.log.Info("saved config", zap.String("dir", config.ConfigDir()))
		return nil
	}

	data, err := yaml.Marshal(c.cfg)
	if err != nil {
		return err
	}
	_, err = stdout.Write(data)
	return err
}
