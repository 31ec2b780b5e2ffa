// rrdb is the round-robin database command.
//
// Single command:
//
//	rrdb --command=create --dir=data/rrd --filename=nick.rrdb --setcount=1 --samplecount=500 --xform=RRDBCOUNT:ONEDAY
//	rrdb --command=update --dir=data/rrd --filename=nick.rrdb --values=12
//	rrdb --command=fetch --dir=data/rrd --filename=nick.rrdb --xform=0
//
// Without --command (or with --command=-) commands are read from stdin, one
// per line: "command filename args...".
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	defaults "github.com/xtxerr/rrdb/config"
	"github.com/xtxerr/rrdb/internal/errors"
	"github.com/xtxerr/rrdb/internal/logging"
	"github.com/xtxerr/rrdb/internal/shell"
	"github.com/xtxerr/rrdb/internal/storage"
	"github.com/xtxerr/rrdb/internal/storage/config"
	"github.com/xtxerr/rrdb/internal/storage/parquet"
)

// Version is set at build time via ldflags
var Version = "dev"

const defaultConfigPath = "rrdb.yaml"

type options struct {
	command     string
	dir         string
	filename    string
	setCount    int
	sampleCount int
	values      string
	xform       string
	retention   int
	out         string
	configPath  string
	logLevel    string
	logJSON     bool
	compression string
	version     bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseFlags(args)
	if err != nil {
		if err == flag.ErrHelp {
			return errors.CodeOK
		}
		return fail(err)
	}
	if opts.version {
		fmt.Println("rrdb", Version)
		return errors.CodeOK
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return fail(err)
	}
	initLogging(cfg, opts)

	svc, err := storage.New(cfg)
	if err != nil {
		return fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := shell.NewHandler(svc, opts.dir, os.Stdout)
	if opts.compression != "" {
		ct, err := parquet.ParseCompressionType(opts.compression)
		if err != nil {
			return fail(err)
		}
		h.SetParquetOptions(parquet.Options{Compression: ct})
	}

	if opts.command == "" || opts.command == "-" {
		logging.Debug("entering pipe mode", "version", Version, "dir", opts.dir)
		if err := h.Run(ctx, os.Stdin); err != nil {
			return fail(err)
		}
		return errors.CodeOK
	}

	req, err := buildRequest(opts)
	if err != nil {
		return fail(err)
	}
	if err := h.Execute(ctx, req); err != nil {
		return fail(err)
	}
	return errors.CodeOK
}

func parseFlags(args []string) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("rrdb", flag.ContinueOnError)

	fs.StringVar(&o.command, "command", "", "create, update, fetch, info, export, or - for pipe mode")
	fs.StringVar(&o.dir, "dir", "", "data directory (overrides config data_dir)")
	fs.StringVar(&o.filename, "filename", defaults.DefaultFilename, "database file name")
	fs.IntVar(&o.setCount, "setcount", 1, "number of datasets per sample (create)")
	fs.IntVar(&o.sampleCount, "samplecount", 0, "number of raw samples kept (create)")
	fs.StringVar(&o.values, "values", "", "colon-separated sample values (update)")
	fs.StringVar(&o.values, "value", "", "alias for --values")
	fs.StringVar(&o.xform, "xform", "", "transform declaration (create) or transform index (fetch)")
	fs.IntVar(&o.retention, "retention", 0, "closed buckets kept per window, 0 uses config (create)")
	fs.StringVar(&o.out, "out", "", "output directory (export)")
	fs.StringVar(&o.configPath, "config", defaultConfigPath, "config file path")
	fs.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	fs.BoolVar(&o.logJSON, "log-json", false, "log as JSON")
	fs.StringVar(&o.compression, "parquet-compression", "", "export compression: snappy, zstd, lz4, gzip, none")
	fs.BoolVar(&o.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, err
		}
		return nil, errors.NewInvalidValue("flags", args, err.Error())
	}
	if fs.NArg() > 0 {
		return nil, errors.NewInvalidValue("argument", fs.Arg(0), "unexpected")
	}

	explicit := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})
	if !explicit {
		if _, err := os.Stat(o.configPath); err != nil {
			o.configPath = ""
		}
	}
	return o, nil
}

func loadConfig(o *options) (*config.Config, error) {
	if o.configPath == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(o.configPath)
}

func initLogging(cfg *config.Config, o *options) {
	level := cfg.Logging.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	lvl, err := logging.ParseLevel(level)
	logging.Init(lvl, o.logJSON || cfg.Logging.Format == "json")
	if err != nil {
		logging.Warn("ignoring log level", "error", err)
	}
}

func buildRequest(o *options) (*shell.Request, error) {
	cmd, err := shell.ParseCommand(o.command)
	if err != nil {
		return nil, err
	}

	req := &shell.Request{
		Command:      cmd,
		File:         o.filename,
		DatasetCount: o.setCount,
		SampleCount:  o.sampleCount,
		Retention:    o.retention,
		Values:       o.values,
		OutDir:       o.out,
	}

	switch cmd {
	case shell.CmdCreate:
		req.Transforms = o.xform
	case shell.CmdUpdate:
		if o.values == "" {
			return nil, errors.NewInvalidValue("values", "", "required for update")
		}
	case shell.CmdFetch:
		if o.xform != "" {
			idx, err := strconv.Atoi(o.xform)
			if err != nil {
				return nil, errors.NewInvalidValue("xform", o.xform, "fetch takes a transform index")
			}
			req.Index, req.HasIndex = idx, true
		}
	}
	return req, nil
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	code := errors.ExitCode(err)
	logging.Debug("exit", "code", code, "kind", errors.CodeName(code))
	return code
}
