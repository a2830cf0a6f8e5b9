package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"wcs-converter/internal/batch"
	"wcs-converter/internal/config"
	"wcs-converter/internal/diag"
	"wcs-converter/internal/logging"
	"wcs-converter/internal/pipeline"
	"wcs-converter/internal/pof"
	"wcs-converter/internal/validate"
)

const usage = `usage: pofconv <command> [flags] [files or dirs...]

commands:
  pof      convert POF models to engine scenes
  inspect  decode and validate POF models, print the validation result as JSON
  config   print the effective configuration as TOML
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var ok bool
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "pof":
		ok = runConvert(ctx, args)
	case "inspect":
		ok = runInspect(ctx, args)
	case "config":
		ok = runConfig(args)
	case "-h", "--help", "help":
		fmt.Print(usage)
		ok = true
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
	}
	if !ok {
		os.Exit(1)
	}
}

type commonFlags struct {
	configFile *string
	input      *string
	output     *string
	textures   *string
	format     *string
	target     *string
	workers    *int
	logLevel   *string
	verbose    *bool
}

func registerCommon(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configFile: fs.String("config", "", "Path to pofconv.toml"),
		input:      fs.String("input", "", "Directory searched for .pof files (default: cwd)"),
		output:     fs.String("output", "", "Output directory (default: <input>/converted)"),
		textures:   fs.String("textures", "", "Comma-separated texture directories"),
		format:     fs.String("format", "", "Writer: godot or json"),
		target:     fs.String("target", "", "Optimisation profile, e.g. desktop_high, mobile_medium"),
		workers:    fs.Int("workers", 0, "Number of worker goroutines (default: NumCPU)"),
		logLevel:   fs.String("log-level", "", "debug, info, warn or error"),
		verbose:    fs.Bool("verbose", false, "Record debug and info diagnostics"),
	}
}

// load reads the config file, if any, and applies flag overrides.
func (f commonFlags) load() (config.Config, error) {
	cfg := config.Default()
	if *f.configFile != "" {
		var err error
		if cfg, err = config.Load(*f.configFile); err != nil {
			return cfg, err
		}
	}
	var texDirs []string
	for _, d := range strings.Split(*f.textures, ",") {
		if d = strings.TrimSpace(d); d != "" {
			texDirs = append(texDirs, d)
		}
	}
	err := cfg.Resolve(config.Flags{
		InputDir:    *f.input,
		OutputDir:   *f.output,
		TextureDirs: texDirs,
		Format:      *f.format,
		Target:      *f.target,
		Workers:     *f.workers,
		LogLevel:    *f.logLevel,
		Verbose:     *f.verbose,
	})
	return cfg, err
}

// collect expands the arguments into POF files; no arguments means the input directory.
func collect(args []string, inputDir string) ([]string, error) {
	if len(args) == 0 {
		args = []string{inputDir}
	}
	var files []string
	for _, a := range args {
		st, err := os.Stat(a)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			files = append(files, a)
			continue
		}
		found, err := batch.Discover(a)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func runConvert(ctx context.Context, args []string) bool {
	fs := flag.NewFlagSet("pof", flag.ExitOnError)
	common := registerCommon(fs)
	reportPath := fs.String("report", "", "Write a JSON summary to this path")
	watch := fs.Bool("watch", false, "Keep running and reconvert files when they change")
	lodMeshes := fs.Bool("lod-meshes", false, "Also write a decimated mesh per LOD level")
	fs.Parse(args)

	cfg, err := common.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return false
	}
	if *lodMeshes {
		cfg.LODMeshes = true
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, "pofconv")

	conv, err := pipeline.New(cfg, logger)
	if err != nil {
		logger.Error("invalid settings", "err", err)
		return false
	}

	files, err := collect(fs.Args(), cfg.InputDir)
	if err != nil {
		logger.Error("cannot list input", "err", err)
		return false
	}

	logger.Info("converting", "files", len(files), "workers", cfg.Workers, "format", cfg.Format,
		"target", cfg.Optimization.Target, "output", cfg.OutputDir)
	start := time.Now()
	results := batch.Run(ctx, conv, files, cfg.Workers, logger)
	rep := batch.Summarize(results)
	logger.Info("done", "elapsed", time.Since(start).Round(time.Millisecond),
		"successful", rep.Successful, "failed", rep.Failed, "artifacts", rep.ArtifactsCreated)

	limit := min(len(rep.Errors), 20)
	for _, e := range rep.Errors[:limit] {
		logger.Warn(e)
	}
	if *reportPath != "" {
		if err := batch.WriteReport(*reportPath, rep); err != nil {
			logger.Error("report write failed", "err", err)
			return false
		}
		logger.Info("report written", "path", *reportPath)
	}

	if *watch {
		dir := cfg.InputDir
		if fs.NArg() == 1 {
			if st, err := os.Stat(fs.Arg(0)); err == nil && st.IsDir() {
				dir = fs.Arg(0)
			}
		}
		err := batch.Watch(ctx, dir, conv, logger, func(r batch.Result) {
			if r.Success {
				logger.Info("reconverted", "file", filepath.Base(r.File), "created", len(r.Pipeline.Created))
			}
		})
		if err != nil {
			logger.Error("watch failed", "err", err)
			return false
		}
		return true
	}
	return rep.OK()
}

type inspection struct {
	File        string            `json:"file"`
	Version     int32             `json:"version"`
	Subobjects  int               `json:"subobjects"`
	Textures    []string          `json:"textures"`
	Validation  *validate.Result  `json:"validation,omitempty"`
	Suppressed  int               `json:"suppressed_diagnostics"`
	Error       string            `json:"error,omitempty"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty"`
}

func runInspect(ctx context.Context, args []string) bool {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	common := registerCommon(fs)
	strict := fs.Bool("strict", false, "Treat warnings as failures")
	fs.Parse(args)

	cfg, err := common.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return false
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, "pofconv")
	files, err := collect(fs.Args(), cfg.InputDir)
	if err != nil {
		logger.Error("cannot list input", "err", err)
		return false
	}

	ok := true
	var out []inspection
	for _, path := range files {
		ins := inspect(ctx, path, cfg.Verbose, logger)
		if ins.Error != "" || !ins.Validation.IsValid || *strict && len(ins.Validation.Warnings) > 0 {
			ok = false
		}
		out = append(out, ins)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("encode failed", "err", err)
		return false
	}
	return ok
}

func inspect(ctx context.Context, path string, verbose bool, logger *log.Logger) inspection {
	sink := diag.NewSink(diag.WithLogger(logging.Discard()), diag.WithVerbose(verbose))
	ins := inspection{File: path}
	m, err := pof.DecodeFile(ctx, path, pof.Options{Sink: sink})
	ins.Suppressed = sink.Suppressed()
	if err != nil {
		ins.Error = err.Error()
		ins.Diagnostics = sink.Entries()
		logger.Error("decode failed", "file", path, "err", err)
		return ins
	}
	res := validate.Run(m, validate.Options{Decoded: sink.Entries()})
	ins.Version = m.DeclaredVersion
	ins.Subobjects = len(m.SubObjects)
	ins.Textures = m.Textures
	ins.Validation = &res
	return ins
}

func runConfig(args []string) bool {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	common := registerCommon(fs)
	fs.Parse(args)

	cfg, err := common.load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	data, err := cfg.Encode()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	os.Stdout.Write(data)
	return true
}
