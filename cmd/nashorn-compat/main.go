package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/nashorn-compat/bootstrap"
	"github.com/wippyai/nashorn-compat/compat"
	"github.com/wippyai/nashorn-compat/graph"
	"github.com/wippyai/nashorn-compat/host"
	"github.com/wippyai/nashorn-compat/scripting"
	"github.com/wippyai/nashorn-compat/transform"
)

type options struct {
	config    string
	bundle    string
	discovery string
	search    string
	wasmFile  string
	funcName  string
	args      string
	script    string
	file      string
	list      bool
	metrics   bool
	verbose   bool
	interact  bool
}

func main() {
	var o options
	flag.StringVar(&o.config, "config", "", "Bootstrap config file (TOML)")
	flag.StringVar(&o.bundle, "bundle", "", "Bundle directory holding "+bootstrap.ManifestFile)
	flag.StringVar(&o.discovery, "discovery", "", "Discovery mode: manifest, scan or compose")
	flag.StringVar(&o.search, "search", "", "Search path for scan discovery (comma-separated)")
	flag.StringVar(&o.wasmFile, "wasm", "", "Guest module to load")
	flag.StringVar(&o.funcName, "func", "", "Guest export to call")
	flag.StringVar(&o.args, "args", "", "Arguments for -func, or script arguments (comma-separated)")
	flag.StringVar(&o.script, "e", "", "Script to evaluate")
	flag.StringVar(&o.file, "f", "", "Script file to evaluate")
	flag.BoolVar(&o.list, "list", false, "List guest exports and host components, then exit")
	flag.BoolVar(&o.metrics, "metrics", false, "Print remapper metrics on exit")
	flag.BoolVar(&o.verbose, "v", false, "Verbose logging")
	flag.BoolVar(&o.interact, "i", false, "Interactive script shell")
	flag.Parse()

	if o.wasmFile == "" && o.script == "" && o.file == "" && !o.interact && !o.list {
		fmt.Fprintln(os.Stderr, "Usage: nashorn-compat [-config file] [-bundle dir] -wasm <file.wasm> [-func name] [-args a,b]")
		fmt.Fprintln(os.Stderr, "       nashorn-compat [-config file] -e <script> | -f <file.js>")
		fmt.Fprintln(os.Stderr, "       nashorn-compat [-config file] -list [-wasm <file.wasm>]")
		fmt.Fprintln(os.Stderr, "       nashorn-compat [-config file] -i  (interactive shell)")
		os.Exit(1)
	}

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func config(o options) (bootstrap.Config, error) {
	cfg := bootstrap.DefaultConfig()
	if o.config != "" {
		var err error
		if cfg, err = bootstrap.LoadConfig(o.config); err != nil {
			return cfg, err
		}
	}
	if o.bundle != "" {
		cfg.Bundle = o.bundle
	}
	if o.discovery != "" {
		if err := cfg.Discovery.UnmarshalText([]byte(o.discovery)); err != nil {
			return cfg, err
		}
	}
	if o.search != "" {
		cfg.SearchPath = splitList(o.search)
	}
	return cfg, nil
}

func setupLogging(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	host.SetLogger(logger.Named("host"))
	graph.SetLogger(logger.Named("graph"))
	transform.SetLogger(logger.Named("transform"))
	bootstrap.SetLogger(logger.Named("bootstrap"))
	scripting.SetLogger(logger.Named("scripting"))
	return logger, nil
}

// start creates a host with the scripting provider registered and the
// nashorn component bootstrapped into it.
func start(ctx context.Context, cfg bootstrap.Config, reg prometheus.Registerer) (*host.Host, *bootstrap.Result, error) {
	h, err := host.New(ctx, host.Options{})
	if err != nil {
		return nil, nil, fmt.Errorf("create host: %w", err)
	}
	if err := scripting.Register(h, scripting.NewFactory()); err != nil {
		h.Close(ctx)
		return nil, nil, fmt.Errorf("register scripting: %w", err)
	}

	var opts []transform.PluginOption
	if reg != nil {
		m := transform.NewMetrics()
		if err := m.Register(reg); err != nil {
			h.Close(ctx)
			return nil, nil, fmt.Errorf("register metrics: %w", err)
		}
		opts = append(opts, transform.WithMetrics(m))
	}

	res, err := bootstrap.Run(ctx, h, cfg, opts...)
	if err != nil {
		h.Close(ctx)
		return nil, nil, err
	}
	h.Start()
	return h, res, nil
}

func run(o options) error {
	ctx := context.Background()

	logger, err := setupLogging(o.verbose)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := config(o)
	if err != nil {
		return err
	}

	var reg *prometheus.Registry
	if o.metrics {
		reg = prometheus.NewRegistry()
	}
	h, res, err := start(ctx, cfg, registerer(reg))
	if err != nil {
		return err
	}
	defer h.Close(ctx)
	if reg != nil {
		defer printMetrics(reg)
	}

	logger.Info("bootstrapped",
		zap.String("module", res.Module.Name()),
		zap.String("version", moduleVersion(res.Module)),
	)

	if o.list {
		listComponents(h, res)
		if o.wasmFile == "" {
			return nil
		}
	}

	if o.wasmFile != "" {
		if err := runGuest(ctx, h, o); err != nil {
			return err
		}
	}

	if o.script == "" && o.file == "" && !o.interact {
		return nil
	}

	f, err := compat.NewScriptEngineFactory(h)
	if err != nil {
		return err
	}
	engine := f.ScriptEngineWith(splitList(o.args), h.AppLoader(), nil)

	if o.interact {
		return runInteractive(engine)
	}
	return runScript(engine, o)
}

// registerer avoids handing a typed nil to start.
func registerer(reg *prometheus.Registry) prometheus.Registerer {
	if reg == nil {
		return nil
	}
	return reg
}

func listComponents(h *host.Host, res *bootstrap.Result) {
	fmt.Printf("Module: %s@%s\n", res.Module.Name(), moduleVersion(res.Module))
	for name, dropped := range res.Dropped {
		fmt.Printf("  %s dropped requires: %s\n", name, strings.Join(dropped, ", "))
	}
	fmt.Printf("\nComponents:\n")
	for _, c := range h.Components() {
		fmt.Printf("  %s (%s) %s\n", c.Name, c.Type, c.File)
	}
}

func moduleVersion(m *graph.Module) string {
	if v := m.Descriptor().Version(); v != nil {
		return v.String()
	}
	return "unversioned"
}

func runGuest(ctx context.Context, h *host.Host, o options) error {
	data, err := os.ReadFile(o.wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	u, err := h.AppLoader().Define(ctx, o.wasmFile, data)
	if err != nil {
		return err
	}

	funcs := u.Compiled.ExportedFunctions()
	if o.list {
		names := make([]string, 0, len(funcs))
		for name := range funcs {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Printf("\nExported functions:\n")
		for _, name := range names {
			fmt.Printf("  %s\n", formatSignature(name, funcs[name]))
		}
		return nil
	}

	inst, err := h.InstantiateUnit(ctx, u)
	if err != nil {
		return err
	}
	defer inst.Close(ctx)

	if o.funcName == "" {
		return nil
	}
	def, ok := funcs[o.funcName]
	if !ok {
		return fmt.Errorf("function %q not exported", o.funcName)
	}
	args, err := encodeArgs(def.ParamTypes(), splitList(o.args))
	if err != nil {
		return err
	}
	results, err := inst.Call(ctx, o.funcName, args...)
	if err != nil {
		return fmt.Errorf("call %s: %w", o.funcName, err)
	}
	fmt.Println(formatResults(def.ResultTypes(), results))
	return nil
}

func formatSignature(name string, def api.FunctionDefinition) string {
	var params []string
	for _, t := range def.ParamTypes() {
		params = append(params, api.ValueTypeName(t))
	}
	var results []string
	for _, t := range def.ResultTypes() {
		results = append(results, api.ValueTypeName(t))
	}
	s := name + "(" + strings.Join(params, ", ") + ")"
	if len(results) > 0 {
		s += " -> " + strings.Join(results, ", ")
	}
	return s
}

func encodeArgs(types []api.ValueType, values []string) ([]uint64, error) {
	if len(values) != len(types) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(types), len(values))
	}
	out := make([]uint64, len(types))
	for i, t := range types {
		v, err := encodeArg(t, values[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func encodeArg(t api.ValueType, s string) (uint64, error) {
	switch t {
	case api.ValueTypeI32:
		v, err := strconv.ParseInt(s, 10, 32)
		return api.EncodeI32(int32(v)), err
	case api.ValueTypeI64:
		v, err := strconv.ParseInt(s, 10, 64)
		return api.EncodeI64(v), err
	case api.ValueTypeF32:
		v, err := strconv.ParseFloat(s, 32)
		return api.EncodeF32(float32(v)), err
	case api.ValueTypeF64:
		v, err := strconv.ParseFloat(s, 64)
		return api.EncodeF64(v), err
	default:
		return 0, fmt.Errorf("unsupported parameter type %s", api.ValueTypeName(t))
	}
}

func formatResults(types []api.ValueType, results []uint64) string {
	out := make([]string, len(results))
	for i, r := range results {
		switch types[i] {
		case api.ValueTypeI32:
			out[i] = strconv.FormatInt(int64(api.DecodeI32(r)), 10)
		case api.ValueTypeF32:
			out[i] = strconv.FormatFloat(float64(api.DecodeF32(r)), 'g', -1, 32)
		case api.ValueTypeF64:
			out[i] = strconv.FormatFloat(api.DecodeF64(r), 'g', -1, 64)
		default:
			out[i] = strconv.FormatInt(int64(r), 10)
		}
	}
	return strings.Join(out, " ")
}

func runScript(engine *compat.ScriptEngine, o options) error {
	var (
		v   any
		err error
	)
	if o.file != "" {
		f, ferr := os.Open(o.file)
		if ferr != nil {
			return fmt.Errorf("open script: %w", ferr)
		}
		defer f.Close()
		v, err = engine.EvalReader(f)
	} else {
		v, err = engine.Eval(o.script)
	}
	if err != nil {
		return err
	}
	if !compat.IsUndefined(v) {
		fmt.Println(display(v))
	}
	return nil
}

func display(v any) string {
	return scripting.Display(compat.ConvertMirror(v))
}

func printMetrics(reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		fmt.Fprintf(os.Stderr, "metrics: %v\n", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			value := m.GetCounter().GetValue()
			if h := m.GetHistogram(); h != nil {
				value = float64(h.GetSampleCount())
			}
			fmt.Fprintf(os.Stderr, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
