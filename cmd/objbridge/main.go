package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/objbridge"
	"github.com/wippyai/objbridge/config"
	"github.com/wippyai/objbridge/host"
)

type stringList []string

func (l *stringList) String() string { return strings.Join(*l, " ") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	var (
		configFile  = flag.String("config", "", "YAML configuration file")
		classpath   = flag.String("cp", "", "Classpath entries separated by "+string(os.PathListSeparator))
		callName    = flag.String("call", "", "Static method to call (Class.method)")
		callArgs    = flag.String("args", "", "Comma-separated arguments for -call")
		listClass   = flag.String("list", "", "Print the members of a class and exit")
		schema      = flag.Bool("schema", false, "Print the configuration JSON schema and exit")
		interactive = flag.Bool("i", false, "Interactive console for the class given by -list")
		verbose     = flag.Bool("v", false, "Debug logging")
		options     stringList
	)
	flag.Var(&options, "opt", "Runtime option such as -Dkey=value (repeatable)")
	flag.Parse()

	if *schema {
		out, err := config.Schema()
		if err != nil {
			fail(err)
		}
		fmt.Println(string(out))
		return
	}

	if *callName == "" && *listClass == "" {
		fmt.Fprintln(os.Stderr, "Usage: objbridge [-config file.yaml] [-cp a:b] [-opt -Dk=v] -call Class.method [-args 3,7]")
		fmt.Fprintln(os.Stderr, "       objbridge [-cp a:b] -list Class")
		fmt.Fprintln(os.Stderr, "       objbridge [-cp a:b] -list Class -i  (interactive mode)")
		fmt.Fprintln(os.Stderr, "       objbridge -schema")
		os.Exit(1)
	}

	cfg, err := loadConfig(*configFile, *classpath, options)
	if err != nil {
		fail(err)
	}
	log, err := newLogger(cfg.LogLevel, *verbose)
	if err != nil {
		fail(err)
	}
	defer func() { _ = log.Sync() }()

	rc := objbridge.NewRuntimeContext()
	defer func() {
		if err := rc.Close(context.Background()); err != nil {
			log.Warn("closing runtime", zap.Error(err))
		}
	}()
	b, err := objbridge.New(host.NewLoop(), objbridge.WithContext(rc), objbridge.WithConfig(cfg), objbridge.WithLogger(log))
	if err != nil {
		fail(err)
	}
	defer b.Close()

	switch {
	case *interactive:
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fail(fmt.Errorf("-i needs a terminal"))
		}
		err = runInteractive(b, *listClass)
	case *listClass != "":
		err = list(b, *listClass)
	default:
		err = call(b, *callName, *callArgs)
	}
	if err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// loadConfig reads the file, if any, then applies flags on top.
func loadConfig(path, classpath string, options []string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}
	if classpath != "" {
		cfg.Classpath = append(cfg.Classpath, filepath.SplitList(classpath)...)
	}
	cfg.Options = append(cfg.Options, options...)
	return cfg, cfg.Validate()
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if verbose {
		zcfg = zap.NewDevelopmentConfig()
		level = "debug"
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = lvl
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}

func list(b *objbridge.Bridge, className string) error {
	vm, err := b.Runtime()
	if err != nil {
		return err
	}
	c, err := vm.FindClass(className)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", c)
	if super := c.Super(); super != nil {
		fmt.Printf("  extends %s\n", super)
	}
	for _, iface := range c.Interfaces() {
		fmt.Printf("  implements %s\n", iface)
	}
	fmt.Printf("\nConstructors:\n")
	for _, ctor := range c.Constructors() {
		fmt.Printf("  %s\n", ctor)
	}
	fmt.Printf("\nMethods:\n")
	for _, m := range c.Methods() {
		fmt.Printf("  %s\n", m)
	}
	fmt.Printf("\nFields:\n")
	for _, f := range c.Fields() {
		fmt.Printf("  %s\n", f)
	}
	return nil
}

// call runs a static method through the asynchronous path and prints the
// result delivered on the loop.
func call(b *objbridge.Bridge, name, rawArgs string) error {
	dot := strings.LastIndex(name, ".")
	if dot <= 0 || dot == len(name)-1 {
		return fmt.Errorf("-call wants Class.method, got %q", name)
	}
	className, method := name[:dot], name[dot+1:]

	var args []any
	if rawArgs != "" {
		for _, a := range strings.Split(rawArgs, ",") {
			args = append(args, parseArg(strings.TrimSpace(a)))
		}
	}

	var callErr error
	cb := host.Callback(func(err error, result any) {
		if err != nil {
			callErr = err
			return
		}
		fmt.Printf("Result: %s\n", formatValue(result))
	})
	if err := b.CallStaticMethod(className, method, append(args, cb)...); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := b.Loop().Run(ctx); err != nil {
		return err
	}
	return callErr
}

// parseArg reads a console argument: integers, decimals, true/false and
// null are typed, a quoted token is a string, anything else is a string
// as written.
func parseArg(s string) any {
	switch s {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return s
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = formatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *host.Object:
		return fmt.Sprintf("%s (%s)", x, x.ClassName())
	}
	return fmt.Sprintf("%v", v)
}
