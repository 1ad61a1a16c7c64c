package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"vellum"
	"vellum/internal/bytecode"
	"vellum/internal/hostlib"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]

	var err error
	switch cmd {
	case "run":
		err = cmdRun(os.Args[2:])
	case "build":
		err = cmdBuild(os.Args[2:])
	case "repl":
		err = cmdRepl(os.Args[2:])
	case "help", "-h", "--help":
		usage()
	case "version", "-v", "--version":
		fmt.Println("vellum", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`vellum scripting engine CLI

Usage:
  vellum run [-modules hash,uuid,humanize] [-db driver:dsn] <file.vl>
  vellum build [-o out.vlc] [-debug-symbols] <file.vl>
  vellum repl [-modules hash,uuid,humanize] [-db driver:dsn]

Commands:
  version  vellum engine version
  run      compile and execute a .vl source file
  build    compile a .vl source file into serialized bytecode
  repl     start an interactive read-eval-print loop

The -modules flag names optional host capabilities (spec's registration
point) to merge into the script's globals under their own namespace, e.g.
"hash" for hash.password/hash.verify. -db additionally registers a "db"
namespace backed by the given driver ("postgres" or "sqlite") and DSN.`)
}

// moduleContext builds the context map cmdRun/cmdRepl merge into a VM's
// globals from the -modules/-db flags, so a script can reach hash.password,
// uuid.v4, humanize.bytes, or db.query without those capabilities being
// part of the sandboxed default built-ins.
func moduleContext(modules, db string) (map[string]vellum.Value, error) {
	ctx := map[string]vellum.Value{}
	if modules != "" {
		all := hostlib.All()
		for _, name := range strings.Split(modules, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			mod, ok := all[name]
			if !ok {
				return nil, fmt.Errorf("unknown module %q (available: hash, uuid, humanize)", name)
			}
			ctx[name] = mod
		}
	}
	if db != "" {
		driver, dsn, ok := strings.Cut(db, ":")
		if !ok {
			return nil, fmt.Errorf("-db must be of the form driver:dsn")
		}
		conn, err := hostlib.DB(driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open -db: %w", err)
		}
		ctx["db"] = conn
	}
	return ctx, nil
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	maxInstr := fs.Int("max-instructions", 0, "instruction budget (0 = engine default)")
	debug := fs.String("debug", "", "trace level: basic|detail|verbose")
	modules := fs.String("modules", "", "comma-separated host modules to inject: hash,uuid,humanize")
	db := fs.String("db", "", "open a db module as driver:dsn, e.g. sqlite:./app.db")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("run: missing input file")
	}
	input := fs.Arg(0)

	m := vellum.New()
	if *maxInstr > 0 {
		m.SetMaxInstructions(*maxInstr)
	}
	if level, ok := debugLevel(*debug); ok {
		m.EnableDebug(level)
	}
	context, err := moduleContext(*modules, *db)
	if err != nil {
		return err
	}

	var result vellum.Value
	if filepath.Ext(input) == ".vlc" {
		prog, rerr := bytecode.ReadFile(input)
		if rerr != nil {
			return fmt.Errorf("failed to read bytecode: %w", rerr)
		}
		result, err = m.Execute(prog, context)
	} else {
		src, rerr := os.ReadFile(input)
		if rerr != nil {
			return rerr
		}
		result, err = m.Run(string(src), context)
	}
	if err != nil {
		return err
	}
	fmt.Println(result.ToString())
	return nil
}

func cmdBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	out := fs.String("o", "", "output file (default: the input path with \"c\" appended, e.g. prog.vl -> prog.vlc)")
	debugSymbols := fs.Bool("debug-symbols", false, "record source positions while compiling (they are not written to the output file)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("build: missing input file")
	}
	input := fs.Arg(0)
	src, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	m := vellum.New()
	m.SetDebugSymbols(*debugSymbols)
	prog, err := m.Compile(string(src))
	if err != nil {
		return err
	}

	target := *out
	if target == "" {
		target = input + "c"
	}
	return bytecode.WriteFile(target, prog)
}

func cmdRepl(args []string) error {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	modules := fs.String("modules", "", "comma-separated host modules to inject: hash,uuid,humanize")
	db := fs.String("db", "", "open a db module as driver:dsn, e.g. sqlite:./app.db")
	if err := fs.Parse(args); err != nil {
		return err
	}
	context, err := moduleContext(*modules, *db)
	if err != nil {
		return err
	}

	interactive := isatty.IsTerminal(os.Stdin.Fd())
	m := vellum.New()
	scanner := bufio.NewScanner(os.Stdin)
	if interactive {
		fmt.Println("vellum", version, "-- interactive mode, Ctrl-D to exit")
		fmt.Print("> ")
	}
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if interactive {
				fmt.Print("> ")
			}
			continue
		}
		v, err := m.Run(line, context)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		} else {
			fmt.Println(v.ToString())
		}
		if interactive {
			fmt.Print("> ")
		}
	}
	if interactive {
		fmt.Println()
	}
	return scanner.Err()
}

func debugLevel(s string) (vellum.DebugLevel, bool) {
	switch s {
	case "basic":
		return vellum.DebugBasic, true
	case "detail":
		return vellum.DebugDetail, true
	case "verbose":
		return vellum.DebugVerbose, true
	default:
		return vellum.DebugOff, false
	}
}
