package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"sidosc/emu"
	"sidosc/emu/log"
	"sidosc/hw/sid"
)

type mode byte

const (
	renderMode  mode = iota // Render to a WAV file
	playMode                // Play on the audio device
	plotMode                // Plot voice outputs
	tablesMode              // Dump DAC and waveform tables
	stateMode               // Dump chip state snapshots
	versionMode             // Show version
)

type (
	CLI struct {
		Render  Render  `cmd:"" help:"Render to a WAV file."`
		Play    Play    `cmd:"" help:"Play on the audio device."`
		Plot    Plot    `cmd:"" help:"Plot voice outputs to a PNG image."`
		Tables  Tables  `cmd:"" help:"Dump DAC and waveform tables as JSON."`
		State   State   `cmd:"" help:"Run the chips then dump their state as JSON."`
		Version Version `cmd:"" help:"Show sidosc version."`

		Config string     `name:"config" help:"${config_help}" type:"path" placeholder:"FILE"`
		Log    logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`

		mode mode
	}

	Render struct {
		Output   string        `arg:"" name:"/path/to/wav" help:"Output WAV file." type:"path"`
		Duration time.Duration `name:"duration" short:"d" help:"Rendered duration." default:"5s"`
		Trace    *outfile      `name:"trace" help:"Write oscillator trace of the first chip." placeholder:"FILE|stdout|stderr"`
	}

	Play struct {
		Duration time.Duration `name:"duration" short:"d" help:"Played duration." default:"5s"`
		Backend  string        `name:"backend" help:"Audio backend, overrides the config." placeholder:"sdl|oto"`
	}

	Plot struct {
		Output string `arg:"" name:"/path/to/png" help:"Output PNG file." type:"path"`
		Chip   int    `name:"chip" help:"Index of the chip to plot." default:"0"`
		Cycles int    `name:"cycles" help:"Number of cycles to plot." default:"4000"`
	}

	Tables struct {
		Model sid.ChipModel `arg:"" name:"model" help:"Chip model: 6581 or 8580."`
		Out   *outfile      `name:"out" short:"o" help:"Output file." placeholder:"FILE|stdout|stderr"`
	}

	State struct {
		Duration time.Duration `name:"duration" short:"d" help:"Run duration before the snapshot." default:"1s"`
		Out      *outfile      `name:"out" short:"o" help:"Output file." placeholder:"FILE|stdout|stderr"`
	}

	Version struct{}
)

var vars = kong.Vars{
	"config_help": "Configuration file. (default: " + emu.DefaultConfigPath() + ")",
	"log_help":    "Enable logging for specified modules.",
}

func parseArgs(args []string) CLI {
	var cfg CLI
	parser, err := kong.New(&cfg,
		kong.Name("sidosc"),
		kong.Description("SID oscillator, noise and DAC emulator."),
		kong.UsageOnError(),
		kong.Help(printHelp),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	checkf(err, "failed to parse command line")
	checkf(ctx.Error, "failed to parse command line")

	switch ctx.Command() {
	case "render </path/to/wav>":
		cfg.mode = renderMode
	case "play":
		cfg.mode = playMode
	case "plot </path/to/png>":
		cfg.mode = plotMode
	case "tables <model>":
		cfg.mode = tablesMode
	case "state":
		cfg.mode = stateMode
	case "version":
		cfg.mode = versionMode
	default:
		fatalf("unexpected command %q", ctx.Command())
	}
	return cfg
}

func printHelp(options kong.HelpOptions, ctx *kong.Context) error {
	if err := kong.DefaultHelpPrinter(options, ctx); err != nil {
		return err
	}
	loggingHelp := `
Log modules:
  The --log flag accepts a comma-separated list of modules.

  Valid log modules are:
%s

  As a special case, the following values are accepted:
    - no                     Disable all logging.
    - all                    Enable all logs.
`
	var strs []string
	for _, m := range log.ModuleNames() {
		strs = append(strs, "    - "+m)
	}

	fmt.Fprintf(os.Stderr, loggingHelp, strings.Join(strs, "\n"))
	return nil
}

type logModMask log.ModuleMask

// Decode decodes a comma-separated list of module names into a module mask.
//
// Implements kong.MapperValue interface.
func (lm logModMask) Decode(ctx *kong.DecodeContext) error {
	nolog := false
	allLogs := false

	tok := ctx.Scan.Pop()
	for _, v := range strings.Split(tok.Value.(string), ",") {
		switch v {
		case "all":
			allLogs = true
		case "no":
			nolog = true
		default:
			mod, ok := log.ModuleByName(v)
			if !ok {
				return fmt.Errorf("unknown log module %s", v)
			}
			lm |= logModMask(mod.Mask())
		}
	}

	if nolog {
		if allLogs {
			return fmt.Errorf("cannot use 'all' and 'no' together")
		}
		if lm != 0 {
			return fmt.Errorf("cannot combine 'no' with other log modules")
		}
		log.Disable()
		return nil
	}

	if allLogs {
		lm = logModMask(log.ModuleMaskAll)
	}

	log.EnableDebugModules(log.ModuleMask(lm))
	return nil
}

type outfile struct {
	w     io.Writer
	name  string
	close func() error
}

// Decode decodes FILE|stdout|stderr into an io.WriteCloser
// that writes to that file.
//
// Implements kong.MapperValue interface.
func (f *outfile) Decode(ctx *kong.DecodeContext) error {
	tok := ctx.Scan.Pop()
	f.name = tok.Value.(string)
	f.close = func() error { return nil }

	switch f.name {
	case "stdout":
		f.w = os.Stdout
	case "stderr":
		f.w = os.Stderr
	default:
		fd, err := os.Create(f.name)
		if err != nil {
			return err
		}
		f.w = fd
		f.close = fd.Close
	}
	return nil
}

// stdoutIfNil returns f, or an outfile writing to stdout when f is nil.
func stdoutIfNil(f *outfile) *outfile {
	if f != nil {
		return f
	}
	return &outfile{w: os.Stdout, name: "stdout", close: func() error { return nil }}
}

func (f *outfile) String() string              { return f.name }
func (f *outfile) Write(p []byte) (int, error) { return f.w.Write(p) }
func (f *outfile) Close() error                { return f.close() }

func checkf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	fatalf(format+".\n"+err.Error(), args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal error:")
	fmt.Fprintf(os.Stderr, "\n\t%s\n", fmt.Sprintf(format, args...))
	os.Exit(1)
}
