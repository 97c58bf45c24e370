package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"time"

	"sidosc/emu"
	"sidosc/emu/log"
	"sidosc/hw/audio"
	"sidosc/hw/sid"
)

func main() {
	cli := parseArgs(os.Args[1:])

	switch cli.mode {
	case versionMode:
		printVersion()
		return
	case tablesMode:
		out := stdoutIfNil(cli.Tables.Out)
		defer out.Close()
		checkf(emu.WriteTables(out, cli.Tables.Model), "failed to write tables")
		return
	}

	cfg := loadConfig(cli.Config)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch cli.mode {
	case renderMode:
		sink, err := audio.CreateWAVFile(cli.Render.Output, int(cfg.Audio.SampleRate))
		checkf(err, "failed to create wav file")
		var tracer *sid.Tracer
		if cli.Render.Trace != nil {
			defer cli.Render.Trace.Close()
			tracer = sid.NewTracer(cli.Render.Trace)
		}
		checkf(render(ctx, cfg, sink, tracer, cli.Render.Duration), "failed to render")
	case playMode:
		backend := cfg.Audio.Backend
		if cli.Play.Backend != "" {
			backend = cli.Play.Backend
		}
		sink, err := openSink(backend, int(cfg.Audio.SampleRate))
		checkf(err, "failed to open audio device")
		checkf(render(ctx, cfg, sink, nil, cli.Play.Duration), "failed to play")
	case plotMode:
		f, err := os.Create(cli.Plot.Output)
		checkf(err, "failed to create plot file")
		defer f.Close()
		checkf(emu.PlotVoices(f, cfg, cli.Plot.Chip, cli.Plot.Cycles), "failed to plot")
	case stateMode:
		out := stdoutIfNil(cli.State.Out)
		defer out.Close()
		checkf(dumpState(ctx, cfg, out, cli.State.Duration), "failed to dump state")
	}
}

func loadConfig(path string) emu.Config {
	if path != "" {
		cfg, err := emu.LoadConfig(path)
		checkf(err, "failed to load config")
		return cfg
	}
	return emu.LoadConfigOrDefault(emu.DefaultConfigPath())
}

func openSink(backend string, sampleRate int) (audio.Sink, error) {
	switch backend {
	case emu.BackendSDL:
		return audio.NewSDLSink(sampleRate)
	case emu.BackendOto:
		return audio.NewOtoSink(sampleRate)
	}
	return nil, fmt.Errorf("unknown audio backend %q", backend)
}

func render(ctx context.Context, cfg emu.Config, sink audio.Sink, tracer *sid.Tracer, d time.Duration) error {
	r, err := emu.NewRenderer(cfg)
	if err != nil {
		sink.Close()
		return err
	}
	if tracer != nil {
		r.SetTracer(tracer)
	}

	start := time.Now()
	err = r.Render(ctx, sink, d)
	if cerr := sink.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	log.ModEmu.InfoZ("rendered").
		Uint64("cycles", r.Cycles()).
		Duration("elapsed", time.Since(start)).
		Hex32("digest", uint32(r.Digest())).
		End()
	fmt.Printf("%d cycles, digest %016x\n", r.Cycles(), r.Digest())
	return nil
}

func dumpState(ctx context.Context, cfg emu.Config, out *outfile, d time.Duration) error {
	r, err := emu.NewRenderer(cfg)
	if err != nil {
		return err
	}
	if err := r.Render(ctx, audio.Discard, d); err != nil {
		return err
	}
	for i := range r.NumChips() {
		buf := r.Chip(i).State().Marshal()
		if _, err := fmt.Fprintf(out, "%s\n", buf); err != nil {
			return err
		}
	}
	return nil
}

func printVersion() {
	version := "(devel)"
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		version = bi.Main.Version
	}
	fmt.Println("sidosc", version)
}
