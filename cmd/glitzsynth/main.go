package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"glitzhit/internal/database"
	"glitzhit/internal/logging"
	"glitzhit/internal/synth"

	"golang.org/x/term"
)

const (
	// Default timeout for database operations
	defaultTimeout = 30 * time.Second
	// Default database directory path
	defaultDatabaseDir = "data"
)

// isTerminal reports whether w is an interactive terminal. Tests replace it.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func main() {
	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	logging.SetLevel(logging.LevelWarn)

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// run dispatches one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	switch args[0] {
	case "generate":
		return generate(ctx, args[1:], stdout, stderr)
	case "algorithms":
		for _, alg := range synth.Algorithms() {
			fmt.Fprintln(stdout, alg)
		}
		return 0
	case "history":
		return history(ctx, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		// Sanitize command input using allowlist to break taint chain
		fmt.Fprintf(stderr, "Unknown command: %s\n", sanitizeCommand(args[0]))
		printUsage(stderr)
		return 2
	}
}

// sanitizeCommand returns a safe representation of a command string for display.
// Any character that is not alphanumeric, a hyphen, or an underscore becomes '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Glitzhit waveform synthesizer")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: glitzsynth <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  generate    - Write synthesized raw rgb24 bytes to a file or stdout")
	fmt.Fprintln(w, "  algorithms  - List the supported algorithms")
	fmt.Fprintln(w, "  history     - Show recent conversions from the history database")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'glitzsynth <command> -h' for command flags.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  DATABASE_DIR - Path to database directory (default: %s)\n", defaultDatabaseDir)
}

type generateOptions struct {
	algorithm string
	duration  float64
	width     int
	height    int
	fps       float64
	dials     synth.Dials
	seed      int64
	output    string
	force     bool
}

func parseGenerate(args []string, stderr io.Writer) (generateOptions, error) {
	opts := generateOptions{dials: synth.DefaultDials()}

	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.algorithm, "algorithm", string(synth.Sine), "waveform: "+joinAlgorithms())
	fs.Float64Var(&opts.duration, "duration", 1, "length in seconds")
	fs.IntVar(&opts.width, "width", 64, "frame width in pixels")
	fs.IntVar(&opts.height, "height", 64, "frame height in pixels")
	fs.Float64Var(&opts.fps, "fps", 10, "frames per second")
	fs.Float64Var(&opts.dials.Noise, "noise", 0, "noise amount (0-1)")
	fs.Float64Var(&opts.dials.Tremolo, "tremolo", 0, "tremolo amount (0-1)")
	fs.Float64Var(&opts.dials.FrequencyMultiplier, "freq", 1, "frequency multiplier")
	fs.Int64Var(&opts.seed, "seed", 0, "random seed (0 picks one from the clock)")
	fs.StringVar(&opts.output, "o", "-", "output file, or - for stdout")
	fs.BoolVar(&opts.force, "force", false, "write to stdout even when it is a terminal")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected argument %q", sanitizeCommand(fs.Arg(0)))
	}
	if _, err := synth.ParseAlgorithm(opts.algorithm); err != nil {
		return opts, err
	}
	if err := opts.dials.Validate(); err != nil {
		return opts, err
	}
	if synth.ByteCount(opts.duration, opts.fps, opts.width, opts.height) <= 0 {
		return opts, errors.New("duration, fps, width and height must all be positive")
	}
	return opts, nil
}

func joinAlgorithms() string {
	names := make([]string, 0, len(synth.Algorithms()))
	for _, alg := range synth.Algorithms() {
		names = append(names, string(alg))
	}
	return strings.Join(names, ", ")
}

func generate(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseGenerate(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	alg, _ := synth.ParseAlgorithm(opts.algorithm)
	count := synth.ByteCount(opts.duration, opts.fps, opts.width, opts.height)

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	var dst io.Writer = stdout
	if opts.output == "-" {
		if isTerminal(stdout) && !opts.force {
			fmt.Fprintln(stderr, "Error: refusing to write binary data to a terminal; use -o or redirect stdout")
			return 1
		}
	} else {
		f, err := os.Create(filepath.Clean(opts.output))
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		defer func() {
			if err := f.Close(); err != nil {
				fmt.Fprintf(stderr, "Warning: failed to close output: %v\n", err)
			}
		}()
		dst = f
	}

	start := time.Now()
	written, err := synth.Generate(contextWriter{ctx: ctx, w: dst}, alg, count, opts.dials, rng)
	if err != nil {
		fmt.Fprintf(stderr, "Error: wrote %d of %d bytes: %v\n", written, count, err)
		return 1
	}

	fmt.Fprintf(stderr, "%s: %d bytes (%dx%d rgb24, %v fps, %vs) in %v\n",
		alg, written, opts.width, opts.height, opts.fps, opts.duration, time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(stderr, "ffmpeg input: -f rawvideo -pixel_format rgb24 -video_size %dx%d -framerate %v\n",
		opts.width, opts.height, opts.fps)
	return 0
}

// contextWriter stops a long write once ctx is cancelled.
type contextWriter struct {
	ctx context.Context
	w   io.Writer
}

func (c contextWriter) Write(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.w.Write(p)
}

func history(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	limit := fs.Int("limit", 20, "number of conversions to show")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *limit <= 0 {
		fmt.Fprintln(stderr, "Error: -limit must be positive")
		return 2
	}

	databaseDir := os.Getenv("DATABASE_DIR")
	if databaseDir == "" {
		databaseDir = defaultDatabaseDir
	}
	dbPath := filepath.Join(databaseDir, database.FileName)
	if _, err := os.Stat(dbPath); err != nil {
		fmt.Fprintf(stderr, "Error: no history database at %s\n", dbPath)
		fmt.Fprintf(stderr, "Make sure DATABASE_DIR is set correctly (current: %s)\n", databaseDir)
		return 1
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	db, err := database.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: Failed to open database: %v\n", err)
		return 1
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	rows, err := db.Recent(ctx, min(*limit, database.MaxHistoryLimit))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	summary, err := db.Summary(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	printHistory(stdout, rows, summary)
	return 0
}

func printHistory(w io.Writer, rows []database.Conversion, summary map[string]int) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No conversions recorded.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FINISHED\tJOB\tSOURCE\tINPUT\tSCALE\tSTATE\tFRAMES\tDURATION")
	for _, c := range rows {
		source := c.Source
		if c.Algorithm != "" {
			source += ":" + c.Algorithm
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dx%d %s\t%dx%d\t%s\t%d/%d\t%v\n",
			c.FinishedAt.Local().Format(time.DateTime),
			c.JobID,
			source,
			c.Width, c.Height, c.PixelFormat,
			c.ScaleWidth, c.ScaleHeight,
			c.State,
			c.Frames, c.TotalFrames,
			time.Duration(c.Duration)*time.Millisecond,
		)
	}
	_ = tw.Flush()

	fmt.Fprintln(w, "")
	for _, state := range []string{"succeeded", "failed", "cancelled"} {
		fmt.Fprintf(w, "%-10s %d\n", state+":", summary[state])
	}
}
