// Fieldctl is the command-line client for monitoring and controlling a
// running fieldlined instance. It connects over HTTP and WebSocket to
// classify points, drive batch jobs, and stream live events from the daemon.
package main

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/large-farva/fieldline-engine/internal/ctl"
)

func main() {
	var (
		host    = pflag.StringP("host", "H", "http://127.0.0.1:8080", "Fieldline daemon URL (e.g. http://192.168.8.1:8080)")
		jsonOut = pflag.Bool("json", false, "Output raw JSON instead of formatted text")
		filter  = pflag.StringSlice("filter", nil, "Event types to show in watch (e.g. --filter state,log)")
	)

	// Stop parsing global flags at the first non-flag argument (the command
	// name), so subcommand-specific flags like --workers are not rejected.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	var err error
	switch cmd {
	// ── Query commands ────────────────────────────────────────────
	case "status":
		err = ctl.Status(*host, *jsonOut)

	case "health":
		err = ctl.Health(*host, *jsonOut)

	case "version":
		err = ctl.VersionInfo(*host, *jsonOut)

	case "config":
		err = ctl.Config(*host, *jsonOut)

	case "jobs":
		opts := ctl.JobsOptions{JSON: *jsonOut}
		jobFlags := pflag.NewFlagSet("jobs", pflag.ContinueOnError)
		jobFlags.StringVar(&opts.State, "state", "", "Filter by job state (queued, running, done, failed, cancelled)")
		_ = jobFlags.Parse(subArgs)
		err = ctl.Jobs(*host, opts)

	case "summary":
		err = ctl.Summary(*host, *jsonOut)

	// ── Classification commands ───────────────────────────────────
	case "classify":
		opts := ctl.ClassifyOptions{JSON: *jsonOut}
		classifyFlags := pointFlags("classify", &opts)
		_ = classifyFlags.Parse(subArgs)
		err = ctl.Classify(*host, opts)

	case "trace":
		opts := ctl.TraceOptions{ClassifyOptions: ctl.ClassifyOptions{JSON: *jsonOut}}
		traceFlags := pointFlags("trace", &opts.ClassifyOptions)
		traceFlags.StringVar(&opts.SVGPath, "svg", "", "Write an SVG rendering to this file")
		_ = traceFlags.Parse(subArgs)
		err = ctl.Trace(*host, opts)

	case "batch":
		opts := ctl.BatchOptions{JSON: *jsonOut}
		batchFlags := pflag.NewFlagSet("batch", pflag.ContinueOnError)
		batchFlags.StringVar(&opts.Output, "output", "", "Output filename (default: <input>_classified)")
		batchFlags.IntVar(&opts.Workers, "workers", 0, "Worker count (default: daemon config)")
		_ = batchFlags.Parse(subArgs)
		if batchFlags.NArg() < 1 {
			err = fmt.Errorf("batch requires an input filename")
			break
		}
		opts.Input = batchFlags.Arg(0)
		err = ctl.Batch(*host, opts)

	case "cancel":
		if len(subArgs) < 1 {
			err = fmt.Errorf("cancel requires a job ID")
			break
		}
		var id int
		id, err = strconv.Atoi(subArgs[0])
		if err != nil {
			err = fmt.Errorf("invalid job ID %q", subArgs[0])
			break
		}
		err = ctl.Cancel(*host, id, *jsonOut)

	case "generate":
		opts := ctl.GenerateOptions{
			JSON:  *jsonOut,
			Pdyn:  math.NaN(),
			Dst:   math.NaN(),
			ByIMF: math.NaN(),
			BzIMF: math.NaN(),
		}
		var tleFile string
		genFlags := pflag.NewFlagSet("generate", pflag.ContinueOnError)
		genFlags.StringVar(&opts.Filename, "filename", "", "Output filename in the daemon's data root")
		genFlags.IntVar(&opts.Steps, "steps", 0, "Number of rows (default: daemon config)")
		genFlags.IntVar(&opts.StepSeconds, "step", 0, "Seconds between rows (default: daemon config)")
		genFlags.StringVar(&opts.Start, "start", "", "First sample time, RFC 3339 (default: TLE epoch)")
		genFlags.StringVar(&tleFile, "tle-file", "", "Read the element set from this file")
		genFlags.Float64Var(&opts.Pdyn, "pdyn", opts.Pdyn, "Solar wind dynamic pressure, nPa")
		genFlags.Float64Var(&opts.Dst, "dst", opts.Dst, "Dst index, nT")
		genFlags.Float64Var(&opts.ByIMF, "by", opts.ByIMF, "IMF By, nT")
		genFlags.Float64Var(&opts.BzIMF, "bz", opts.BzIMF, "IMF Bz, nT")
		_ = genFlags.Parse(subArgs)
		if tleFile != "" {
			b, readErr := os.ReadFile(tleFile)
			if readErr != nil {
				err = readErr
				break
			}
			opts.TLE = string(b)
		}
		err = ctl.Generate(*host, opts)

	// ── Live streaming ────────────────────────────────────────────
	case "watch":
		err = ctl.Watch(*host, ctl.WatchOptions{
			Filter: *filter,
			JSON:   *jsonOut,
		})

	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// pointFlags builds the flag set shared by classify and trace: a position,
// a timestamp, and the driver parameters. Driver defaults are NaN so the
// CLI can tell "not given" apart from zero.
func pointFlags(name string, opts *ctl.ClassifyOptions) *pflag.FlagSet {
	opts.Pdyn = math.NaN()
	opts.Dst = math.NaN()
	opts.ByIMF = math.NaN()
	opts.BzIMF = math.NaN()

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Float64Var(&opts.X1, "x1", 0, "X coordinate (GSM)")
	fs.Float64Var(&opts.X2, "x2", 0, "Y coordinate (GSM)")
	fs.Float64Var(&opts.X3, "x3", 0, "Z coordinate (GSM)")
	fs.StringVar(&opts.Units, "units", "re", "Coordinate units: re or km")
	fs.StringVar(&opts.DateTime, "time", "", "Timestamp (e.g. \"2017-01-01 01:00:00\")")
	fs.Float64Var(&opts.Pdyn, "pdyn", opts.Pdyn, "Solar wind dynamic pressure, nPa")
	fs.Float64Var(&opts.Dst, "dst", opts.Dst, "Dst index, nT")
	fs.Float64Var(&opts.ByIMF, "by", opts.ByIMF, "IMF By, nT")
	fs.Float64Var(&opts.BzIMF, "bz", opts.BzIMF, "IMF Bz, nT")
	return fs
}

func usage() {
	fmt.Print(`
  fieldctl — Fieldline Engine control CLI

  USAGE
    fieldctl [flags] <command> [command-flags]

  COMMANDS (query)
    status          Show daemon state, uptime, and current activity
    health          Check daemon and component health
    version         Show CLI and daemon version information
    config          Show the daemon's running configuration
    jobs            List batch classification jobs
    summary         Show aggregate classification statistics

  COMMANDS (classification)
    classify        Classify the field line through a single point
    trace           Trace a full field line (optionally render SVG)
    batch           Queue an orbit file for batch classification
    cancel          Abort a queued or running batch job
    generate        Propagate an orbit and write a ready-to-batch file

  COMMANDS (live)
    watch           Stream live events from the daemon (Ctrl-C to stop)

  GLOBAL FLAGS
    -H, --host URL      Daemon base URL (default: http://127.0.0.1:8080)
        --json          Output raw JSON instead of formatted text
        --filter TYPE   Event types to show in watch (comma-separated)

  COMMAND FLAGS
    classify / trace:
        --x1 X --x2 Y --x3 Z    Point coordinates (GSM)
        --units UNITS           re (default) or km
        --time TS               Timestamp, e.g. "2017-01-01 01:00:00"
        --pdyn N                Solar wind dynamic pressure, nPa
        --dst N                 Dst index, nT
        --by N --bz N           IMF By / Bz, nT

    trace:
        --svg FILE              Write an SVG rendering to FILE

    batch:
        --output NAME           Output filename
        --workers N             Parallel workers

    jobs:
        --state STATE           Filter by job state

    generate:
        --filename NAME         Output filename in the daemon's data root
        --steps N               Number of rows
        --step SECS             Seconds between rows
        --start TS              First sample time (RFC 3339)
        --tle-file FILE         Read the element set from FILE
        --pdyn/--dst/--by/--bz  Driver columns for the generated file

  EXAMPLES
    fieldctl status
    fieldctl --json status
    fieldctl --host http://192.168.8.1:8080 watch
    fieldctl classify --x1 7.5 --x2 3 --x3 2 --time "2017-01-01 01:00:00" --pdyn 2.1 --dst -20 --by 3 --bz -5
    fieldctl trace --x1 4 --x2 0 --x3 0 --time "2017-01-01 01:00:00" --pdyn 2.1 --dst -20 --by 3 --bz -5 --svg line.svg
    fieldctl generate --filename orbit.txt --steps 120 --step 60
    fieldctl batch orbit.txt --workers 4
    fieldctl jobs
    fieldctl jobs --state running
    fieldctl cancel 3
    fieldctl summary
    fieldctl watch --filter state,progress,batch_summary

`)
}
