package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/openfluke/capsnet/nn"
	"github.com/openfluke/capsnet/runlog"
)

const usage = `usage: capsroute <command> [flags]

commands:
  run     seeded end-to-end forward pass with margin loss and accuracy
  sweep   dominant-capsule probability across routing iteration counts
  runs    list recorded runs (requires -db)`

func main() {
	log.SetFlags(log.Ltime | log.Lmicroseconds)
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runForward(ctx, args[1:], out)
	case "sweep":
		return runSweep(ctx, args[1:], out)
	case "runs":
		return runRuns(ctx, args[1:], out)
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\n%s", msg, usage)
}

// scenarioFlags are shared by run and sweep.
type scenarioFlags struct {
	batch     int
	lowerCaps int
	lowerDim  int
	numCaps   int
	dimCaps   int
	iters     int
	seed      int64
	db        string
	jsonOut   bool
	verbose   bool
}

func (f *scenarioFlags) register(fs *flag.FlagSet) {
	fs.IntVar(&f.batch, "batch", 2, "samples per batch")
	fs.IntVar(&f.lowerCaps, "lower-caps", 6, "lower capsule count P")
	fs.IntVar(&f.lowerDim, "lower-dim", 8, "lower capsule dimension D_p")
	fs.IntVar(&f.numCaps, "caps", 4, "upper capsule count C")
	fs.IntVar(&f.dimCaps, "dim", 16, "upper capsule dimension D_c")
	fs.IntVar(&f.iters, "iters", 3, "routing iterations")
	fs.Int64Var(&f.seed, "seed", 42, "random seed for weights and inputs")
	fs.StringVar(&f.db, "db", "", "sqlite run log path (empty: do not record)")
	fs.BoolVar(&f.jsonOut, "json", false, "emit the run record as JSON")
	fs.BoolVar(&f.verbose, "verbose", false, "log every routing iteration")
}

func (f *scenarioFlags) config() nn.CapsuleConfig {
	cfg := nn.DefaultCapsuleConfig()
	cfg.NumCaps = f.numCaps
	cfg.DimCaps = f.dimCaps
	cfg.RoutingIter = f.iters
	return cfg
}

func (f *scenarioFlags) validate() error {
	if f.batch <= 0 {
		return errors.New("batch must be > 0")
	}
	return nil
}

func runForward(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var f scenarioFlags
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := f.validate(); err != nil {
		return err
	}

	res, err := forwardScenario(f)
	if err != nil {
		return err
	}
	rec := runlog.NewRun("run", f.seed)
	rec.Config = res.layer.Config()
	rec.Batch, rec.LowerCaps, rec.LowerDim = f.batch, f.lowerCaps, f.lowerDim
	rec.Loss = res.metrics.Loss
	rec.Accuracy = res.metrics.Accuracy
	rec.Probabilities = res.metrics.Probabilities

	if err := record(ctx, f.db, rec); err != nil {
		return err
	}
	if f.jsonOut {
		return writeJSON(out, rec)
	}

	tel := nn.ExtractLayerTelemetry(res.layer, rec.ID)
	fmt.Fprintf(out, "run_id=%s seed=%d params=%s routing_iter=%d\n",
		rec.ID, f.seed, humanize.Comma(int64(tel.Parameters)), tel.RoutingIter)
	fmt.Fprintf(out, "lower=%v predictions=%v upper=%v probabilities=%v\n",
		batched(f.batch, tel.InputShape), batched(f.batch, tel.PredictionShape),
		batched(f.batch, tel.OutputShape), []int{f.batch, f.numCaps})
	for b, row := range res.metrics.Probabilities {
		fmt.Fprintf(out, "sample %d: target=%d predicted=%d probs=%s\n",
			b, res.targets[b], res.metrics.Predicted[b], formatFloats(row))
	}
	fmt.Fprintf(out, "margin_loss=%.6f accuracy=%.4f elapsed=%s\n",
		res.metrics.Loss, res.metrics.Accuracy, res.metrics.Elapsed)
	return nil
}

func runSweep(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	var f scenarioFlags
	f.register(fs)
	counts := fs.String("counts", "0,1,3", "comma-separated routing iteration counts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := f.validate(); err != nil {
		return err
	}
	iterCounts, err := parseCounts(*counts)
	if err != nil {
		return err
	}

	sweep, err := sweepScenario(f, iterCounts)
	if err != nil {
		return err
	}
	rec := runlog.NewRun("sweep", f.seed)
	rec.Config = f.config()
	rec.Batch, rec.LowerCaps = f.batch, f.lowerCaps
	rec.Sweep = sweep

	if err := record(ctx, f.db, rec); err != nil {
		return err
	}
	if f.jsonOut {
		return writeJSON(out, rec)
	}
	fmt.Fprintf(out, "run_id=%s seed=%d agreeing_capsules=%d\n", rec.ID, f.seed, f.lowerCaps)
	for _, n := range iterCounts {
		fmt.Fprintf(out, "routing_iter=%d dominant_probability=%.6f\n", n, sweep[n])
	}
	return nil
}

func runRuns(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	db := fs.String("db", "", "sqlite run log path")
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *db == "" {
		return errors.New("runs requires -db")
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	store, err := runlog.Open(ctx, *db)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, *limit)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(out, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(out, "run_id=%s created_at=%s scenario=%s seed=%d caps=%dx%d iters=%d loss=%.6f accuracy=%.4f\n",
			r.ID, humanize.Time(r.CreatedAt), r.Scenario, r.Seed,
			r.Config.NumCaps, r.Config.DimCaps, r.Config.RoutingIter, r.Loss, r.Accuracy)
	}
	return nil
}

func record(ctx context.Context, path string, rec runlog.Run) error {
	if path == "" {
		return nil
	}
	store, err := runlog.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.SaveRun(ctx, rec); err != nil {
		return fmt.Errorf("record run %s: %w", rec.ID, err)
	}
	log.Printf("[RUNLOG] recorded %s in %s", rec.ID, path)
	return nil
}

func parseCounts(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid routing iteration count %q", part)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, errors.New("counts must name at least one iteration count")
	}
	return out, nil
}

func formatFloats(v []float32) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.FormatFloat(float64(x), 'f', 4, 32)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func batched(batch int, shape []int) []int {
	return append([]int{batch}, shape...)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
