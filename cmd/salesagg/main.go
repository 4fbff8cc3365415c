package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tillberg/alog"

	"github.com/tillberg/aggbench/salesagg"
	"github.com/tillberg/aggbench/salesagg/internal/config"
)

const usage = `usage:
  salesagg [run] [-config file] [-in path] [-out path] [-format csv|parquet]
                 [-batch-size n] [-mode strict|skip] [-prefetch]
  salesagg generate [-out path] [-n records] [-start-year y] [-end-year y] [-seed s]
`

func main() {
	args := os.Args[1:]
	cmd := "run"
	if len(args) > 0 && (args[0] == "run" || args[0] == "generate") {
		cmd, args = args[0], args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	what := "process sales data"
	switch cmd {
	case "generate":
		what = "generate sales data"
		err = generate(args)
	default:
		err = run(ctx, args)
	}
	if err != nil {
		alog.Log("Failed to %s: %v", what, err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := loadRunConfig(args)
	if err != nil {
		return err
	}
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return err
	}
	p, err := salesagg.NewPipeline(opts)
	if err != nil {
		return err
	}
	sum, err := p.Run(ctx, cfg.Input, cfg.Output)
	if err != nil {
		return err
	}
	alog.Log("Processed %d records and saved aggregated data to %s", sum.Records, sum.Output)
	return nil
}

// loadRunConfig merges file, environment and flags, then validates once.
func loadRunConfig(args []string) (*config.Config, error) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	configPath := fs.String("config", "", "path to YAML config file")
	input := fs.String("in", "", "input CSV path or s3://bucket/key")
	output := fs.String("out", "", "output path or s3://bucket/key")
	format := fs.String("format", "", "output format: csv or parquet")
	batchSize := fs.Int("batch-size", 0, "records folded per batch")
	mode := fs.String("mode", "", "undecodable values: strict fails, skip drops the row")
	prefetch := fs.Bool("prefetch", false, "decode the next batch while folding the current one")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		return nil, err
	}

	// Flags win over file and environment.
	if *input != "" {
		cfg.Input = *input
	}
	if *output != "" {
		cfg.Output = *output
	}
	if *format != "" {
		cfg.Format = *format
	}
	if *batchSize != 0 {
		cfg.BatchSize = *batchSize
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *prefetch {
		cfg.Prefetch = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func generate(args []string) error {
	def := salesagg.DefaultGenerateOptions()
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	output := fs.String("out", config.DefaultInput, "output CSV path")
	n := fs.Int("n", def.Records, "number of records")
	startYear := fs.Int("start-year", def.StartYear, "first year of generated dates")
	endYear := fs.Int("end-year", def.EndYear, "last year of generated dates")
	seed := fs.Uint64("seed", def.Seed, "random seed")
	fs.Parse(args)

	f, err := os.Create(*output)
	if err != nil {
		return err
	}
	timer := alog.NewTimer()
	err = salesagg.Generate(f, salesagg.GenerateOptions{
		Records:   *n,
		StartYear: *startYear,
		EndYear:   *endYear,
		Seed:      *seed,
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("generate %s: %w", *output, err)
	}
	alog.Log("Generated %d records in %s in %s", *n, *output, timer.Elapsed())
	return nil
}
