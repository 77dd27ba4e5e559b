// Package main runs detection benchmarks over a directory of images.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nvr-ai/go-objdetect/benchmark"
	"github.com/nvr-ai/go-objdetect/detector"
	"github.com/nvr-ai/go-objdetect/util"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	_ "github.com/nvr-ai/go-objdetect/onnx"
	_ "github.com/nvr-ai/go-objdetect/opencv"
)

var app = &cli.App{
	Name:  "benchmark",
	Usage: "measure detection latency over an image corpus",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Usage:    "detector configuration `FILE`",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "images",
			Usage:    "`DIR` of test images",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "scenarios",
			Usage: "scenario set `FILE`; defaults to the quick set",
		},
		&cli.StringFlag{
			Name:  "output",
			Value: "./benchmark_results",
			Usage: "output `DIR` for results",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Value: 30 * time.Minute,
			Usage: "benchmark timeout",
		},
	},
	Action: run,
}

func run(c *cli.Context) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	config, err := detector.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}

	set := benchmark.QuickScenarios()
	if path := c.String("scenarios"); path != "" {
		if set, err = benchmark.LoadScenarioSet(path); err != nil {
			return err
		}
	}

	corpus, err := util.LoadDirectoryImages(c.String("images"))
	if err != nil {
		return errors.Wrap(err, "load images")
	}
	if len(corpus) == 0 {
		return errors.Errorf("no images in %s", c.String("images"))
	}

	d, err := detector.Open(config, detector.WithLogger(logger))
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	suite := benchmark.NewSuite(d, corpus, c.String("output"), logger)
	suite.AddScenarioSet(set)
	if err := suite.RunAll(ctx); err != nil {
		return err
	}

	path, err := suite.SaveResults(fmt.Sprintf("benchmark_%s.json", time.Now().Format("20060102_150405")))
	if err != nil {
		return err
	}
	for _, r := range suite.Results() {
		fmt.Fprintf(c.App.Writer, "%-12s mean=%v p95=%v fps=%.1f errors=%.0f%%\n",
			r.Scenario.Name, r.MeanLatency, r.P95Latency, r.FramesPerSecond, r.ErrorRate*100)
	}
	fmt.Fprintf(c.App.Writer, "results written to %s\n", path)
	return nil
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "benchmark: %v\n", err)
		os.Exit(1)
	}
}
