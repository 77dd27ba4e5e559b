// Package main is the detect command: it runs a YOLO model over one image and
// prints the boxes it finds.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	// engines register themselves with the inference package
	_ "github.com/nvr-ai/go-objdetect/onnx"
	_ "github.com/nvr-ai/go-objdetect/opencv"
)

const (
	flagConfig     = "config"
	flagImage      = "image"
	flagEngine     = "engine"
	flagTopology   = "topology"
	flagWeights    = "weights"
	flagClasses    = "classes"
	flagConf       = "conf"
	flagNMS        = "nms"
	flagClassAware = "class-aware"
	flagOpenCV     = "opencv"
	flagShow       = "show"
	flagOut        = "out"
	flagTimeout    = "timeout"
	flagDebug      = "debug"
)

var app = &cli.App{
	Name:      "detect",
	Usage:     "detect objects in an image with a YOLO model",
	UsageText: "detect --topology yolov3.cfg --weights yolov3.weights --classes coco.names --image street.jpg",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "load detector configuration from `FILE`; flags override it",
		},
		&cli.StringFlag{
			Name:     flagImage,
			Aliases:  []string{"i"},
			Usage:    "image `FILE` to run detection on",
			Required: true,
		},
		&cli.StringFlag{
			Name:  flagEngine,
			Usage: "inference engine (darknet, onnx)",
		},
		&cli.StringFlag{
			Name:  flagTopology,
			Usage: "network description `FILE` (.cfg or .onnx)",
		},
		&cli.StringFlag{
			Name:  flagWeights,
			Usage: "darknet weights `FILE`",
		},
		&cli.StringFlag{
			Name:  flagClasses,
			Usage: "newline-delimited class names `FILE`",
		},
		&cli.Float64Flag{
			Name:  flagConf,
			Usage: "confidence threshold",
		},
		&cli.Float64Flag{
			Name:  flagNMS,
			Usage: "non-maximum suppression IoU threshold",
		},
		&cli.BoolFlag{
			Name:  flagClassAware,
			Usage: "only suppress overlapping boxes of the same class",
		},
		&cli.BoolFlag{
			Name:  flagOpenCV,
			Usage: "build blobs and suppress boxes with OpenCV instead of the Go implementations",
		},
		&cli.BoolFlag{
			Name:  flagShow,
			Usage: "show the detections in a window and wait for a key press",
		},
		&cli.StringFlag{
			Name:  flagOut,
			Usage: "write the annotated image to `FILE` as PNG",
		},
		&cli.DurationFlag{
			Name:  flagTimeout,
			Usage: "abort detection after `DURATION`; 0 waits forever",
		},
		&cli.BoolFlag{
			Name:  flagDebug,
			Usage: "enable debug logging",
		},
	},
	Action: DetectAction,
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "detect: %v\n", err)
		os.Exit(1)
	}
}
