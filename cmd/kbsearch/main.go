// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mlnoga/kbsearch/internal/fakedata"
	"github.com/mlnoga/kbsearch/internal/rest"
	"github.com/mlnoga/kbsearch/internal/search"
	"github.com/mlnoga/kbsearch/internal/stamp"
)

const version = "0.1.0"

var serve = flag.Bool("serve", false, "run the REST API instead of a one-shot search")

var out = flag.String("out", "results.json", "write result trajectories as JSON to `file`")
var log = flag.String("log", "%auto", "write log output to `file`. `%auto` replaces the suffix of -out with .log")

var demoWidth = flag.Int("demoWidth", 64, "demo stack image width")
var demoHeight = flag.Int("demoHeight", 64, "demo stack image height")
var demoImages = flag.Int("demoImages", 10, "number of demo stack time-slices")
var demoX0 = flag.Float64("demoX0", 32, "demo source x position at t=0")
var demoY0 = flag.Float64("demoY0", 32, "demo source y position at t=0")
var demoVX = flag.Float64("demoVX", 10, "demo source velocity in x, pixels/day")
var demoVY = flag.Float64("demoVY", 0, "demo source velocity in y, pixels/day")
var demoFlux = flag.Float64("demoFlux", 1000, "demo source peak flux")
var demoNoise = flag.Float64("demoNoise", 1, "demo background noise sigma")
var demoPSFSigma = flag.Float64("demoPSFSigma", 1, "demo Gaussian PSF sigma in pixels")

var minObs = flag.Int("minObs", 7, "minimum surviving observations to report a trajectory")
var lhLevel = flag.Float64("lhLevel", 10, "minimum likelihood to report a trajectory")
var sigmaGFilter = flag.Bool("sigmaGFilter", true, "enable the sigma-G outlier filter")
var sglL = flag.Float64("sglL", 25, "sigma-G low percentile")
var sglH = flag.Float64("sglH", 75, "sigma-G high percentile")
var sigmaGCoeff = flag.Float64("sigmaGCoeff", 0.7413, "sigma-G normalization coefficient")
var encodeNumBytes = flag.Int("encodeNumBytes", 4, "psi/phi quantization width in bytes: 1, 2 or 4")
var resultsPerPixel = flag.Int("resultsPerPixel", 8, "top-K trajectories retained per start pixel")

var angleSteps = flag.Int("angleSteps", 11, "number of angle steps in the velocity grid")
var velocitySteps = flag.Int("velocitySteps", 21, "number of velocity magnitude steps in the grid")
var minAngle = flag.Float64("minAngle", -0.5, "minimum angle offset from the reference angle, radians")
var maxAngle = flag.Float64("maxAngle", 0.5, "maximum angle offset from the reference angle, radians")
var minVelocity = flag.Float64("minVelocity", 0, "minimum velocity magnitude, pixels/day")
var maxVelocity = flag.Float64("maxVelocity", 20, "maximum velocity magnitude, pixels/day")
var referenceAngle = flag.Float64("referenceAngle", 0, "externally supplied reference angle, radians (e.g. local ecliptic)")

var maxHits = flag.Int("maxHits", 100, "maximum number of trajectories to report, 0=unlimited")
var stampRadius = flag.Int("stampRadius", 10, "postage stamp radius in pixels for the top result")

func autoSuffix(pattern, path, newSuffix string) string {
	if pattern != "%auto" {
		return pattern
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + newSuffix
}

func main() {
	flag.Parse()

	if *serve {
		fmt.Printf("kbsearch %s: serving REST API on :8080\n", version)
		rest.Serve()
		return
	}

	logFileName := autoSuffix(*log, *out, ".log")
	logFile, err := os.Create(logFileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating log file %s: %s\n", logFileName, err.Error())
		os.Exit(1)
	}
	defer logFile.Close()

	fmt.Fprintf(logFile, "kbsearch %s\n", version)

	demoParams := fakedata.MovingSourceParams{
		Width: *demoWidth, Height: *demoHeight, NumImages: *demoImages,
		MJD0: 59000.0, CadenceDays: 0.1,
		X0: *demoX0, Y0: *demoY0, VX: *demoVX, VY: *demoVY,
		Flux: float32(*demoFlux), NoiseSigma: float32(*demoNoise), PSFSigma: float32(*demoPSFSigma),
	}
	stack, err := fakedata.NewMovingSourceStack(demoParams)
	if err != nil {
		fmt.Fprintf(logFile, "error building demo stack: %s\n", err.Error())
		os.Exit(1)
	}

	searchParams := search.DefaultSearchParameters()
	searchParams.MinObservations = *minObs
	searchParams.MinLH = float32(*lhLevel)
	searchParams.DoSigmaGFilter = *sigmaGFilter
	searchParams.SglL = *sglL
	searchParams.SglH = *sglH
	searchParams.SigmaGCoeff = float32(*sigmaGCoeff)
	searchParams.PsiNumBytes = *encodeNumBytes
	searchParams.PhiNumBytes = *encodeNumBytes
	searchParams.ResultsPerPixel = *resultsPerPixel
	searchParams.XStartMin, searchParams.XStartMax = 0, *demoWidth
	searchParams.YStartMin, searchParams.YStartMax = 0, *demoHeight

	grid := search.GridParams{
		AngleSteps: *angleSteps, VelocitySteps: *velocitySteps,
		MinAngle: *minAngle, MaxAngle: *maxAngle,
		MinVelocity: *minVelocity, MaxVelocity: *maxVelocity,
		ReferenceAngle: *referenceAngle,
	}

	ss := search.NewStackSearch(stack, logFile)
	ss.SetSearchParameters(searchParams)
	results, err := ss.Search(grid)
	if err != nil {
		fmt.Fprintf(logFile, "error running search: %s\n", err.Error())
		os.Exit(1)
	}
	if *maxHits > 0 {
		results.Truncate(*maxHits)
	}

	if len(results.Items) > 0 {
		best := results.Items[0]
		fmt.Fprintf(logFile, "top trajectory: x=%d y=%d vx=%g vy=%g L=%g obs=%d\n",
			best.X, best.Y, best.VX, best.VY, best.Likelihood, best.ObsCount)

		coadd, passed, err := stamp.BuildCoadd(stack, best, stamp.Parameters{Radius: *stampRadius, StampType: stamp.Sum}, nil)
		if err != nil {
			fmt.Fprintf(logFile, "error building stamp: %s\n", err.Error())
		} else {
			fmt.Fprintf(logFile, "top trajectory stamp: %dx%d passed=%v\n", coadd.Width, coadd.Height, passed)
		}
	}

	outFile, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(logFile, "error creating output file %s: %s\n", *out, err.Error())
		os.Exit(1)
	}
	defer outFile.Close()
	enc := json.NewEncoder(outFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results.Items); err != nil {
		fmt.Fprintf(logFile, "error writing results: %s\n", err.Error())
		os.Exit(1)
	}

	fmt.Fprintf(logFile, "wrote %d trajectories to %s\n", len(results.Items), *out)
}
