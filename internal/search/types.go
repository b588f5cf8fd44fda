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

// Package search implements the trajectory grid-search engine: the
// dense evaluation of every (start pixel, velocity) candidate against a
// PsiPhiArray, sigma-G outlier filtering, per-pixel top-K selection and
// global reduction into a sorted result list.
package search

import "encoding/json"

// Trajectory is a linear-motion candidate: an object passing through
// integer start pixel (X,Y) at t=0 with velocity (VX,VY) in
// pixels/day. Flux and Likelihood summarize the best surviving subset
// after filtering; ObsCount is the surviving observation count.
type Trajectory struct {
	X, Y       int16
	VX, VY     float32
	Flux       float32
	Likelihood float32
	ObsCount   int16
}

// SearchParameters controls one grid search run.
type SearchParameters struct {
	MinObservations int     `json:"minObservations"`
	MinLH           float32 `json:"minLh"`
	DoSigmaGFilter  bool    `json:"doSigmagFilter"`
	SglL            float64 `json:"sglL"` // percentile in [0,100]
	SglH            float64 `json:"sglH"`
	SigmaGCoeff     float32 `json:"sigmagCoeff"`
	PsiNumBytes     int     `json:"psiNumBytes"` // 1, 2 or 4
	PhiNumBytes     int     `json:"phiNumBytes"`
	XStartMin       int     `json:"xStartMin"`
	XStartMax       int     `json:"xStartMax"`
	YStartMin       int     `json:"yStartMin"`
	YStartMax       int     `json:"yStartMax"`
	ResultsPerPixel int     `json:"resultsPerPixel"`
	GPUFilter       bool    `json:"gpuFilter"`
}

// DefaultSearchParameters returns the standard configuration surface defaults.
func DefaultSearchParameters() SearchParameters {
	return SearchParameters{
		MinObservations: 7,
		MinLH:           10,
		DoSigmaGFilter:  true,
		SglL:            25,
		SglH:            75,
		SigmaGCoeff:     0.7413,
		PsiNumBytes:     4,
		PhiNumBytes:     4,
		ResultsPerPixel: 8,
		GPUFilter:       false,
	}
}

// UnmarshalJSON fills in defaults for any field missing from data,
// using the "type defaults T" alias trick to avoid infinite recursion
// into this same method.
func (p *SearchParameters) UnmarshalJSON(data []byte) error {
	type defaults SearchParameters
	def := defaults(DefaultSearchParameters())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*p = SearchParameters(def)
	return nil
}

// GridParams describes the velocity/angle grid to enumerate, matching
// the "v_arr"/"ang_arr" configuration surface of original_source.
type GridParams struct {
	AngleSteps    int     `json:"angleSteps"`
	VelocitySteps int     `json:"velocitySteps"`
	MinAngle      float64 `json:"minAngle"` // radians, offset around ReferenceAngle
	MaxAngle      float64 `json:"maxAngle"`
	MinVelocity   float64 `json:"minVelocity"` // pixels/day
	MaxVelocity   float64 `json:"maxVelocity"`

	// ReferenceAngle is an externally supplied scalar (e.g. local
	// ecliptic angle from a WCS solve) added to MinAngle/MaxAngle. The
	// search core never infers it.
	ReferenceAngle float64 `json:"referenceAngle"`
}

// DefaultGridParams mirrors original_source's ang_arr/v_arr defaults.
func DefaultGridParams() GridParams {
	return GridParams{
		AngleSteps:    11,
		VelocitySteps: 21,
		MinAngle:      -0.5,
		MaxAngle:      0.5,
		MinVelocity:   0,
		MaxVelocity:   20,
	}
}

// UnmarshalJSON fills in defaults for any field missing from data.
func (g *GridParams) UnmarshalJSON(data []byte) error {
	type defaults GridParams
	def := defaults(DefaultGridParams())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*g = GridParams(def)
	return nil
}
