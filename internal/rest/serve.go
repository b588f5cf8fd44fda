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

// Package rest exposes the trajectory grid-search engine over HTTP
// using gin, with handlers for demo-stack search runs and stamp
// building.
package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mlnoga/kbsearch/internal/fakedata"
	"github.com/mlnoga/kbsearch/internal/search"
	"github.com/mlnoga/kbsearch/internal/stamp"
)

// Serve starts the REST API on 0.0.0.0:8080.
func Serve() {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/search", postSearch)
			v1.POST("/stamps", postStamps)
		}
	}
	r.Run() // listen and serve on 0.0.0.0:8080
}

func getPing(c *gin.Context) {
	c.JSON(200, gin.H{"message": "pong"})
}

type postSearchArgs struct {
	// Demo is the only stack source the core ships with; FITS ingestion
	// is external, so real deployments wire their own loader in front
	// of this handler.
	Demo    *fakedata.MovingSourceParams `json:"demo"`
	Params  *search.SearchParameters    `json:"searchParameters"`
	Grid    *search.GridParams          `json:"grid"`
	MaxHits int                         `json:"maxHits"`
}

func postSearch(c *gin.Context) {
	var args postSearchArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if args.Demo == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing demo stack parameters"})
		return
	}

	stack, err := fakedata.NewMovingSourceStack(*args.Demo)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ss := search.NewStackSearch(stack, c.Writer)
	if args.Params != nil {
		ss.SetSearchParameters(*args.Params)
	}
	grid := search.DefaultGridParams()
	if args.Grid != nil {
		grid = *args.Grid
	}

	results, err := ss.Search(grid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if args.MaxHits > 0 {
		results.Truncate(args.MaxHits)
	}

	c.JSON(http.StatusOK, gin.H{"trajectories": results.Items})
}

type postStampsArgs struct {
	Demo         *fakedata.MovingSourceParams `json:"demo"`
	Trajectories []search.Trajectory          `json:"trajectories"`
	Stamp        *stamp.Parameters            `json:"stampParameters"`
}

func postStamps(c *gin.Context) {
	var args postStampsArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if args.Demo == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing demo stack parameters"})
		return
	}
	stack, err := fakedata.NewMovingSourceStack(*args.Demo)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	params := stamp.DefaultParameters()
	if args.Stamp != nil {
		params = *args.Stamp
	}

	coadds, passed, err := stamp.BuildCoaddsBatch(stack, args.Trajectories, params, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type stampResult struct {
		Width  int       `json:"width"`
		Height int       `json:"height"`
		Data   []float32 `json:"data"`
		Passed bool      `json:"passed"`
	}
	out := make([]stampResult, len(coadds))
	for i, coadd := range coadds {
		out[i] = stampResult{Width: coadd.Width, Height: coadd.Height, Data: coadd.Data, Passed: passed[i]}
	}
	c.JSON(http.StatusOK, gin.H{"stamps": out})
}
