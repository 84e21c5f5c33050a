// Package scenario loads fast marching runs described in HCL.
//
// A scenario file declares the grid, the speed field, the seeds and the
// stopping rules:
//
//	variable "speed" { default = 1 }
//
//	grid {
//	  size    = [64, 48]
//	  spacing = [0.5, 0.5]
//	}
//	speed {
//	  constant = var.speed
//	  obstacle {
//	    start = [20, 0]
//	    size  = [4, 40]
//	  }
//	}
//	seed   { index = [0, 0] }
//	target { index = [63, 47] }
//	stopping {
//	  mode   = "one"
//	  offset = 2
//	}
//	solver {
//	  order    = 2
//	  gradient = "postpass"
//	}
//
// Variables are referenced as var.<name> and may be overridden from the
// command line.
package scenario

import (
	"errors"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Sentinel errors for scenario loading.
var (
	// ErrParse indicates HCL syntax errors.
	ErrParse = errors.New("scenario: parse failed")
	// ErrDecode indicates a file that is valid HCL but does not match the scenario schema.
	ErrDecode = errors.New("scenario: decode failed")
	// ErrInvalid indicates a well-formed scenario with inconsistent values.
	ErrInvalid = errors.New("scenario: invalid scenario")
	// ErrUnknownVariable indicates a -var override for an undeclared variable.
	ErrUnknownVariable = errors.New("scenario: unknown variable")
	// ErrMissingVariable indicates a variable without default and without override.
	ErrMissingVariable = errors.New("scenario: variable has no value")
)

// variablesFile is the first decoding pass: variable blocks only.
type variablesFile struct {
	Variables []variableBlock `hcl:"variable,block"`
	Remain    hcl.Body        `hcl:",remain"`
}

type variableBlock struct {
	Name    string    `hcl:"name,label"`
	Default cty.Value `hcl:"default,optional"`
}

// scenarioFile is the second pass, evaluated with var.* in scope.
type scenarioFile struct {
	Grid     gridBlock      `hcl:"grid,block"`
	Speed    *speedBlock    `hcl:"speed,block"`
	Seeds    []seedBlock    `hcl:"seed,block"`
	Trials   []seedBlock    `hcl:"trial,block"`
	Targets  []targetBlock  `hcl:"target,block"`
	Stopping *stoppingBlock `hcl:"stopping,block"`
	Solver   *solverBlock   `hcl:"solver,block"`
	Region   *regionBlock   `hcl:"region,block"`
}

type gridBlock struct {
	Size    []int     `hcl:"size"`
	Spacing []float64 `hcl:"spacing,optional"`
	Origin  []float64 `hcl:"origin,optional"`
}

type speedBlock struct {
	Constant      *float64        `hcl:"constant,optional"`
	Rows          [][]float64     `hcl:"rows,optional"`
	Normalization *float64        `hcl:"normalization,optional"`
	Obstacles     []obstacleBlock `hcl:"obstacle,block"`
}

type obstacleBlock struct {
	Start []int    `hcl:"start"`
	Size  []int    `hcl:"size"`
	Speed *float64 `hcl:"speed,optional"`
}

type seedBlock struct {
	Index []int   `hcl:"index"`
	Time  float64 `hcl:"time,optional"`
}

type targetBlock struct {
	Index []int `hcl:"index"`
}

type stoppingBlock struct {
	Mode   string   `hcl:"mode,optional"`
	Count  int      `hcl:"count,optional"`
	Offset float64  `hcl:"offset,optional"`
	Value  *float64 `hcl:"value,optional"`
}

type solverBlock struct {
	Order     int      `hcl:"order,optional"`
	Gradient  string   `hcl:"gradient,optional"`
	Workers   int      `hcl:"workers,optional"`
	Unreached *float64 `hcl:"unreached,optional"`
	Collect   bool     `hcl:"collect,optional"`
}

type regionBlock struct {
	Start []int `hcl:"start"`
	Size  []int `hcl:"size"`
}
