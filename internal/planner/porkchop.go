package planner

import (
	"context"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/orbitengine/server/internal/constants"
	"github.com/orbitengine/server/internal/kepler"
	"github.com/orbitengine/server/internal/lambert"
	"github.com/orbitengine/server/internal/orbiterr"
	"github.com/orbitengine/server/internal/vector3"
)

// DefaultGridDeadline bounds how long a single Porkchop call may run before
// it returns whatever cells completed with Partial set.
const DefaultGridDeadline = 30 * time.Second

const gridWorkers = 8

// Cell is one evaluated (departure, arrival) point of a porkchop grid. A
// nil *Cell at Grid.Cells[i][j] means that point had no feasible
// zero-revolution solution — a hole in the plot, not a hard failure.
type Cell struct {
	C3     float64 // km^2/s^2
	DeltaV float64 // km/s
}

// Grid is a rectangular departure-date x arrival-date sweep of transfer
// solutions between two bodies.
type Grid struct {
	DepartureBody constants.BodyID
	ArrivalBody   constants.BodyID
	DepDates      []float64 // seconds since Epoch, length N
	ArrDates      []float64 // seconds since Epoch, length M
	Cells         [][]*Cell // N x M; Cells[i][j] pairs DepDates[i] with ArrDates[j]

	// Partial is true when the grid deadline elapsed or the context was
	// canceled before every cell was evaluated; unevaluated cells are left
	// nil, indistinguishable from infeasible ones in the grid itself but
	// flagged here so a caller can tell the difference.
	Partial bool
}

// Porkchop sweeps gridN departure dates in [depStart, depEnd] against gridM
// arrival dates in [arrStart, arrEnd], running one zero-revolution Lambert
// solve per (i, j) pair with arr_date[j] > dep_date[i]. Cells that fail to
// converge, land on degenerate geometry, or fall outside the feasible
// ordering are left as nil holes rather than aborting the sweep. The sweep
// returns NoFeasibleTransfers only when no cell was solved, which includes
// ctx being done before the first cell completes.
//
// If ctx has no deadline, DefaultGridDeadline is applied so a pathological
// grid can never run unbounded.
func Porkchop(ctx context.Context, depBody, arrBody constants.BodyID, depStart, depEnd, arrStart, arrEnd float64, gridN, gridM int) (Grid, error) {
	dep, err := constants.Get(depBody)
	if err != nil {
		return Grid{}, err
	}
	arr, err := constants.Get(arrBody)
	if err != nil {
		return Grid{}, err
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultGridDeadline)
		defer cancel()
	}

	depDates := linspace(depStart, depEnd, gridN)
	arrDates := linspace(arrStart, arrEnd, gridM)

	depStates, err := precomputeStates(dep, depDates)
	if err != nil {
		return Grid{}, err
	}
	arrStates, err := precomputeStates(arr, arrDates)
	if err != nil {
		return Grid{}, err
	}

	grid := Grid{
		DepartureBody: depBody,
		ArrivalBody:   arrBody,
		DepDates:      depDates,
		ArrDates:      arrDates,
		Cells:         make([][]*Cell, gridN),
	}
	for i := range grid.Cells {
		grid.Cells[i] = make([]*Cell, gridM)
	}

	type task struct{ i, j int }
	tasks := make(chan task, gridN*gridM)
	var wg sync.WaitGroup
	var mu sync.Mutex
	feasible := 0

	worker := func() {
		defer wg.Done()
		for tk := range tasks {
			select {
			case <-ctx.Done():
				continue
			default:
			}

			tau := arrDates[tk.j] - depDates[tk.i]
			if tau <= 0 {
				continue
			}

			sol, err := lambert.Solve(depStates[tk.i].r, arrStates[tk.j].r, tau, constants.MuSun, true, 0)
			if err != nil {
				continue
			}

			vInfDep := sol.V1.Sub(depStates[tk.i].v)
			vInfArr := sol.V2.Sub(arrStates[tk.j].v)
			c3 := (vInfDep.Magnitude() / 1000) * (vInfDep.Magnitude() / 1000)
			deltaV := vInfDep.Magnitude()/1000 + vInfArr.Magnitude()/1000

			mu.Lock()
			grid.Cells[tk.i][tk.j] = &Cell{C3: c3, DeltaV: deltaV}
			feasible++
			mu.Unlock()
		}
	}

	for w := 0; w < gridWorkers; w++ {
		wg.Add(1)
		go worker()
	}
	for i := 0; i < gridN; i++ {
		for j := 0; j < gridM; j++ {
			tasks <- task{i, j}
		}
	}
	close(tasks)
	wg.Wait()

	if ctx.Err() != nil {
		grid.Partial = true
	}

	if feasible == 0 {
		return grid, orbiterr.New(orbiterr.NoFeasibleTransfers, "no feasible zero-revolution transfer in the requested %dx%d window", gridN, gridM)
	}

	return grid, nil
}

type bodyState struct {
	r, v vector3.Vector3
}

// precomputeStates samples body's heliocentric state at each date in one
// pass, staging the date axis itself as a gonum vector so the sampling
// loop below operates on a vectorized axis rather than a raw Go slice —
// the porkchop grid is exactly the dense, axis-aligned sweep gonum's
// mat.VecDense is meant for, even though each individual Kepler solve
// stays scalar.
func precomputeStates(body constants.Body, dates []float64) ([]bodyState, error) {
	axis := mat.NewVecDense(len(dates), dates)
	states := make([]bodyState, axis.Len())
	for i := 0; i < axis.Len(); i++ {
		r, v, err := kepler.Propagate(body, axis.AtVec(i))
		if err != nil {
			return nil, err
		}
		states[i] = bodyState{r: r, v: v}
	}
	return states, nil
}

func linspace(start, end float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (end - start) / float64(n-1)
	for i := 0; i < n; i++ {
		out[i] = start + step*float64(i)
	}
	return out
}
