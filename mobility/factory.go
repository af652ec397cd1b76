package mobility

import "fmt"

// Kind names the user_mobility_model scenario enumeration.
type Kind string

const (
	KindFixed          Kind = "fixed"
	KindStep           Kind = "step"
	KindRandomWaypoint Kind = "random-waypoint"
)

// New constructs a Source from its scenario-file kind and parameter map
// (user_mobility_model_params), dispatched by a switch on the kind name.
func New(kind Kind, params map[string]float64, counts []int, timeStep float64) (Source, error) {
	switch kind {
	case KindFixed:
		return &Fixed{N: int(params["n"])}, nil
	case KindStep:
		return &Step{Counts: counts}, nil
	case KindRandomWaypoint:
		return NewRandomWaypoint(RandomWaypointParams{
			NrNodes: int(params["nr_nodes"]),
			MaxX:    params["max_x"],
			MaxY:    params["max_y"],
			MinV:    params["min_v"],
			MaxV:    params["max_v"],
			MaxWT:   params["max_wt"],
			Seed:    int64(params["seed"]),
		}, timeStep), nil
	default:
		return nil, fmt.Errorf("mobility: unknown kind %q", kind)
	}
}
