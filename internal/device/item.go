package device

// Item identifies one kernel invocation within the iteration range.
// For flat dispatches only Global and GlobalRange are meaningful; for
// grouped dispatches Local, Group and LocalRange are populated too.
type Item struct {
	Global      [3]int
	Local       [3]int
	Group       [3]int
	GlobalRange [3]int
	LocalRange  [3]int
	Dims        int
	Grouped     bool
}

// GlobalID returns the global index in dimension d.
func (it Item) GlobalID(d int) int { return it.Global[d] }

// GlobalLinear returns the linearized global index, innermost
// dimension first.
func (it Item) GlobalLinear() int {
	switch it.Dims {
	case 1:
		return it.Global[0]
	case 2:
		return it.Global[1]*it.GlobalRange[0] + it.Global[0]
	default:
		return (it.Global[2]*it.GlobalRange[1]+it.Global[1])*it.GlobalRange[0] + it.Global[0]
	}
}
