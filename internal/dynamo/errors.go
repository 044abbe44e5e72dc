package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for model construction.
var (
	// ErrStructureMismatch indicates atomistic and coarse-grained inputs disagree.
	ErrStructureMismatch = errors.New("dynamo: atomistic and coarse-grained structures do not match")

	// ErrTopologyMismatch indicates the bound topology does not cover the appended molecules.
	ErrTopologyMismatch = errors.New("dynamo: topology bead count does not match appended molecules")

	// ErrPackingInfeasible indicates copies could not be placed without overlap.
	ErrPackingInfeasible = errors.New("dynamo: no overlap-free placement found")

	// ErrInvalidParameter indicates a physical parameter outside its valid range.
	ErrInvalidParameter = errors.New("dynamo: invalid physical parameter")

	// ErrTermOrder indicates an energy term added out of the fixed assembly order.
	ErrTermOrder = errors.New("dynamo: energy term added out of order")

	// ErrSystemFrozen indicates a mutation after the system was bound to an integrator.
	ErrSystemFrozen = errors.New("dynamo: system is bound and read-only")

	// ErrEngine indicates a failure reported by the external engine.
	ErrEngine = errors.New("dynamo: engine failure")

	// ErrUnstable indicates the simulation became numerically unstable.
	ErrUnstable = errors.New("dynamo: simulation unstable (state diverged)")
)

// StructureError wraps ErrStructureMismatch with the inputs that disagree.
type StructureError struct {
	Atomistic string
	Coarse    string
	Residues  int
	Beads     int
	Detail    string
}

func (e *StructureError) Error() string {
	msg := fmt.Sprintf("%s (%s: %d residues, %s: %d beads)",
		ErrStructureMismatch.Error(), e.Atomistic, e.Residues, e.Coarse, e.Beads)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *StructureError) Unwrap() error {
	return ErrStructureMismatch
}

// PackingError wraps ErrPackingInfeasible with the request that failed.
type PackingError struct {
	Molecule  string
	Requested int
	Placed    int
	Box       Box
	Attempts  int
}

func (e *PackingError) Error() string {
	return fmt.Sprintf("%s: placed %d of %d copies of %s in %s after %d attempts",
		ErrPackingInfeasible.Error(), e.Placed, e.Requested, e.Molecule, e.Box, e.Attempts)
}

func (e *PackingError) Unwrap() error {
	return ErrPackingInfeasible
}

// ParameterError wraps ErrInvalidParameter with the rejected value.
type ParameterError struct {
	Name  string
	Value float64
	// Want describes the valid range; empty means strictly positive.
	Want string
}

func (e ParameterError) Error() string {
	want := e.Want
	if want == "" {
		want = "positive"
	}
	return fmt.Sprintf("%s: %s must be %s, got %g", ErrInvalidParameter.Error(), e.Name, want, e.Value)
}

func (e ParameterError) Unwrap() error {
	return ErrInvalidParameter
}

// SimError wraps ErrUnstable with the frame the engine reported it at.
type SimError struct {
	Step    int64
	Time    float64 // ps
	Message string
}

func (e *SimError) Error() string {
	return fmt.Sprintf("%s: step %d (%g ps): %s", ErrUnstable.Error(), e.Step, e.Time, e.Message)
}

func (e *SimError) Unwrap() error {
	return ErrUnstable
}

// RequirePositive returns a ParameterError when v is not strictly positive.
func RequirePositive(name string, v float64) error {
	if !(v > 0) {
		return ParameterError{Name: name, Value: v}
	}
	return nil
}
