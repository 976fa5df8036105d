// Package registry is the construction context for projection graphs. A
// Registry issues handles for the sub-models added to it, resolves the links
// between fleets, populations and their sub-models, and evaluates the linked
// populations. Handles are only meaningful within the registry that issued
// them.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"stockproj/internal/fleet"
	"stockproj/internal/functional"
	"stockproj/internal/growth"
	"stockproj/internal/numeric"
	"stockproj/internal/population"
)

var (
	ErrMissingComponent = errors.New("missing component link")
	ErrUnknownHandle    = errors.New("unknown handle")
	ErrUnknownForm      = errors.New("unknown form")
)

// Handle identifies a component within one Registry. The zero Handle means
// "not linked".
type Handle int

// PopulationLinks names the sub-models a population is built from.
type PopulationLinks struct {
	Recruitment Handle
	Maturity    Handle
	Growth      Handle
	Fleets      []Handle
}

type fleetEntry[T numeric.Number[T]] struct {
	fleet       *fleet.Fleet[T]
	selectivity Handle
}

type populationEntry[T numeric.Number[T]] struct {
	population *population.Population[T]
	links      PopulationLinks
}

type Registry[T numeric.Number[T]] struct {
	Logger *slog.Logger

	next        Handle
	curves      map[Handle]functional.Curve[T]
	growth      map[Handle]growth.Growth[T]
	recruitment map[Handle]population.Recruitment[T]
	fleets      map[Handle]fleetEntry[T]
	populations map[Handle]populationEntry[T]
	linked      bool
}

func New[T numeric.Number[T]](logger *slog.Logger) *Registry[T] {
	return &Registry[T]{
		Logger:      logger,
		curves:      make(map[Handle]functional.Curve[T]),
		growth:      make(map[Handle]growth.Growth[T]),
		recruitment: make(map[Handle]population.Recruitment[T]),
		fleets:      make(map[Handle]fleetEntry[T]),
		populations: make(map[Handle]populationEntry[T]),
	}
}

func (r *Registry[T]) issue() Handle {
	r.next++
	r.linked = false
	return r.next
}

// AddCurve registers a selectivity or maturity curve.
func (r *Registry[T]) AddCurve(c functional.Curve[T]) Handle {
	h := r.issue()
	r.curves[h] = c
	return h
}

func (r *Registry[T]) AddGrowth(g growth.Growth[T]) Handle {
	h := r.issue()
	r.growth[h] = g
	return h
}

func (r *Registry[T]) AddRecruitment(rec population.Recruitment[T]) Handle {
	h := r.issue()
	r.recruitment[h] = rec
	return h
}

// AddFleet registers a fleet whose selectivity is the curve behind selectivity.
func (r *Registry[T]) AddFleet(f *fleet.Fleet[T], selectivity Handle) Handle {
	h := r.issue()
	f.ID = int(h)
	r.fleets[h] = fleetEntry[T]{fleet: f, selectivity: selectivity}
	return h
}

func (r *Registry[T]) AddPopulation(p *population.Population[T], links PopulationLinks) Handle {
	h := r.issue()
	p.ID = int(h)
	links.Fleets = append([]Handle(nil), links.Fleets...)
	r.populations[h] = populationEntry[T]{population: p, links: links}
	return h
}

// Link resolves every handle and wires the components into their fleets and
// populations. All broken links are reported together.
func (r *Registry[T]) Link() error {
	var errs []error
	for _, h := range sortedHandles(r.fleets) {
		e := r.fleets[h]
		curve, err := lookup(r.curves, e.selectivity, fmt.Sprintf("fleet %q selectivity", e.fleet.Name))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		e.fleet.Selectivity = curve
	}

	for _, h := range sortedHandles(r.populations) {
		e := r.populations[h]
		p := e.population
		name := fmt.Sprintf("population %q", p.Name)

		if rec, err := lookup(r.recruitment, e.links.Recruitment, name+" recruitment"); err != nil {
			errs = append(errs, err)
		} else {
			p.Recruitment = rec
		}
		if mat, err := lookup(r.curves, e.links.Maturity, name+" maturity"); err != nil {
			errs = append(errs, err)
		} else {
			p.Maturity = mat
		}
		if g, err := lookup(r.growth, e.links.Growth, name+" growth"); err != nil {
			errs = append(errs, err)
		} else {
			p.Growth = g
		}

		if len(e.links.Fleets) == 0 {
			errs = append(errs, fmt.Errorf("%s fleets: %w", name, ErrMissingComponent))
		}
		p.Fleets = p.Fleets[:0]
		for _, fh := range e.links.Fleets {
			fe, err := lookup(r.fleets, fh, name+" fleet")
			if err != nil {
				errs = append(errs, err)
				continue
			}
			p.Fleets = append(p.Fleets, fe.fleet)
		}
		if p.Logger == nil {
			p.Logger = r.Logger
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	r.linked = true
	return nil
}

// Populations returns the registered populations in handle order.
func (r *Registry[T]) Populations() []*population.Population[T] {
	out := make([]*population.Population[T], 0, len(r.populations))
	for _, h := range sortedHandles(r.populations) {
		out = append(out, r.populations[h].population)
	}
	return out
}

func (r *Registry[T]) Population(h Handle) (*population.Population[T], bool) {
	e, ok := r.populations[h]
	return e.population, ok
}

func (r *Registry[T]) Fleet(h Handle) (*fleet.Fleet[T], bool) {
	e, ok := r.fleets[h]
	return e.fleet, ok
}

// Evaluate links if needed and runs every population.
func (r *Registry[T]) Evaluate() error {
	if !r.linked {
		if err := r.Link(); err != nil {
			return err
		}
	}
	for _, p := range r.Populations() {
		if err := p.Evaluate(); err != nil {
			return fmt.Errorf("population %q: %w", p.Name, err)
		}
	}
	return nil
}

func lookup[V any](m map[Handle]V, h Handle, what string) (V, error) {
	var zero V
	if h == 0 {
		return zero, fmt.Errorf("%s: %w", what, ErrMissingComponent)
	}
	v, ok := m[h]
	if !ok {
		return zero, fmt.Errorf("%s handle %d: %w", what, h, ErrUnknownHandle)
	}
	return v, nil
}

func sortedHandles[V any](m map[Handle]V) []Handle {
	handles := make([]Handle, 0, len(m))
	for h := range m {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles
}
