// Package unify resolves proxy and duplicate variables before grid
// alignment: remote reference gauges stand in for absent local sensors, and
// level substitutes for depth when no depth sensor exists.
package unify

import (
	"github.com/streamside/hydrocond/internal/types"
	"github.com/streamside/hydrocond/pkg/config"
)

// Unify applies the substitution rules in order and rebuilds the presence
// map afterwards. The table is modified in place.
func Unify(t *types.WideTable, opts config.Options, d *types.Diagnostics) (types.Presence, error) {
	p := t.BuildPresence()

	if err := adoptRemote(t, p, types.VarRefLevel, types.VarLevel, opts, d); err != nil {
		return nil, err
	}
	if err := adoptRemote(t, p, types.VarRefDischarge, types.VarDischarge, opts, d); err != nil {
		return nil, err
	}

	switch {
	case p[types.VarLevel] && !p[types.VarDepth]:
		// A rating curve run with areal depth estimation derives depth on
		// its own; otherwise level is the best available depth stand-in.
		if !(p[types.VarDischarge] && opts.EstimateArealDepth) {
			level := t.Column(types.VarLevel)
			depth := make([]float64, len(level))
			copy(depth, level)
			if err := t.SetColumn(types.VarDepth, depth); err != nil {
				return nil, err
			}
			p[types.VarDepth] = true
			d.DepthSource = types.DepthFromLevel
			d.Warnf("no depth sensor; substituting %s for %s (true depth is preferable)",
				types.VarLevel, types.VarDepth)
		}

	case p[types.VarLevel] && p[types.VarDepth] && t.Has(types.VarLevel) && t.Has(types.VarDepth):
		// Both measured. Surfaced, never silently resolved: depth feeds the
		// model directly, so with fewest-missing preference the level series
		// only takes the depth slot when it has strictly better coverage.
		switch opts.DuplicatePreference {
		case "fewest-missing":
			if t.MissingFraction(types.VarLevel) < t.MissingFraction(types.VarDepth) {
				level := t.Column(types.VarLevel)
				depth := make([]float64, len(level))
				copy(depth, level)
				if err := t.SetColumn(types.VarDepth, depth); err != nil {
					return nil, err
				}
				d.DepthSource = types.DepthFromLevel
				d.Warnf("duplicate_preference=fewest-missing: %s has better coverage than %s; using it as depth",
					types.VarLevel, types.VarDepth)
			}
		default:
			d.Warnf("both %s and %s are present; modeling uses %s (set duplicate_preference to resolve)",
				types.VarLevel, types.VarDepth, types.VarDepth)
		}
	}

	return p, nil
}

// adoptRemote renames a remote reference series onto the local name when no
// local series exists. When both exist, the configured duplicate preference
// decides; by default the local series wins and the conflict is surfaced.
func adoptRemote(t *types.WideTable, p types.Presence, remote, local string, opts config.Options, d *types.Diagnostics) error {
	if !p[remote] {
		return nil
	}
	if !p[local] {
		if err := t.Rename(remote, local); err != nil {
			return err
		}
		p[local] = true
		delete(p, remote)
		d.Warnf("no local %s; using remote reference series %s", local, remote)
		return nil
	}

	switch opts.DuplicatePreference {
	case "remote":
		t.Drop(local)
		if err := t.Rename(remote, local); err != nil {
			return err
		}
		delete(p, remote)
		d.Warnf("duplicate_preference=remote: replaced %s with %s", local, remote)
	case "fewest-missing":
		if t.MissingFraction(remote) < t.MissingFraction(local) {
			t.Drop(local)
			if err := t.Rename(remote, local); err != nil {
				return err
			}
			d.Warnf("duplicate_preference=fewest-missing: %s has better coverage; using it as %s", remote, local)
		} else {
			t.Drop(remote)
		}
		delete(p, remote)
	case "local":
		t.Drop(remote)
		delete(p, remote)
	default:
		d.Warnf("both %s and %s are present; keeping %s (set duplicate_preference to resolve)",
			local, remote, local)
	}
	return nil
}
