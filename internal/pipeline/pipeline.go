// Package pipeline runs the full conditioning sequence: flag masking,
// interval reconciliation, variable unification, grid alignment, pressure
// reconciliation, discharge estimation, derived columns, gap filling,
// sanitation and formatting.
package pipeline

import (
	"context"
	"math"
	"time"

	"github.com/streamside/hydrocond/internal/align"
	"github.com/streamside/hydrocond/internal/format"
	"github.com/streamside/hydrocond/internal/gapfill"
	"github.com/streamside/hydrocond/internal/interval"
	"github.com/streamside/hydrocond/internal/log"
	"github.com/streamside/hydrocond/internal/pressure"
	"github.com/streamside/hydrocond/internal/rating"
	"github.com/streamside/hydrocond/internal/sanitize"
	"github.com/streamside/hydrocond/internal/types"
	"github.com/streamside/hydrocond/internal/unify"
	"github.com/streamside/hydrocond/pkg/config"
	"github.com/streamside/hydrocond/pkg/dosat"
	"github.com/streamside/hydrocond/pkg/solar"
)

// Turbidity factor for the clear-sky insolation estimate.
const insolationTurbidity = 2.0

// Hydraulic-geometry relation for reach-averaged depth from discharge,
// depth = c * Q^f (Raymond et al. 2012 scaling coefficients).
const (
	hydraulicDepthCoeff = 0.409
	hydraulicDepthExp   = 0.294
)

// Pipeline conditions one site's observations per invocation. Instances
// share nothing; concurrent runs over different inputs need no coordination.
type Pipeline struct {
	opts      config.Options
	site      types.Site
	primary   pressure.Retriever
	secondary pressure.Retriever
}

// New builds a pipeline. The retrievers may be nil when pressure retrieval
// is not wanted or not available.
func New(opts config.Options, site types.Site, primary, secondary pressure.Retriever) *Pipeline {
	return &Pipeline{opts: opts, site: site, primary: primary, secondary: secondary}
}

// Run executes the conditioning sequence over one in-memory record set.
// Configuration and sufficiency errors abort with no partial output;
// quality issues are corrected in place and surfaced in the diagnostics.
func (p *Pipeline) Run(ctx context.Context, obs []types.Observation) (*format.Output, *types.Diagnostics, error) {
	d := types.NewDiagnostics()

	if err := p.opts.Validate(); err != nil {
		return nil, d, types.Configf("%v", err)
	}
	kind, err := format.KindFromOptions(p.opts)
	if err != nil {
		return nil, d, err
	}

	masked := p.maskFlagged(obs, d)
	series, err := types.SeriesByVariable(masked)
	if err != nil {
		return nil, d, err
	}
	if len(series) == 0 {
		return nil, d, &types.SufficiencyError{Variable: "all", Reason: "no observations"}
	}

	step, err := p.reconcileIntervals(series, d)
	if err != nil {
		return nil, d, err
	}
	d.IntervalMinutes = step.Minutes()

	wide := types.Pivot(series)
	presence, err := unify.Unify(wide, p.opts, d)
	if err != nil {
		return nil, d, err
	}
	if err := p.checkSufficiency(presence); err != nil {
		return nil, d, err
	}

	aligned, err := align.Align(wide, step, d)
	if err != nil {
		return nil, d, err
	}

	need := pressure.Need{
		ForSaturation: !aligned.Has(types.VarDOSat),
		Force:         p.opts.RetrievePressure,
	}
	pressure.Reconcile(ctx, aligned, p.site, need, p.primary, p.secondary, d)

	if err := p.estimateDischarge(aligned, d); err != nil {
		return nil, d, err
	}
	if err := p.estimateArealDepth(aligned, d); err != nil {
		return nil, d, err
	}
	if err := p.deriveColumns(aligned, d); err != nil {
		return nil, d, err
	}

	maxGapRows := 0
	if p.opts.MaxHours > 0 {
		maxGapRows = int(p.opts.MaxHours * 60 / step.Minutes())
	}
	gapfill.Fill(aligned, p.opts.FillGaps, maxGapRows, d)

	sanitize.Sanitize(aligned, d)

	solarTimes := make([]time.Time, aligned.Rows())
	for i, ts := range aligned.Times {
		solarTimes[i] = solar.MeanSolarTime(ts, p.site.Lon)
	}

	out, err := format.Format(kind, aligned, solarTimes, d)
	if err != nil {
		return nil, d, err
	}
	log.Infow("conditioning complete",
		"run", d.RunID, "rows", aligned.Rows(), "interval_min", d.IntervalMinutes,
		"warnings", len(d.Warnings))
	return out, d, nil
}

// maskFlagged blanks values whose flags the caller asked to remove. Rows
// stay in place so interval inference still sees their timestamps.
func (p *Pipeline) maskFlagged(obs []types.Observation, d *types.Diagnostics) []types.Observation {
	remove := make(map[types.Flag]bool)
	for _, name := range p.opts.RemoveFlags {
		if name == "none" {
			continue
		}
		f, err := types.ParseFlag(name)
		if err != nil {
			continue // validated earlier
		}
		remove[f] = true
		d.FlagsRemoved = append(d.FlagsRemoved, f.String())
	}
	if len(remove) == 0 {
		return obs
	}
	masked := make([]types.Observation, len(obs))
	count := 0
	for i, o := range obs {
		masked[i] = o
		if remove[o.Flag] {
			masked[i].Value = types.Missing()
			count++
		}
	}
	if count > 0 {
		log.Infof("masked %d flagged value(s)", count)
	}
	return masked
}

func (p *Pipeline) reconcileIntervals(series map[string]*types.VariableSeries, d *types.Diagnostics) (time.Duration, error) {
	var records []types.IntervalRecord
	for name, vs := range series {
		if len(vs.Times) < 2 {
			d.Warnf("%s has too few samples to infer an interval; excluded from reconciliation", name)
			continue
		}
		rec, err := interval.Infer(name, vs.Times, d)
		if err != nil {
			return 0, err
		}
		records = append(records, rec)
	}
	return interval.Reconcile(records, p.opts.Interval, d)
}

// checkSufficiency rejects runs that cannot produce the required output
// columns no matter what later stages do.
func (p *Pipeline) checkSufficiency(presence types.Presence) error {
	if !presence[types.VarDO] {
		return &types.SufficiencyError{Variable: types.VarDO, Reason: "no dissolved oxygen concentration"}
	}
	if !presence[types.VarWaterTemp] {
		return &types.SufficiencyError{Variable: types.VarWaterTemp, Reason: "no water temperature"}
	}
	depthDerivable := presence[types.VarLevel] && p.opts.RatingCurve != nil
	arealFromDischarge := presence[types.VarDischarge] && p.opts.EstimateArealDepth
	if !presence[types.VarDepth] && !depthDerivable && !arealFromDischarge {
		return &types.SufficiencyError{Variable: types.VarDepth, Reason: "no depth and no way to derive it"}
	}
	if !presence[types.VarLight] && !p.opts.EstimatePAR {
		return &types.SufficiencyError{Variable: types.VarLight, Reason: "no light sensor and estimate_par not set"}
	}
	return nil
}

// estimateDischarge applies the rating curve when discharge is absent and
// a curve specification exists.
func (p *Pipeline) estimateDischarge(t *types.WideTable, d *types.Diagnostics) error {
	if t.Has(types.VarDischarge) || p.opts.RatingCurve == nil {
		return nil
	}
	if !t.Has(types.VarLevel) {
		return &types.SufficiencyError{Variable: types.VarLevel, Reason: "rating curve needs a level series"}
	}

	curve, err := rating.Resolve(p.opts.RatingCurve, d)
	if err != nil {
		return err
	}
	discharge, depth := curve.Apply(t.Column(types.VarLevel), d)
	if err := t.SetColumn(types.VarDischarge, discharge); err != nil {
		return err
	}
	// A depth column that is only a level substitute yields to the
	// datum-shifted depth the curve derives; a measured one does not.
	if !t.Has(types.VarDepth) || d.DepthSource == types.DepthFromLevel {
		if err := t.SetColumn(types.VarDepth, depth); err != nil {
			return err
		}
		d.DepthSource = types.DepthFromRating
	}
	return nil
}

// estimateArealDepth replaces point depth with a reach-averaged estimate
// from discharge when the caller asked for it. Measured depth always wins.
func (p *Pipeline) estimateArealDepth(t *types.WideTable, d *types.Diagnostics) error {
	if !p.opts.EstimateArealDepth || !t.Has(types.VarDischarge) {
		return nil
	}
	if t.Has(types.VarDepth) && d.DepthSource == "" {
		return nil
	}
	q := t.Column(types.VarDischarge)
	depth := make([]float64, len(q))
	for i, v := range q {
		if types.IsMissing(v) || v <= 0 {
			depth[i] = types.Missing()
			continue
		}
		depth[i] = hydraulicDepthCoeff * math.Pow(v, hydraulicDepthExp)
	}
	if err := t.SetColumn(types.VarDepth, depth); err != nil {
		return err
	}
	d.DepthSource = types.DepthFromGeometry
	log.Infof("estimated areal depth from discharge via hydraulic geometry")
	return nil
}

// deriveColumns fills in DO saturation and, when requested, a modeled
// light column.
func (p *Pipeline) deriveColumns(t *types.WideTable, d *types.Diagnostics) error {
	if !t.Has(types.VarDOSat) {
		temp := t.Column(types.VarWaterTemp)
		var atmCol []float64
		if pres := t.Column(types.VarAirPres); pres != nil {
			atmCol = make([]float64, len(pres))
			copy(atmCol, pres)
			sanitize.ConvertColumn(atmCol, sanitize.KPaToAtm)
		}
		sat := make([]float64, t.Rows())
		assumed := 0
		for i := range sat {
			sat[i] = types.Missing()
			if types.IsMissing(temp[i]) {
				continue
			}
			atm := 1.0
			if atmCol != nil && !types.IsMissing(atmCol[i]) {
				atm = atmCol[i]
			} else {
				assumed++
			}
			sat[i] = dosat.Saturation(temp[i], atm)
		}
		if assumed > 0 {
			d.Warnf("%d DO saturation value(s) assume 1 atm; air pressure is missing for those rows", assumed)
		}
		if err := t.SetColumn(types.VarDOSat, sat); err != nil {
			return err
		}
	}

	if !t.Has(types.VarLight) && p.opts.EstimatePAR {
		light := make([]float64, t.Rows())
		for i, ts := range t.Times {
			light[i] = solar.PAR(solar.Insolation(ts, p.site.Lat, p.site.Lon, insolationTurbidity))
		}
		if err := t.SetColumn(types.VarLight, light); err != nil {
			return err
		}
		d.Warnf("no light sensor; light column is a clear-sky PAR estimate")
	}
	return nil
}
