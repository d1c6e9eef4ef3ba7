// Package distribution provides closed-form inverse-CDF (quantile)
// samplers for the parametric distributions used by the risk models, plus
// shared-propensity mixtures and empirical piecewise-linear quantile
// tables. All sampling goes through Ppf so that a fixed per-individual
// propensity maps to a reproducible value, and so that changing a
// distribution's parameters (an intervention effect) moves every
// individual along their own quantile rather than re-randomizing them.
package distribution

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// eulerGamma is the Euler-Mascheroni constant, used by the Gumbel
// moment parameterization.
const eulerGamma = 0.5772156649015329

// z975 is the 0.975 quantile of the standard normal distribution,
// used to convert 95% confidence bounds into native parameters.
var z975 = distuv.UnitNormal.Quantile(0.975)

// Distribution is anything that can map a propensity in [0,1) to a value
// through its inverse CDF.
type Distribution interface {
	Ppf(p float64) float64
}

// Constant is the degenerate distribution that returns its value at every
// propensity.
type Constant float64

// Ppf returns the constant value.
func (c Constant) Ppf(float64) float64 { return float64(c) }

// Beta is a beta distribution scaled onto the support [Lower, Upper].
type Beta struct {
	Alpha float64
	Beta  float64
	Lower float64
	Upper float64
}

// BetaFromStatistics derives scaled beta parameters by moment matching
// from a mean and 95% confidence bounds. The variance is inferred from the
// bound spread, assuming a normal approximation to the interval.
func BetaFromStatistics(mean, lower, upper float64) Beta {
	if upper == lower {
		return Beta{Alpha: 1, Beta: 1, Lower: lower, Upper: upper}
	}
	variance := ConfidenceIntervalVariance(upper, lower)
	width := upper - lower
	m := (mean - lower) / width
	v := variance / (width * width)
	common := m*(1-m)/v - 1
	return Beta{
		Alpha: m * common,
		Beta:  (1 - m) * common,
		Lower: lower,
		Upper: upper,
	}
}

// Ppf evaluates the scaled beta quantile function. Equal bounds
// short-circuit to the bound so degenerate parameter sets never reach the
// underlying sampler.
func (b Beta) Ppf(p float64) float64 {
	if b.Upper == b.Lower {
		return b.Upper
	}
	d := distuv.Beta{Alpha: b.Alpha, Beta: b.Beta}
	return b.Lower + (b.Upper-b.Lower)*d.Quantile(p)
}

// LogNormal is parameterized by its median and the sigma of the underlying
// normal, matching the (s, scale) convention of scipy.stats.lognorm.
type LogNormal struct {
	Median float64
	Sigma  float64
}

// LogNormalFromStatistics derives a log-normal from a median and a 97.5th
// percentile: sigma = (ln(upper) - ln(median)) / z_0.975.
func LogNormalFromStatistics(median, upper float64) LogNormal {
	return LogNormal{
		Median: median,
		Sigma:  (math.Log(upper) - math.Log(median)) / z975,
	}
}

// Ppf evaluates the log-normal quantile function. Zero sigma
// short-circuits to the median.
func (l LogNormal) Ppf(p float64) float64 {
	if l.Sigma == 0 {
		return l.Median
	}
	d := distuv.LogNormal{Mu: math.Log(l.Median), Sigma: l.Sigma}
	return d.Quantile(p)
}

// Normal is a normal distribution in mean/sd form.
type Normal struct {
	Mean float64
	SD   float64
}

// NormalFromStatistics derives a normal from a mean and a 97.5th
// percentile.
func NormalFromStatistics(mean, upper float64) Normal {
	return Normal{Mean: mean, SD: (upper - mean) / z975}
}

// Ppf evaluates the normal quantile function. Zero sd short-circuits to
// the mean.
func (n Normal) Ppf(p float64) float64 {
	if n.SD == 0 {
		return n.Mean
	}
	d := distuv.Normal{Mu: n.Mean, Sigma: n.SD}
	return d.Quantile(p)
}

// Gamma is a gamma distribution in mean/sd (moment) form:
// shape = (mean/sd)^2, scale = sd^2/mean.
type Gamma struct {
	Mean float64
	SD   float64
}

// Ppf evaluates the gamma quantile function. Zero sd short-circuits to
// the mean.
func (g Gamma) Ppf(p float64) float64 {
	if g.SD == 0 {
		return g.Mean
	}
	shape := (g.Mean / g.SD) * (g.Mean / g.SD)
	rate := g.Mean / (g.SD * g.SD)
	d := distuv.Gamma{Alpha: shape, Beta: rate}
	return d.Quantile(p)
}

// MirroredGumbel is a Gumbel distribution mirrored about Max, so that its
// long tail points toward low values. It is the left-skewed half of the
// hemoglobin ensemble: high propensities map to high hemoglobin, so the
// underlying right-skewed Gumbel is evaluated at 1-p.
type MirroredGumbel struct {
	Mean float64
	SD   float64
	Max  float64
}

// Ppf evaluates the mirrored Gumbel quantile function. Zero sd
// short-circuits to the mean.
func (g MirroredGumbel) Ppf(p float64) float64 {
	if g.SD == 0 {
		return g.Mean
	}
	scale := g.SD * math.Sqrt(6) / math.Pi
	loc := g.Max - g.Mean - scale*eulerGamma
	d := distuv.GumbelRight{Mu: loc, Beta: scale}
	return g.Max - d.Quantile(1-p)
}

// ConfidenceIntervalVariance converts a symmetric 95% confidence interval
// into a variance: ((upper-lower)/2 / (2 * 1.96))^2.
func ConfidenceIntervalVariance(upper, lower float64) float64 {
	spread := (upper - lower) / 2
	sd := spread / (2 * z975)
	return sd * sd
}
