// Package physics holds the pure conversion curves for the Afterbay complex:
// the stage-storage quadratic, the plant MW to discharge curves and the
// head-limit line. All functions are stateless; callers guarantee inputs are
// plausible reservoir quantities.
package physics

import "math"

// Stage-storage quadratic: AF = A*ft^2 + B*ft + C.
const (
	StorageQuadA = 0.6311303
	StorageQuadB = -1403.8
	StorageQuadC = 780566.0
)

// Oxbow powerhouse linear MW -> CFS curve.
const (
	OxbowCFSFactor = 163.73
	OxbowCFSOffset = 83.0
)

// MF 1&2 quadratic MW -> CFS curve. Unlike Oxbow this plant's discharge
// carries a small quadratic term.
const (
	MF12CFSQuad   = 0.00943
	MF12CFSFactor = 5.6653
	MF12CFSOffset = 18.54
)

// Head-limit line: available MW caps at HeadSlope*ft + HeadIntercept once the
// reservoir draws down.
const (
	HeadSlope     = 0.0912
	HeadIntercept = -101.42
)

// Oxbow operating envelope.
const (
	OxbowMinMW       = 0.8
	OxbowMaxMW       = 5.8
	OxbowRampPerMin  = 0.042
	OxbowRampPerHour = OxbowRampPerMin * 60.0
)

// AFPerCFSHour converts a one-hour CFS rate into acre-feet.
const AFPerCFSHour = 3600.0 / 43560.0

// CFSPerAFHour is the inverse of AFPerCFSHour.
const CFSPerAFHour = 1.0 / AFPerCFSHour

// MinElevFt is the hard minimum Afterbay elevation.
const MinElevFt = 1168.0

// StorageFromFeet converts a reservoir elevation to storage in acre-feet.
func StorageFromFeet(ft float64) float64 {
	return StorageQuadA*ft*ft + StorageQuadB*ft + StorageQuadC
}

// FeetFromStorage inverts the stage-storage quadratic, taking the larger root
// which is the one inside the operating band. The discriminant is clamped at
// zero so numerical drift just outside the representable range degrades to
// the vertex elevation instead of a NaN.
func FeetFromStorage(af float64) float64 {
	disc := StorageQuadB*StorageQuadB - 4*StorageQuadA*(StorageQuadC-af)
	if disc < 0 {
		disc = 0
	}
	return (-StorageQuadB + math.Sqrt(disc)) / (2 * StorageQuadA)
}

// OxbowCFS converts Oxbow generation to discharge using the linear curve.
func OxbowCFS(mw float64) float64 {
	return OxbowCFSFactor*mw + OxbowCFSOffset
}

// MF12CFS converts MF 1&2 generation to discharge using the quadratic curve.
// Negative MW is treated as zero output.
func MF12CFS(mw float64) float64 {
	if mw < 0 {
		mw = 0
	}
	return MF12CFSQuad*mw*mw + MF12CFSFactor*mw + MF12CFSOffset
}

// HeadLimitMW returns the maximum Oxbow output available at the given
// elevation.
func HeadLimitMW(elevFt float64) float64 {
	return HeadSlope*elevFt + HeadIntercept
}

// HeadLimitedCapMW solves the head limit against the end-of-hour elevation in
// closed form, so the forward replay needs no iteration. With the water
// balance A_t = A_prev + k*(known - f*g) and the limit g <= a*H_t + b, the
// storage curve is linearised at the previous elevation (slope s acre-feet
// per foot), giving
//
//	g*(1 + a*k*f/s) <= a*H_prev + a*k*known/s + b
//
// where a is HeadSlope, b HeadIntercept, f OxbowCFSFactor and k AFPerCFSHour.
func HeadLimitedCapMW(prevElevFt, knownCFS float64) float64 {
	s := 2*StorageQuadA*prevElevFt + StorageQuadB
	aks := HeadSlope * AFPerCFSHour / s
	return (HeadSlope*prevElevFt + HeadIntercept + aks*knownCFS) / (1.0 + aks*OxbowCFSFactor)
}
