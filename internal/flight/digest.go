package flight

import (
	"github.com/fyrsmithlabs/flightd/internal/telemetry"
)

const (
	// trendEdge is how many leading and trailing values the bounded trend
	// sample keeps once a series grows past 2*trendEdge.
	trendEdge = 5
	// profileMax caps the down-sampled altitude profile length.
	profileMax = 20
)

// Digest is the per-channel statistical digest. A channel's digest is nil,
// not zeroed, when the channel is empty, so consumers can tell "no data"
// from "zero value".
type Digest struct {
	GPS       *GPSDigest       `json:"gps,omitempty"`
	Vibration *VibrationDigest `json:"vibration,omitempty"`
	Battery   *BatteryDigest   `json:"battery,omitempty"`
	Altitude  *AltitudeDigest  `json:"altitude,omitempty"`
}

// FixCategory indexes the 4-way GPS fix histogram.
type FixCategory int

const (
	FixNone FixCategory = iota
	FixGPS
	FixDGPS
	FixRTK
	fixCategories
)

// String returns the category label used in narratives.
func (f FixCategory) String() string {
	switch f {
	case FixNone:
		return "no-fix"
	case FixGPS:
		return "gps-fix"
	case FixDGPS:
		return "dgps-fix"
	case FixRTK:
		return "rtk-fix"
	}
	return "unknown"
}

// classifyFix maps a fix-type ordinal onto the histogram category.
// Ordinals 0-1 carry no usable fix, 2-3 are plain 2D/3D fixes, 4 is
// differential, 5 and above are RTK grades.
func classifyFix(fixType int) FixCategory {
	switch {
	case fixType <= 1:
		return FixNone
	case fixType <= 3:
		return FixGPS
	case fixType == 4:
		return FixDGPS
	default:
		return FixRTK
	}
}

// GPSDigest summarizes the GPS channel.
type GPSDigest struct {
	Points       int                  `json:"points"`
	FixHistogram [fixCategories]int   `json:"fix_histogram"`
	HDOPMin      float64              `json:"hdop_min"`
	HDOPMax      float64              `json:"hdop_max"`
	SatMin       int                  `json:"sat_min"`
	SatMax       int                  `json:"sat_max"`
}

// VibrationDigest summarizes the vibration channel with per-axis ranges.
type VibrationDigest struct {
	Points int     `json:"points"`
	XMin   float64 `json:"x_min"`
	XMax   float64 `json:"x_max"`
	YMin   float64 `json:"y_min"`
	YMax   float64 `json:"y_max"`
	ZMin   float64 `json:"z_min"`
	ZMax   float64 `json:"z_max"`
}

// BatteryDigest summarizes the preferred battery-like channel.
type BatteryDigest struct {
	Points     int     `json:"points"`
	VoltageMin float64 `json:"voltage_min"`
	VoltageMax float64 `json:"voltage_max"`
	// CurrentMin/Max range over nonzero currents only; zero is the
	// missing-sensor sentinel.
	CurrentMin float64 `json:"current_min"`
	CurrentMax float64 `json:"current_max"`
	// VoltageTrend is the bounded trend sample: first 5 and last 5 voltages
	// when more than 10 samples exist, the full series otherwise.
	VoltageTrend []float64 `json:"voltage_trend"`
}

// AltitudeDigest summarizes the preferred altitude series.
type AltitudeDigest struct {
	Points int     `json:"points"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	// MaxClimb and MaxDrop are the largest single-step positive and
	// negative deltas. MaxDrop is reported as a positive magnitude.
	MaxClimb float64 `json:"max_climb"`
	MaxDrop  float64 `json:"max_drop"`
	// Profile is a uniformly down-sampled series of at most 20 points.
	Profile []float64 `json:"profile"`
}

// BuildDigest computes digests for every populated channel.
func BuildDigest(ch *telemetry.Channels) *Digest {
	return &Digest{
		GPS:       gpsDigest(ch.GPS),
		Vibration: vibrationDigest(ch.Vibration),
		Battery:   batteryDigest(ch.BatteryLike()),
		Altitude:  altitudeDigest(ch.PreferredAltitudes()),
	}
}

func gpsDigest(samples []telemetry.GPSSample) *GPSDigest {
	if len(samples) == 0 {
		return nil
	}

	d := &GPSDigest{Points: len(samples)}

	hdopSeen := false
	satSeen := false
	for _, s := range samples {
		d.FixHistogram[classifyFix(s.FixType)]++

		// HDOP <= 0 is a sentinel for a missing reading.
		if s.HDOP > 0 {
			if !hdopSeen || s.HDOP < d.HDOPMin {
				d.HDOPMin = s.HDOP
			}
			if !hdopSeen || s.HDOP > d.HDOPMax {
				d.HDOPMax = s.HDOP
			}
			hdopSeen = true
		}

		if !satSeen || s.Satellites < d.SatMin {
			d.SatMin = s.Satellites
		}
		if !satSeen || s.Satellites > d.SatMax {
			d.SatMax = s.Satellites
		}
		satSeen = true
	}

	return d
}

func vibrationDigest(samples []telemetry.VibrationSample) *VibrationDigest {
	if len(samples) == 0 {
		return nil
	}

	d := &VibrationDigest{
		Points: len(samples),
		XMin:   samples[0].X, XMax: samples[0].X,
		YMin: samples[0].Y, YMax: samples[0].Y,
		ZMin: samples[0].Z, ZMax: samples[0].Z,
	}
	for _, s := range samples[1:] {
		d.XMin = min(d.XMin, s.X)
		d.XMax = max(d.XMax, s.X)
		d.YMin = min(d.YMin, s.Y)
		d.YMax = max(d.YMax, s.Y)
		d.ZMin = min(d.ZMin, s.Z)
		d.ZMax = max(d.ZMax, s.Z)
	}
	return d
}

func batteryDigest(readings []telemetry.BatteryReading) *BatteryDigest {
	if len(readings) == 0 {
		return nil
	}

	d := &BatteryDigest{
		Points:     len(readings),
		VoltageMin: readings[0].Voltage,
		VoltageMax: readings[0].Voltage,
	}

	voltages := make([]float64, len(readings))
	currentSeen := false
	for i, r := range readings {
		voltages[i] = r.Voltage
		d.VoltageMin = min(d.VoltageMin, r.Voltage)
		d.VoltageMax = max(d.VoltageMax, r.Voltage)

		if r.Current != 0 {
			if !currentSeen || r.Current < d.CurrentMin {
				d.CurrentMin = r.Current
			}
			if !currentSeen || r.Current > d.CurrentMax {
				d.CurrentMax = r.Current
			}
			currentSeen = true
		}
	}

	d.VoltageTrend = trendSample(voltages)
	return d
}

// trendSample bounds a series to its first and last trendEdge values when
// it grows past 2*trendEdge, otherwise returns the series unchanged.
func trendSample(series []float64) []float64 {
	if len(series) <= 2*trendEdge {
		return series
	}
	out := make([]float64, 0, 2*trendEdge)
	out = append(out, series[:trendEdge]...)
	out = append(out, series[len(series)-trendEdge:]...)
	return out
}

func altitudeDigest(alts []float64) *AltitudeDigest {
	if len(alts) == 0 {
		return nil
	}

	d := &AltitudeDigest{
		Points: len(alts),
		Min:    alts[0],
		Max:    alts[0],
	}
	for i, alt := range alts {
		d.Min = min(d.Min, alt)
		d.Max = max(d.Max, alt)
		if i > 0 {
			delta := alt - alts[i-1]
			if delta > d.MaxClimb {
				d.MaxClimb = delta
			}
			if -delta > d.MaxDrop {
				d.MaxDrop = -delta
			}
		}
	}

	stride := (len(alts) + profileMax - 1) / profileMax
	if stride < 1 {
		stride = 1
	}
	for i := 0; i < len(alts); i += stride {
		d.Profile = append(d.Profile, alts[i])
	}

	return d
}
