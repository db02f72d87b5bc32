// Package telemetry normalizes externally decoded flight-log records into
// typed per-channel sequences.
//
// The package never touches raw log bytes: a log decoder (an external
// collaborator) yields RawRecords through the Source interface, and the
// Normalizer groups them into the eight telemetry channels, converting
// units to SI at ingestion time. Insertion order is the temporal order of
// appearance in the source stream; timestamps are not required to be
// monotonic and are preserved as-is.
package telemetry

import "errors"

// Ingestion errors. All are fatal: no partial record is retained.
var (
	ErrFileNotFound         = errors.New("log file not found")
	ErrEmptyLog             = errors.New("log file is empty")
	ErrLogTooLarge          = errors.New("log file exceeds size limit")
	ErrBadExtension         = errors.New("log file has unsupported extension")
	ErrNoMessages           = errors.New("no messages found in log")
	ErrNoEssentialTelemetry = errors.New("log contains no GPS or position telemetry")
	ErrTooManyMessages      = errors.New("message count ceiling exceeded")
	ErrParseBudgetExceeded  = errors.New("parse wall-clock budget exceeded")
)

// ChannelKind identifies one physical telemetry stream. The set is closed:
// the normalizer, digests and heuristics switch exhaustively over it.
type ChannelKind string

const (
	ChannelGPS          ChannelKind = "gps"
	ChannelAttitude     ChannelKind = "attitude"
	ChannelBattery      ChannelKind = "battery"
	ChannelVibration    ChannelKind = "vibration"
	ChannelBarometer    ChannelKind = "barometer"
	ChannelMode         ChannelKind = "mode"
	ChannelPosition     ChannelKind = "position"
	ChannelSystemStatus ChannelKind = "system_status"
)

// Kinds returns all channel kinds in canonical order.
func Kinds() []ChannelKind {
	return []ChannelKind{
		ChannelGPS, ChannelAttitude, ChannelBattery, ChannelVibration,
		ChannelBarometer, ChannelMode, ChannelPosition, ChannelSystemStatus,
	}
}

// RawRecord is one externally decoded log message. Fields carries the
// decoder's named numeric values; missing fields read as zero.
type RawRecord struct {
	// Type is the decoder-declared message type (e.g. "GPS", "GLOBAL_POSITION_INT").
	Type string `json:"type"`
	// Timestamp is seconds since boot or epoch, as the decoder reports it.
	Timestamp float64 `json:"timestamp"`
	// Fields holds the message's numeric fields keyed by decoder field name.
	Fields map[string]float64 `json:"fields"`
}

// Field returns the named field, or 0 when absent.
func (r *RawRecord) Field(name string) float64 {
	return r.Fields[name]
}

// GPSSample is one GPS channel sample. Units: degrees, meters, m/s.
type GPSSample struct {
	Timestamp  float64 `json:"timestamp"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Alt        float64 `json:"alt"`
	FixType    int     `json:"fix_type"`
	HDOP       float64 `json:"hdop"`
	Speed      float64 `json:"speed"`
	Satellites int     `json:"satellites"`
}

// AttitudeSample is one attitude channel sample.
type AttitudeSample struct {
	Timestamp float64 `json:"timestamp"`
	Roll      float64 `json:"roll"`
	Pitch     float64 `json:"pitch"`
	Yaw       float64 `json:"yaw"`
}

// BatterySample is one battery channel sample. Units: volts, amps.
type BatterySample struct {
	Timestamp float64 `json:"timestamp"`
	Voltage   float64 `json:"voltage"`
	Current   float64 `json:"current"`
	Remaining float64 `json:"remaining"`
}

// VibrationSample is one vibration channel sample.
type VibrationSample struct {
	Timestamp float64 `json:"timestamp"`
	X         float64 `json:"vibe_x"`
	Y         float64 `json:"vibe_y"`
	Z         float64 `json:"vibe_z"`
}

// BarometerSample is one barometer channel sample.
type BarometerSample struct {
	Timestamp   float64 `json:"timestamp"`
	Altitude    float64 `json:"altitude"`
	Pressure    float64 `json:"pressure"`
	Temperature float64 `json:"temperature"`
}

// ModeSample records a flight-mode change.
type ModeSample struct {
	Timestamp float64 `json:"timestamp"`
	Mode      float64 `json:"mode"`
	ModeNum   float64 `json:"mode_num"`
}

// PositionSample is one fused-position channel sample. Unlike GPS it
// carries a velocity vector. Units: degrees, meters, m/s.
type PositionSample struct {
	Timestamp   float64 `json:"timestamp"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Alt         float64 `json:"alt"`
	RelativeAlt float64 `json:"relative_alt"`
	VX          float64 `json:"vx"`
	VY          float64 `json:"vy"`
	VZ          float64 `json:"vz"`
}

// SystemStatusSample is one system-status channel sample. Units: volts, amps.
type SystemStatusSample struct {
	Timestamp float64 `json:"timestamp"`
	Voltage   float64 `json:"voltage"`
	Current   float64 `json:"current"`
	Remaining float64 `json:"remaining"`
}

// Channels owns the eight normalized channel sequences of a flight, in
// encounter order.
type Channels struct {
	GPS          []GPSSample          `json:"gps"`
	Attitude     []AttitudeSample     `json:"attitude"`
	Battery      []BatterySample      `json:"battery"`
	Vibration    []VibrationSample    `json:"vibration"`
	Barometer    []BarometerSample    `json:"barometer"`
	Mode         []ModeSample         `json:"mode"`
	Position     []PositionSample     `json:"position"`
	SystemStatus []SystemStatusSample `json:"system_status"`
}

// Count returns the sample count for a channel kind.
func (c *Channels) Count(kind ChannelKind) int {
	switch kind {
	case ChannelGPS:
		return len(c.GPS)
	case ChannelAttitude:
		return len(c.Attitude)
	case ChannelBattery:
		return len(c.Battery)
	case ChannelVibration:
		return len(c.Vibration)
	case ChannelBarometer:
		return len(c.Barometer)
	case ChannelMode:
		return len(c.Mode)
	case ChannelPosition:
		return len(c.Position)
	case ChannelSystemStatus:
		return len(c.SystemStatus)
	}
	return 0
}

// PreferredAltitudes returns the altitude series of the preferred position
// channel: fused position when present, raw GPS otherwise. Nil when both
// are empty.
func (c *Channels) PreferredAltitudes() []float64 {
	if len(c.Position) > 0 {
		alts := make([]float64, len(c.Position))
		for i, p := range c.Position {
			alts[i] = p.Alt
		}
		return alts
	}
	if len(c.GPS) > 0 {
		alts := make([]float64, len(c.GPS))
		for i, g := range c.GPS {
			alts[i] = g.Alt
		}
		return alts
	}
	return nil
}

// PreferredTimeSpan returns the first and last timestamps of the preferred
// position channel. ok is false when both position and GPS are empty.
func (c *Channels) PreferredTimeSpan() (first, last float64, ok bool) {
	if n := len(c.Position); n > 0 {
		return c.Position[0].Timestamp, c.Position[n-1].Timestamp, true
	}
	if n := len(c.GPS); n > 0 {
		return c.GPS[0].Timestamp, c.GPS[n-1].Timestamp, true
	}
	return 0, 0, false
}

// BatteryReading is a merged battery-like view over the system-status and
// battery channels.
type BatteryReading struct {
	Timestamp float64
	Voltage   float64
	Current   float64
	Remaining float64
}

// BatteryLike returns the preferred battery-like series: system status when
// present, raw battery otherwise. Nil when both are empty.
func (c *Channels) BatteryLike() []BatteryReading {
	if len(c.SystemStatus) > 0 {
		out := make([]BatteryReading, len(c.SystemStatus))
		for i, s := range c.SystemStatus {
			out[i] = BatteryReading{Timestamp: s.Timestamp, Voltage: s.Voltage, Current: s.Current, Remaining: s.Remaining}
		}
		return out
	}
	if len(c.Battery) > 0 {
		out := make([]BatteryReading, len(c.Battery))
		for i, b := range c.Battery {
			out[i] = BatteryReading{Timestamp: b.Timestamp, Voltage: b.Voltage, Current: b.Current, Remaining: b.Remaining}
		}
		return out
	}
	return nil
}
