package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/flightd/internal/config"
	"github.com/fyrsmithlabs/flightd/internal/logging"
)

// Result is the output of a normalization run.
type Result struct {
	Channels      *Channels
	TotalMessages int
	MessageCounts map[string]int
	// Skipped counts records dropped for malformed values.
	Skipped int
}

// Normalizer groups decoded records into per-channel sequences.
type Normalizer struct {
	cfg    config.IngestConfig
	logger *logging.Logger
}

// NewNormalizer creates a normalizer with the given ingest guards.
func NewNormalizer(cfg config.IngestConfig, logger *logging.Logger) *Normalizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Normalizer{cfg: cfg, logger: logger.Named("normalizer")}
}

// Normalize drains src and returns the normalized channels.
//
// Guards: the run aborts with ErrTooManyMessages past the message ceiling
// and with ErrParseBudgetExceeded past the wall-clock budget. Both are
// resource-exhaustion guards; exceeding either is fatal and no partial
// result is returned. A single malformed record is skipped with a warning.
//
// Post-conditions: a drained source with zero records fails with
// ErrNoMessages; a record set with neither GPS nor position samples fails
// with ErrNoEssentialTelemetry.
func (n *Normalizer) Normalize(ctx context.Context, src Source) (*Result, error) {
	deadline := time.Now().Add(n.cfg.ParseBudget.Duration())

	res := &Result{
		Channels:      &Channels{},
		MessageCounts: make(map[string]int),
	}

	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading decoded record: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: budget %s", ErrParseBudgetExceeded, n.cfg.ParseBudget.Duration())
		}

		res.TotalMessages++
		if res.TotalMessages > n.cfg.MaxMessages {
			return nil, fmt.Errorf("%w: ceiling %d", ErrTooManyMessages, n.cfg.MaxMessages)
		}
		res.MessageCounts[rec.Type]++

		if !recordFinite(rec) {
			res.Skipped++
			n.logger.Warn(ctx, "skipping malformed record",
				zap.String("type", rec.Type),
				zap.Float64("timestamp", rec.Timestamp))
			continue
		}

		n.append(res.Channels, rec)
	}

	if res.TotalMessages == 0 {
		return nil, ErrNoMessages
	}
	if len(res.Channels.GPS) == 0 && len(res.Channels.Position) == 0 {
		return nil, ErrNoEssentialTelemetry
	}

	n.logger.Debug(ctx, "normalized telemetry",
		zap.Int("total", res.TotalMessages),
		zap.Int("skipped", res.Skipped),
		zap.Int("gps", len(res.Channels.GPS)),
		zap.Int("position", len(res.Channels.Position)))

	return res, nil
}

// append maps one record to its channel, converting units to SI.
// Unknown record types are counted but carry no channel data.
func (n *Normalizer) append(ch *Channels, rec *RawRecord) {
	switch rec.Type {

	// Native log format messages. Values are already in SI units.
	case "GPS":
		ch.GPS = append(ch.GPS, GPSSample{
			Timestamp:  rec.Timestamp,
			Lat:        rec.Field("Lat"),
			Lon:        rec.Field("Lng"),
			Alt:        rec.Field("Alt"),
			FixType:    int(rec.Field("Status")),
			HDOP:       rec.Field("HDop"),
			Speed:      rec.Field("Spd"),
			Satellites: int(rec.Field("NSats")),
		})
	case "ATT":
		ch.Attitude = append(ch.Attitude, AttitudeSample{
			Timestamp: rec.Timestamp,
			Roll:      rec.Field("Roll"),
			Pitch:     rec.Field("Pitch"),
			Yaw:       rec.Field("Yaw"),
		})
	case "BAT":
		ch.Battery = append(ch.Battery, BatterySample{
			Timestamp: rec.Timestamp,
			Voltage:   rec.Field("Volt"),
			Current:   rec.Field("Curr"),
			Remaining: rec.Field("CurrTot"),
		})
	case "VIBE":
		ch.Vibration = append(ch.Vibration, VibrationSample{
			Timestamp: rec.Timestamp,
			X:         rec.Field("VibeX"),
			Y:         rec.Field("VibeY"),
			Z:         rec.Field("VibeZ"),
		})
	case "BARO":
		ch.Barometer = append(ch.Barometer, BarometerSample{
			Timestamp:   rec.Timestamp,
			Altitude:    rec.Field("Alt"),
			Pressure:    rec.Field("Press"),
			Temperature: rec.Field("Temp"),
		})
	case "MODE":
		ch.Mode = append(ch.Mode, ModeSample{
			Timestamp: rec.Timestamp,
			Mode:      rec.Field("Mode"),
			ModeNum:   rec.Field("ModeNum"),
		})

	// Standard protocol messages covering the same physical quantities.
	// Integer-scaled encodings are converted to SI here.
	case "GPS_RAW_INT":
		ch.GPS = append(ch.GPS, GPSSample{
			Timestamp:  rec.Timestamp,
			Lat:        rec.Field("lat") * 1e-7,
			Lon:        rec.Field("lon") * 1e-7,
			Alt:        rec.Field("alt") / 1000, // mm -> m
			FixType:    int(rec.Field("fix_type")),
			HDOP:       rec.Field("eph") / 100,
			Speed:      rec.Field("vel") / 100, // cm/s -> m/s
			Satellites: int(rec.Field("satellites_visible")),
		})
	case "GLOBAL_POSITION_INT":
		ch.Position = append(ch.Position, PositionSample{
			Timestamp:   rec.Timestamp,
			Lat:         rec.Field("lat") * 1e-7,
			Lon:         rec.Field("lon") * 1e-7,
			Alt:         rec.Field("alt") / 1000,
			RelativeAlt: rec.Field("relative_alt") / 1000,
			VX:          rec.Field("vx") / 100,
			VY:          rec.Field("vy") / 100,
			VZ:          rec.Field("vz") / 100,
		})
	case "ATTITUDE":
		ch.Attitude = append(ch.Attitude, AttitudeSample{
			Timestamp: rec.Timestamp,
			Roll:      rec.Field("roll"),
			Pitch:     rec.Field("pitch"),
			Yaw:       rec.Field("yaw"),
		})
	case "BATTERY_STATUS":
		ch.Battery = append(ch.Battery, BatterySample{
			Timestamp: rec.Timestamp,
			Voltage:   rec.Field("voltages") / 1000, // mV -> V
			Current:   rec.Field("current_battery") / 100,
			Remaining: rec.Field("battery_remaining"),
		})
	case "SYS_STATUS":
		ch.SystemStatus = append(ch.SystemStatus, SystemStatusSample{
			Timestamp: rec.Timestamp,
			Voltage:   rec.Field("voltage_battery") / 1000,
			Current:   rec.Field("current_battery") / 100,
			Remaining: rec.Field("battery_remaining"),
		})
	case "VIBRATION":
		ch.Vibration = append(ch.Vibration, VibrationSample{
			Timestamp: rec.Timestamp,
			X:         rec.Field("vibration_x"),
			Y:         rec.Field("vibration_y"),
			Z:         rec.Field("vibration_z"),
		})
	}
}

// recordFinite reports whether all numeric values in the record are finite.
func recordFinite(rec *RawRecord) bool {
	if math.IsNaN(rec.Timestamp) || math.IsInf(rec.Timestamp, 0) {
		return false
	}
	for _, v := range rec.Fields {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
