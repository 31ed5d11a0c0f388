package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"carbonstream/internal/models"
)

// IntensityReading is the typed result of extracting the intensity payload.
type IntensityReading struct {
	// Value is the actual reading, falling back to the forecast when the
	// actual is absent. Nil when the upstream reported neither.
	Value *float64
	// WindowFrom is the measurement window start. When the upstream string
	// is unparsable the current UTC time is substituted, so it is never zero.
	WindowFrom time.Time
	// WindowTo is zero when absent or unparsable.
	WindowTo time.Time
}

// Wire shapes of the upstream endpoints. The intensity endpoint always wraps
// its entries in an array; the generation endpoint is polymorphic (see
// ExtractGenerationMix).
type intensityEnvelope struct {
	Data []intensityEntry `json:"data"`
}

type intensityEntry struct {
	From      string         `json:"from"`
	To        string         `json:"to"`
	Intensity intensityValue `json:"intensity"`
}

type intensityValue struct {
	Actual   *float64 `json:"actual"`
	Forecast *float64 `json:"forecast"`
}

type mixEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type mixEntry struct {
	GenerationMix []fuelShare `json:"generationmix"`
}

type fuelShare struct {
	Fuel string  `json:"fuel"`
	Perc float64 `json:"perc"`
}

// Parser extracts typed fields from raw upstream payloads.
type Parser struct {
	logger *zap.Logger
	now    func() time.Time
}

// New returns a parser logging through the given logger.
func New(logger *zap.Logger) *Parser {
	return &Parser{
		logger: logger.Named("parser"),
		now:    time.Now,
	}
}

// ExtractIntensity reads the first entry of the intensity payload. An empty
// data collection fails with models.ErrNoData; a malformed window-from
// timestamp does not fail, the current UTC time is substituted instead.
func (p *Parser) ExtractIntensity(body []byte) (IntensityReading, error) {
	var envelope intensityEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return IntensityReading{}, fmt.Errorf("decode intensity payload: %w", err)
	}
	if len(envelope.Data) == 0 {
		return IntensityReading{}, fmt.Errorf("intensity payload: %w", models.ErrNoData)
	}

	entry := envelope.Data[0]

	value := entry.Intensity.Actual
	if value == nil {
		value = entry.Intensity.Forecast
		if value != nil {
			p.logger.Debug("actual intensity absent, using forecast", zap.Float64("forecast", *value))
		}
	}

	from, ok := ParseISO8601(entry.From)
	if !ok {
		from = p.now().UTC()
		p.logger.Warn("unparsable window start, substituting current time",
			zap.String("raw", entry.From),
			zap.Time("substituted", from))
	}

	to, _ := ParseISO8601(entry.To)

	return IntensityReading{Value: value, WindowFrom: from, WindowTo: to}, nil
}

// ExtractGenerationMix returns the percentage share for each tracked fuel.
// The upstream data field is either a single object or an array of entries;
// the variant is resolved by probing the leading JSON token. Fuel names match
// case-insensitively and absent fuels default to 0.
func (p *Parser) ExtractGenerationMix(body []byte) (map[string]float64, error) {
	var envelope mixEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode generation payload: %w", err)
	}

	raw := bytes.TrimSpace(envelope.Data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("generation payload: %w", models.ErrNoData)
	}

	var entry mixEntry
	switch raw[0] {
	case '[':
		var entries []mixEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("decode generation entries: %w", err)
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("generation payload: %w", models.ErrNoData)
		}
		entry = entries[0]
	case '{':
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("decode generation entry: %w", err)
		}
	default:
		return nil, fmt.Errorf("generation payload: unexpected data shape")
	}

	if len(entry.GenerationMix) == 0 {
		return nil, fmt.Errorf("generation payload: %w", models.ErrNoData)
	}

	shares := make(map[string]float64, len(entry.GenerationMix))
	for _, share := range entry.GenerationMix {
		shares[strings.ToLower(strings.TrimSpace(share.Fuel))] = share.Perc
	}

	mix := make(map[string]float64, len(models.TrackedFuels))
	for _, fuel := range models.TrackedFuels {
		mix[fuel] = shares[fuel]
	}
	return mix, nil
}

// iso8601Layouts cover the upstream variants: minute precision with a zone
// offset, plus the same with seconds. Bare-Z inputs are normalized to +00:00
// before matching.
var iso8601Layouts = []string{
	"2006-01-02T15:04-07:00",
	"2006-01-02T15:04:05-07:00",
}

// ParseISO8601 parses the upstream timestamp variants. Malformed or empty
// input yields ok=false; it never panics or returns an error.
func ParseISO8601(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}
	for _, layout := range iso8601Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
