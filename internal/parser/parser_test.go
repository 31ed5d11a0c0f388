package parser

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"carbonstream/internal/models"
)

func TestParseISO8601BareZ(t *testing.T) {
	got, ok := ParseISO8601("2025-12-09T14:00Z")
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	want := time.Date(2025, 12, 9, 14, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if _, offset := got.Zone(); offset != 0 {
		t.Fatalf("expected UTC offset 0, got %d", offset)
	}
}

func TestParseISO8601OffsetVariantEqual(t *testing.T) {
	bare, ok := ParseISO8601("2025-12-09T14:00Z")
	if !ok {
		t.Fatalf("bare Z form should parse")
	}
	offset, ok := ParseISO8601("2025-12-09T14:00+00:00")
	if !ok {
		t.Fatalf("offset form should parse")
	}
	if !bare.Equal(offset) {
		t.Fatalf("expected both variants to yield the same instant, got %s and %s", bare, offset)
	}
}

func TestParseISO8601WithSeconds(t *testing.T) {
	got, ok := ParseISO8601("2025-12-09T14:00:30Z")
	if !ok {
		t.Fatalf("seconds variant should parse")
	}
	if got.Second() != 30 {
		t.Fatalf("expected second 30, got %d", got.Second())
	}
}

func TestParseISO8601Malformed(t *testing.T) {
	for _, input := range []string{"", "   ", "invalid", "2025-13-45T99:99Z"} {
		if _, ok := ParseISO8601(input); ok {
			t.Fatalf("expected %q to fail parsing", input)
		}
	}
}

func TestExtractIntensityActual(t *testing.T) {
	p := New(zap.NewNop())
	body := []byte(`{"data":[{"from":"2025-12-09T14:00Z","to":"2025-12-09T14:30Z","intensity":{"forecast":266,"actual":180,"index":"moderate"}}]}`)

	reading, err := p.ExtractIntensity(body)
	if err != nil {
		t.Fatalf("extract intensity: %v", err)
	}
	if reading.Value == nil || *reading.Value != 180 {
		t.Fatalf("expected actual value 180, got %v", reading.Value)
	}
	want := time.Date(2025, 12, 9, 14, 0, 0, 0, time.UTC)
	if !reading.WindowFrom.Equal(want) {
		t.Fatalf("expected window from %s, got %s", want, reading.WindowFrom)
	}
	if !reading.WindowTo.Equal(want.Add(30 * time.Minute)) {
		t.Fatalf("expected window to %s, got %s", want.Add(30*time.Minute), reading.WindowTo)
	}
}

func TestExtractIntensityForecastFallback(t *testing.T) {
	p := New(zap.NewNop())
	body := []byte(`{"data":[{"from":"2025-12-09T14:00Z","to":"2025-12-09T14:30Z","intensity":{"forecast":266,"actual":null}}]}`)

	reading, err := p.ExtractIntensity(body)
	if err != nil {
		t.Fatalf("extract intensity: %v", err)
	}
	if reading.Value == nil || *reading.Value != 266 {
		t.Fatalf("expected forecast fallback 266, got %v", reading.Value)
	}
}

func TestExtractIntensityBothAbsent(t *testing.T) {
	p := New(zap.NewNop())
	body := []byte(`{"data":[{"from":"2025-12-09T14:00Z","to":"2025-12-09T14:30Z","intensity":{}}]}`)

	reading, err := p.ExtractIntensity(body)
	if err != nil {
		t.Fatalf("extract intensity: %v", err)
	}
	if reading.Value != nil {
		t.Fatalf("expected nil value when actual and forecast are absent, got %v", *reading.Value)
	}
}

func TestExtractIntensityEmptyData(t *testing.T) {
	p := New(zap.NewNop())

	_, err := p.ExtractIntensity([]byte(`{"data":[]}`))
	if !errors.Is(err, models.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestExtractIntensityUnparsableWindowFrom(t *testing.T) {
	p := New(zap.NewNop())
	fixed := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	body := []byte(`{"data":[{"from":"not-a-timestamp","to":"2025-12-09T14:30Z","intensity":{"actual":120}}]}`)
	reading, err := p.ExtractIntensity(body)
	if err != nil {
		t.Fatalf("extract intensity: %v", err)
	}
	if !reading.WindowFrom.Equal(fixed) {
		t.Fatalf("expected current time substitution %s, got %s", fixed, reading.WindowFrom)
	}
}

func TestExtractGenerationMixObjectForm(t *testing.T) {
	p := New(zap.NewNop())
	body := []byte(`{"data":{"from":"2025-12-09T14:00Z","generationmix":[{"fuel":"gas","perc":45.5},{"fuel":"nuclear","perc":20.0},{"fuel":"wind","perc":25.3},{"fuel":"solar","perc":5.2},{"fuel":"coal","perc":4.0}]}}`)

	mix, err := p.ExtractGenerationMix(body)
	if err != nil {
		t.Fatalf("extract generation mix: %v", err)
	}
	want := map[string]float64{"gas": 45.5, "nuclear": 20.0, "wind": 25.3, "solar": 5.2}
	for fuel, perc := range want {
		if mix[fuel] != perc {
			t.Fatalf("expected %s=%.1f, got %.1f", fuel, perc, mix[fuel])
		}
	}
	if _, ok := mix["coal"]; ok {
		t.Fatalf("untracked fuel should be dropped")
	}
}

func TestExtractGenerationMixArrayForm(t *testing.T) {
	p := New(zap.NewNop())
	body := []byte(`{"data":[{"generationmix":[{"fuel":"wind","perc":60.0}]},{"generationmix":[{"fuel":"wind","perc":10.0}]}]}`)

	mix, err := p.ExtractGenerationMix(body)
	if err != nil {
		t.Fatalf("extract generation mix: %v", err)
	}
	if mix[models.FuelWind] != 60.0 {
		t.Fatalf("expected first entry wind=60.0, got %.1f", mix[models.FuelWind])
	}
}

func TestExtractGenerationMixCaseInsensitiveAndDefaults(t *testing.T) {
	p := New(zap.NewNop())
	body := []byte(`{"data":{"generationmix":[{"fuel":"Gas","perc":33.3},{"fuel":"WIND","perc":12.1}]}}`)

	mix, err := p.ExtractGenerationMix(body)
	if err != nil {
		t.Fatalf("extract generation mix: %v", err)
	}
	if mix[models.FuelGas] != 33.3 || mix[models.FuelWind] != 12.1 {
		t.Fatalf("expected case-insensitive lookup, got %v", mix)
	}
	if mix[models.FuelNuclear] != 0 || mix[models.FuelSolar] != 0 {
		t.Fatalf("expected absent fuels to default to 0, got %v", mix)
	}
}

func TestExtractGenerationMixEmptyPayload(t *testing.T) {
	p := New(zap.NewNop())
	for _, body := range []string{`{"data":null}`, `{"data":[]}`, `{"data":{}}`, `{"data":{"generationmix":[]}}`, `{}`} {
		if _, err := p.ExtractGenerationMix([]byte(body)); !errors.Is(err, models.ErrNoData) {
			t.Fatalf("expected ErrNoData for %s, got %v", body, err)
		}
	}
}

func TestExtractGenerationMixUnexpectedShape(t *testing.T) {
	p := New(zap.NewNop())
	if _, err := p.ExtractGenerationMix([]byte(`{"data":42}`)); err == nil {
		t.Fatalf("expected error for scalar data field")
	}
}
