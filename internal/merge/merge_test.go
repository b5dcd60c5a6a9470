package merge

import (
	"reflect"
	"testing"

	"github.com/cloak-ai/cloak/internal/entity"
)

func span(start, end int, typ entity.Type, conf float64, src entity.Source) entity.Span {
	return entity.Span{Start: start, End: end, Type: typ, Confidence: conf, Source: src}
}

func TestResolveNonOverlapping(t *testing.T) {
	candidates := []entity.Span{
		span(0, 12, entity.TypePerson, 1.0, entity.SourcePattern),
		span(8, 18, entity.TypePerson, 0.8, entity.SourceStatistical),
		span(20, 30, entity.TypeEmail, 1.0, entity.SourcePattern),
		span(25, 40, entity.TypePhone, 1.0, entity.SourcePattern),
		span(50, 60, entity.TypeDate, 1.0, entity.SourcePattern),
	}

	got := Resolve(candidates, 100)
	for i := 0; i < len(got); i++ {
		for j := i + 1; j < len(got); j++ {
			if got[i].Overlaps(got[j].Span) {
				t.Fatalf("entities %d and %d overlap: %+v / %+v", i, j, got[i], got[j])
			}
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Start < got[i-1].End {
			t.Fatalf("entities out of order at %d: %+v", i, got)
		}
	}
}

func TestResolveOrderingRules(t *testing.T) {
	cases := []struct {
		name       string
		candidates []entity.Span
		wantTypes  []entity.Type
		wantSource []entity.Source
	}{
		{
			name: "earlier start wins the sweep",
			candidates: []entity.Span{
				span(8, 18, entity.TypePerson, 0.9, entity.SourceStatistical),
				span(0, 12, entity.TypePerson, 1.0, entity.SourcePattern),
			},
			wantTypes:  []entity.Type{entity.TypePerson},
			wantSource: []entity.Source{entity.SourcePattern},
		},
		{
			name: "longer span preferred on same start",
			candidates: []entity.Span{
				span(0, 5, entity.TypeDate, 1.0, entity.SourcePattern),
				span(0, 10, entity.TypeAddress, 1.0, entity.SourcePattern),
			},
			wantTypes:  []entity.Type{entity.TypeAddress},
			wantSource: []entity.Source{entity.SourcePattern},
		},
		{
			name: "statistical preferred when equally specific",
			candidates: []entity.Span{
				span(0, 10, entity.TypePerson, 1.0, entity.SourcePattern),
				span(0, 10, entity.TypePerson, 0.6, entity.SourceStatistical),
			},
			wantTypes:  []entity.Type{entity.TypePerson},
			wantSource: []entity.Source{entity.SourceStatistical},
		},
		{
			name: "higher confidence breaks remaining ties",
			candidates: []entity.Span{
				span(0, 10, entity.TypeLocation, 0.7, entity.SourceStatistical),
				span(0, 10, entity.TypePerson, 0.9, entity.SourceStatistical),
			},
			wantTypes:  []entity.Type{entity.TypePerson},
			wantSource: []entity.Source{entity.SourceStatistical},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(tc.candidates, 100)
			var types []entity.Type
			var sources []entity.Source
			for _, e := range got {
				types = append(types, e.Type)
				sources = append(sources, e.Source)
			}
			if !reflect.DeepEqual(types, tc.wantTypes) {
				t.Errorf("types = %v, want %v", types, tc.wantTypes)
			}
			if !reflect.DeepEqual(sources, tc.wantSource) {
				t.Errorf("sources = %v, want %v", sources, tc.wantSource)
			}
		})
	}
}

func TestResolveDropsInvalidSpans(t *testing.T) {
	// Zero-length, negative-start, and past-the-end spans are detector
	// anomalies; only the last candidate is valid.
	candidates := []entity.Span{
		span(5, 5, entity.TypeEmail, 1.0, entity.SourcePattern),
		span(-1, 4, entity.TypeEmail, 1.0, entity.SourcePattern),
		span(90, 110, entity.TypeEmail, 1.0, entity.SourcePattern),
		span(10, 20, entity.TypeEmail, 1.0, entity.SourcePattern),
	}

	got := Resolve(candidates, 100)
	if len(got) != 1 {
		t.Fatalf("got %d entities, want 1: %+v", len(got), got)
	}
	if got[0].Start != 10 || got[0].End != 20 {
		t.Errorf("kept wrong span: %+v", got[0])
	}
}

func TestResolveSetsSeverity(t *testing.T) {
	got := Resolve([]entity.Span{span(0, 5, entity.TypeSSN, 1.0, entity.SourcePattern)}, 10)
	if len(got) != 1 || got[0].Severity != entity.SeverityHigh {
		t.Fatalf("SSN severity = %v, want HIGH", got)
	}
}

func TestResolveDeterministic(t *testing.T) {
	candidates := []entity.Span{
		span(0, 10, entity.TypePerson, 0.9, entity.SourceStatistical),
		span(0, 10, entity.TypePerson, 1.0, entity.SourcePattern),
		span(5, 15, entity.TypeEmail, 1.0, entity.SourcePattern),
		span(20, 25, entity.TypeDate, 1.0, entity.SourcePattern),
	}
	a := Resolve(append([]entity.Span(nil), candidates...), 100)
	b := Resolve(append([]entity.Span(nil), candidates...), 100)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("merge not deterministic:\n%v\n%v", a, b)
	}
}

func TestResolveEmpty(t *testing.T) {
	if got := Resolve(nil, 0); got != nil {
		t.Fatalf("expected nil for no candidates, got %v", got)
	}
}
