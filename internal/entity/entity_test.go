package entity

import "testing"

func TestParseType(t *testing.T) {
	for _, typ := range Types {
		got, err := ParseType(string(typ))
		if err != nil || got != typ {
			t.Errorf("ParseType(%q) = %q, %v", typ, got, err)
		}
	}
	if _, err := ParseType("FAX"); err == nil {
		t.Error("ParseType accepted unknown type")
	}
	if _, err := ParseType("person"); err == nil {
		t.Error("ParseType accepted lowercase type")
	}
}

func TestParseAction(t *testing.T) {
	for _, a := range []Action{ActionRedact, ActionMask, ActionHash, ActionTokenize} {
		got, err := ParseAction(string(a))
		if err != nil || got != a {
			t.Errorf("ParseAction(%q) = %q, %v", a, got, err)
		}
	}
	if _, err := ParseAction("SHRED"); err == nil {
		t.Error("ParseAction accepted unknown action")
	}
}

func TestSeverityOf(t *testing.T) {
	if got := SeverityOf(TypeSSN); got != SeverityHigh {
		t.Errorf("SeverityOf(SSN) = %s, want HIGH", got)
	}
	if got := SeverityOf(TypeDate); got != SeverityLow {
		t.Errorf("SeverityOf(DATE) = %s, want LOW", got)
	}
	if got := SeverityOf(Type("UNKNOWN")); got != SeverityMedium {
		t.Errorf("SeverityOf(unknown) = %s, want MEDIUM fallback", got)
	}
	for _, typ := range Types {
		if _, ok := severityByType[typ]; !ok {
			t.Errorf("no severity grade for %s", typ)
		}
	}
}

func TestSpanValid(t *testing.T) {
	cases := []struct {
		name string
		span Span
		len  int
		want bool
	}{
		{name: "in bounds", span: Span{Start: 0, End: 4}, len: 10, want: true},
		{name: "zero length", span: Span{Start: 3, End: 3}, len: 10, want: false},
		{name: "negative start", span: Span{Start: -1, End: 4}, len: 10, want: false},
		{name: "past end", span: Span{Start: 0, End: 11}, len: 10, want: false},
		{name: "inverted", span: Span{Start: 5, End: 2}, len: 10, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.span.Valid(tc.len); got != tc.want {
				t.Errorf("Valid = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSpanOverlaps(t *testing.T) {
	a := Span{Start: 0, End: 5}
	if !a.Overlaps(Span{Start: 4, End: 8}) {
		t.Error("overlapping ranges reported disjoint")
	}
	if a.Overlaps(Span{Start: 5, End: 8}) {
		t.Error("adjacent half-open ranges reported overlapping")
	}
	if !a.Overlaps(Span{Start: 2, End: 3}) {
		t.Error("contained range reported disjoint")
	}
}
