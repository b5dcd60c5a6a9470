package transform

import (
	"errors"
	"strings"
	"testing"

	"github.com/cloak-ai/cloak/internal/entity"
)

func resolved(start, end int, text string, typ entity.Type, a entity.Action) entity.Entity {
	return entity.Entity{
		Span:           entity.Span{Start: start, End: end, Text: text, Type: typ, Confidence: 1.0, Source: entity.SourcePattern},
		ResolvedAction: a,
	}
}

func newTransformer(t *testing.T, vault *Vault, consistent bool) *Transformer {
	t.Helper()
	tr, err := New(vault, consistent)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

func TestApplyRedact(t *testing.T) {
	text := "Contact John Smith at john.smith@example.com or 555-123-4567."
	ents := []entity.Entity{
		resolved(8, 18, "John Smith", entity.TypePerson, entity.ActionRedact),
		resolved(22, 44, "john.smith@example.com", entity.TypeEmail, entity.ActionRedact),
		resolved(48, 60, "555-123-4567", entity.TypePhone, entity.ActionRedact),
	}

	got, err := newTransformer(t, nil, false).Apply(text, ents)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := "Contact [PERSON] at [EMAIL] or [PHONE]."
	if got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestApplyOffsetAccumulation(t *testing.T) {
	// Replacements differ in length from the spans they replace; later
	// spans must still land in the right place.
	text := "a@b.co then 555-123-4567 then a@b.co"
	ents := []entity.Entity{
		resolved(0, 6, "a@b.co", entity.TypeEmail, entity.ActionRedact),
		resolved(12, 24, "555-123-4567", entity.TypePhone, entity.ActionMask),
		resolved(30, 36, "a@b.co", entity.TypeEmail, entity.ActionRedact),
	}

	got, err := newTransformer(t, nil, false).Apply(text, ents)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := "[EMAIL] then ********4567 then [EMAIL]"
	if got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestApplyMask(t *testing.T) {
	tr := newTransformer(t, nil, false)

	cases := []struct {
		name string
		ent  entity.Entity
		want string
	}{
		{
			name: "phone keeps last four",
			ent:  resolved(0, 12, "555-123-4567", entity.TypePhone, entity.ActionMask),
			want: "********4567",
		},
		{
			name: "credit card keeps last four",
			ent:  resolved(0, 19, "4111-1111-1111-1111", entity.TypeCreditCard, entity.ActionMask),
			want: "***************1111",
		},
		{
			name: "email fully masked",
			ent:  resolved(0, 6, "a@b.co", entity.TypeEmail, entity.ActionMask),
			want: "******",
		},
		{
			name: "value shorter than kept tail fully masked",
			ent:  resolved(0, 3, "123", entity.TypePhone, entity.ActionMask),
			want: "***",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tr.Apply(tc.ent.Text, []entity.Entity{tc.ent})
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if got != tc.want {
				t.Errorf("Apply = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestApplyHashDeterministicWithinSession(t *testing.T) {
	vault, err := NewVault()
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	tr := newTransformer(t, vault, false)

	ent := resolved(0, 11, "123-45-6789", entity.TypeSSN, entity.ActionHash)
	first, err := tr.Apply("123-45-6789", []entity.Entity{ent})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	second, err := tr.Apply("123-45-6789", []entity.Entity{ent})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if first != second {
		t.Errorf("same session hashed %q then %q", first, second)
	}
	if !strings.HasPrefix(first, "SSN-") {
		t.Errorf("hash %q missing type prefix", first)
	}
	if got := len(first); got != len("SSN-")+hashLen {
		t.Errorf("hash length = %d, want %d", got, len("SSN-")+hashLen)
	}
}

func TestApplyHashDiffersAcrossSessions(t *testing.T) {
	ent := resolved(0, 11, "123-45-6789", entity.TypeSSN, entity.ActionHash)

	a, err := newTransformer(t, nil, false).Apply("123-45-6789", []entity.Entity{ent})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	b, err := newTransformer(t, nil, false).Apply("123-45-6789", []entity.Entity{ent})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if a == b {
		t.Errorf("independent sessions produced the same hash %q", a)
	}
}

func TestApplyTokenizeRoundTrip(t *testing.T) {
	vault, err := NewVault()
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	tr := newTransformer(t, vault, false)

	got, err := tr.Apply("jdoe@example.com", []entity.Entity{
		resolved(0, 16, "jdoe@example.com", entity.TypeEmail, entity.ActionTokenize),
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !strings.HasPrefix(got, "tok_") {
		t.Fatalf("token = %q, want tok_ prefix", got)
	}

	raw, err := vault.Reverse(got)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if raw != "jdoe@example.com" {
		t.Errorf("Reverse = %q, want original value", raw)
	}
	if vault.Len() != 1 {
		t.Errorf("vault holds %d tokens, want 1", vault.Len())
	}
}

func TestVaultSessionIdentity(t *testing.T) {
	a, err := NewVault()
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	b, err := NewVault()
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	if a.SessionID() == "" {
		t.Error("SessionID is empty")
	}
	if a.SessionID() == b.SessionID() {
		t.Errorf("two vaults share session %q", a.SessionID())
	}
}

func TestReverseUnknownToken(t *testing.T) {
	vault, err := NewVault()
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	_, err = vault.Reverse("tok_00000000000000000000000000")
	if !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Reverse error = %v, want ErrTokenNotFound", err)
	}
}

func TestTokenizeConsistentMode(t *testing.T) {
	vault, err := NewVault()
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	tr := newTransformer(t, vault, true)

	text := "jdoe@example.com and jdoe@example.com"
	got, err := tr.Apply(text, []entity.Entity{
		resolved(0, 16, "jdoe@example.com", entity.TypeEmail, entity.ActionTokenize),
		resolved(21, 37, "jdoe@example.com", entity.TypeEmail, entity.ActionTokenize),
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	parts := strings.Split(got, " and ")
	if len(parts) != 2 {
		t.Fatalf("output %q did not split around separator", got)
	}
	if parts[0] != parts[1] {
		t.Errorf("consistent mode minted distinct tokens %q and %q", parts[0], parts[1])
	}
	if vault.Len() != 1 {
		t.Errorf("vault holds %d tokens, want 1", vault.Len())
	}
}

func TestTokenizeDistinctByDefault(t *testing.T) {
	vault, err := NewVault()
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	tr := newTransformer(t, vault, false)

	text := "jdoe@example.com and jdoe@example.com"
	got, err := tr.Apply(text, []entity.Entity{
		resolved(0, 16, "jdoe@example.com", entity.TypeEmail, entity.ActionTokenize),
		resolved(21, 37, "jdoe@example.com", entity.TypeEmail, entity.ActionTokenize),
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	parts := strings.Split(got, " and ")
	if len(parts) != 2 {
		t.Fatalf("output %q did not split around separator", got)
	}
	if parts[0] == parts[1] {
		t.Errorf("default mode reused token %q for repeated value", parts[0])
	}
}

func TestTokenizeWithoutVault(t *testing.T) {
	tr := newTransformer(t, nil, false)
	_, err := tr.Apply("jdoe@example.com", []entity.Entity{
		resolved(0, 16, "jdoe@example.com", entity.TypeEmail, entity.ActionTokenize),
	})
	if err == nil {
		t.Fatal("expected error when tokenizing without a vault")
	}
}

func TestApplyNoEntities(t *testing.T) {
	got, err := newTransformer(t, nil, false).Apply("nothing sensitive here", nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != "nothing sensitive here" {
		t.Errorf("Apply = %q, want input unchanged", got)
	}
}

func TestApplyRejectsUnresolvedAction(t *testing.T) {
	ent := entity.Entity{
		Span: entity.Span{Start: 0, End: 3, Text: "abc", Type: entity.TypeEmail},
	}
	_, err := newTransformer(t, nil, false).Apply("abc", []entity.Entity{ent})
	if err == nil {
		t.Fatal("expected error for entity without a resolved action")
	}
}
