// Package transform applies resolved actions to merged entities,
// rewriting the input text into its de-identified form, and builds the
// per-run report. Replacements can differ in length from the original
// span, so the rewrite is a single ascending-start pass that accumulates
// the offset delta as it goes.
package transform

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/cloak-ai/cloak/internal/entity"
)

// hashLen is the number of hex characters kept from the digest.
const hashLen = 16

// maskKeepTail is the per-type count of trailing characters preserved
// by MASK; types not listed are masked in full.
var maskKeepTail = map[entity.Type]int{
	entity.TypeCreditCard:  4,
	entity.TypeBankAccount: 4,
	entity.TypePhone:       4,
}

// Transformer rewrites text for one pipeline run. The vault may be nil
// only when the configuration cannot resolve to TOKENIZE or HASH.
type Transformer struct {
	vault      *Vault
	salt       []byte
	consistent bool
}

// New builds a transformer. Hashing is salted with the vault's session
// salt, so identical values hash identically within a session and never
// correlate across sessions. Without a vault a throwaway salt is
// generated; it is only ever used if HASH is resolved anyway.
func New(vault *Vault, consistent bool) (*Transformer, error) {
	salt := []byte(nil)
	if vault != nil {
		salt = vault.salt
	} else {
		v, err := NewVault()
		if err != nil {
			return nil, err
		}
		salt = v.salt
	}
	return &Transformer{vault: vault, salt: salt, consistent: consistent}, nil
}

// Apply rewrites text according to the entities' resolved actions.
// Entities must be non-overlapping; they are processed in ascending
// start order. Any failure aborts the whole rewrite: no partial
// de-identified output is ever returned.
func (t *Transformer) Apply(text string, entities []entity.Entity) (string, error) {
	if len(entities) == 0 {
		return text, nil
	}

	ordered := make([]entity.Entity, len(entities))
	copy(ordered, entities)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	var b strings.Builder
	b.Grow(len(text))
	cursor := 0
	for _, ent := range ordered {
		if ent.Start < cursor || ent.End > len(text) {
			return "", fmt.Errorf("entity span [%d,%d) out of order for text of length %d", ent.Start, ent.End, len(text))
		}
		b.WriteString(text[cursor:ent.Start])
		rep, err := t.replacement(ent)
		if err != nil {
			return "", err
		}
		b.WriteString(rep)
		cursor = ent.End
	}
	b.WriteString(text[cursor:])
	return b.String(), nil
}

func (t *Transformer) replacement(ent entity.Entity) (string, error) {
	switch ent.ResolvedAction {
	case entity.ActionRedact:
		return "[" + string(ent.Type) + "]", nil
	case entity.ActionMask:
		return mask(ent.Text, maskKeepTail[ent.Type]), nil
	case entity.ActionHash:
		return t.hash(ent.Type, ent.Text), nil
	case entity.ActionTokenize:
		if t.vault == nil {
			return "", fmt.Errorf("action TOKENIZE requires a token vault")
		}
		return t.vault.mint(string(ent.Type), ent.Text, t.consistent)
	}
	return "", fmt.Errorf("unresolved action %q for entity type %s", ent.ResolvedAction, ent.Type)
}

// mask replaces every character with '*', preserving length and the
// requested trailing-character count. When the value is too short to
// hide anything behind the kept tail, everything is masked.
func mask(raw string, keep int) string {
	runes := []rune(raw)
	if keep <= 0 || keep >= len(runes) {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-keep) + string(runes[len(runes)-keep:])
}

// hash produces a fixed-length, type-prefixed, one-way digest of the raw
// text, salted per session.
func (t *Transformer) hash(typ entity.Type, raw string) string {
	h := sha256.New()
	h.Write(t.salt)
	h.Write([]byte(raw))
	sum := hex.EncodeToString(h.Sum(nil))
	return string(typ) + "-" + sum[:hashLen]
}
