package models

import "strings"

// TaxonomyLevels is the fixed depth of the biological hierarchy:
// kingdom, phylum, class, order, family, genus, species epithet.
const TaxonomyLevels = 7

// Taxonomy is the 7-level biological classification of a subject.
// Empty levels are permitted (e.g. subspecies-free plant entries).
type Taxonomy [TaxonomyLevels]string

// Kingdom through Species accessors name the fixed slots.
func (t Taxonomy) Kingdom() string { return t[0] }
func (t Taxonomy) Phylum() string  { return t[1] }
func (t Taxonomy) Class() string   { return t[2] }
func (t Taxonomy) Order() string   { return t[3] }
func (t Taxonomy) Family() string  { return t[4] }
func (t Taxonomy) Genus() string   { return t[5] }
func (t Taxonomy) Species() string { return t[6] }

// LatinName is the binomial "Genus epithet" form, or just the genus when no
// epithet is known, or empty when neither is.
func (t Taxonomy) LatinName() string {
	switch {
	case t.Genus() != "" && t.Species() != "":
		return t.Genus() + " " + t.Species()
	case t.Genus() != "":
		return t.Genus()
	default:
		return ""
	}
}

// Join renders the hierarchy pipe-joined for storage. All seven slots are
// kept, including empty ones, so the stored form round-trips losslessly.
func (t Taxonomy) Join() string {
	return strings.Join(t[:], "|")
}

// ParseTaxonomy reads the stored pipe-joined form back. Inputs with more
// than seven segments are truncated; shorter ones are padded with empties.
func ParseTaxonomy(joined string) (Taxonomy, bool) {
	if joined == "" {
		return Taxonomy{}, false
	}
	var t Taxonomy
	parts := strings.Split(joined, "|")
	for i := 0; i < TaxonomyLevels && i < len(parts); i++ {
		t[i] = strings.TrimSpace(parts[i])
	}
	return t, true
}

// SetTaxonomy stores the hierarchy on the record.
func (r *ImageRecord) SetTaxonomy(t Taxonomy) {
	joined := t.Join()
	r.TaxonomyJoined = &joined
}

// GetTaxonomy returns the stored hierarchy, if any.
func (r *ImageRecord) GetTaxonomy() (Taxonomy, bool) {
	if r.TaxonomyJoined == nil {
		return Taxonomy{}, false
	}
	return ParseTaxonomy(*r.TaxonomyJoined)
}
