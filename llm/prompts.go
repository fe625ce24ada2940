package llm

import (
	"fmt"
	"strings"
)

// Context carries the advisory hints assembled by the orchestrator. Every
// field is optional; absence never blocks generation.
type Context struct {
	CategoryHint string // Italian noun for the taxonomic class
	LocationHint string // "city, region, country"
	LatinName    string // "Genus epithet" from the classifier
	CommonName   string
	Confidence   float64
}

// prependConfidence gates the latin-name prepend rules: below this the
// classification is advisory-only and never reaches the stored fields.
const prependConfidence = 0.15

// UsePrepend reports whether the classification is confident enough to
// prefix titles, descriptions and tags with the latin name.
func (c Context) UsePrepend() bool {
	return c.LatinName != "" && c.Confidence >= prependConfidence
}

// categoryHints maps a taxonomic class to the Italian noun used to steer
// generation toward generic terms instead of invented species.
var categoryHints = map[string]string{
	"Aves":            "uccello",
	"Mammalia":        "mammifero",
	"Reptilia":        "rettile",
	"Amphibia":        "anfibio",
	"Actinopterygii":  "pesce",
	"Chondrichthyes":  "squalo o razza",
	"Insecta":         "insetto",
	"Arachnida":       "ragno o aracnide",
	"Malacostraca":    "crostaceo",
	"Gastropoda":      "mollusco",
	"Bivalvia":        "mollusco bivalve",
	"Cephalopoda":     "cefalopode",
	"Anthozoa":        "corallo o anemone",
	"Hydrozoa":        "idrozoo",
	"Scyphozoa":       "medusa",
	"Echinoidea":      "riccio di mare",
	"Asteroidea":      "stella marina",
	"Holothuroidea":   "cetriolo di mare",
	"Polychaeta":      "verme marino",
	"Clitellata":      "verme",
	"Chilopoda":       "centopiedi",
	"Diplopoda":       "millepiedi",
	"Collembola":      "collembolo",
	"Magnoliopsida":   "pianta",
	"Liliopsida":      "pianta",
	"Pinopsida":       "conifera",
	"Polypodiopsida":  "felce",
	"Bryopsida":       "muschio",
	"Agaricomycetes":  "fungo",
	"Pezizomycetes":   "fungo",
	"Lecanoromycetes": "lichene",
	"Ulvophyceae":     "alga",
	"Phaeophyceae":    "alga bruna",
}

// CategoryHint resolves the taxonomic class to its Italian noun; unknown
// classes produce no hint.
func CategoryHint(class string) string {
	return categoryHints[class]
}

// speciesRule forbids invented binomials in every mode.
const speciesRule = "Non inventare mai nomi di specie. Se non sei sicuro della specie esatta, usa un termine generico (ad esempio \"uccello\", \"fiore\", \"insetto\")."

func contextLines(ctx Context) string {
	var b strings.Builder
	if ctx.CategoryHint != "" {
		fmt.Fprintf(&b, "Suggerimento: il soggetto principale è probabilmente un %s.\n", ctx.CategoryHint)
	}
	if ctx.LocationHint != "" {
		fmt.Fprintf(&b, "La foto è stata scattata vicino a: %s.\n", ctx.LocationHint)
	}
	return b.String()
}

// TitlePrompt builds the title request, capped at maxWords words.
func TitlePrompt(ctx Context, maxWords int) string {
	var b strings.Builder
	b.WriteString("Osserva la fotografia e scrivi un titolo breve ed evocativo in italiano.\n")
	fmt.Fprintf(&b, "Massimo %d parole. Nessuna punteggiatura finale, nessuna virgoletta.\n", maxWords)
	b.WriteString(speciesRule + "\n")
	b.WriteString(contextLines(ctx))
	b.WriteString("Rispondi solo con il titolo.")
	return b.String()
}

// DescriptionPrompt builds the description request, capped at maxWords.
func DescriptionPrompt(ctx Context, maxWords int) string {
	var b strings.Builder
	b.WriteString("Osserva la fotografia e descrivi in italiano cosa mostra: soggetto principale, ambiente e atmosfera.\n")
	fmt.Fprintf(&b, "Massimo %d parole, in un unico paragrafo.\n", maxWords)
	b.WriteString(speciesRule + "\n")
	b.WriteString(contextLines(ctx))
	b.WriteString("Rispondi solo con la descrizione.")
	return b.String()
}

// TagsPrompt builds the keyword request, capped at maxTags entries.
func TagsPrompt(ctx Context, maxTags int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Osserva la fotografia ed elenca fino a %d parole chiave in italiano che la descrivono.\n", maxTags)
	b.WriteString("Separa le parole chiave con virgole. Usa sostantivi semplici, senza frasi.\n")
	b.WriteString(speciesRule + "\n")
	b.WriteString(contextLines(ctx))
	b.WriteString("Rispondi solo con l'elenco di parole chiave.")
	return b.String()
}
