package xmp

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gfurlani/fotocatalogo/models"
)

// Hierarchical subject roots owned by the pipeline. Paths under these are
// cleared and rewritten on every sidecar write; everything else under
// lr:hierarchicalSubject is user data and survives untouched.
const (
	taxonomyRoot = "AI|Taxonomy"
	geoRoot      = "GeOFF"
)

// SidecarPath is the sidecar location for an image: same directory, same
// basename, .xmp extension.
func SidecarPath(imagePath string) string {
	ext := filepath.Ext(imagePath)
	return strings.TrimSuffix(imagePath, ext) + ".xmp"
}

// WriteSidecar writes the record's editorial and AI fields to the image's
// XMP sidecar and promotes the record to PERFECT_SYNC. Existing sidecar
// content in foreign namespaces (crs:, xmpMM:, develop settings) and
// foreign hierarchical subjects are preserved.
func WriteSidecar(rec *models.ImageRecord) error {
	path := SidecarPath(rec.Filepath)

	var existing string
	if raw, err := os.ReadFile(path); err == nil {
		existing = string(raw)
	}

	doc := buildDocument(rec, existing)
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("failed to write sidecar %s: %w", path, err)
	}
	rec.SyncState = models.SyncStatePerfectSync
	return nil
}

var (
	// attributes in preserved namespaces on the rdf:Description open tag
	preservedAttrRe = regexp.MustCompile(`\b((?:crs|xmpMM|lr):[A-Za-z0-9]+)="([^"]*)"`)
	// whole elements in preserved namespaces
	preservedElemRe = regexp.MustCompile(`(?s)<((?:crs|xmpMM|lr):[A-Za-z0-9]+)(\s[^>]*)?(?:/>|>.*?</(?:crs|xmpMM|lr):[A-Za-z0-9]+>)`)
	hierBlockRe     = regexp.MustCompile(`(?s)<lr:hierarchicalSubject>.*?</lr:hierarchicalSubject>`)
	liRe            = regexp.MustCompile(`(?s)<rdf:li>(.*?)</rdf:li>`)
)

// ownedElement is the one lr: element the pipeline rewrites itself; it must
// never pass through the preservation path or it would duplicate.
const ownedElement = "lr:hierarchicalSubject"

// foreignHierarchicalSubjects extracts the hierarchical paths the pipeline
// does not own from an existing sidecar.
func foreignHierarchicalSubjects(existing string) []string {
	block := hierBlockRe.FindString(existing)
	if block == "" {
		return nil
	}
	var out []string
	for _, m := range liRe.FindAllStringSubmatch(block, -1) {
		path := xmlUnescape(strings.TrimSpace(m[1]))
		if path == "" || ownedPath(path) {
			continue
		}
		out = append(out, path)
	}
	return out
}

func ownedPath(path string) bool {
	return strings.HasPrefix(path, taxonomyRoot+"|") || path == taxonomyRoot ||
		strings.HasPrefix(path, geoRoot+"|") || path == geoRoot
}

// hierarchicalSubjects composes the full path list: preserved foreign
// paths first, then the rewritten owned roots.
func hierarchicalSubjects(rec *models.ImageRecord, existing string) []string {
	paths := foreignHierarchicalSubjects(existing)

	if tax, ok := rec.GetTaxonomy(); ok {
		var levels []string
		for _, l := range tax {
			if l != "" {
				levels = append(levels, l)
			}
		}
		if len(levels) > 0 {
			paths = append(paths, taxonomyRoot+"|"+strings.Join(levels, "|"))
		}
	}
	if rec.GeoHierarchy != nil {
		if trimmed := strings.TrimPrefix(*rec.GeoHierarchy, "Geo|"); trimmed != "" && trimmed != *rec.GeoHierarchy {
			paths = append(paths, geoRoot+"|"+trimmed)
		}
	}
	return paths
}

// buildDocument renders the sidecar. Preserved attributes and elements
// from the previous document are carried into the new one verbatim.
func buildDocument(rec *models.ImageRecord, existing string) string {
	var b strings.Builder
	b.WriteString(`<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>` + "\n")
	b.WriteString(`<x:xmpmeta xmlns:x="adobe:ns:meta/">` + "\n")
	b.WriteString(` <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">` + "\n")
	b.WriteString(`  <rdf:Description rdf:about=""` + "\n")
	b.WriteString(`    xmlns:dc="http://purl.org/dc/elements/1.1/"` + "\n")
	b.WriteString(`    xmlns:xmp="http://ns.adobe.com/xap/1.0/"` + "\n")
	b.WriteString(`    xmlns:lr="http://ns.adobe.com/lightroom/1.0/"` + "\n")
	b.WriteString(`    xmlns:crs="http://ns.adobe.com/camera-raw-settings/1.0/"` + "\n")
	b.WriteString(`    xmlns:xmpMM="http://ns.adobe.com/xap/1.0/mm/"`)

	for _, m := range preservedAttrRe.FindAllStringSubmatch(existing, -1) {
		if m[1] == ownedElement {
			continue
		}
		b.WriteString("\n    " + m[1] + `="` + m[2] + `"`)
	}
	b.WriteString(">\n")

	if rec.Title != nil && *rec.Title != "" {
		b.WriteString("   <dc:title><rdf:Alt><rdf:li xml:lang=\"x-default\">" +
			xmlEscape(*rec.Title) + "</rdf:li></rdf:Alt></dc:title>\n")
	}
	if rec.Description != nil && *rec.Description != "" {
		b.WriteString("   <dc:description><rdf:Alt><rdf:li xml:lang=\"x-default\">" +
			xmlEscape(*rec.Description) + "</rdf:li></rdf:Alt></dc:description>\n")
	}

	if tags := rec.Tags(); len(tags) > 0 {
		b.WriteString("   <dc:subject><rdf:Bag>\n")
		for _, tag := range tags {
			b.WriteString("    <rdf:li>" + xmlEscape(tag) + "</rdf:li>\n")
		}
		b.WriteString("   </rdf:Bag></dc:subject>\n")
	}

	if rec.Rating != nil && *rec.Rating >= 1 && *rec.Rating <= 5 {
		fmt.Fprintf(&b, "   <xmp:Rating>%d</xmp:Rating>\n", *rec.Rating)
	}
	if rec.ColorLabel != "" {
		b.WriteString("   <xmp:Label>" + xmlEscape(rec.ColorLabel) + "</xmp:Label>\n")
	}

	if paths := hierarchicalSubjects(rec, existing); len(paths) > 0 {
		b.WriteString("   <lr:hierarchicalSubject><rdf:Bag>\n")
		for _, p := range paths {
			b.WriteString("    <rdf:li>" + xmlEscape(p) + "</rdf:li>\n")
		}
		b.WriteString("   </rdf:Bag></lr:hierarchicalSubject>\n")
	}

	for _, m := range preservedElemRe.FindAllStringSubmatch(existing, -1) {
		if m[1] == ownedElement {
			continue
		}
		b.WriteString("   " + m[0] + "\n")
	}

	b.WriteString("  </rdf:Description>\n")
	b.WriteString(" </rdf:RDF>\n")
	b.WriteString("</x:xmpmeta>\n")
	b.WriteString(`<?xpacket end="w"?>` + "\n")
	return b.String()
}

func xmlEscape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

func xmlUnescape(s string) string {
	r := strings.NewReplacer(
		"&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&apos;", "'", "&amp;", "&",
	)
	return r.Replace(s)
}
