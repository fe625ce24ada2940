package xmp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gfurlani/fotocatalogo/models"
)

func testRecord(t *testing.T) *models.ImageRecord {
	t.Helper()
	title := "Passer domesticus - Passero sul ramo"
	desc := "Passer domesticus: Un passero su un ramo."
	rating := 4
	geo := "Geo|Europe|Italy|Toscana|Firenze"

	rec := &models.ImageRecord{
		Filename:     "sparrow.jpg",
		Filepath:     filepath.Join(t.TempDir(), "sparrow.jpg"),
		Title:        &title,
		Description:  &desc,
		Rating:       &rating,
		ColorLabel:   "Green",
		GeoHierarchy: &geo,
		SyncState:    models.SyncStateUnsynced,
	}
	rec.SetTags([]string{"Passer domesticus", "passero", "Firenze"})
	rec.SetTaxonomy(models.Taxonomy{"Animalia", "Chordata", "Aves", "Passeriformes", "Passeridae", "Passer", "domesticus"})
	return rec
}

func TestSidecarPath(t *testing.T) {
	t.Parallel()

	if got := SidecarPath("/photos/a.NEF"); got != "/photos/a.xmp" {
		t.Errorf("sidecar path = %q", got)
	}
	if got := SidecarPath("/photos/b.jpg"); got != "/photos/b.xmp" {
		t.Errorf("sidecar path = %q", got)
	}
}

func TestWriteSidecarFreshFile(t *testing.T) {
	t.Parallel()

	rec := testRecord(t)
	if err := WriteSidecar(rec); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if rec.SyncState != models.SyncStatePerfectSync {
		t.Errorf("sync state = %q", rec.SyncState)
	}

	raw, err := os.ReadFile(SidecarPath(rec.Filepath))
	if err != nil {
		t.Fatal(err)
	}
	doc := string(raw)

	for _, want := range []string{
		"<rdf:li>Passer domesticus</rdf:li>",
		"<rdf:li>passero</rdf:li>",
		"<rdf:li>Firenze</rdf:li>",
		"Passer domesticus - Passero sul ramo",
		"<xmp:Rating>4</xmp:Rating>",
		"<xmp:Label>Green</xmp:Label>",
		"<rdf:li>AI|Taxonomy|Animalia|Chordata|Aves|Passeriformes|Passeridae|Passer|domesticus</rdf:li>",
		"<rdf:li>GeOFF|Europe|Italy|Toscana|Firenze</rdf:li>",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("sidecar missing %q", want)
		}
	}
}

func TestWriteSidecarPreservesForeignContent(t *testing.T) {
	t.Parallel()

	rec := testRecord(t)
	existing := `<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about=""
    xmlns:lr="http://ns.adobe.com/lightroom/1.0/"
    xmlns:crs="http://ns.adobe.com/camera-raw-settings/1.0/"
    xmlns:xmpMM="http://ns.adobe.com/xap/1.0/mm/"
    crs:Version="15.0" crs:WhiteBalance="As Shot"
    xmpMM:DocumentID="xmp.did:1234">
   <crs:ToneCurvePV2012><rdf:Seq><rdf:li>0, 0</rdf:li></rdf:Seq></crs:ToneCurvePV2012>
   <lr:weightedFlatSubject><rdf:Bag>
    <rdf:li>lake</rdf:li>
   </rdf:Bag></lr:weightedFlatSubject>
   <lr:hierarchicalSubject><rdf:Bag>
    <rdf:li>Places|Vacation|Lake</rdf:li>
    <rdf:li>AI|Taxonomy|Old|Stale|Path</rdf:li>
    <rdf:li>GeOFF|Old|Place</rdf:li>
   </rdf:Bag></lr:hierarchicalSubject>
  </rdf:Description>
 </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>`
	if err := os.WriteFile(SidecarPath(rec.Filepath), []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := WriteSidecar(rec); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	raw, err := os.ReadFile(SidecarPath(rec.Filepath))
	if err != nil {
		t.Fatal(err)
	}
	doc := string(raw)

	// foreign content survives
	for _, want := range []string{
		`crs:Version="15.0"`,
		`crs:WhiteBalance="As Shot"`,
		`xmpMM:DocumentID="xmp.did:1234"`,
		"<crs:ToneCurvePV2012>",
		"<lr:weightedFlatSubject>",
		"<rdf:li>lake</rdf:li>",
		"<rdf:li>Places|Vacation|Lake</rdf:li>",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("preserved content missing: %q", want)
		}
	}

	// the rewritten block is the only hierarchicalSubject in the document
	if n := strings.Count(doc, "<lr:hierarchicalSubject>"); n != 1 {
		t.Errorf("hierarchicalSubject blocks = %d, want 1", n)
	}

	// owned roots are cleared and rewritten
	if strings.Contains(doc, "AI|Taxonomy|Old|Stale|Path") {
		t.Error("stale taxonomy path survived")
	}
	if strings.Contains(doc, "GeOFF|Old|Place") {
		t.Error("stale geo path survived")
	}
	if !strings.Contains(doc, "AI|Taxonomy|Animalia|") {
		t.Error("rewritten taxonomy path missing")
	}
	if !strings.Contains(doc, "GeOFF|Europe|Italy|Toscana|Firenze") {
		t.Error("rewritten geo path missing")
	}
}

func TestWriteSidecarEscapesValues(t *testing.T) {
	t.Parallel()

	title := `Luci & ombre <notturne>`
	rec := &models.ImageRecord{
		Filename: "n.jpg",
		Filepath: filepath.Join(t.TempDir(), "n.jpg"),
		Title:    &title,
	}
	if err := WriteSidecar(rec); err != nil {
		t.Fatal(err)
	}
	raw, _ := os.ReadFile(SidecarPath(rec.Filepath))
	if !strings.Contains(string(raw), "Luci &amp; ombre &lt;notturne&gt;") {
		t.Errorf("title not escaped: %s", raw)
	}
}

func TestOwnedPath(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"AI|Taxonomy|Animalia": true,
		"AI|Taxonomy":          true,
		"GeOFF|Europe":         true,
		"Places|Lake":          false,
		"AI|Other":             false,
		"Geografia|X":          false,
	}
	for path, want := range cases {
		if got := ownedPath(path); got != want {
			t.Errorf("ownedPath(%q) = %v", path, got)
		}
	}
}

func TestForeignHierarchicalSubjectsNoBlock(t *testing.T) {
	t.Parallel()

	if got := foreignHierarchicalSubjects("<x:xmpmeta></x:xmpmeta>"); got != nil {
		t.Errorf("got %v from empty document", got)
	}
}
