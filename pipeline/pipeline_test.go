package pipeline

import (
	"context"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gfurlani/fotocatalogo/config"
	"github.com/gfurlani/fotocatalogo/inference"
	"github.com/gfurlani/fotocatalogo/llm"
	"github.com/gfurlani/fotocatalogo/media"
	"github.com/gfurlani/fotocatalogo/models"
)

type fakeDecoder struct {
	img      *image.NRGBA
	lastSize int
}

func (d *fakeDecoder) Decode(path string, targetSize int) *image.NRGBA {
	d.lastSize = targetSize
	return d.img
}

type fakeExtractor struct {
	fill func(rec *models.ImageRecord)
}

func (e *fakeExtractor) Extract(rec *models.ImageRecord) error {
	if e.fill != nil {
		e.fill(rec)
	}
	return nil
}

type fakeBank struct {
	results  inference.Results
	profiles []string
}

func (b *fakeBank) Run(thumb image.Image, path string, isRaw bool) inference.Results {
	return b.results
}
func (b *fakeBank) EnabledProfiles() []string { return b.profiles }
func (b *fakeBank) HasVisionModels() bool {
	for _, p := range b.profiles {
		if p != media.ProfileTechnical {
			return true
		}
	}
	return false
}

type fakeGenerator struct {
	fields     llm.Fields
	lastCtx    llm.Context
	lastReq    llm.Request
	lastSource string
	called     bool
}

func (g *fakeGenerator) Generate(ctx context.Context, thumb *image.NRGBA, sourcePath string, pctx llm.Context, req llm.Request) llm.Fields {
	g.called = true
	g.lastCtx = pctx
	g.lastReq = req
	g.lastSource = sourcePath
	out := llm.Fields{}
	if req.Title {
		out.Title = g.fields.Title
	}
	if req.Description {
		out.Description = g.fields.Description
	}
	if req.Tags {
		out.Tags = g.fields.Tags
	}
	return out
}

func writeTestFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("not a real image, hashing only"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func allAutoImport() config.AutoImport {
	return config.AutoImport{
		Tags:        config.AutoImportField{Enabled: true, MaxTags: 10},
		Description: config.AutoImportField{Enabled: true, MaxWords: 40},
		Title:       config.AutoImportField{Enabled: true, MaxWords: 8},
	}
}

func testPipeline(dec Decoder, ext MetadataExtractor, bank InferenceRunner, gen FieldGenerator) *Pipeline {
	return &Pipeline{
		Decoder:    dec,
		Extractor:  ext,
		Bank:       bank,
		Generator:  gen,
		Hash:       func(string) (string, error) { return "cafebabe", nil },
		Profiles:   media.LoadProfiles(&config.Config{}),
		LLMEnabled: true,
		AutoImport: allAutoImport(),
		Version:    "test",
	}
}

func TestProcessFullEnrichment(t *testing.T) {
	t.Parallel()

	lat, lon := 43.7696, 11.2558
	ext := &fakeExtractor{fill: func(rec *models.ImageRecord) {
		rec.GPSLatitude = &lat
		rec.GPSLongitude = &lon
	}}
	bank := &fakeBank{
		profiles: []string{media.ProfileClip, media.ProfileDinov2, media.ProfileBioclip},
		results: inference.Results{
			ClipEmbedding:   []float32{0.6, 0.8},
			Dinov2Embedding: []float32{1, 0},
			Taxonomy: &inference.Prediction{
				Taxonomy:   models.Taxonomy{"Animalia", "Chordata", "Aves", "Passeriformes", "Passeridae", "Passer", "domesticus"},
				CommonName: "House Sparrow",
				Confidence: 0.42,
			},
		},
	}
	title := "Passer domesticus - Passero sul ramo"
	gen := &fakeGenerator{fields: llm.Fields{
		Title: &title,
		Tags:  []string{"Passer domesticus", "passero", "giardino"},
	}}
	dec := &fakeDecoder{img: image.NewNRGBA(image.Rect(0, 0, 64, 64))}

	p := testPipeline(dec, ext, bank, gen)
	rec, err := p.Process(context.Background(), writeTestFile(t, "sparrow.jpg"), nil)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if rec.GeoHierarchy == nil || *rec.GeoHierarchy != "Geo|Europe|Italy|Toscana|Firenze" {
		t.Errorf("geo hierarchy = %v", rec.GeoHierarchy)
	}
	tax, ok := rec.GetTaxonomy()
	if !ok || tax.Genus() != "Passer" {
		t.Errorf("taxonomy = %v", tax)
	}

	tags := rec.Tags()
	if len(tags) == 0 || tags[0] != "Passer domesticus" {
		t.Errorf("tags = %v", tags)
	}
	found := false
	for _, tag := range tags {
		if tag == "Firenze" {
			found = true
		}
	}
	if !found {
		t.Errorf("geo leaf missing from tags: %v", tags)
	}

	if rec.Title == nil || *rec.Title != title {
		t.Errorf("title = %v", rec.Title)
	}
	if !rec.EmbeddingGenerated || !rec.LLMGenerated {
		t.Errorf("flags = %v/%v", rec.EmbeddingGenerated, rec.LLMGenerated)
	}
	if rec.SyncState != models.SyncStateUnsynced {
		t.Errorf("sync state = %q", rec.SyncState)
	}
	if rec.FileHash == nil || *rec.FileHash != "cafebabe" {
		t.Errorf("hash = %v", rec.FileHash)
	}
	if rec.ProcessedDate == nil || rec.ProcessingTime == nil {
		t.Error("processing bookkeeping missing")
	}

	if gen.lastCtx.LocationHint != "Firenze, Toscana, Italy" {
		t.Errorf("location hint = %q", gen.lastCtx.LocationHint)
	}
	if gen.lastCtx.CategoryHint != "uccello" {
		t.Errorf("category hint = %q", gen.lastCtx.CategoryHint)
	}
	if !gen.lastCtx.UsePrepend() {
		t.Error("confident classification must allow prepend")
	}
}

func TestProcessDecodeTargetIsMaxOfEnabled(t *testing.T) {
	t.Parallel()

	dec := &fakeDecoder{img: image.NewNRGBA(image.Rect(0, 0, 8, 8))}
	bank := &fakeBank{profiles: []string{media.ProfileClip, media.ProfileDinov2}}
	p := testPipeline(dec, &fakeExtractor{}, bank, &fakeGenerator{})

	if _, err := p.Process(context.Background(), writeTestFile(t, "a.jpg"), nil); err != nil {
		t.Fatal(err)
	}
	if dec.lastSize != 518 {
		t.Errorf("decode size = %d, want 518", dec.lastSize)
	}

	// clip only, llm wins at 512
	bank.profiles = []string{media.ProfileClip}
	if _, err := p.Process(context.Background(), writeTestFile(t, "b.jpg"), nil); err != nil {
		t.Fatal(err)
	}
	if dec.lastSize != 512 {
		t.Errorf("decode size = %d, want 512", dec.lastSize)
	}
}

func TestProcessPreservesExistingDescription(t *testing.T) {
	t.Parallel()

	existingDesc := "Vista del lago"
	existing := &models.ImageRecord{Description: &existingDesc}

	generated := "Un altro testo"
	gen := &fakeGenerator{fields: llm.Fields{Description: &generated}}
	dec := &fakeDecoder{img: image.NewNRGBA(image.Rect(0, 0, 8, 8))}
	p := testPipeline(dec, &fakeExtractor{}, &fakeBank{profiles: []string{media.ProfileClip}}, gen)
	p.AutoImport.Description.Overwrite = false

	rec, err := p.Process(context.Background(), writeTestFile(t, "lake.jpg"), existing)
	if err != nil {
		t.Fatal(err)
	}
	if gen.lastReq.Description {
		t.Error("preserve flag must skip description generation")
	}
	if rec.Description == nil || *rec.Description != existingDesc {
		t.Errorf("description = %v", rec.Description)
	}
}

func TestProcessOverwriteFlagRegenerates(t *testing.T) {
	t.Parallel()

	existingDesc := "Vista del lago"
	existing := &models.ImageRecord{Description: &existingDesc}

	generated := "Descrizione nuova"
	gen := &fakeGenerator{fields: llm.Fields{Description: &generated}}
	dec := &fakeDecoder{img: image.NewNRGBA(image.Rect(0, 0, 8, 8))}
	p := testPipeline(dec, &fakeExtractor{}, &fakeBank{profiles: []string{media.ProfileClip}}, gen)
	p.AutoImport.Description.Overwrite = true

	rec, err := p.Process(context.Background(), writeTestFile(t, "lake.jpg"), existing)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Description == nil || *rec.Description != generated {
		t.Errorf("description = %v", rec.Description)
	}
}

func TestProcessTagMergeAppendsWithoutOverwrite(t *testing.T) {
	t.Parallel()

	existing := &models.ImageRecord{TagsJoined: "montagna|Lago"}
	gen := &fakeGenerator{fields: llm.Fields{Tags: []string{"lago", "alba"}}}
	dec := &fakeDecoder{img: image.NewNRGBA(image.Rect(0, 0, 8, 8))}
	p := testPipeline(dec, &fakeExtractor{}, &fakeBank{profiles: []string{media.ProfileClip}}, gen)

	rec, err := p.Process(context.Background(), writeTestFile(t, "m.jpg"), existing)
	if err != nil {
		t.Fatal(err)
	}
	tags := rec.Tags()
	// existing first, then new entries; "lago" is a case-insensitive dup
	want := []string{"montagna", "Lago", "alba"}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v", tags)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tag %d = %q, want %q", i, tags[i], want[i])
		}
	}
}

func TestProcessTagOverwriteReplaces(t *testing.T) {
	t.Parallel()

	existing := &models.ImageRecord{TagsJoined: "montagna|lago"}
	gen := &fakeGenerator{fields: llm.Fields{Tags: []string{"alba", "nebbia"}}}
	dec := &fakeDecoder{img: image.NewNRGBA(image.Rect(0, 0, 8, 8))}
	p := testPipeline(dec, &fakeExtractor{}, &fakeBank{profiles: []string{media.ProfileClip}}, gen)
	p.AutoImport.Tags.Overwrite = true

	rec, err := p.Process(context.Background(), writeTestFile(t, "m.jpg"), existing)
	if err != nil {
		t.Fatal(err)
	}
	tags := rec.Tags()
	if len(tags) != 2 || tags[0] != "alba" || tags[1] != "nebbia" {
		t.Errorf("tags = %v", tags)
	}
}

func TestProcessUnreadableRawIsMetadataOnly(t *testing.T) {
	t.Parallel()

	dec := &fakeDecoder{img: nil}
	gen := &fakeGenerator{}
	p := testPipeline(dec, &fakeExtractor{}, &fakeBank{profiles: []string{media.ProfileClip}}, gen)

	rec, err := p.Process(context.Background(), writeTestFile(t, "shot.nef"), nil)
	if err != nil {
		t.Fatalf("unreadable RAW must not error: %v", err)
	}
	if !rec.IsRaw {
		t.Error("is_raw not set")
	}
	if rec.EmbeddingGenerated || rec.LLMGenerated {
		t.Error("metadata-only record must not claim generation")
	}
	if gen.called {
		t.Error("generator must not run without a thumbnail")
	}
	if rec.FileHash == nil {
		t.Error("metadata-only record still gets hashed")
	}
}

func TestProcessNonRawDecodeFailureErrors(t *testing.T) {
	t.Parallel()

	dec := &fakeDecoder{img: nil}
	p := testPipeline(dec, &fakeExtractor{}, &fakeBank{profiles: []string{media.ProfileClip}}, &fakeGenerator{})

	if _, err := p.Process(context.Background(), writeTestFile(t, "broken.jpg"), nil); err == nil {
		t.Fatal("undecodable standard file must error")
	}
}

func TestProcessLowConfidenceContext(t *testing.T) {
	t.Parallel()

	bank := &fakeBank{
		profiles: []string{media.ProfileClip, media.ProfileBioclip},
		results: inference.Results{
			Taxonomy: &inference.Prediction{
				Taxonomy:   models.Taxonomy{"Animalia", "Chordata", "Aves", "", "", "Passer", "domesticus"},
				Confidence: 0.08,
			},
		},
	}
	gen := &fakeGenerator{}
	dec := &fakeDecoder{img: image.NewNRGBA(image.Rect(0, 0, 8, 8))}
	p := testPipeline(dec, &fakeExtractor{}, bank, gen)

	if _, err := p.Process(context.Background(), writeTestFile(t, "far.jpg"), nil); err != nil {
		t.Fatal(err)
	}
	if gen.lastCtx.UsePrepend() {
		t.Error("confidence 0.08 must not allow prepend")
	}
}

func TestProcessGeoLeafNotDuplicated(t *testing.T) {
	t.Parallel()

	lat, lon := 43.7696, 11.2558
	ext := &fakeExtractor{fill: func(rec *models.ImageRecord) {
		rec.GPSLatitude = &lat
		rec.GPSLongitude = &lon
	}}
	existing := &models.ImageRecord{TagsJoined: "firenze|duomo"}
	dec := &fakeDecoder{img: image.NewNRGBA(image.Rect(0, 0, 8, 8))}
	p := testPipeline(dec, ext, &fakeBank{profiles: []string{media.ProfileClip}}, &fakeGenerator{})

	rec, err := p.Process(context.Background(), writeTestFile(t, "fi.jpg"), existing)
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, tag := range rec.Tags() {
		if tag == "firenze" || tag == "Firenze" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("geo leaf duplicated: %v", rec.Tags())
	}
}

func TestProcessSendsSmallOriginalToGenerator(t *testing.T) {
	t.Parallel()

	w, h := 480, 320
	ext := &fakeExtractor{fill: func(rec *models.ImageRecord) {
		rec.Format = "jpg"
		rec.Width = &w
		rec.Height = &h
	}}
	gen := &fakeGenerator{}
	dec := &fakeDecoder{img: image.NewNRGBA(image.Rect(0, 0, 8, 8))}
	p := testPipeline(dec, ext, &fakeBank{profiles: []string{media.ProfileClip}}, gen)

	rec, err := p.Process(context.Background(), writeTestFile(t, "small.jpg"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if gen.lastSource != rec.Filepath {
		t.Errorf("source path = %q, want %q", gen.lastSource, rec.Filepath)
	}
}

func TestProcessLargeOriginalUsesThumbnail(t *testing.T) {
	t.Parallel()

	w, h := 6000, 4000
	ext := &fakeExtractor{fill: func(rec *models.ImageRecord) {
		rec.Format = "jpg"
		rec.Width = &w
		rec.Height = &h
	}}
	gen := &fakeGenerator{}
	dec := &fakeDecoder{img: image.NewNRGBA(image.Rect(0, 0, 8, 8))}
	p := testPipeline(dec, ext, &fakeBank{profiles: []string{media.ProfileClip}}, gen)

	if _, err := p.Process(context.Background(), writeTestFile(t, "big.jpg"), nil); err != nil {
		t.Fatal(err)
	}
	if gen.lastSource != "" {
		t.Errorf("source path = %q, want thumbnail payload", gen.lastSource)
	}

	// RAW originals never go out as-is either
	ext.fill = func(rec *models.ImageRecord) {
		rec.Format = "nef"
		rec.Width = &h
		rec.Height = &h
	}
	if _, err := p.Process(context.Background(), writeTestFile(t, "shot.nef"), nil); err != nil {
		t.Fatal(err)
	}
	if gen.lastSource != "" {
		t.Errorf("source path = %q for raw input", gen.lastSource)
	}
}

func TestStatsSnapshot(t *testing.T) {
	t.Parallel()

	var s Stats
	s.Begin(10)
	s.Skip()
	s.RecordSuccess(true, true, 1.5)
	s.RecordSuccess(false, false, 0.5)
	s.RecordError(0.25)

	snap := s.Snapshot()
	if snap.Total != 10 || snap.Processed != 3 || snap.Success != 2 || snap.Errors != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.SkippedExisting != 1 || snap.WithEmbedding != 1 || snap.WithTags != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.ProcessingTime != 2.25 {
		t.Errorf("processing time = %f", snap.ProcessingTime)
	}
}

func TestStatsSnapshotIsDetached(t *testing.T) {
	t.Parallel()

	var s Stats
	s.Begin(2)
	s.RecordSuccess(true, false, 1.0)

	// a status payload embeds the snapshot by value, like the control API
	type statusPayload struct {
		State string        `json:"state"`
		Stats StatsSnapshot `json:"stats"`
	}
	resp := statusPayload{State: "running", Stats: s.Snapshot()}

	s.RecordError(1.0)
	if resp.Stats.Processed != 1 || resp.Stats.Errors != 0 {
		t.Errorf("snapshot tracked later writes: %+v", resp.Stats)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"processed":1`) {
		t.Errorf("payload = %s", raw)
	}
}
