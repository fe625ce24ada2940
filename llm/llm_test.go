package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gfurlani/fotocatalogo/config"
)

func TestStripThink(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{"un airone sul lago", "un airone sul lago"},
		{"<think>ragionamento</think>un airone", "un airone"},
		{"prima<think>a</think>mezzo<think>b</think>dopo", "primamezzodopo"},
		{"<think>mai chiuso... un airone", ""},
		{"testo<think>aperto senza fine", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := StripThink(c.in); got != c.want {
			t.Errorf("StripThink(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCleanTitle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{`"Airone al tramonto"`, "Airone al tramonto"},
		{"«Riflessi d'inverno».", "Riflessi d'inverno"},
		{"  Alba sul lago!  ", "Alba sul lago"},
		{"<think>x</think>'Titolo'", "Titolo"},
		{"<think>senza chiusura", ""},
	}
	for _, c := range cases {
		if got := CleanTitle(c.in); got != c.want {
			t.Errorf("CleanTitle(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseTags(t *testing.T) {
	t.Parallel()

	got := ParseTags("airone, lago; tramonto, Airone, riflessi", 10)
	want := []string{"airone", "lago", "tramonto", "riflessi"}
	if len(got) != len(want) {
		t.Fatalf("tags = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseTagsFiltersInvalid(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 60)
	got := ParseTags("ok-tag, ab, https://example.com, www.example.com, "+long+", natura", 10)
	want := []string{"ok-tag", "natura"}
	if len(got) != len(want) {
		t.Fatalf("tags = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag %d = %q", i, got[i])
		}
	}
}

func TestParseTagsCap(t *testing.T) {
	t.Parallel()

	got := ParseTags("uno1, due2, tre3, quattro, cinque", 3)
	if len(got) != 3 {
		t.Errorf("cap ignored: %v", got)
	}
}

func TestTokenBudgets(t *testing.T) {
	t.Parallel()

	if got := DescriptionBudget(40); got != 80 {
		t.Errorf("description budget = %d", got)
	}
	if got := DescriptionBudget(25); got != 58 { // ceil(37.5) + 20
		t.Errorf("description budget = %d", got)
	}
	if got := TagsBudget(10); got != 40 {
		t.Errorf("tags budget = %d", got)
	}
	if got := TitleBudget(8); got != 26 {
		t.Errorf("title budget = %d", got)
	}
}

func TestCategoryHint(t *testing.T) {
	t.Parallel()

	if got := CategoryHint("Aves"); got != "uccello" {
		t.Errorf("Aves hint = %q", got)
	}
	if got := CategoryHint("Magnoliopsida"); got != "pianta" {
		t.Errorf("Magnoliopsida hint = %q", got)
	}
	if got := CategoryHint("Trilobita"); got != "" {
		t.Errorf("out-of-table class produced hint %q", got)
	}
}

func TestUsePrepend(t *testing.T) {
	t.Parallel()

	if (Context{LatinName: "Ardea cinerea", Confidence: 0.08}).UsePrepend() {
		t.Error("low confidence must not prepend")
	}
	if !(Context{LatinName: "Ardea cinerea", Confidence: 0.15}).UsePrepend() {
		t.Error("threshold confidence must prepend")
	}
	if (Context{Confidence: 0.9}).UsePrepend() {
		t.Error("missing latin name must not prepend")
	}
}

func TestPromptsCarryHints(t *testing.T) {
	t.Parallel()

	ctx := Context{CategoryHint: "uccello", LocationHint: "Firenze, Toscana, Italy"}
	for _, prompt := range []string{
		TitlePrompt(ctx, 8),
		DescriptionPrompt(ctx, 40),
		TagsPrompt(ctx, 10),
	} {
		if !strings.Contains(prompt, "uccello") {
			t.Errorf("prompt lacks category hint: %q", prompt)
		}
		if !strings.Contains(prompt, "Firenze, Toscana, Italy") {
			t.Errorf("prompt lacks location hint: %q", prompt)
		}
		if !strings.Contains(prompt, "italiano") {
			t.Errorf("prompt lacks language rule: %q", prompt)
		}
		if !strings.Contains(prompt, "Non inventare mai nomi di specie") {
			t.Errorf("prompt lacks species rule: %q", prompt)
		}
	}
}

func TestPromptsWithoutHints(t *testing.T) {
	t.Parallel()

	prompt := DescriptionPrompt(Context{}, 40)
	if strings.Contains(prompt, "Suggerimento") {
		t.Errorf("empty context produced category line: %q", prompt)
	}
	if strings.Contains(prompt, "scattata vicino") {
		t.Errorf("empty context produced location line: %q", prompt)
	}
	if !strings.Contains(prompt, "Non inventare mai nomi di specie") {
		t.Errorf("species rule must always appear: %q", prompt)
	}
}

func TestPrependTag(t *testing.T) {
	t.Parallel()

	got := prependTag([]string{"airone", "Ardea cinerea", "lago"}, "Ardea cinerea")
	if got[0] != "Ardea cinerea" || len(got) != 3 {
		t.Errorf("prepend = %v", got)
	}
}

func testVisionConfig(endpoint string) config.LLMVision {
	return config.LLMVision{
		Enabled:    true,
		Endpoint:   endpoint,
		Model:      "test-model",
		TimeoutSec: 5,
		Generation: config.GenerationOptions{
			Temperature: 0.4, TopP: 0.9, TopK: 40, MinP: 0.05,
			NumCtx: 4096, NumBatch: 512, KeepAlive: -1,
		},
	}
}

func TestClientGenerate(t *testing.T) {
	t.Parallel()

	var captured generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "Airone al tramonto"})
	}))
	defer srv.Close()

	client := NewClient(testVisionConfig(srv.URL))
	got, err := client.Generate(context.Background(), "prompt", "cGF5bG9hZA==", 26)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if got != "Airone al tramonto" {
		t.Errorf("response = %q", got)
	}

	if captured.Model != "test-model" || captured.Stream || captured.Think {
		t.Errorf("request fields = %+v", captured)
	}
	if captured.KeepAlive != -1 {
		t.Errorf("keep_alive = %d", captured.KeepAlive)
	}
	if captured.Options.NumPredict != 26 {
		t.Errorf("num_predict = %d", captured.Options.NumPredict)
	}
	if len(captured.Images) != 1 || captured.Images[0] != "cGF5bG9hZA==" {
		t.Errorf("images = %v", captured.Images)
	}
}

func TestClientServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(testVisionConfig(srv.URL))
	if _, err := client.Generate(context.Background(), "prompt", "", 8); err == nil {
		t.Fatal("server error must propagate")
	}
}

func TestGeneratorOneFailureDoesNotAbortOthers(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		switch {
		case strings.Contains(req.Prompt, "titolo"):
			http.Error(w, "boom", http.StatusInternalServerError)
		case strings.Contains(req.Prompt, "parole chiave"):
			json.NewEncoder(w).Encode(generateResponse{Response: "airone, lago, tramonto"})
		default:
			json.NewEncoder(w).Encode(generateResponse{Response: "Un airone grigio in riva al lago."})
		}
	}))
	defer srv.Close()

	autoImport := config.AutoImport{
		Tags:        config.AutoImportField{Enabled: true, MaxTags: 10},
		Description: config.AutoImportField{Enabled: true, MaxWords: 40},
		Title:       config.AutoImportField{Enabled: true, MaxWords: 8},
	}
	gen := NewGenerator(NewClient(testVisionConfig(srv.URL)), autoImport)
	defer gen.Close()

	thumb := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	fields := gen.Generate(context.Background(), thumb, "", Context{}, Request{Title: true, Description: true, Tags: true})

	if fields.Title != nil {
		t.Errorf("failed title should stay nil, got %q", *fields.Title)
	}
	if fields.Description == nil || *fields.Description != "Un airone grigio in riva al lago." {
		t.Errorf("description = %v", fields.Description)
	}
	if len(fields.Tags) != 3 {
		t.Errorf("tags = %v", fields.Tags)
	}
}

func TestGeneratorPrependRules(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		switch {
		case strings.Contains(req.Prompt, "titolo"):
			json.NewEncoder(w).Encode(generateResponse{Response: `"Airone al tramonto"`})
		case strings.Contains(req.Prompt, "parole chiave"):
			json.NewEncoder(w).Encode(generateResponse{Response: "airone, Ardea cinerea, lago"})
		default:
			json.NewEncoder(w).Encode(generateResponse{Response: "Un airone in caccia."})
		}
	}))
	defer srv.Close()

	autoImport := config.AutoImport{
		Tags:        config.AutoImportField{Enabled: true, MaxTags: 10},
		Description: config.AutoImportField{Enabled: true, MaxWords: 40},
		Title:       config.AutoImportField{Enabled: true, MaxWords: 8},
	}
	gen := NewGenerator(NewClient(testVisionConfig(srv.URL)), autoImport)
	defer gen.Close()

	pctx := Context{LatinName: "Ardea cinerea", CommonName: "Grey Heron", Confidence: 0.42}
	thumb := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	fields := gen.Generate(context.Background(), thumb, "", pctx, Request{Title: true, Description: true, Tags: true})

	if fields.Title == nil || *fields.Title != "Ardea cinerea - Airone al tramonto" {
		t.Errorf("title = %v", fields.Title)
	}
	if fields.Description == nil || *fields.Description != "Ardea cinerea: Un airone in caccia." {
		t.Errorf("description = %v", fields.Description)
	}
	if len(fields.Tags) == 0 || fields.Tags[0] != "Ardea cinerea" {
		t.Errorf("tags = %v", fields.Tags)
	}
	// latin name deduped, not doubled
	count := 0
	for _, tag := range fields.Tags {
		if strings.EqualFold(tag, "Ardea cinerea") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("latin name appears %d times in %v", count, fields.Tags)
	}
}

func TestClientWarmupForcesKeepAlive(t *testing.T) {
	t.Parallel()

	var captured generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "pronto"})
	}))
	defer srv.Close()

	cfg := testVisionConfig(srv.URL)
	cfg.Generation.KeepAlive = 5 // minutes-style value from config
	client := NewClient(cfg)
	client.Warmup(context.Background())

	if captured.KeepAlive != -1 {
		t.Errorf("warmup keep_alive = %d, want -1", captured.KeepAlive)
	}
	if len(captured.Images) != 0 {
		t.Errorf("warmup carried images: %v", captured.Images)
	}
}

func TestGeneratorSendsOriginalFilePayload(t *testing.T) {
	t.Parallel()

	raw := []byte("original jpeg bytes")
	src := filepath.Join(t.TempDir(), "small.jpg")
	if err := os.WriteFile(src, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	var captured generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(generateResponse{Response: "Airone"})
	}))
	defer srv.Close()

	autoImport := config.AutoImport{Title: config.AutoImportField{Enabled: true, MaxWords: 8}}
	gen := NewGenerator(NewClient(testVisionConfig(srv.URL)), autoImport)
	defer gen.Close()

	fields := gen.Generate(context.Background(), nil, src, Context{}, Request{Title: true})
	if fields.Title == nil {
		t.Fatal("title missing")
	}
	want := base64.StdEncoding.EncodeToString(raw)
	if len(captured.Images) != 1 || captured.Images[0] != want {
		t.Errorf("payload = %v, want the file bytes as-is", captured.Images)
	}
}

func TestPayloadCacheSingleSlot(t *testing.T) {
	t.Parallel()

	var c payloadCache
	defer c.Close()

	a := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	b := image.NewNRGBA(image.Rect(0, 0, 16, 16))

	p1, err := c.ForImage(a)
	if err != nil {
		t.Fatal(err)
	}
	p1Again, err := c.ForImage(a)
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p1Again {
		t.Error("same source must hit the cache")
	}
	firstTemp := c.tempPath

	if _, err := c.ForImage(b); err != nil {
		t.Fatal(err)
	}
	if c.tempPath == firstTemp {
		t.Error("new source must replace the slot")
	}
	if _, err := os.Stat(firstTemp); !os.IsNotExist(err) {
		t.Error("evicted temp file must be unlinked")
	}
}
