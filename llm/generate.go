package llm

import (
	"context"
	"image"
	"log"
	"math"
	"strings"
	"sync"

	"github.com/gfurlani/fotocatalogo/config"
)

// Fields is the per-image generation result. Nil means the mode was not
// requested or failed; the orchestrator treats both as "leave untouched".
type Fields struct {
	Title       *string
	Description *string
	Tags        []string
}

// Request selects the modes to run for one image.
type Request struct {
	Title       bool
	Description bool
	Tags        bool
}

// llmWorkers bounds the per-image generation calls.
const llmWorkers = 3

// Generator issues the concurrent title/description/tags calls and cleans
// the responses.
type Generator struct {
	client *Client
	cfg    config.AutoImport
	cache  payloadCache
	sem    chan struct{}
}

func NewGenerator(client *Client, cfg config.AutoImport) *Generator {
	return &Generator{
		client: client,
		cfg:    cfg,
		sem:    make(chan struct{}, llmWorkers),
	}
}

// Close releases the payload cache slot.
func (g *Generator) Close() {
	g.cache.Close()
}

// Generate runs the requested modes concurrently. The payload is the
// original file at sourcePath when given (already small enough to send
// as-is), otherwise the shared thumbnail is encoded. A failed mode leaves
// its field nil and never aborts the others.
func (g *Generator) Generate(ctx context.Context, thumb *image.NRGBA, sourcePath string, pctx Context, req Request) Fields {
	var out Fields
	if !req.Title && !req.Description && !req.Tags {
		return out
	}

	var payload string
	var err error
	if sourcePath != "" {
		payload, err = g.cache.ForPath(sourcePath)
	} else if thumb != nil {
		payload, err = g.cache.ForImage(thumb)
	} else {
		return out
	}
	if err != nil {
		log.Printf("llm: payload encoding failed: %v", err)
		return out
	}

	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.sem <- struct{}{}
			defer func() { <-g.sem }()
			fn()
		}()
	}

	if req.Title {
		run(func() {
			maxWords := g.cfg.Title.MaxWords
			raw, err := g.client.Generate(ctx, TitlePrompt(pctx, maxWords), payload, TitleBudget(maxWords))
			if err != nil {
				log.Printf("llm: title generation failed: %v", err)
				return
			}
			title := CleanTitle(raw)
			if title == "" {
				return
			}
			if pctx.UsePrepend() {
				title = pctx.LatinName + " - " + title
			}
			out.Title = &title
		})
	}

	if req.Description {
		run(func() {
			maxWords := g.cfg.Description.MaxWords
			raw, err := g.client.Generate(ctx, DescriptionPrompt(pctx, maxWords), payload, DescriptionBudget(maxWords))
			if err != nil {
				log.Printf("llm: description generation failed: %v", err)
				return
			}
			desc := strings.TrimSpace(StripThink(raw))
			if desc == "" {
				return
			}
			if pctx.UsePrepend() {
				desc = pctx.LatinName + ": " + desc
			}
			out.Description = &desc
		})
	}

	if req.Tags {
		run(func() {
			maxTags := g.cfg.Tags.MaxTags
			raw, err := g.client.Generate(ctx, TagsPrompt(pctx, maxTags), payload, TagsBudget(maxTags))
			if err != nil {
				log.Printf("llm: tags generation failed: %v", err)
				return
			}
			tags := ParseTags(raw, maxTags)
			if len(tags) == 0 {
				return
			}
			if pctx.UsePrepend() {
				tags = prependTag(tags, pctx.LatinName)
			}
			out.Tags = tags
		})
	}

	wg.Wait()
	return out
}

// Token budgets per mode.

func DescriptionBudget(maxWords int) int {
	return int(math.Ceil(float64(maxWords)*1.5)) + 20
}

func TagsBudget(maxTags int) int {
	return maxTags*3 + 10
}

func TitleBudget(maxTitleWords int) int {
	return maxTitleWords*2 + 10
}

// StripThink removes a <think>...</think> reasoning block. An opening tag
// without its close poisons the whole response, so everything is dropped.
func StripThink(s string) string {
	for {
		open := strings.Index(s, "<think>")
		if open < 0 {
			return s
		}
		end := strings.Index(s[open:], "</think>")
		if end < 0 {
			return ""
		}
		s = s[:open] + s[open+end+len("</think>"):]
	}
}

// CleanTitle strips reasoning, whitespace and surrounding quote or
// punctuation characters.
func CleanTitle(s string) string {
	s = strings.TrimSpace(StripThink(s))
	s = strings.Trim(s, "\"'«»“”‘’.,:;!? \t\n")
	return strings.TrimSpace(s)
}

// ParseTags splits on commas and semicolons, filters invalid entries,
// deduplicates case-insensitively preserving order and caps the list.
func ParseTags(s string, maxTags int) []string {
	s = StripThink(s)
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})

	seen := make(map[string]bool, len(parts))
	var tags []string
	for _, p := range parts {
		tag := strings.Trim(strings.TrimSpace(p), "\"'«».")
		if !validTag(tag) {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
		if maxTags > 0 && len(tags) >= maxTags {
			break
		}
	}
	return tags
}

func validTag(tag string) bool {
	if len(tag) <= 2 || len(tag) >= 50 {
		return false
	}
	lower := strings.ToLower(tag)
	return !strings.HasPrefix(lower, "http://") &&
		!strings.HasPrefix(lower, "https://") &&
		!strings.HasPrefix(lower, "www.")
}

// prependTag puts name first, removing any case-insensitive duplicate.
func prependTag(tags []string, name string) []string {
	out := make([]string, 0, len(tags)+1)
	out = append(out, name)
	for _, t := range tags {
		if !strings.EqualFold(t, name) {
			out = append(out, t)
		}
	}
	return out
}
