package metadata

import (
	"log"
	"os"

	"github.com/bep/imagemeta"

	"github.com/gfurlani/fotocatalogo/models"
)

// editorialTags maps (source, tag-name) to true for the editorial fields we
// read from IPTC and XMP.
var editorialTags = map[imagemeta.Source]map[string]bool{
	imagemeta.IPTC: {
		"ObjectName":       true, // title
		"Caption-Abstract": true, // description
		"Keywords":         true,
	},
	imagemeta.XMP: {
		"Title":       true,
		"Description": true,
		"Subject":     true,
		"Rating":      true,
		"Label":       true,
	},
}

// extractEditorial reads title, description, keywords, rating, and color
// label from IPTC/XMP. XMP wins over IPTC for the same field. Missing or
// unparsable metadata leaves the record untouched.
func extractEditorial(record *models.ImageRecord) {
	f, err := os.Open(record.Filepath)
	if err != nil {
		return
	}
	defer f.Close()

	var tags []string

	_, err = imagemeta.Decode(imagemeta.Options{
		R:       f,
		Sources: imagemeta.IPTC | imagemeta.XMP,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			if wanted, ok := editorialTags[ti.Source]; ok {
				return wanted[ti.Tag]
			}
			return false
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			switch ti.Tag {
			case "ObjectName", "Title":
				if s := tagValueString(ti.Value); s != "" {
					record.Title = &s
				}
			case "Caption-Abstract", "Description":
				if s := tagValueString(ti.Value); s != "" {
					record.Description = &s
				}
			case "Keywords", "Subject":
				tags = append(tags, tagValueStrings(ti.Value)...)
			case "Rating":
				if r, ok := tagValueInt(ti.Value); ok {
					record.Rating = ClampRating(r)
				}
			case "Label":
				record.SetColorLabel(tagValueString(ti.Value))
			}
			return nil
		},
	})
	if err != nil {
		log.Printf("metadata: editorial parse for %s: %v", record.Filepath, err)
		return
	}

	if len(tags) > 0 {
		record.SetTags(tags)
	}
}

// tagValueString extracts a single string from a tag value. XMP values may
// arrive as string or list forms.
func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		if len(val) > 0 {
			return val[0]
		}
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

func tagValueStrings(v any) []string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func tagValueInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case string:
		n := 0
		for _, c := range val {
			if c < '0' || c > '9' {
				return 0, false
			}
			n = n*10 + int(c-'0')
		}
		if val == "" {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
