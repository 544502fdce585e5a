package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/shapestore/shapestore/engine"
	"github.com/shapestore/shapestore/metaindex"
)

type WhatsInside struct {
	Summary     string         `json:"summary"`
	Details     map[string]any `json:"details"`
	Description string         `json:"description"`
}

// Result is the response assembled for one upload.
type Result struct {
	Status          string           `json:"status"`
	Type            string           `json:"type"`
	FileType        string           `json:"file_type"`
	Category        string           `json:"category"`
	LocationSaved   string           `json:"location_saved"`
	Filename        string           `json:"filename"`
	IndexID         int64            `json:"index_id"`
	WhatsInside     WhatsInside      `json:"whats_inside"`
	SchemaDecision  *engine.Decision `json:"schema_decision,omitempty"`
	RecordsInserted int              `json:"records_inserted,omitempty"`
}

// ProcessUpload sniffs the content type and routes to the matching
// processor.
func (p *Pipeline) ProcessUpload(ctx context.Context, filename, declaredType string, body []byte) (*Result, error) {
	mime := DetectContentType(filename, declaredType)
	switch {
	case IsMediaType(mime):
		return p.ProcessMedia(ctx, filename, mime, body)
	case IsJSONType(mime):
		return p.ProcessJSON(ctx, filename, body)
	case IsDocumentType(mime):
		return p.ProcessDocument(ctx, filename, mime, body)
	default:
		return nil, &UnsupportedTypeError{ContentType: mime}
	}
}

// ProcessJSON runs the full decision pipeline: analyze, decide, apply,
// insert, index. An apply failure aborts before anything is indexed.
func (p *Pipeline) ProcessJSON(ctx context.Context, filename string, body []byte) (*Result, error) {
	v, err := fastjson.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("ingest: invalid json: %w", err)
	}

	records := []*fastjson.Value{v}
	if v.Type() == fastjson.TypeArray {
		records, err = v.Array()
		if err != nil {
			return nil, err
		}
	}

	decision, err := p.AnalyzeAndDecide(records)
	if err != nil {
		return nil, err
	}

	loc, err := p.ApplySchema(ctx, decision)
	if err != nil {
		return nil, err
	}

	rows, err := decodeRecords(body)
	if err != nil {
		return nil, err
	}
	var inserted int
	if decision.StorageType == engine.StorageSQL {
		inserted, err = p.rel.Insert(ctx, loc.Name, rows)
	} else {
		inserted, err = p.doc.Insert(ctx, loc.Name, rows)
	}
	if err != nil {
		return nil, err
	}

	id, err := p.RecordIngestion(ctx, metaindex.Entry{
		Filename:         filename,
		Kind:             metaindex.KindJSON,
		CategoryOrSchema: decision.SchemaName,
		StorageType:      string(decision.StorageType),
		StorageLocation:  loc.String(),
	})
	if err != nil {
		return nil, err
	}

	structureType := "single"
	if len(records) > 1 {
		structureType = "batch"
	}
	r := decision.Reasoning
	return &Result{
		Status:        "success",
		Type:          "json",
		FileType:      "JSON data",
		Category:      decision.SchemaName,
		LocationSaved: loc.String(),
		Filename:      filename,
		IndexID:       id,
		WhatsInside: WhatsInside{
			Summary: fmt.Sprintf("JSON %s with %d fields", structureType, r.FieldCount),
			Details: map[string]any{
				"structure_type": structureType,
				"field_count":    r.FieldCount,
				"nesting_depth":  r.NestingDepth,
				"consistency":    r.Consistency,
				"storage_type":   decision.StorageType,
				"schema_name":    decision.SchemaName,
				"records_count":  inserted,
			},
			Description: fmt.Sprintf("Storage: %s | Schema: %s | Records: %d",
				decision.StorageType, decision.SchemaName, inserted),
		},
		SchemaDecision:  decision,
		RecordsInserted: inserted,
	}, nil
}

// ProcessMedia resolves a category and indexes the file. Storage follows
// the category-keyed directory convention.
func (p *Pipeline) ProcessMedia(ctx context.Context, filename, mime string, body []byte) (*Result, error) {
	category := p.ResolveMediaCategory(body, filename)
	location := category + "/" + filename

	id, err := p.RecordIngestion(ctx, metaindex.Entry{
		Filename:         filename,
		Kind:             metaindex.KindMedia,
		CategoryOrSchema: category,
		StorageLocation:  location,
	})
	if err != nil {
		return nil, err
	}

	fileType := "image"
	if strings.HasPrefix(mime, "video/") {
		fileType = "video"
	}
	format := mime[strings.IndexByte(mime, '/')+1:]
	return &Result{
		Status:        "success",
		Type:          "media",
		FileType:      fileType,
		Category:      category,
		LocationSaved: location,
		Filename:      filename,
		IndexID:       id,
		WhatsInside: WhatsInside{
			Summary: fmt.Sprintf("%s file (%s)", strings.ToUpper(fileType[:1])+fileType[1:], format),
			Details: map[string]any{
				"file_type":       fileType,
				"format":          format,
				"file_size_bytes": len(body),
			},
			Description: fmt.Sprintf("Category: %s | Format: %s | Size: %d bytes",
				category, format, len(body)),
		},
	}, nil
}

// ProcessDocument extracts text via the black-box extractor, degrading
// to empty text when it fails, then categorizes and indexes.
func (p *Pipeline) ProcessDocument(ctx context.Context, filename, mime string, body []byte) (*Result, error) {
	var text string
	var props map[string]string
	if p.extract != nil {
		var err error
		text, props, err = p.extract(body)
		if err != nil {
			text, props = "", nil
		}
	}

	// documents have no image classifier; the chain starts at the
	// filename scan
	category := p.resolver.Resolve(nil, filename, nil)
	location := category + "/" + filename

	id, err := p.RecordIngestion(ctx, metaindex.Entry{
		Filename:         filename,
		Kind:             metaindex.KindDocument,
		CategoryOrSchema: category,
		StorageLocation:  location,
		Text:             text,
	})
	if err != nil {
		return nil, err
	}

	docType := strings.ToUpper(mime[strings.IndexByte(mime, '/')+1:])
	words := len(strings.Fields(text))
	preview := text
	if len(preview) > 500 {
		preview = preview[:500] + "..."
	}
	details := map[string]any{
		"document_type":   docType,
		"word_count":      words,
		"character_count": len(text),
		"file_size_bytes": len(body),
		"has_text":        len(text) > 0,
		"text_preview":    preview,
	}
	for k, v := range props {
		details[k] = v
	}
	return &Result{
		Status:        "success",
		Type:          "document",
		FileType:      docType,
		Category:      category,
		LocationSaved: location,
		Filename:      filename,
		IndexID:       id,
		WhatsInside: WhatsInside{
			Summary:     fmt.Sprintf("%s document with %d words", docType, words),
			Details:     details,
			Description: fmt.Sprintf("Category: %s | Words: %d | Size: %d bytes", category, words, len(body)),
		},
	}, nil
}

// decodeRecords re-decodes the payload into plain maps for the storage
// adapters.
func decodeRecords(body []byte) ([]map[string]any, error) {
	t := strings.TrimSpace(string(body))
	if strings.HasPrefix(t, "[") {
		var rows []map[string]any
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("ingest: decode records: %w", err)
		}
		return rows, nil
	}
	var row map[string]any
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, fmt.Errorf("ingest: decode record: %w", err)
	}
	return []map[string]any{row}, nil
}
