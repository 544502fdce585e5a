package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/valyala/fastjson"

	"github.com/shapestore/shapestore/engine"
	"github.com/shapestore/shapestore/mediacat"
	"github.com/shapestore/shapestore/metaindex"
	"github.com/shapestore/shapestore/storage"
)

// ExtractFunc is the black-box document text extractor.
type ExtractFunc func(b []byte) (text string, properties map[string]string, err error)

// Options is the pipeline's configuration surface.
type Options struct {
	Policy        engine.Policy
	Media         mediacat.Config
	ApplyAttempts int
	ApplyBackoff  time.Duration
}

func DefaultOptions() Options {
	return Options{
		Policy:        engine.DefaultPolicy(),
		Media:         mediacat.DefaultConfig(),
		ApplyAttempts: 3,
		ApplyBackoff:  50 * time.Millisecond,
	}
}

// Deps are the capabilities the pipeline consumes. Classify and Extract
// may be nil; both degrade to their documented fallbacks.
type Deps struct {
	Relational  storage.RelationalBackend
	Document    storage.DocumentBackend
	Persistence metaindex.Persistence
	Registry    *engine.Registry
	Classify    mediacat.ClassifyFunc
	Extract     ExtractFunc
}

// Pipeline wires the decision core to the storage adapters and the
// metadata index. Each upload runs the pipeline independently; the only
// serialized step is id assignment inside the persistence layer.
type Pipeline struct {
	opts     Options
	engine   *engine.Engine
	indexer  *metaindex.Indexer
	rel      storage.RelationalBackend
	doc      storage.DocumentBackend
	resolver *mediacat.Resolver
	classify mediacat.ClassifyFunc
	extract  ExtractFunc

	mu        sync.RWMutex
	decisions map[string]*engine.Decision
}

func New(opts Options, deps Deps) *Pipeline {
	if opts.ApplyAttempts <= 0 {
		opts.ApplyAttempts = 3
	}
	if opts.ApplyBackoff <= 0 {
		opts.ApplyBackoff = 50 * time.Millisecond
	}
	return &Pipeline{
		opts:      opts,
		engine:    engine.New(opts.Policy, deps.Registry),
		indexer:   metaindex.NewIndexer(deps.Persistence),
		rel:       deps.Relational,
		doc:       deps.Document,
		resolver:  mediacat.NewResolver(opts.Media),
		classify:  deps.Classify,
		extract:   deps.Extract,
		decisions: make(map[string]*engine.Decision),
	}
}

// AnalyzeAndDecide runs the structure analyzer and the threshold policy.
// Deterministic: same records in the same order yield the same decision.
func (p *Pipeline) AnalyzeAndDecide(records []*fastjson.Value) (*engine.Decision, error) {
	return p.engine.Decide(records)
}

// ApplySchema delegates to the adapter for the decided backend,
// retrying apply failures with doubling backoff. No lock is held while
// waiting.
func (p *Pipeline) ApplySchema(ctx context.Context, d *engine.Decision) (storage.Location, error) {
	var loc storage.Location
	var err error

	backoff := p.opts.ApplyBackoff
	for attempt := 1; attempt <= p.opts.ApplyAttempts; attempt++ {
		if d.StorageType == engine.StorageSQL {
			loc, err = p.rel.Apply(ctx, d.Relational)
		} else {
			loc, err = p.doc.Apply(ctx, d.Document)
		}
		if err == nil {
			p.mu.Lock()
			p.decisions[d.SchemaName] = d
			p.mu.Unlock()
			return loc, nil
		}
		if attempt < p.opts.ApplyAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return storage.Location{}, ctx.Err()
			}
			backoff *= 2
		}
	}

	var ae *storage.BackendApplyError
	if errors.As(err, &ae) {
		ae.Attempts = p.opts.ApplyAttempts
		return storage.Location{}, ae
	}
	return storage.Location{}, err
}

// Decision returns a previously applied decision by schema name.
func (p *Pipeline) Decision(name string) (*engine.Decision, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, ok := p.decisions[name]
	return d, ok
}

// ResolveMediaCategory runs the classifier-first, filename-fallback
// chain.
func (p *Pipeline) ResolveMediaCategory(b []byte, filename string) string {
	return p.resolver.Resolve(b, filename, p.classify)
}

// RecordIngestion appends an index entry and returns its id.
func (p *Pipeline) RecordIngestion(ctx context.Context, e metaindex.Entry) (int64, error) {
	return p.indexer.Record(ctx, e)
}

func (p *Pipeline) Search(ctx context.Context, f metaindex.Filter) ([]metaindex.Entry, error) {
	return p.indexer.Search(ctx, f)
}

func (p *Pipeline) Stats(ctx context.Context) (metaindex.Stats, error) {
	return p.indexer.Stats(ctx)
}

// UnsupportedTypeError reports an upload whose content type none of the
// processors accepts.
type UnsupportedTypeError struct {
	ContentType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("ingest: unsupported file type %q", e.ContentType)
}
