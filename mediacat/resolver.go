package mediacat

import "strings"

// Uncategorized is the terminal fallback category. It is part of the
// user-visible contract and must survive any refactor of the chain.
const Uncategorized = "uncategorized"

// ClassifyFunc is the black-box media classifier: raw label plus
// confidence, or an error when the model is unavailable or chokes on
// the bytes.
type ClassifyFunc func(b []byte) (label string, confidence float64, err error)

// Config is the resolver's tunable surface.
type Config struct {
	ConfidenceFloor float64
	Vocabulary      []string
	LabelCategories map[string]string
}

func DefaultConfig() Config {
	return Config{
		ConfidenceFloor: 0.35,
		Vocabulary: []string{
			"nature", "animals", "people", "architecture", "food",
			"vehicles", "technology", "art", "sports", "travel",
			"business", "medical", "education", "entertainment", "other",
		},
		LabelCategories: defaultLabelCategories(),
	}
}

// defaultLabelCategories folds common classifier labels (ImageNet-style
// synsets among them) onto the category vocabulary.
func defaultLabelCategories() map[string]string {
	return map[string]string{
		"tabby":            "animals",
		"tiger cat":        "animals",
		"golden retriever": "animals",
		"labrador":         "animals",
		"elephant":         "animals",
		"zebra":            "animals",
		"bird":             "animals",
		"mountain":         "nature",
		"valley":           "nature",
		"seashore":         "nature",
		"forest":           "nature",
		"lakeside":         "nature",
		"person":           "people",
		"portrait":         "people",
		"groom":            "people",
		"castle":           "architecture",
		"church":           "architecture",
		"skyscraper":       "architecture",
		"bridge":           "architecture",
		"pizza":            "food",
		"espresso":         "food",
		"plate":            "food",
		"bakery":           "food",
		"sports car":       "vehicles",
		"minivan":          "vehicles",
		"motorcycle":       "vehicles",
		"airliner":         "vehicles",
		"laptop":           "technology",
		"desktop computer": "technology",
		"cellular phone":   "technology",
		"monitor":          "technology",
		"easel":            "art",
		"paintbrush":       "art",
		"soccer ball":      "sports",
		"tennis racket":    "sports",
		"basketball":       "sports",
		"ski":              "sports",
		"backpack":         "travel",
		"passenger train":  "travel",
		"suit":             "business",
		"briefcase":        "business",
		"stethoscope":      "medical",
		"syringe":          "medical",
		"bookshelf":        "education",
		"notebook":         "education",
		"stage":            "entertainment",
		"microphone":       "entertainment",
	}
}

// strategy tries one way of naming a category. ok is false when the
// strategy has nothing to say and the chain should move on.
type strategy func(b []byte, filename string, classify ClassifyFunc) (category string, ok bool)

// Resolver runs the fixed chain: classifier first, filename keywords
// second, uncategorized terminal.
type Resolver struct {
	cfg   Config
	chain []strategy
}

func NewResolver(cfg Config) *Resolver {
	r := &Resolver{cfg: cfg}
	r.chain = []strategy{r.classifierStrategy, r.filenameStrategy}
	return r
}

// Resolve names a category for the given media bytes. classify may be
// nil when no model is wired in; the chain degrades the same way it
// does for a classifier error.
func (r *Resolver) Resolve(b []byte, filename string, classify ClassifyFunc) string {
	for _, s := range r.chain {
		if cat, ok := s(b, filename, classify); ok {
			return cat
		}
	}
	return Uncategorized
}

func (r *Resolver) classifierStrategy(b []byte, _ string, classify ClassifyFunc) (string, bool) {
	if classify == nil {
		return "", false
	}
	label, confidence, err := classify(b)
	if err != nil || confidence < r.cfg.ConfidenceFloor {
		return "", false
	}

	key := strings.ToLower(strings.TrimSpace(label))
	if cat, ok := r.cfg.LabelCategories[key]; ok {
		return cat, true
	}
	// the label itself may already be a vocabulary term
	for _, v := range r.cfg.Vocabulary {
		if key == v {
			return v, true
		}
	}
	return "", false
}

func (r *Resolver) filenameStrategy(_ []byte, filename string, _ ClassifyFunc) (string, bool) {
	name := strings.ToLower(filename)
	for _, v := range r.cfg.Vocabulary {
		if strings.Contains(name, v) {
			return v, true
		}
	}
	return "", false
}
