package chunker

import (
	"errors"
	"fmt"
	"strings"
)

// Strategy names, selected by configuration.
const (
	StrategyFixed    = "fixed"
	StrategySentence = "sentence"
)

var ErrConfig = errors.New("invalid chunker config")

// SentenceSplitter turns text into an ordered sequence of sentence-like
// units. It is an opaque dependency: any splitter that returns units in
// document order works.
type SentenceSplitter func(text string) []string

type Config struct {
	Strategy string // "fixed" (default) or "sentence"

	// Fixed-width strategy: window of ChunkSize characters advancing by
	// ChunkSize-Overlap each step.
	ChunkSize int
	Overlap   int

	// Sentence strategy: groups of SentencesPerChunk units with
	// SentenceOverlap units shared between consecutive chunks.
	SentencesPerChunk int
	SentenceOverlap   int
}

func DefaultConfig() Config {
	return Config{
		Strategy:          StrategyFixed,
		ChunkSize:         800,
		Overlap:           150,
		SentencesPerChunk: 5,
		SentenceOverlap:   1,
	}
}

type Chunker struct {
	cfg   Config
	split SentenceSplitter
}

// New validates cfg eagerly so that a misconfigured chunker is a startup
// failure, never a per-request one. An overlap >= chunk size would stop the
// window from ever advancing.
func New(cfg Config, split SentenceSplitter) (*Chunker, error) {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyFixed
	}
	if cfg.Strategy != StrategyFixed && cfg.Strategy != StrategySentence {
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrConfig, cfg.Strategy)
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrConfig, cfg.ChunkSize)
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, chunk size %d)", ErrConfig, cfg.Overlap, cfg.ChunkSize)
	}
	if cfg.Strategy == StrategySentence {
		if cfg.SentencesPerChunk <= 0 {
			return nil, fmt.Errorf("%w: sentences per chunk must be positive, got %d", ErrConfig, cfg.SentencesPerChunk)
		}
		if cfg.SentenceOverlap < 0 || cfg.SentenceOverlap >= cfg.SentencesPerChunk {
			return nil, fmt.Errorf("%w: sentence overlap %d must be in [0, sentences per chunk %d)", ErrConfig, cfg.SentenceOverlap, cfg.SentencesPerChunk)
		}
	}
	return &Chunker{cfg: cfg, split: split}, nil
}

// Chunk splits text into ordered, non-empty chunks. Empty or whitespace-only
// input yields zero chunks; text shorter than one window yields exactly one.
func (c *Chunker) Chunk(text string) []string {
	text = normalizeNewlines(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if c.cfg.Strategy == StrategySentence {
		if chunks := c.chunkBySentence(text); chunks != nil {
			return chunks
		}
		// No usable sentence boundaries; fall through to fixed windows.
	}
	return c.chunkFixed(text)
}

func (c *Chunker) chunkFixed(text string) []string {
	runes := []rune(text)
	step := c.cfg.ChunkSize - c.cfg.Overlap

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + c.cfg.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if w := strings.TrimSpace(string(runes[start:end])); w != "" {
			chunks = append(chunks, w)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// chunkBySentence groups sentence units into overlapping windows. Returns nil
// when the splitter is unavailable or finds at most one unit, signalling the
// caller to use the fixed-width strategy instead.
func (c *Chunker) chunkBySentence(text string) []string {
	if c.split == nil {
		return nil
	}

	var units []string
	for _, s := range c.split(text) {
		if s = strings.TrimSpace(s); s != "" {
			units = append(units, s)
		}
	}
	if len(units) <= 1 {
		return nil
	}

	step := c.cfg.SentencesPerChunk - c.cfg.SentenceOverlap
	var chunks []string
	for i := 0; i < len(units); i += step {
		end := i + c.cfg.SentencesPerChunk
		if end > len(units) {
			end = len(units)
		}
		chunks = append(chunks, strings.Join(units[i:end], " "))
		if end == len(units) {
			break
		}
	}
	return chunks
}

// normalizeNewlines maps all line-ending variants to "\n" so window offsets
// are stable across platforms.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
