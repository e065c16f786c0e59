package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ConfigError indicates invalid chunking parameters. It is fatal at
// configuration time: callers must fix the config, retrying cannot help.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid chunker config: %s: %s", e.Field, e.Msg)
}

// Config controls how text is split. Defaults match the common
// 1000/200 character splitter settings used for embedding-sized chunks.
type Config struct {
	ChunkSize int    // maximum chunk length in bytes, must be > 0
	Overlap   int    // trailing bytes of each chunk carried into the next, 0 <= Overlap < ChunkSize
	Separator string // unit boundary, e.g. "\n"
}

// Chunk is a contiguous span of the source text. Start/End are byte
// offsets into the original text, so Text == source[Start:End] always holds.
type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
}

// Splitter packs separator-delimited units into overlapping chunks.
type Splitter struct {
	cfg Config
}

func New(cfg Config) (*Splitter, error) {
	if cfg.ChunkSize <= 0 {
		return nil, &ConfigError{Field: "ChunkSize", Msg: "must be positive"}
	}
	if cfg.Overlap < 0 {
		return nil, &ConfigError{Field: "Overlap", Msg: "must not be negative"}
	}
	if cfg.Overlap >= cfg.ChunkSize {
		return nil, &ConfigError{Field: "Overlap", Msg: fmt.Sprintf("must be smaller than ChunkSize (%d >= %d)", cfg.Overlap, cfg.ChunkSize)}
	}
	return &Splitter{cfg: cfg}, nil
}

// Split produces an ordered sequence of chunks covering text with no gaps.
// Units are greedily packed up to ChunkSize; the trailing Overlap bytes of
// each chunk become the start of the next. A single unit longer than
// ChunkSize is emitted as its own oversized chunk rather than failing.
func (s *Splitter) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	units := unitOffsets(text, s.cfg.Separator)
	var chunks []Chunk

	start := 0
	i := 0
	for i < len(units) {
		end := start
		for i < len(units) {
			next := units[i]
			if next-start > s.cfg.ChunkSize && end > start {
				break // unit would overflow a non-empty chunk
			}
			end = next
			i++
			if end-start >= s.cfg.ChunkSize {
				break
			}
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  text[start:end],
			Start: start,
			End:   end,
		})
		if i >= len(units) {
			break
		}
		start = end - s.cfg.Overlap
		if start < 0 {
			start = 0
		}
		// Unit boundaries are rune-aligned but the overlap offset is not:
		// back up so a chunk never begins inside a multi-byte rune.
		for start > 0 && !utf8.RuneStart(text[start]) {
			start--
		}
	}

	return chunks
}

// Config returns the splitter configuration.
func (s *Splitter) Config() Config {
	return s.cfg
}

// unitOffsets returns the end offset of every unit. Units keep their
// trailing separator so that concatenating units reproduces the text.
func unitOffsets(text, sep string) []int {
	if sep == "" {
		return []int{len(text)}
	}
	var ends []int
	pos := 0
	for {
		idx := strings.Index(text[pos:], sep)
		if idx < 0 {
			break
		}
		pos += idx + len(sep)
		ends = append(ends, pos)
	}
	if pos < len(text) {
		ends = append(ends, len(text))
	}
	if len(ends) == 0 {
		ends = []int{len(text)}
	}
	return ends
}
