package enhance

import (
	"regexp"
	"strings"

	"github.com/kilupskalvis/kbsync/internal/config"
	"github.com/kilupskalvis/kbsync/internal/models"
)

// Chunk is one unit of content bound for the vector store, carrying the
// metadata that will be merged with the document's enhancement output.
type Chunk struct {
	Content  string
	Metadata models.Metadata
}

var reParagraphSplit = regexp.MustCompile(`\n\s*\n`)

// SemanticChunker splits document content on paragraph boundaries, merges
// paragraphs until chunks fall within [MinSize, MaxSize], and carries a
// character overlap between consecutive chunks.
type SemanticChunker struct {
	cfg config.ChunkingConfig
}

// NewSemanticChunker creates a chunker with the given configuration.
func NewSemanticChunker(cfg config.ChunkingConfig) *SemanticChunker {
	return &SemanticChunker{cfg: cfg}
}

// Chunk splits content. Every produced chunk satisfies
// len <= MaxSize, except table chunks when PreserveTables is set; the
// final chunk may be shorter than MinSize.
func (c *SemanticChunker) Chunk(content string) []Chunk {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	if c.cfg.Method == "fixed" {
		return c.annotate(c.fixedSplit(content))
	}

	paragraphs := splitParagraphs(content)

	var parts []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}

	for _, para := range paragraphs {
		isTable := looksLikeTable(para)

		if len(para) > c.cfg.MaxSize {
			if current.Len() > 0 && current.Len() < c.cfg.MinSize {
				// A short accumulator must not flush mid-document;
				// merge it into the oversized paragraph instead.
				para = current.String() + "\n\n" + para
				current.Reset()
			} else {
				flush()
			}
			if isTable && c.cfg.PreserveTables {
				// Never split mid-table: the oversized chunk is accepted
				// as-is rather than violating table integrity.
				parts = append(parts, para)
			} else {
				parts = c.forceSplit(para, parts, &current)
			}
			continue
		}

		joined := current.Len() + len(para)
		if current.Len() > 0 {
			joined += 2 // separator
		}

		if joined > c.cfg.MaxSize {
			if current.Len() >= c.cfg.MinSize {
				flush()
			} else {
				// Flushing now would emit a short mid-document chunk;
				// merge and hard-cut the combined text instead.
				current.WriteString("\n\n")
				current.WriteString(para)
				text := current.String()
				current.Reset()
				parts = c.forceSplit(text, parts, &current)
				continue
			}
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		} else if overlap := c.overlapTail(parts); overlap != "" && len(overlap)+len(para)+2 <= c.cfg.MaxSize {
			// Carry context from the end of the previous chunk.
			current.WriteString(overlap)
			current.WriteString("\n\n")
		}
		current.WriteString(para)

		if current.Len() >= c.cfg.MinSize {
			flush()
		}
	}
	flush()

	return c.annotate(parts)
}

// forceSplit hard-cuts oversized text and appends the pieces. A short
// final piece is held back in the accumulator so it can merge with
// whatever follows instead of landing as a short mid-document chunk.
func (c *SemanticChunker) forceSplit(text string, parts []string, current *strings.Builder) []string {
	pieces := c.fixedSplit(text)
	last := len(pieces) - 1
	parts = append(parts, pieces[:last]...)
	if len(pieces[last]) < c.cfg.MinSize {
		current.WriteString(pieces[last])
	} else {
		parts = append(parts, pieces[last])
	}
	return parts
}

// overlapTail returns the configured overlap from the end of the last
// emitted chunk, snapped back to a word boundary.
func (c *SemanticChunker) overlapTail(parts []string) string {
	if c.cfg.Overlap <= 0 || len(parts) == 0 {
		return ""
	}
	prev := parts[len(parts)-1]
	runes := []rune(prev)
	if len(runes) <= c.cfg.Overlap {
		return prev
	}
	tail := string(runes[len(runes)-c.cfg.Overlap:])
	if idx := strings.IndexAny(tail, " \n\t"); idx >= 0 && idx < len(tail)-1 {
		tail = tail[idx+1:]
	}
	return tail
}

// fixedSplit is the fallback for oversized paragraphs: hard cuts at
// MaxSize so the size invariant holds. Cuts land on rune boundaries so
// multi-byte text never produces invalid UTF-8 chunks.
func (c *SemanticChunker) fixedSplit(text string) []string {
	runes := []rune(text)
	step := c.cfg.MaxSize - c.cfg.Overlap
	if step <= 0 {
		step = c.cfg.MaxSize
	}

	var parts []string
	for start := 0; start < len(runes); start += step {
		end := start + c.cfg.MaxSize
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return parts
}

// annotate attaches per-chunk positional metadata.
func (c *SemanticChunker) annotate(parts []string) []Chunk {
	chunks := make([]Chunk, 0, len(parts))
	for i, part := range parts {
		md := models.Metadata{
			models.MetaKeyChunkIndex: models.Number(float64(i)),
			models.MetaKeyChunkTotal: models.Number(float64(len(parts))),
		}
		if looksLikeTable(part) {
			md[models.MetaKeyHasTable] = models.Boolean(true)
		}
		chunks = append(chunks, Chunk{Content: part, Metadata: md})
	}
	return chunks
}

func splitParagraphs(content string) []string {
	raw := reParagraphSplit.Split(content, -1)
	paragraphs := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// looksLikeTable reports whether text appears to contain a table: at
// least two lines with pipe or multi-tab separators.
func looksLikeTable(text string) bool {
	tabular := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.Count(line, "|") >= 2 || strings.Count(line, "\t") >= 2 {
			tabular++
			if tabular >= 2 {
				return true
			}
		}
	}
	return false
}
