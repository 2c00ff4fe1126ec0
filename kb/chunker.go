package kb

import (
	"path/filepath"
	"strings"
)

// Chunk is one indexed slice of a document. Line numbers are 1-based and
// inclusive.
type Chunk struct {
	Content   string
	StartLine int
	EndLine   int
}

// chunkFile picks a splitting strategy by file type: markdown splits at
// headings, source code at blank lines, everything else into fixed windows.
func chunkFile(path, content string, opts IndexOptions) []Chunk {
	switch strings.TrimPrefix(filepath.Ext(path), ".") {
	case "md", "markdown":
		return chunkMarkdown(content, opts.ChunkSize)
	case "go", "py", "rs", "js", "ts", "jsx", "tsx", "java", "c", "cpp", "h", "hpp", "strand":
		return chunkCode(content, opts.ChunkSize)
	default:
		return chunkFixed(content, opts.ChunkSize, opts.ChunkOverlap)
	}
}

func chunkMarkdown(content string, maxSize int) []Chunk {
	lines := splitLines(content)
	if len(lines) == 0 {
		return nil
	}

	var chunks []Chunk
	var current []string
	currentStart := 1
	currentSize := 0

	flush := func(endLine int) {
		text := strings.Join(current, "\n")
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, Chunk{Content: text, StartLine: currentStart, EndLine: endLine})
		}
		current = current[:0]
		currentSize = 0
	}

	for i, line := range lines {
		lineNum := i + 1
		isHeader := strings.HasPrefix(line, "#")

		if len(current) > 0 && (isHeader || currentSize+len(line) > maxSize) {
			flush(lineNum - 1)
			currentStart = lineNum
		}
		current = append(current, line)
		currentSize += len(line) + 1
	}
	if len(current) > 0 {
		flush(len(lines))
	}
	return chunks
}

func chunkCode(content string, maxSize int) []Chunk {
	lines := splitLines(content)
	if len(lines) == 0 {
		return nil
	}

	var chunks []Chunk
	var current []string
	currentStart := 1
	currentSize := 0

	flush := func(endLine int) {
		text := strings.Join(current, "\n")
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, Chunk{Content: text, StartLine: currentStart, EndLine: endLine})
		}
		current = current[:0]
		currentSize = 0
	}

	for i, line := range lines {
		lineNum := i + 1
		isBlank := strings.TrimSpace(line) == ""

		// Prefer splitting at blank lines once a chunk has grown enough.
		if len(current) > 0 && isBlank && currentSize > maxSize/2 {
			flush(lineNum - 1)
			currentStart = lineNum + 1
			continue
		}

		// Hard split when far past the limit with no blank line in sight.
		if len(current) > 0 && currentSize+len(line) > maxSize*2 {
			flush(lineNum - 1)
			currentStart = lineNum
		}

		current = append(current, line)
		currentSize += len(line) + 1
	}
	if len(current) > 0 {
		flush(len(lines))
	}
	return chunks
}

func chunkFixed(content string, linesPerChunk, overlap int) []Chunk {
	lines := splitLines(content)
	if len(lines) == 0 {
		return nil
	}

	if linesPerChunk < 1 {
		linesPerChunk = 1
	}
	if overlap >= linesPerChunk {
		overlap = linesPerChunk - 1
	}

	var chunks []Chunk
	step := linesPerChunk - overlap
	if step < 1 {
		step = 1
	}
	for i := 0; i < len(lines); i += step {
		end := i + linesPerChunk
		if end > len(lines) {
			end = len(lines)
		}
		text := strings.Join(lines[i:end], "\n")
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, Chunk{Content: text, StartLine: i + 1, EndLine: end})
		}
		if end == len(lines) {
			break
		}
	}
	return chunks
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(strings.ReplaceAll(content, "\r\n", "\n"), "\n"), "\n")
}
