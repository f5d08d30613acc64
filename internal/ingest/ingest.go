// Package ingest parses course documents into catalog records and
// embeddable content chunks.
//
// A course document is a plain text file with a three-line header followed
// by lesson sections:
//
//	Course Title: Building Towards Computer Use
//	Course Link: https://example.com/course
//	Course Instructor: Colt Steele
//
//	Lesson 0: Introduction
//	Lesson Link: https://example.com/lesson-0
//	<lesson text...>
//
//	Lesson 1: ...
//
// Text is chunked sentence by sentence with character overlap between
// consecutive chunks, and each chunk is prefixed with its course and lesson
// so an embedded chunk stays attributable without its neighbors.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/lectern/lectern/internal/store"
)

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

var lessonHeaderRE = regexp.MustCompile(`^Lesson (\d+):\s*(.+)$`)

// Processor parses course documents and chunks their text.
type Processor struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewProcessor creates a Processor with default chunking parameters.
func NewProcessor() *Processor {
	return &Processor{ChunkSize: DefaultChunkSize, ChunkOverlap: DefaultChunkOverlap}
}

// ParseFile reads and parses one course document.
func (p *Processor) ParseFile(path string) (store.Course, []store.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return store.Course{}, nil, fmt.Errorf("open course document: %w", err)
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse parses a course document from r. It returns the course metadata and
// the prefixed content chunks in document order.
func (p *Processor) Parse(r io.Reader) (store.Course, []store.Chunk, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	course, pending, hasPending, err := parseHeader(scanner)
	if err != nil {
		return store.Course{}, nil, err
	}

	type section struct {
		lessonNumber *int
		text         strings.Builder
	}

	// The opening section before any lesson marker has no lesson number.
	sections := []*section{{}}
	current := sections[0]

	consume := func(line string) {
		if m := lessonHeaderRE.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			number, _ := strconv.Atoi(m[1])
			lesson := store.Lesson{Number: number, Title: strings.TrimSpace(m[2])}

			current = &section{lessonNumber: &lesson.Number}
			sections = append(sections, current)
			course.Lessons = append(course.Lessons, lesson)
			return
		}

		if link, ok := strings.CutPrefix(strings.TrimSpace(line), "Lesson Link:"); ok && len(course.Lessons) > 0 {
			course.Lessons[len(course.Lessons)-1].Link = strings.TrimSpace(link)
			return
		}

		current.text.WriteString(line)
		current.text.WriteString("\n")
	}

	if hasPending {
		consume(pending)
	}
	for scanner.Scan() {
		consume(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return store.Course{}, nil, fmt.Errorf("read course document: %w", err)
	}

	var chunks []store.Chunk
	index := 0
	for _, sec := range sections {
		text := strings.TrimSpace(sec.text.String())
		if text == "" {
			continue
		}
		for _, chunk := range p.chunkText(text) {
			chunks = append(chunks, store.Chunk{
				Content:      prefixChunk(course.Title, sec.lessonNumber, chunk),
				CourseTitle:  course.Title,
				LessonNumber: sec.lessonNumber,
				Index:        index,
			})
			index++
		}
	}

	return course, chunks, nil
}

// parseHeader consumes the leading metadata lines. Course Title is
// mandatory; Link and Instructor are optional and may appear in any order.
// The header ends at the first line that is neither blank nor a recognized
// metadata header; that line is returned unconsumed so the caller can treat
// it as body text.
func parseHeader(scanner *bufio.Scanner) (store.Course, string, bool, error) {
	var course store.Course
	for scanner.Scan() {
		raw := scanner.Text()
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
		case strings.HasPrefix(line, "Course Title:"):
			course.Title = strings.TrimSpace(strings.TrimPrefix(line, "Course Title:"))
		case strings.HasPrefix(line, "Course Link:"):
			course.Link = strings.TrimSpace(strings.TrimPrefix(line, "Course Link:"))
		case strings.HasPrefix(line, "Course Instructor:"):
			course.Instructor = strings.TrimSpace(strings.TrimPrefix(line, "Course Instructor:"))
		default:
			if course.Title == "" {
				return store.Course{}, "", false, fmt.Errorf("course document has no 'Course Title:' header")
			}
			return course, raw, true, nil
		}
	}
	if course.Title == "" {
		return store.Course{}, "", false, fmt.Errorf("course document has no 'Course Title:' header")
	}
	return course, "", false, nil
}

func prefixChunk(courseTitle string, lessonNumber *int, chunk string) string {
	if lessonNumber != nil {
		return fmt.Sprintf("Course %s Lesson %d content: %s", courseTitle, *lessonNumber, chunk)
	}
	return fmt.Sprintf("Course %s content: %s", courseTitle, chunk)
}

// chunkText splits text into chunks of at most ChunkSize characters on
// sentence boundaries, carrying roughly ChunkOverlap characters of trailing
// sentences into the next chunk. A single sentence longer than ChunkSize
// becomes its own oversized chunk rather than being split mid-sentence.
func (p *Processor) chunkText(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentLen := 0
	fresh := 0 // sentences appended since the last flush

	flush := func() {
		chunks = append(chunks, strings.Join(current, " "))

		// Seed the next chunk with trailing sentences up to the overlap.
		var carried []string
		carriedLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			if carriedLen+len(current[i]) > p.ChunkOverlap {
				break
			}
			carriedLen += len(current[i]) + 1
			carried = append([]string{current[i]}, carried...)
		}
		current = carried
		currentLen = carriedLen
		fresh = 0
	}

	for _, sentence := range sentences {
		if fresh > 0 && currentLen+len(sentence) > p.ChunkSize {
			flush()
		}
		current = append(current, sentence)
		currentLen += len(sentence) + 1
		fresh++
	}
	if fresh > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}

// splitSentences breaks text on sentence-final punctuation followed by
// whitespace. Whitespace runs inside a sentence collapse to single spaces.
func splitSentences(text string) []string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return nil
	}

	var sentences []string
	start := 0
	for i := 0; i < len(normalized); i++ {
		c := normalized[i]
		if (c == '.' || c == '!' || c == '?') &&
			(i+1 == len(normalized) || normalized[i+1] == ' ') {
			sentence := strings.TrimSpace(normalized[start : i+1])
			if sentence != "" {
				sentences = append(sentences, sentence)
			}
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(normalized[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
