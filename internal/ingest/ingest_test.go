package ingest

import (
	"strings"
	"testing"
)

const sampleDoc = `Course Title: Introduction to Testing
Course Link: https://example.com/testing-course
Course Instructor: Ada Lovelace

Lesson 0: Welcome
Lesson Link: https://example.com/testing-course/lesson-0
Welcome to the course. This lesson explains what testing is.

Lesson 1: Fixtures
Lesson Link: https://example.com/testing-course/lesson-1
Fixtures set up shared state before each test. They keep tests independent.
`

func TestParseCourseMetadata(t *testing.T) {
	course, _, err := NewProcessor().Parse(strings.NewReader(sampleDoc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if course.Title != "Introduction to Testing" {
		t.Errorf("Title = %q", course.Title)
	}
	if course.Link != "https://example.com/testing-course" {
		t.Errorf("Link = %q", course.Link)
	}
	if course.Instructor != "Ada Lovelace" {
		t.Errorf("Instructor = %q", course.Instructor)
	}

	if len(course.Lessons) != 2 {
		t.Fatalf("got %d lessons, want 2", len(course.Lessons))
	}
	if course.Lessons[0].Number != 0 || course.Lessons[0].Title != "Welcome" {
		t.Errorf("lesson 0 = %+v", course.Lessons[0])
	}
	if course.Lessons[1].Link != "https://example.com/testing-course/lesson-1" {
		t.Errorf("lesson 1 link = %q", course.Lessons[1].Link)
	}
}

func TestParseChunks(t *testing.T) {
	_, chunks, err := NewProcessor().Parse(strings.NewReader(sampleDoc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}

	if !strings.HasPrefix(chunks[0].Content, "Course Introduction to Testing Lesson 0 content: ") {
		t.Errorf("chunk 0 prefix wrong: %q", chunks[0].Content)
	}
	if chunks[0].LessonNumber == nil || *chunks[0].LessonNumber != 0 {
		t.Errorf("chunk 0 lesson = %v", chunks[0].LessonNumber)
	}
	if chunks[1].LessonNumber == nil || *chunks[1].LessonNumber != 1 {
		t.Errorf("chunk 1 lesson = %v", chunks[1].LessonNumber)
	}

	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.CourseTitle != "Introduction to Testing" {
			t.Errorf("chunk %d course = %q", i, c.CourseTitle)
		}
	}
}

func TestParsePreLessonText(t *testing.T) {
	doc := `Course Title: Preface Course

This text precedes any lesson marker. It still gets chunked.

Lesson 1: Start
Lesson content here.
`
	_, chunks, err := NewProcessor().Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].LessonNumber != nil {
		t.Errorf("pre-lesson chunk has lesson %d", *chunks[0].LessonNumber)
	}
	if !strings.HasPrefix(chunks[0].Content, "Course Preface Course content: ") {
		t.Errorf("pre-lesson chunk prefix wrong: %q", chunks[0].Content)
	}
}

// TestParseLessonImmediatelyAfterTitle covers a header shorter than the
// usual three lines: the first lesson marker must end the header region, not
// be swallowed by it.
func TestParseLessonImmediatelyAfterTitle(t *testing.T) {
	doc := `Course Title: Compact Course
Lesson 1: Only Lesson
Lesson body text.
`
	course, chunks, err := NewProcessor().Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(course.Lessons) != 1 || course.Lessons[0].Number != 1 || course.Lessons[0].Title != "Only Lesson" {
		t.Fatalf("lessons = %+v, want the one lesson on line 2", course.Lessons)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].LessonNumber == nil || *chunks[0].LessonNumber != 1 {
		t.Errorf("chunk lesson = %v, want 1", chunks[0].LessonNumber)
	}
	if !strings.Contains(chunks[0].Content, "Lesson body text.") {
		t.Errorf("chunk lost the body: %q", chunks[0].Content)
	}
}

func TestParseMissingTitle(t *testing.T) {
	doc := "Some file\nwithout a header\n"
	if _, _, err := NewProcessor().Parse(strings.NewReader(doc)); err == nil {
		t.Error("Parse() without Course Title succeeded, want error")
	}
}

func TestChunkTextRespectsSize(t *testing.T) {
	p := &Processor{ChunkSize: 60, ChunkOverlap: 15}

	text := "First sentence here. Second sentence follows it. Third one is next. Fourth closes the set."
	chunks := p.chunkText(text)

	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	for i, c := range chunks {
		// A chunk may exceed the cap only when a single sentence does.
		if len(c) > p.ChunkSize && strings.Count(c, ". ") > 0 {
			t.Errorf("chunk %d exceeds size with multiple sentences: %q", i, c)
		}
	}
}

func TestChunkTextOverlap(t *testing.T) {
	p := &Processor{ChunkSize: 35, ChunkOverlap: 20}

	text := "Alpha is first. Bravo is second. Charlie is third."
	chunks := p.chunkText(text)

	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2: %v", len(chunks), chunks)
	}
	// The second chunk must start with carried-over text from the first.
	found := false
	for _, sentence := range splitSentences(chunks[0]) {
		if strings.HasPrefix(chunks[1], sentence) {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("no overlap between %q and %q", chunks[0], chunks[1])
	}
}

func TestChunkTextSingleLongSentence(t *testing.T) {
	p := &Processor{ChunkSize: 20, ChunkOverlap: 5}

	text := "This single sentence is far longer than the chunk size allows."
	chunks := p.chunkText(text)

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1 oversized chunk", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("chunk = %q", chunks[0])
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{"No terminal punctuation", []string{"No terminal punctuation"}},
		{"Spaces   collapse.  Always.", []string{"Spaces collapse.", "Always."}},
		{"Version 2.5 stays whole. Next.", []string{"Version 2.5 stays whole.", "Next."}},
		{"", nil},
	}

	for _, tt := range tests {
		got := splitSentences(tt.text)
		if len(got) != len(tt.want) {
			t.Errorf("splitSentences(%q) = %v, want %v", tt.text, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitSentences(%q)[%d] = %q, want %q", tt.text, i, got[i], tt.want[i])
			}
		}
	}
}
