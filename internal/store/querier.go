package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresQuerier implements Querier on a pgx connection pool. The pool must
// have pgvector types registered (see app.NewPool).
type PostgresQuerier struct {
	pool *pgxpool.Pool
}

// NewPostgresQuerier wraps a pgx pool.
func NewPostgresQuerier(pool *pgxpool.Pool) *PostgresQuerier {
	return &PostgresQuerier{pool: pool}
}

const upsertCourseSQL = `
INSERT INTO courses (title, link, instructor, lessons, embedding)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (title) DO UPDATE
SET link = EXCLUDED.link,
    instructor = EXCLUDED.instructor,
    lessons = EXCLUDED.lessons,
    embedding = EXCLUDED.embedding`

func (q *PostgresQuerier) UpsertCourse(ctx context.Context, row CourseRow) error {
	_, err := q.pool.Exec(ctx, upsertCourseSQL,
		row.Title, row.Link, row.Instructor, row.Lessons, row.Embedding)
	if err != nil {
		return fmt.Errorf("upsert course: %w", err)
	}
	return nil
}

const getCourseSQL = `
SELECT title, link, instructor, lessons
FROM courses
WHERE title = $1`

func (q *PostgresQuerier) GetCourse(ctx context.Context, title string) (CourseRow, error) {
	var row CourseRow
	err := q.pool.QueryRow(ctx, getCourseSQL, title).
		Scan(&row.Title, &row.Link, &row.Instructor, &row.Lessons)
	if errors.Is(err, pgx.ErrNoRows) {
		return CourseRow{}, ErrCourseNotFound
	}
	if err != nil {
		return CourseRow{}, fmt.Errorf("get course: %w", err)
	}
	return row, nil
}

const nearestCourseSQL = `
SELECT title, link, instructor, lessons
FROM courses
ORDER BY embedding <=> $1
LIMIT 1`

func (q *PostgresQuerier) NearestCourse(ctx context.Context, embedding pgvector.Vector) (CourseRow, error) {
	var row CourseRow
	err := q.pool.QueryRow(ctx, nearestCourseSQL, embedding).
		Scan(&row.Title, &row.Link, &row.Instructor, &row.Lessons)
	if errors.Is(err, pgx.ErrNoRows) {
		return CourseRow{}, ErrCourseNotFound
	}
	if err != nil {
		return CourseRow{}, fmt.Errorf("nearest course: %w", err)
	}
	return row, nil
}

const insertChunkSQL = `
INSERT INTO chunks (course_title, lesson_number, chunk_index, content, embedding)
VALUES ($1, $2, $3, $4, $5)`

func (q *PostgresQuerier) InsertChunk(ctx context.Context, row ChunkRow) error {
	_, err := q.pool.Exec(ctx, insertChunkSQL,
		row.CourseTitle, row.LessonNumber, row.ChunkIndex, row.Content, row.Embedding)
	if err != nil {
		return fmt.Errorf("insert chunk: %w", err)
	}
	return nil
}

const searchChunksSQL = `
SELECT content, course_title, lesson_number, chunk_index,
       embedding <=> $1 AS distance
FROM chunks
WHERE ($2::text IS NULL OR course_title = $2)
  AND ($3::int IS NULL OR lesson_number = $3)
ORDER BY distance
LIMIT $4`

func (q *PostgresQuerier) SearchChunks(ctx context.Context, params SearchChunksParams) ([]ChunkHitRow, error) {
	rows, err := q.pool.Query(ctx, searchChunksSQL,
		params.Embedding, params.CourseTitle, params.LessonNumber, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var hits []ChunkHitRow
	for rows.Next() {
		var hit ChunkHitRow
		if err := rows.Scan(&hit.Content, &hit.CourseTitle, &hit.LessonNumber,
			&hit.ChunkIndex, &hit.Distance); err != nil {
			return nil, fmt.Errorf("scan chunk hit: %w", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk hits: %w", err)
	}
	return hits, nil
}

const listCourseTitlesSQL = `
SELECT title FROM courses ORDER BY title`

func (q *PostgresQuerier) ListCourseTitles(ctx context.Context) ([]string, error) {
	rows, err := q.pool.Query(ctx, listCourseTitlesSQL)
	if err != nil {
		return nil, fmt.Errorf("list course titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan course title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course titles: %w", err)
	}
	return titles, nil
}

const countCoursesSQL = `
SELECT COUNT(*) FROM courses`

func (q *PostgresQuerier) CountCourses(ctx context.Context) (int64, error) {
	var n int64
	if err := q.pool.QueryRow(ctx, countCoursesSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return n, nil
}
