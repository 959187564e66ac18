// Package postgres 问答系统的 PostgreSQL 存储。
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"careqa/internal/domain/qa"
)

// Store 文档与问答记录的 PostgreSQL 存储，
// 实现 qa.DocumentStore 与 qa.AnswerStore。
type Store struct {
	db *sql.DB
}

// NewStore 创建 PostgreSQL 存储
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open 打开数据库连接并验证连通性
func Open(ctx context.Context, url string, maxOpen, maxIdle int, connMaxLifetime time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureTables 确保业务表存在
func (s *Store) EnsureTables(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS documents (
		id         BIGSERIAL PRIMARY KEY,
		title      VARCHAR(255) NOT NULL,
		content    TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_documents_title ON documents(title);

	CREATE TABLE IF NOT EXISTS question_answers (
		id         BIGSERIAL PRIMARY KEY,
		question   TEXT NOT NULL,
		answer     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// ── qa.DocumentStore ─────────────────────────────────────────

// InsertDocument 写入文档并返回带数据库分配 ID 的完整记录
func (s *Store) InsertDocument(ctx context.Context, title, content string) (*qa.Document, error) {
	doc := &qa.Document{Title: title, Content: content}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO documents (title, content) VALUES ($1, $2) RETURNING id, created_at`,
		title, content,
	).Scan(&doc.ID, &doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

// GetDocument 按 ID 查询文档，不存在时返回 (nil, nil)
func (s *Store) GetDocument(ctx context.Context, id int64) (*qa.Document, error) {
	doc := &qa.Document{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, content, created_at FROM documents WHERE id = $1`,
		id,
	).Scan(&doc.ID, &doc.Title, &doc.Content, &doc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document %d: %w", id, err)
	}
	return doc, nil
}

// GetDocumentByTitle 按标题查询文档，不存在时返回 (nil, nil)
func (s *Store) GetDocumentByTitle(ctx context.Context, title string) (*qa.Document, error) {
	doc := &qa.Document{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, content, created_at FROM documents WHERE title = $1 LIMIT 1`,
		title,
	).Scan(&doc.ID, &doc.Title, &doc.Content, &doc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document by title: %w", err)
	}
	return doc, nil
}

// ListDocuments 返回全部文档，按 ID 升序
func (s *Store) ListDocuments(ctx context.Context) ([]qa.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, created_at FROM documents ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []qa.Document
	for rows.Next() {
		var doc qa.Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ── qa.AnswerStore ───────────────────────────────────────────

// InsertAnswer 写入问答记录并返回带数据库分配 ID 的完整记录
func (s *Store) InsertAnswer(ctx context.Context, question, answer string) (*qa.QuestionAnswer, error) {
	pair := &qa.QuestionAnswer{Question: question, Answer: answer}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO question_answers (question, answer) VALUES ($1, $2) RETURNING id, created_at`,
		question, answer,
	).Scan(&pair.ID, &pair.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert answer: %w", err)
	}
	return pair, nil
}

// GetAnswer 按 ID 查询问答记录，不存在时返回 (nil, nil)
func (s *Store) GetAnswer(ctx context.Context, id int64) (*qa.QuestionAnswer, error) {
	pair := &qa.QuestionAnswer{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, question, answer, created_at FROM question_answers WHERE id = $1`,
		id,
	).Scan(&pair.ID, &pair.Question, &pair.Answer, &pair.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get answer %d: %w", id, err)
	}
	return pair, nil
}

// ListAnswers 返回全部问答记录，按 ID 升序
func (s *Store) ListAnswers(ctx context.Context) ([]qa.QuestionAnswer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer, created_at FROM question_answers ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var pairs []qa.QuestionAnswer
	for rows.Next() {
		var pair qa.QuestionAnswer
		if err := rows.Scan(&pair.ID, &pair.Question, &pair.Answer, &pair.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		pairs = append(pairs, pair)
	}
	return pairs, rows.Err()
}
