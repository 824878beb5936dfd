package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool the schema helpers need.
type Querier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS "UserProfile" (
		"externalId"          TEXT PRIMARY KEY,
		email                 TEXT NOT NULL DEFAULT '',
		name                  TEXT NOT NULL DEFAULT '',
		picture               TEXT NOT NULL DEFAULT '',
		"onboardingData"      JSONB,
		"personalizedPrompt"  TEXT,
		"onboardingCompleted" BOOLEAN NOT NULL DEFAULT FALSE,
		"createdAt"           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		"updatedAt"           TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS "ChatMessage" (
		id            TEXT PRIMARY KEY,
		"userId"      TEXT NOT NULL,
		agent         TEXT NOT NULL,
		"userMessage" TEXT NOT NULL,
		"aiResponse"  TEXT NOT NULL,
		category      TEXT NOT NULL,
		flagged       BOOLEAN NOT NULL DEFAULT FALSE,
		"createdAt"   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		seq           BIGSERIAL NOT NULL
	)`,
	// Tables created before seq existed pick it up here; it breaks createdAt ties.
	`ALTER TABLE "ChatMessage" ADD COLUMN IF NOT EXISTS seq BIGSERIAL NOT NULL`,
	`DROP INDEX IF EXISTS "ChatMessage_userId_agent_createdAt_idx"`,
	`CREATE INDEX IF NOT EXISTS "ChatMessage_userId_agent_createdAt_seq_idx"
		ON "ChatMessage" ("userId", agent, "createdAt" DESC, seq DESC)`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func EnsureSchema(ctx context.Context, q Querier) error {
	for _, stmt := range schemaStatements {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

type requiredColumn struct {
	table  string
	column string
}

var requiredColumns = []requiredColumn{
	{table: "UserProfile", column: "externalId"},
	{table: "UserProfile", column: "onboardingData"},
	{table: "UserProfile", column: "personalizedPrompt"},
	{table: "UserProfile", column: "onboardingCompleted"},
	{table: "ChatMessage", column: "userId"},
	{table: "ChatMessage", column: "agent"},
	{table: "ChatMessage", column: "category"},
	{table: "ChatMessage", column: "flagged"},
	{table: "ChatMessage", column: "seq"},
}

// ValidateSchema fails fast when a column the store relies on is missing.
func ValidateSchema(ctx context.Context, q Querier) error {
	if q == nil {
		return fmt.Errorf("database pool is nil")
	}
	for _, item := range requiredColumns {
		ok, err := columnExists(ctx, q, item.table, item.column)
		if err != nil {
			return fmt.Errorf("failed checking schema for %s.%s: %w", item.table, item.column, err)
		}
		if !ok {
			return fmt.Errorf("required column %s.%s is missing; start with AUTO_MIGRATE=true", item.table, item.column)
		}
	}
	return nil
}

func columnExists(ctx context.Context, q Querier, tableName, columnName string) (bool, error) {
	table := strings.TrimSpace(tableName)
	column := strings.TrimSpace(columnName)
	if table == "" || column == "" {
		return false, fmt.Errorf("table/column must not be empty")
	}
	var exists bool
	err := q.QueryRow(
		ctx,
		`SELECT EXISTS (
		   SELECT 1
		   FROM information_schema.columns
		   WHERE table_schema = current_schema()
		     AND lower(table_name) = lower($1)
		     AND lower(column_name) = lower($2)
		 )`,
		table,
		column,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
