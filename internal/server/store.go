package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"ryoforge/backend/internal/onboarding"
	"ryoforge/backend/internal/prompts"
)

var ErrProfileNotFound = errors.New("profile not found")

type UserProfile struct {
	ExternalID          string           `json:"external_id"`
	Email               string           `json:"email"`
	Name                string           `json:"name"`
	Picture             string           `json:"picture"`
	OnboardingData      *onboarding.Data `json:"onboarding_data,omitempty"`
	PersonalizedPrompt  *string          `json:"personalized_prompt,omitempty"`
	OnboardingCompleted bool             `json:"onboarding_completed"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// ChatMessage is one persisted turn: the user's text and the reply together.
type ChatMessage struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Agent       string           `json:"agent"`
	UserMessage string           `json:"message"`
	AIResponse  string           `json:"response"`
	Category    prompts.Category `json:"category"`
	Flagged     bool             `json:"flagged"`
	CreatedAt   time.Time        `json:"created_at"`
}

type Store interface {
	GetProfile(ctx context.Context, externalID string) (UserProfile, error)
	UpsertProfileIdentity(ctx context.Context, id Identity) (UserProfile, error)
	SaveOnboarding(ctx context.Context, externalID string, data onboarding.Data, personalizedPrompt string) (UserProfile, error)
	InsertChatMessage(ctx context.Context, msg ChatMessage) (ChatMessage, error)
	// RecentChatMessages returns newest first. An empty agentID matches every
	// agent.
	RecentChatMessages(ctx context.Context, userID, agentID string, limit int) ([]ChatMessage, error)
	DeleteChatMessages(ctx context.Context, userID, agentID string) (int64, error)
}

type dbQuerier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type pgStore struct {
	db  dbQuerier
	now func() time.Time
}

func NewPGStore(db dbQuerier) Store {
	return &pgStore{db: db, now: time.Now}
}

const profileColumns = `"externalId", email, name, picture, "onboardingData", "personalizedPrompt",
	"onboardingCompleted", "createdAt", "updatedAt"`

func scanProfile(row pgx.Row) (UserProfile, error) {
	var profile UserProfile
	var dataRaw []byte
	err := row.Scan(
		&profile.ExternalID,
		&profile.Email,
		&profile.Name,
		&profile.Picture,
		&dataRaw,
		&profile.PersonalizedPrompt,
		&profile.OnboardingCompleted,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserProfile{}, ErrProfileNotFound
	}
	if err != nil {
		return UserProfile{}, err
	}
	if len(dataRaw) > 0 {
		var data onboarding.Data
		if err := json.Unmarshal(dataRaw, &data); err != nil {
			return UserProfile{}, fmt.Errorf("decode onboarding data: %w", err)
		}
		profile.OnboardingData = &data
	}
	return profile, nil
}

func (s *pgStore) GetProfile(ctx context.Context, externalID string) (UserProfile, error) {
	return scanProfile(s.db.QueryRow(
		ctx,
		`SELECT `+profileColumns+` FROM "UserProfile" WHERE "externalId" = $1`,
		strings.TrimSpace(externalID),
	))
}

func (s *pgStore) UpsertProfileIdentity(ctx context.Context, id Identity) (UserProfile, error) {
	now := s.now().UTC()
	return scanProfile(s.db.QueryRow(
		ctx,
		`INSERT INTO "UserProfile" ("externalId", email, name, picture, "onboardingCompleted", "createdAt", "updatedAt")
		 VALUES ($1, $2, $3, $4, FALSE, $5, $5)
		 ON CONFLICT ("externalId") DO UPDATE
		   SET email = EXCLUDED.email,
		       name = EXCLUDED.name,
		       picture = EXCLUDED.picture,
		       "updatedAt" = EXCLUDED."updatedAt"
		 RETURNING `+profileColumns,
		id.ExternalID,
		id.Email,
		id.Name,
		id.Picture,
		now,
	))
}

// SaveOnboarding writes the record, the compiled prompt and the completed
// flag in one statement so the three never disagree.
func (s *pgStore) SaveOnboarding(ctx context.Context, externalID string, data onboarding.Data, personalizedPrompt string) (UserProfile, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return UserProfile{}, err
	}
	return scanProfile(s.db.QueryRow(
		ctx,
		`UPDATE "UserProfile"
		 SET "onboardingData" = $2::jsonb,
		     "personalizedPrompt" = $3,
		     "onboardingCompleted" = TRUE,
		     "updatedAt" = $4
		 WHERE "externalId" = $1
		 RETURNING `+profileColumns,
		strings.TrimSpace(externalID),
		string(encoded),
		personalizedPrompt,
		s.now().UTC(),
	))
}

func (s *pgStore) InsertChatMessage(ctx context.Context, msg ChatMessage) (ChatMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now().UTC()
	}
	_, err := s.db.Exec(
		ctx,
		`INSERT INTO "ChatMessage" (id, "userId", agent, "userMessage", "aiResponse", category, flagged, "createdAt")
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		msg.ID,
		msg.UserID,
		msg.Agent,
		msg.UserMessage,
		msg.AIResponse,
		string(msg.Category),
		msg.Flagged,
		msg.CreatedAt,
	)
	if err != nil {
		return ChatMessage{}, err
	}
	return msg, nil
}

func (s *pgStore) RecentChatMessages(ctx context.Context, userID, agentID string, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		ctx,
		`SELECT id, "userId", agent, "userMessage", "aiResponse", category, flagged, "createdAt"
		 FROM "ChatMessage"
		 WHERE "userId" = $1 AND ($2 = '' OR agent = $2)
		 ORDER BY "createdAt" DESC, seq DESC
		 LIMIT $3`,
		userID,
		strings.TrimSpace(agentID),
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]ChatMessage, 0, limit)
	for rows.Next() {
		var msg ChatMessage
		var category string
		if err := rows.Scan(
			&msg.ID,
			&msg.UserID,
			&msg.Agent,
			&msg.UserMessage,
			&msg.AIResponse,
			&category,
			&msg.Flagged,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		msg.Category = prompts.Category(category)
		items = append(items, msg)
	}
	return items, rows.Err()
}

func (s *pgStore) DeleteChatMessages(ctx context.Context, userID, agentID string) (int64, error) {
	tag, err := s.db.Exec(
		ctx,
		`DELETE FROM "ChatMessage" WHERE "userId" = $1 AND ($2 = '' OR agent = $2)`,
		userID,
		strings.TrimSpace(agentID),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
