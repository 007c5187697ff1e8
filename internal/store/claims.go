package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ppiankov/toolrate/internal/model"
)

// ReplaceClaims deletes every claim for the tool and inserts the new set.
// The two steps run in separate statements; a failure between them leaves
// the tool with no claims until the next run.
func (s *Store) ReplaceClaims(ctx context.Context, toolID string, claims []model.ExternalClaim) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM external_claims WHERE tool_id = ?`, toolID); err != nil {
		return fmt.Errorf("failed to delete claims for %s: %w", toolID, err)
	}

	now := formatTime(s.now())
	for _, claim := range claims {
		evidence, err := json.Marshal(claim.Evidence)
		if err != nil {
			return fmt.Errorf("marshal claim evidence: %w", err)
		}
		id := claim.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO external_claims (id, tool_id, source_type, source_url, topic, sentiment, claim, strength, evidence_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, toolID, claim.SourceType, claim.SourceURL, string(claim.Topic), int(claim.Sentiment),
			claim.Claim, claim.Strength, string(evidence), now)
		if err != nil {
			return fmt.Errorf("failed to insert %s claim for %s: %w", claim.SourceType, toolID, err)
		}
	}
	return nil
}

// ListClaims returns a tool's claims ordered by source type then topic
func (s *Store) ListClaims(ctx context.Context, toolID string) ([]model.ExternalClaim, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_type, source_url, topic, sentiment, claim, strength, evidence_json
		FROM external_claims WHERE tool_id = ?
		ORDER BY source_type, topic`, toolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var claims []model.ExternalClaim
	for rows.Next() {
		var (
			claim        model.ExternalClaim
			topic        string
			sentiment    int
			evidenceJSON string
		)
		if err := rows.Scan(&claim.ID, &claim.SourceType, &claim.SourceURL, &topic, &sentiment,
			&claim.Claim, &claim.Strength, &evidenceJSON); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claim.ToolID = toolID
		claim.Topic = model.Topic(topic)
		claim.Sentiment = model.Sentiment(sentiment)
		if err := json.Unmarshal([]byte(evidenceJSON), &claim.Evidence); err != nil {
			return nil, fmt.Errorf("decode claim evidence: %w", err)
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}
