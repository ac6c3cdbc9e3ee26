package storage

import (
	"strings"
	"time"

	"velo/model"
)

// SessionMessageMatch is one hit from a cross-session search.
type SessionMessageMatch struct {
	SessionID    string
	SessionName  string
	MessageIndex int
	Role         string
	Content      string
	Preview      string
	Timestamp    time.Time
}

// SearchIndex scans stored sessions for message text. Sessions are small
// JSON files, so the index loads them on demand instead of caching.
type SearchIndex struct {
	storage *SessionStorage
}

func NewSearchIndex(storage *SessionStorage) *SearchIndex {
	return &SearchIndex{storage: storage}
}

// SearchAllSessions returns messages whose text or tool invocations
// contain the query, case-insensitively.
func (si *SearchIndex) SearchAllSessions(query string) ([]SessionMessageMatch, error) {
	if query == "" {
		return []SessionMessageMatch{}, nil
	}

	sessionList, err := si.storage.List()
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)
	var matches []SessionMessageMatch

	for _, meta := range sessionList {
		session, err := si.storage.Load(meta.ID)
		if err != nil {
			continue
		}

		for i, msg := range session.Messages {
			if msg.Role == model.RoleSystem {
				continue
			}

			if !messageContains(&msg, queryLower) {
				continue
			}

			preview := msg.Content
			if len(preview) > 100 {
				preview = preview[:100] + "..."
			}

			matches = append(matches, SessionMessageMatch{
				SessionID:    session.ID,
				SessionName:  session.Name,
				MessageIndex: i,
				Role:         string(msg.Role),
				Content:      msg.Content,
				Preview:      preview,
				Timestamp:    msg.Timestamp,
			})
		}
	}

	return matches, nil
}

// messageContains matches against the text content, tool names, and the
// SQL inside tool arguments.
func messageContains(msg *model.Message, queryLower string) bool {
	if strings.Contains(strings.ToLower(msg.Content), queryLower) {
		return true
	}

	for i := range msg.Parts {
		p := &msg.Parts[i]
		if p.Kind != model.PartToolInvocation {
			continue
		}
		if strings.Contains(strings.ToLower(p.ToolName), queryLower) {
			return true
		}
		if sql, ok := p.Args["sql"].(string); ok &&
			strings.Contains(strings.ToLower(sql), queryLower) {
			return true
		}
	}

	return false
}
