package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dpotapov/tinybrowser/internal/cookiejar"
	"github.com/dpotapov/tinybrowser/internal/tab"
	"github.com/dpotapov/tinybrowser/internal/weburl"
)

// historyEntry is the JSON-stable form of tab.HistoryEntry: weburl.URL
// round-trips through its String()/Parse pair rather than its own fields,
// since URL carries an unexported portExplicit bit.
type historyEntry struct {
	URL    string `json:"url"`
	Method string `json:"method"`
	Body   string `json:"body"`
}

// session is what persists across invocations of this CLI: history (so
// "history" and a later "get" see what earlier runs navigated) and the
// cookie jar (so a site's Set-Cookie from one run is sent back on the
// next), the same way a real browser keeps both past process exit.
type session struct {
	History      []historyEntry                        `json:"history"`
	HistoryIndex int                                    `json:"history_index"`
	Cookies      map[string]map[string]cookiejar.Cookie `json:"cookies"`
}

func sessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".tinybrowser", "session.json"), nil
}

func loadSession() (*session, error) {
	path, err := sessionPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &session{Cookies: make(map[string]map[string]cookiejar.Cookie)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if s.Cookies == nil {
		s.Cookies = make(map[string]map[string]cookiejar.Cookie)
	}
	return &s, nil
}

func saveSession(s *session) error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// snapshotHistory converts a Tab's live history into its persisted form.
func snapshotHistory(entries []tab.HistoryEntry) []historyEntry {
	out := make([]historyEntry, len(entries))
	for i, e := range entries {
		out[i] = historyEntry{URL: e.URL.String(), Method: e.Method, Body: e.Body}
	}
	return out
}

// restoreHistory parses a persisted history back into tab.HistoryEntry
// values, dropping any entry whose URL no longer parses (e.g. hand-edited
// session file) rather than failing the whole load.
func restoreHistory(entries []historyEntry) []tab.HistoryEntry {
	out := make([]tab.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		u, err := weburl.Parse(e.URL)
		if err != nil {
			continue
		}
		out = append(out, tab.HistoryEntry{URL: u, Method: e.Method, Body: e.Body})
	}
	return out
}
