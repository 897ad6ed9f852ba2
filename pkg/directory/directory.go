// Package directory 玩家档案服务. 加入时按 id 取档案, 定期回存分数
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrNotFound 没有这个 id
var ErrNotFound = errors.New("directory: entity not found")

// Profile 档案
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Score    uint32 `json:"score"`
	IsPlayer bool   `json:"isPlayer"`
}

// Score 回存的分数
type Score struct {
	ClientID string `json:"clientId"`
	Score    uint32 `json:"score"`
}

// Directory 档案服务
type Directory interface {
	Lookup(ctx context.Context, id string) (Profile, error)
	SaveScores(ctx context.Context, scores []Score) error
}

// Client http 实现
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New 构造, baseURL 形如 http://host/api/v1
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Lookup GET /gameObject/{id}
func (c *Client) Lookup(ctx context.Context, id string) (Profile, error) {
	var prof Profile
	if id == "" || strings.Contains(id, "/") {
		return prof, fmt.Errorf("lookup %q: %w", id, ErrNotFound)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/gameObject/"+id, nil)
	if err != nil {
		return prof, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return prof, fmt.Errorf("lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		return prof, fmt.Errorf("lookup %s: %w", id, ErrNotFound)
	default:
		return prof, fmt.Errorf("lookup returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&prof); err != nil {
		return prof, fmt.Errorf("lookup %s: decode: %w", id, err)
	}
	prof.ID = id
	return prof, nil
}

// SaveScores POST /gameObject/saveGameState
func (c *Client) SaveScores(ctx context.Context, scores []Score) error {
	if scores == nil {
		scores = []Score{}
	}
	body, err := json.Marshal(scores)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/gameObject/saveGameState", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("save request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("save returned status %d", resp.StatusCode)
	}
	return nil
}

// Memory 内存实现, 没配置档案服务时用. 不认识的 id 也给一个空档案
type Memory struct {
	sync.Mutex
	profiles map[string]Profile
	strict   bool
}

// NewMemory strict 为 true 时不认识的 id 返回 ErrNotFound
func NewMemory(strict bool) *Memory {
	return &Memory{
		profiles: make(map[string]Profile),
		strict:   strict,
	}
}

// Put 存一个档案
func (m *Memory) Put(p Profile) {
	m.Lock()
	defer m.Unlock()
	m.profiles[p.ID] = p
}

// Get 读档案
func (m *Memory) Get(id string) (Profile, bool) {
	m.Lock()
	defer m.Unlock()
	p, ok := m.profiles[id]
	return p, ok
}

func (m *Memory) Lookup(ctx context.Context, id string) (Profile, error) {
	m.Lock()
	defer m.Unlock()
	if p, ok := m.profiles[id]; ok {
		return p, nil
	}
	if m.strict || id == "" {
		return Profile{}, fmt.Errorf("lookup %q: %w", id, ErrNotFound)
	}
	return Profile{ID: id, Username: id, IsPlayer: true}, nil
}

func (m *Memory) SaveScores(ctx context.Context, scores []Score) error {
	m.Lock()
	defer m.Unlock()
	for _, s := range scores {
		p := m.profiles[s.ClientID]
		p.ID = s.ClientID
		p.Score = s.Score
		m.profiles[s.ClientID] = p
	}
	return nil
}
