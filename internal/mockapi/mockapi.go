// Package mockapi serves a fake listing API with realistic, periodically
// regenerated bounty data so the bot can run end to end without credentials.
package mockapi

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const maxPerPage = 100

var (
	locations = []string{
		"Remote", "San Francisco, CA", "New York, NY", "Austin, TX",
		"Seattle, WA", "London, UK", "Berlin, Germany", "Tokyo, Japan",
		"Singapore", "Toronto, Canada", "Sydney, Australia", "Paris, France",
	}

	titles = []string{
		"Build a Discord Bot for Trading Alerts",
		"Create AI-Powered Resume Parser",
		"Develop Chrome Extension for Productivity",
		"Design Landing Page for SaaS Product",
		"Write Technical Documentation for API",
		"Build Stripe Payment Integration",
		"Create Automated Testing Suite",
		"Develop Mobile App Prototype",
		"Build Real-Time Analytics Dashboard",
		"Create Web Scraper for Job Postings",
		"Develop API Integration with Slack",
		"Build Authentication System with OAuth",
		"Create Data Visualization Dashboard",
		"Develop Shopify Plugin for Inventory",
		"Build Telegram Bot for Notifications",
		"Create Email Marketing Automation",
		"Develop React Component Library",
		"Build Go CLI Tool for DevOps",
		"Create WordPress Plugin for SEO",
		"Develop REST Backend Service",
	}

	descriptions = []string{
		"We need an experienced developer to build a production-ready solution. Must have strong communication skills and deliver clean, documented code.",
		"Looking for someone who can start immediately and work independently. Prior experience with similar projects required.",
		"Seeking a detail-oriented developer for this challenging project. Must be comfortable with modern development practices.",
		"This is a straightforward project for someone with the right skills. Quick turnaround expected.",
		"Great opportunity to work on an exciting project with potential for ongoing work. Portfolio review required.",
	}

	rewards = []string{"$500", "$750", "$1,000", "$1,500", "$2,000", "$2,500", "$3,000", "$5,000"}

	skillPool = []string{
		"Python", "JavaScript", "React", "Node.js", "Go",
		"PostgreSQL", "Docker", "AWS", "API Design", "UI/UX",
	}
)

// Bounty is one generated listing in the shape a real source would return.
type Bounty struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Reward      string   `json:"reward"`
	Deadline    string   `json:"deadline"`
	PostedAt    string   `json:"posted_at"`
	URL         string   `json:"url"`
	Status      string   `json:"status"`
	Skills      []string `json:"skills"`
	Applicants  int      `json:"applicants"`
	BudgetType  string   `json:"budget_type"`
}

type pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type listResponse struct {
	Bounties   []Bounty       `json:"bounties"`
	Pagination pagination     `json:"pagination"`
	Filters    map[string]any `json:"filters"`
}

// Server generates count bounties and replaces them every refresh interval.
type Server struct {
	count   int
	refresh time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu          sync.Mutex
	rng         *rand.Rand
	cache       []Bounty
	generatedAt time.Time
}

// NewServer creates a mock API server.
func NewServer(count int, refresh time.Duration, logger *slog.Logger) *Server {
	seed := uint64(time.Now().UnixNano())
	return &Server{
		count:   count,
		refresh: refresh,
		logger:  logger,
		now:     time.Now,
		rng:     rand.New(rand.NewPCG(seed, seed>>1)),
	}
}

// Handler returns the HTTP routes of the mock API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /bounties", s.handleList)
	mux.HandleFunc("GET /bounty/{id}", s.handleGet)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// bounties returns the current set, regenerating it once it is older than the
// refresh interval.
func (s *Server) bounties() []Bounty {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if s.cache != nil && now.Sub(s.generatedAt) < s.refresh {
		return s.cache
	}

	base := now.Unix()
	out := make([]Bounty, 0, s.count)
	for i := 0; i < s.count; i++ {
		id := strconv.FormatInt(base+int64(i), 10)
		posted := now.Add(-time.Duration(s.rng.IntN(49)) * time.Hour)
		deadline := now.AddDate(0, 0, 3+s.rng.IntN(28))
		out = append(out, Bounty{
			ID:          id,
			Title:       pick(s.rng, titles),
			Description: pick(s.rng, descriptions),
			Location:    pick(s.rng, locations),
			Reward:      pick(s.rng, rewards),
			Deadline:    deadline.Format(time.DateOnly),
			PostedAt:    posted.Format(time.RFC3339),
			URL:         "https://rentahuman.ai/bounty/" + id,
			Status:      "open",
			Skills:      sample(s.rng, skillPool, 2+s.rng.IntN(3)),
			Applicants:  s.rng.IntN(16),
			BudgetType:  pick(s.rng, []string{"fixed", "hourly"}),
		})
	}
	// Newest first.
	sort.SliceStable(out, func(i, j int) bool { return out[i].PostedAt > out[j].PostedAt })

	s.cache = out
	s.generatedAt = now
	s.logger.Debug("regenerated mock bounties", "count", len(out))
	return out
}

func pick(rng *rand.Rand, from []string) string {
	return from[rng.IntN(len(from))]
}

func sample(rng *rand.Rand, from []string, k int) []string {
	idx := rng.Perm(len(from))[:k]
	out := make([]string, k)
	for i, j := range idx {
		out[i] = from[j]
	}
	return out
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Mock bounty API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"/bounties":    "Get bounties (supports pagination)",
			"/bounty/{id}": "Get a single bounty",
			"/health":      "Health check",
		},
		"note": "This is a mock API for testing. No authentication required.",
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, ok := intParam(q.Get("page"), 1)
	if !ok || page < 1 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "page must be an integer >= 1"})
		return
	}
	perPage, ok := intParam(q.Get("per_page"), 50)
	if !ok || perPage < 1 || perPage > maxPerPage {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "per_page must be an integer between 1 and 100"})
		return
	}

	all := s.bounties()
	var location any
	if loc := q.Get("location"); loc != "" {
		location = loc
		needle := strings.ToLower(loc)
		filtered := make([]Bounty, 0, len(all))
		for _, b := range all {
			if strings.Contains(strings.ToLower(b.Location), needle) {
				filtered = append(filtered, b)
			}
		}
		all = filtered
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}

	writeJSON(w, http.StatusOK, listResponse{
		Bounties: append([]Bounty{}, all[start:end]...),
		Pagination: pagination{
			Page:       page,
			PerPage:    perPage,
			Total:      len(all),
			TotalPages: (len(all) + perPage - 1) / perPage,
		},
		Filters: map[string]any{"location": location},
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, b := range s.bounties() {
		if b.ID == id {
			writeJSON(w, http.StatusOK, b)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Bounty not found"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	cached := len(s.cache)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"timestamp":       s.now().UTC().Format(time.RFC3339),
		"bounties_cached": cached,
	})
}

func intParam(v string, def int) (int, bool) {
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
