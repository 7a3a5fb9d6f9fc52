// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/beatfall/scoreboard/internal/domain/model"
	"github.com/beatfall/scoreboard/internal/domain/types"
)

// Dependencies required by the HTTP handlers. An interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	Submit(ctx context.Context, accountID string, in model.Session) (types.SubmitResult, error)
	Leaderboard(ctx context.Context, songID string, difficulty model.Difficulty, limit, offset int) (types.LeaderboardPage, error)
	History(ctx context.Context, accountID string, limit int) (types.HistoryPage, error)
}

// Server wires HTTP routes for the score API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	scoresHandler      *ScoresHandler
	leaderboardHandler *LeaderboardHandler
	historyHandler     *HistoryHandler
	auth               *Authenticator
}

// NewServer creates an API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, auth *Authenticator) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		scoresHandler:      NewScoresHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		historyHandler:     NewHistoryHandler(deps),
		auth:               auth,
	}
}

// Register attaches all HTTP routes to mux. Only the write path requires
// an authenticated identity.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/scores", MetricsMiddleware(s.auth.Require(s.scoresHandler.HandlePostScore), "scores"))
	mux.HandleFunc("/api/scores/leaderboard/", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/api/scores/user/", MetricsMiddleware(s.historyHandler.HandleGetHistory, "history"))
}

// scoreRequest mirrors the submission payload sent by the game client.
type scoreRequest struct {
	SubmissionID          string  `json:"submissionId,omitempty"`
	SongID                string  `json:"songId"`
	SongTitle             string  `json:"songTitle"`
	SongArtist            string  `json:"songArtist"`
	SongDifficulty        string  `json:"songDifficulty"`
	Score                 int64   `json:"score"`
	MaxCombo              int     `json:"maxCombo"`
	Multiplier            int     `json:"multiplier"`
	Accuracy              float64 `json:"accuracy"`
	NotesHit              int     `json:"notesHit"`
	NotesMissed           int     `json:"notesMissed"`
	TotalNotes            int     `json:"totalNotes"`
	Rank                  string  `json:"rank"`
	GameEndedSuccessfully bool    `json:"gameEndedSuccessfully"`
}

func (r scoreRequest) session() model.Session {
	return model.Session{
		SubmissionID:          r.SubmissionID,
		SongID:                r.SongID,
		SongTitle:             r.SongTitle,
		SongArtist:            r.SongArtist,
		Difficulty:            model.Difficulty(r.SongDifficulty),
		Score:                 r.Score,
		MaxCombo:              r.MaxCombo,
		Multiplier:            r.Multiplier,
		Accuracy:              r.Accuracy,
		NotesHit:              r.NotesHit,
		NotesMissed:           r.NotesMissed,
		TotalNotes:            r.TotalNotes,
		Grade:                 model.Grade(r.Rank),
		CompletedSuccessfully: r.GameEndedSuccessfully,
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
