// Command seed generates plausible score submissions and posts them to a
// running scoreboard instance. Useful for populating a dev leaderboard
// and for eyeballing ranking behavior under volume.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type submission struct {
	SubmissionID          string  `json:"submissionId"`
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

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8080", "scoreboard base URL")
		count    = flag.Int("count", 100, "number of submissions to send")
		players  = flag.Int("players", 10, "number of distinct accounts")
		songs    = flag.Int("songs", 5, "number of distinct songs")
		secret   = flag.String("secret", "dev-secret-change-me", "JWT signing secret")
		seed     = flag.Uint64("seed", 0, "random seed (0 = nondeterministic)")
	)
	flag.Parse()

	faker := gofakeit.New(*seed)
	client := &http.Client{Timeout: 10 * time.Second}

	songIDs := make([]string, *songs)
	titles := make([]string, *songs)
	artists := make([]string, *songs)
	for i := range songIDs {
		songIDs[i] = fmt.Sprintf("song-%03d", i+1)
		titles[i] = faker.Song().Name
		artists[i] = faker.Song().Artist
	}

	difficulties := []string{"Easy", "Medium", "Hard"}
	grades := []string{"S", "A", "B", "C", "D"}

	sent, failed := 0, 0
	for i := 0; i < *count; i++ {
		player := faker.Number(1, *players)
		accountID := fmt.Sprintf("player-%03d", player)
		song := faker.Number(0, *songs-1)

		total := faker.Number(50, 500)
		hit := faker.Number(0, total)
		sub := submission{
			SubmissionID:          uuid.NewString(),
			SongID:                songIDs[song],
			SongTitle:             titles[song],
			SongArtist:            artists[song],
			SongDifficulty:        difficulties[faker.Number(0, 2)],
			Score:                 int64(hit) * int64(faker.Number(10, 150)),
			MaxCombo:              faker.Number(0, hit),
			Multiplier:            faker.Number(1, 8),
			Accuracy:              float64(hit) / float64(total) * 100,
			NotesHit:              hit,
			NotesMissed:           total - hit,
			TotalNotes:            total,
			Rank:                  grades[faker.Number(0, 4)],
			GameEndedSuccessfully: faker.Bool(),
		}

		token, err := signToken(*secret, accountID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "sign token:", err)
			os.Exit(1)
		}
		if err := post(client, *baseURL+"/api/scores", token, sub); err != nil {
			failed++
			fmt.Fprintln(os.Stderr, "submit:", err)
			continue
		}
		sent++
	}

	fmt.Printf("sent %d submissions (%d failed)\n", sent, failed)
}

func signToken(secret, accountID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func post(client *http.Client, url, token string, sub submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}
