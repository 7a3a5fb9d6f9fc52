package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/beatfall/scoreboard/internal/adapters/http/api"
	"github.com/beatfall/scoreboard/internal/adapters/repository"
	service "github.com/beatfall/scoreboard/internal/app"
	"github.com/beatfall/scoreboard/internal/domain/model"
	"github.com/beatfall/scoreboard/pkg/logger"
)

const testSecret = "unit-test-secret"

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	store.PutAccount(context.Background(), "acct-1", model.Profile{Username: "neonfox", DisplayName: "Neon Fox"})
	store.PutAccount(context.Background(), "acct-2", model.Profile{Username: "basshawk", DisplayName: "Bass Hawk"})

	svc := service.New(service.WithStores(store, store))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Stop)

	mux := http.NewServeMux()
	api.NewServer(svc, svc, api.NewAuthenticator(testSecret)).Register(context.Background(), mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, store
}

func signToken(t *testing.T, accountID, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   accountID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func submitBody(score int64) []byte {
	payload := map[string]any{
		"songId":                "neon-cascade",
		"songTitle":             "Neon Cascade",
		"songArtist":            "Vektor Nine",
		"songDifficulty":        "Hard",
		"score":                 score,
		"maxCombo":              120,
		"multiplier":            4,
		"accuracy":              96.5,
		"notesHit":              410,
		"notesMissed":           15,
		"totalNotes":            425,
		"rank":                  "A",
		"gameEndedSuccessfully": true,
	}
	b, _ := json.Marshal(payload)
	return b
}

func postScore(t *testing.T, ts *httptest.Server, token string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/scores", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestPostScore(t *testing.T) {
	Convey("Given a running API server", t, func() {
		ts, store := newTestServer(t)
		token := signToken(t, "acct-1", testSecret)

		Convey("When submitting without a token", func() {
			resp := postScore(t, ts, "", submitBody(1000))
			defer resp.Body.Close()

			Convey("Then the request is rejected with 401", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
				So(store.Len(context.Background()), ShouldEqual, 0)
			})
		})

		Convey("When submitting with a token signed by the wrong secret", func() {
			resp := postScore(t, ts, signToken(t, "acct-1", "other-secret"), submitBody(1000))
			defer resp.Body.Close()

			Convey("Then the request is rejected with 401", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When submitting a valid session", func() {
			resp := postScore(t, ts, token, submitBody(1000))

			Convey("Then the record is created and ranked", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				var result struct {
					RecordID        string `json:"recordId"`
					PersonalBest    bool   `json:"personalBest"`
					LeaderboardRank int    `json:"leaderboardRank"`
				}
				decodeBody(t, resp, &result)
				So(result.RecordID, ShouldNotBeEmpty)
				So(result.PersonalBest, ShouldBeTrue)
				So(result.LeaderboardRank, ShouldEqual, 1)
			})
		})

		Convey("When submitting an invalid session", func() {
			var payload map[string]any
			So(json.Unmarshal(submitBody(1000), &payload), ShouldBeNil)
			payload["totalNotes"] = 0
			body, _ := json.Marshal(payload)
			resp := postScore(t, ts, token, body)

			Convey("Then a validation error names the first bad field", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				var errResp struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				}
				decodeBody(t, resp, &errResp)
				So(errResp.Code, ShouldEqual, "validation_error")
				So(errResp.Message, ShouldContainSubstring, "totalNotes")
			})
		})

		Convey("When submitting malformed JSON", func() {
			resp := postScore(t, ts, token, []byte("{not json"))
			defer resp.Body.Close()

			Convey("Then the request is rejected with 400", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When replaying the same submission token", func() {
			var payload map[string]any
			So(json.Unmarshal(submitBody(1000), &payload), ShouldBeNil)
			payload["submissionId"] = "tok-http-1"
			body, _ := json.Marshal(payload)

			first := postScore(t, ts, token, body)
			first.Body.Close()
			second := postScore(t, ts, token, body)
			defer second.Body.Close()

			Convey("Then the replay is rejected with 409", func() {
				So(first.StatusCode, ShouldEqual, http.StatusCreated)
				So(second.StatusCode, ShouldEqual, http.StatusConflict)
				So(store.Len(context.Background()), ShouldEqual, 1)
			})
		})
	})
}

func TestGetLeaderboard(t *testing.T) {
	Convey("Given submissions from two accounts", t, func() {
		ts, _ := newTestServer(t)
		resp := postScore(t, ts, signToken(t, "acct-1", testSecret), submitBody(2000))
		resp.Body.Close()
		resp = postScore(t, ts, signToken(t, "acct-2", testSecret), submitBody(3000))
		resp.Body.Close()

		type page struct {
			Leaderboard []struct {
				Rank  int   `json:"rank"`
				Score int64 `json:"score"`
				User  struct {
					Username string `json:"username"`
				} `json:"user"`
			} `json:"leaderboard"`
			Total int `json:"total"`
			Page  int `json:"page"`
			Limit int `json:"limit"`
		}

		Convey("When fetching the leaderboard without auth", func() {
			resp, err := ts.Client().Get(ts.URL + "/api/scores/leaderboard/neon-cascade")
			So(err, ShouldBeNil)

			Convey("Then the window comes back highest first", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var p page
				decodeBody(t, resp, &p)
				So(p.Total, ShouldEqual, 2)
				So(p.Page, ShouldEqual, 1)
				So(len(p.Leaderboard), ShouldEqual, 2)
				So(p.Leaderboard[0].Rank, ShouldEqual, 1)
				So(p.Leaderboard[0].Score, ShouldEqual, 3000)
				So(p.Leaderboard[0].User.Username, ShouldEqual, "basshawk")
			})
		})

		Convey("When paging past the end", func() {
			resp, err := ts.Client().Get(ts.URL + "/api/scores/leaderboard/neon-cascade?offset=50&limit=10")
			So(err, ShouldBeNil)

			Convey("Then the page is empty with an accurate total", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var p page
				decodeBody(t, resp, &p)
				So(p.Leaderboard, ShouldBeEmpty)
				So(p.Total, ShouldEqual, 2)
			})
		})

		Convey("When fetching twice with identical parameters", func() {
			first, err := ts.Client().Get(ts.URL + "/api/scores/leaderboard/neon-cascade")
			So(err, ShouldBeNil)
			second, err := ts.Client().Get(ts.URL + "/api/scores/leaderboard/neon-cascade")
			So(err, ShouldBeNil)

			Convey("Then the ordering is identical", func() {
				var a, b page
				decodeBody(t, first, &a)
				decodeBody(t, second, &b)
				So(fmt.Sprint(a), ShouldEqual, fmt.Sprint(b))
			})
		})

		Convey("When passing an unknown difficulty", func() {
			resp, err := ts.Client().Get(ts.URL + "/api/scores/leaderboard/neon-cascade?difficulty=Nightmare")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the request is rejected with 400", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the song id is missing", func() {
			resp, err := ts.Client().Get(ts.URL + "/api/scores/leaderboard/")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the request is rejected with 400", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestGetHistory(t *testing.T) {
	Convey("Given an account with submissions", t, func() {
		ts, _ := newTestServer(t)
		token := signToken(t, "acct-1", testSecret)
		for _, score := range []int64{100, 300, 200} {
			resp := postScore(t, ts, token, submitBody(score))
			resp.Body.Close()
		}

		type page struct {
			Scores []struct {
				Score    int64     `json:"score"`
				Rank     string    `json:"rank"`
				PlayedAt time.Time `json:"playedAt"`
			} `json:"scores"`
			Total int `json:"total"`
		}

		Convey("When fetching the account history", func() {
			resp, err := ts.Client().Get(ts.URL + "/api/scores/user/acct-1")
			So(err, ShouldBeNil)

			Convey("Then sessions come back most recent first", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var p page
				decodeBody(t, resp, &p)
				So(p.Total, ShouldEqual, 3)
				So(len(p.Scores), ShouldEqual, 3)
				So(p.Scores[0].Score, ShouldEqual, 200)
				for i := 1; i < len(p.Scores); i++ {
					So(p.Scores[i].PlayedAt.After(p.Scores[i-1].PlayedAt), ShouldBeFalse)
				}
			})
		})

		Convey("When limiting the history page", func() {
			resp, err := ts.Client().Get(ts.URL + "/api/scores/user/acct-1?limit=1")
			So(err, ShouldBeNil)

			Convey("Then one entry comes back with the full total", func() {
				var p page
				decodeBody(t, resp, &p)
				So(len(p.Scores), ShouldEqual, 1)
				So(p.Total, ShouldEqual, 3)
			})
		})

		Convey("When the account has no plays", func() {
			resp, err := ts.Client().Get(ts.URL + "/api/scores/user/acct-2")
			So(err, ShouldBeNil)

			Convey("Then an empty page comes back, not an error", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var p page
				decodeBody(t, resp, &p)
				So(p.Scores, ShouldBeEmpty)
				So(p.Total, ShouldEqual, 0)
			})
		})
	})
}

func TestHealthz(t *testing.T) {
	Convey("Given a running API server", t, func() {
		ts, _ := newTestServer(t)

		Convey("When probing the health endpoint", func() {
			resp, err := ts.Client().Get(ts.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it reports healthy", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestStats(t *testing.T) {
	Convey("Given a running API server", t, func() {
		ts, _ := newTestServer(t)

		Convey("When fetching service stats", func() {
			resp, err := ts.Client().Get(ts.URL + "/stats")
			So(err, ShouldBeNil)

			Convey("Then the service reports itself started", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var stats map[string]any
				decodeBody(t, resp, &stats)
				So(stats["started"], ShouldEqual, true)
			})
		})
	})
}
