package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/beatfall/scoreboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func timeFixture() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func validSession() model.Session {
	return model.Session{
		SongID:                "song-001",
		SongTitle:             "Neon Cascade",
		SongArtist:            "Glasswing",
		Difficulty:            model.DifficultyMedium,
		Score:                 4200,
		MaxCombo:              37,
		Multiplier:            2,
		Accuracy:              91.5,
		NotesHit:              110,
		NotesMissed:           10,
		TotalNotes:            120,
		Grade:                 "A",
		CompletedSuccessfully: true,
	}
}

func TestSessionValidate(t *testing.T) {
	Convey("Given a fully valid session", t, func() {
		So(validSession().Validate(), ShouldBeNil)
	})

	Convey("Given invalid sessions", t, func() {
		cases := []struct {
			name   string
			mutate func(*model.Session)
			field  string
		}{
			{"empty song id", func(s *model.Session) { s.SongID = "" }, "songId"},
			{"empty title", func(s *model.Session) { s.SongTitle = "" }, "songTitle"},
			{"empty artist", func(s *model.Session) { s.SongArtist = "" }, "songArtist"},
			{"unknown difficulty", func(s *model.Session) { s.Difficulty = "Extreme" }, "songDifficulty"},
			{"negative score", func(s *model.Session) { s.Score = -1 }, "score"},
			{"negative combo", func(s *model.Session) { s.MaxCombo = -5 }, "maxCombo"},
			{"zero multiplier", func(s *model.Session) { s.Multiplier = 0 }, "multiplier"},
			{"accuracy above 100", func(s *model.Session) { s.Accuracy = 101 }, "accuracy"},
			{"negative accuracy", func(s *model.Session) { s.Accuracy = -0.5 }, "accuracy"},
			{"negative notes hit", func(s *model.Session) { s.NotesHit = -1 }, "notesHit"},
			{"negative notes missed", func(s *model.Session) { s.NotesMissed = -1 }, "notesMissed"},
			{"zero total notes", func(s *model.Session) { s.TotalNotes = 0 }, "totalNotes"},
			{"unknown grade", func(s *model.Session) { s.Grade = "F" }, "rank"},
		}

		for _, tc := range cases {
			Convey("Then "+tc.name+" is rejected naming "+tc.field, func() {
				s := validSession()
				tc.mutate(&s)
				err := s.Validate()
				So(err, ShouldNotBeNil)

				var verr *model.ValidationError
				So(errors.As(err, &verr), ShouldBeTrue)
				So(verr.Field, ShouldEqual, tc.field)
			})
		}
	})

	Convey("Given a session with several invalid fields", t, func() {
		s := validSession()
		s.SongID = ""
		s.Score = -10

		Convey("Then only the first invalid field is reported", func() {
			var verr *model.ValidationError
			So(errors.As(s.Validate(), &verr), ShouldBeTrue)
			So(verr.Field, ShouldEqual, "songId")
		})
	})
}

func TestParseDifficulty(t *testing.T) {
	Convey("Given difficulty strings", t, func() {
		for _, name := range []string{"Easy", "Medium", "Hard"} {
			d, ok := model.ParseDifficulty(name)
			So(ok, ShouldBeTrue)
			So(string(d), ShouldEqual, name)
		}

		Convey("Then the empty string means no filter", func() {
			d, ok := model.ParseDifficulty("")
			So(ok, ShouldBeTrue)
			So(d, ShouldEqual, model.DifficultyAny)
		})

		Convey("Then unknown names are rejected", func() {
			_, ok := model.ParseDifficulty("easy")
			So(ok, ShouldBeFalse)
			_, ok = model.ParseDifficulty("Nightmare")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestRecordFromSession(t *testing.T) {
	Convey("Given an accepted session", t, func() {
		s := validSession()
		s.SubmissionID = "token-1"
		playedAt := timeFixture()

		rec := model.RecordFromSession("acct-1", s, playedAt)

		Convey("Then the record carries every session field plus identity", func() {
			So(rec.AccountID, ShouldEqual, "acct-1")
			So(rec.SongID, ShouldEqual, s.SongID)
			So(rec.Score, ShouldEqual, s.Score)
			So(rec.MaxCombo, ShouldEqual, s.MaxCombo)
			So(rec.Grade, ShouldEqual, s.Grade)
			So(rec.PlayedAt, ShouldEqual, playedAt)
			So(rec.ID, ShouldBeEmpty) // assigned at append
		})
	})
}
