package client

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/alamicos/scoreboard/internal/scoreboard"
)

func TestFileStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewFileStore(fs, "/home/ana/.scoreboard")
	at := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	got, err := s.Load("beerpong")
	if err != nil || len(got) != 0 {
		t.Fatalf("empty load = %v, %v", got, err)
	}

	in := []scoreboard.Entry{
		{Key: "a2", ClientID: "a2", Name: "Beto", Score: 9, PlayedAt: at, Seq: 2},
		{Key: "a1", ClientID: "a1", Name: "Ana", Score: 3, PlayedAt: at, Seq: 1},
	}
	if err := s.Save("beerpong", in); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err = s.Load("beerpong")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Ana" || got[0].Seq != 1 || got[1].Seq != 2 {
		t.Errorf("loaded = %+v, want storage order", got)
	}
	if !got[1].PlayedAt.Equal(at) {
		t.Errorf("played at = %v", got[1].PlayedAt)
	}

	// no temp files left behind
	files, _ := afero.ReadDir(fs, "/home/ana/.scoreboard")
	for _, f := range files {
		if strings.HasSuffix(f.Name(), ".tmp") {
			t.Errorf("leftover temp file %s", f.Name())
		}
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"syntax error", `{nope`},
		{"wrong shape", `{"id":"a1"}`},
		{"wrong field type", `[{"id":"a1","name":"Ana","score":4},{"id":"a2","name":"Beto","score":"5"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			s := NewFileStore(fs, "/d")
			for _, key := range []string{Key("slots"), pendingKey("slots")} {
				if err := afero.WriteFile(fs, "/d/"+key+".json", []byte(tt.raw), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			got, err := s.Load("slots")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("board read as %+v, want empty", got)
			}
			pending, err := s.LoadPending("slots")
			if err != nil {
				t.Fatalf("load pending: %v", err)
			}
			if len(pending) != 0 {
				t.Errorf("pending read as %+v, want empty", pending)
			}
		})
	}

	t.Run("votes wrong field type", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		raw := `{"votes":[{"email":"a@x.co","name":"Ana"},{"email":"b@x.co","timestamp":"yesterday"}]}`
		if err := afero.WriteFile(fs, "/d/"+votesKey+".json", []byte(raw), 0o644); err != nil {
			t.Fatal(err)
		}
		votes, err := NewFileStore(fs, "/d").LoadVotes()
		if err != nil {
			t.Fatalf("load votes: %v", err)
		}
		if votes == nil || len(votes) != 0 {
			t.Errorf("votes = %#v, want empty non-nil", votes)
		}
	})
}

func TestFileStorePending(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewFileStore(fs, "/d")

	q := []scoreboard.Attempt{{ClientID: "a1", Name: "Ana", Score: 4}}
	if err := s.SavePending("beerpong", q); err != nil {
		t.Fatalf("save pending: %v", err)
	}
	got, _ := s.LoadPending("beerpong")
	if len(got) != 1 || got[0] != q[0] {
		t.Errorf("pending = %+v", got)
	}

	if err := s.SavePending("beerpong", nil); err != nil {
		t.Fatalf("clear pending: %v", err)
	}
	if ok, _ := afero.Exists(fs, "/d/"+pendingKey("beerpong")+".json"); ok {
		t.Error("empty queue left a file")
	}
}

func TestLabels(t *testing.T) {
	entries := []scoreboard.Entry{
		{Name: "Rodri", Score: 33},
		{Name: "Ana", Score: 12},
		{Name: "Rodri", Score: 10},
		{Name: "Rodri", Score: 7},
	}
	want := []string{"Rodri", "Ana", "Rodri (attempt 2)", "Rodri (attempt 3)"}

	got := Labels(entries)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("label %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSession(t *testing.T) {
	s := NewSession("  Rodri ", "p")
	first := s.Attempt(10)
	s.Next()
	second := s.Attempt(7)

	if first.Name != "Rodri" || second.Name != "Rodri" {
		t.Errorf("names = %q, %q", first.Name, second.Name)
	}
	if first.ClientID == second.ClientID {
		t.Error("attempts share a client id")
	}
	if !strings.HasPrefix(first.ClientID, "p-") {
		t.Errorf("client id = %q", first.ClientID)
	}
}
