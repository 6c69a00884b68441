package jellyfin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/janitarr/janitarr/internal/models"
	"github.com/sirupsen/logrus"
)

func TestItemParsing(t *testing.T) {
	jsonData := `{
  "Items": [
    {
      "Id": "abc123",
      "Name": "Test Movie",
      "Type": "Movie",
      "ProductionYear": 2021,
      "DateCreated": "2024-03-01T10:15:00.0000000Z",
      "Path": "/media/movies/Test Movie (2021)/movie.mkv",
      "ProviderIds": {"Tmdb": "603", "Imdb": "tt0133093"},
      "UserData": {"Played": true, "PlayCount": 2, "LastPlayedDate": "2024-06-01T21:00:00.0000000Z"},
      "MediaSources": [{"Path": "/media/movies/Test Movie (2021)/movie.mkv", "Size": 8589934592}],
      "MediaStreams": [
        {"Type": "Video", "Language": ""},
        {"Type": "Audio", "Language": "eng"},
        {"Type": "Subtitle", "Language": "fre"}
      ]
    }
  ],
  "TotalRecordCount": 1
}`

	var response ItemsResponse
	if err := json.Unmarshal([]byte(jsonData), &response); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	if response.TotalRecordCount != 1 {
		t.Fatalf("Expected 1 record, got %d", response.TotalRecordCount)
	}

	item := response.Items[0]
	if item.ID != "abc123" {
		t.Errorf("Expected id 'abc123', got '%s'", item.ID)
	}
	if item.ProviderIds["Tmdb"] != "603" {
		t.Errorf("Expected tmdb id '603', got '%s'", item.ProviderIds["Tmdb"])
	}
	if !item.UserData.Played {
		t.Error("Expected item to be played")
	}
	if item.MediaSources[0].Size != 8589934592 {
		t.Errorf("Expected size 8589934592, got %d", item.MediaSources[0].Size)
	}
}

func TestConvertMovie(t *testing.T) {
	item := Item{
		ID:             "abc123",
		Name:           "Test Movie",
		Type:           "Movie",
		ProductionYear: 2021,
		DateCreated:    "2024-03-01T10:15:00Z",
		ProviderIds:    map[string]string{"Tmdb": "603"},
		UserData:       &UserData{Played: true, LastPlayedDate: "2024-06-01T21:00:00Z"},
		MediaSources:   []MediaSource{{Size: 1024}},
		MediaStreams: []MediaStream{
			{Type: "Audio", Language: "eng"},
		},
	}

	converted := convertMovie(item)

	if converted.MediaType != models.MediaTypeMovie {
		t.Errorf("Expected movie, got %s", converted.MediaType)
	}
	if converted.SizeBytes != 1024 {
		t.Errorf("Expected size 1024, got %d", converted.SizeBytes)
	}
	if converted.ProductionYear == nil || *converted.ProductionYear != 2021 {
		t.Error("Expected production year 2021")
	}
	if converted.DateCreated == nil {
		t.Fatal("Expected date created to be parsed")
	}
	if converted.LastPlayedDate == nil {
		t.Fatal("Expected last played date to be parsed")
	}
	if !converted.Played {
		t.Error("Expected played")
	}
	if converted.TMDBId != "603" {
		t.Errorf("Expected tmdb id '603', got '%s'", converted.TMDBId)
	}
	// English audio only: both French flags apply.
	if len(converted.MissingLanguages) != 2 {
		t.Fatalf("Expected 2 missing language flags, got %v", converted.MissingLanguages)
	}
}

func TestMissingLanguages(t *testing.T) {
	tests := []struct {
		name    string
		streams []MediaStream
		want    []models.LanguageFlag
	}{
		{
			name: "all languages present",
			streams: []MediaStream{
				{Type: "Audio", Language: "eng"},
				{Type: "Audio", Language: "fre"},
			},
			want: nil,
		},
		{
			name: "french subs cover missing french audio",
			streams: []MediaStream{
				{Type: "Audio", Language: "eng"},
				{Type: "Subtitle", Language: "fra"},
			},
			want: []models.LanguageFlag{models.MissingFrAudio},
		},
		{
			name: "english audio only",
			streams: []MediaStream{
				{Type: "Audio", Language: "eng"},
			},
			want: []models.LanguageFlag{models.MissingFrAudio, models.MissingFrSubs},
		},
		{
			name: "french audio only",
			streams: []MediaStream{
				{Type: "Audio", Language: "fre"},
			},
			want: []models.LanguageFlag{models.MissingEnAudio},
		},
		{
			name:    "no streams means no flags",
			streams: nil,
			want:    nil,
		},
		{
			name: "unknown language counts as missing",
			streams: []MediaStream{
				{Type: "Audio", Language: "jpn"},
			},
			want: []models.LanguageFlag{models.MissingEnAudio, models.MissingFrAudio, models.MissingFrSubs},
		},
	}

	for _, tt := range tests {
		got := missingLanguages(tt.streams)
		if len(got) != len(tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
				break
			}
		}
	}
}

func TestParseDate(t *testing.T) {
	if parseDate("") != nil {
		t.Error("Expected nil for empty value")
	}
	if parseDate("not-a-date") != nil {
		t.Error("Expected nil for malformed value")
	}
	if parseDate("2024-03-01T10:15:00.0000000Z") == nil {
		t.Error("Expected Jellyfin timestamp to parse")
	}
	if parseDate("2024-03-01T10:15:00") == nil {
		t.Error("Expected zone-less timestamp to parse")
	}
}

func TestFetchLibraryRequestsMovieStreams(t *testing.T) {
	var movieFields string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/Users":
			fmt.Fprint(w, `[{"Id": "u1", "Name": "admin", "Policy": {"IsAdministrator": true}}]`)
		case strings.HasSuffix(r.URL.Path, "/Items") && r.URL.Query().Get("IncludeItemTypes") == "Movie":
			movieFields = r.URL.Query().Get("Fields")
			fmt.Fprint(w, `{
  "Items": [
    {
      "Id": "m1",
      "Name": "English Only",
      "Type": "Movie",
      "MediaSources": [{"Size": 1024}],
      "MediaStreams": [{"Type": "Audio", "Language": "eng"}]
    }
  ],
  "TotalRecordCount": 1
}`)
		default:
			fmt.Fprint(w, `{"Items": [], "TotalRecordCount": 0}`)
		}
	}))
	defer server.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client, err := NewClient(models.ServiceConfig{URL: server.URL, APIKey: "key"}, time.Second, logger)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	items, err := client.FetchLibrary(context.Background(), nil)
	if err != nil {
		t.Fatalf("Failed to fetch library: %v", err)
	}

	if !strings.Contains(movieFields, "MediaStreams") {
		t.Errorf("Expected movie fetch to request MediaStreams, got Fields=%q", movieFields)
	}

	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	want := []models.LanguageFlag{models.MissingFrAudio, models.MissingFrSubs}
	if len(items[0].MissingLanguages) != len(want) {
		t.Fatalf("Expected movie flags %v, got %v", want, items[0].MissingLanguages)
	}
	for i := range want {
		if items[0].MissingLanguages[i] != want[i] {
			t.Errorf("Expected movie flags %v, got %v", want, items[0].MissingLanguages)
			break
		}
	}
}
