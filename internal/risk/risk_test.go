package risk

import "testing"

func TestRecommendationValid(t *testing.T) {
	tests := []struct {
		rec      Recommendation
		expected bool
	}{
		{Safe, true},
		{Caution, true},
		{Danger, true},
		{Recommendation(""), false},
		{Recommendation("safe"), false},
		{Recommendation("WARNING"), false},
	}

	for _, tc := range tests {
		if got := tc.rec.Valid(); got != tc.expected {
			t.Errorf("Valid(%q) = %v; want %v", tc.rec, got, tc.expected)
		}
	}
}

func TestMaxValidScore(t *testing.T) {
	tests := []struct {
		name     string
		scores   []Score
		best     float64
		found    bool
	}{
		{"empty", nil, -1, false},
		{"all sentinel", []Score{{Similarity: -1}, {Similarity: -1}}, -1, false},
		{"single", []Score{{Similarity: 0.5}}, 0.5, true},
		{"picks max", []Score{{Similarity: 0.3}, {Similarity: 0.9}, {Similarity: 0.7}}, 0.9, true},
		{"ignores sentinel", []Score{{Similarity: -1}, {Similarity: 0.2}}, 0.2, true},
		{"zero is valid", []Score{{Similarity: 0}}, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			best, found := MaxValidScore(tc.scores)
			if found != tc.found {
				t.Fatalf("found = %v; want %v", found, tc.found)
			}
			if found && best != tc.best {
				t.Errorf("best = %v; want %v", best, tc.best)
			}
		})
	}
}

func TestFuseStyleDangerShortCircuits(t *testing.T) {
	verdict := StyleVerdict{Recommendation: Danger}

	// Matches and scores must not matter at all.
	got := Fuse(verdict, nil, nil, DefaultThreshold)
	if got != Danger {
		t.Errorf("Fuse with DANGER verdict = %q; want DANGER", got)
	}

	got = Fuse(verdict, []Match{{Title: "whatever"}}, []Score{{Similarity: 0.1}}, DefaultThreshold)
	if got != Danger {
		t.Errorf("Fuse with DANGER verdict and benign signals = %q; want DANGER", got)
	}
}

func TestFuseStyleCaution(t *testing.T) {
	verdict := StyleVerdict{Recommendation: Caution}
	if got := Fuse(verdict, nil, nil, DefaultThreshold); got != Caution {
		t.Errorf("Fuse with CAUTION verdict = %q; want CAUTION", got)
	}
}

func TestFuseArtistNameInMatchTitle(t *testing.T) {
	tests := []struct {
		name     string
		artists  []string
		matches  []Match
		expected Recommendation
	}{
		{
			"case-insensitive substring hit",
			[]string{"Alice Smith"},
			[]Match{{Title: "Artwork by alice smith on ArtSite"}},
			Caution,
		},
		{
			"no overlap",
			[]string{"Alice Smith"},
			[]Match{{Title: "Sunset landscape print"}},
			Safe,
		},
		{
			"second match hits",
			[]string{"Bob"},
			[]Match{{Title: "unrelated"}, {Title: "BOB's gallery"}},
			Caution,
		},
		{
			"artists but no matches",
			[]string{"Alice Smith"},
			nil,
			Safe,
		},
		{
			"matches but no artists",
			nil,
			[]Match{{Title: "Artwork by alice smith"}},
			Safe,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			verdict := StyleVerdict{SimilarArtists: tc.artists, Recommendation: Safe}
			got := Fuse(verdict, tc.matches, nil, DefaultThreshold)
			if got != tc.expected {
				t.Errorf("Fuse = %q; want %q", got, tc.expected)
			}
		})
	}
}

func TestFuseThresholdBoundary(t *testing.T) {
	verdict := StyleVerdict{Recommendation: Safe}

	// Exactly at threshold stays SAFE (strict greater-than).
	got := Fuse(verdict, nil, []Score{{Similarity: 0.85}}, 0.85)
	if got != Safe {
		t.Errorf("Fuse at threshold = %q; want SAFE", got)
	}

	// Just above the threshold escalates.
	got = Fuse(verdict, nil, []Score{{Similarity: 0.8501}}, 0.85)
	if got != Caution {
		t.Errorf("Fuse above threshold = %q; want CAUTION", got)
	}
}

func TestFuseSentinelScoresBehaveLikeEmpty(t *testing.T) {
	verdict := StyleVerdict{Recommendation: Safe}
	sentinels := []Score{{Similarity: -1}, {Similarity: -1}}

	withSentinels := Fuse(verdict, nil, sentinels, 0.85)
	withEmpty := Fuse(verdict, nil, nil, 0.85)

	if withSentinels != withEmpty {
		t.Errorf("sentinel-only scores = %q, empty scores = %q; want identical", withSentinels, withEmpty)
	}
	if withSentinels != Safe {
		t.Errorf("sentinel-only scores = %q; want SAFE", withSentinels)
	}
}

func TestFusePerfectMatchIsOnlyCaution(t *testing.T) {
	// A 1.0 perceptual match never forces DANGER on its own.
	verdict := StyleVerdict{Recommendation: Safe}
	got := Fuse(verdict, nil, []Score{{Similarity: 1.0}}, DefaultThreshold)
	if got != Caution {
		t.Errorf("Fuse with perfect match = %q; want CAUTION", got)
	}
}
