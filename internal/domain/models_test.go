package domain

import "testing"

func TestTotalItemsCountsVideosAndQuizzes(t *testing.T) {
	course := &CourseStructure{Sections: []Section{
		{ID: "s1", SubItems: []SubItem{{ID: "v1", QuizID: "q1"}, {ID: "v2"}}},
		{ID: "s2"},
		{ID: "s3", SubItems: []SubItem{{ID: "v3", QuizID: "q3"}}},
	}}
	if got := course.TotalItems(); got != 5 {
		t.Fatalf("expected 5 items, got %d", got)
	}
	var missing *CourseStructure
	if missing.TotalItems() != 0 {
		t.Fatalf("nil structure should count zero")
	}
}

func TestCompletedCountIsDistinct(t *testing.T) {
	p := &CourseProgress{
		CompletedVideoIDs: []string{"v1", "v1", "v2"},
		CompletedQuizIDs:  []string{"q1", "q1"},
	}
	if got := p.CompletedCount(); got != 3 {
		t.Fatalf("expected 3 distinct completions, got %d", got)
	}
	var none *CourseProgress
	if none.CompletedCount() != 0 {
		t.Fatalf("nil progress should count zero")
	}
}

func TestPercentOf(t *testing.T) {
	cases := []struct {
		completed, total int
		want             float64
	}{
		{1, 3, 33.33},
		{2, 3, 66.67},
		{1, 2, 50},
		{3, 3, 100},
		{0, 0, 0},
		// 0.575 exactly; float rounding of 0.575*100 lands below the half
		{23, 4000, 0.58},
		{1, 8, 12.5},
		{1, 800, 0.13},
	}
	for _, tc := range cases {
		if got := PercentOf(tc.completed, tc.total); got != tc.want {
			t.Fatalf("PercentOf(%d, %d) = %v, want %v", tc.completed, tc.total, got, tc.want)
		}
	}
}

func TestPercentOfRoundsHalvesUpExactly(t *testing.T) {
	for total := 1; total <= 5000; total++ {
		for _, completed := range []int{1, total / 3, total / 2, total - 1} {
			got := PercentOf(completed, total)
			// exact integer check: got*100 hundredths must be the nearest, halves up
			h := int64(got*100 + 0.5)
			num := int64(completed) * 10000
			lo, hi := h*int64(total)*2-int64(total), h*int64(total)*2+int64(total)
			if 2*num < lo || 2*num >= hi {
				t.Fatalf("PercentOf(%d, %d) = %v is not the half-up rounding", completed, total, got)
			}
		}
	}
}

func TestStatusFor(t *testing.T) {
	cert := &Certificate{CertificateID: "cert-1"}
	if StatusFor(nil, 100) != StatusUnissued {
		t.Fatalf("no certificate means unissued")
	}
	if StatusFor(cert, 100) != StatusValid {
		t.Fatalf("complete progress means valid")
	}
	if StatusFor(cert, 99.99) != StatusInvalid {
		t.Fatalf("incomplete progress means invalid")
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		snap LearnerSnapshot
		want string
	}{
		{LearnerSnapshot{FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{LearnerSnapshot{FirstName: "Ada"}, "Ada"},
		{LearnerSnapshot{LastName: "Lovelace"}, "Lovelace"},
	}
	for _, tc := range cases {
		if got := tc.snap.DisplayName(); got != tc.want {
			t.Fatalf("DisplayName(%+v) = %q, want %q", tc.snap, got, tc.want)
		}
	}
}
