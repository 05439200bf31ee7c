package hangul

import "testing"

func TestNormalizeJoinRoundTrip(t *testing.T) {
	tests := []string{
		"학교에서도",
		"먹었다",
		"사겼다",
		"안녕하세요",
		"값",
		"고양이와 강아지",
		"고양이와  강아지",
		"고양이와\t\n강아지",
		"",
	}
	for _, s := range tests {
		seq, _, err := Normalize(s)
		if err != nil {
			t.Fatalf("Normalize(%q) error: %v", s, err)
		}
		got := Join(seq)
		if got != s {
			t.Errorf("Join(Normalize(%q)) = %q, want %q", s, got, s)
		}
	}
}

func TestNormalizeSplitsCoda(t *testing.T) {
	seq, _, err := Normalize("값")
	if err != nil {
		t.Fatal(err)
	}
	if len(seq) != 2 {
		t.Fatalf("Normalize(값) = %v (len %d), want len 2", seq, len(seq))
	}
	if !isJamoCoda(seq[1]) {
		t.Errorf("second cell %U is not a Jamo coda", seq[1])
	}
}

func TestPosMapMonotone(t *testing.T) {
	s := "학교에서도 test"
	_, pm, err := Normalize(s)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(pm); i++ {
		if pm[i] < pm[i-1] {
			t.Fatalf("PosMap not monotone non-decreasing at %d: %v", i, pm)
		}
	}
}

func TestInvalidUnicode(t *testing.T) {
	bad := "abc\xff\xfe"
	if _, _, err := Normalize(bad); err != ErrInvalidUnicode {
		t.Errorf("Normalize(invalid) error = %v, want ErrInvalidUnicode", err)
	}
}

func TestWhitespacePreservedPerRune(t *testing.T) {
	seq, pm, err := Normalize("가  나")
	if err != nil {
		t.Fatal(err)
	}
	// "가", " ", " ", "나" -> 4 cells; no collapsing, so Join can recover
	// the original run length (property 1).
	if len(seq) != 4 {
		t.Fatalf("Normalize(가  나) seq = %v, want 4 cells", seq)
	}
	if seq[1] != ' ' || seq[2] != ' ' {
		t.Errorf("middle cells = %q, %q, want two spaces", seq[1], seq[2])
	}
	if len(pm) != len(seq) {
		t.Errorf("PosMap length %d != seq length %d", len(pm), len(seq))
	}
	if got := Join(seq); got != "가  나" {
		t.Errorf("Join(seq) = %q, want %q", got, "가  나")
	}
}

func TestEmptyInput(t *testing.T) {
	seq, pm, err := Normalize("")
	if err != nil {
		t.Fatal(err)
	}
	if len(seq) != 0 || len(pm) != 0 {
		t.Errorf("Normalize(\"\") = %v, %v, want empty", seq, pm)
	}
}
