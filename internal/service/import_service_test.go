package service

import (
	"testing"
)

func TestParseCorrect(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "letter upper", input: "C", want: 2},
		{name: "letter lower", input: "b", want: 1},
		{name: "number", input: "4", want: 3},
		{name: "empty", input: "", wantErr: true},
		{name: "letter out of range", input: "E", wantErr: true},
		{name: "number out of range", input: "5", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "garbage", input: "yes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCorrect(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseCorrect(%q) = %d, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCorrect(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Fatalf("parseCorrect(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseRow(t *testing.T) {
	valid := []string{"What is 2+2?", "3", "4", "5", "6", "B", "Basic arithmetic", ""}

	q, rowErr := parseRow(7, 2, valid)
	if rowErr != nil {
		t.Fatalf("parseRow: %+v", rowErr)
	}
	if q.TopicID != 7 || q.Text != "What is 2+2?" || q.CorrectOption != 1 {
		t.Fatalf("parsed question = %+v", q)
	}
	if len(q.Options) != 4 || q.Options[1] != "4" {
		t.Fatalf("options = %v", q.Options)
	}
	if q.Explanation != "Basic arithmetic" {
		t.Fatalf("explanation = %q", q.Explanation)
	}

	tests := []struct {
		name  string
		row   []string
		field string
	}{
		{name: "missing text", row: []string{"", "a", "b", "c", "d", "A", "", ""}, field: "text"},
		{name: "missing option", row: []string{"q", "a", "", "c", "d", "A", "", ""}, field: "option_b"},
		{name: "bad correct", row: []string{"q", "a", "b", "c", "d", "X", "", ""}, field: "correct"},
		{name: "short row", row: []string{"q", "a"}, field: "option_b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rowErr := parseRow(1, 3, tt.row)
			if rowErr == nil {
				t.Fatal("expected row error")
			}
			if rowErr.Field != tt.field {
				t.Fatalf("field = %q, want %q", rowErr.Field, tt.field)
			}
			if rowErr.Line != 3 {
				t.Fatalf("line = %d, want 3", rowErr.Line)
			}
		})
	}
}

func TestCheckHeader(t *testing.T) {
	if err := checkHeader([]string{"text", "option_a", "option_b", "option_c", "option_d", "correct", "explanation", "image_path"}); err != nil {
		t.Fatalf("full header: %v", err)
	}
	// Optional trailing columns may be omitted.
	if err := checkHeader([]string{"text", "option_a", "option_b", "option_c", "option_d", "correct"}); err != nil {
		t.Fatalf("short header: %v", err)
	}
	if err := checkHeader([]string{"Text", " option_a", "OPTION_B", "option_c", "option_d", "correct"}); err != nil {
		t.Fatalf("case-insensitive header: %v", err)
	}
	if err := checkHeader([]string{"question", "option_a", "option_b", "option_c", "option_d", "correct"}); err == nil {
		t.Fatal("wrong column name accepted")
	}
	if err := checkHeader([]string{"text", "option_a"}); err == nil {
		t.Fatal("truncated header accepted")
	}
}
