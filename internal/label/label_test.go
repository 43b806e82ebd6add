package label

import "testing"

func TestParseIntent(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected Intent
	}{
		{"exact", "CLOSURE", Closure},
		{"lowercase", "error", Error},
		{"alias attach", "ATTACH", Attachment},
		{"alias greeting", "Greeting", Greetings},
		{"alias suporte", "SUPORTE", Support},
		{"alias non-message", "NON-MESSAGE", NonMessage},
		{"unknown", "SPAM", Other},
		{"empty", "", Other},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseIntent(tc.raw, Other); got != tc.expected {
				t.Fatalf("expected %s got %s", tc.expected, got)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected Category
	}{
		{"exact", "Produtivo", Productive},
		{"uppercase", "IMPRODUTIVO", Unproductive},
		{"alias productive", "PRODUCTIVE", Productive},
		{"alias unproductive", "unproductive", Unproductive},
		{"unknown", "neutral", Productive},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseCategory(tc.raw, Productive); got != tc.expected {
				t.Fatalf("expected %s got %s", tc.expected, got)
			}
		})
	}
}

func TestCategoryFor(t *testing.T) {
	productive := []Intent{Status, Attachment, Access, Error, Support}
	for _, i := range productive {
		if CategoryFor(i) != Productive {
			t.Fatalf("%s should map to Produtivo", i)
		}
	}
	unproductive := []Intent{Closure, Thanks, Greetings, NonMessage, Other}
	for _, i := range unproductive {
		if CategoryFor(i) != Unproductive {
			t.Fatalf("%s should map to Improdutivo", i)
		}
	}
}

func TestPriorityIndex(t *testing.T) {
	if PriorityIndex(Closure) != 0 {
		t.Fatalf("closure must rank first")
	}
	if PriorityIndex(Error) >= PriorityIndex(Status) {
		t.Fatalf("error must outrank status")
	}
	if PriorityIndex(NonMessage) <= PriorityIndex(Other) {
		t.Fatalf("unlisted intents rank last")
	}
}
