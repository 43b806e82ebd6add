package label

import "strings"

// Category is the coarse productive/non-productive classification of an email.
type Category string

const (
	Productive   Category = "Produtivo"
	Unproductive Category = "Improdutivo"
)

// Intent is the fine-grained reason classification of an email.
type Intent string

const (
	Status     Intent = "STATUS"
	Attachment Intent = "ATTACHMENT"
	Access     Intent = "ACCESS"
	Error      Intent = "ERROR"
	Closure    Intent = "CLOSURE"
	Thanks     Intent = "THANKS"
	Greetings  Intent = "GREETINGS"
	Support    Intent = "SUPPORT"
	NonMessage Intent = "NON_MESSAGE"
	Other      Intent = "OTHER"
)

// Intents lists every known intent, in declaration order. This is the closed
// label set sent to zero-shot backends.
var Intents = []Intent{
	Status, Attachment, Access, Error, Closure,
	Thanks, Greetings, Support, NonMessage, Other,
}

// Categories is the closed category label set.
var Categories = []Category{Productive, Unproductive}

// priority orders intents for tie-breaking during arbitration. Intents absent
// from this list rank after every listed one.
var priority = []Intent{
	Closure, Error, Status, Attachment, Access,
	Thanks, Greetings, Support, Other,
}

// PriorityIndex returns the tie-break rank of an intent; lower wins.
func PriorityIndex(i Intent) int {
	for idx, p := range priority {
		if p == i {
			return idx
		}
	}
	return len(priority) + 1
}

var productiveSet = map[Intent]struct{}{
	Status:     {},
	Attachment: {},
	Access:     {},
	Error:      {},
	Support:    {},
}

// Productive reports whether the intent implies an actionable request.
func (i Intent) Productive() bool {
	_, ok := productiveSet[i]
	return ok
}

// CategoryFor derives the category from the intent. The category is never
// chosen independently of the intent.
func CategoryFor(i Intent) Category {
	if i.Productive() {
		return Productive
	}
	return Unproductive
}

var intentAliases = map[string]Intent{
	"ATTACH":              Attachment,
	"ATTACHMENT/DOCUMENT": Attachment,
	"GREETING":            Greetings,
	"SUPORTE":             Support,
	"THANK":               Thanks,
	"NON-MESSAGE":         NonMessage,
}

// ParseIntent resolves a raw model label to a known intent. Unrecognized
// labels map to the supplied default.
func ParseIntent(raw string, def Intent) Intent {
	up := strings.ToUpper(strings.TrimSpace(raw))
	if up == "" {
		return def
	}
	for _, i := range Intents {
		if up == string(i) {
			return i
		}
	}
	if alias, ok := intentAliases[up]; ok {
		return alias
	}
	return def
}

var categoryAliases = map[string]Category{
	"PRODUCTIVE":   Productive,
	"UNPRODUCTIVE": Unproductive,
}

// ParseCategory resolves a raw model label to a known category. Unrecognized
// labels map to the supplied default.
func ParseCategory(raw string, def Category) Category {
	up := strings.ToUpper(strings.TrimSpace(raw))
	if up == "" {
		return def
	}
	for _, c := range Categories {
		if up == strings.ToUpper(string(c)) {
			return c
		}
	}
	if alias, ok := categoryAliases[up]; ok {
		return alias
	}
	return def
}
