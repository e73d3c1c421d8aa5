package keyphrase

import "github.com/kljensen/snowball"

// rawStopwords is the fixed Russian stop-word set. Candidate n-grams
// containing any of these words (in stemmed form) are excluded from ranking.
var rawStopwords = []string{
	"а", "без", "более", "больше", "будет", "будто", "бы", "был", "была",
	"были", "было", "быть", "в", "вам", "вас", "вдруг", "ведь", "во", "вот",
	"впрочем", "все", "всегда", "всего", "всех", "всю", "вы", "г", "где",
	"да", "даже", "два", "для", "до", "другой", "его", "ее", "ей", "ему",
	"если", "есть", "еще", "же", "за", "зачем", "здесь", "и", "из", "или",
	"им", "иногда", "их", "к", "кажется", "как", "какая", "какой", "когда",
	"конечно", "которая", "которого", "которые", "который", "которых", "кто",
	"куда", "ли", "лучше", "меня", "мне", "много", "может", "можно", "мой",
	"моя", "мы", "на", "над", "надо", "наконец", "нас", "не", "него", "нее",
	"ней", "нельзя", "нет", "ни", "нибудь", "никогда", "ним", "них", "ничего",
	"но", "ну", "о", "об", "один", "он", "она", "они", "опять", "от", "перед",
	"по", "под", "после", "потом", "потому", "почти", "при", "про", "раз",
	"разве", "с", "сам", "свое", "свою", "себе", "себя", "сейчас", "со",
	"совсем", "так", "такой", "там", "тебя", "тем", "теперь", "то", "тогда",
	"того", "тоже", "только", "том", "тот", "три", "тут", "ты", "у", "уж",
	"уже", "хорошо", "хоть", "чего", "чем", "через", "что", "чтоб", "чтобы",
	"чуть", "эти", "этого", "этой", "этом", "этот", "эту", "я",
}

// stopwords holds the stop-word set keyed by stemmed form, so lookups work
// against the stemmed tokens candidates are built from.
var stopwords = buildStopwords()

func buildStopwords() map[string]struct{} {
	set := make(map[string]struct{}, len(rawStopwords)*2)
	for _, w := range rawStopwords {
		set[w] = struct{}{}
		if stemmed, err := snowball.Stem(w, "russian", false); err == nil && stemmed != "" {
			set[stemmed] = struct{}{}
		}
	}
	return set
}

func isStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}
