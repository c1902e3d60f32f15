package usecase

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/docverity/docverity/internal/core/domain"
)

//go:embed cues.yaml
var cueTableYAML []byte

type phraseCue struct {
	Text   string  `yaml:"text"`
	Weight float64 `yaml:"weight"`
}

type patternCue struct {
	Name   string  `yaml:"name"`
	Regex  string  `yaml:"regex"`
	Weight float64 `yaml:"weight"`

	compiled *regexp.Regexp
}

type hypothesisCues struct {
	Saturation float64      `yaml:"saturation"`
	Phrases    []phraseCue  `yaml:"phrases"`
	Patterns   []patternCue `yaml:"patterns"`
}

type cueTable struct {
	Hypotheses map[domain.DocType]hypothesisCues `yaml:"hypotheses"`
}

func loadCueTable() (*cueTable, error) {
	var table cueTable
	if err := yaml.Unmarshal(cueTableYAML, &table); err != nil {
		return nil, fmt.Errorf("parse cue table: %w", err)
	}
	for docType, cues := range table.Hypotheses {
		if cues.Saturation <= 0 {
			return nil, fmt.Errorf("hypothesis %s: saturation must be positive", docType)
		}
		for i := range cues.Patterns {
			compiled, err := regexp.Compile(cues.Patterns[i].Regex)
			if err != nil {
				return nil, fmt.Errorf("hypothesis %s pattern %q: %w", docType, cues.Patterns[i].Name, err)
			}
			cues.Patterns[i].compiled = compiled
		}
		table.Hypotheses[docType] = cues
	}
	return &table, nil
}

// cueHit is one piece of matched evidence, kept for reason strings.
type cueHit struct {
	Hypothesis domain.DocType
	Cue        string
	Weight     float64
}

// score sums matched cue weights per hypothesis over the normalized text.
// Each cue counts at most once no matter how often it appears, and the raw
// sum saturates so one more keyword moves a high score less than a low one.
func (t *cueTable) score(lines []string) (domain.CueScores, []cueHit) {
	text := strings.Join(lines, " ")

	scores := make(domain.CueScores, len(t.Hypotheses))
	var hits []cueHit
	for docType, cues := range t.Hypotheses {
		raw := 0.0
		for _, p := range cues.Phrases {
			if containsPhrase(text, p.Text) {
				raw += p.Weight
				hits = append(hits, cueHit{Hypothesis: docType, Cue: p.Text, Weight: p.Weight})
			}
		}
		for _, p := range cues.Patterns {
			if p.compiled.MatchString(text) {
				raw += p.Weight
				hits = append(hits, cueHit{Hypothesis: docType, Cue: p.Name, Weight: p.Weight})
			}
		}
		scores[docType] = raw / (raw + cues.Saturation)
	}
	return scores, hits
}

// containsPhrase matches a phrase on token boundaries so "class" does not
// fire inside "classification".
func containsPhrase(text, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		beforeOK := start == 0 || text[start-1] == ' '
		afterOK := end == len(text) || text[end] == ' ' || text[end] == '-'
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}
