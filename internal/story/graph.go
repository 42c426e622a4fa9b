package story

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/m3rciful/storybot/internal/apperr"
)

// Reserved callback tokens. They never name a stage.
const (
	TokenExit    = "-1"
	TokenRestart = "-2"
	TokenResume  = "-3"
)

const defaultStart = "1"

//go:embed plot.yaml
var defaultPlot []byte

// Choice is one button of a stage. Next defaults to Token.
type Choice struct {
	Token string `yaml:"token"`
	Label string `yaml:"label"`
	Next  string `yaml:"next,omitempty"`
}

// Stage is a prompt with its ordered choices.
type Stage struct {
	ID      string   `yaml:"id"`
	Text    string   `yaml:"text"`
	Choices []Choice `yaml:"choices"`
}

// Graph is the immutable stage table, addressed by stage id. Cycles are allowed.
type Graph struct {
	start  string
	stages map[string]Stage
}

type graphFile struct {
	Start  string  `yaml:"start"`
	Stages []Stage `yaml:"stages"`
}

// LoadGraph reads a story graph from path, or the embedded plot when path is empty.
func LoadGraph(path string) (*Graph, error) {
	data := defaultPlot
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("story: read graph: %w", err)
		}
		data = raw
	}
	return ParseGraph(data)
}

// ParseGraph decodes a YAML story graph and validates it.
func ParseGraph(data []byte) (*Graph, error) {
	var gf graphFile
	if err := yaml.Unmarshal(data, &gf); err != nil {
		return nil, fmt.Errorf("story: parse graph: %w", err)
	}
	return NewGraph(gf.Start, gf.Stages)
}

// NewGraph builds a graph from stages. An empty start selects stage "1".
func NewGraph(start string, stages []Stage) (*Graph, error) {
	start = strings.TrimSpace(start)
	if start == "" {
		start = defaultStart
	}
	g := &Graph{start: start, stages: make(map[string]Stage, len(stages))}
	for _, st := range stages {
		st.ID = strings.TrimSpace(st.ID)
		if st.ID == "" {
			return nil, errors.New("story: stage without id")
		}
		if isSentinel(st.ID) {
			return nil, fmt.Errorf("story: stage id %q is reserved", st.ID)
		}
		if _, dup := g.stages[st.ID]; dup {
			return nil, fmt.Errorf("story: duplicate stage %q", st.ID)
		}
		choices := make([]Choice, len(st.Choices))
		for i, ch := range st.Choices {
			ch.Token = strings.TrimSpace(ch.Token)
			ch.Next = strings.TrimSpace(ch.Next)
			if ch.Next == "" {
				ch.Next = ch.Token
			}
			choices[i] = ch
		}
		st.Choices = choices
		g.stages[st.ID] = st
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks that the start stage exists and that every choice leads to a stage
// through a unique, non-reserved token with a caption.
func (g *Graph) Validate() error {
	if _, ok := g.stages[g.start]; !ok {
		return fmt.Errorf("story: start stage %q not found", g.start)
	}
	var errs []error
	for _, id := range g.IDs() {
		st := g.stages[id]
		if strings.TrimSpace(st.Text) == "" {
			errs = append(errs, fmt.Errorf("stage %q: empty text", id))
		}
		tokens := make(map[string]struct{}, len(st.Choices))
		for _, ch := range st.Choices {
			switch {
			case ch.Token == "":
				errs = append(errs, fmt.Errorf("stage %q: choice %q without token", id, ch.Label))
				continue
			case isSentinel(ch.Token):
				errs = append(errs, fmt.Errorf("stage %q: token %q is reserved", id, ch.Token))
			case strings.TrimSpace(ch.Label) == "":
				errs = append(errs, fmt.Errorf("stage %q: token %q has no label", id, ch.Token))
			}
			if _, dup := tokens[ch.Token]; dup {
				errs = append(errs, fmt.Errorf("stage %q: duplicate token %q", id, ch.Token))
			}
			tokens[ch.Token] = struct{}{}
			if _, ok := g.stages[ch.Next]; !ok {
				errs = append(errs, fmt.Errorf("stage %q: token %q leads to unknown stage %q", id, ch.Token, ch.Next))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("story: invalid graph: %w", errors.Join(errs...))
	}
	return nil
}

// Start returns the id of the start stage.
func (g *Graph) Start() string { return g.start }

// Stage returns the stage with id.
func (g *Graph) Stage(id string) (Stage, bool) {
	st, ok := g.stages[id]
	return st, ok
}

// Len returns the number of stages.
func (g *Graph) Len() int { return len(g.stages) }

// IDs returns stage ids in sorted order.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.stages))
	for id := range g.stages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reachable returns the ids of stages reachable from the start stage, sorted.
func (g *Graph) Reachable() []string {
	seen := map[string]struct{}{g.start: {}}
	queue := []string{g.start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, ch := range g.stages[id].Choices {
			if _, ok := seen[ch.Next]; ok {
				continue
			}
			seen[ch.Next] = struct{}{}
			queue = append(queue, ch.Next)
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Step is the outcome of applying a token to a session.
type Step struct {
	// Exit is set for the exit token; Stage is empty then.
	Exit  bool
	Stage Stage
}

// Transition computes the next step for token without side effects.
// Tokens other than the reserved ones are looked up among the current stage's
// choices and are rejected with apperr.UnknownChoiceToken when the session is not
// playing or the stage does not offer them.
func (g *Graph) Transition(s Session, token string) (Step, error) {
	const op = "story.transition"
	switch token {
	case TokenExit:
		return Step{Exit: true}, nil
	case TokenRestart:
		return Step{Stage: g.stages[g.start]}, nil
	case TokenResume:
		if st, ok := g.stages[s.CurrentStageID]; ok {
			return Step{Stage: st}, nil
		}
		return Step{Stage: g.stages[g.start]}, nil
	}

	if !s.IsPlaying {
		return Step{}, apperr.Errorf(apperr.UnknownChoiceToken, op, "token %q outside of a game", token)
	}
	cur, ok := g.stages[s.CurrentStageID]
	if !ok {
		return Step{}, apperr.Errorf(apperr.UnknownChoiceToken, op, "current stage %q not found", s.CurrentStageID)
	}
	for _, ch := range cur.Choices {
		if ch.Token == token {
			return Step{Stage: g.stages[ch.Next]}, nil
		}
	}
	return Step{}, apperr.Errorf(apperr.UnknownChoiceToken, op, "stage %q does not offer token %q", cur.ID, token)
}

func isSentinel(token string) bool {
	return token == TokenExit || token == TokenRestart || token == TokenResume
}
