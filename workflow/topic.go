package workflow

import (
	"errors"
	"math/rand/v2"
	"strings"
)

// TopicPicker chooses the run topic from the configured set.
type TopicPicker struct {
	topics []string
	intN   func(int) int
}

// NewTopicPicker keeps the non-blank topics. intN defaults to rand.IntN.
func NewTopicPicker(topics []string, intN func(int) int) *TopicPicker {
	kept := make([]string, 0, len(topics))
	for _, t := range topics {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
	}
	if intN == nil {
		intN = rand.IntN
	}
	return &TopicPicker{topics: kept, intN: intN}
}

// Pick returns requested when set, otherwise a random configured topic.
func (p *TopicPicker) Pick(requested string) (string, error) {
	if requested = strings.TrimSpace(requested); requested != "" {
		return requested, nil
	}
	if len(p.topics) == 0 {
		return "", errors.New("no topic given and none configured")
	}
	return p.topics[p.intN(len(p.topics))], nil
}
