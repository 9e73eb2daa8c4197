package generator

// Candidate is one revision of a post. Iteration 0 is the first draft and n is
// the n-th refinement.
type Candidate struct {
	Text      string `json:"text"`
	Iteration int    `json:"iteration"`
}

// CritiqueReport is the Critic's verdict on a Candidate. Score is in [0,100];
// an unparsable verdict scores 0.
type CritiqueReport struct {
	Score  int    `json:"score"`
	Report string `json:"report"`
	Raw    string `json:"-"`
}

// Voice is the brand configuration injected into every prompt. Rules is ordered
// and changes independently of code.
type Voice struct {
	Brand    string
	Audience string
	Rules    []string
}
