package types

// MinedKeyword is one (keyword, best position) pair from a mining run.
type MinedKeyword struct {
	Keyword  string
	Position int
	IsNew    bool
}

// MineResult summarizes a completed autocomplete mining run.
type MineResult struct {
	Seed          string
	Depth         int
	Department    string
	NewCount      int
	ExistingCount int
	TotalMined    int
	Keywords      []MinedKeyword // sorted by (position asc, keyword asc)
}

// RankedKeyword is the output shape shared by the local probe and the
// paid reverse-lookup adapter.
type RankedKeyword struct {
	Keyword      string
	Position     int
	SearchVolume int // demand estimate; 0 when the source has none
}

// ProbeStatus discriminates the outcome of probing one keyword.
type ProbeStatus int

const (
	// ProbeFound means the target appeared in the organic results.
	ProbeFound ProbeStatus = iota
	// ProbeNotFound means the page parsed cleanly but the target
	// was not among the organic results.
	ProbeNotFound
	// ProbeSoftBlocked means the source served an anti-automation
	// challenge instead of results.
	ProbeSoftBlocked
	// ProbeTransient means a network or parse failure scoped to
	// this one keyword.
	ProbeTransient
)

// ProbeOutcome is the tagged result of a single keyword probe. Every
// caller branches on Status explicitly; no outcome is an exception.
type ProbeOutcome struct {
	Status   ProbeStatus
	Position int   // valid only when Status == ProbeFound
	Err      error // valid only when Status == ProbeTransient
}

// ProbeResult summarizes a reverse-lookup run over a keyword worklist.
type ProbeResult struct {
	ASIN      string
	Attempted int
	Total     int
	Cancelled bool
	Blocked   int
	Failed    int
	Rankings  []KeywordRanking // persisted incrementally, in probe order
}
