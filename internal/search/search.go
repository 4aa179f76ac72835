package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultDog     ResultType = "dog"
	ResultContact ResultType = "contact"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	OrgID   string     `json:"orgId"`
	Stage   string     `json:"stage,omitempty"`
	Kind    string     `json:"kind,omitempty"`
}

// Query describes a search request. OrgID is always required; search never
// crosses org boundaries.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	OrgID      string
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexDog(d DogRecord) error
	IndexContact(c ContactRecord) error
	DeleteDog(id string) error
	DeleteContact(id string) error
}

// DogRecord is the data we index for a dog.
type DogRecord struct {
	ID        string `json:"id"`
	OrgID     string `json:"orgId"`
	Name      string `json:"name"`
	Breed     string `json:"breed"`
	Microchip string `json:"microchip"`
	Stage     string `json:"stage"`
	Notes     string `json:"notes"`
}

// ContactRecord is the data we index for a contact.
type ContactRecord struct {
	ID    string `json:"id"`
	OrgID string `json:"orgId"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Kind  string `json:"kind"`
	Notes string `json:"notes"`
}
