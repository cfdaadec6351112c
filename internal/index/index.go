package index

// ItemIndex defines the interface for content indexing operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type ItemIndex interface {
	UpsertItem(r ItemRow, body string) error
	DeleteItem(path string) error
	GetItem(collection, slug string) (*ItemRow, error)
	ListItems(collection string, limit, offset int) ([]ItemRow, int, error)
	Search(query, collection string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies ItemIndex at compile time.
var _ ItemIndex = (*DB)(nil)
