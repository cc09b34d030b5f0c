package aggregates

// Contract names an aggregate and the tables its writes touch.
type Contract struct {
	Name string
	// Tables are written inside a single transaction per operation.
	Tables []string
	Notes  string
}

// Aggregate is implemented by every store that owns a write boundary.
type Aggregate interface {
	Contract() Contract
}

// Owns reports whether table is written by this aggregate.
func (c Contract) Owns(table string) bool {
	for _, t := range c.Tables {
		if t == table {
			return true
		}
	}
	return false
}
